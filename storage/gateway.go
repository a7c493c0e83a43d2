// Package storage hands local temp files to the media provider.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

// ObjectStore is a media provider. Put returns the public URL of the stored object.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

type UploadResult struct {
	URL          string `json:"url"`
	ObjectKey    string `json:"objectKey"`
	ResourceType string `json:"resourceType"`
	ContentType  string `json:"contentType"`
	Bytes        int64  `json:"bytes"`
}

type Gateway struct {
	store  ObjectStore
	folder string
	logger *zap.Logger
}

func NewGateway(store ObjectStore, folder string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		store:  store,
		folder: strings.Trim(folder, "/"),
		logger: logger,
	}
}

// Close releases the provider client when it holds one.
func (g *Gateway) Close() error {
	if c, ok := g.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Upload sends the file at localPath to the provider and removes the local
// copy whatever the outcome. An empty path yields (nil, nil). A nil result
// means nothing was uploaded.
func (g *Gateway) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, nil
	}
	defer g.removeTemp(localPath)

	res, err := g.upload(ctx, localPath)
	if err != nil {
		g.logger.Warn("media upload failed", zap.String("path", localPath), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (g *Gateway) upload(ctx context.Context, localPath string) (*UploadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", localPath, err)
	}

	resourceType := resourceTypeOf(mt)
	ext := strings.ToLower(filepath.Ext(localPath))
	if ext == "" {
		ext = mt.Extension()
	}
	key := path.Join(g.folder, resourceType, uuid.NewString()+ext)

	url, err := g.store.Put(ctx, key, mt.String(), f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	return &UploadResult{
		URL:          url,
		ObjectKey:    key,
		ResourceType: resourceType,
		ContentType:  mt.String(),
		Bytes:        info.Size(),
	}, nil
}

func (g *Gateway) removeTemp(localPath string) {
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		g.logger.Warn("failed to remove temp file", zap.String("path", localPath), zap.Error(err))
	}
}

func resourceTypeOf(mt *mimetype.MIME) string {
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return ResourceImage
		case strings.HasPrefix(m.String(), "video/"):
			return ResourceVideo
		}
	}
	return ResourceRaw
}
