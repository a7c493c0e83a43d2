package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FileValidator struct {
	allowedExt map[string]bool
	maxSize    int64
}

// NewImageValidator accepts image uploads with one of exts, up to maxMB megabytes.
func NewImageValidator(exts []string, maxMB int) *FileValidator {
	allowedExt := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(strings.ToLower(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowedExt[ext] = true
	}
	if maxMB <= 0 {
		maxMB = 5
	}
	return &FileValidator{
		allowedExt: allowedExt,
		maxSize:    int64(maxMB) << 20,
	}
}

// ValidateFile checks size, extension and the sniffed content type and
// returns the detected mime type.
func (v *FileValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return "", fmt.Errorf("invalid file extension")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file header")
	}
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("invalid file type")
	}

	return detected.String(), nil
}

// SaveTempFile stores an uploaded part under dir with a random name and
// returns the local path. The caller owns the file afterwards.
func SaveTempFile(c *gin.Context, fileHeader *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	dst := filepath.Join(dir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return dst, nil
}
