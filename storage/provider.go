package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/princinho/tubebackend/config"
)

// NewFromConfig builds the gateway for the configured provider.
func NewFromConfig(ctx context.Context, cfg config.Media, logger *zap.Logger) (*Gateway, error) {
	var (
		store ObjectStore
		err   error
	)
	switch cfg.Provider {
	case config.MediaR2:
		store, err = NewR2Store(ctx, cfg.R2)
	case config.MediaGCS:
		store, err = NewGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewGateway(store, cfg.Folder, logger.Named("media")), nil
}
