package model

import (
	"context"
	"fmt"
	"strings"
)

// Load builds the classifier selected by cfg.Backend. Callers treat an error
// as "model unavailable" and keep serving.
func Load(ctx context.Context, cfg Config) (Classifier, error) {
	meta, err := LoadMetadata(cfg.MetadataPath, cfg.ImageSize, cfg.Classes)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendONNX:
		c, err := NewONNXClassifier(cfg.Path, cfg.LibraryPath, meta, cfg.Threads)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRemote:
		c := NewRemoteClassifier(cfg.Remote, meta.Classes)
		if err := c.CheckReady(ctx); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}
