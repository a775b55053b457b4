// Package backend builds the configured media.Backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/mediaforge/internal/config"
	"github.com/kiranshivaraju/mediaforge/internal/media"
	"github.com/kiranshivaraju/mediaforge/internal/media/fake"
	"github.com/kiranshivaraju/mediaforge/internal/media/gemini"
	"github.com/kiranshivaraju/mediaforge/internal/media/sdk"
)

// New constructs the backend named by cfg.Backend.
// Called once at server startup.
func New(ctx context.Context, cfg config.MediaConfig, logger *slog.Logger) (media.Backend, error) {
	switch cfg.Backend {
	case "gemini":
		return gemini.NewClient(gemini.Options{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			VideoModel:       cfg.VideoModel,
			ImageModel:       cfg.ImageModel,
			EditModel:        cfg.EditModel,
			Timeout:          cfg.RequestTimeout,
			MaxArtifactBytes: cfg.MaxArtifactSize,
			Logger:           logger,
		}), nil
	case "sdk":
		c, err := sdk.NewClient(ctx, sdk.Options{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			VideoModel: cfg.VideoModel,
			ImageModel: cfg.ImageModel,
			EditModel:  cfg.EditModel,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "fake":
		return fake.NewService(), nil
	default:
		return nil, fmt.Errorf("unknown media backend %q: must be one of gemini, sdk, fake", cfg.Backend)
	}
}

// PollerOptions maps the polling settings onto media.Options.
func PollerOptions(cfg config.MediaConfig, logger *slog.Logger) media.Options {
	return media.Options{
		Interval: cfg.PollInterval,
		Timeout:  cfg.PollTimeout,
		Logger:   logger,
	}
}
