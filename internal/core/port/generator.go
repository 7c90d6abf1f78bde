package port

import (
	"context"
	"fluxfill/internal/core/domain"
)

type Inpainter interface {
	// Inpaint runs the remote model with the given parameters and returns the URL of the generated image.
	Inpaint(ctx context.Context, params domain.Params) (string, error)
	// ValidateToken checks the configured API token against the provider.
	ValidateToken(ctx context.Context) error
}

// InpainterFactory builds an Inpainter bound to a single API token.
type InpainterFactory func(apiToken string) Inpainter
