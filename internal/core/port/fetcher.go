package port

import (
	"context"
	"fluxfill/internal/core/domain"
)

type ImageFetcher interface {
	// Fetch returns the raw bytes behind an image reference. Failures are reported as *domain.RetrievalError.
	Fetch(ctx context.Context, ref domain.ImageRef) ([]byte, error)
}
