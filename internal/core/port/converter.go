package port

import (
	"context"
	"fluxfill/internal/core/domain"
)

type MaskNormalizer interface {
	// Dimensions decodes an encoded image and returns its pixel size.
	Dimensions(data []byte) (domain.Dimensions, error)
	// Normalize resizes an encoded mask to the target size, flattens any transparency onto white and returns it
	// as an RGB PNG.
	Normalize(ctx context.Context, data []byte, target domain.Dimensions) ([]byte, error)
}
