package port

import (
	"context"
	"fluxfill/internal/core/domain"
)

type Tool interface {
	// Invoke runs one inpainting request, reporting progress and the result to the emitter.
	Invoke(ctx context.Context, apiToken string, params domain.Params, emitter Emitter) error
	// ValidateCredentials checks whether the provider accepts the API token.
	ValidateCredentials(ctx context.Context, apiToken string) error
}
