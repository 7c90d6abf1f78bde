package service

import (
	"context"
	"errors"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	statusSuccess        = "success"
	statusInvalid        = "invalid"
	statusReconcileError = "reconcile_failed"
	statusProviderError  = "provider_failed"
	statusNoOutput       = "no_output"
	statusDownloadError  = "download_failed"
)

// InpaintTool runs a single FLUX Fill Pro inpainting or outpainting request and streams diagnostics and the
// resulting image to an Emitter.
type InpaintTool struct {
	reconciler    *Reconciler
	fetcher       port.ImageFetcher
	newInpainter  port.InpainterFactory
	recorder      port.Recorder
	resultTimeout time.Duration
}

func NewInpaintTool(reconciler *Reconciler, fetcher port.ImageFetcher, newInpainter port.InpainterFactory,
	recorder port.Recorder, resultTimeout time.Duration) *InpaintTool {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &InpaintTool{
		reconciler:    reconciler,
		fetcher:       fetcher,
		newInpainter:  newInpainter,
		recorder:      recorder,
		resultTimeout: resultTimeout,
	}
}

// Invoke validates the request, reconciles the mask, runs the model and emits the generated image. Every failure
// is reported to the emitter as a single text message before it is returned.
func (t *InpaintTool) Invoke(ctx context.Context, apiToken string, params domain.Params,
	emitter port.Emitter) error {
	l := log.With().
		Str("image", params.Image.String()).
		Str("outpaint", string(params.Outpaint)).
		Logger()

	l.Info().Msg("handling inpaint request")

	if apiToken == "" {
		t.recorder.ObserveInvocation(statusInvalid)
		notify(ctx, emitter, "API token is required.")
		return domain.ErrMissingCredential
	}

	params, err := validateParams(params)
	if err != nil {
		t.recorder.ObserveInvocation(statusInvalid)
		notify(ctx, emitter, describeInvalidParams(err))
		return err
	}

	rec, err := t.reconciler.Reconcile(ctx, params.Image, params.Mask, params.Outpaint, emitter)
	if err != nil {
		l.Error().Err(err).Msg("mask reconciliation failed")
		t.recorder.ObserveInvocation(statusReconcileError)
		notify(ctx, emitter, describeReconcileError(err))
		return err
	}

	l.Debug().Str("outcome", string(rec.Outcome)).Str("reason", rec.Reason).Msg("mask reconciled")
	params.Mask = rec.Mask

	notify(ctx, emitter, "Generating image with FLUX Fill Pro...")

	inpainter := t.newInpainter(apiToken)
	imageURL, err := inpainter.Inpaint(ctx, params)
	if err != nil {
		providerErr := ClassifyProviderError(err)
		l.Error().Err(err).Str("category", string(providerErr.Category)).Msg("model invocation failed")
		t.recorder.ObserveProviderError(providerErr.Category)
		t.recorder.ObserveInvocation(statusProviderError)
		notify(ctx, emitter, describeProviderError(providerErr))
		return providerErr
	}

	if imageURL == "" {
		t.recorder.ObserveInvocation(statusNoOutput)
		notify(ctx, emitter, "No output received from FLUX Fill Pro.")
		return domain.ErrNoOutput
	}

	image, err := t.download(ctx, domain.ImageRef(imageURL))
	if err != nil {
		l.Error().Err(err).Str("result", imageURL).Msg("failed to download generated image")
		t.recorder.ObserveInvocation(statusDownloadError)
		notify(ctx, emitter, describeDownloadError(err))
		return err
	}

	if err := emitter.EmitBlob(ctx, image, params.OutputFormat.MimeType()); err != nil {
		l.Error().Err(err).Msg(domain.ErrSendingReplyFailed.Error())
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	t.recorder.ObserveInvocation(statusSuccess)
	l.Info().Int("bytes", len(image)).Msg("image generated")

	return nil
}

// ValidateCredentials checks an API token with the provider. Only an authentication failure counts as invalid, any
// other failure leaves the token presumed valid.
func (t *InpaintTool) ValidateCredentials(ctx context.Context, apiToken string) error {
	if apiToken == "" {
		return domain.ErrMissingCredential
	}

	err := t.newInpainter(apiToken).ValidateToken(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrInvalidCredential) {
		return err
	}

	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) && providerErr.Category == domain.CategoryAuthentication {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredential, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication") {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredential, err)
	}

	log.Warn().Err(err).Msg("could not verify api token, assuming it is valid")
	return nil
}

func (t *InpaintTool) download(ctx context.Context, ref domain.ImageRef) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.resultTimeout)
	defer cancel()

	data, err := t.fetcher.Fetch(ctx, ref)
	if err != nil {
		var retrievalErr *domain.RetrievalError
		if errors.As(err, &retrievalErr) {
			retrievalErr.Which = domain.ResultImage
		}
		return nil, err
	}

	return data, nil
}

func validateParams(params domain.Params) (domain.Params, error) {
	if params.Image == "" {
		return params, domain.ErrMissingImage
	}

	if strings.TrimSpace(params.Prompt) == "" {
		return params, domain.ErrEmptyPrompt
	}

	outpaint, err := domain.ParseOutpaint(string(params.Outpaint))
	if err != nil {
		return params, err
	}
	params.Outpaint = outpaint

	format, err := domain.ParseOutputFormat(string(params.OutputFormat))
	if err != nil {
		return params, err
	}
	params.OutputFormat = format

	return params, nil
}

func describeInvalidParams(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingImage):
		return "Image URL is required."
	case errors.Is(err, domain.ErrEmptyPrompt):
		return "Prompt is required."
	default:
		return fmt.Sprintf("Invalid parameters: %s", err)
	}
}

func describeReconcileError(err error) string {
	var retrievalErr *domain.RetrievalError
	if errors.As(err, &retrievalErr) {
		if retrievalErr.StatusCode != 0 {
			return fmt.Sprintf("Failed to download %s image.\nStatus code: %d\nURL: %s",
				retrievalErr.Which, retrievalErr.StatusCode, retrievalErr.URL)
		}
		return fmt.Sprintf("Failed to download %s image.\nCause: %s\nURL: %s",
			retrievalErr.Which, retrievalErr.Err, retrievalErr.URL)
	}

	var decodeErr *domain.DecodeError
	if errors.As(err, &decodeErr) {
		return fmt.Sprintf("Failed to decode %s image: %s\nMake sure it is a PNG, JPG or WebP file.",
			decodeErr.Which, decodeErr.Err)
	}

	return fmt.Sprintf("Error: %s", err)
}

func describeDownloadError(err error) string {
	var retrievalErr *domain.RetrievalError
	if errors.As(err, &retrievalErr) && retrievalErr.StatusCode != 0 {
		return fmt.Sprintf("Failed to download generated image. Status code: %d", retrievalErr.StatusCode)
	}
	return fmt.Sprintf("Failed to download generated image: %s", err)
}
