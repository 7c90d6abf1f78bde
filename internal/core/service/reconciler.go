package service

import (
	"context"
	"errors"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	reasonNotApplicable = "not applicable"
	reasonUnavailable   = "capability unavailable"
	reasonTooLarge      = "image too large"
)

// Reconciler makes sure a mask has the same pixel size as its source image before both are sent to the model.
type Reconciler struct {
	fetcher    port.ImageFetcher
	normalizer port.MaskNormalizer
	recorder   port.Recorder
	timeout    time.Duration
}

// NewReconciler creates a Reconciler. A nil normalizer means resizing is unavailable in this environment and every
// applicable reconciliation degrades to forwarding the original mask.
func NewReconciler(fetcher port.ImageFetcher, normalizer port.MaskNormalizer, recorder port.Recorder,
	timeout time.Duration) *Reconciler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Reconciler{fetcher: fetcher, normalizer: normalizer, recorder: recorder, timeout: timeout}
}

// Reconcile compares mask and source dimensions and substitutes a resized mask on mismatch. Download and decode
// failures of either image abort with an error; failures while resizing are reported as a warning and the
// original mask is kept.
func (r *Reconciler) Reconcile(ctx context.Context, source, mask domain.ImageRef, outpaint domain.Outpaint,
	emitter port.Emitter) (domain.Reconciliation, error) {
	if mask == "" || outpaint != domain.OutpaintNone {
		return domain.Reconciliation{Outcome: domain.Skipped, Mask: mask, Reason: reasonNotApplicable}, nil
	}

	l := log.With().
		Str("source", source.String()).
		Str("mask", mask.String()).
		Logger()

	if r.normalizer == nil {
		l.Warn().Msg("mask normalizer unavailable, skipping reconciliation")
		notify(ctx, emitter, "Warning: cannot validate or resize the mask, image processing is not available.\n"+
			"Proceeding with the original mask...")
		return r.skip(mask, reasonUnavailable), nil
	}

	notify(ctx, emitter, "Checking mask and image dimensions...")

	sourceData, err := r.fetch(ctx, source, domain.SourceImage)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	maskData, err := r.fetch(ctx, mask, domain.MaskImage)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	sourceSize, err := r.normalizer.Dimensions(sourceData)
	if err != nil {
		return domain.Reconciliation{}, &domain.DecodeError{Which: domain.SourceImage, Err: err}
	}

	maskSize, err := r.normalizer.Dimensions(maskData)
	if err != nil {
		return domain.Reconciliation{}, &domain.DecodeError{Which: domain.MaskImage, Err: err}
	}

	l.Debug().Stringer("sourceSize", sourceSize).Stringer("maskSize", maskSize).Msg("decoded images")

	if largest := max(sourceSize.Pixels(), maskSize.Pixels()); largest > domain.MaxPixels {
		l.Warn().Int64("pixels", largest).Msg("image exceeds pixel limit, skipping reconciliation")
		notify(ctx, emitter, fmt.Sprintf("Warning: image too large to check the mask (%s and %s pixels, "+
			"limit is %d pixels).\nProceeding with the original mask...", sourceSize, maskSize, domain.MaxPixels))
		return r.skip(mask, reasonTooLarge), nil
	}

	if sourceSize.Equal(maskSize) {
		notify(ctx, emitter, fmt.Sprintf("Dimensions match.\n  Both images: %s pixels", sourceSize))
		r.recorder.ObserveReconciliation(domain.Unchanged)
		return domain.Reconciliation{
			Outcome:  domain.Unchanged,
			Mask:     mask,
			Original: maskSize,
			Target:   sourceSize,
		}, nil
	}

	notify(ctx, emitter, fmt.Sprintf("Dimension mismatch detected.\n  Source: %s pixels\n  Mask: %s pixels\n"+
		"Resizing mask to match the source...", sourceSize, maskSize))

	resized, err := r.normalizer.Normalize(ctx, maskData, sourceSize)
	if err != nil {
		l.Warn().Err(err).Msg("failed to resize mask")
		notify(ctx, emitter, fmt.Sprintf("Warning: could not resize the mask: %s\n"+
			"Proceeding with the original mask...", err))
		return r.skip(mask, "resize failed: "+err.Error()), nil
	}

	notify(ctx, emitter, fmt.Sprintf("Mask resized successfully.\n  New size: %s pixels", sourceSize))
	l.Info().Stringer("from", maskSize).Stringer("to", sourceSize).Msg("mask resized")
	r.recorder.ObserveReconciliation(domain.Resized)

	return domain.Reconciliation{
		Outcome:  domain.Resized,
		Mask:     domain.NewPNGDataURI(resized),
		Original: maskSize,
		Target:   sourceSize,
	}, nil
}

func (r *Reconciler) fetch(ctx context.Context, ref domain.ImageRef, which domain.ImageRole) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.fetcher.Fetch(ctx, ref)
	if err == nil {
		return data, nil
	}

	var retrievalErr *domain.RetrievalError
	if errors.As(err, &retrievalErr) {
		retrievalErr.Which = which
		return nil, retrievalErr
	}

	return nil, &domain.RetrievalError{Which: which, URL: string(ref), Err: err}
}

func (r *Reconciler) skip(mask domain.ImageRef, reason string) domain.Reconciliation {
	r.recorder.ObserveReconciliation(domain.Skipped)
	return domain.Reconciliation{Outcome: domain.Skipped, Mask: mask, Reason: reason}
}

func notify(ctx context.Context, emitter port.Emitter, text string) {
	if err := emitter.EmitText(ctx, text); err != nil {
		log.Error().Err(err).Msg(domain.ErrSendingReplyFailed.Error())
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveReconciliation(domain.Outcome)         {}
func (nopRecorder) ObserveProviderError(domain.ProviderCategory) {}
func (nopRecorder) ObserveInvocation(string)                     {}
