package converter

import (
	"bytes"
	"context"
	"fluxfill/internal/core/domain"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	_ "golang.org/x/image/webp"
)

// Imaging normalizes masks in process.
type Imaging struct{}

func NewImaging() *Imaging {
	return &Imaging{}
}

func (i *Imaging) Dimensions(data []byte) (domain.Dimensions, error) {
	return decodeDimensions(data)
}

// Normalize resizes the mask with a Lanczos filter and composites it onto an opaque white canvas. The result is
// fully opaque, so the PNG encoder writes it as 8-bit RGB without an alpha channel.
func (i *Imaging) Normalize(_ context.Context, data []byte, target domain.Dimensions) ([]byte, error) {
	if err := checkSizes(data, target); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding mask: %w", err)
	}

	resized := imaging.Resize(img, target.Width, target.Height, imaging.Lanczos)
	flattened := imaging.Overlay(imaging.New(target.Width, target.Height, color.White), resized, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flattened, imaging.PNG); err != nil {
		return nil, fmt.Errorf("error encoding mask: %w", err)
	}

	log.Debug().
		Stringer("target", target).
		Int("bytes", buf.Len()).
		Msg("mask normalized")

	return buf.Bytes(), nil
}

func decodeDimensions(data []byte) (domain.Dimensions, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Dimensions{}, err
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.Dimensions{}, fmt.Errorf("%s image has empty dimensions", format)
	}

	return domain.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// checkSizes rejects targets and masks whose pixel buffers would exceed domain.MaxPixels before anything is
// allocated for them.
func checkSizes(data []byte, target domain.Dimensions) error {
	if target.Width <= 0 || target.Height <= 0 {
		return fmt.Errorf("invalid target size %s", target)
	}

	if target.Pixels() > domain.MaxPixels {
		return fmt.Errorf("%w: target size %s", domain.ErrImageTooLarge, target)
	}

	size, err := decodeDimensions(data)
	if err != nil {
		return fmt.Errorf("error decoding mask: %w", err)
	}

	if size.Pixels() > domain.MaxPixels {
		return fmt.Errorf("%w: mask size %s", domain.ErrImageTooLarge, size)
	}

	return nil
}
