package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

type Message struct {
	ID       int
	ChatID   int64
	Username string
	ImageURL string
	Text     string
}

// ImageRef references image bytes, either as a remote URL or as a self-contained
// data URI.
type ImageRef string

const dataURIPrefix = "data:"

func (r ImageRef) IsDataURI() bool {
	return strings.HasPrefix(string(r), dataURIPrefix)
}

func (r ImageRef) String() string {
	if r.IsDataURI() && len(r) > 48 {
		return string(r[:48]) + "..."
	}
	return string(r)
}

// NewPNGDataURI wraps PNG bytes into a base64 data URI.
func NewPNGDataURI(data []byte) ImageRef {
	return NewDataURI("image/png", data)
}

// NewDataURI wraps bytes of the given media type into a base64 data URI.
func NewDataURI(mediaType string, data []byte) ImageRef {
	return ImageRef("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// Payload returns the decoded bytes and media type of a base64 data URI.
func (r ImageRef) Payload() ([]byte, string, error) {
	if !r.IsDataURI() {
		return nil, "", ErrNotDataURI
	}

	header, payload, ok := strings.Cut(strings.TrimPrefix(string(r), dataURIPrefix), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri: %w", ErrNotDataURI)
	}

	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("unsupported data uri encoding %q", header)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("error decoding data uri payload: %w", err)
	}

	return data, mediaType, nil
}

type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) Equal(o Dimensions) bool {
	return d.Width == o.Width && d.Height == o.Height
}

// MaxPixels bounds the area of images that are decoded or resized. It matches the decompression bomb limit of
// common imaging libraries and keeps a small file declaring a huge canvas from exhausting memory.
const MaxPixels = 89_478_485

func (d Dimensions) Pixels() int64 {
	return int64(d.Width) * int64(d.Height)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%d × %d", d.Width, d.Height)
}

type Outpaint string

const (
	OutpaintNone       Outpaint = "None"
	OutpaintZoom15     Outpaint = "Zoom out 1.5x"
	OutpaintZoom2      Outpaint = "Zoom out 2x"
	OutpaintMakeSquare Outpaint = "Make square"
	OutpaintLeft       Outpaint = "Left outpaint"
	OutpaintRight      Outpaint = "Right outpaint"
	OutpaintTop        Outpaint = "Top outpaint"
	OutpaintBottom     Outpaint = "Bottom outpaint"
)

var outpaintModes = []Outpaint{
	OutpaintNone, OutpaintZoom15, OutpaintZoom2, OutpaintMakeSquare,
	OutpaintLeft, OutpaintRight, OutpaintTop, OutpaintBottom,
}

// ParseOutpaint matches a mode case-insensitively. An empty string means None.
func ParseOutpaint(s string) (Outpaint, error) {
	if s == "" {
		return OutpaintNone, nil
	}
	for _, mode := range outpaintModes {
		if strings.EqualFold(s, string(mode)) {
			return mode, nil
		}
	}
	return "", fmt.Errorf("%w: unknown outpaint mode %q", ErrInvalidParameter, s)
}

type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatJPG  OutputFormat = "jpg"
	FormatWEBP OutputFormat = "webp"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "webp":
		return FormatWEBP, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", ErrInvalidParameter, s)
	}
}

func (f OutputFormat) MimeType() string {
	switch f {
	case FormatJPG:
		return "image/jpeg"
	case FormatWEBP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Params is the tool parameter surface forwarded to the inpainting model.
type Params struct {
	Image            ImageRef
	Prompt           string
	Mask             ImageRef
	Steps            int
	Guidance         float64
	Outpaint         Outpaint
	OutputFormat     OutputFormat
	SafetyTolerance  int
	PromptUpsampling bool
}

func DefaultParams() Params {
	return Params{
		Steps:            50,
		Guidance:         60,
		Outpaint:         OutpaintNone,
		OutputFormat:     FormatPNG,
		SafetyTolerance:  2,
		PromptUpsampling: false,
	}
}

type Outcome string

const (
	Unchanged Outcome = "unchanged"
	Resized   Outcome = "resized"
	Skipped   Outcome = "skipped"
)

// Reconciliation is the result of checking a mask against its source image.
// Mask is always the reference that should be forwarded to the model.
type Reconciliation struct {
	Outcome  Outcome
	Mask     ImageRef
	Original Dimensions
	Target   Dimensions
	Reason   string
}
