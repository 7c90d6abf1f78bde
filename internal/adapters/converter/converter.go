package converter

import (
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fmt"
)

const (
	BackendImaging = "imaging"
	BackendMagick  = "magick"
	BackendNone    = "none"
)

// New returns the mask normalizer for a configured backend. It returns an error wrapping
// domain.ErrCapabilityUnavailable when the backend cannot run in this environment.
func New(backend string) (port.MaskNormalizer, error) {
	switch backend {
	case "", BackendImaging:
		return NewImaging(), nil
	case BackendMagick:
		m, err := NewMagick()
		if err != nil {
			return nil, err
		}
		return m, nil
	case BackendNone:
		return nil, fmt.Errorf("%w: disabled by configuration", domain.ErrCapabilityUnavailable)
	default:
		return nil, fmt.Errorf("unknown mask backend %q", backend)
	}
}
