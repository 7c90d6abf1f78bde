package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fluxfill/internal/adapters/converter"
	"fluxfill/internal/adapters/file"
	"fluxfill/internal/core/domain"
	"hash/crc32"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const (
	sourceURL = domain.ImageRef("https://example.org/source.jpg")
	maskURL   = domain.ImageRef("https://example.org/mask.png")
)

func newFixture(sourceSize, maskSize domain.Dimensions) (*fakeFetcher, *fakeNormalizer) {
	f := &fakeFetcher{data: map[domain.ImageRef][]byte{
		sourceURL: []byte("source"),
		maskURL:   []byte("mask"),
	}}
	n := &fakeNormalizer{
		sizes: map[string]domain.Dimensions{"source": sourceSize, "mask": maskSize},
		out:   []byte("resized"),
	}
	return f, n
}

func TestReconcile_NotApplicable(t *testing.T) {
	tests := []struct {
		name     string
		mask     domain.ImageRef
		outpaint domain.Outpaint
	}{
		{name: "no mask", mask: "", outpaint: domain.OutpaintNone},
		{name: "outpaint with mask", mask: maskURL, outpaint: domain.OutpaintZoom2},
		{name: "outpaint without mask", mask: "", outpaint: domain.OutpaintMakeSquare},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, n := newFixture(domain.Dimensions{Width: 1, Height: 1}, domain.Dimensions{Width: 2, Height: 2})
			e := &mockEmitter{}
			r := NewReconciler(f, n, nil, time.Second)

			got, err := r.Reconcile(t.Context(), sourceURL, tc.mask, tc.outpaint, e)
			require.NoError(t, err)

			assert.Equal(t, domain.Skipped, got.Outcome)
			assert.Equal(t, tc.mask, got.Mask)
			assert.Equal(t, "not applicable", got.Reason)
			assert.Empty(t, f.calls)
			assert.Empty(t, e.texts)
		})
	}
}

func TestReconcile_DimensionsMatch(t *testing.T) {
	size := domain.Dimensions{Width: 512, Height: 512}
	f, n := newFixture(size, size)
	e := &mockEmitter{}
	rec := &countingRecorder{}
	r := NewReconciler(f, n, rec, time.Second)

	got, err := r.Reconcile(t.Context(), sourceURL, maskURL, domain.OutpaintNone, e)
	require.NoError(t, err)

	assert.Equal(t, domain.Unchanged, got.Outcome)
	assert.Equal(t, maskURL, got.Mask)
	assert.Equal(t, 0, n.normalizeCalls)
	assert.Equal(t, []domain.ImageRef{sourceURL, maskURL}, f.calls)
	require.Len(t, e.texts, 2)
	assert.Contains(t, e.texts[1], "512 × 512")
	assert.Equal(t, []domain.Outcome{domain.Unchanged}, rec.outcomes)
}

func TestReconcile_Mismatch(t *testing.T) {
	f, n := newFixture(domain.Dimensions{Width: 512, Height: 512}, domain.Dimensions{Width: 256, Height: 256})
	e := &mockEmitter{}
	r := NewReconciler(f, n, nil, time.Second)

	got, err := r.Reconcile(t.Context(), sourceURL, maskURL, domain.OutpaintNone, e)
	require.NoError(t, err)

	assert.Equal(t, domain.Resized, got.Outcome)
	assert.Equal(t, domain.NewPNGDataURI([]byte("resized")), got.Mask)
	assert.Equal(t, domain.Dimensions{Width: 256, Height: 256}, got.Original)
	assert.Equal(t, domain.Dimensions{Width: 512, Height: 512}, got.Target)
	assert.Equal(t, domain.Dimensions{Width: 512, Height: 512}, n.target)

	require.Len(t, e.texts, 3)
	assert.Contains(t, e.texts[1], "Source: 512 × 512")
	assert.Contains(t, e.texts[1], "Mask: 256 × 256")
	assert.Contains(t, e.texts[2], "New size: 512 × 512")
}

func TestReconcile_CapabilityUnavailable(t *testing.T) {
	f, _ := newFixture(domain.Dimensions{}, domain.Dimensions{})
	e := &mockEmitter{}
	rec := &countingRecorder{}
	r := NewReconciler(f, nil, rec, time.Second)

	got, err := r.Reconcile(t.Context(), sourceURL, maskURL, domain.OutpaintNone, e)
	require.NoError(t, err)

	assert.Equal(t, domain.Skipped, got.Outcome)
	assert.Equal(t, maskURL, got.Mask)
	assert.Empty(t, f.calls)
	require.Len(t, e.texts, 1)
	assert.Contains(t, e.texts[0], "Warning")
	assert.Equal(t, []domain.Outcome{domain.Skipped}, rec.outcomes)
}

func TestReconcile_ResizeFailureDegrades(t *testing.T) {
	f, n := newFixture(domain.Dimensions{Width: 10, Height: 10}, domain.Dimensions{Width: 5, Height: 5})
	n.err = errors.New("encoder exploded")
	e := &mockEmitter{}
	r := NewReconciler(f, n, nil, time.Second)

	got, err := r.Reconcile(t.Context(), sourceURL, maskURL, domain.OutpaintNone, e)
	require.NoError(t, err)

	assert.Equal(t, domain.Skipped, got.Outcome)
	assert.Equal(t, maskURL, got.Mask)
	assert.Contains(t, got.Reason, "encoder exploded")
	assert.Contains(t, e.texts[len(e.texts)-1], "Proceeding with the original mask")
}

func TestReconcile_HardStops(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fakeFetcher, n *fakeNormalizer)
		wantWhich domain.ImageRole
		decode    bool
		wantCalls int
	}{
		{
			name: "source download fails",
			setup: func(f *fakeFetcher, _ *fakeNormalizer) {
				f.errs = map[domain.ImageRef]error{sourceURL: &domain.RetrievalError{URL: string(sourceURL), StatusCode: 404}}
			},
			wantWhich: domain.SourceImage,
			wantCalls: 1,
		},
		{
			name: "mask download fails",
			setup: func(f *fakeFetcher, _ *fakeNormalizer) {
				f.errs = map[domain.ImageRef]error{maskURL: errors.New("connection refused")}
			},
			wantWhich: domain.MaskImage,
			wantCalls: 2,
		},
		{
			name: "source decode fails",
			setup: func(_ *fakeFetcher, n *fakeNormalizer) {
				n.decodeErr = errors.New("image: unknown format")
			},
			wantWhich: domain.SourceImage,
			decode:    true,
			wantCalls: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, n := newFixture(domain.Dimensions{Width: 1, Height: 1}, domain.Dimensions{Width: 2, Height: 2})
			tc.setup(f, n)
			r := NewReconciler(f, n, nil, time.Second)

			_, err := r.Reconcile(t.Context(), sourceURL, maskURL, domain.OutpaintNone, &mockEmitter{})
			require.Error(t, err)
			assert.Len(t, f.calls, tc.wantCalls)

			if tc.decode {
				var decodeErr *domain.DecodeError
				require.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, tc.wantWhich, decodeErr.Which)
				return
			}

			var retrievalErr *domain.RetrievalError
			require.ErrorAs(t, err, &retrievalErr)
			assert.Equal(t, tc.wantWhich, retrievalErr.Which)
		})
	}
}

func TestReconcile_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		source := domain.Dimensions{
			Width:  rapid.IntRange(1, 4096).Draw(t, "sourceWidth"),
			Height: rapid.IntRange(1, 4096).Draw(t, "sourceHeight"),
		}
		mask := domain.Dimensions{
			Width:  rapid.IntRange(1, 4096).Draw(t, "maskWidth"),
			Height: rapid.IntRange(1, 4096).Draw(t, "maskHeight"),
		}

		f, n := newFixture(source, mask)
		r := NewReconciler(f, n, nil, time.Second)

		got, err := r.Reconcile(context.Background(), sourceURL, maskURL, domain.OutpaintNone, &mockEmitter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if source.Equal(mask) {
			if got.Outcome != domain.Unchanged || n.normalizeCalls != 0 {
				t.Fatalf("equal sizes must be left unchanged, got %s with %d resizes", got.Outcome, n.normalizeCalls)
			}
			return
		}

		if got.Outcome != domain.Resized || !got.Target.Equal(source) || !n.target.Equal(source) {
			t.Fatalf("mismatch must be resized to %s, got %s to %s", source, got.Outcome, got.Target)
		}
	})
}

// pngHeader returns a grayscale PNG that holds only a signature and an IHDR chunk. image.DecodeConfig accepts it,
// so it declares any canvas size at a few bytes.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 0, 17)
	ihdr = append(ihdr, "IHDR"...)
	ihdr = binary.BigEndian.AppendUint32(ihdr, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 0, 0, 0, 0)

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestReconcile_TooLargeDegrades(t *testing.T) {
	tests := []struct {
		name   string
		source domain.Dimensions
		mask   domain.Dimensions
	}{
		{name: "huge source", source: domain.Dimensions{Width: 20000, Height: 20000}, mask: domain.Dimensions{Width: 4, Height: 4}},
		{name: "huge mask", source: domain.Dimensions{Width: 4, Height: 4}, mask: domain.Dimensions{Width: 10000, Height: 9000}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, n := newFixture(tc.source, tc.mask)
			e := &mockEmitter{}
			rec := &countingRecorder{}
			r := NewReconciler(f, n, rec, time.Second)

			got, err := r.Reconcile(t.Context(), sourceURL, maskURL, domain.OutpaintNone, e)
			require.NoError(t, err)

			assert.Equal(t, domain.Skipped, got.Outcome)
			assert.Equal(t, maskURL, got.Mask)
			assert.Equal(t, "image too large", got.Reason)
			assert.Equal(t, 0, n.normalizeCalls)
			require.Len(t, e.texts, 2)
			assert.Contains(t, e.texts[1], "Proceeding with the original mask")
			assert.Equal(t, []domain.Outcome{domain.Skipped}, rec.outcomes)
		})
	}
}

func TestReconcile_TooLargeWithRealDecoder(t *testing.T) {
	source := domain.NewPNGDataURI(pngHeader(20000, 20000))

	var maskBuf bytes.Buffer
	require.NoError(t, png.Encode(&maskBuf, image.NewGray(image.Rect(0, 0, 4, 4))))
	mask := domain.NewPNGDataURI(maskBuf.Bytes())

	r := NewReconciler(file.NewFetcher(nil), converter.NewImaging(), nil, time.Second)
	e := &mockEmitter{}

	got, err := r.Reconcile(t.Context(), source, mask, domain.OutpaintNone, e)
	require.NoError(t, err)

	assert.Equal(t, domain.Skipped, got.Outcome)
	assert.Equal(t, mask, got.Mask)
	assert.Contains(t, e.texts[len(e.texts)-1], "20000 × 20000")
}

func TestReconcile_AppliesFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	r := NewReconciler(file.NewFetcher(srv.Client()), converter.NewImaging(), nil, 50*time.Millisecond)

	start := time.Now()
	_, err := r.Reconcile(t.Context(), domain.ImageRef(srv.URL+"/source.png"),
		domain.ImageRef(srv.URL+"/mask.png"), domain.OutpaintNone, &mockEmitter{})

	var retrievalErr *domain.RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Equal(t, domain.SourceImage, retrievalErr.Which)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
