package service

import (
	"context"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"

	"github.com/stretchr/testify/mock"
)

type mockEmitter struct {
	texts   []string
	blobs   [][]byte
	mimes   []string
	textErr error
	blobErr error
}

func (m *mockEmitter) EmitText(_ context.Context, text string) error {
	m.texts = append(m.texts, text)
	return m.textErr
}

func (m *mockEmitter) EmitBlob(_ context.Context, blob []byte, mimeType string) error {
	m.blobs = append(m.blobs, blob)
	m.mimes = append(m.mimes, mimeType)
	return m.blobErr
}

type fakeFetcher struct {
	data  map[domain.ImageRef][]byte
	errs  map[domain.ImageRef]error
	calls []domain.ImageRef
}

func (f *fakeFetcher) Fetch(_ context.Context, ref domain.ImageRef) ([]byte, error) {
	f.calls = append(f.calls, ref)
	if err, ok := f.errs[ref]; ok {
		return nil, err
	}
	return f.data[ref], nil
}

// fakeNormalizer treats the image bytes as a key into a table of sizes.
type fakeNormalizer struct {
	sizes          map[string]domain.Dimensions
	decodeErr      error
	out            []byte
	err            error
	normalizeCalls int
	target         domain.Dimensions
}

func (f *fakeNormalizer) Dimensions(data []byte) (domain.Dimensions, error) {
	if f.decodeErr != nil {
		return domain.Dimensions{}, f.decodeErr
	}
	return f.sizes[string(data)], nil
}

func (f *fakeNormalizer) Normalize(_ context.Context, _ []byte, target domain.Dimensions) ([]byte, error) {
	f.normalizeCalls++
	f.target = target
	return f.out, f.err
}

type mockInpainter struct {
	mock.Mock
}

func (m *mockInpainter) Inpaint(ctx context.Context, params domain.Params) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *mockInpainter) ValidateToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func factoryFor(inpainter port.Inpainter, tokens *[]string) port.InpainterFactory {
	return func(apiToken string) port.Inpainter {
		if tokens != nil {
			*tokens = append(*tokens, apiToken)
		}
		return inpainter
	}
}

type countingRecorder struct {
	outcomes    []domain.Outcome
	categories  []domain.ProviderCategory
	invocations []string
}

func (c *countingRecorder) ObserveReconciliation(outcome domain.Outcome) {
	c.outcomes = append(c.outcomes, outcome)
}

func (c *countingRecorder) ObserveProviderError(category domain.ProviderCategory) {
	c.categories = append(c.categories, category)
}

func (c *countingRecorder) ObserveInvocation(status string) {
	c.invocations = append(c.invocations, status)
}
