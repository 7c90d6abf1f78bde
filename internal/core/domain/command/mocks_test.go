package command

import (
	"context"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fluxfill/internal/core/service"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockEmitter struct {
	mu    sync.Mutex
	texts []string
	blobs int
}

func (m *MockEmitter) EmitText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *MockEmitter) EmitBlob(_ context.Context, _ []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs++
	return nil
}

type MockReplier struct {
	emitter *MockEmitter
	replies []*domain.Message
}

func (m *MockReplier) Reply(message *domain.Message) port.Emitter {
	m.replies = append(m.replies, message)
	return m.emitter
}

func (m *MockReplier) SendChatAction(ctx context.Context, _ int64) {
	<-ctx.Done()
}

type MockTool struct {
	mock.Mock
}

func (m *MockTool) Invoke(ctx context.Context, apiToken string, params domain.Params, emitter port.Emitter) error {
	args := m.Called(ctx, apiToken, params, emitter)
	return args.Error(0)
}

func (m *MockTool) ValidateCredentials(ctx context.Context, apiToken string) error {
	args := m.Called(ctx, apiToken)
	return args.Error(0)
}

type MockAuth struct {
	allowed bool
	err     error
}

func (m *MockAuth) Authorize(chatID int64) error {
	if m.allowed {
		return nil
	}
	if m.err != nil {
		return m.err
	}
	return &service.AccessError{ChatID: chatID, Admin: "admin"}
}
