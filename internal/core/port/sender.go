package port

import (
	"context"
	"fluxfill/internal/core/domain"
)

// Emitter is the output channel of a single tool invocation.
type Emitter interface {
	// EmitText sends a human-readable diagnostic.
	EmitText(ctx context.Context, text string) error
	// EmitBlob sends the binary result together with its MIME type.
	EmitBlob(ctx context.Context, blob []byte, mimeType string) error
}

// Replier delivers output as replies to a chat message.
type Replier interface {
	// Reply returns an Emitter bound to the given message.
	Reply(message *domain.Message) Emitter
	// SendChatAction shows an activity indicator in the chat until the context is done.
	SendChatAction(ctx context.Context, chatID int64)
}
