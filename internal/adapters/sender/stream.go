package sender

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"sync"
)

// Stream writes tool output as JSON lines, one message per line, for a plugin host reading stdout.
type Stream struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewStream(w io.Writer) *Stream {
	return &Stream{enc: json.NewEncoder(w)}
}

type streamMessage struct {
	Type    string            `json:"type"`
	Message map[string]string `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func (s *Stream) EmitText(_ context.Context, text string) error {
	return s.write(streamMessage{Type: "text", Message: map[string]string{"text": text}})
}

func (s *Stream) EmitBlob(_ context.Context, blob []byte, mimeType string) error {
	return s.write(streamMessage{
		Type:    "blob",
		Message: map[string]string{"blob": base64.StdEncoding.EncodeToString(blob)},
		Meta:    map[string]string{"mime_type": mimeType},
	})
}

func (s *Stream) write(m streamMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(m)
}
