package sender

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// File prints diagnostics to a writer and stores the generated image at a fixed path.
type File struct {
	out  io.Writer
	path string
}

func NewFile(out io.Writer, path string) *File {
	return &File{out: out, path: path}
}

func (f *File) EmitText(_ context.Context, text string) error {
	_, err := fmt.Fprintln(f.out, text)
	return err
}

func (f *File) EmitBlob(_ context.Context, blob []byte, mimeType string) error {
	if err := os.WriteFile(f.path, blob, 0o644); err != nil {
		return fmt.Errorf("error writing result file: %w", err)
	}

	log.Info().Str("path", f.path).Str("mimeType", mimeType).Int("bytes", len(blob)).Msg("saved generated image")

	_, err := fmt.Fprintf(f.out, "Saved %s image to %s\n", mimeType, f.path)
	return err
}
