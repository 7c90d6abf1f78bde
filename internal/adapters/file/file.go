package file

import (
	"context"
	"fluxfill/internal/core/domain"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// Fetcher resolves image references. Data URIs are decoded in place, everything else is downloaded over HTTP.
// Timeouts are taken from the context.
type Fetcher struct {
	client *http.Client
	limit  int64
}

// MaxDownloadBytes is the default upper bound for a single download.
const MaxDownloadBytes = 64 << 20

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client, limit: MaxDownloadBytes}
}

// WithLimit sets the largest response body the fetcher accepts.
func (f *Fetcher) WithLimit(limit int64) *Fetcher {
	f.limit = limit
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, ref domain.ImageRef) ([]byte, error) {
	if ref.IsDataURI() {
		data, _, err := ref.Payload()
		if err != nil {
			return nil, &domain.RetrievalError{URL: ref.String(), Err: err}
		}
		return data, nil
	}

	return f.DownloadFile(ctx, string(ref))
}

// DownloadFile returns the byte content of a file on a provided URL.
func (f *Fetcher) DownloadFile(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		err = fmt.Errorf("error creating request %w", err)
		logFailure(err, path)
		return nil, &domain.RetrievalError{URL: path, Err: err}
	}

	res, err := f.client.Do(req)
	if err != nil {
		err = fmt.Errorf("error executing request %w", err)
		logFailure(err, path)
		return nil, &domain.RetrievalError{URL: path, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code on download: %d", res.StatusCode)
		logFailure(err, path)
		return nil, &domain.RetrievalError{URL: path, StatusCode: res.StatusCode, Err: err}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, f.limit+1))
	if err != nil {
		err = fmt.Errorf("error reading response %w", err)
		logFailure(err, path)
		return nil, &domain.RetrievalError{URL: path, Err: err}
	}

	if int64(len(buf)) > f.limit {
		err = fmt.Errorf("%w: response exceeds %d bytes", domain.ErrImageTooLarge, f.limit)
		logFailure(err, path)
		return nil, &domain.RetrievalError{URL: path, Err: err}
	}

	log.Debug().Str("path", redact(path)).Int("bytes", len(buf)).Msg("downloaded file")

	return buf, nil
}

var botToken = regexp.MustCompile(`/bot[^/]+/`)

// redact hides bot tokens in Telegram file links before they are logged.
func redact(path string) string {
	return botToken.ReplaceAllString(path, "/bot<redacted>/")
}

// logFailure logs a download error. net/http errors quote the request URL, so the message is redacted as well.
func logFailure(err error, path string) {
	log.Error().Str("error", redact(err.Error())).Str("path", redact(path)).Send()
}

// SaveTempFile saves bytes to a temp location and returns the path.
func SaveTempFile(data []byte, extension string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	log.Debug().Int("bytes", len(data)).Str("extension", extension).Msg("creating temp file")

	path := filepath.Join(os.TempDir(), fmt.Sprintf("%s%s", id.String(), extension))

	f, err := os.Create(path)
	if err != nil {
		err = fmt.Errorf("error creating temp file %w", err)
		log.Error().Err(err).Send()
		return "", err
	}

	defer f.Close()

	if _, err := f.Write(data); err != nil {
		err = fmt.Errorf("error writing temp file %w", err)
		log.Error().Err(err).Send()
		return "", err
	}

	log.Debug().Str("path", f.Name()).Msg("created file")

	return f.Name(), nil
}

// TempPath returns an unused path in the temp directory without creating the file.
func TempPath(extension string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return filepath.Join(os.TempDir(), id.String()+extension), nil
}

// GetTempFile retrieves a temporarily stored file by its path, as returned from SaveTempFile().
func GetTempFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("error reading temp file %w", err)
		log.Error().Err(err).Send()
		return nil, err
	}

	return buf, nil
}

// RemoveTempFile removes a specified temporary file at the given path and logs success or failure.
func RemoveTempFile(path string) {
	err := os.Remove(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("could not clean up temp file")
		return
	}
	log.Debug().Str("path", path).Msg("cleaned up temp file")
}
