package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSendingReplyFailed    = errors.New("failed to send reply")
	ErrMissingCredential     = errors.New("missing api token")
	ErrInvalidCredential     = errors.New("invalid api token")
	ErrMissingImage          = errors.New("missing image")
	ErrEmptyPrompt           = errors.New("empty prompt")
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrCapabilityUnavailable = errors.New("mask resizing unavailable")
	ErrNoOutput              = errors.New("no output received")
	ErrNotDataURI            = errors.New("not a data uri")
	ErrImageTooLarge         = errors.New("image too large")
)

// ImageRole names which of the two reconciled images an error refers to.
type ImageRole string

const (
	SourceImage ImageRole = "source"
	MaskImage   ImageRole = "mask"
	ResultImage ImageRole = "result"
)

// RetrievalError is returned when an image reference could not be fetched.
// StatusCode is zero when the request never got a response.
type RetrievalError struct {
	Which      ImageRole
	URL        string
	StatusCode int
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download %s image %q: status code %d", e.Which, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to download %s image %q: %v", e.Which, e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when fetched bytes are not a decodable image.
type DecodeError struct {
	Which ImageRole
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s image: %v", e.Which, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type ProviderCategory string

const (
	CategoryMask           ProviderCategory = "mask"
	CategoryEncoding       ProviderCategory = "encoding"
	CategoryImage          ProviderCategory = "image"
	CategoryAuthentication ProviderCategory = "authentication"
	CategoryRateLimit      ProviderCategory = "rate_limit"
	CategoryGeneric        ProviderCategory = "generic"
)

// ProviderError wraps a failure reported by the remote model. Message keeps the
// provider's original text, Hint holds remediation advice for the user.
type ProviderError struct {
	Category ProviderCategory
	Message  string
	Hint     string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
