package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://api.replicate.com/v1"
	DefaultModel   = "black-forest-labs/flux-fill-pro"
)

// Replicate provides a wrapper for the Replicate predictions API, bound to a single API token.
type Replicate struct {
	apiToken     string
	baseURL      string
	model        string
	pollInterval time.Duration
	client       *http.Client
}

func NewReplicate(baseURL, model, apiToken string, pollInterval time.Duration, client *http.Client) *Replicate {
	if client == nil {
		client = &http.Client{}
	}
	return &Replicate{
		apiToken:     apiToken,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		model:        model,
		pollInterval: pollInterval,
		client:       client,
	}
}

// NewFactory returns a port.InpainterFactory creating a fresh client for every token.
func NewFactory(baseURL, model string, pollInterval time.Duration, client *http.Client) port.InpainterFactory {
	return func(apiToken string) port.Inpainter {
		return NewReplicate(baseURL, model, apiToken, pollInterval, client)
	}
}

type predictionRequest struct {
	Input inpaintInput `json:"input"`
}

type inpaintInput struct {
	Image            string  `json:"image"`
	Prompt           string  `json:"prompt"`
	Mask             string  `json:"mask,omitempty"`
	Steps            int     `json:"steps"`
	Guidance         float64 `json:"guidance"`
	Outpaint         string  `json:"outpaint"`
	OutputFormat     string  `json:"output_format"`
	SafetyTolerance  int     `json:"safety_tolerance"`
	PromptUpsampling bool    `json:"prompt_upsampling"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (r *Replicate) Inpaint(ctx context.Context, params domain.Params) (string, error) {
	replicateRequest := predictionRequest{Input: inpaintInput{
		Image:            string(params.Image),
		Prompt:           params.Prompt,
		Mask:             string(params.Mask),
		Steps:            params.Steps,
		Guidance:         params.Guidance,
		Outpaint:         string(params.Outpaint),
		OutputFormat:     string(params.OutputFormat),
		SafetyTolerance:  params.SafetyTolerance,
		PromptUpsampling: params.PromptUpsampling,
	}}

	payloadBuf := new(bytes.Buffer)
	err := json.NewEncoder(payloadBuf).Encode(replicateRequest)
	if err != nil {
		return "", fmt.Errorf("error encoding replicate request: %w", err)
	}

	body, err := r.do(ctx, http.MethodPost, fmt.Sprintf("%s/models/%s/predictions", r.baseURL, r.model), payloadBuf)
	if err != nil {
		return "", err
	}

	for {
		var p prediction
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("error unmarshalling replicate prediction: %w", err)
		}

		log.Debug().Str("prediction", p.ID).Str("status", p.Status).Msg("replicate prediction")

		switch p.Status {
		case "succeeded":
			return resolveLocator(p.Output)
		case "failed", "canceled":
			return "", &domain.ProviderError{Category: domain.CategoryGeneric, Message: predictionError(p)}
		}

		if p.URLs.Get == "" {
			return "", fmt.Errorf("prediction %s is %s without a status url", p.ID, p.Status)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("prediction %s did not finish: %w", p.ID, ctx.Err())
		case <-time.After(r.pollInterval):
		}

		body, err = r.do(ctx, http.MethodGet, p.URLs.Get, nil)
		if err != nil {
			return "", err
		}
	}
}

// ValidateToken fetches the model description, which requires a valid token.
func (r *Replicate) ValidateToken(ctx context.Context) error {
	_, err := r.do(ctx, http.MethodGet, fmt.Sprintf("%s/models/%s", r.baseURL, r.model), nil)
	if err == nil {
		return nil
	}

	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) && providerErr.Category == domain.CategoryAuthentication {
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredential, providerErr.Message)
	}

	return err
}

func (r *Replicate) do(ctx context.Context, method, url string, payload io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		log.Error().Err(err).Msg("error creating request for replicate")
		return nil, err
	}

	req.Header.Add("Authorization", "Bearer "+r.apiToken)
	if payload != nil {
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("Prefer", "wait")
	}

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing replicate request: %w", err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading replicate response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, statusError(res.StatusCode, body)
	}

	return body, nil
}

// statusError turns a non-2xx answer into a ProviderError whose message carries keywords the tool can classify.
func statusError(status int, body []byte) error {
	var e apiError
	detail := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &e); err == nil {
		switch {
		case e.Detail != "":
			detail = e.Detail
		case e.Title != "":
			detail = e.Title
		}
	}

	providerErr := &domain.ProviderError{
		Category: domain.CategoryGeneric,
		Message:  fmt.Sprintf("status %d: %s", status, detail),
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		providerErr.Category = domain.CategoryAuthentication
		providerErr.Message = "unauthorized: " + detail
	case http.StatusTooManyRequests:
		providerErr.Category = domain.CategoryRateLimit
		providerErr.Message = "rate limit exceeded: " + detail
	}

	log.Debug().Int("status", status).Str("detail", detail).Msg("replicate error response")

	return providerErr
}

func predictionError(p prediction) string {
	switch e := p.Error.(type) {
	case nil:
		return fmt.Sprintf("prediction %s %s", p.ID, p.Status)
	case string:
		return e
	default:
		b, _ := json.Marshal(e)
		return string(b)
	}
}

// resolveLocator normalizes the model output into a single URL. Outputs are either a plain string, an object with a
// url field, or a list of those, of which the first entry is used.
func resolveLocator(raw json.RawMessage) (string, error) {
	var output any
	if len(raw) == 0 {
		return "", nil
	}
	if err := json.Unmarshal(raw, &output); err != nil {
		return "", fmt.Errorf("error unmarshalling replicate output: %w", err)
	}
	return locatorOf(output), nil
}

func locatorOf(output any) string {
	switch o := output.(type) {
	case nil:
		return ""
	case string:
		return o
	case map[string]any:
		if url, ok := o["url"].(string); ok {
			return url
		}
		return ""
	case []any:
		if len(o) == 0 {
			return ""
		}
		return locatorOf(o[0])
	default:
		return fmt.Sprint(o)
	}
}
