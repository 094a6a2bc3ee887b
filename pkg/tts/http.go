package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-formcoach/internal/httpc"
)

// restBackend is the HTTP plumbing shared by the JSON-over-HTTP providers.
type restBackend struct {
	provider string
	client   *http.Client
	cfg      *Config
	logger   *slog.Logger

	// errorMessage extracts the human message from an error body.
	errorMessage func(body []byte) (message, code string)
}

func newRestBackend(provider string, cfg *Config, errorMessage func([]byte) (string, string)) restBackend {
	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}
	return restBackend{
		provider:     provider,
		client:       client,
		cfg:          cfg,
		logger:       cfg.Logger.With("component", "tts."+provider),
		errorMessage: errorMessage,
	}
}

// postAudio posts payload as JSON and returns the raw response body.
// Rate limits and server errors are retried with linear backoff.
func (b *restBackend) postAudio(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(b.provider, fmt.Errorf("marshal payload: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		audio, err := b.once(ctx, url, headers, body)
		if err == nil {
			return audio, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
		b.logger.Warn("retrying request", "attempt", attempt+1, "status", apiErr.StatusCode)
	}
	return nil, lastErr
}

func (b *restBackend) once(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(b.provider, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, WrapError(b.provider, err)
	}
	defer resp.Body.Close()

	if err := b.check(resp); err != nil {
		return nil, err
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(b.provider, fmt.Errorf("read response: %w", err))
	}
	return audio, nil
}

// get performs a health-check style GET and discards the body.
func (b *restBackend) get(ctx context.Context, url string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return WrapError(b.provider, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return WrapError(b.provider, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()
	return b.check(resp)
}

// check converts a non-2xx response into an *APIError.
func (b *restBackend) check(resp *http.Response) error {
	err := httpc.CheckStatus(resp)
	var se *httpc.StatusError
	if !errors.As(err, &se) {
		return err
	}

	message, code := se.Body, ""
	if b.errorMessage != nil {
		if m, c := b.errorMessage([]byte(se.Body)); m != "" {
			message, code = m, c
		}
	}
	return &APIError{
		StatusCode: se.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   b.provider,
	}
}

func (b *restBackend) close() {
	b.client.CloseIdleConnections()
}
