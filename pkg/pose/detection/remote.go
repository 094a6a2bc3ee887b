package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/teslashibe/go-formcoach/internal/httpc"
	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Remote calls an HTTP pose estimation sidecar. The sidecar accepts a JPEG
// body and answers {"landmarks": [{"x":..,"y":..,"visibility":..}, ...]} or
// {"landmarks": null} when no body is found.
type Remote struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

type remoteResponse struct {
	Landmarks pose.Landmarks `json:"landmarks"`
}

// NewRemote creates a sidecar client. A nil client uses the shared httpc.Client.
func NewRemote(url string, client *http.Client, logger *slog.Logger) *Remote {
	if client == nil {
		client = httpc.Client
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		url:    url,
		client: client,
		logger: logger.With("component", "detection.remote"),
	}
}

// Detect implements Detector.
func (r *Remote) Detect(ctx context.Context, jpeg []byte) (pose.Landmarks, error) {
	if len(jpeg) == 0 {
		return nil, ErrEmptyImage
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(jpeg))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pose sidecar: %w", err)
	}
	defer resp.Body.Close()

	if err := httpc.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("pose sidecar: %w", err)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode landmarks: %w", err)
	}
	if len(out.Landmarks) == 0 {
		return nil, nil
	}
	return out.Landmarks, nil
}

// Close implements Detector.
func (r *Remote) Close() error {
	return nil
}
