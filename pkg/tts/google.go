package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

const providerGoogle = "google"

// Google implements Provider with Cloud Text-to-Speech. It authenticates
// with an API key when one is configured and with Application Default
// Credentials otherwise.
type Google struct {
	svc    *texttospeech.Service
	cfg    *Config
	logger *slog.Logger
}

// NewGoogle creates a Cloud Text-to-Speech provider.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.VoiceID = GoogleVoiceCoach
	cfg.Apply(opts...)

	var clientOpts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	default:
		ts, err := google.DefaultTokenSource(ctx, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, WrapError(providerGoogle, fmt.Errorf("no API key and no default credentials: %w", err))
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		svc:    svc,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Name implements Named.
func (g *Google) Name() string { return providerGoogle }

// Synthesize converts text to MP3 audio.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.cfg.LanguageCode,
			Name:         g.cfg.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  g.cfg.SpeakingRate,
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, googleError(err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", g.cfg.VoiceID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 24000, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health lists the voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	_, err := g.svc.Voices.List().LanguageCode(g.cfg.LanguageCode).Context(ctx).Do()
	if err != nil {
		return googleError(err)
	}
	return nil
}

// Close is a no-op; the service holds no connections of its own.
func (g *Google) Close() error {
	return nil
}

func googleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Provider:   providerGoogle,
		}
	}
	return WrapError(providerGoogle, err)
}

// Verify Google implements Provider at compile time.
var _ Provider = (*Google)(nil)
