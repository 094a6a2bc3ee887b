package tts

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"
)

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI model options
const (
	ModelTTS1   = "tts-1"    // Standard quality, faster
	ModelTTS1HD = "tts-1-hd" // Higher quality, slower
)

// OpenAI implements Provider for OpenAI TTS.
type OpenAI struct {
	restBackend
	baseURL string
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceNova
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		restBackend: newRestBackend(providerOpenAI, cfg, openAIErrorMessage),
		baseURL:     baseURL,
	}, nil
}

// Name implements Named.
func (o *OpenAI) Name() string { return providerOpenAI }

// Synthesize converts text to MP3 audio.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	payload := map[string]any{
		"model":           o.cfg.ModelID,
		"voice":           o.cfg.VoiceID,
		"input":           text,
		"response_format": "mp3",
		"speed":           o.cfg.SpeakingRate,
	}
	audio, err := o.postAudio(ctx, o.baseURL+"/audio/speech", o.auth(), payload)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", o.cfg.VoiceID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 24000, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity using the models endpoint.
func (o *OpenAI) Health(ctx context.Context) error {
	return o.get(ctx, o.baseURL+"/models", o.auth())
}

// Close releases resources.
func (o *OpenAI) Close() error {
	o.close()
	return nil
}

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string {
	return o.cfg.VoiceID
}

func (o *OpenAI) auth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + o.cfg.APIKey}
}

func openAIErrorMessage(body []byte) (string, string) {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) != nil {
		return "", ""
	}
	return errResp.Error.Message, errResp.Error.Code
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
