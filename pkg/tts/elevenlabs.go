package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelTurboV2_5 is the fastest English model (~200ms latency).
	ModelTurboV2_5 = "eleven_turbo_v2_5"

	// ModelMultilingualV2 is the highest quality multilingual model.
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// ElevenLabs implements Provider for ElevenLabs TTS.
type ElevenLabs struct {
	restBackend
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs TTS provider. The voice may be a
// preset name from ElevenLabsVoices or a raw voice ID.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTurboV2_5
	cfg.VoiceID = DefaultElevenLabsVoice
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}
	cfg.VoiceID = ResolveElevenLabsVoice(cfg.VoiceID)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		restBackend: newRestBackend(providerElevenLabs, cfg, elevenLabsErrorMessage),
		baseURL:     baseURL,
	}, nil
}

// Name implements Named.
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// Synthesize converts text to MP3 audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_44100_128", e.baseURL, e.cfg.VoiceID)
	payload := map[string]any{
		"text":     text,
		"model_id": e.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":         0.5,
			"similarity_boost":  0.75,
			"use_speaker_boost": true,
			"speed":             e.cfg.SpeakingRate,
		},
	}
	headers := map[string]string{
		"xi-api-key": e.cfg.APIKey,
		"Accept":     "audio/mpeg",
	}

	audio, err := e.postAudio(ctx, url, headers, payload)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"model", e.cfg.ModelID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 44100, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
		Duration:  mp3Duration(len(audio), 128),
	}, nil
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	return e.get(ctx, e.baseURL+"/user", map[string]string{"xi-api-key": e.cfg.APIKey})
}

// Close releases resources held by the provider.
func (e *ElevenLabs) Close() error {
	e.close()
	return nil
}

// VoiceID returns the resolved voice ID.
func (e *ElevenLabs) VoiceID() string {
	return e.cfg.VoiceID
}

func elevenLabsErrorMessage(body []byte) (string, string) {
	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}
	if json.Unmarshal(body, &errResp) != nil {
		return "", ""
	}
	return errResp.Detail.Message, errResp.Detail.Status
}

// mp3Duration estimates playback time of a constant-bitrate MP3.
func mp3Duration(n, kbps int) time.Duration {
	return time.Duration(float64(n*8) / float64(kbps*1000) * float64(time.Second))
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
