// Package tts turns coaching cues into speech.
//
// Every backend implements Provider. Google Cloud Text-to-Speech is the
// default voice of the coach; OpenAI and ElevenLabs are available as
// alternatives or fallbacks through Chain, and Cached keeps recently spoken
// cues so a repeated "Great! 3" is not synthesized twice.
//
// Example usage:
//
//	provider, _ := tts.NewGoogle(ctx,
//	    tts.WithAPIKey(os.Getenv("GOOGLE_API_KEY")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Perfect depth! 1")
//	// result.Audio contains MP3 bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Named is implemented by providers that report a name for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns p's name, or "unknown".
func NameOf(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated playback duration, when known.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// MIME returns the content type browsers expect for the encoding.
func (f AudioFormat) MIME() string {
	switch f.Encoding {
	case EncodingOpus:
		return "audio/ogg"
	case EncodingPCM24:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingMP3   Encoding = "mp3"
	EncodingOpus  Encoding = "ogg_opus"
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16
)
