package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Credentials holds the secrets for every provider Build may construct.
type Credentials struct {
	GoogleAPIKey    string // Empty uses Application Default Credentials
	OpenAIKey       string
	ElevenLabsKey   string
	ElevenLabsVoice string
}

// Build constructs the providers named in names (google, openai, elevenlabs,
// mock), in order. More than one name yields a Chain. Providers whose
// credentials are missing are skipped with a warning; Build fails only when
// none remain.
func Build(ctx context.Context, names []string, creds Credentials, logger *slog.Logger, opts ...Option) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]Option{WithLogger(logger)}, opts...)

	var providers []Provider
	for _, name := range names {
		p, err := buildOne(ctx, strings.ToLower(strings.TrimSpace(name)), creds, opts)
		if err != nil {
			logger.Warn("tts provider unavailable", "provider", name, "error", err)
			continue
		}
		providers = append(providers, p)
	}

	switch len(providers) {
	case 0:
		return nil, ErrProviderUnavailable
	case 1:
		return providers[0], nil
	default:
		return NewChain(logger, providers...)
	}
}

func buildOne(ctx context.Context, name string, creds Credentials, opts []Option) (Provider, error) {
	switch name {
	case providerGoogle:
		return NewGoogle(ctx, append(opts, WithAPIKey(creds.GoogleAPIKey))...)
	case providerOpenAI:
		return NewOpenAI(append(opts, WithAPIKey(creds.OpenAIKey))...)
	case providerElevenLabs:
		o := append(opts, WithAPIKey(creds.ElevenLabsKey))
		if creds.ElevenLabsVoice != "" {
			o = append(o, WithVoice(creds.ElevenLabsVoice))
		}
		return NewElevenLabs(o...)
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
