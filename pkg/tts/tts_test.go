package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-formcoach/pkg/tts"
)

func TestMock(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	result, err := mock.Synthesize(ctx, "Great! 3")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3Great! 3"), result.Audio)
	assert.Equal(t, 8, result.CharCount)
	assert.Equal(t, "audio/mpeg", result.Format.MIME())

	_, err = mock.Synthesize(ctx, "")
	assert.ErrorIs(t, err, tts.ErrEmptyText)

	require.NoError(t, mock.Health(ctx))
	assert.Equal(t, 2, mock.CallCount("Synthesize"))
	assert.Len(t, mock.Calls(), 3)
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)

	_, err := mock.Synthesize(context.Background(), "Hello")
	assert.ErrorIs(t, err, testErr)
	assert.ErrorIs(t, mock.Health(context.Background()), testErr)
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to next provider", func(t *testing.T) {
		failing := tts.WithError(errors.New("quota exceeded"))
		working := tts.NewMock()

		chain, err := tts.NewChain(nil, failing, working)
		require.NoError(t, err)

		var failed []string
		chain.OnFailure = func(provider string, err error) { failed = append(failed, provider) }

		result, err := chain.Synthesize(ctx, "Timer started")
		require.NoError(t, err)
		assert.Equal(t, []byte("ID3Timer started"), result.Audio)
		assert.Equal(t, []string{"mock"}, failed)
		assert.Equal(t, 1, working.CallCount("Synthesize"))
	})

	t.Run("aggregates errors when all fail", func(t *testing.T) {
		first, second := errors.New("first"), errors.New("second")
		chain, err := tts.NewChain(nil, tts.WithError(first), tts.WithError(second))
		require.NoError(t, err)

		_, err = chain.Synthesize(ctx, "Hello")
		var chainErr *tts.ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Len(t, chainErr.Errors, 2)
		assert.ErrorIs(t, err, first)
		assert.ErrorIs(t, err, second)
	})

	t.Run("healthy if any provider is", func(t *testing.T) {
		chain, err := tts.NewChain(nil, tts.WithError(errors.New("down")), tts.NewMock())
		require.NoError(t, err)
		assert.NoError(t, chain.Health(ctx))

		chain, err = tts.NewChain(nil, tts.WithError(errors.New("down")))
		require.NoError(t, err)
		assert.Error(t, chain.Health(ctx))
	})

	t.Run("requires a provider", func(t *testing.T) {
		_, err := tts.NewChain(nil)
		assert.ErrorIs(t, err, tts.ErrProviderUnavailable)
	})
}

func TestCached(t *testing.T) {
	mock := tts.NewMock()
	cached := tts.NewCached(mock, time.Minute)
	ctx := context.Background()

	a, err := cached.Synthesize(ctx, "Great! 1")
	require.NoError(t, err)
	b, err := cached.Synthesize(ctx, " Great! 1 ")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, mock.CallCount("Synthesize"))
	assert.Equal(t, 1, cached.Len())
	assert.Equal(t, "mock", cached.Name())

	failing := tts.NewCached(tts.WithError(errors.New("down")), time.Minute)
	_, err = failing.Synthesize(ctx, "Great! 1")
	assert.Error(t, err)
	assert.Zero(t, failing.Len())
}

func TestOpenAI(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Keep torso upright", body["input"])
		assert.Equal(t, tts.VoiceNova, body["voice"])

		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p, err := tts.NewOpenAI(
		tts.WithAPIKey("sk-test"),
		tts.WithBaseURL(srv.URL),
		tts.WithRetry(2, time.Millisecond),
	)
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "Keep torso upright")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), result.Audio)
	assert.EqualValues(t, 2, attempts.Load())
	assert.Equal(t, "openai", tts.NameOf(p))
}

func TestOpenAI_Errors(t *testing.T) {
	_, err := tts.NewOpenAI()
	assert.ErrorIs(t, err, tts.ErrNoAPIKey)

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	p, err := tts.NewOpenAI(tts.WithAPIKey("bad"), tts.WithBaseURL(srv.URL), tts.WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "Hello")
	var apiErr *tts.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Incorrect API key", apiErr.Message)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
	assert.False(t, apiErr.IsRetryable())
	assert.EqualValues(t, 1, attempts.Load(), "client errors are not retried")

	_, err = p.Synthesize(context.Background(), "  ")
	assert.ErrorIs(t, err, tts.ErrEmptyText)
}

func TestElevenLabs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/text-to-speech/21m00Tcm4TlvDq8ikWAM":
			assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
			assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
			w.Write(make([]byte, 16000))
		case "/user":
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p, err := tts.NewElevenLabs(tts.WithAPIKey("xi-key"), tts.WithVoice("rachel"), tts.WithBaseURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "21m00Tcm4TlvDq8ikWAM", p.VoiceID())

	result, err := p.Synthesize(context.Background(), "Perfect araimandi! Hold this position")
	require.NoError(t, err)
	assert.Len(t, result.Audio, 16000)
	assert.Equal(t, time.Second, result.Duration)

	assert.NoError(t, p.Health(context.Background()))
}

func TestGoogle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/text:synthesize":
			var req struct {
				Input struct {
					Text string `json:"text"`
				} `json:"input"`
				Voice struct {
					LanguageCode string `json:"languageCode"`
					Name         string `json:"name"`
				} `json:"voice"`
				AudioConfig struct {
					AudioEncoding string `json:"audioEncoding"`
				} `json:"audioConfig"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Timer started", req.Input.Text)
			assert.Equal(t, "en-US", req.Voice.LanguageCode)
			assert.Equal(t, tts.GoogleVoiceCoach, req.Voice.Name)
			assert.Equal(t, "MP3", req.AudioConfig.AudioEncoding)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"audioContent": base64.StdEncoding.EncodeToString([]byte("google-mp3")),
			})
		case "/v1/voices":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"voices":[]}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"API disabled"}}`))
		}
	}))
	defer srv.Close()

	p, err := tts.NewGoogle(context.Background(),
		tts.WithHTTPClient(srv.Client()),
		tts.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	result, err := p.Synthesize(context.Background(), "Timer started")
	require.NoError(t, err)
	assert.Equal(t, []byte("google-mp3"), result.Audio)
	assert.NoError(t, p.Health(context.Background()))
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	p, err := tts.Build(ctx, []string{"mock"}, tts.Credentials{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &tts.Mock{}, p)

	p, err = tts.Build(ctx, []string{"openai", "mock"}, tts.Credentials{OpenAIKey: "sk"}, nil)
	require.NoError(t, err)
	chain, ok := p.(*tts.Chain)
	require.True(t, ok)
	assert.Len(t, chain.Providers(), 2)

	// Missing keys and unknown names are skipped.
	p, err = tts.Build(ctx, []string{"openai", "espeak", "mock"}, tts.Credentials{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &tts.Mock{}, p)

	_, err = tts.Build(ctx, []string{"elevenlabs"}, tts.Credentials{}, nil)
	assert.ErrorIs(t, err, tts.ErrProviderUnavailable)
}
