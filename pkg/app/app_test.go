package app

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-formcoach/internal/config"
	"github.com/teslashibe/go-formcoach/internal/log"
	"github.com/teslashibe/go-formcoach/pkg/pose/detection"
	"github.com/teslashibe/go-formcoach/pkg/tts"
)

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		Port:            "5000",
		DBPath:          filepath.Join(dir, "coach.db"),
		JWTSecretFile:   filepath.Join(dir, "jwt_secret.key"),
		JWTTTL:          time.Hour,
		SessionTTL:      time.Minute,
		PoseDetectorURL: "http://127.0.0.1:1",
		TTSProviders:    []string{"mock"},
		AraimandiTarget: 10 * time.Second,
		CORSOrigins:     "*",
		AnnotateFrames:  true,
	}
}

func TestNew_ValidatesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = "http"
	_, err := New(cfg)
	var ce *config.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Port", ce.Field)
}

func TestInit_ServesRoutes(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg,
		WithDetector(detection.NewStatic()),
		WithSpeech(tts.NewMock()),
		WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(a.Shutdown)

	app := a.Server().App()

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req := httptest.NewRequest("POST", "/register",
		strings.NewReader(`{"email":"asha@example.com","password":"secret1","re_password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "formcoach_server_request")
	assert.Contains(t, string(body), "go_goroutines")

	// The signing secret was persisted for the next start.
	assert.FileExists(t, cfg.JWTSecretFile)
}
