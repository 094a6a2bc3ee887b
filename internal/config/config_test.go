package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "JWT_TTL", "SESSION_TTL", "TTS_PROVIDER", "ARAIMANDI_TARGET", "ANNOTATE_FRAMES"} {
		t.Setenv(k, "")
	}

	c := FromEnv()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultDBPath, c.DBPath)
	assert.Equal(t, 24*time.Hour, c.JWTTTL)
	assert.Equal(t, 10*time.Minute, c.SessionTTL)
	assert.Equal(t, []string{"google"}, c.TTSProviders)
	assert.Equal(t, 10*time.Second, c.AraimandiTarget)
	assert.False(t, c.AnnotateFrames)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("ARAIMANDI_TARGET", "30")
	t.Setenv("TTS_PROVIDER", "Google, openai")
	t.Setenv("ANNOTATE_FRAMES", "true")

	c := FromEnv()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 90*time.Second, c.SessionTTL)
	assert.Equal(t, 30*time.Second, c.AraimandiTarget)
	assert.Equal(t, []string{"google", "openai"}, c.TTSProviders)
	assert.True(t, c.AnnotateFrames)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:            "5000",
			DBPath:          "x.db",
			JWTSecretFile:   "jwt.key",
			JWTTTL:          time.Hour,
			AraimandiTarget: 10 * time.Second,
			PoseDetectorURL: "http://localhost:9000",
			TTSProviders:    []string{"google", "mock"},
		}
	}

	c := valid()
	require.NoError(t, c.Validate())

	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "Port"},
		{"no secret", func(c *Config) { c.JWTSecretFile = "" }, "JWTSecret"},
		{"no detector", func(c *Config) { c.PoseDetectorURL = "" }, "PoseDetectorURL"},
		{"openai without key", func(c *Config) { c.TTSProviders = []string{"openai"} }, "OpenAIKey"},
		{"unknown provider", func(c *Config) { c.TTSProviders = []string{"festival"} }, "TTSProviders"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.edit(&c)
			err := c.Validate()
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}
