// Package config loads go-formcoach settings from the environment.
//
// Values come from process environment, optionally seeded from a .env file.
// Commands apply flag overrides after Load; the struct is data only.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultPort            = "5000"
	DefaultDBPath          = "fitness_tracker.db"
	DefaultJWTSecretFile   = "jwt_secret.key"
	DefaultJWTTTL          = 24 * time.Hour
	DefaultSessionTTL      = 10 * time.Minute
	DefaultAraimandiTarget = 10 * time.Second
	DefaultTTSProvider     = "google"
	DefaultCORSOrigins     = "*"
)

// Config holds every setting for the coach server.
type Config struct {
	Port     string
	Env      string // "production" switches logging to JSON
	LogLevel string
	LogFile  string // Optional rotating log file

	DBPath string

	JWTSecret     string // Takes precedence over JWTSecretFile
	JWTSecretFile string // Created with a random secret on first start
	JWTTTL        time.Duration

	SessionTTL time.Duration // Analyzer session inactivity eviction

	PoseDetectorURL string // Remote pose sidecar; wins over PoseModelPath
	PoseModelPath   string // ONNX BlazePose landmark model for the in-process detector

	TTSProviders    []string // Fallback order, e.g. google,openai
	GoogleAPIKey    string
	OpenAIKey       string
	ElevenLabsKey   string
	ElevenLabsVoice string

	AraimandiTarget time.Duration
	CORSOrigins     string
	AnnotateFrames  bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; existing variables win.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the current environment only.
func FromEnv() Config {
	return Config{
		Port:     getEnv("PORT", DefaultPort),
		Env:      getEnv("GO_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		DBPath: getEnv("DB_PATH", DefaultDBPath),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTSecretFile: getEnv("JWT_SECRET_FILE", DefaultJWTSecretFile),
		JWTTTL:        getEnvDuration("JWT_TTL", DefaultJWTTTL),

		SessionTTL: getEnvDuration("SESSION_TTL", DefaultSessionTTL),

		PoseDetectorURL: os.Getenv("POSE_DETECTOR_URL"),
		PoseModelPath:   os.Getenv("POSE_MODEL_PATH"),

		TTSProviders:    splitList(getEnv("TTS_PROVIDER", DefaultTTSProvider)),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		ElevenLabsKey:   os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice: os.Getenv("ELEVENLABS_VOICE_ID"),

		AraimandiTarget: getEnvDuration("ARAIMANDI_TARGET", DefaultAraimandiTarget),
		CORSOrigins:     getEnv("CORS_ORIGINS", DefaultCORSOrigins),
		AnnotateFrames:  getEnvBool("ANNOTATE_FRAMES", false),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return &ConfigError{Field: "Port", Message: "PORT must be a number"}
	}
	if c.DBPath == "" {
		return &ConfigError{Field: "DBPath", Message: "DB_PATH must not be empty"}
	}
	if c.JWTSecret == "" && c.JWTSecretFile == "" {
		return &ConfigError{Field: "JWTSecret", Message: "JWT_SECRET or JWT_SECRET_FILE is required"}
	}
	if c.JWTTTL <= 0 {
		return &ConfigError{Field: "JWTTTL", Message: "JWT_TTL must be positive"}
	}
	if c.AraimandiTarget <= 0 {
		return &ConfigError{Field: "AraimandiTarget", Message: "ARAIMANDI_TARGET must be positive"}
	}
	if c.PoseDetectorURL == "" && c.PoseModelPath == "" {
		return &ConfigError{Field: "PoseDetectorURL", Message: "POSE_DETECTOR_URL or POSE_MODEL_PATH is required"}
	}
	for _, p := range c.TTSProviders {
		switch p {
		case "google":
		case "openai":
			if c.OpenAIKey == "" {
				return &ConfigError{Field: "OpenAIKey", Message: "OPENAI_API_KEY environment variable is required for OpenAI TTS"}
			}
		case "elevenlabs":
			if c.ElevenLabsKey == "" {
				return &ConfigError{Field: "ElevenLabsKey", Message: "ELEVENLABS_API_KEY environment variable is required for ElevenLabs TTS"}
			}
		case "mock":
		default:
			return &ConfigError{Field: "TTSProviders", Message: "unknown TTS provider: " + p}
		}
	}
	return nil
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are seconds.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
