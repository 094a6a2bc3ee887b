// Coach - real-time exercise form coaching server.
// Accepts camera frames over HTTP and websockets and replies with feedback
// text and spoken cues.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-formcoach/internal/config"
	"github.com/teslashibe/go-formcoach/internal/log"
	"github.com/teslashibe/go-formcoach/pkg/app"
)

func main() {
	cfg := parseFlags()
	log.Init(cfg.LogLevel, cfg.LogFile)
	logger := log.L()

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	logger.Info("coach started", "port", cfg.Port, "tts", cfg.TTSProviders)
	if err := a.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

// parseFlags loads the environment configuration and applies flag overrides.
func parseFlags() config.Config {
	cfg := config.Load()

	port := flag.String("port", cfg.Port, "HTTP port (overrides PORT)")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path (overrides DB_PATH)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	detector := flag.String("detector-url", cfg.PoseDetectorURL, "Remote pose detector URL (overrides POSE_DETECTOR_URL)")
	model := flag.String("model", cfg.PoseModelPath, "BlazePose ONNX model path (overrides POSE_MODEL_PATH)")
	ttsList := flag.String("tts", strings.Join(cfg.TTSProviders, ","), "TTS providers in fallback order: google, openai, elevenlabs, mock")
	annotate := flag.Bool("annotate", cfg.AnnotateFrames, "Publish annotated frames on /ws/preview")
	flag.Parse()

	cfg.Port, cfg.DBPath, cfg.LogLevel = *port, *dbPath, *logLevel
	cfg.PoseDetectorURL, cfg.PoseModelPath = *detector, *model
	cfg.AnnotateFrames = *annotate
	cfg.TTSProviders = cfg.TTSProviders[:0]
	for _, p := range strings.Split(*ttsList, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			cfg.TTSProviders = append(cfg.TTSProviders, p)
		}
	}
	return cfg
}
