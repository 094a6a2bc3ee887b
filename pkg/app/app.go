// Package app assembles the coach server from its components and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/teslashibe/go-formcoach/internal/config"
	"github.com/teslashibe/go-formcoach/pkg/analyzer"
	"github.com/teslashibe/go-formcoach/pkg/auth"
	"github.com/teslashibe/go-formcoach/pkg/coach"
	"github.com/teslashibe/go-formcoach/pkg/fitness"
	"github.com/teslashibe/go-formcoach/pkg/hub"
	"github.com/teslashibe/go-formcoach/pkg/metrics"
	"github.com/teslashibe/go-formcoach/pkg/orchestrator"
	"github.com/teslashibe/go-formcoach/pkg/overlay"
	"github.com/teslashibe/go-formcoach/pkg/pose/detection"
	"github.com/teslashibe/go-formcoach/pkg/session"
	"github.com/teslashibe/go-formcoach/pkg/store"
	"github.com/teslashibe/go-formcoach/pkg/tts"
	"github.com/teslashibe/go-formcoach/pkg/web"
)

// speechCacheTTL is how long synthesized cues are reused.
const speechCacheTTL = 30 * time.Minute

// App is the coach server. It owns every component and their lifecycle.
type App struct {
	config config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Manager

	store    *store.Store
	auth     *auth.Service
	fitness  *fitness.Service
	detector detection.Detector
	speech   tts.Provider
	sessions *session.Registry

	feed    *hub.Hub
	preview *hub.Hub

	orch   *orchestrator.Orchestrator
	frames *coach.FrameService
	server *web.Server
}

// Option configures an App.
type Option func(*App)

// WithDetector replaces the configured pose detector.
func WithDetector(d detection.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithSpeech replaces the configured TTS providers.
func WithSpeech(p tts.Provider) Option {
	return func(a *App) { a.speech = p }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// New creates an App from a validated configuration.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init opens storage and builds every component.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	cfg := a.config

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewManager("formcoach", "server", a.registry)

	st, err := store.Open(cfg.DBPath, a.logger)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	a.store = st

	secret, err := auth.LoadOrCreateSecret(cfg.JWTSecret, cfg.JWTSecretFile)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}
	a.auth, err = auth.NewService(st, secret, auth.WithTTL(cfg.JWTTTL), auth.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}
	a.fitness = fitness.New(st, fitness.WithLogger(a.logger))

	if err := a.initDetector(); err != nil {
		return fmt.Errorf("detector init: %w", err)
	}
	a.initSpeech(ctx)

	a.sessions = session.NewRegistry(session.Config{
		TTL: cfg.SessionTTL,
		Factory: func(e analyzer.Exercise) (analyzer.Analyzer, error) {
			return analyzer.New(e, analyzer.WithTarget(cfg.AraimandiTarget), analyzer.WithLogger(a.logger))
		},
		Logger: a.logger,
		OnEvict: func(string) {
			a.metrics.GaugeSessions.Set(float64(a.sessions.Len()))
		},
	})

	a.feed = hub.New("feed", a.logger)
	a.feed.OnCount = func(n int) { a.metrics.GaugeFeedClients.Set(float64(n)) }

	orchCfg := orchestrator.Config{
		Detector: a.detector,
		Sessions: a.sessions,
		Metrics:  a.metrics,
		Feed:     a.feed,
		Logger:   a.logger,
	}
	if cfg.AnnotateFrames {
		a.preview = hub.New("preview", a.logger)
		orchCfg.Preview = overlay.NewPreviewer(a.preview, a.logger)
	}
	if a.orch, err = orchestrator.New(orchCfg); err != nil {
		return err
	}

	a.frames, err = coach.NewFrameService(coach.FrameConfig{
		Orchestrator: a.orch,
		Fitness:      a.fitness,
		Speech:       a.speech,
		Metrics:      a.metrics,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	a.server = web.New(web.Config{
		Auth:        a.auth,
		Fitness:     a.fitness,
		Frames:      a.frames,
		Feed:        a.feed,
		Preview:     a.preview,
		Metrics:     a.metrics,
		Gatherer:    a.registry,
		Health:      a.store.Ping,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      a.logger,
	})
	return nil
}

func (a *App) initDetector() error {
	if a.detector != nil {
		return nil
	}
	if a.config.PoseDetectorURL != "" {
		a.detector = detection.NewRemote(a.config.PoseDetectorURL, nil, a.logger)
		a.logger.Info("using remote pose detector", "url", a.config.PoseDetectorURL)
		return nil
	}

	dc := detection.DefaultConfig()
	dc.ModelPath = a.config.PoseModelPath
	d, err := detection.NewBlazePose(dc, a.logger)
	if err != nil {
		return err
	}
	a.detector = d
	a.logger.Info("using in-process pose detector", "model", dc.ModelPath)
	return nil
}

// initSpeech builds the TTS chain. Without any usable provider the coach
// still runs; replies just carry no audio.
func (a *App) initSpeech(ctx context.Context) {
	p := a.speech
	if p == nil {
		built, err := tts.Build(ctx, a.config.TTSProviders, tts.Credentials{
			GoogleAPIKey:    a.config.GoogleAPIKey,
			OpenAIKey:       a.config.OpenAIKey,
			ElevenLabsKey:   a.config.ElevenLabsKey,
			ElevenLabsVoice: a.config.ElevenLabsVoice,
		}, a.logger)
		if err != nil {
			a.logger.Warn("speech disabled", "error", err)
			return
		}
		p = built
	}

	chain, ok := p.(*tts.Chain)
	if !ok {
		chain, _ = tts.NewChain(a.logger, p)
	}
	chain.OnFailure = func(provider string, err error) {
		a.metrics.CounterTTSFails.WithLabelValues(provider).Inc()
	}
	a.speech = tts.NewCached(chain, speechCacheTTL)
}

// Server returns the HTTP server. It is nil before Init.
func (a *App) Server() *web.Server {
	return a.server
}

// Run serves until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	go a.feed.Run(ctx)
	if a.preview != nil {
		go a.preview.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Listen(":" + a.config.Port)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the server and releases every component.
func (a *App) Shutdown() {
	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown())
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.speech != nil {
		errs = append(errs, a.speech.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", "error", err)
	}
	a.logger.Info("coach stopped")
}
