// Package web serves the coach's HTTP API and websocket streams.
package web

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-formcoach/pkg/auth"
	"github.com/teslashibe/go-formcoach/pkg/coach"
	"github.com/teslashibe/go-formcoach/pkg/fitness"
	"github.com/teslashibe/go-formcoach/pkg/hub"
	"github.com/teslashibe/go-formcoach/pkg/metrics"
)

// bodyLimit fits a base64 encoded 1080p JPEG with room to spare.
const bodyLimit = 16 * 1024 * 1024

// Config wires a Server.
type Config struct {
	Auth     *auth.Service
	Fitness  *fitness.Service
	Frames   *coach.FrameService
	Feed     *hub.Hub // Coaching events, one topic per client session
	Preview  *hub.Hub // Annotated frames; nil disables /ws/preview
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer // Served at /metrics; nil disables it

	// Health, when set, is checked by /healthz.
	Health func(ctx context.Context) error

	CORSOrigins string
	Logger      *slog.Logger
}

// Server is the coach's HTTP server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger
}

// New creates a Server with every route registered.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewTestManager()
	}
	if cfg.CORSOrigins == "" {
		cfg.CORSOrigins = "*"
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "formcoach",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(s.observe)

	requireAuth := cfg.Auth.Middleware()

	// Accounts
	app.Post("/register", s.handleRegister)
	app.Post("/login", s.handleLogin)
	app.Post("/logout", requireAuth, s.handleLogout)
	app.Get("/profile", requireAuth, s.handleProfile)
	app.Post("/verify-token", s.handleVerifyToken)

	// Coaching
	app.Post("/process_workout_frame", requireAuth, s.handleWorkoutFrame)
	app.Post("/process_dance_frame", requireAuth, s.handleDanceFrame)
	app.Get("/test_audio", s.handleTestAudio)

	// Challenges and progress
	api := app.Group("/api", requireAuth)
	api.Get("/daily_challenge", s.handleDailyChallenge)
	api.Post("/complete_challenge", s.handleCompleteChallenge)
	api.Get("/progress", s.handleProgress)
	api.Post("/log_dance_completion", s.handleLogDance)

	app.Get("/healthz", s.handleHealth)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/coach", requireAuth, websocket.New(s.handleCoachWS))
	app.Get("/ws/feed", requireAuth, websocket.New(s.subscribe(cfg.Feed)))
	if cfg.Preview != nil {
		app.Get("/ws/preview", requireAuth, websocket.New(s.subscribe(cfg.Preview)))
	}

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

// observe records request metrics. The route label is the registered
// pattern, so path parameters do not multiply series.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}

	route := c.Route().Path
	s.cfg.Metrics.HistRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	s.cfg.Metrics.CounterRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
	} else {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": msg})
}
