package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-formcoach/pkg/auth"
	"github.com/teslashibe/go-formcoach/pkg/coach"
	"github.com/teslashibe/go-formcoach/pkg/orchestrator"
	"github.com/teslashibe/go-formcoach/pkg/store"
)

type credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RePassword string `json:"re_password"`
}

type exerciseBody struct {
	Exercise string `json:"exercise"`
}

type userView struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "No data provided")
	}

	u, token, err := s.cfg.Auth.Register(c.UserContext(), req.Email, req.Password, req.RePassword)
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrEmailTaken):
		return fail(c, fiber.StatusBadRequest, "User with this email already exists")
	case err != nil:
		s.logger.Error("registration failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful",
		"user":    userView{ID: u.ID, Email: u.Email},
		"token":   token,
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "No data provided")
	}

	u, token, err := s.cfg.Auth.Login(c.UserContext(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, err.Error())
	case err != nil:
		s.logger.Error("login failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Login failed")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    userView{ID: u.ID, Email: u.Email},
		"token":   token,
	})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	if err := s.cfg.Auth.Logout(c.UserContext(), auth.TokenOf(c)); err != nil {
		s.logger.Error("logout failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Logout failed")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Logout successful"})
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	u, err := s.cfg.Auth.Profile(c.UserContext(), auth.UserFrom(c).ID)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("profile lookup failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to get profile")
	}
	return c.JSON(fiber.Map{"success": true, "user": u})
}

func (s *Server) handleVerifyToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "error": "No token provided"})
	}

	u, err := s.cfg.Auth.Authenticate(c.UserContext(), req.Token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrSessionRevoked), errors.Is(err, auth.ErrUserNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"valid": false, "error": "Invalid token"})
	case err != nil:
		s.logger.Error("token verification failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"valid": false, "error": "Token verification failed"})
	}
	return c.JSON(fiber.Map{"valid": true, "user": userView{ID: u.ID, Email: u.Email}})
}

func (s *Server) handleWorkoutFrame(c *fiber.Ctx) error {
	return s.handleFrame(c, orchestrator.FamilyWorkout)
}

func (s *Server) handleDanceFrame(c *fiber.Ctx) error {
	return s.handleFrame(c, orchestrator.FamilyDance)
}

func (s *Server) handleFrame(c *fiber.Ctx, family orchestrator.Family) error {
	var req coach.FrameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	resp := s.cfg.Frames.Handle(c.UserContext(), auth.UserFrom(c).ID, family, req)
	return c.JSON(resp)
}

func (s *Server) handleTestAudio(c *fiber.Ctx) error {
	return c.JSON(s.cfg.Frames.TestAudio(c.UserContext()))
}

func (s *Server) handleDailyChallenge(c *fiber.Ctx) error {
	ch, err := s.cfg.Fitness.Today(c.UserContext(), auth.UserFrom(c).ID)
	if err != nil {
		s.logger.Error("daily challenge failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to retrieve daily challenge")
	}
	return c.JSON(fiber.Map{"success": true, "challenge": ch})
}

func (s *Server) handleCompleteChallenge(c *fiber.Ctx) error {
	var req exerciseBody
	if err := c.BodyParser(&req); err != nil || req.Exercise == "" {
		return fail(c, fiber.StatusBadRequest, "Exercise type is required")
	}

	done, err := s.cfg.Fitness.Complete(c.UserContext(), auth.UserFrom(c).ID, req.Exercise)
	switch {
	case err != nil:
		s.logger.Error("complete challenge failed", "error", err)
		return c.JSON(fiber.Map{"success": false, "message": "Failed to update challenge status"})
	case !done:
		return c.JSON(fiber.Map{"success": false, "message": "No matching pending challenge found"})
	}
	return c.JSON(fiber.Map{"success": true, "message": "Daily challenge completed"})
}

func (s *Server) handleProgress(c *fiber.Ctx) error {
	progress, err := s.cfg.Fitness.Progress(c.UserContext(), auth.UserFrom(c).ID)
	if err != nil {
		s.logger.Error("progress failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to retrieve progress data")
	}
	return c.JSON(fiber.Map{"success": true, "progress": progress})
}

func (s *Server) handleLogDance(c *fiber.Ctx) error {
	var req exerciseBody
	if err := c.BodyParser(&req); err != nil || req.Exercise == "" {
		return fail(c, fiber.StatusBadRequest, "Exercise type is required")
	}

	if err := s.cfg.Fitness.Log(c.UserContext(), auth.UserFrom(c).ID, req.Exercise, 1); err != nil {
		s.logger.Error("log dance failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to log dance completion")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Dance logged successfully"})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.cfg.Health != nil {
		if err := s.cfg.Health(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
