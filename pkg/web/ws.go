package web

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-formcoach/pkg/auth"
	"github.com/teslashibe/go-formcoach/pkg/coach"
	"github.com/teslashibe/go-formcoach/pkg/hub"
	"github.com/teslashibe/go-formcoach/pkg/orchestrator"
	"github.com/teslashibe/go-formcoach/pkg/store"
)

// maxFrameSize caps a single websocket frame message.
const maxFrameSize = 8 * 1024 * 1024

// familyOf maps the "family" query parameter to an exercise family.
func familyOf(name string) orchestrator.Family {
	switch name {
	case "workout":
		return orchestrator.FamilyWorkout
	case "dance":
		return orchestrator.FamilyDance
	default:
		return orchestrator.FamilyAny
	}
}

// handleCoachWS streams frames for one client. Text messages carry a
// FrameRequest with a data URL image; binary messages carry a bare JPEG
// and take exercise, session_id and challenge from the query string.
// Replies are written one per frame, in arrival order.
func (s *Server) handleCoachWS(c *websocket.Conn) {
	u, _ := c.Locals(auth.LocalsUser).(*store.User)
	if u == nil {
		c.Close()
		return
	}

	connID := uuid.NewString()
	logger := s.logger.With("conn", connID, "user_id", u.ID)
	logger.Info("coach stream opened")
	defer logger.Info("coach stream closed")

	c.SetReadLimit(maxFrameSize)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	family := familyOf(c.Query("family"))
	base := coach.FrameRequest{
		Exercise:  c.Query("exercise"),
		SessionID: c.Query("session_id", connID),
	}
	base.IsChallenge, _ = strconv.ParseBool(c.Query("challenge"))

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		var resp coach.FrameResponse
		switch mt {
		case websocket.BinaryMessage:
			resp = s.cfg.Frames.HandleJPEG(ctx, u.ID, family, base, data)
		case websocket.TextMessage:
			req := base
			if err := json.Unmarshal(data, &req); err != nil {
				logger.Debug("bad frame message", "error", err)
			}
			resp = s.cfg.Frames.Handle(ctx, u.ID, family, req)
		default:
			continue
		}

		if err := c.WriteJSON(resp); err != nil {
			logger.Debug("write failed", "error", err)
			return
		}
	}
}

// subscribe returns a handler that attaches the connection to h on the
// caller's session topic.
func (s *Server) subscribe(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		u, _ := c.Locals(auth.LocalsUser).(*store.User)
		if u == nil {
			c.Close()
			return
		}
		topic := coach.SessionKey(u.ID, c.Query("session_id"))
		hub.NewClient(h, c, topic).Run()
	}
}
