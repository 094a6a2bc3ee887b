package coach

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/analyzer"
	"github.com/teslashibe/go-formcoach/pkg/fitness"
	"github.com/teslashibe/go-formcoach/pkg/metrics"
	"github.com/teslashibe/go-formcoach/pkg/orchestrator"
	"github.com/teslashibe/go-formcoach/pkg/tts"
)

// ChallengeCompleted is appended to the spoken cue of the frame that
// completes the daily challenge.
const ChallengeCompleted = " Daily challenge completed! "

// TestAudioMessage is spoken by TestAudio.
const TestAudioMessage = "This is a test audio message"

// DefaultClientSession names the analyzer session of clients that send none.
const DefaultClientSession = "default"

// FrameRequest is a frame submitted by a client.
type FrameRequest struct {
	Exercise    string `json:"exercise"`
	Image       string `json:"image"` // data:image/jpeg;base64,...
	IsChallenge bool   `json:"is_challenge"`
	SessionID   string `json:"session_id"` // Optional; separates tabs or devices of one user
}

// FrameResponse is the reply to a frame.
type FrameResponse struct {
	Feedback    string            `json:"feedback"`
	Audio       string            `json:"audio"` // Base64 MP3, empty when nothing is spoken
	AudioLength int               `json:"audio_length"`
	ShouldSpeak bool              `json:"should_speak"`
	Severity    analyzer.Severity `json:"severity"`
	Count       int               `json:"count"`
	Stage       string            `json:"stage,omitempty"`
}

// AudioCheck is the reply of TestAudio.
type AudioCheck struct {
	Feedback    string `json:"feedback"`
	Audio       string `json:"audio"`
	AudioLength int    `json:"audio_length"`
	Success     bool   `json:"success"`
}

// FrameConfig wires a FrameService.
type FrameConfig struct {
	Orchestrator *orchestrator.Orchestrator
	Fitness      *fitness.Service
	Speech       tts.Provider // Optional; nil disables audio
	Metrics      *metrics.Manager
	Logger       *slog.Logger
}

// FrameService turns client frames into coaching replies for one user at
// a time: analysis, challenge completion, rep logging and speech.
type FrameService struct {
	orch    *orchestrator.Orchestrator
	fitness *fitness.Service
	speech  tts.Provider
	metrics *metrics.Manager
	logger  *slog.Logger
}

// NewFrameService creates a FrameService.
func NewFrameService(cfg FrameConfig) (*FrameService, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("coach: orchestrator is required")
	}
	if cfg.Fitness == nil {
		return nil, errors.New("coach: fitness service is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewTestManager()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &FrameService{
		orch:    cfg.Orchestrator,
		fitness: cfg.Fitness,
		speech:  cfg.Speech,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "coach.frames"),
	}, nil
}

// SessionKey is the analyzer session (and feed topic) of a user's client
// session.
func SessionKey(userID uint, clientSession string) string {
	if clientSession == "" {
		clientSession = DefaultClientSession
	}
	return strconv.FormatUint(uint64(userID), 10) + "/" + clientSession
}

// DecodeImage extracts the JPEG bytes of a data URL. A bare base64 string
// is accepted too. Undecodable input yields nil.
func DecodeImage(dataURL string) []byte {
	if _, payload, ok := strings.Cut(dataURL, ","); ok {
		dataURL = payload
	}
	if dataURL == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(dataURL)
	if err != nil {
		return nil
	}
	return b
}

// Handle processes a frame whose image is a data URL.
func (s *FrameService) Handle(ctx context.Context, userID uint, family orchestrator.Family, req FrameRequest) FrameResponse {
	return s.HandleJPEG(ctx, userID, family, req, DecodeImage(req.Image))
}

// HandleJPEG processes a frame given as raw JPEG bytes; req.Image is ignored.
func (s *FrameService) HandleJPEG(ctx context.Context, userID uint, family orchestrator.Family, req FrameRequest, frame []byte) FrameResponse {
	res := s.orch.Process(ctx, orchestrator.Request{
		SessionID: SessionKey(userID, req.SessionID),
		Exercise:  req.Exercise,
		Frame:     frame,
		Family:    family,
	})

	audio := res.AudioMessage
	speak := res.ShouldSpeak

	if res.Outcome == metrics.OutcomeAnalyzed {
		if req.IsChallenge && res.Count >= 1 {
			done, err := s.fitness.Complete(ctx, userID, res.Exercise)
			if err != nil {
				s.logger.Error("complete challenge", "user_id", userID, "error", err)
			}
			if done {
				audio += ChallengeCompleted
				speak = true
			}
		}
		if res.Delta > 0 {
			if err := s.fitness.Log(ctx, userID, res.Exercise, res.Delta); err != nil {
				s.logger.Error("log exercise", "user_id", userID, "exercise", res.Exercise, "error", err)
			}
		}
	}

	out := FrameResponse{
		Feedback:    res.Feedback,
		ShouldSpeak: speak,
		Severity:    res.Severity,
		Count:       res.Count,
		Stage:       res.Stage,
	}
	if speak {
		out.Audio = s.Speak(ctx, audio)
		out.AudioLength = len(out.Audio)
	}
	return out
}

// Speak synthesizes text and returns it base64 encoded. Blank text, a
// missing provider and synthesis failures all yield "".
func (s *FrameService) Speak(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" || s.speech == nil {
		return ""
	}

	start := time.Now()
	res, err := s.speech.Synthesize(ctx, text)
	s.metrics.HistSynthesizeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("speech synthesis failed", "provider", tts.NameOf(s.speech), "error", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(res.Audio)
}

// TestAudio synthesizes a fixed message so clients can check playback.
func (s *FrameService) TestAudio(ctx context.Context) AudioCheck {
	audio := s.Speak(ctx, TestAudioMessage)
	return AudioCheck{
		Feedback:    TestAudioMessage,
		Audio:       audio,
		AudioLength: len(audio),
		Success:     audio != "",
	}
}
