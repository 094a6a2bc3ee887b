// Package overlay draws coaching feedback onto camera frames for the live
// preview.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-formcoach/pkg/analyzer"
)

// Colours, in RGBA.
var (
	Green  = color.RGBA{0, 255, 0, 0}
	Red    = color.RGBA{255, 0, 0, 0}
	Orange = color.RGBA{255, 165, 0, 0}
	Yellow = color.RGBA{255, 255, 0, 0}
	Blue   = color.RGBA{0, 0, 255, 0}
	Grey   = color.RGBA{200, 200, 200, 0}
)

// Line is one row of overlay text.
type Line struct {
	Text      string
	Color     color.RGBA
	Scale     float64
	Thickness int
}

// SeverityColor maps a feedback severity to its overlay colour.
func SeverityColor(s analyzer.Severity) color.RGBA {
	switch s {
	case analyzer.SeveritySuccess:
		return Green
	case analyzer.SeverityCorrection:
		return Orange
	case analyzer.SeverityError:
		return Red
	default:
		return Yellow
	}
}

// Lines lays out the overlay for a result: feedback first, then the counter
// (or hold timer) and the stage.
func Lines(res analyzer.Result) []Line {
	lines := []Line{{Text: res.Feedback, Color: SeverityColor(res.Severity), Scale: 1, Thickness: 2}}

	var counter string
	switch res.Exercise {
	case analyzer.Squat:
		counter = fmt.Sprintf("Squats: %d", res.Count)
	case analyzer.PushUp:
		counter = fmt.Sprintf("Push-ups: %d", res.Count)
	case analyzer.Araimandi:
		counter = fmt.Sprintf("Hold: %.1fs", res.HoldSeconds)
	case analyzer.Mulumandi:
		counter = fmt.Sprintf("Jumps: %d", res.Count)
	case analyzer.MandiAdavu:
		counter = fmt.Sprintf("Reps: %d", res.Count)
	}
	if counter != "" {
		lines = append(lines, Line{Text: counter, Color: Blue, Scale: 1, Thickness: 2})
	}
	if res.Stage != "" {
		lines = append(lines, Line{Text: "Stage: " + res.Stage, Color: Grey, Scale: 0.7, Thickness: 1})
	}
	return lines
}

// Render decodes a JPEG, draws lines down its left edge and re-encodes it.
func Render(jpeg []byte, lines []Line) ([]byte, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("decode frame: empty image")
	}

	y := 30
	for _, l := range lines {
		gocv.PutText(&img, l.Text, image.Pt(10, y), gocv.FontHersheySimplex, l.Scale, l.Color, l.Thickness)
		y += 40
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Broadcaster receives annotated frames. *hub.Hub satisfies it.
type Broadcaster interface {
	BroadcastBinary(topic string, data []byte)
}

// Previewer annotates analyzed frames and broadcasts them on the session's
// topic. It implements orchestrator.Previewer.
type Previewer struct {
	out    Broadcaster
	render func([]byte, []Line) ([]byte, error)
	logger *slog.Logger
}

// NewPreviewer creates a Previewer publishing to out.
func NewPreviewer(out Broadcaster, logger *slog.Logger) *Previewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Previewer{
		out:    out,
		render: Render,
		logger: logger.With("component", "overlay"),
	}
}

// Preview renders and publishes one frame. Render failures are logged and
// the frame is dropped.
func (p *Previewer) Preview(sessionID string, frame []byte, res analyzer.Result) {
	jpg, err := p.render(frame, Lines(res))
	if err != nil {
		p.logger.Debug("preview dropped", "session", sessionID, "error", err)
		return
	}
	p.out.BroadcastBinary(sessionID, jpg)
}
