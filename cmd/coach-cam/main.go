// Coach-cam streams a local webcam to the coach server and prints the
// feedback it gets back. Spoken cues can be saved as MP3 files.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-formcoach/internal/log"
	"github.com/teslashibe/go-formcoach/pkg/coach"
)

func main() {
	server := flag.String("server", "ws://localhost:5000", "Coach server base URL")
	token := flag.String("token", os.Getenv("COACH_TOKEN"), "Access token (defaults to COACH_TOKEN)")
	exercise := flag.String("exercise", "squats", "Exercise: squats, pushups, araimandi, mulumandi, mandia_davu")
	family := flag.String("family", "", "Restrict to an exercise family: workout or dance")
	device := flag.Int("device", 0, "Camera device id")
	fps := flag.Int("fps", 5, "Frames per second to send")
	quality := flag.Int("quality", 80, "JPEG quality")
	challenge := flag.Bool("challenge", false, "Count reps toward the daily challenge")
	audioDir := flag.String("audio-dir", "", "Save spoken cues to this directory")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log.Init(*logLevel, "")
	logger := log.L()

	if *token == "" {
		logger.Error("missing token: pass -token or set COACH_TOKEN")
		os.Exit(1)
	}
	if *fps <= 0 {
		*fps = 5
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cam, err := gocv.OpenVideoCapture(*device)
	if err != nil {
		logger.Error("open camera", "device", *device, "error", err)
		os.Exit(1)
	}
	defer cam.Close()

	q := url.Values{}
	q.Set("token", *token)
	q.Set("exercise", *exercise)
	q.Set("session_id", "cam-"+uuid.NewString()[:8])
	q.Set("challenge", strconv.FormatBool(*challenge))
	if *family != "" {
		q.Set("family", *family)
	}
	endpoint := *server + "/ws/coach?" + q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, endpoint, http.Header{})
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
		}
		logger.Error("connect", "server", *server, "error", err)
		os.Exit(1)
	}
	defer ws.Close()
	logger.Info("streaming", "exercise", *exercise, "session", q.Get("session_id"))

	replies := make(chan coach.FrameResponse)
	go func() {
		defer close(replies)
		for {
			var r coach.FrameResponse
			if err := ws.ReadJSON(&r); err != nil {
				if ctx.Err() == nil {
					logger.Warn("connection closed", "error", err)
				}
				cancel()
				return
			}
			replies <- r
		}
	}()

	img := gocv.NewMat()
	defer img.Close()

	params := []int{gocv.IMWriteJpegQuality, *quality}
	ticker := time.NewTicker(time.Second / time.Duration(*fps))
	defer ticker.Stop()

	cues := 0
	for {
		select {
		case <-ctx.Done():
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case <-ticker.C:
		}

		if ok := cam.Read(&img); !ok || img.Empty() {
			continue
		}
		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, params)
		if err != nil {
			logger.Warn("encode frame", "error", err)
			continue
		}
		err = ws.WriteMessage(websocket.BinaryMessage, buf.GetBytes())
		buf.Close()
		if err != nil {
			logger.Error("send frame", "error", err)
			return
		}

		// One frame in flight at a time keeps the server from queueing.
		var r coach.FrameResponse
		select {
		case <-ctx.Done():
			continue
		case reply, ok := <-replies:
			if !ok {
				return
			}
			r = reply
		}

		fmt.Printf("[%-10s] %s\n", r.Severity, r.Feedback)
		if r.Audio != "" && *audioDir != "" {
			cues++
			if err := saveCue(*audioDir, cues, r.Audio); err != nil {
				logger.Warn("save cue", "error", err)
			}
		}
	}
}

func saveCue(dir string, n int, audio string) error {
	data, err := base64.StdEncoding.DecodeString(audio)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fmt.Sprintf("cue-%04d.mp3", n)), data, 0o644)
}
