package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// valuesPerLandmark is x, y, z, visibility, presence.
const valuesPerLandmark = 5

// BlazePose runs the BlazePose landmark model through OpenCV's DNN module.
// The whole frame is resized to the model input, so it works best with one
// person filling most of the frame.
type BlazePose struct {
	net       gocv.Net
	config    Config
	inputSize image.Point
	logger    *slog.Logger
	mu        sync.Mutex // Protects inference
}

// NewBlazePose loads the ONNX landmark model.
func NewBlazePose(cfg Config, logger *slog.Logger) (*BlazePose, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if logger == nil {
		logger = slog.Default()
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &BlazePose{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    logger.With("component", "detection.blazepose"),
	}, nil
}

// Detect implements Detector.
func (d *BlazePose) Detect(ctx context.Context, jpeg []byte) (pose.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	// Model expects RGB scaled to [0, 1].
	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers([]string{d.config.LandmarkOutput, d.config.FlagOutput})
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != 2 {
		return nil, fmt.Errorf("unexpected model outputs: %d", len(outs))
	}

	raw, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read landmarks: %w", err)
	}
	flag, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read pose flag: %w", err)
	}
	if len(flag) == 0 {
		return nil, fmt.Errorf("read pose flag: empty output")
	}

	lms, err := decodeLandmarks(raw, float64(flag[0]), d.config)
	if err != nil {
		return nil, err
	}
	if lms == nil {
		d.logger.Debug("no body", "presence", flag[0])
	}
	return lms, nil
}

// Close releases the network.
func (d *BlazePose) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// decodeLandmarks converts the raw landmark tensor into normalized landmarks.
// Coordinates are in model input pixels; visibility is a logit.
func decodeLandmarks(raw []float32, presence float64, cfg Config) (pose.Landmarks, error) {
	if presence < cfg.PresenceThresh {
		return nil, nil
	}
	if len(raw) < pose.Count*valuesPerLandmark {
		return nil, fmt.Errorf("landmark tensor too small: %d values", len(raw))
	}

	w, h := float64(cfg.InputWidth), float64(cfg.InputHeight)
	lms := make(pose.Landmarks, pose.Count)
	for i := range lms {
		v := raw[i*valuesPerLandmark:]
		lms[i] = pose.Landmark{
			X:          float64(v[0]) / w,
			Y:          float64(v[1]) / h,
			Visibility: sigmoid(float64(v[3])),
		}
	}
	return lms, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
