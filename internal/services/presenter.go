package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"math"

	"detectserver/internal/detection"
	"detectserver/internal/logger"
	"detectserver/internal/metrics"
	"detectserver/internal/render"
	"detectserver/internal/services/ai"
	"detectserver/internal/services/camera"
	"detectserver/internal/services/storage"
	"detectserver/internal/services/websocket"

	"gocv.io/x/gocv"
)

const jpegQuality = 80

// ViewMessage is what viewers receive over the WebSocket.
type ViewMessage struct {
	Frame      string                `json:"frame"`
	Viewport   detection.Viewport    `json:"viewport"`
	Detections []detection.Detection `json:"detections"`
}

// presenter draws detections over the display-sized frame and hands the
// result to the MJPEG store and the WebSocket hub.
type presenter struct {
	renderer *render.Renderer
	frames   *storage.FrameStore
	hub      *websocket.HubService
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func newPresenter(renderer *render.Renderer, frames *storage.FrameStore, hub *websocket.HubService,
	metrics *metrics.Metrics, logger *logger.Logger) *presenter {
	return &presenter{renderer: renderer, frames: frames, hub: hub, metrics: metrics, logger: logger}
}

func (p *presenter) Present(ctx context.Context, frame *camera.Frame, viewport detection.Viewport, detections []detection.Detection) error {
	jpeg, err := Annotate(p.renderer, frame.Mat(), viewport, detections)
	if err != nil {
		return err
	}

	_, dropped := p.frames.Publish(jpeg, detections, viewport)

	msg, err := json.Marshal(ViewMessage{
		Frame:      base64.StdEncoding.EncodeToString(jpeg),
		Viewport:   viewport,
		Detections: detections,
	})
	if err != nil {
		return fmt.Errorf("failed to encode view message: %w", err)
	}
	if !p.hub.Broadcast(msg) {
		dropped++
	}

	if p.metrics != nil {
		p.metrics.FramesBroadcast.Add(1)
		p.metrics.FramesDropped.Add(uint64(dropped))
	}
	return nil
}

// Annotate scales a frame to the viewport, draws the detections on it and
// returns the JPEG.
func Annotate(renderer *render.Renderer, src gocv.Mat, viewport detection.Viewport, detections []detection.Detection) ([]byte, error) {
	display := gocv.NewMat()
	defer display.Close()

	size := image.Pt(int(math.Round(viewport.Width)), int(math.Round(viewport.Height)))
	if size.X <= 0 || size.Y <= 0 || (size.X == src.Cols() && size.Y == src.Rows()) {
		src.CopyTo(&display)
	} else {
		gocv.Resize(src, &display, size, 0, 0, gocv.InterpolationLinear)
	}

	canvas := ai.NewMatCanvas(display)
	defer canvas.Close()

	renderer.Render(canvas, detections)
	if err := canvas.Err(); err != nil {
		return nil, fmt.Errorf("failed to draw overlay: %w", err)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, canvas.Mat(), []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}
