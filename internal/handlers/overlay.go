package handlers

import (
	"image/png"
	"math"
	"net/http"

	"detectserver/internal/logger"
	"detectserver/internal/render"
	"detectserver/internal/services/storage"
)

// OverlayHandler draws the latest detections on a transparent PNG the size of
// the viewport, for clients that show the video themselves.
func OverlayHandler(frames *storage.FrameStore, renderer *render.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		frame, ok := frames.Latest()
		if !ok {
			http.Error(w, "No frame yet", http.StatusNotFound)
			return
		}

		width := int(math.Round(frame.Viewport.Width))
		height := int(math.Round(frame.Viewport.Height))
		if width <= 0 || height <= 0 {
			http.Error(w, "No frame yet", http.StatusNotFound)
			return
		}

		canvas := render.NewImageCanvas(width, height)
		renderer.Render(canvas, frame.Detections)

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, canvas.Image()); err != nil {
			logger.Warning("Failed to encode overlay: %v", err)
		}
	}
}
