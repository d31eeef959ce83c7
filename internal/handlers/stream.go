package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"detectserver/internal/services/storage"
)

// MJPEGHandler streams overlaid frames as multipart/x-mixed-replace.
func MJPEGHandler(frames *storage.FrameStore, viewers ViewerObserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		w.Header().Set("Cache-Control", "no-cache")

		ch, unsubscribe := frames.Subscribe()
		defer unsubscribe()

		if viewers != nil {
			viewers.ViewerConnected()
			defer viewers.ViewerDisconnected()
		}

		flusher, _ := w.(http.Flusher)
		if latest, ok := frames.Latest(); ok {
			if err := writePart(mw, latest.JPEG); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case frame := <-ch:
				if err := writePart(mw, frame.JPEG); err != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}
}

// ViewerObserver is told about MJPEG viewers.
type ViewerObserver interface {
	ViewerConnected()
	ViewerDisconnected()
}

func writePart(mw *multipart.Writer, jpeg []byte) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", fmt.Sprint(len(jpeg)))

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(jpeg)
	return err
}
