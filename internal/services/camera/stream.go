package camera

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"detectserver/internal/detection"
	"detectserver/internal/logger"
	"detectserver/internal/media"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned by Read when nothing has been decoded yet.
var ErrNoFrame = errors.New("no frame decoded yet")

var errStreamClosed = fmt.Errorf("%w: stream closed", media.ErrDeviceUnavailable)

// maxReadFailures consecutive failed reads end the stream.
const maxReadFailures = 100

// Options configure how a stream is opened and displayed.
type Options struct {
	Devices       media.Devices
	DisplayWidth  int // 0 = rozmiar klatki
	DisplayHeight int
}

// Stream is an attached camera. A background reader keeps the latest frame.
type Stream struct {
	device string
	mode   media.FacingMode
	opts   Options

	capture *gocv.VideoCapture
	logger  *logger.Logger

	mu     sync.RWMutex
	latest gocv.Mat
	width  int
	height int

	ready     chan struct{}
	readyOnce sync.Once
	frames    atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Acquire opens the camera matching the requested facing mode. It fails with
// media.ErrPermissionDenied or media.ErrDeviceUnavailable. Audio is never
// captured.
func Acquire(ctx context.Context, c media.Constraints, opts Options, logger *logger.Logger) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device := opts.Devices.For(c.Video.FacingMode)
	if device == "" {
		return nil, fmt.Errorf("%w: no device configured for facing mode %s", media.ErrDeviceUnavailable, c.Video.FacingMode)
	}
	if err := checkDevice(device); err != nil {
		return nil, err
	}

	capture, err := openCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", media.ErrDeviceUnavailable, device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s could not be opened", media.ErrDeviceUnavailable, device)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		device:  device,
		mode:    c.Video.FacingMode,
		opts:    opts,
		capture: capture,
		logger:  logger,
		latest:  gocv.NewMat(),
		ready:   make(chan struct{}),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.readLoop(readCtx)

	logger.Info("Camera %s opened (facing %s)", device, c.Video.FacingMode)
	return s, nil
}

// checkDevice maps device node errors on Linux to the media errors.
func checkDevice(device string) error {
	index, err := strconv.Atoi(device)
	if err != nil || runtime.GOOS != "linux" {
		return nil
	}

	path := fmt.Sprintf("/dev/video%d", index)
	f, err := os.Open(path)
	switch {
	case err == nil:
		f.Close()
		return nil
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", media.ErrPermissionDenied, path)
	default:
		return fmt.Errorf("%w: %s: %v", media.ErrDeviceUnavailable, path, err)
	}
}

func openCapture(device string) (*gocv.VideoCapture, error) {
	if index, err := strconv.Atoi(device); err == nil {
		return gocv.OpenVideoCapture(index)
	}
	return gocv.OpenVideoCapture(device)
}

func (s *Stream) readLoop(ctx context.Context) {
	defer close(s.done)

	img := gocv.NewMat()
	defer img.Close()

	failures := 0
	for ctx.Err() == nil {
		if ok := s.capture.Read(&img); !ok || img.Empty() {
			failures++
			if failures >= maxReadFailures {
				s.logger.Error("Camera %s stopped delivering frames", s.device)
				return
			}
			if s.isFile() {
				// plik wideo: zacznij od poczatku
				s.capture.Set(gocv.VideoCapturePosFrames, 0)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		failures = 0

		s.mu.Lock()
		img.CopyTo(&s.latest)
		s.width, s.height = img.Cols(), img.Rows()
		s.mu.Unlock()

		if s.frames.Add(1) == 1 {
			s.readyOnce.Do(func() { close(s.ready) })
			s.logger.Info("Camera %s: first frame %dx%d", s.device, img.Cols(), img.Rows())
		}
	}
}

func (s *Stream) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Stream) isFile() bool {
	_, err := strconv.Atoi(s.device)
	return err != nil
}

// Ready is closed once the first frame has been decoded.
func (s *Stream) Ready() <-chan struct{} {
	return s.ready
}

// Read returns a copy of the current frame.
// After the stream ends it always fails with media.ErrDeviceUnavailable,
// never with a stale frame.
func (s *Stream) Read(ctx context.Context) (*Frame, error) {
	if s.finished() {
		return nil, errStreamClosed
	}
	select {
	case <-s.ready:
	case <-s.done:
		return nil, errStreamClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// ready i done moga byc oba zamkniete
	if s.finished() {
		return nil, errStreamClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest.Empty() {
		return nil, ErrNoFrame
	}
	return NewFrame(s.latest.Clone()), nil
}

// Geometry returns the frame letterboxed into the configured display size.
func (s *Stream) Geometry() detection.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return detection.Letterbox(s.width, s.height, s.opts.DisplayWidth, s.opts.DisplayHeight)
}

// FacingMode returns the facing mode the stream was opened for.
func (s *Stream) FacingMode() media.FacingMode {
	return s.mode
}

// Device returns the opened device.
func (s *Stream) Device() string {
	return s.device
}

// Frames returns the number of frames decoded so far.
func (s *Stream) Frames() uint64 {
	return s.frames.Load()
}

// Close stops the reader and releases the device.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		<-s.done

		s.mu.Lock()
		s.latest.Close()
		s.mu.Unlock()

		err = s.capture.Close()
		s.logger.Info("Camera %s released after %d frames", s.device, s.frames.Load())
	})
	return err
}
