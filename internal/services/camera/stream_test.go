package camera

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"detectserver/internal/logger"
	"detectserver/internal/media"

	"gocv.io/x/gocv"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir(), logger.SILENT)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAcquire_NoDeviceConfigured(t *testing.T) {
	c := media.ConstraintsFor("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")
	opts := Options{Devices: media.Devices{Front: "0"}}

	_, err := Acquire(context.Background(), c, opts, testLogger(t))
	if !errors.Is(err, media.ErrDeviceUnavailable) {
		t.Fatalf("Acquire() error = %v, expected ErrDeviceUnavailable", err)
	}
}

func TestAcquire_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Acquire(ctx, media.ConstraintsFor(""), Options{Devices: media.Devices{Front: "0"}}, testLogger(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() error = %v, expected context.Canceled", err)
	}
}

func TestCheckDevice(t *testing.T) {
	if err := checkDevice("rtsp://camera.local/stream"); err != nil {
		t.Errorf("stream URLs are not checked, got %v", err)
	}

	if runtime.GOOS != "linux" {
		t.Skip("device nodes are only checked on linux")
	}
	if err := checkDevice("987"); !errors.Is(err, media.ErrDeviceUnavailable) {
		t.Errorf("checkDevice(987) = %v, expected ErrDeviceUnavailable", err)
	}
}

func TestStream_ReadAfterEndNeverReturnsStaleFrame(t *testing.T) {
	s := &Stream{
		latest: gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	defer s.latest.Close()
	close(s.ready)
	close(s.done)

	for i := 0; i < 100; i++ {
		frame, err := s.Read(context.Background())
		if frame != nil {
			frame.Close()
		}
		if !errors.Is(err, media.ErrDeviceUnavailable) {
			t.Fatalf("Read() #%d error = %v, expected ErrDeviceUnavailable", i, err)
		}
	}
}
