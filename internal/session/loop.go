package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"detectserver/internal/detection"
	"detectserver/internal/logger"
)

// State is the loop driver state.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stream is an attached camera stream producing frames of type F.
type Stream[F io.Closer] interface {
	// Ready is closed once the first frame has been decoded.
	Ready() <-chan struct{}
	// Read returns a copy of the current frame. The caller closes it.
	Read(ctx context.Context) (F, error)
	// Geometry returns the display viewport of the stream.
	Geometry() detection.Viewport
}

// Invoker runs the model on a frame. Implementations release every buffer
// they allocate before returning, on success and on error.
type Invoker[F io.Closer] interface {
	Infer(ctx context.Context, frame F) (detection.RawPrediction, error)
}

// Presenter draws detections over a frame and hands the result to viewers.
type Presenter[F io.Closer] interface {
	Present(ctx context.Context, frame F, viewport detection.Viewport, detections []detection.Detection) error
}

// Scheduler waits for the next display frame.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// Observer receives per-frame outcomes. It may be nil.
type Observer interface {
	FrameProcessed(inference time.Duration, detections int)
	FrameFailed(stage string)
	StateChanged(state State)
}

// Settings is the explicit per-session context passed through the pipeline.
type Settings struct {
	Threshold float64
	Labels    detection.LabelTable
}

// InferenceError is a failure of a single frame. The loop logs it and moves on.
type InferenceError struct {
	Frame uint64
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("frame %d: %s: %v", e.Frame, e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Stats are counters for one run of the loop.
type Stats struct {
	Frames uint64
	Failed uint64
}

// Loop drives capture, inference, postprocessing and rendering one frame at a
// time. Frame N+1 starts only after frame N's inference has settled.
type Loop[F io.Closer] struct {
	stream    Stream[F]
	invoker   Invoker[F]
	presenter Presenter[F]
	scheduler Scheduler
	settings  Settings
	observer  Observer
	logger    *logger.Logger

	mu    sync.Mutex
	state State
	stats Stats
}

// NewLoop wires a loop. observer may be nil.
func NewLoop[F io.Closer](stream Stream[F], invoker Invoker[F], presenter Presenter[F],
	scheduler Scheduler, settings Settings, observer Observer, logger *logger.Logger) *Loop[F] {
	return &Loop[F]{
		stream:    stream,
		invoker:   invoker,
		presenter: presenter,
		scheduler: scheduler,
		settings:  settings,
		observer:  observer,
		logger:    logger,
	}
}

// State returns the current state.
func (l *Loop[F]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stats returns the frame counters so far.
func (l *Loop[F]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loop[F]) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.StateChanged(s)
	}
}

// Run blocks until ctx is cancelled. It waits for the stream's first frame,
// then processes frames until teardown. Per-frame errors never stop the loop.
func (l *Loop[F]) Run(ctx context.Context) error {
	select {
	case <-l.stream.Ready():
	case <-ctx.Done():
		return nil
	}

	l.setState(Running)
	defer l.setState(Idle)
	l.logger.Info("Detection loop running, viewport %.0fx%.0f", l.stream.Geometry().Width, l.stream.Geometry().Height)

	for {
		err := l.step(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Detection loop stopped after %d frames", l.Stats().Frames)
			return nil
		}
		if err != nil {
			l.logger.Error("%v", err)
		}

		if err := l.scheduler.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				l.logger.Error("Scheduler failed: %v", err)
				return err
			}
			l.logger.Info("Detection loop stopped after %d frames", l.Stats().Frames)
			return nil
		}
	}
}

// step runs one capture, infer, build, render cycle. A panic in any stage
// fails only this frame.
func (l *Loop[F]) step(ctx context.Context) (err error) {
	l.mu.Lock()
	l.stats.Frames++
	frameNum := l.stats.Frames
	l.mu.Unlock()

	stage := "capture"
	defer func() {
		if r := recover(); r != nil {
			l.logger.Debug("Frame %d panicked in %s:\n%s", frameNum, stage, debug.Stack())
			err = l.fail(frameNum, stage, fmt.Errorf("panic: %v", r))
		}
	}()

	frame, err := l.stream.Read(ctx)
	if err != nil {
		return l.fail(frameNum, stage, err)
	}
	defer frame.Close()

	stage = "inference"
	start := time.Now()
	raw, err := l.invoker.Infer(ctx, frame)
	if err != nil {
		return l.fail(frameNum, stage, err)
	}
	elapsed := time.Since(start)

	stage = "render"

	viewport := l.stream.Geometry()
	detections := detection.Build(raw, detection.Params{
		Threshold: l.settings.Threshold,
		Viewport:  viewport,
		Labels:    l.settings.Labels,
	})

	if err := l.presenter.Present(ctx, frame, viewport, detections); err != nil {
		return l.fail(frameNum, stage, err)
	}

	if l.observer != nil {
		l.observer.FrameProcessed(elapsed, len(detections))
	}
	l.logger.Debug("Frame %d: %d detections in %v", frameNum, len(detections), elapsed)
	return nil
}

func (l *Loop[F]) fail(frameNum uint64, stage string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	l.mu.Lock()
	l.stats.Failed++
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.FrameFailed(stage)
	}
	return &InferenceError{Frame: frameNum, Stage: stage, Err: err}
}
