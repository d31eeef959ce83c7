package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"detectserver/internal/config"
	"detectserver/internal/detection"
	"detectserver/internal/logger"
	"detectserver/internal/media"
	"detectserver/internal/metrics"
	"detectserver/internal/model"
	"detectserver/internal/render"
	"detectserver/internal/repository"
	"detectserver/internal/services/ai"
	"detectserver/internal/services/camera"
	"detectserver/internal/services/storage"
	"detectserver/internal/services/websocket"
	"detectserver/internal/session"
)

var (
	ErrSessionActive = errors.New("detection session already running")
	ErrNoSession     = errors.New("no detection session running")
)

// Stop reasons stored in the session history.
const (
	StopViewer   = "viewer request"
	StopShutdown = "server shutdown"
	StopCamera   = "camera lost"
)

// Status is a snapshot of the manager for the API.
type Status struct {
	State       string              `json:"state"`
	ModelLoaded bool                `json:"model_loaded"`
	Viewers     int                 `json:"viewers"`
	Session     *model.Session      `json:"session,omitempty"`
	Viewport    *detection.Viewport `json:"viewport,omitempty"`
	Frames      uint64              `json:"frames"`
	Failed      uint64              `json:"failed_frames"`
}

type activeSession struct {
	record    *model.Session
	stream    *camera.Stream
	loop      *session.Loop[*camera.Frame]
	scheduler *session.TickerScheduler
	cancel    context.CancelFunc
	done      chan struct{}
	reason    atomic.Value
}

// Manager owns the camera, the model and the detection loop of the single
// active session.
type Manager struct {
	config   *config.Config
	invoker  *ai.Invoker
	labels   detection.LabelTable
	renderer *render.Renderer
	frames   *storage.FrameStore
	hub      *websocket.HubService
	sessions repository.SessionRepository
	metrics  *metrics.Metrics
	logger   *logger.Logger

	loading atomic.Bool

	mu      sync.Mutex
	current *activeSession
}

func NewManager(config *config.Config, labels detection.LabelTable, frames *storage.FrameStore,
	hub *websocket.HubService, sessions repository.SessionRepository, metrics *metrics.Metrics, logger *logger.Logger) *Manager {
	params := ai.PreprocessParams{
		Size:   config.InputSize,
		Scale:  config.InputScale,
		Mean:   config.InputMean,
		SwapRB: true,
	}

	return &Manager{
		config:   config,
		invoker:  ai.NewInvoker(params, logger),
		labels:   labels,
		renderer: render.NewRenderer(),
		frames:   frames,
		hub:      hub,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// LoadModelAsync starts loading the model unless it is loaded or loading.
// The returned channel closes when the attempt ends.
func (m *Manager) LoadModelAsync() <-chan struct{} {
	done := make(chan struct{})
	if m.invoker.Model() != nil || !m.loading.CompareAndSwap(false, true) {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		defer m.loading.Store(false)

		start := time.Now()
		loaded, err := ai.LoadModel(ai.ModelOptions{
			Path:       m.config.ModelPath,
			ConfigPath: m.config.ModelConfigPath,
			Backend:    m.config.ModelBackend,
			Target:     m.config.ModelTarget,
		})
		if err != nil {
			m.logger.Error("Model load failed, frames will be skipped: %v", err)
			return
		}

		if old := m.invoker.SetModel(loaded); old != nil {
			old.Close()
		}
		m.logger.Info("Model %s loaded in %v", loaded.Path(), time.Since(start).Round(time.Millisecond))
	}()
	return done
}

// Start opens the camera for the viewer's user-agent and starts the loop.
// The model loads in the background at the same time.
func (m *Manager) Start(ctx context.Context, userAgent string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, ErrSessionActive
	}

	m.LoadModelAsync()

	constraints := media.ConstraintsFor(userAgent)
	stream, err := camera.Acquire(ctx, constraints, camera.Options{
		Devices:       media.Devices{Front: m.config.FrontCamera, Rear: m.config.RearCamera},
		DisplayWidth:  m.config.DisplayWidth,
		DisplayHeight: m.config.DisplayHeight,
	}, m.logger)
	if err != nil {
		m.logger.Error("Camera acquisition failed: %v", err)
		return nil, err
	}

	record := &model.Session{
		FacingMode: string(constraints.Video.FacingMode),
		Device:     stream.Device(),
		UserAgent:  userAgent,
		StartedAt:  time.Now(),
	}
	if _, err := m.sessions.Insert(record); err != nil {
		// historia nie jest krytyczna
		m.logger.Warning("Failed to record session: %v", err)
	}

	scheduler := session.NewTickerScheduler(m.config.TargetFPS)
	pres := newPresenter(m.renderer, m.frames, m.hub, m.metrics, m.logger)
	loop := session.NewLoop[*camera.Frame](stream, m.invoker, pres, scheduler,
		session.Settings{Threshold: m.config.Threshold, Labels: m.labels}, m.metrics, m.logger)

	loopCtx, cancel := context.WithCancel(context.Background())
	active := &activeSession{
		record:    record,
		stream:    stream,
		loop:      loop,
		scheduler: scheduler,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.current = active

	go m.run(loopCtx, active)

	m.logger.Info("Session %d started: facing %s on device %s", record.ID, record.FacingMode, record.Device)
	return record, nil
}

func (m *Manager) run(ctx context.Context, active *activeSession) {
	defer close(active.done)

	if err := active.loop.Run(ctx); err != nil {
		m.logger.Error("Detection loop ended: %v", err)
		active.reason.CompareAndSwap(nil, StopCamera)
	}

	active.scheduler.Stop()
	if err := active.stream.Close(); err != nil {
		m.logger.Warning("Failed to release camera: %v", err)
	}
	m.frames.Reset()

	reason, _ := active.reason.Load().(string)
	if reason == "" {
		reason = StopCamera
	}
	stats := active.loop.Stats()
	if active.record.ID != 0 {
		err := m.sessions.Finish(active.record.ID, time.Now(), model.SessionStats{
			Frames:       stats.Frames,
			FailedFrames: stats.Failed,
			StopReason:   reason,
		})
		if err != nil {
			m.logger.Warning("Failed to finish session %d: %v", active.record.ID, err)
		}
	}

	m.mu.Lock()
	if m.current == active {
		m.current = nil
	}
	m.mu.Unlock()

	m.logger.Info("Session %d stopped (%s): %d frames, %d failed", active.record.ID, reason, stats.Frames, stats.Failed)
}

// Stop tears the active session down and waits for the camera to be released.
func (m *Manager) Stop(reason string) error {
	m.mu.Lock()
	active := m.current
	m.mu.Unlock()

	if active == nil {
		return ErrNoSession
	}

	active.reason.CompareAndSwap(nil, reason)
	active.cancel()
	<-active.done
	return nil
}

// Status returns the state of the manager.
func (m *Manager) Status() Status {
	m.mu.Lock()
	active := m.current
	m.mu.Unlock()

	status := Status{
		State:       session.Idle.String(),
		ModelLoaded: m.invoker.Model() != nil,
		Viewers:     m.hub.GetClientCount() + m.frames.Subscribers(),
	}
	if active == nil {
		return status
	}

	record := *active.record
	stats := active.loop.Stats()
	status.State = active.loop.State().String()
	status.Session = &record
	status.Frames = stats.Frames
	status.Failed = stats.Failed
	if active.loop.State() == session.Running {
		viewport := active.stream.Geometry()
		status.Viewport = &viewport
	}
	return status
}

// Close stops the session and releases the model.
func (m *Manager) Close() error {
	if err := m.Stop(StopShutdown); err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	if loaded := m.invoker.SetModel(nil); loaded != nil {
		if err := loaded.Close(); err != nil {
			return fmt.Errorf("failed to release model: %w", err)
		}
	}
	return nil
}

func (m *Manager) Frames() *storage.FrameStore {
	return m.frames
}

func (m *Manager) Hub() *websocket.HubService {
	return m.hub
}

func (m *Manager) Renderer() *render.Renderer {
	return m.renderer
}

func (m *Manager) Sessions() repository.SessionRepository {
	return m.sessions
}
