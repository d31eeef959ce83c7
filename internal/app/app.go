package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"detectserver/internal/config"
	"detectserver/internal/detection"
	"detectserver/internal/logger"
	"detectserver/internal/metrics"
	"detectserver/internal/repository/sqlite"
	"detectserver/internal/routes"
	"detectserver/internal/services"
	"detectserver/internal/services/storage"
	"detectserver/internal/services/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	metrics    *metrics.Metrics
	hubService *websocket.HubService
	manager    *services.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}
	sessions := sqlite.NewSessionRepository(db)
	if n, err := sessions.FinishDangling(time.Now(), "server restart"); err != nil {
		log.Warning("Failed to close dangling sessions: %v", err)
	} else if n > 0 {
		log.Info("Closed %d sessions left open by the previous run", n)
	}

	labels, err := detection.LoadLabels(cfg.LabelsPath)
	if err != nil {
		// bez etykiet wszystko jest "undefined", ale detekcja dziala
		log.Warning("Labels not loaded: %v", err)
	} else {
		log.Info("Loaded %d labels from %s", labels.Len(), cfg.LabelsPath)
	}

	m := metrics.New()
	hub := websocket.NewHubService(m, log)
	mng := services.NewManager(cfg, labels, storage.NewFrameStore(), hub, sessions, m, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		metrics:    m,
		hubService: hub,
		manager:    mng,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then tears the session down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.hubService.Run(ctx)

	// model laduje sie od razu, zeby pierwsza sesja nie czekala
	a.manager.LoadModelAsync()

	if a.config.AutoStart {
		if _, err := a.manager.Start(ctx, a.config.AutoStartUserAgent); err != nil {
			a.logger.Error("Auto start failed: %v", err)
		}
	}

	router := routes.SetupRoutes(a.manager, a.metrics, a.config, a.logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Detection server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Model: %s, threshold %.2f, %d fps", a.config.ModelPath, a.config.Threshold, a.config.TargetFPS)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP shutdown: %v", err)
	}

	a.close()
	return serveErr
}

func (a *App) close() {
	if err := a.manager.Close(); err != nil {
		a.logger.Error("Manager close: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Database close: %v", err)
	}
	a.logger.Close()
}
