package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"detectserver/internal/config"
	"detectserver/internal/handlers"
	"detectserver/internal/logger"
	"detectserver/internal/metrics"
	"detectserver/internal/middleware"
	"detectserver/internal/services"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(manager *services.Manager, m *metrics.Metrics, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// API endpoints
	mux.HandleFunc("/api/session", handlers.SessionHandler(manager, logger))
	mux.HandleFunc("/api/sessions", handlers.GetSessionsHandler(manager.Sessions(), logger))
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(manager, logger))
	mux.HandleFunc("/api/overlay.png", handlers.OverlayHandler(manager.Frames(), manager.Renderer(), logger))
	mux.HandleFunc("/stream", handlers.MJPEGHandler(manager.Frames(), m))

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		mux.HandleFunc("/logs/"+name, handlers.ShowLogsHandler(logger, name+".log"))
		mux.HandleFunc("/logs/"+name+"/clear", handlers.ClearLogsHandler(logger, name+".log"))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)

	mux.Handle("/metrics", m.Handler())

	// Automatic HTML handler mapping for example: /login -> /static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	// Apply middleware
	return middleware.AuthMiddleware(cfg.Password, mux)
}
