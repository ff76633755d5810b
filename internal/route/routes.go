package route

import (
	"net/http"
	"os"
	"path/filepath"

	"fridgesight/internal/config"
	"fridgesight/internal/handler"
	"fridgesight/internal/logger"
	"fridgesight/internal/middleware"
	"fridgesight/internal/repository"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// Dependencies groups what the panel reads from.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Store     repository.Store
	Snapshots handler.SnapshotReader
	Status    handler.StatusProvider
	Viewers   handler.ViewerHub
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	cfg, log := deps.Config, deps.Logger
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Inventory endpoints
	mux.HandleFunc("/inventory", handler.InventoryHandler(deps.Store, log))
	mux.HandleFunc("/status", handler.StatusHandler(deps.Status, deps.Store, log))
	mux.HandleFunc("/api/history", handler.HistoryHandler(deps.Store, log))
	mux.HandleFunc("/api/events", handler.EventsHandler(deps.Store, log))
	mux.HandleFunc("/api/detections/latest", handler.LatestDetectionHandler(deps.Snapshots, log))
	mux.HandleFunc("/api/images/view", handler.ViewImageHandler(cfg))

	if deps.Viewers != nil {
		mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Viewers, log))
	}

	// Log endpoints
	for level, file := range map[string]string{
		"info":    logger.InfoFile,
		"warning": logger.WarningFile,
		"error":   logger.ErrorFile,
	} {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(cfg, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /login -> /static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(cfg.Password, mux)
}
