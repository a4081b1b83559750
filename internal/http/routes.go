package httpx

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/target/mediafetch/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Downloads *service.DownloadService
	Logger    *slog.Logger // Optional: access and panic logs
}

// NewRouter creates the API router wrapped in logging and panic recovery.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	registerDownloadRoutes(mux, &DownloadHandlers{Svc: services.Downloads})
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	return Logging(logger)(Recover(logger)(mux))
}

func registerDownloadRoutes(mux *http.ServeMux, h *DownloadHandlers) {
	mux.HandleFunc("POST /api/download", h.Submit)
	mux.HandleFunc("GET /api/progress/{id}", h.Progress)
	mux.HandleFunc("GET /api/download_file/{id}", h.File)
	mux.HandleFunc("POST /api/info", h.Info)
	mux.HandleFunc("GET /api/jobs", h.List)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.Cancel)
	mux.HandleFunc("GET /api/platforms", h.Platforms)
}

const healthResponse = `{"status":"ok"}`

// healthHandler answers liveness probes. HEAD gets headers only.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}
