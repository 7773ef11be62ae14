package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openclaw/qrstudio/export"
	"github.com/openclaw/qrstudio/render"
	"github.com/openclaw/qrstudio/session"
	"github.com/openclaw/qrstudio/store"
)

// Server holds the dependencies for all HTTP handlers. Exports and Webhook
// are optional.
type Server struct {
	Renderer *render.Renderer
	Sessions *session.Registry
	Defaults session.Defaults
	Exports  *store.ExportLog
	Webhook  *export.Webhook
	Log      *slog.Logger
	Version  string
	Started  time.Time
}

// NewRouter returns a fully configured chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(requestLogger(s.Log))

	// Generator web UI
	r.Get("/", s.handleIndex)
	r.Get("/status", s.handleStatus)

	// Stateless rendering
	r.Post("/render", s.handleRender)
	r.Post("/render/download", s.handleRenderDownload)

	// Editing sessions
	r.Post("/sessions", s.handleCreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleDeleteSession)
		r.Put("/input", s.handleSessionInput)
		r.Put("/options", s.handleSessionOptions)
		r.Put("/logo", s.handleSessionLogo)
		r.Delete("/logo", s.handleSessionRemoveLogo)
		r.Post("/reset", s.handleSessionReset)
		r.Get("/download", s.handleSessionDownload)
	})

	r.Get("/exports", s.handleListExports)

	return r
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

// --- middleware --------------------------------------------------------------

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
