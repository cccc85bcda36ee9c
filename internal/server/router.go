// Package server wires the HTTP routes and runs the listener.
package server

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shineum/careers-relay/internal/intake"
)

// RouterConfig holds what the router serves.
type RouterConfig struct {
	// Intake handles POST /api/uploadResume.
	Intake http.Handler
	// Origins is the CORS allow list. Empty allows any origin.
	Origins []string
	// StaticDir is an optional built site served with an index.html fallback.
	StaticDir string
	// Gatherer exposes metrics on /metrics when set.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins := cfg.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			intake.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		if cfg.Intake != nil {
			r.Method(http.MethodPost, "/uploadResume", cfg.Intake)
		}
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			intake.WriteError(w, http.StatusNotFound, "API endpoint not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			intake.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
	})

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.StaticDir != "" {
		r.NotFound(spaHandler(cfg.StaticDir))
	} else {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			intake.WriteError(w, http.StatusNotFound, "Not found")
		})
	}

	return r
}

// spaHandler serves files from dir, falling back to dir/index.html for any
// GET that does not name a file so client-side routes resolve.
func spaHandler(dir string) http.HandlerFunc {
	root := http.Dir(dir)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			intake.WriteError(w, http.StatusNotFound, "Not found")
			return
		}

		if f, err := root.Open(path.Clean("/" + r.URL.Path)); err == nil {
			info, statErr := f.Stat()
			f.Close()
			if statErr == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		if _, err := os.Stat(index); err != nil {
			intake.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		http.ServeFile(w, r, index)
	}
}

// requestLogger logs one line per request once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"remote", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
