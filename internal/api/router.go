package api

import (
	"context"
	"net/http"
	"time"

	"meal-planner/internal/auth"
	"meal-planner/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Handler   *Handler
	Store     Pinger
	JWTSecret []byte
	// DataPath is the local data directory reported by /health, if any.
	DataPath string
	Logger   *zap.SugaredLogger
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(cfg.Store, cfg.DataPath))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		r.Post("/generate", cfg.Handler.Generate)
	})

	return r
}

func healthHandler(store Pinger, dataPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status": "ok",
			"store":  "ok",
			"system": metrics.GetSysHealth(dataPath),
		}
		status := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["store"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Infow("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
