// Package httpapi assembles the admin HTTP surface.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"guildpulse/internal/auth"
	"guildpulse/internal/events"
	"guildpulse/internal/lifecycle"
	"guildpulse/internal/raid"
	"guildpulse/internal/xp"
)

// Deps are the handlers and infrastructure mounted by NewRouter.
type Deps struct {
	Events    *events.Handler
	Lifecycle *lifecycle.Handler
	Raid      *raid.Handler
	Booster   *xp.Booster
	// AdminTokenHash guards /api/v1; empty disables auth.
	AdminTokenHash string
	// DB is pinged by /healthz when set.
	DB       *sql.DB
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

// NewRouter mounts every endpoint under /api/v1 plus /healthz and /metrics.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(d.DB))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(d.AdminTokenHash))

		r.Route("/events", func(r chi.Router) {
			if d.Events != nil {
				d.Events.Routes(r)
			}
			if d.Lifecycle != nil {
				d.Lifecycle.Routes(r)
			}
		})
		if d.Lifecycle != nil && d.Lifecycle.SweepEnabled() {
			r.Post("/sweep", d.Lifecycle.HandleSweep)
		}
		if d.Raid != nil {
			r.Post("/contributions", d.Raid.HandleActivity)
			r.Route("/raids", d.Raid.Routes)
		}
		if d.Booster != nil {
			r.Get("/xp/multiplier", d.Booster.HandleMultiplier)
		}
	})
	return r
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status, code = "database unavailable", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
