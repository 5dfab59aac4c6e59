// Package httptransport assembles the public HTTP surface: the registration
// API plus the operational health and metrics endpoints.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mhreg/internal/platform/redis"
	"mhreg/internal/transport/http/shared"
)

// Pinger reports reachability of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Registrar mounts a feature's routes on the root router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthStatus is the /healthz response body.
type HealthStatus struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Cache  string `json:"cache,omitempty"`
}

// NewRouter wires the feature handlers and operational endpoints. The redis
// client may be nil when no cache backend is configured.
func NewRouter(registration Registrar, store Pinger, cache *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth(store, cache))
	r.Handle("/metrics", promhttp.Handler())

	registration.Register(r)
	return r
}

func handleHealth(store Pinger, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := HealthStatus{Status: "ok", Store: "ok"}
		httpStatus := http.StatusOK
		if err := store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Store = err.Error()
			httpStatus = http.StatusServiceUnavailable
		}
		if cache != nil {
			status.Cache = "ok"
			if err := cache.Health(ctx); err != nil {
				// A cache outage degrades latency, not availability.
				status.Cache = err.Error()
			}
		}
		shared.WriteJSON(w, httpStatus, status)
	}
}
