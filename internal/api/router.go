// Package api exposes a small LAN-facing HTTP surface for observing the
// frame and triggering a refresh remotely.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/robr/muses-frame/internal/cache"
	"github.com/robr/muses-frame/internal/frame"
)

// Controller is the subset of the coordinator the API drives.
type Controller interface {
	Refresh(ctx context.Context)
	Status() frame.Status
}

// Store serves the newest cached image.
type Store interface {
	Latest() (cache.Record, error)
}

// NewRouter creates the HTTP router.
func NewRouter(ctrl Controller, store Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.CleanPath)

	h := &handlers{ctrl: ctrl, store: store}

	r.Get("/healthz", h.healthz)
	r.Get("/api/status", h.getStatus)
	r.Post("/api/refresh", h.postRefresh)
	r.Get("/api/image/latest", h.getLatestImage)

	return r
}
