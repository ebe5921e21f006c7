package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ez-emfi/volod/internal/models"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(ctrl Controller, bus EventBus, info models.Info) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus, info: info}

	// Status and configuration
	r.Get("/api/status", h.getStatus)
	r.Put("/api/config", h.putConfig)

	// Control
	r.Post("/api/reset", h.postReset)
	r.Post("/api/fire", h.postFire)

	// System
	r.Get("/api/info", h.getInfo)

	// SSE
	r.Get("/api/subscribe", h.sseEvents)

	return r
}
