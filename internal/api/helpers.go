// Package api implements the HTTP control interface for the pulse driver.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ez-emfi/volod/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
	info   models.Info
}

// Controller is the interface the handlers use to drive the pulse core.
type Controller interface {
	// Status returns the full controller readback.
	Status() models.Status

	// Stage submits a complete configuration snapshot; partial updates are
	// not a supported contract.
	Stage(snap models.ConfigSnapshot)

	// RequestReset schedules an external reset for the next tick.
	RequestReset()

	// Fire stages a one-shot force-fire cycle.
	Fire()
}

// EventBus is the interface for subscribing to status change events.
type EventBus interface {
	Subscribe(id string) <-chan models.Status
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}
