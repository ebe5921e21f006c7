package api

import (
	"encoding/json"
	"net/http"

	"github.com/ez-emfi/volod/internal/models"
)

// getStatus returns the full controller readback: state, sticky flags,
// saturating counters, and the staged, active and effective snapshots.
func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// putConfig stages a complete configuration snapshot. The whole record must
// be sent every time; out-of-range values are accepted here and clamped by
// the controller at the point of use. If the gate is closed the write is
// staged and applies on the first tick back in Ready; the response reflects
// that by returning the full status including the pending staged snapshot.
func (h *Handlers) putConfig(w http.ResponseWriter, r *http.Request) {
	var snap models.ConfigSnapshot
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	h.ctrl.Stage(snap)
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// postReset requests an external reset: controller to Ready, both bank
// snapshots back to the compiled-in defaults, overriding any pending write.
func (h *Handlers) postReset(w http.ResponseWriter, r *http.Request) {
	h.ctrl.RequestReset()
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// postFire stages a one-shot force-fire cycle.
func (h *Handlers) postFire(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Fire()
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}
