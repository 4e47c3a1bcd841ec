package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/bhumika-medical/api/internal/reminder"
	"github.com/go-chi/chi/v5"
)

// SweepRunner triggers a reminder sweep. Satisfied by *reminder.Sweeper.
type SweepRunner interface {
	RunOnce(ctx context.Context) (reminder.Result, error)
}

// RemindersHandler lets admins trigger the refill reminder sweep
// outside the daily schedule.
type RemindersHandler struct {
	sweeper SweepRunner
}

// NewRemindersHandler creates a new RemindersHandler.
func NewRemindersHandler(sweeper SweepRunner) *RemindersHandler {
	return &RemindersHandler{sweeper: sweeper}
}

// RegisterRoutes registers the sweep endpoint.
// Expected to be mounted inside the authenticated subrouter: /admin/reminders
func (h *RemindersHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sweep", h.Sweep)
}

// Sweep runs the reminder sweep now and reports the counts.
func (h *RemindersHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, reminder.ErrSweepRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a sweep is already running"})
			return
		}
		log.Printf("ERROR: reminder sweep: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
