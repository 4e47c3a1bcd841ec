package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bhumika-medical/api/internal/handler"
	"github.com/bhumika-medical/api/internal/reminder"
	"github.com/go-chi/chi/v5"
)

type mockSweeper struct {
	result reminder.Result
	err    error
}

func (m *mockSweeper) RunOnce(_ context.Context) (reminder.Result, error) {
	return m.result, m.err
}

func setupRemindersRouter(s *mockSweeper) *chi.Mux {
	h := handler.NewRemindersHandler(s)
	r := chi.NewRouter()
	r.Route("/admin/reminders", h.RegisterRoutes)
	return r
}

func TestReminderSweep_ReportsCounts(t *testing.T) {
	router := setupRemindersRouter(&mockSweeper{result: reminder.Result{Due: 3, Sent: 2, Failed: 1}})

	rr := doRequest(t, router, "POST", "/admin/reminders/sweep", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["due"] != float64(3) || resp["sent"] != float64(2) || resp["failed"] != float64(1) {
		t.Errorf("result: got %v", resp)
	}
}

func TestReminderSweep_AlreadyRunning(t *testing.T) {
	router := setupRemindersRouter(&mockSweeper{err: reminder.ErrSweepRunning})

	rr := doRequest(t, router, "POST", "/admin/reminders/sweep", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestReminderSweep_StoreFailure(t *testing.T) {
	router := setupRemindersRouter(&mockSweeper{err: errors.New("db down")})

	rr := doRequest(t, router, "POST", "/admin/reminders/sweep", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}
