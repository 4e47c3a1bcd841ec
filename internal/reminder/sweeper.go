// Package reminder runs the daily refill reminder sweep.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/notify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrSweepRunning is returned when a sweep is triggered while the
// previous one is still in flight.
var ErrSweepRunning = errors.New("a sweep is already running")

// Store defines the DB methods the sweeper needs.
// Satisfied by *database.Queries.
type Store interface {
	ListDueReminders(ctx context.Context, now time.Time) ([]database.Reminder, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

// Result summarizes one sweep run.
type Result struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Sweeper finds due reminders and dispatches them. Notify can be
// swapped out; the default logs the WhatsApp deep link for the staff to
// act on, since reminders are link-based like the rest of the
// notifications.
type Sweeper struct {
	store   Store
	Notify  func(ctx context.Context, r database.Reminder) error
	cron    *cron.Cron
	running atomic.Bool
	now     func() time.Time
}

// NewSweeper creates a Sweeper with the default link-logging notifier.
func NewSweeper(store Store) *Sweeper {
	s := &Sweeper{store: store, now: time.Now}
	s.Notify = func(_ context.Context, r database.Reminder) error {
		link := notify.WALink(r.Phone, notify.ReminderMessage(r.Name, r.OrderID))
		log.Printf("reminder due for %s: %s", r.OrderID, link)
		return nil
	}
	return s
}

// Start schedules the sweep with the given cron spec in the given time
// zone and returns once the scheduler is running.
func (s *Sweeper) Start(spec, tz string) error {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("load time zone %q: %w", tz, err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(spec, func() {
		result, err := s.RunOnce(context.Background())
		if err != nil {
			log.Printf("ERROR: reminder sweep: %v", err)
			return
		}
		log.Printf("reminder sweep: %d due, %d sent, %d failed", result.Due, result.Sent, result.Failed)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	return nil
}

// Stop halts the scheduler. A sweep already in progress finishes.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce processes every due reminder. A failing record is logged and
// skipped so one bad number never blocks the rest. Only one sweep runs
// at a time.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrSweepRunning
	}
	defer s.running.Store(false)

	due, err := s.store.ListDueReminders(ctx, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("list due reminders: %w", err)
	}

	result := Result{Due: len(due)}
	for _, r := range due {
		if err := s.Notify(ctx, r); err != nil {
			log.Printf("WARN: notify reminder %s: %v", r.OrderID, err)
			result.Failed++
			continue
		}
		if err := s.store.MarkReminderSent(ctx, r.ID); err != nil {
			log.Printf("WARN: mark reminder %s sent: %v", r.OrderID, err)
			result.Failed++
			continue
		}
		result.Sent++
	}
	return result, nil
}
