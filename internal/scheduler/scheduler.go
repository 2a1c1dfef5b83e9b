// Package scheduler runs the bot's deferred work: cancellable one-shot
// jobs with a fixed fire time (grace-delay deletions) and recurring cron
// sweeps (expired challenge cleanup).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler owns one-shot timers keyed by job id plus a cron runner.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates an idle scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		cron:   cron.New(),
		logger: logger,
	}
}

// Start runs the cron jobs. Blocks until the context is cancelled, then
// stops cron and cancels every outstanding one-shot job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started")

	<-ctx.Done()
	s.cron.Stop()

	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// After schedules fn to run once after d, under the given id. Scheduling
// with an id that is already pending replaces the earlier job. fn runs on
// its own goroutine; panics are logged, not propagated.
func (s *Scheduler) After(id string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.Stop()
	}
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("deferred job panicked", "job", id, "panic", fmt.Sprintf("%v", r))
			}
		}()
		fn()
	})
	s.logger.Debug("job scheduled", "job", id, "delay", d)
}

// Cancel stops a pending one-shot job. Reports whether a job was pending.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, id)
	return true
}

// Every registers a recurring cron job. The spec is a standard cron
// expression or a predefined schedule like @every 1m.
func (s *Scheduler) Every(spec string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Pending returns the number of one-shot jobs waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
