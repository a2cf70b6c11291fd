// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled operation.
type Job func(ctx context.Context) error

// Scheduler drives the periodic flush and the periodic summary rebuild from
// cron expressions. Failures are logged; consecutive flush failures raise
// one alert per streak so a dead disk does not flood the notifier.
type Scheduler struct {
	flushSpec   string
	rebuildSpec string
	flush       Job
	rebuild     Job
	// alert receives passive flush-failure notices. May be nil.
	alert func(message string)

	cron *cron.Cron

	mu       sync.Mutex
	failing  bool
	failures int
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler with the given cron specs and jobs. An empty spec
// disables that entry.
func New(flushSpec, rebuildSpec string, flush, rebuild Job, alert func(string)) *Scheduler {
	return &Scheduler{
		flushSpec:   flushSpec,
		rebuildSpec: rebuildSpec,
		flush:       flush,
		rebuild:     rebuild,
		alert:       alert,
		cron:        cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the entries and starts the cron ticker. An invalid spec
// is an error: a daemon silently never flushing is worse than failing
// loudly at startup.
func (s *Scheduler) Start() error {
	ctx := context.Background()

	if s.flushSpec != "" {
		if _, err := s.cron.AddFunc(s.flushSpec, func() { s.runFlush(ctx) }); err != nil {
			return fmt.Errorf("invalid flush schedule %q: %w", s.flushSpec, err)
		}
		slog.Info("scheduled flush", "schedule", s.flushSpec)
	}
	if s.rebuildSpec != "" {
		if _, err := s.cron.AddFunc(s.rebuildSpec, func() { s.runRebuild(ctx) }); err != nil {
			return fmt.Errorf("invalid rebuild schedule %q: %w", s.rebuildSpec, err)
		}
		slog.Info("scheduled summary rebuild", "schedule", s.rebuildSpec)
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) runFlush(ctx context.Context) {
	err := s.flush(ctx)

	s.mu.Lock()
	if err != nil {
		s.failures++
		firstOfStreak := !s.failing
		s.failing = true
		s.mu.Unlock()

		slog.Error("scheduled flush failed", "error", err)
		if firstOfStreak && s.alert != nil {
			s.alert(fmt.Sprintf("Background flush failing: %v", err))
		}
		return
	}
	recovered := s.failing
	s.failing = false
	s.mu.Unlock()

	if recovered {
		slog.Info("scheduled flush recovered")
	}
}

func (s *Scheduler) runRebuild(ctx context.Context) {
	if err := s.rebuild(ctx); err != nil {
		slog.Error("scheduled rebuild failed", "error", err)
		return
	}
	slog.Debug("scheduled rebuild completed")
}

// Failures returns the total count of failed scheduled flushes.
func (s *Scheduler) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// Reload stops the existing cron, swaps in new specs, and starts again.
func (s *Scheduler) Reload(flushSpec, rebuildSpec string) error {
	s.cron.Stop()
	s.flushSpec = flushSpec
	s.rebuildSpec = rebuildSpec
	s.cron = cron.New(cron.WithParser(cronParser))
	return s.Start()
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
