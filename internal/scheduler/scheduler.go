// Package scheduler drives analysis passes over the beach registry, either
// as a single tick or as a daemon loop. Within a tick beaches are processed
// concurrently up to a configured bound; ticks themselves never overlap.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/logging"
)

// Clock abstracts time for the daemon loop so tests can drive ticks
// without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Runner executes one analysis pass for one beach. *pipeline.Pipeline is
// the production implementation.
type Runner interface {
	RunOnce(ctx context.Context, beach *conf.Beach) (*datastore.Observation, error)
}

// TickStats summarizes one scheduler tick.
type TickStats struct {
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Scheduler fans analysis passes out over the registry.
type Scheduler struct {
	settings *conf.Settings
	runner   Runner
	beaches  []conf.Beach
	clock    Clock
	log      *slog.Logger
}

// New creates a scheduler over the given beaches.
func New(settings *conf.Settings, runner Runner, beaches []conf.Beach) *Scheduler {
	return NewWithClock(settings, runner, beaches, systemClock{})
}

// NewWithClock creates a scheduler with an explicit clock.
func NewWithClock(settings *conf.Settings, runner Runner, beaches []conf.Beach, clock Clock) *Scheduler {
	return &Scheduler{
		settings: settings,
		runner:   runner,
		beaches:  beaches,
		clock:    clock,
		log:      logging.ForService("scheduler"),
	}
}

// RunTick processes every beach once, at most MaxConcurrent in parallel.
// A panicking or failing pass costs only its own beach. The returned error
// is non-nil only when every single pass failed, so operators notice
// system-wide outages while per-beach flakiness stays a log line.
func (s *Scheduler) RunTick(ctx context.Context) (TickStats, error) {
	start := s.clock.Now()

	limit := int64(s.settings.Capture.MaxConcurrent)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	stats := TickStats{}

	for i := range s.beaches {
		beach := &s.beaches[i]
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context cancelled while waiting for a slot
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			ok := s.runBeach(ctx, beach)
			mu.Lock()
			if ok {
				stats.Succeeded++
			} else {
				stats.Failed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	stats.Duration = s.clock.Now().Sub(start)
	s.log.Info("tick complete",
		"succeeded", stats.Succeeded, "failed", stats.Failed,
		"duration", stats.Duration)

	if stats.Succeeded == 0 && stats.Failed > 0 {
		return stats, errors.Newf("all %d beach passes failed", stats.Failed).
			Component("scheduler").
			Category(errors.CategoryScheduler).
			Build()
	}
	return stats, ctx.Err()
}

// runBeach executes one pass with panic containment.
func (s *Scheduler) runBeach(ctx context.Context, beach *conf.Beach) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("beach pass panicked", "beach_id", beach.ID, "panic", r)
			ok = false
		}
	}()

	if _, err := s.runner.RunOnce(ctx, beach); err != nil {
		s.log.Error("beach pass failed", "beach_id", beach.ID, "error", err)
		return false
	}
	return true
}

// Run executes ticks at the configured interval until the context is
// cancelled. A tick that overruns the interval is followed immediately by
// the next one; two ticks never run at the same time.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := time.Duration(s.settings.Capture.Interval) * time.Second
	s.log.Info("daemon started",
		"beaches", len(s.beaches), "interval", interval,
		"max_concurrent", s.settings.Capture.MaxConcurrent)

	for {
		tickStart := s.clock.Now()
		if _, err := s.RunTick(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := interval - s.clock.Now().Sub(tickStart)
		if wait <= 0 {
			s.log.Warn("tick overran the capture interval", "interval", interval)
			continue
		}

		select {
		case <-ctx.Done():
			s.log.Info("daemon stopping")
			return ctx.Err()
		case <-s.clock.After(wait):
		}
	}
}
