// Package ratelimit gates outbound calls to external providers. Each
// provider has an independent rolling-window quota, an optional minimum
// inter-call spacing, and an optional hard daily budget. A single Limiter
// is constructed at process start and passed by handle to every pipeline
// invocation so tests can inject isolated instances.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
)

// Provider keys for the three external dependencies guarded by the limiter.
const (
	ProviderWebcam  = "webcam"
	ProviderWeather = "weather"
	ProviderVision  = "vision"
)

// providerGate holds the limiter state for one provider.
type providerGate struct {
	window  *rate.Limiter // rolling per-minute quota
	spacing *rate.Limiter // optional min inter-call spacing, nil when disabled

	budgetMu    sync.Mutex
	dailyBudget int // 0 disables the daily cap
	dailyUsed   int
	resetDate   string // UTC date the counter belongs to, YYYY-MM-DD
}

// Limiter is a per-provider call gate. Safe for concurrent use across all
// beach pipelines; waiting callers are served in arrival order per provider.
type Limiter struct {
	mu    sync.RWMutex
	gates map[string]*providerGate
	now   func() time.Time // injectable for tests
}

// New creates a Limiter from the configured per-provider quotas.
func New(settings *conf.RateLimitSettings) *Limiter {
	l := &Limiter{
		gates: make(map[string]*providerGate, 3),
		now:   time.Now,
	}
	l.register(ProviderWebcam, &settings.Webcam)
	l.register(ProviderWeather, &settings.Weather)
	l.register(ProviderVision, &settings.Vision)
	return l
}

func (l *Limiter) register(provider string, q *conf.ProviderQuota) {
	gate := &providerGate{
		// Tokens refill continuously at rpm/60 per second with a burst of
		// rpm, so at most rpm calls pass in any rolling minute.
		window:      rate.NewLimiter(rate.Limit(float64(q.RequestsPerMinute))/60.0, q.RequestsPerMinute),
		dailyBudget: q.DailyBudget,
	}
	if q.MinSpacing > 0 {
		gate.spacing = rate.NewLimiter(rate.Every(time.Duration(q.MinSpacing*float64(time.Second))), 1)
	}

	l.mu.Lock()
	l.gates[provider] = gate
	l.mu.Unlock()
}

func (l *Limiter) gate(provider string) (*providerGate, error) {
	l.mu.RLock()
	gate, ok := l.gates[provider]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("unknown rate limit provider %q", provider).
			Component("ratelimit").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return gate, nil
}

// Acquire blocks until a permit for the provider is available or the
// context deadline elapses, in which case it returns ErrRateLimited.
// Waiting callers are served in arrival order.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	gate, err := l.gate(provider)
	if err != nil {
		return err
	}

	if err := gate.consumeDailyBudget(l.now()); err != nil {
		return err
	}

	if gate.spacing != nil {
		if err := gate.spacing.Wait(ctx); err != nil {
			gate.refundDailyBudget()
			return rateLimitedError(provider, err)
		}
	}
	if err := gate.window.Wait(ctx); err != nil {
		gate.refundDailyBudget()
		return rateLimitedError(provider, err)
	}
	return nil
}

// TryAcquire reports whether a permit is immediately available and
// consumes it when so. It never blocks.
func (l *Limiter) TryAcquire(provider string) bool {
	gate, err := l.gate(provider)
	if err != nil {
		return false
	}
	if err := gate.consumeDailyBudget(l.now()); err != nil {
		return false
	}
	if gate.spacing != nil && !gate.spacing.Allow() {
		gate.refundDailyBudget()
		return false
	}
	if !gate.window.Allow() {
		gate.refundDailyBudget()
		return false
	}
	return true
}

// RemainingToday returns how many calls are left in the provider's daily
// budget, or -1 when no daily budget is configured.
func (l *Limiter) RemainingToday(provider string) int {
	gate, err := l.gate(provider)
	if err != nil || gate.dailyBudget == 0 {
		return -1
	}
	gate.budgetMu.Lock()
	defer gate.budgetMu.Unlock()
	gate.rollBudgetLocked(l.now())
	return gate.dailyBudget - gate.dailyUsed
}

// consumeDailyBudget atomically checks and reserves one call from the
// daily budget. The reservation is refunded if the window wait fails.
func (g *providerGate) consumeDailyBudget(now time.Time) error {
	if g.dailyBudget == 0 {
		return nil
	}
	g.budgetMu.Lock()
	defer g.budgetMu.Unlock()

	g.rollBudgetLocked(now)
	if g.dailyUsed >= g.dailyBudget {
		return errors.New(fmt.Errorf("daily budget of %d calls exhausted, resets at midnight UTC: %w",
			g.dailyBudget, errors.ErrRateLimited)).
			Component("ratelimit").
			Category(errors.CategoryRateLimit).
			Build()
	}
	g.dailyUsed++
	return nil
}

func (g *providerGate) refundDailyBudget() {
	if g.dailyBudget == 0 {
		return
	}
	g.budgetMu.Lock()
	if g.dailyUsed > 0 {
		g.dailyUsed--
	}
	g.budgetMu.Unlock()
}

func (g *providerGate) rollBudgetLocked(now time.Time) {
	today := now.UTC().Format("2006-01-02")
	if g.resetDate != today {
		g.resetDate = today
		g.dailyUsed = 0
	}
}

func rateLimitedError(provider string, cause error) error {
	return errors.New(fmt.Errorf("no %s permit before deadline (%v): %w",
		provider, cause, errors.ErrRateLimited)).
		Component("ratelimit").
		Category(errors.CategoryRateLimit).
		Context("provider", provider).
		Build()
}
