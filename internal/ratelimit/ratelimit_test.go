package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
)

func testSettings(rpm, daily int, spacing float64) *conf.RateLimitSettings {
	quota := conf.ProviderQuota{RequestsPerMinute: rpm, DailyBudget: daily, MinSpacing: spacing}
	return &conf.RateLimitSettings{Webcam: quota, Weather: quota, Vision: quota}
}

func TestAcquireWithinQuota(t *testing.T) {
	l := New(testSettings(60, 0, 0))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire(ctx, ProviderWeather))
	}
}

func TestAcquireUnknownProvider(t *testing.T) {
	l := New(testSettings(60, 0, 0))
	err := l.Acquire(context.Background(), "surfboard")
	assert.Error(t, err)
}

func TestQuotaNeverExceededWithinWindow(t *testing.T) {
	const quota = 5
	const requesters = 20

	l := New(testSettings(quota, 0, 0))

	var granted, limited atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			if err := l.Acquire(ctx, ProviderVision); err != nil {
				assert.True(t, errors.Is(err, errors.ErrRateLimited))
				limited.Add(1)
			} else {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	// The burst admits exactly quota callers immediately; refill within
	// the 50ms deadline is under one token, so at most quota+1 pass.
	assert.LessOrEqual(t, granted.Load(), int32(quota+1))
	assert.GreaterOrEqual(t, granted.Load(), int32(quota))
	assert.Equal(t, int32(requesters), granted.Load()+limited.Load())
}

func TestTryAcquireNonBlocking(t *testing.T) {
	l := New(testSettings(2, 0, 0))

	assert.True(t, l.TryAcquire(ProviderWebcam))
	assert.True(t, l.TryAcquire(ProviderWebcam))
	// burst exhausted
	assert.False(t, l.TryAcquire(ProviderWebcam))
	// independent provider unaffected
	assert.True(t, l.TryAcquire(ProviderWeather))
}

func TestDailyBudgetExhaustion(t *testing.T) {
	l := New(testSettings(600, 3, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx, ProviderVision))
	}
	err := l.Acquire(ctx, ProviderVision)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
	assert.Equal(t, 0, l.RemainingToday(ProviderVision))
}

func TestDailyBudgetResetsAtMidnightUTC(t *testing.T) {
	l := New(testSettings(600, 2, 0))

	day := time.Date(2025, 7, 1, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return day }

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, ProviderVision))
	require.NoError(t, l.Acquire(ctx, ProviderVision))
	require.Error(t, l.Acquire(ctx, ProviderVision))

	l.now = func() time.Time { return day.Add(2 * time.Minute) } // past midnight
	require.NoError(t, l.Acquire(ctx, ProviderVision))
	assert.Equal(t, 1, l.RemainingToday(ProviderVision))
}

func TestBudgetRefundedWhenWindowDeadlineElapses(t *testing.T) {
	l := New(testSettings(1, 5, 0))
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, ProviderVision)) // consumes burst + 1 budget

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := l.Acquire(shortCtx, ProviderVision)
	require.Error(t, err)

	// The failed acquire must not eat budget.
	assert.Equal(t, 4, l.RemainingToday(ProviderVision))
}

func TestRemainingTodayWithoutBudget(t *testing.T) {
	l := New(testSettings(60, 0, 0))
	assert.Equal(t, -1, l.RemainingToday(ProviderWeather))
}
