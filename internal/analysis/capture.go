package analysis

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/logging"
	"github.com/nicovlr/coastwatch/internal/scheduler"
)

// Capture runs the analysis pass over every configured beach, or a single
// one when beachID is non-empty. With daemon set it keeps running at the
// configured interval until SIGINT or SIGTERM.
func Capture(settings *conf.Settings, daemon bool, beachID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewContext(settings)
	if err != nil {
		return err
	}
	defer app.Close()

	beaches, err := selectBeaches(app.Beaches, beachID)
	if err != nil {
		return err
	}

	sched := scheduler.New(settings, app.Pipeline, beaches)

	if daemon {
		err := sched.Run(ctx)
		if errors.Is(err, context.Canceled) {
			logging.Info("shutdown complete")
			return nil
		}
		return err
	}

	_, err = sched.RunTick(ctx)
	return err
}

// selectBeaches narrows the registry to one beach when an id is given.
func selectBeaches(beaches []conf.Beach, beachID string) ([]conf.Beach, error) {
	if beachID == "" {
		return beaches, nil
	}
	beach := conf.FindBeach(beaches, beachID)
	if beach == nil {
		return nil, errors.Newf("unknown beach %q: %w", beachID, errors.ErrNotFound).
			Component("analysis").
			Category(errors.CategoryNotFound).
			Build()
	}
	return []conf.Beach{*beach}, nil
}
