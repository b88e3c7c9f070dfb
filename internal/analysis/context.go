// Package analysis holds the command bodies behind the CLI: wiring the
// capture pipeline together, running it, and reporting over the
// observation store.
package analysis

import (
	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/detectors"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/pipeline"
	"github.com/nicovlr/coastwatch/internal/ratelimit"
	"github.com/nicovlr/coastwatch/internal/suncalc"
	"github.com/nicovlr/coastwatch/internal/vision"
	"github.com/nicovlr/coastwatch/internal/weather"
	"github.com/nicovlr/coastwatch/internal/webcam"
)

// Context is the assembled application: beach registry, open store and a
// ready pipeline. Built once per command invocation.
type Context struct {
	Settings *conf.Settings
	Beaches  []conf.Beach
	Store    datastore.Interface
	Pipeline *pipeline.Pipeline
}

// NewContext wires the application together from settings. The observation
// store is opened and the beach registry synced into it.
func NewContext(settings *conf.Settings) (*Context, error) {
	beaches, err := conf.LoadBeaches(settings.BeachesFile)
	if err != nil {
		return nil, err
	}

	store := datastore.New(settings)
	if store == nil {
		return nil, errors.NewStd("no observation store backend enabled")
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	if err := store.SyncBeaches(beaches); err != nil {
		_ = store.Close()
		return nil, err
	}

	var weatherService *weather.Service
	if settings.Weather.Enabled {
		weatherService, err = weather.NewService(&settings.Weather)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	var visionClient *vision.Client
	if settings.Vision.Enabled {
		visionClient = vision.NewClient(&settings.Vision)
	}

	registry := detectors.Build(settings, weatherService, visionClient)
	classifier := frame.NewClassifier(suncalc.New(), settings.Camera)
	limiter := ratelimit.New(&settings.RateLimit)
	grabber := webcam.NewGrabber(&settings.Capture)

	return &Context{
		Settings: settings,
		Beaches:  beaches,
		Store:    store,
		Pipeline: pipeline.New(settings, grabber, classifier, registry, limiter, store),
	}, nil
}

// Close releases the store connection.
func (c *Context) Close() error {
	return c.Store.Close()
}
