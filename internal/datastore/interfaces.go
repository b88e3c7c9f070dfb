// interfaces.go: defines the interface for observation store operations
package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/logging"
)

// Interface abstracts the underlying database implementation and defines
// the observation store operations the rest of the system may use.
// Append-only by construction: there is no update or delete operation.
type Interface interface {
	Open() error
	Save(observation *Observation) error
	Latest(beachID string) (*Observation, error)
	History(beachID string, since time.Time, limit int) ([]Observation, error)
	LatestPerBeach(maxAge time.Duration, now time.Time) ([]Observation, error)
	SyncBeaches(beaches []conf.Beach) error
	GetBeaches() ([]BeachRecord, error)
	Close() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB  *gorm.DB
	log *slog.Logger
}

// New creates a store instance based on the enabled output backend.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{log: logging.ForService("datastore")},
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: DataStore{log: logging.ForService("datastore")},
			Settings:  settings,
		}
	default:
		return nil
	}
}

// performAutoMigration migrates the schema and returns a database-category
// error when migration fails.
func performAutoMigration(db *gorm.DB, backend, path string) error {
	if err := db.AutoMigrate(&Observation{}, &BeachRecord{}); err != nil {
		return errors.New(fmt.Errorf("migrating %s schema: %w", backend, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("backend", backend).
			Context("path", path).
			Build()
	}
	return nil
}

// Save appends a single observation. The write is one INSERT and therefore
// atomic per call; concurrent beach pipelines may append without
// interleaving corruption.
func (ds *DataStore) Save(observation *Observation) error {
	if ds.DB == nil {
		return storeNotOpenError()
	}
	observation.CapturedAt = observation.CapturedAt.UTC()

	if err := ds.DB.Create(observation).Error; err != nil {
		return errors.New(fmt.Errorf("saving observation: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("beach_id", observation.BeachID).
			Build()
	}

	ds.log.Debug("observation appended",
		"beach_id", observation.BeachID,
		"camera_state", observation.CameraState,
		"captured_at", observation.CapturedAt)
	return nil
}

// Latest returns the most recent observation for a beach, or ErrNotFound.
func (ds *DataStore) Latest(beachID string) (*Observation, error) {
	if ds.DB == nil {
		return nil, storeNotOpenError()
	}

	var observation Observation
	err := ds.DB.Where("beach_id = ?", beachID).
		Order("captured_at DESC").
		First(&observation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(fmt.Errorf("no observations for beach %s: %w", beachID, errors.ErrNotFound)).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, queryError(err, beachID)
	}
	return &observation, nil
}

// History returns observations for a beach since the given instant,
// ordered by capture time ascending. A limit of 0 means no limit.
func (ds *DataStore) History(beachID string, since time.Time, limit int) ([]Observation, error) {
	if ds.DB == nil {
		return nil, storeNotOpenError()
	}

	query := ds.DB.Where("beach_id = ? AND captured_at >= ?", beachID, since.UTC()).
		Order("captured_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var observations []Observation
	if err := query.Find(&observations).Error; err != nil {
		return nil, queryError(err, beachID)
	}
	return observations, nil
}

// LatestPerBeach returns each beach's most recent observation captured
// within maxAge of now. Beaches with no recent observation are simply
// absent from the result.
func (ds *DataStore) LatestPerBeach(maxAge time.Duration, now time.Time) ([]Observation, error) {
	if ds.DB == nil {
		return nil, storeNotOpenError()
	}

	cutoff := now.UTC().Add(-maxAge)
	sub := ds.DB.Model(&Observation{}).
		Select("beach_id, MAX(captured_at) AS latest").
		Where("captured_at > ?", cutoff).
		Group("beach_id")

	var observations []Observation
	err := ds.DB.Model(&Observation{}).
		Joins("INNER JOIN (?) AS t ON observations.beach_id = t.beach_id AND observations.captured_at = t.latest", sub).
		Find(&observations).Error
	if err != nil {
		return nil, queryError(err, "")
	}
	return observations, nil
}

// SyncBeaches upserts the static beach registry from configuration.
func (ds *DataStore) SyncBeaches(beaches []conf.Beach) error {
	if ds.DB == nil {
		return storeNotOpenError()
	}

	for i := range beaches {
		b := &beaches[i]
		record := BeachRecord{
			ID:          b.ID,
			Name:        b.Name,
			Region:      b.Region,
			Latitude:    b.Coordinates.Latitude,
			Longitude:   b.Coordinates.Longitude,
			Orientation: b.Metadata.Orientation,
			SurfSpot:    b.Metadata.SurfSpot,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := ds.DB.Save(&record).Error; err != nil {
			return errors.New(fmt.Errorf("syncing beach %s: %w", b.ID, err)).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
	}
	return nil
}

// GetBeaches returns the synced beach registry.
func (ds *DataStore) GetBeaches() ([]BeachRecord, error) {
	if ds.DB == nil {
		return nil, storeNotOpenError()
	}
	var records []BeachRecord
	if err := ds.DB.Order("id ASC").Find(&records).Error; err != nil {
		return nil, queryError(err, "")
	}
	return records, nil
}

// Close closes the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storeNotOpenError() error {
	return errors.NewStd("observation store is not open")
}

func queryError(err error, beachID string) error {
	builder := errors.New(fmt.Errorf("querying observations: %w", err)).
		Component("datastore").
		Category(errors.CategoryDatabase)
	if beachID != "" {
		builder = builder.Context("beach_id", beachID)
	}
	return builder.Build()
}
