package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nicovlr/coastwatch/internal/errors"
)

// Coordinates is a geographic position
type Coordinates struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// WebcamConfig references the snapshot source of a beach camera.
// SnapshotURL may use the windy:// scheme to address a Windy webcam id.
type WebcamConfig struct {
	SnapshotURL     string            `yaml:"snapshot_url"`
	Type            string            `yaml:"type"`             // snapshot | mjpeg | hls
	RefreshInterval int               `yaml:"refresh_interval"` // seconds
	Headers         map[string]string `yaml:"headers"`
	FallbackURLs    []string          `yaml:"fallback_urls"`
}

// BeachMetadata carries static descriptive flags
type BeachMetadata struct {
	Orientation string `yaml:"orientation"`
	Timezone    string `yaml:"timezone"`
	SurfSpot    bool   `yaml:"surf_spot"`
}

// Beach is the static identity of a monitored beach. Immutable after load.
type Beach struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Region      string        `yaml:"region"`
	Coordinates Coordinates   `yaml:"coordinates"`
	Webcam      WebcamConfig  `yaml:"webcam"`
	Metadata    BeachMetadata `yaml:"metadata"`
}

type beachesFile struct {
	Beaches []Beach `yaml:"beaches"`
}

// LoadBeaches reads the beach registry from the given path. When path is
// empty the configured beachesfile is searched on the default config paths.
func LoadBeaches(path string) ([]Beach, error) {
	resolved, err := resolveBeachesPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.New(fmt.Errorf("reading beaches file: %w", err)).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", resolved).
			Build()
	}

	var parsed beachesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, errors.New(fmt.Errorf("parsing beaches file: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("path", resolved).
			Build()
	}

	if err := validateBeaches(parsed.Beaches); err != nil {
		return nil, err
	}

	applyBeachDefaults(parsed.Beaches)
	return parsed.Beaches, nil
}

func resolveBeachesPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	name := "beaches.yaml"
	if s := Setting(); s != nil && s.BeachesFile != "" {
		name = s.BeachesFile
	}
	if filepath.IsAbs(name) {
		return name, nil
	}

	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	for _, dir := range paths {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.Newf("beaches file %q not found in config paths", name).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}

func validateBeaches(beaches []Beach) error {
	if len(beaches) == 0 {
		return validationError("beaches file contains no beaches")
	}
	seen := make(map[string]bool, len(beaches))
	for i := range beaches {
		b := &beaches[i]
		if b.ID == "" {
			return validationError("beach at index %d has no id", i)
		}
		if seen[b.ID] {
			return validationError("duplicate beach id %q", b.ID)
		}
		seen[b.ID] = true
		if b.Webcam.SnapshotURL == "" {
			return validationError("beach %q has no webcam snapshot_url", b.ID)
		}
		if b.Coordinates.Latitude < -90 || b.Coordinates.Latitude > 90 {
			return validationError("beach %q latitude out of range: %g", b.ID, b.Coordinates.Latitude)
		}
		if b.Coordinates.Longitude < -180 || b.Coordinates.Longitude > 180 {
			return validationError("beach %q longitude out of range: %g", b.ID, b.Coordinates.Longitude)
		}
	}
	return nil
}

func applyBeachDefaults(beaches []Beach) {
	for i := range beaches {
		b := &beaches[i]
		if b.Webcam.Type == "" {
			b.Webcam.Type = "snapshot"
		}
		if b.Webcam.RefreshInterval == 0 {
			b.Webcam.RefreshInterval = 300
		}
		if b.Metadata.Orientation == "" {
			b.Metadata.Orientation = "west"
		}
		if b.Metadata.Timezone == "" {
			b.Metadata.Timezone = "Europe/Paris"
		}
	}
}

// FindBeach returns the beach with the given id, or nil when unknown.
func FindBeach(beaches []Beach, id string) *Beach {
	for i := range beaches {
		if beaches[i].ID == id {
			return &beaches[i]
		}
	}
	return nil
}
