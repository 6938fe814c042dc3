package config

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	stations "venue-timers/internal/stations/domain"
)

type catalogFile struct {
	Stations []stationEntry `yaml:"stations"`
}

type stationEntry struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	RatePerHour float64 `yaml:"rate_per_hour"`
}

// FileSource reads the station catalog from a YAML file.
type FileSource struct {
	path string
}

// NewFileSource constructs a FileSource.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, errors.New("station catalog: empty path")
	}
	return &FileSource{path: path}, nil
}

// ListStations implements stations.Source.
func (s *FileSource) ListStations(_ context.Context) ([]stations.Station, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) ([]stations.Station, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Stations) == 0 {
		return nil, errors.New("station catalog: no stations")
	}
	out := make([]stations.Station, 0, len(doc.Stations))
	for _, entry := range doc.Stations {
		category, err := stations.ParseCategory(entry.Category)
		if err != nil {
			return nil, err
		}
		out = append(out, stations.Station{
			ID:          entry.ID,
			Name:        entry.Name,
			Category:    category,
			RatePerHour: entry.RatePerHour,
		})
	}
	return out, nil
}
