package stations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Category groups stations by the kind of unit being rented.
type Category string

const (
	CategoryTable   Category = "A"
	CategoryConsole Category = "B"
	CategoryRoom    Category = "C"
)

// Valid returns true when category is one of the fixed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryTable, CategoryConsole, CategoryRoom:
		return true
	default:
		return false
	}
}

// ParseCategory accepts either the letter code or its alias (table, console, room).
func ParseCategory(value string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "a", "table":
		return CategoryTable, nil
	case "b", "console":
		return CategoryConsole, nil
	case "c", "room":
		return CategoryRoom, nil
	default:
		return "", fmt.Errorf("station: unknown category %q", value)
	}
}

var (
	// ErrStationNotFound is returned when the id is not in the catalog.
	ErrStationNotFound = errors.New("station: not found")
	// ErrDuplicateStation is returned when the catalog holds the same id twice.
	ErrDuplicateStation = errors.New("station: duplicate id")
)

// Station is an immutable rentable unit.
type Station struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"category" yaml:"category"`
	RatePerHour float64  `json:"rate_per_hour" yaml:"rate_per_hour"`
}

// Validate checks station invariants.
func (s Station) Validate() error {
	if s.ID == "" {
		return errors.New("station: empty id")
	}
	if s.Name == "" {
		return errors.New("station: empty name")
	}
	if !s.Category.Valid() {
		return errors.New("station: invalid category")
	}
	if s.RatePerHour < 0 {
		return errors.New("station: negative rate")
	}
	return nil
}

// Source loads the station catalog at process start.
type Source interface {
	ListStations(ctx context.Context) ([]Station, error)
}

// Registry is the static station catalog. It is never mutated after construction.
type Registry struct {
	byID  map[string]Station
	order []string
}

// NewRegistry validates stations and builds a registry preserving the given order.
func NewRegistry(list []Station) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("station registry: empty catalog")
	}
	r := &Registry{byID: make(map[string]Station, len(list)), order: make([]string, 0, len(list))}
	for _, st := range list {
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("%w (id=%q)", err, st.ID)
		}
		if _, ok := r.byID[st.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStation, st.ID)
		}
		r.byID[st.ID] = st
		r.order = append(r.order, st.ID)
	}
	return r, nil
}

// Get returns the station with id.
func (r *Registry) Get(id string) (Station, error) {
	if r == nil {
		return Station{}, ErrStationNotFound
	}
	st, ok := r.byID[id]
	if !ok {
		return Station{}, ErrStationNotFound
	}
	return st, nil
}

// Has reports whether id is in the catalog.
func (r *Registry) Has(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byID[id]
	return ok
}

// List returns stations in catalog order.
func (r *Registry) List() []Station {
	if r == nil {
		return nil
	}
	out := make([]Station, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the station ids sorted lexically.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// ByCategory returns stations of the given category in catalog order.
func (r *Registry) ByCategory(c Category) []Station {
	var out []Station
	for _, st := range r.List() {
		if st.Category == c {
			out = append(out, st)
		}
	}
	return out
}
