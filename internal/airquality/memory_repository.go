package airquality

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	readings map[string]*Reading
	nextID   int64
}

// NewInMemoryRepository creates a new in-memory reading repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		readings: make(map[string]*Reading),
		nextID:   1,
	}
}

// readingKey identifies a reading by location and observation time, matching
// the uniqueness constraint of the postgres table.
func readingKey(lat, lon float64, recordedAt time.Time) string {
	return fmt.Sprintf("%.6f:%.6f:%d", lat, lon, recordedAt.Unix())
}

// Upsert stores a reading, replacing any existing reading for the same
// location and observation time.
func (r *InMemoryRepository) Upsert(_ context.Context, reading *Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := readingKey(reading.Lat, reading.Lon, reading.RecordedAt)
	if existing, ok := r.readings[key]; ok {
		reading.ID = existing.ID
	} else {
		reading.ID = r.nextID
		r.nextID++
	}

	cpy := *reading
	r.readings[key] = &cpy
	return nil
}

// Within retrieves readings inside the bounding box recorded at or after
// since.
func (r *InMemoryRepository) Within(_ context.Context, bounds Bounds, since time.Time) ([]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var readings []*Reading
	for _, reading := range r.readings {
		if reading.Lat < bounds.MinLat || reading.Lat > bounds.MaxLat {
			continue
		}
		if reading.Lon < bounds.MinLon || reading.Lon > bounds.MaxLon {
			continue
		}
		if reading.RecordedAt.Before(since) {
			continue
		}
		cpy := *reading
		readings = append(readings, &cpy)
	}

	sort.Slice(readings, func(a, b int) bool {
		return readings[a].RecordedAt.After(readings[b].RecordedAt)
	})

	return readings, nil
}

// Near retrieves readings within radiusKm of the point recorded at or after
// since, ordered nearest first.
func (r *InMemoryRepository) Near(_ context.Context, lat, lon, radiusKm float64, since time.Time) ([]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	radiusMeters := radiusKm * 1000
	var readings []*Reading
	for _, reading := range r.readings {
		if reading.RecordedAt.Before(since) {
			continue
		}
		if haversineDistance(lat, lon, reading.Lat, reading.Lon) > radiusMeters {
			continue
		}
		cpy := *reading
		readings = append(readings, &cpy)
	}

	sort.Slice(readings, func(a, b int) bool {
		da := haversineDistance(lat, lon, readings[a].Lat, readings[a].Lon)
		db := haversineDistance(lat, lon, readings[b].Lat, readings[b].Lon)
		return da < db
	})

	return readings, nil
}

// Latest retrieves the most recent readings, newest first.
func (r *InMemoryRepository) Latest(_ context.Context, limit int) ([]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var readings []*Reading
	for _, reading := range r.readings {
		cpy := *reading
		readings = append(readings, &cpy)
	}

	sort.Slice(readings, func(a, b int) bool {
		return readings[a].RecordedAt.After(readings[b].RecordedAt)
	})

	if len(readings) > limit {
		readings = readings[:limit]
	}

	return readings, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
