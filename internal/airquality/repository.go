package airquality

import (
	"context"
	"time"
)

// Repository defines the interface for air quality reading storage.
type Repository interface {
	// Upsert stores a reading, replacing any existing reading for the same
	// location and observation time. The reading's ID is filled in.
	Upsert(ctx context.Context, reading *Reading) error

	// Within retrieves readings inside the bounding box recorded at or
	// after since.
	Within(ctx context.Context, bounds Bounds, since time.Time) ([]*Reading, error)

	// Near retrieves readings within radiusKm of the point recorded at or
	// after since, ordered nearest first.
	Near(ctx context.Context, lat, lon, radiusKm float64, since time.Time) ([]*Reading, error)

	// Latest retrieves the most recent readings, newest first.
	Latest(ctx context.Context, limit int) ([]*Reading, error)
}
