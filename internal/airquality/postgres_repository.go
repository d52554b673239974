package airquality

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// kmPerDegreeLat is the approximate north-south span of one degree of
// latitude, used to turn a radius into a bounding-box prefilter.
const kmPerDegreeLat = 111.32

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL reading repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert stores a reading, replacing any existing row for the same location
// and observation time.
func (r *PostgresRepository) Upsert(ctx context.Context, reading *Reading) error {
	query := `
		INSERT INTO air_quality_readings (
			district, lat, lon,
			pm25, pm10, o3, no2,
			aqi, grade, confidence, source, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (lat, lon, recorded_at) DO UPDATE SET
			district = EXCLUDED.district,
			pm25 = EXCLUDED.pm25,
			pm10 = EXCLUDED.pm10,
			o3 = EXCLUDED.o3,
			no2 = EXCLUDED.no2,
			aqi = EXCLUDED.aqi,
			grade = EXCLUDED.grade,
			confidence = EXCLUDED.confidence,
			source = EXCLUDED.source
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		reading.District,
		reading.Lat,
		reading.Lon,
		reading.PM25,
		reading.PM10,
		reading.O3,
		reading.NO2,
		reading.AQI,
		reading.Grade,
		reading.Confidence,
		reading.Source,
		reading.RecordedAt,
	).Scan(&reading.ID)
}

// Within retrieves readings inside the bounding box recorded at or after
// since.
func (r *PostgresRepository) Within(ctx context.Context, bounds Bounds, since time.Time) ([]*Reading, error) {
	query := `
		SELECT
			id, district, lat, lon,
			pm25, pm10, o3, no2,
			aqi, grade, confidence, source, recorded_at
		FROM air_quality_readings
		WHERE lat BETWEEN $1 AND $2
		  AND lon BETWEEN $3 AND $4
		  AND recorded_at >= $5
		ORDER BY recorded_at DESC
	`

	rows, err := r.pool.Query(ctx, query, bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		var reading Reading
		err := rows.Scan(
			&reading.ID,
			&reading.District,
			&reading.Lat,
			&reading.Lon,
			&reading.PM25,
			&reading.PM10,
			&reading.O3,
			&reading.NO2,
			&reading.AQI,
			&reading.Grade,
			&reading.Confidence,
			&reading.Source,
			&reading.RecordedAt,
		)
		if err != nil {
			return nil, err
		}
		readings = append(readings, &reading)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return readings, nil
}

// Near retrieves readings within radiusKm of the point recorded at or after
// since, ordered nearest first. The SQL side prefilters with a bounding box;
// the exact great-circle cut happens here.
func (r *PostgresRepository) Near(ctx context.Context, lat, lon, radiusKm float64, since time.Time) ([]*Reading, error) {
	latDelta := radiusKm / kmPerDegreeLat
	lonDelta := radiusKm / (kmPerDegreeLat * math.Cos(lat*math.Pi/180))

	bounds := Bounds{
		MinLat: lat - latDelta,
		MinLon: lon - lonDelta,
		MaxLat: lat + latDelta,
		MaxLon: lon + lonDelta,
	}

	candidates, err := r.Within(ctx, bounds, since)
	if err != nil {
		return nil, err
	}

	radiusMeters := radiusKm * 1000
	var readings []*Reading
	for _, reading := range candidates {
		if haversineDistance(lat, lon, reading.Lat, reading.Lon) <= radiusMeters {
			readings = append(readings, reading)
		}
	}

	sort.Slice(readings, func(a, b int) bool {
		da := haversineDistance(lat, lon, readings[a].Lat, readings[a].Lon)
		db := haversineDistance(lat, lon, readings[b].Lat, readings[b].Lon)
		return da < db
	})

	return readings, nil
}

// Latest retrieves the most recent readings, newest first.
func (r *PostgresRepository) Latest(ctx context.Context, limit int) ([]*Reading, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			id, district, lat, lon,
			pm25, pm10, o3, no2,
			aqi, grade, confidence, source, recorded_at
		FROM air_quality_readings
		ORDER BY recorded_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		var reading Reading
		err := rows.Scan(
			&reading.ID,
			&reading.District,
			&reading.Lat,
			&reading.Lon,
			&reading.PM25,
			&reading.PM10,
			&reading.O3,
			&reading.NO2,
			&reading.AQI,
			&reading.Grade,
			&reading.Confidence,
			&reading.Source,
			&reading.RecordedAt,
		)
		if err != nil {
			return nil, err
		}
		readings = append(readings, &reading)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return readings, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
