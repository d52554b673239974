package airquality

import (
	"errors"
	"math"
	"sort"
)

// Interpolation errors.
var (
	ErrNoReadingsInRange = errors.New("no readings within range")
	ErrInsufficientData  = errors.New("insufficient data for interpolation")
)

// Confidence represents the confidence level of an interpolated value.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// InterpolationConfig holds configuration for the interpolation algorithm.
type InterpolationConfig struct {
	// MaxDistance is the maximum distance (in meters) to consider readings.
	// Readings beyond this distance are ignored. Default: 50000 (50km).
	MaxDistance float64

	// MinReadings is the minimum number of readings required for
	// interpolation. If fewer readings are in range, returns
	// ErrInsufficientData. Default: 1.
	MinReadings int

	// MaxReadings is the maximum number of nearest readings to use.
	// Using fewer readings is faster but less accurate. Default: 5.
	MaxReadings int

	// Power is the power parameter for inverse distance weighting.
	// Higher values give more weight to closer readings. Default: 2.0.
	Power float64

	// HighConfidenceMaxDistance is the max distance for HIGH confidence.
	// Default: 5000 (5km).
	HighConfidenceMaxDistance float64

	// MediumConfidenceMaxDistance is the max distance for MEDIUM confidence.
	// Default: 15000 (15km).
	MediumConfidenceMaxDistance float64
}

// DefaultInterpolationConfig returns the default configuration.
func DefaultInterpolationConfig() InterpolationConfig {
	return InterpolationConfig{
		MaxDistance:                 50000, // 50km
		MinReadings:                 1,
		MaxReadings:                 5,
		Power:                       2.0,
		HighConfidenceMaxDistance:   5000,  // 5km
		MediumConfidenceMaxDistance: 15000, // 15km
	}
}

// ReadingContribution describes a reading's contribution to an interpolated
// value.
type ReadingContribution struct {
	District string
	Distance float64 // meters
	Weight   float64 // normalized weight (0-1)
}

// InterpolatedPoint represents interpolated air quality at a geographic
// point. Every reading carries all four pollutants, so one set of distance
// weights serves every pollutant value.
type InterpolatedPoint struct {
	Lat float64
	Lon float64

	// Values holds the weighted value per pollutant in µg/m³.
	Values map[Pollutant]float64

	// Confidence indicates the data quality.
	Confidence Confidence

	// ReadingsUsed is the number of readings used in interpolation.
	ReadingsUsed int

	// NearestDistance is the distance to the nearest reading in meters.
	NearestDistance float64

	// Contributions lists the readings that contributed to this point.
	Contributions []ReadingContribution
}

// readingDistance pairs a reading with its distance from the query point.
type readingDistance struct {
	reading  *Reading
	distance float64
}

// Interpolator performs spatial interpolation of air quality data.
type Interpolator struct {
	config InterpolationConfig
}

// NewInterpolator creates a new Interpolator with the given configuration.
func NewInterpolator(config InterpolationConfig) *Interpolator {
	if config.MaxDistance <= 0 {
		config.MaxDistance = DefaultInterpolationConfig().MaxDistance
	}
	if config.MinReadings <= 0 {
		config.MinReadings = DefaultInterpolationConfig().MinReadings
	}
	if config.MaxReadings <= 0 {
		config.MaxReadings = DefaultInterpolationConfig().MaxReadings
	}
	if config.Power <= 0 {
		config.Power = DefaultInterpolationConfig().Power
	}
	if config.HighConfidenceMaxDistance <= 0 {
		config.HighConfidenceMaxDistance = DefaultInterpolationConfig().HighConfidenceMaxDistance
	}
	if config.MediumConfidenceMaxDistance <= 0 {
		config.MediumConfidenceMaxDistance = DefaultInterpolationConfig().MediumConfidenceMaxDistance
	}
	return &Interpolator{config: config}
}

// Interpolate estimates air quality values at the given location from the
// supplied readings.
func (i *Interpolator) Interpolate(lat, lon float64, readings []*Reading) (*InterpolatedPoint, error) {
	if len(readings) == 0 {
		return nil, ErrNoReadingsInRange
	}

	// Calculate distances to all readings
	var readingDistances []readingDistance

	for _, r := range readings {
		dist := haversineDistance(lat, lon, r.Lat, r.Lon)
		if dist <= i.config.MaxDistance {
			readingDistances = append(readingDistances, readingDistance{
				reading:  r,
				distance: dist,
			})
		}
	}

	if len(readingDistances) < i.config.MinReadings {
		return nil, ErrNoReadingsInRange
	}

	// Sort by distance
	sort.Slice(readingDistances, func(a, b int) bool {
		return readingDistances[a].distance < readingDistances[b].distance
	})

	// Limit to MaxReadings
	if len(readingDistances) > i.config.MaxReadings {
		readingDistances = readingDistances[:i.config.MaxReadings]
	}

	contributions := make([]ReadingContribution, 0, len(readingDistances))
	var totalWeight float64

	for _, rd := range readingDistances {
		// Calculate weight using inverse distance weighting
		var weight float64
		if rd.distance < 1 {
			// Standing on a reading site - use its value directly
			weight = 1e10
		} else {
			weight = 1.0 / math.Pow(rd.distance, i.config.Power)
		}

		contributions = append(contributions, ReadingContribution{
			District: rd.reading.District,
			Distance: rd.distance,
			Weight:   weight,
		})
		totalWeight += weight
	}

	if len(contributions) == 0 {
		return nil, ErrInsufficientData
	}

	// Normalize weights and calculate weighted averages
	values := map[Pollutant]float64{
		PollutantPM25: 0,
		PollutantPM10: 0,
		PollutantO3:   0,
		PollutantNO2:  0,
	}
	for idx := range contributions {
		contributions[idx].Weight /= totalWeight
		w := contributions[idx].Weight
		r := readingDistances[idx].reading
		values[PollutantPM25] += r.PM25 * w
		values[PollutantPM10] += r.PM10 * w
		values[PollutantO3] += r.O3 * w
		values[PollutantNO2] += r.NO2 * w
	}

	nearestDistance := contributions[0].Distance

	return &InterpolatedPoint{
		Lat:             lat,
		Lon:             lon,
		Values:          values,
		Confidence:      i.calculateConfidence(nearestDistance, len(contributions)),
		ReadingsUsed:    len(contributions),
		NearestDistance: nearestDistance,
		Contributions:   contributions,
	}, nil
}

// calculateConfidence determines confidence level based on distance and
// reading count.
func (i *Interpolator) calculateConfidence(nearestDistance float64, readingCount int) Confidence {
	// High confidence: close to a reading site and multiple readings
	if nearestDistance <= i.config.HighConfidenceMaxDistance && readingCount >= 2 {
		return ConfidenceHigh
	}

	// Medium confidence: moderate distance or fewer readings
	if nearestDistance <= i.config.MediumConfidenceMaxDistance && readingCount >= 1 {
		return ConfidenceMedium
	}

	// Low confidence: far from any reading site
	return ConfidenceLow
}

// haversineDistance calculates the distance between two points in meters
// using the Haversine formula.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
