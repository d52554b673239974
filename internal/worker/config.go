// Package worker provides background job processing for CleanAirRoute.
package worker

import (
	"sort"
	"time"
)

// IngestTarget represents a district whose air quality is ingested.
type IngestTarget struct {
	// District is the administrative district name.
	District string

	// Points are the lat/lon coordinates sampled for the district.
	// Typically the district center plus major commuter hubs.
	Points []Point

	// Priority determines ingest order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// DistrictPoint pairs a point with the district it belongs to.
type DistrictPoint struct {
	District string
	Point    Point
}

// IngestConfig holds configuration for the reading ingest job.
type IngestConfig struct {
	// Targets are the districts to ingest.
	// If empty, uses DefaultIngestTargets.
	Targets []IngestTarget

	// Concurrency is the number of concurrent ingest operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each point's prediction and store.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultIngestConfig returns the default ingest configuration.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Targets:     DefaultIngestTargets(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultIngestTargets returns the default ingest targets for Seoul.
// Focuses on the dense commuter districts on both sides of the Han river.
func DefaultIngestTargets() []IngestTarget {
	return []IngestTarget{
		{
			District: "Jongno",
			Priority: 1,
			Points: []Point{
				{Lat: 37.5729, Lon: 126.9793}, // Jongno district office
				{Lat: 37.5759, Lon: 126.9769}, // Gwanghwamun
			},
		},
		{
			District: "Jung",
			Priority: 1,
			Points: []Point{
				{Lat: 37.5636, Lon: 126.9976}, // City Hall area
				{Lat: 37.5547, Lon: 126.9707}, // Seoul Station
			},
		},
		{
			District: "Gangnam",
			Priority: 1,
			Points: []Point{
				{Lat: 37.5172, Lon: 127.0473}, // Gangnam district office
				{Lat: 37.4979, Lon: 127.0276}, // Gangnam Station
				{Lat: 37.5126, Lon: 127.0589}, // COEX
			},
		},
		{
			District: "Yeongdeungpo",
			Priority: 1,
			Points: []Point{
				{Lat: 37.5264, Lon: 126.8962}, // Yeongdeungpo center
				{Lat: 37.5219, Lon: 126.9245}, // Yeouido
			},
		},
		{
			District: "Mapo",
			Priority: 1,
			Points: []Point{
				{Lat: 37.5637, Lon: 126.9086}, // Mapo district office
				{Lat: 37.5568, Lon: 126.9237}, // Hongdae
			},
		},
		{
			District: "Seocho",
			Priority: 1,
			Points: []Point{
				{Lat: 37.4837, Lon: 127.0324}, // Seocho center
			},
		},
		{
			District: "Songpa",
			Priority: 1,
			Points: []Point{
				{Lat: 37.5145, Lon: 127.1059}, // Songpa center
				{Lat: 37.5133, Lon: 127.1001}, // Jamsil
			},
		},
		{
			District: "Yongsan",
			Priority: 2,
			Points: []Point{
				{Lat: 37.5311, Lon: 126.9810}, // Yongsan Station
			},
		},
		{
			District: "Seongdong",
			Priority: 2,
			Points: []Point{
				{Lat: 37.5634, Lon: 127.0365}, // Wangsimni
			},
		},
		{
			District: "Gwangjin",
			Priority: 2,
			Points: []Point{
				{Lat: 37.5385, Lon: 127.0823}, // Konkuk University
			},
		},
		{
			District: "Dongdaemun",
			Priority: 2,
			Points: []Point{
				{Lat: 37.5744, Lon: 127.0396}, // Dongdaemun center
			},
		},
		{
			District: "Seodaemun",
			Priority: 2,
			Points: []Point{
				{Lat: 37.5791, Lon: 126.9368}, // Sinchon
			},
		},
		{
			District: "Dongjak",
			Priority: 2,
			Points: []Point{
				{Lat: 37.5124, Lon: 126.9393}, // Noryangjin
			},
		},
		{
			District: "Gwanak",
			Priority: 3,
			Points: []Point{
				{Lat: 37.4784, Lon: 126.9516}, // Seoul National University
			},
		},
		{
			District: "Gangseo",
			Priority: 3,
			Points: []Point{
				{Lat: 37.5509, Lon: 126.8495}, // Gangseo center
			},
		},
		{
			District: "Guro",
			Priority: 3,
			Points: []Point{
				{Lat: 37.4954, Lon: 126.8874}, // Guro Digital Complex
			},
		},
		{
			District: "Nowon",
			Priority: 3,
			Points: []Point{
				{Lat: 37.6542, Lon: 127.0568}, // Nowon center
			},
		},
		{
			District: "Eunpyeong",
			Priority: 3,
			Points: []Point{
				{Lat: 37.6027, Lon: 126.9291}, // Yeonsinnae
			},
		},
		{
			District: "Gangdong",
			Priority: 3,
			Points: []Point{
				{Lat: 37.5301, Lon: 127.1238}, // Gangdong center
			},
		},
	}
}

// AllPoints returns every point from every target with its district,
// ordered by target priority.
func (c IngestConfig) AllPoints() []DistrictPoint {
	targets := make([]IngestTarget, len(c.Targets))
	copy(targets, c.Targets)
	sort.SliceStable(targets, func(a, b int) bool {
		return targets[a].Priority < targets[b].Priority
	})

	var points []DistrictPoint
	for _, target := range targets {
		for _, p := range target.Points {
			points = append(points, DistrictPoint{District: target.District, Point: p})
		}
	}
	return points
}

// TotalPoints returns the total number of points to ingest.
func (c IngestConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}

// FilterDistricts returns a copy of the config restricted to the named
// districts. Unknown names are ignored; an empty filter keeps everything.
func (c IngestConfig) FilterDistricts(districts []string) IngestConfig {
	if len(districts) == 0 {
		return c
	}

	wanted := make(map[string]bool, len(districts))
	for _, d := range districts {
		wanted[d] = true
	}

	filtered := c
	filtered.Targets = nil
	for _, target := range c.Targets {
		if wanted[target.District] {
			filtered.Targets = append(filtered.Targets, target)
		}
	}
	return filtered
}
