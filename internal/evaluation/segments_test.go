package evaluation

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestBuildSegments_ThreePoints(t *testing.T) {
	coords := []Coordinate{
		{Lat: 37.50, Lon: 127.00},
		{Lat: 37.525, Lon: 127.025},
		{Lat: 37.55, Lon: 127.05},
	}
	samples := []AirQualitySample{
		sampleWithIndex(40),
		sampleWithIndex(50),
		sampleWithIndex(60),
	}

	segments, err := BuildSegments(coords, samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments from 3 points, got %d", len(segments))
	}

	for i, seg := range segments {
		if seg.DistanceKm < 0 {
			t.Errorf("segment %d: negative distance %v", i, seg.DistanceKm)
		}
		if seg.DurationMinutes != 5 {
			t.Errorf("segment %d: expected 5 minute duration, got %v", i, seg.DurationMinutes)
		}
		if seg.Start != coords[i] || seg.End != coords[i+1] {
			t.Errorf("segment %d endpoints wrong: %+v -> %+v", i, seg.Start, seg.End)
		}
		// The segment inherits the sample of its starting coordinate.
		if seg.AirQuality.Index != samples[i].Index {
			t.Errorf("segment %d: expected sample index %d, got %d", i, samples[i].Index, seg.AirQuality.Index)
		}
		want := fmt.Sprintf("%d번째 구간을 따라 이동하세요", i+1)
		if seg.Instruction != want {
			t.Errorf("segment %d: instruction %q, want %q", i, seg.Instruction, want)
		}
	}
}

func TestBuildSegments_InvalidInput(t *testing.T) {
	coords := []Coordinate{
		{Lat: 37.50, Lon: 127.00},
		{Lat: 37.55, Lon: 127.05},
	}

	_, err := BuildSegments(coords[:1], []AirQualitySample{sampleWithIndex(50)})
	if !errors.Is(err, ErrTooFewWaypoints) {
		t.Errorf("expected ErrTooFewWaypoints, got %v", err)
	}

	_, err = BuildSegments(coords, []AirQualitySample{sampleWithIndex(50)})
	if !errors.Is(err, ErrSampleCountMismatch) {
		t.Errorf("expected ErrSampleCountMismatch, got %v", err)
	}
}

func TestHaversineKm_Identity(t *testing.T) {
	p := Coordinate{Lat: 37.5665, Lon: 126.978}
	if d := HaversineKm(p, p); d != 0 {
		t.Errorf("distance to self should be 0, got %v", d)
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	a := Coordinate{Lat: 37.50, Lon: 127.00}
	b := Coordinate{Lat: 37.55, Lon: 127.05}

	ab := HaversineKm(a, b)
	ba := HaversineKm(b, a)
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// One degree of latitude is roughly 111km.
	a := Coordinate{Lat: 0, Lon: 0}
	b := Coordinate{Lat: 1, Lon: 0}

	d := HaversineKm(a, b)
	if math.Abs(d-111.2) > 1 {
		t.Errorf("expected ~111.2km, got %v", d)
	}
}
