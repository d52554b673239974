package evaluation

import (
	"math"
	"testing"
)

func scoredRoute(id string, category Category, durationMinutes, aqScore float64) ScoredRoute {
	return ScoredRoute{
		RouteCandidate: RouteCandidate{
			ID:              id,
			Category:        category,
			DurationMinutes: durationMinutes,
			DistanceKm:      5,
		},
		AirQualityScore: aqScore,
		AverageIndex:    50,
		Exposure:        map[string]float64{PollutantPM25: 25},
	}
}

func TestSelect_EmptyInput(t *testing.T) {
	result := Select(nil)

	if result.Success {
		t.Error("expected success=false for empty input")
	}
	if result.TotalRoutes != 0 {
		t.Errorf("expected 0 total routes, got %d", result.TotalRoutes)
	}
	if result.Message == "" {
		t.Error("expected an explicit message for the empty outcome")
	}
	if result.Optimal != nil {
		t.Error("expected no optimal route for empty input")
	}
}

func TestSelect_CategoryAssignment(t *testing.T) {
	routes := []ScoredRoute{
		scoredRoute("route_001", CategoryFastest, 25, 100),
		scoredRoute("route_002", CategoryShortest, 35, 100),
		scoredRoute("route_003", CategoryHealthiest, 45, 100),
	}

	result := Select(routes)

	if !result.Success {
		t.Fatal("expected success")
	}
	if result.TotalRoutes != 3 {
		t.Errorf("expected 3 total routes, got %d", result.TotalRoutes)
	}
	if result.Fastest == nil || result.Fastest.ID != "route_001" {
		t.Errorf("fastest slot wrong: %+v", result.Fastest)
	}
	if result.Shortest == nil || result.Shortest.ID != "route_002" {
		t.Errorf("shortest slot wrong: %+v", result.Shortest)
	}
	if result.Healthiest == nil || result.Healthiest.ID != "route_003" {
		t.Errorf("healthiest slot wrong: %+v", result.Healthiest)
	}
}

func TestSelect_DuplicateCategoryLastWins(t *testing.T) {
	routes := []ScoredRoute{
		scoredRoute("route_a", CategoryFastest, 25, 100),
		scoredRoute("route_b", CategoryFastest, 30, 100),
	}

	result := Select(routes)

	if result.Fastest == nil || result.Fastest.ID != "route_b" {
		t.Errorf("expected last duplicate to win the category, got %+v", result.Fastest)
	}
	if result.TotalRoutes != 2 {
		t.Errorf("duplicates still count as valid routes, got %d", result.TotalRoutes)
	}
}

func TestSelect_OptimalByCombinedScore(t *testing.T) {
	// aq=100 for all, so time decides: 25min -> 85, 35min -> 79, 45min -> 73.
	routes := []ScoredRoute{
		scoredRoute("route_001", CategoryFastest, 25, 100),
		scoredRoute("route_002", CategoryShortest, 35, 100),
		scoredRoute("route_003", CategoryHealthiest, 45, 100),
	}

	result := Select(routes)

	if result.Optimal == nil {
		t.Fatal("expected an optimal route")
	}
	if result.Optimal.ID != "route_001" {
		t.Errorf("expected route_001 as optimal, got %s", result.Optimal.ID)
	}

	wantCombined := []float64{85, 79, 73}
	for i, want := range wantCombined {
		if got := CombinedScore(routes[i]); math.Abs(got-want) > 1e-9 {
			t.Errorf("route %d: combined score %v, want %v", i, got, want)
		}
	}
}

func TestSelect_TieBreakFirstWins(t *testing.T) {
	routes := []ScoredRoute{
		scoredRoute("first", CategoryFastest, 30, 90),
		scoredRoute("second", CategoryShortest, 30, 90),
	}

	result := Select(routes)

	if result.Optimal == nil || result.Optimal.ID != "first" {
		t.Errorf("expected first-seen route to win the tie, got %+v", result.Optimal)
	}
}

func TestTimeScore_Bounds(t *testing.T) {
	tests := []struct {
		minutes float64
		want    float64
	}{
		{0, 100},
		{25, 50},
		{35, 30},
		{45, 10},
		{50, 0},
		{120, 0},
	}

	for _, tt := range tests {
		if got := TimeScore(tt.minutes); got != tt.want {
			t.Errorf("TimeScore(%v) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}
