package evaluation

// Combined score weights: air quality dominates, time efficiency breaks the
// balance.
const (
	airQualityWeight = 0.7
	timeWeight       = 0.3
)

// TimeScore maps a duration in minutes onto [0,100]; zero minutes scores
// 100 and anything of 50 minutes or more scores 0.
func TimeScore(durationMinutes float64) float64 {
	score := 100 - durationMinutes*2
	if score < 0 {
		return 0
	}
	return score
}

// CombinedScore blends a route's air quality score with its time score.
func CombinedScore(r ScoredRoute) float64 {
	return r.AirQualityScore*airQualityWeight + TimeScore(r.DurationMinutes)*timeWeight
}

// Select groups scored routes by category and picks the optimal route by
// combined score. When several routes share a category label the last one
// in input order wins the category slot. The optimal pick uses a strict
// comparison, so the first route seen keeps the title on ties. An empty
// input yields Success false with zero routes; that is a valid terminal
// outcome, not an error.
func Select(routes []ScoredRoute) SelectionResult {
	if len(routes) == 0 {
		return SelectionResult{
			Success: false,
			Message: "유효한 경로가 없습니다",
		}
	}

	byCategory := make(map[Category]*ScoredRoute, len(routes))
	for i := range routes {
		byCategory[routes[i].Category] = &routes[i]
	}

	var optimal *ScoredRoute
	best := -1.0
	for i := range routes {
		if combined := CombinedScore(routes[i]); combined > best {
			best = combined
			optimal = &routes[i]
		}
	}

	return SelectionResult{
		Success:     true,
		Message:     "경로 추천이 완료되었습니다",
		Fastest:     byCategory[CategoryFastest],
		Shortest:    byCategory[CategoryShortest],
		Healthiest:  byCategory[CategoryHealthiest],
		Optimal:     optimal,
		TotalRoutes: len(routes),
	}
}
