package evaluation

// RouteScore aggregates a route's samples into comparable numbers.
type RouteScore struct {
	// AirQuality is in [0,100]; an average index of 50 (moderate) maps to
	// 100 and the score falls linearly to 0 at index 100.
	AirQuality float64
	// AverageIndex is the arithmetic mean of the sample indexes.
	AverageIndex float64
	// Exposure holds route-average concentrations per pollutant.
	Exposure map[string]float64
}

// Score aggregates per-coordinate samples into a route-level air quality
// score and per-pollutant exposure averages. Returns ErrEmptySampleSet for
// an empty input; callers must exclude such routes instead of treating them
// as maximally polluted.
func Score(samples []AirQualitySample) (RouteScore, error) {
	if len(samples) == 0 {
		return RouteScore{}, ErrEmptySampleSet
	}

	var sumIndex, sumPM25, sumPM10, sumO3, sumNO2 float64
	for _, s := range samples {
		sumIndex += float64(s.Index)
		sumPM25 += s.PM25
		sumPM10 += s.PM10
		sumO3 += s.O3
		sumNO2 += s.NO2
	}

	n := float64(len(samples))
	avgIndex := sumIndex / n

	score := 100 - (avgIndex-50)*2
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return RouteScore{
		AirQuality:   score,
		AverageIndex: avgIndex,
		Exposure: map[string]float64{
			PollutantPM25: sumPM25 / n,
			PollutantPM10: sumPM10 / n,
			PollutantO3:   sumO3 / n,
			PollutantNO2:  sumNO2 / n,
		},
	}, nil
}
