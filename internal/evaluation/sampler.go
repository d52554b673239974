package evaluation

// SampleCoordinates reduces a route geometry to count+1 evenly spaced
// points on the straight line between the first and last waypoint. The
// first output always equals the route start and the last always equals
// the route end. Intermediate waypoints do not influence the output.
func SampleCoordinates(waypoints []Coordinate, count int) ([]Coordinate, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}
	if count < 1 {
		return nil, ErrInvalidSampleCount
	}

	start := waypoints[0]
	end := waypoints[len(waypoints)-1]

	coords := make([]Coordinate, 0, count+1)
	for i := 0; i <= count; i++ {
		frac := float64(i) / float64(count)
		coords = append(coords, Coordinate{
			Lat: start.Lat + (end.Lat-start.Lat)*frac,
			Lon: start.Lon + (end.Lon-start.Lon)*frac,
		})
	}

	// Guard against float drift on the endpoints.
	coords[0] = start
	coords[count] = end

	return coords, nil
}
