package trace

import (
	"bustrails.opentransit.org/internal/models"
)

// DefaultStep is the sampling interval in seconds between trace points.
const DefaultStep = 5

// InterpolateSegment samples one stop-to-stop segment of a trip every step
// seconds. Sample instants run tA, tA+step, ... with the final sample forced
// to exactly tB so the segment endpoint is always represented. Coordinates are
// interpolated linearly in degree space; no geodesic correction is applied.
//
// Segments with tB <= tA return no points: zero and negative durations occur
// in real schedule data and are dropped, not treated as errors. step must be
// positive.
func InterpolateSegment(tripID, routeID string, tA, tB int, latA, lonA, latB, lonB float64, step int) []models.TracePoint {
	if step <= 0 || tB <= tA {
		return nil
	}

	duration := float64(tB - tA)
	points := make([]models.TracePoint, 0, (tB-tA)/step+2)

	appendAt := func(t int) {
		ratio := float64(t-tA) / duration
		points = append(points, models.TracePoint{
			TripID:    tripID,
			Timestamp: int64(t),
			Lat:       latA + ratio*(latB-latA),
			Lon:       lonA + ratio*(lonB-lonA),
			RouteID:   routeID,
		})
	}

	for t := tA; t < tB; t += step {
		appendAt(t)
	}
	appendAt(tB)

	return points
}
