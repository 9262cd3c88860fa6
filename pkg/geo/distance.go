package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// ambulanceSpeedKmh is the assumed average transfer speed used
	// for travel time estimates.
	ambulanceSpeedKmh = 40.0
)

// Point is a latitude/longitude pair. The zero value means the
// coordinates are unknown.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the point carries usable coordinates.
func (p Point) Valid() bool {
	return p.Latitude != 0 || p.Longitude != 0
}

// Estimate holds a computed distance and travel time between two points.
type Estimate struct {
	DistanceKm       float64
	EstimatedMinutes int
}

// Distance returns the great-circle distance between two points in
// kilometers, rounded to 2 decimal places. ok is false when either
// point has no coordinates; the distance is unknown, not zero.
func Distance(from, to Point) (km float64, ok bool) {
	if !from.Valid() || !to.Valid() {
		return 0, false
	}
	return round2(haversine(from.Latitude, from.Longitude, to.Latitude, to.Longitude)), true
}

// TravelEstimate returns the distance and estimated travel minutes
// between two points. ok is false when either point has no coordinates.
func TravelEstimate(from, to Point) (Estimate, bool) {
	km, ok := Distance(from, to)
	if !ok {
		return Estimate{}, false
	}
	return Estimate{
		DistanceKm:       km,
		EstimatedMinutes: int(math.Round(km / ambulanceSpeedKmh * 60)),
	}, true
}

// haversine calculates the distance between two points in kilometers
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// toRadians converts degrees to radians
func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
