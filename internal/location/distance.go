// Package location provides geographic helpers for filtering vehicles
package location

import "math"

const earthRadiusMeters = 6371000

// Haversine calculates the distance in meters between two lat/lng points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Area is a circle on the earth's surface
type Area struct {
	Lat, Lng     float64
	RadiusMeters float64
}

// Contains reports whether the point lies within the area
func (a Area) Contains(lat, lng float64) bool {
	return Haversine(a.Lat, a.Lng, lat, lng) <= a.RadiusMeters
}

// ValidCoordinates reports whether lat/lng are on the globe
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
