package location

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want, tolerance        float64
	}{
		{"same point", -43.5321, 172.6362, -43.5321, 172.6362, 0, 0.001},
		// Cathedral Square to Christchurch Airport, roughly 9.6 km.
		{"city to airport", -43.5309, 172.6365, -43.4864, 172.5369, 9400, 400},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Haversine(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
			if math.Abs(got-tc.want) > tc.tolerance {
				t.Errorf("Haversine = %.1f, want %.1f ± %.1f", got, tc.want, tc.tolerance)
			}
		})
	}
}

func TestAreaContains(t *testing.T) {
	area := Area{Lat: -43.5309, Lng: 172.6365, RadiusMeters: 1000}
	if !area.Contains(-43.5320, 172.6380) {
		t.Error("nearby point should be inside")
	}
	if area.Contains(-43.4864, 172.5369) {
		t.Error("airport should be outside a 1 km radius")
	}
}

func TestValidCoordinates(t *testing.T) {
	if !ValidCoordinates(-43.5, 172.6) {
		t.Error("Christchurch should be valid")
	}
	if ValidCoordinates(91, 0) || ValidCoordinates(0, -181) {
		t.Error("out-of-range coordinates should be invalid")
	}
}
