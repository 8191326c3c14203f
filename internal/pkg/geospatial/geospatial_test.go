package geospatial

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		expected               float64
		tolerance              float64
	}{
		{"same point", 38.7223, -9.1393, 38.7223, -9.1393, 0, 0.0001},
		{"lisbon to porto", 38.7223, -9.1393, 41.1579, -8.6291, 274, 5},
		{"sao paulo to rio", -23.5505, -46.6333, -22.9068, -43.1729, 361, 5},
		{"across the antimeridian", 0, 179.5, 0, -179.5, 111.19, 1},
		{"one degree of latitude", 0, 0, 1, 0, 111.19, 0.5},
	}
	for _, tc := range cases {
		got := DistanceKm(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
		if math.Abs(got-tc.expected) > tc.tolerance {
			t.Errorf("%s: got %.2f km, want %.2f ± %.2f", tc.name, got, tc.expected, tc.tolerance)
		}
	}
}

func TestValidCoordinates(t *testing.T) {
	if !ValidLat(90) || !ValidLat(-90) || !ValidLat(0) {
		t.Error("boundary latitudes should be valid")
	}
	if ValidLat(90.0001) || ValidLat(-91) || ValidLat(math.NaN()) {
		t.Error("out-of-range latitudes should be invalid")
	}
	if !ValidLng(180) || !ValidLng(-180) {
		t.Error("boundary longitudes should be valid")
	}
	if ValidLng(180.5) || ValidLng(math.NaN()) {
		t.Error("out-of-range longitudes should be invalid")
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"São Paulo", "sao paulo"},
		{"  SÃO   PAULO  ", "sao paulo"},
		{"Düsseldorf", "dusseldorf"},
		{"Saint-Étienne", "saintetienne"},
		{"Rio de Janeiro", "rio de janeiro"},
		{"", ""},
		{"   ", ""},
		{"München 2", "munchen 2"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.out {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
