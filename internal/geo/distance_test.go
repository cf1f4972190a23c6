package geo

import (
	"math"
	"testing"
)

func TestDistanceKmIdentity(t *testing.T) {
	points := []Coordinates{
		{Latitude: 0, Longitude: 0},
		{Latitude: 12.9716, Longitude: 77.5946},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 90, Longitude: 0},
	}

	for _, p := range points {
		if got := DistanceKm(p, p); got != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", p, p, got)
		}
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	a := Coordinates{Latitude: 12.9716, Longitude: 77.5946}  // Bangalore
	b := Coordinates{Latitude: 13.0827, Longitude: 80.2707}  // Chennai

	ab := DistanceKm(a, b)
	ba := DistanceKm(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("DistanceKm not symmetric: %v vs %v", ab, ba)
	}
	if ab <= 0 {
		t.Errorf("DistanceKm(%v, %v) = %v, want positive", a, b, ab)
	}
}

func TestDistanceKmKnownDistances(t *testing.T) {
	cases := []struct {
		name string
		a, b Coordinates
		want float64
	}{
		{
			// One degree of latitude at the equator.
			name: "equator degree",
			a:    Coordinates{Latitude: 0, Longitude: 0},
			b:    Coordinates{Latitude: 1, Longitude: 0},
			want: 111.19,
		},
		{
			// One degree of longitude at the equator is the same arc.
			name: "equator longitude degree",
			a:    Coordinates{Latitude: 0, Longitude: 10},
			b:    Coordinates{Latitude: 0, Longitude: 11},
			want: 111.19,
		},
		{
			// Pole to pole is half the Earth's circumference.
			name: "pole to pole",
			a:    Coordinates{Latitude: 90, Longitude: 0},
			b:    Coordinates{Latitude: -90, Longitude: 0},
			want: 20015.09,
		},
	}

	for _, tc := range cases {
		got := DistanceKm(tc.a, tc.b)
		tolerance := tc.want * 0.01
		if math.Abs(got-tc.want) > tolerance {
			t.Errorf("%s: DistanceKm = %v, want %v ± 1%%", tc.name, got, tc.want)
		}
	}
}
