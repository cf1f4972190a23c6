package geo

import "testing"

func TestParseCoordinates(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  Coordinates
		ok    bool
	}{
		{"json form", `{"latitude":12.9716,"longitude":77.5946}`, Coordinates{12.9716, 77.5946}, true},
		{"plain form", "12.9716,77.5946", Coordinates{12.9716, 77.5946}, true},
		{"plain form with space", "12.9716, 77.5946", Coordinates{12.9716, 77.5946}, true},
		{"negative values", "-33.8688, 151.2093", Coordinates{-33.8688, 151.2093}, true},
		{"integer components", "12, 77", Coordinates{12, 77}, true},
		{"empty", "", Coordinates{}, false},
		{"free text", "Koramangala, Bangalore", Coordinates{}, false},
		{"latitude out of range", "91.0, 10.0", Coordinates{}, false},
		{"longitude out of range", "10.0, 181.0", Coordinates{}, false},
		{"malformed json", `{"latitude":}`, Coordinates{}, false},
		{"json out of range", `{"latitude":95,"longitude":10}`, Coordinates{}, false},
	}

	for _, tc := range cases {
		got, ok := ParseCoordinates(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: ParseCoordinates(%q) = (%v, %v), want (%v, %v)",
				tc.name, tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCoordinatesValid(t *testing.T) {
	valid := []Coordinates{
		{0, 0},
		{-90, -180},
		{90, 180},
		{12.9716, 77.5946},
	}
	invalid := []Coordinates{
		{90.01, 0},
		{-90.01, 0},
		{0, 180.01},
		{0, -180.01},
	}

	for _, c := range valid {
		if !c.Valid() {
			t.Errorf("Valid(%v) = false, want true", c)
		}
	}
	for _, c := range invalid {
		if c.Valid() {
			t.Errorf("Valid(%v) = true, want false", c)
		}
	}
}

func TestCoordinatesCacheKeyFullPrecision(t *testing.T) {
	c := Coordinates{Latitude: 12.971598765432101, Longitude: 77.59460123456789}
	key := c.CacheKey()
	if key != "12.971598765432101,77.59460123456789" {
		t.Errorf("CacheKey() = %q, want full float precision", key)
	}
}
