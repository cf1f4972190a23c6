// Package geo resolves free-form addresses and device positions to
// coordinates, and computes distances between them. It fronts the Nominatim
// geocoding service with caching and rate limiting so callers never have to
// think about the upstream's usage policy.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoResults is returned when the geocoding service has no candidates for
// an address. Callers commonly treat this as expected rather than exceptional.
var ErrNoResults = errors.New("no results found")

// GeocodeError wraps transport-level geocoding failures: network errors,
// non-2xx responses, and malformed payloads.
type GeocodeError struct {
	Op  string
	Err error
}

func (e *GeocodeError) Error() string {
	return "geocode " + e.Op + ": " + e.Err.Error()
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// Coordinates is a latitude/longitude pair. It is a pure value type; two
// coordinates with the same components are the same place.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are within range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// CacheKey returns the full-precision key used by the reverse-geocode cache.
func (c Coordinates) CacheKey() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

var coordPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?),\s*(-?\d+(?:\.\d+)?)$`)

// ParseCoordinates extracts coordinates from the two stored representations:
// the JSON form {"latitude":..,"longitude":..} and the plain "lat, lon" form.
// Returns false for anything else, including out-of-range values.
func ParseCoordinates(s string) (Coordinates, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Coordinates{}, false
	}

	if strings.HasPrefix(trimmed, "{") {
		var c Coordinates
		if err := json.Unmarshal([]byte(trimmed), &c); err == nil {
			if (c.Latitude != 0 || c.Longitude != 0) && c.Valid() {
				return c, true
			}
		}
		return Coordinates{}, false
	}

	match := coordPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return Coordinates{}, false
	}

	c := Coordinates{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return Coordinates{}, false
	}
	return c, true
}
