package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookmarket_backend/platform/config"
	"bookmarket_backend/platform/logger"

	"golang.org/x/time/rate"
)

const (
	// minRequestInterval is the minimum spacing between upstream calls,
	// enforced across all callers of a Resolver (Nominatim usage policy).
	minRequestInterval = time.Second

	maxCacheEntries = 4096
	maxAttempts     = 3
	retryBaseDelay  = 500 * time.Millisecond
	requestTimeout  = 10 * time.Second
)

// Resolver converts between addresses and coordinates against the Nominatim
// service. It owns two TTL caches (address to coordinates, coordinates to
// label) and a process-wide rate limiter; a single Resolver instance should
// be shared by everything that geocodes.
type Resolver struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	forward   *ttlCache[Coordinates]
	reverse   *ttlCache[string]
	positions PositionProvider
	log       *logger.Logger
	now       func() time.Time

	retryDelay time.Duration
}

// NewResolver creates a Resolver. positions may be nil when the deployment
// has no device position source; CurrentPosition then fails with
// ReasonUnavailable.
func NewResolver(cfg config.GeoConfig, positions PositionProvider, log *logger.Logger) *Resolver {
	return &Resolver{
		baseURL:   strings.TrimSuffix(cfg.GetNominatimBaseURL(), "/"),
		userAgent: cfg.GetNominatimUserAgent(),
		client:    &http.Client{Timeout: requestTimeout},
		limiter:   rate.NewLimiter(rate.Every(minRequestInterval), 1),
		forward:   newTTLCache[Coordinates](cfg.GetGeoCacheTTL(), maxCacheEntries),
		reverse:   newTTLCache[string](cfg.GetGeoCacheTTL(), maxCacheEntries),
		positions: positions,
		log:       log,
		now:       time.Now,

		retryDelay: retryBaseDelay,
	}
}

type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Geocode resolves an address to coordinates. Results are cached under the
// lowercased address; only cache misses reach the upstream service.
func (r *Resolver) Geocode(ctx context.Context, address string) (Coordinates, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return Coordinates{}, ErrNoResults
	}

	key := strings.ToLower(trimmed)
	if coords, ok := r.forward.get(key, r.now()); ok {
		return coords, nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", trimmed)
	params.Set("limit", "1")
	params.Set("accept-language", "en-US,en;q=0.9")

	var results []nominatimResult
	if err := r.fetchJSON(ctx, "/search", params, &results); err != nil {
		return Coordinates{}, err
	}
	if len(results) == 0 {
		return Coordinates{}, ErrNoResults
	}

	coords, err := parseResultCoordinates(results[0])
	if err != nil {
		return Coordinates{}, &GeocodeError{Op: "search", Err: err}
	}

	r.forward.put(key, coords, r.now())
	return coords, nil
}

// ReverseGeocode resolves coordinates to a human-readable label, cached under
// the full-precision coordinate key.
func (r *Resolver) ReverseGeocode(ctx context.Context, coords Coordinates) (string, error) {
	key := coords.CacheKey()
	if label, ok := r.reverse.get(key, r.now()); ok {
		return label, nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("zoom", "18")
	params.Set("addressdetails", "1")

	var result nominatimResult
	if err := r.fetchJSON(ctx, "/reverse", params, &result); err != nil {
		return "", err
	}
	if result.DisplayName == "" {
		return "", ErrNoResults
	}

	r.reverse.put(key, result.DisplayName, r.now())
	return result.DisplayName, nil
}

// CurrentPosition obtains the device position and a best-effort label for it.
// Coordinates are authoritative: once the device produces a fix the call
// succeeds, even if every labeling strategy fails. The label falls back from
// reverse lookup to a forward lookup of the raw coordinates to a synthesized
// "Location at lat, lng" string.
func (r *Resolver) CurrentPosition(ctx context.Context) (string, Coordinates, error) {
	if r.positions == nil {
		return "", Coordinates{}, &PositionError{Reason: ReasonUnavailable}
	}

	coords, err := r.positions.CurrentPosition()
	if err != nil {
		return "", Coordinates{}, err
	}

	if label, lookupErr := r.ReverseGeocode(ctx, coords); lookupErr == nil {
		return label, coords, nil
	} else if ctx.Err() != nil {
		return "", Coordinates{}, ctx.Err()
	}

	if label, lookupErr := r.forwardLabel(ctx, coords); lookupErr == nil {
		return label, coords, nil
	} else if ctx.Err() != nil {
		return "", Coordinates{}, ctx.Err()
	}

	label := fmt.Sprintf("Location at %.6f, %.6f", coords.Latitude, coords.Longitude)
	r.reverse.put(coords.CacheKey(), label, r.now())
	return label, coords, nil
}

// forwardLabel searches the raw coordinates as free text. Nominatim sometimes
// answers this when the reverse endpoint does not.
func (r *Resolver) forwardLabel(ctx context.Context, coords Coordinates) (string, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", fmt.Sprintf("%v %v", coords.Latitude, coords.Longitude))
	params.Set("accept-language", "en-US,en;q=0.9")

	var results []nominatimResult
	if err := r.fetchJSON(ctx, "/search", params, &results); err != nil {
		return "", err
	}
	if len(results) == 0 || results[0].DisplayName == "" {
		return "", ErrNoResults
	}

	r.reverse.put(coords.CacheKey(), results[0].DisplayName, r.now())
	return results[0].DisplayName, nil
}

// LocationRef bundles the heterogeneous location inputs a caller may hold for
// a user or a listing.
type LocationRef struct {
	// MapPicked is a coordinate chosen directly on a map.
	MapPicked *Coordinates
	// Stored is a previously persisted coordinate string (JSON or "lat, lon").
	Stored string
	// Address is a free-text location.
	Address string
}

// ResolveWithPriority turns a LocationRef into coordinates using a fixed
// precedence: map-picked, stored, then the address (parsed as coordinates if
// possible, geocoded otherwise). Returns nil when nothing resolves; a fully
// absent input set is not an error.
func (r *Resolver) ResolveWithPriority(ctx context.Context, ref LocationRef) *Coordinates {
	if ref.MapPicked != nil && ref.MapPicked.Valid() {
		coords := *ref.MapPicked
		return &coords
	}

	if coords, ok := ParseCoordinates(ref.Stored); ok {
		return &coords
	}

	if ref.Address != "" {
		if coords, ok := ParseCoordinates(ref.Address); ok {
			return &coords
		}
		coords, err := r.Geocode(ctx, ref.Address)
		if err != nil {
			r.log.Debug("could not geocode address", "error", err)
			return nil
		}
		return &coords
	}

	return nil
}

// fetchJSON performs a rate-limited Nominatim request with bounded retries.
// Network failures and 5xx responses are retried; 4xx responses and malformed
// payloads are not. Every attempt, including retries, waits on the shared
// limiter so bursts never reach the upstream.
func (r *Resolver) fetchJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * r.retryDelay
			select {
			case <-ctx.Done():
				return &GeocodeError{Op: endpoint, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return &GeocodeError{Op: endpoint, Err: err}
		}

		err, retryable := r.doFetch(ctx, endpoint, params, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		r.log.Warn("nominatim request failed, retrying", "endpoint", endpoint, "attempt", attempt, "error", err)
	}

	r.log.UpstreamError("nominatim", endpoint, lastErr)
	return &GeocodeError{Op: endpoint, Err: lastErr}
}

func (r *Resolver) doFetch(ctx context.Context, endpoint string, params url.Values, out interface{}) (error, bool) {
	reqURL := fmt.Sprintf("%s%s?%s", r.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err, false
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return err, true
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("upstream api error: %d", resp.StatusCode)
		return err, resp.StatusCode >= http.StatusInternalServerError
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response payload: %w", err), false
	}

	return nil, false
}

func parseResultCoordinates(result nominatimResult) (Coordinates, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q", result.Lat)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q", result.Lon)
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}
