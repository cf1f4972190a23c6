package scheduler

import (
	"context"
	"errors"
	"testing"

	"bookmarket_backend/internal/geo"
	listingrepo "bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeListingStore struct {
	listings map[uuid.UUID]listingrepo.Listing
	coords   map[uuid.UUID]geo.Coordinates
	setErr   error
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{
		listings: make(map[uuid.UUID]listingrepo.Listing),
		coords:   make(map[uuid.UUID]geo.Coordinates),
	}
}

func (f *fakeListingStore) Create(ctx context.Context, params listingrepo.CreateListingParams) (listingrepo.Listing, error) {
	return listingrepo.Listing{}, errors.New("not implemented")
}

func (f *fakeListingStore) Update(ctx context.Context, params listingrepo.UpdateListingParams) (listingrepo.Listing, error) {
	return listingrepo.Listing{}, errors.New("not implemented")
}

func (f *fakeListingStore) UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status string) (listingrepo.Listing, error) {
	return listingrepo.Listing{}, errors.New("not implemented")
}

func (f *fakeListingStore) Delete(ctx context.Context, sellerID, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeListingStore) GetByID(ctx context.Context, id uuid.UUID) (listingrepo.Listing, error) {
	listing, ok := f.listings[id]
	if !ok {
		return listingrepo.Listing{}, errors.New("no rows")
	}
	return listing, nil
}

func (f *fakeListingStore) List(ctx context.Context, params listingrepo.ListListingsParams) ([]listingrepo.Listing, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeListingStore) ListBySeller(ctx context.Context, sellerID uuid.UUID, offset, limit int) ([]listingrepo.Listing, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeListingStore) ListMissingCoordinates(ctx context.Context, limit int) ([]listingrepo.Listing, error) {
	out := make([]listingrepo.Listing, 0)
	for _, listing := range f.listings {
		if listing.Latitude == nil && (listing.Location != nil || listing.City != nil) {
			out = append(out, listing)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeListingStore) SetCoordinates(ctx context.Context, id uuid.UUID, latitude, longitude float64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.coords[id] = geo.Coordinates{Latitude: latitude, Longitude: longitude}
	return nil
}

type stubGeocoder struct {
	byAddress map[string]geo.Coordinates
	err       error
	calls     int
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (geo.Coordinates, error) {
	s.calls++
	if s.err != nil {
		return geo.Coordinates{}, s.err
	}
	coords, ok := s.byAddress[address]
	if !ok {
		return geo.Coordinates{}, geo.ErrNoResults
	}
	return coords, nil
}

func str(v string) *string { return &v }

func float(v float64) *float64 { return &v }

func seedListing(store *fakeListingStore, location, city *string, lat, lng *float64) uuid.UUID {
	id := uuid.New()
	store.listings[id] = listingrepo.Listing{
		ID:        id,
		Title:     "NCERT Physics",
		Location:  location,
		City:      city,
		Latitude:  lat,
		Longitude: lng,
	}
	return id
}

func TestGeocodeListingPersistsCoordinates(t *testing.T) {
	store := newFakeListingStore()
	id := seedListing(store, str("MG Road, Bengaluru"), nil, nil, nil)

	geocoder := &stubGeocoder{byAddress: map[string]geo.Coordinates{
		"MG Road, Bengaluru": {Latitude: 12.9758, Longitude: 77.6045},
	}}
	g := NewListingGeocoder(store, geocoder, logger.New("development"))

	if err := g.GeocodeListing(context.Background(), id); err != nil {
		t.Fatalf("GeocodeListing: %v", err)
	}

	coords, ok := store.coords[id]
	if !ok {
		t.Fatal("expected coordinates to be persisted")
	}
	if coords.Latitude != 12.9758 || coords.Longitude != 77.6045 {
		t.Fatalf("unexpected coordinates: %+v", coords)
	}
}

func TestGeocodeListingSkipsAlreadyResolved(t *testing.T) {
	store := newFakeListingStore()
	id := seedListing(store, str("MG Road, Bengaluru"), nil, float(12.9), float(77.6))

	geocoder := &stubGeocoder{}
	g := NewListingGeocoder(store, geocoder, logger.New("development"))

	if err := g.GeocodeListing(context.Background(), id); err != nil {
		t.Fatalf("GeocodeListing: %v", err)
	}
	if geocoder.calls != 0 {
		t.Fatalf("expected no geocode calls, got %d", geocoder.calls)
	}
}

func TestGeocodeListingFallsBackToCity(t *testing.T) {
	store := newFakeListingStore()
	id := seedListing(store, nil, str("Mysore"), nil, nil)

	geocoder := &stubGeocoder{byAddress: map[string]geo.Coordinates{
		"Mysore": {Latitude: 12.2958, Longitude: 76.6394},
	}}
	g := NewListingGeocoder(store, geocoder, logger.New("development"))

	if err := g.GeocodeListing(context.Background(), id); err != nil {
		t.Fatalf("GeocodeListing: %v", err)
	}
	if _, ok := store.coords[id]; !ok {
		t.Fatal("expected coordinates to be persisted")
	}
}

func TestGeocodeListingNoResultIsNotAnError(t *testing.T) {
	store := newFakeListingStore()
	id := seedListing(store, str("Nowhere Lane"), nil, nil, nil)

	g := NewListingGeocoder(store, &stubGeocoder{}, logger.New("development"))

	if err := g.GeocodeListing(context.Background(), id); err != nil {
		t.Fatalf("expected no-result to be swallowed, got %v", err)
	}
	if len(store.coords) != 0 {
		t.Fatal("expected no coordinates to be persisted")
	}
}

func TestGeocodeListingMissingListingIsNotAnError(t *testing.T) {
	store := newFakeListingStore()
	g := NewListingGeocoder(store, &stubGeocoder{}, logger.New("development"))

	if err := g.GeocodeListing(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected missing listing to be swallowed, got %v", err)
	}
}

func TestGeocodeListingUpstreamErrorPropagates(t *testing.T) {
	store := newFakeListingStore()
	id := seedListing(store, str("MG Road, Bengaluru"), nil, nil, nil)

	upstream := errors.New("service unavailable")
	g := NewListingGeocoder(store, &stubGeocoder{err: upstream}, logger.New("development"))

	if err := g.GeocodeListing(context.Background(), id); !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestSweepResolvesBatchAndSkipsFailures(t *testing.T) {
	store := newFakeListingStore()
	ok1 := seedListing(store, str("MG Road, Bengaluru"), nil, nil, nil)
	ok2 := seedListing(store, nil, str("Mysore"), nil, nil)
	seedListing(store, str("Nowhere Lane"), nil, nil, nil)

	geocoder := &stubGeocoder{byAddress: map[string]geo.Coordinates{
		"MG Road, Bengaluru": {Latitude: 12.9758, Longitude: 77.6045},
		"Mysore":             {Latitude: 12.2958, Longitude: 76.6394},
	}}
	g := NewListingGeocoder(store, geocoder, logger.New("development"))

	resolved, err := g.Sweep(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if resolved != 2 {
		t.Fatalf("expected 2 resolved, got %d", resolved)
	}
	if _, ok := store.coords[ok1]; !ok {
		t.Fatal("expected first listing to be geocoded")
	}
	if _, ok := store.coords[ok2]; !ok {
		t.Fatal("expected second listing to be geocoded")
	}
}

func TestSweepStopsOnCanceledContext(t *testing.T) {
	store := newFakeListingStore()
	seedListing(store, str("MG Road, Bengaluru"), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewListingGeocoder(store, &stubGeocoder{}, logger.New("development"))
	if _, err := g.Sweep(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
