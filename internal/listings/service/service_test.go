package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookmarket_backend/internal/geo"
	"bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/internal/listings/transport"
	"bookmarket_backend/internal/scheduler"
	"bookmarket_backend/internal/search"
	"bookmarket_backend/platform/apperr"
	"bookmarket_backend/platform/logger"
)

// fakeRepo is an in-memory repository with just enough filter and sort
// behavior to exercise the service pipeline.
type fakeRepo struct {
	listings []repository.Listing
	lastList repository.ListListingsParams
	listErr  error
}

var _ repository.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) Create(_ context.Context, params repository.CreateListingParams) (repository.Listing, error) {
	l := repository.Listing{
		ID:          uuid.New(),
		SellerID:    params.SellerID,
		Title:       params.Title,
		Author:      params.Author,
		Description: params.Description,
		Category:    params.Category,
		Condition:   params.Condition,
		Board:       params.Board,
		ClassLevel:  params.ClassLevel,
		Subject:     params.Subject,
		Price:       params.Price,
		PriceStatus: params.PriceStatus,
		Location:    params.Location,
		Latitude:    params.Latitude,
		Longitude:   params.Longitude,
		City:        params.City,
		Images:      params.Images,
		Status:      "available",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	f.listings = append(f.listings, l)
	return l, nil
}

func (f *fakeRepo) Update(_ context.Context, params repository.UpdateListingParams) (repository.Listing, error) {
	for i, l := range f.listings {
		if l.ID == params.ID && l.SellerID == params.SellerID {
			if params.Title != nil {
				l.Title = *params.Title
			}
			if params.PriceStatus != nil {
				l.PriceStatus = *params.PriceStatus
				if *params.PriceStatus == "price_on_call" {
					l.Price = nil
				}
			}
			if params.Price != nil && l.PriceStatus != "price_on_call" {
				l.Price = params.Price
			}
			f.listings[i] = l
			return l, nil
		}
	}
	return repository.Listing{}, apperr.NotFound("listing not found")
}

func (f *fakeRepo) UpdateStatus(_ context.Context, sellerID, id uuid.UUID, status string) (repository.Listing, error) {
	for i, l := range f.listings {
		if l.ID == id && l.SellerID == sellerID {
			f.listings[i].Status = status
			return f.listings[i], nil
		}
	}
	return repository.Listing{}, apperr.NotFound("listing not found")
}

func (f *fakeRepo) Delete(_ context.Context, sellerID, id uuid.UUID) error {
	for i, l := range f.listings {
		if l.ID == id && l.SellerID == sellerID {
			f.listings = append(f.listings[:i], f.listings[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("listing not found")
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Listing, error) {
	for _, l := range f.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return repository.Listing{}, apperr.NotFound("listing not found")
}

func (f *fakeRepo) List(_ context.Context, params repository.ListListingsParams) ([]repository.Listing, int, error) {
	f.lastList = params
	if f.listErr != nil {
		return nil, 0, f.listErr
	}

	matched := make([]repository.Listing, 0, len(f.listings))
	for _, l := range f.listings {
		if l.Status != "available" {
			continue
		}
		if params.Filters.Category != "" && l.Category != params.Filters.Category {
			continue
		}
		if params.Filters.Condition != "" && l.Condition != params.Filters.Condition {
			continue
		}
		if params.Filters.PriceStatus != "" && l.PriceStatus != params.Filters.PriceStatus {
			continue
		}
		matched = append(matched, l)
	}

	switch params.SortBy {
	case "price_asc", "price_desc":
		asc := params.SortBy == "price_asc"
		sort.SliceStable(matched, func(i, j int) bool {
			pi, pj := matched[i].Price, matched[j].Price
			if (pi == nil) != (pj == nil) {
				return pj == nil
			}
			if pi == nil {
				return false
			}
			if asc {
				return *pi < *pj
			}
			return *pi > *pj
		})
	case "date_asc":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt < matched[j].CreatedAt })
	default:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt > matched[j].CreatedAt })
	}

	total := len(matched)
	if params.Limit > 0 {
		start := params.Offset
		if start > len(matched) {
			start = len(matched)
		}
		end := start + params.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (f *fakeRepo) ListBySeller(_ context.Context, sellerID uuid.UUID, offset, limit int) ([]repository.Listing, int, error) {
	matched := make([]repository.Listing, 0)
	for _, l := range f.listings {
		if l.SellerID == sellerID {
			matched = append(matched, l)
		}
	}
	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeRepo) ListMissingCoordinates(_ context.Context, limit int) ([]repository.Listing, error) {
	matched := make([]repository.Listing, 0)
	for _, l := range f.listings {
		if l.Latitude == nil && (l.Location != nil || l.City != nil) {
			matched = append(matched, l)
		}
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (f *fakeRepo) SetCoordinates(_ context.Context, id uuid.UUID, latitude, longitude float64) error {
	for i, l := range f.listings {
		if l.ID == id {
			f.listings[i].Latitude = &latitude
			f.listings[i].Longitude = &longitude
			return nil
		}
	}
	return apperr.NotFound("listing not found")
}

// stubResolver resolves locations from a fixed address table, honoring the
// map-picked > stored > address precedence.
type stubResolver struct {
	byAddress map[string]geo.Coordinates
}

func (s *stubResolver) ResolveWithPriority(_ context.Context, ref geo.LocationRef) *geo.Coordinates {
	if ref.MapPicked != nil && ref.MapPicked.Valid() {
		c := *ref.MapPicked
		return &c
	}
	if c, ok := geo.ParseCoordinates(ref.Stored); ok {
		return &c
	}
	if c, ok := s.byAddress[ref.Address]; ok {
		return &c
	}
	return nil
}

type stubProfiles struct {
	ref geo.LocationRef
	err error
}

func (s *stubProfiles) LocationRef(_ context.Context, _ uuid.UUID) (geo.LocationRef, error) {
	return s.ref, s.err
}

type failingScorer struct{}

func (failingScorer) Rank(_ context.Context, _ string, _ []repository.Listing, _ []search.Field[repository.Listing], _ float64) ([]search.Scored[repository.Listing], error) {
	return nil, errors.New("scorer exploded")
}

func newTestService(repo *fakeRepo, resolver LocationResolver, profiles ProfileLocator) *Service {
	if resolver == nil {
		resolver = &stubResolver{}
	}
	scorer := search.NewFuzzyScorer[repository.Listing]()
	return New(repo, scorer, resolver, profiles, nil, "", 0.4, logger.New("development"))
}

func seedListing(title, category string, price *float64, createdAt time.Time) repository.Listing {
	priceStatus := "fixed"
	if price == nil {
		priceStatus = "price_on_call"
	}
	return repository.Listing{
		ID:          uuid.New(),
		SellerID:    uuid.New(),
		Title:       title,
		Category:    category,
		Condition:   "good",
		Price:       price,
		PriceStatus: priceStatus,
		Status:      "available",
		CreatedAt:   createdAt.UTC().Format(time.RFC3339),
		UpdatedAt:   createdAt.UTC().Format(time.RFC3339),
	}
}

func float(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func TestSearchWithQueryRanksFullSetBeforePagination(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		repo.listings = append(repo.listings,
			seedListing(fmt.Sprintf("Physics Textbook %d", i), "school-textbooks", float(100), base.Add(time.Duration(i)*time.Minute)))
	}
	for i := 0; i < 5; i++ {
		repo.listings = append(repo.listings,
			seedListing(fmt.Sprintf("Cooking Basics %d", i), "other", float(50), base.Add(time.Duration(30+i)*time.Minute)))
	}

	svc := newTestService(repo, nil, nil)
	result, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{
		Query: "physics", Page: 1, PageSize: 10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if repo.lastList.Limit != 0 {
		t.Errorf("query search should fetch the full filtered set, repo got limit %d", repo.lastList.Limit)
	}
	if result.Total != 25 {
		t.Errorf("total = %d, want 25 (surviving candidates, not page size)", result.Total)
	}
	if len(result.Items) != 10 {
		t.Errorf("page 1 has %d items, want 10", len(result.Items))
	}
	if result.TotalPages != 3 {
		t.Errorf("totalPages = %d, want 3", result.TotalPages)
	}
	for _, item := range result.Items {
		if item.Score == nil {
			t.Fatalf("item %q missing relevance score", item.Title)
		}
	}

	last, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{
		Query: "physics", Page: 3, PageSize: 10,
	})
	if err != nil {
		t.Fatalf("Search page 3: %v", err)
	}
	if len(last.Items) != 5 {
		t.Errorf("page 3 has %d items, want 5", len(last.Items))
	}
}

func TestSearchWithQueryExcludesUnrelatedTitles(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.listings = []repository.Listing{
		seedListing("Introduction to Physics", "school-textbooks", float(100), base),
		seedListing("Advanced Physics Volume 2", "school-textbooks", float(120), base.Add(time.Minute)),
		seedListing("Cooking Basics", "other", float(50), base.Add(2*time.Minute)),
	}

	svc := newTestService(repo, nil, nil)
	result, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{
		Query: "physics", Page: 1, PageSize: 10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// "basics" is a near-miss of "physics" at the token level; it must not
	// ride a single weak title match past the threshold.
	if result.Total != 2 {
		t.Fatalf("total = %d, want only the two physics listings (got %v)", result.Total, titles(result.Items))
	}
	for _, item := range result.Items {
		if item.Title == "Cooking Basics" {
			t.Errorf("unrelated listing survived with score %v", *item.Score)
		}
	}
}

func TestSearchWithoutQueryPaginatesAtStore(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		repo.listings = append(repo.listings,
			seedListing(fmt.Sprintf("Book %d", i), "school-textbooks", float(100), base.Add(time.Duration(i)*time.Minute)))
	}

	svc := newTestService(repo, nil, nil)
	result, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if repo.lastList.Limit != 3 || repo.lastList.Offset != 3 {
		t.Errorf("repo pagination = limit %d offset %d, want 3/3", repo.lastList.Limit, repo.lastList.Offset)
	}
	if result.Total != 7 {
		t.Errorf("total = %d, want 7", result.Total)
	}
	if len(result.Items) != 3 {
		t.Errorf("got %d items, want 3", len(result.Items))
	}
	for _, item := range result.Items {
		if item.Score != nil {
			t.Errorf("item %q has a score without a query", item.Title)
		}
	}
}

// The nil-price ordering itself lives in the store's NULLS LAST SQL; the fake
// repo mirrors it, so this covers the service passing the sort key through
// unmodified, not the SQL ordering.
func TestSearchPriceSortsKeepPriceOnCallLast(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.listings = []repository.Listing{
		seedListing("Cheap", "other", float(50), base),
		seedListing("On Call", "other", nil, base.Add(time.Minute)),
		seedListing("Expensive", "other", float(500), base.Add(2*time.Minute)),
	}

	svc := newTestService(repo, nil, nil)
	for _, sortBy := range []string{"price_asc", "price_desc"} {
		result, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{SortBy: sortBy})
		if err != nil {
			t.Fatalf("Search(%s): %v", sortBy, err)
		}
		if repo.lastList.SortBy != sortBy {
			t.Errorf("store sort key = %q, want %q", repo.lastList.SortBy, sortBy)
		}
		if got := result.Items[len(result.Items)-1].Title; got != "On Call" {
			t.Errorf("%s: last item = %q, want the price-on-call listing", sortBy, got)
		}
	}
}

func TestSearchDistanceSortInfinityLastBothDirections(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	near := seedListing("Near", "other", float(10), base)
	near.Latitude, near.Longitude = float(12.98), float(77.60)
	mid := seedListing("Mid", "other", float(10), base.Add(time.Minute))
	mid.Location = str("Mysore")
	far := seedListing("Far", "other", float(10), base.Add(2*time.Minute))
	far.Latitude, far.Longitude = float(28.61), float(77.20)
	unknown := seedListing("Unknown", "other", float(10), base.Add(3*time.Minute))
	repo.listings = []repository.Listing{near, mid, far, unknown}

	resolver := &stubResolver{byAddress: map[string]geo.Coordinates{
		"Mysore": {Latitude: 12.2958, Longitude: 76.6394},
	}}
	svc := newTestService(repo, resolver, nil)

	asc, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{
		SortBy: "distance", Latitude: float(12.9716), Longitude: float(77.5946),
	})
	if err != nil {
		t.Fatalf("Search asc: %v", err)
	}
	wantAsc := []string{"Near", "Mid", "Far", "Unknown"}
	for i, title := range wantAsc {
		if asc.Items[i].Title != title {
			t.Fatalf("asc order = %v, want %v", titles(asc.Items), wantAsc)
		}
	}
	if asc.Items[0].DistanceKm == nil {
		t.Error("resolved item missing distance annotation")
	}
	if asc.Items[3].DistanceKm != nil {
		t.Error("unresolvable item should have no distance annotation")
	}

	desc, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{
		SortBy: "distance_desc", Latitude: float(12.9716), Longitude: float(77.5946),
	})
	if err != nil {
		t.Fatalf("Search desc: %v", err)
	}
	wantDesc := []string{"Far", "Mid", "Near", "Unknown"}
	for i, title := range wantDesc {
		if desc.Items[i].Title != title {
			t.Fatalf("desc order = %v, want %v (unresolved stays last)", titles(desc.Items), wantDesc)
		}
	}
}

func TestSearchDistanceSortDegradesWithoutUserLocation(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := seedListing("Older", "other", float(10), base)
	newer := seedListing("Newer", "other", float(10), base.Add(time.Minute))
	repo.listings = []repository.Listing{older, newer}

	svc := newTestService(repo, &stubResolver{}, &stubProfiles{err: errors.New("no profile")})
	result, err := svc.Search(context.Background(), uuid.New(), transport.SearchListingsRequest{SortBy: "distance"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if result.Items[0].Title != "Newer" || result.Items[1].Title != "Older" {
		t.Errorf("order = %v, want newest-first fallback", titles(result.Items))
	}
	for _, item := range result.Items {
		if item.DistanceKm != nil {
			t.Errorf("item %q annotated with distance despite unknown user location", item.Title)
		}
	}
}

func TestSearchUsesProfileLocationFallback(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	near := seedListing("Near", "other", float(10), base)
	near.Latitude, near.Longitude = float(12.98), float(77.60)
	far := seedListing("Far", "other", float(10), base.Add(time.Minute))
	far.Latitude, far.Longitude = float(28.61), float(77.20)
	repo.listings = []repository.Listing{far, near}

	profiles := &stubProfiles{ref: geo.LocationRef{Stored: "12.9716, 77.5946"}}
	svc := newTestService(repo, &stubResolver{}, profiles)

	result, err := svc.Search(context.Background(), uuid.New(), transport.SearchListingsRequest{SortBy: "distance"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Items[0].Title != "Near" {
		t.Errorf("order = %v, want the stored profile location to drive the sort", titles(result.Items))
	}
}

func TestSearchStoreFailureSurfacesAsInternal(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("connection refused")}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("got %v, want internal error", err)
	}
}

func TestSearchScorerFailureSurfacesAsInternal(t *testing.T) {
	repo := &fakeRepo{listings: []repository.Listing{
		seedListing("Physics", "other", float(10), time.Now()),
	}}
	svc := New(repo, failingScorer{}, &stubResolver{}, nil, nil, "", 0.4, logger.New("development"))

	_, err := svc.Search(context.Background(), uuid.Nil, transport.SearchListingsRequest{Query: "physics"})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("got %v, want internal error", err)
	}
}

func TestCreateEnforcesPricingInvariant(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	seller := uuid.New()

	_, err := svc.Create(context.Background(), seller, transport.CreateListingRequest{
		Title: "Book", Category: "other", Condition: "good",
		PriceStatus: "price_on_call", Price: float(100),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("price-on-call with price: got %v, want validation error", err)
	}

	_, err = svc.Create(context.Background(), seller, transport.CreateListingRequest{
		Title: "Book", Category: "other", Condition: "good", PriceStatus: "fixed",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("fixed without price: got %v, want validation error", err)
	}

	created, err := svc.Create(context.Background(), seller, transport.CreateListingRequest{
		Title: "Book", Category: "other", Condition: "good",
		PriceStatus: "price_on_call",
	})
	if err != nil {
		t.Fatalf("valid price-on-call create: %v", err)
	}
	if created.Price != nil {
		t.Error("price-on-call listing stored a price")
	}
}

func TestUpdateIsOwnerScoped(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, transport.CreateListingRequest{
		Title: "Book", Category: "other", Condition: "good",
		PriceStatus: "fixed", Price: float(100),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(context.Background(), uuid.New(), created.ID, transport.UpdateListingRequest{
		Title: str("Hijacked"),
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("foreign update: got %v, want not found", err)
	}

	updated, err := svc.Update(context.Background(), owner, created.ID, transport.UpdateListingRequest{
		Title: str("Renamed"),
	})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", updated.Title)
	}
}

func TestUpdateToPriceOnCallRejectsPrice(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, transport.CreateListingRequest{
		Title: "Book", Category: "other", Condition: "good",
		PriceStatus: "fixed", Price: float(100),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(context.Background(), owner, created.ID, transport.UpdateListingRequest{
		PriceStatus: str("price_on_call"), Price: float(50),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("got %v, want validation error", err)
	}

	updated, err := svc.Update(context.Background(), owner, created.ID, transport.UpdateListingRequest{
		PriceStatus: str("price_on_call"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Price != nil {
		t.Error("transition to price-on-call should clear the stored price")
	}
}

func titles(items []transport.ListingResponse) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

type recordingGeocodeScheduler struct {
	scheduled []scheduler.ListingGeocodePayload
	err       error
}

func (r *recordingGeocodeScheduler) ScheduleListingGeocode(_ context.Context, payload scheduler.ListingGeocodePayload) error {
	r.scheduled = append(r.scheduled, payload)
	return r.err
}

func TestCreateSchedulesGeocodeForTextualLocations(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	sched := &recordingGeocodeScheduler{}
	svc.SetGeocodeScheduler(sched)
	seller := uuid.New()

	created, err := svc.Create(context.Background(), seller, transport.CreateListingRequest{
		Title: "NCERT Physics", Category: "textbook", Condition: "good",
		PriceStatus: "fixed", Price: float(150), Location: str("MG Road, Bengaluru"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(sched.scheduled) != 1 {
		t.Fatalf("expected 1 geocode task, got %d", len(sched.scheduled))
	}
	if sched.scheduled[0].ListingID != created.ID.String() {
		t.Errorf("scheduled wrong listing: %s", sched.scheduled[0].ListingID)
	}

	// Map-picked coordinates need no background resolution.
	_, err = svc.Create(context.Background(), seller, transport.CreateListingRequest{
		Title: "NCERT Chemistry", Category: "textbook", Condition: "good",
		PriceStatus: "fixed", Price: float(150),
		Latitude: float(12.97), Longitude: float(77.59), Location: str("MG Road"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sched.scheduled) != 1 {
		t.Fatalf("expected no new geocode task, got %d", len(sched.scheduled))
	}
}

func TestCreateSucceedsWhenGeocodeScheduleFails(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	svc.SetGeocodeScheduler(&recordingGeocodeScheduler{err: errors.New("redis down")})

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateListingRequest{
		Title: "NCERT Physics", Category: "textbook", Condition: "good",
		PriceStatus: "fixed", Price: float(150), City: str("Mysore"),
	})
	if err != nil {
		t.Fatalf("Create should tolerate enqueue failure: %v", err)
	}
}
