// Package service implements the listings business logic, including the
// search pipeline that combines store-level filtering, relevance ranking and
// distance ordering.
package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bookmarket_backend/internal/adapters/storage"
	"bookmarket_backend/internal/geo"
	"bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/internal/listings/transport"
	"bookmarket_backend/internal/scheduler"
	"bookmarket_backend/internal/search"
	"bookmarket_backend/platform/apperr"
	"bookmarket_backend/platform/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// geocodeFanOut bounds concurrent per-candidate coordinate resolution.
	// The resolver's shared limiter still serializes actual upstream calls;
	// the bound keeps goroutine count under control for large result sets.
	geocodeFanOut = 8

	imageFolder = "listings"

	priceOnCall = "price_on_call"
)

// LocationResolver is the slice of the geo resolver the service depends on.
type LocationResolver interface {
	ResolveWithPriority(ctx context.Context, ref geo.LocationRef) *geo.Coordinates
}

// ProfileLocator supplies a user's stored location, used as fallback when a
// search request carries no explicit coordinates.
type ProfileLocator interface {
	LocationRef(ctx context.Context, userID uuid.UUID) (geo.LocationRef, error)
}

// Service provides business logic for listings.
type Service struct {
	repo             repository.Repository
	scorer           search.Scorer[repository.Listing]
	resolver         LocationResolver
	profiles         ProfileLocator
	storage          storage.StorageService
	geocodeScheduler scheduler.GeocodeScheduler
	bucket           string
	threshold        float64
	log              *logger.Logger
}

// New creates a new listings service.
func New(
	repo repository.Repository,
	scorer search.Scorer[repository.Listing],
	resolver LocationResolver,
	profiles ProfileLocator,
	storageSvc storage.StorageService,
	bucket string,
	threshold float64,
	log *logger.Logger,
) *Service {
	if threshold <= 0 {
		threshold = search.DefaultThreshold
	}
	return &Service{
		repo:      repo,
		scorer:    scorer,
		resolver:  resolver,
		profiles:  profiles,
		storage:   storageSvc,
		bucket:    bucket,
		threshold: threshold,
		log:       log,
	}
}

// SetGeocodeScheduler enables background coordinate resolution for listings
// created without map-picked coordinates.
func (s *Service) SetGeocodeScheduler(geocodeScheduler scheduler.GeocodeScheduler) {
	s.geocodeScheduler = geocodeScheduler
}

// searchFields defines the weighted attributes relevance ranking considers.
func searchFields() []search.Field[repository.Listing] {
	str := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return []search.Field[repository.Listing]{
		{Name: "title", Weight: 2.0, Value: func(l repository.Listing) string { return l.Title }},
		{Name: "subject", Weight: 1.8, Value: func(l repository.Listing) string { return str(l.Subject) }},
		{Name: "description", Weight: 1.5, Value: func(l repository.Listing) string { return str(l.Description) }},
		{Name: "author", Weight: 1.5, Value: func(l repository.Listing) string { return str(l.Author) }},
		{Name: "class_level", Weight: 1.5, Value: func(l repository.Listing) string { return str(l.ClassLevel) }},
		{Name: "board", Weight: 1.5, Value: func(l repository.Listing) string { return str(l.Board) }},
		{Name: "category", Weight: 1.5, Value: func(l repository.Listing) string { return l.Category }},
		{Name: "condition", Weight: 1.2, Value: func(l repository.Listing) string { return l.Condition }},
		{Name: "city", Weight: 1.0, Value: func(l repository.Listing) string { return str(l.City) }},
	}
}

// candidate carries a listing through the ranking pipeline.
type candidate struct {
	listing  repository.Listing
	score    *float64
	distance *float64 // nil when not computed; +Inf when unresolvable
}

// Search runs the listing search pipeline. With a free-text query the
// repository fetch is unpaginated: ranking scores the full filtered set, the
// reported total is the surviving-candidate count, and pagination happens
// last. Without a query, filtering, ordering and pagination all stay at the
// store, except for distance sorts which need in-memory ordering.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, req transport.SearchListingsRequest) (transport.ListingListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	query := strings.TrimSpace(req.Query)
	distanceSort := req.SortBy == "distance" || req.SortBy == "distance_desc"

	params := repository.ListListingsParams{
		Filters: repository.ListFilters{
			Category:    req.Category,
			Board:       req.Board,
			ClassLevel:  req.ClassLevel,
			Subject:     req.Subject,
			City:        req.City,
			Condition:   req.Condition,
			PriceStatus: req.PriceStatus,
			MinPrice:    req.MinPrice,
			MaxPrice:    req.MaxPrice,
		},
		SortBy: storeSortKey(req.SortBy),
	}
	fullSet := query != "" || distanceSort
	if !fullSet {
		params.Offset = (page - 1) * pageSize
		params.Limit = pageSize
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.log.DatabaseError("list listings", err)
		return transport.ListingListResponse{}, apperr.Wrap(apperr.KindInternal, "listing query failed", err)
	}

	candidates := make([]candidate, 0, len(items))
	if query != "" {
		ranked, err := s.scorer.Rank(ctx, query, items, searchFields(), s.threshold)
		if err != nil {
			return transport.ListingListResponse{}, apperr.Wrap(apperr.KindInternal, "relevance ranking failed", err)
		}
		for _, r := range ranked {
			score := r.Score
			candidates = append(candidates, candidate{listing: r.Item, score: &score})
		}
		total = len(candidates)
	} else {
		for _, item := range items {
			candidates = append(candidates, candidate{listing: item})
		}
	}

	if distanceSort {
		// An unresolved user location degrades silently to the prior
		// ordering; the search still succeeds.
		if user := s.userCoordinates(ctx, userID, req); user != nil {
			s.annotateDistances(ctx, candidates, *user)
			sortByDistance(candidates, req.SortBy == "distance_desc")
		}
	}

	if fullSet {
		candidates = paginate(candidates, page, pageSize)
	}

	return toListResponse(candidates, total, page, pageSize), nil
}

// userCoordinates resolves the searcher's position: explicit request
// coordinates win, then the stored profile location. Returns nil when
// nothing resolves.
func (s *Service) userCoordinates(ctx context.Context, userID uuid.UUID, req transport.SearchListingsRequest) *geo.Coordinates {
	var ref geo.LocationRef
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		ref.MapPicked = &geo.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	case userID != uuid.Nil && s.profiles != nil:
		stored, err := s.profiles.LocationRef(ctx, userID)
		if err != nil {
			s.log.Debug("profile location unavailable", "userId", userID, "error", err)
			return nil
		}
		ref = stored
	default:
		return nil
	}
	return s.resolver.ResolveWithPriority(ctx, ref)
}

// annotateDistances fills in each candidate's distance from the user with a
// bounded fan-out. Candidates whose location cannot be resolved get +Inf.
func (s *Service) annotateDistances(ctx context.Context, candidates []candidate, user geo.Coordinates) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(geocodeFanOut)
	for i := range candidates {
		i := i
		g.Go(func() error {
			coords := s.resolver.ResolveWithPriority(ctx, locationRefOf(candidates[i].listing))
			d := math.Inf(1)
			if coords != nil {
				d = geo.DistanceKm(user, *coords)
			}
			candidates[i].distance = &d
			return nil
		})
	}
	// Workers never fail; unresolvable locations already degraded to +Inf.
	_ = g.Wait()
}

func locationRefOf(l repository.Listing) geo.LocationRef {
	ref := geo.LocationRef{}
	if l.Latitude != nil && l.Longitude != nil {
		ref.MapPicked = &geo.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}
	}
	if l.Location != nil {
		ref.Address = *l.Location
	} else if l.City != nil {
		ref.Address = *l.City
	}
	return ref
}

// sortByDistance orders candidates by distance, keeping unresolvable (+Inf)
// entries last in both directions and preserving the prior order for ties.
func sortByDistance(candidates []candidate, descending bool) {
	dist := func(c candidate) float64 {
		if c.distance == nil {
			return math.Inf(1)
		}
		return *c.distance
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := dist(candidates[i]), dist(candidates[j])
		iInf, jInf := math.IsInf(di, 1), math.IsInf(dj, 1)
		if iInf || jInf {
			return !iInf && jInf
		}
		if descending {
			return di > dj
		}
		return di < dj
	})
}

// storeSortKey maps request sorts to store-level order keys. Relevance and
// distance ordering happen in memory, so those fall back to newest-first.
func storeSortKey(sortBy string) string {
	switch sortBy {
	case "date_asc", "price_asc", "price_desc":
		return sortBy
	default:
		return "newest"
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func paginate(candidates []candidate, page, pageSize int) []candidate {
	start := (page - 1) * pageSize
	if start >= len(candidates) {
		return nil
	}
	end := start + pageSize
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[start:end]
}

// GetByID retrieves a single listing.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ListingResponse, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ListingResponse{}, err
	}
	return toListingResponse(candidate{listing: listing}), nil
}

// Create creates a listing for the given seller.
func (s *Service) Create(ctx context.Context, sellerID uuid.UUID, req transport.CreateListingRequest) (transport.ListingResponse, error) {
	if err := validatePricing(req.PriceStatus, req.Price); err != nil {
		return transport.ListingResponse{}, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return transport.ListingResponse{}, apperr.Validation("latitude and longitude must be provided together")
	}

	listing, err := s.repo.Create(ctx, repository.CreateListingParams{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(req.Title),
		Author:      req.Author,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Board:       req.Board,
		ClassLevel:  req.ClassLevel,
		Subject:     req.Subject,
		Price:       req.Price,
		PriceStatus: req.PriceStatus,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		City:        req.City,
		Images:      req.Images,
	})
	if err != nil {
		return transport.ListingResponse{}, err
	}

	if s.geocodeScheduler != nil && listing.Latitude == nil && (listing.Location != nil || listing.City != nil) {
		if err := s.geocodeScheduler.ScheduleListingGeocode(ctx, scheduler.ListingGeocodePayload{ListingID: listing.ID.String()}); err != nil {
			s.log.Warn("could not schedule listing geocode", "id", listing.ID, "error", err)
		}
	}

	s.log.Info("listing created", "id", listing.ID, "sellerId", sellerID, "title", listing.Title)
	return toListingResponse(candidate{listing: listing}), nil
}

// Update modifies a listing the seller owns.
func (s *Service) Update(ctx context.Context, sellerID, id uuid.UUID, req transport.UpdateListingRequest) (transport.ListingResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ListingResponse{}, err
	}
	if current.SellerID != sellerID {
		return transport.ListingResponse{}, apperr.NotFound("listing not found")
	}

	status := current.PriceStatus
	if req.PriceStatus != nil {
		status = *req.PriceStatus
	}
	if status == priceOnCall {
		// The store nullifies any previously stored price on this
		// transition; only an explicit new price is a conflict.
		if req.Price != nil {
			return transport.ListingResponse{}, apperr.Validation("price must be omitted for price-on-call listings")
		}
	} else {
		price := current.Price
		if req.Price != nil {
			price = req.Price
		}
		if err := validatePricing(status, price); err != nil {
			return transport.ListingResponse{}, err
		}
	}

	listing, err := s.repo.Update(ctx, repository.UpdateListingParams{
		ID:          id,
		SellerID:    sellerID,
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Board:       req.Board,
		ClassLevel:  req.ClassLevel,
		Subject:     req.Subject,
		Price:       req.Price,
		PriceStatus: req.PriceStatus,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		City:        req.City,
		Images:      req.Images,
	})
	if err != nil {
		return transport.ListingResponse{}, err
	}

	s.log.Info("listing updated", "id", id, "sellerId", sellerID)
	return toListingResponse(candidate{listing: listing}), nil
}

// UpdateStatus transitions a listing between available, sold and reserved.
func (s *Service) UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status string) (transport.ListingResponse, error) {
	listing, err := s.repo.UpdateStatus(ctx, sellerID, id, status)
	if err != nil {
		return transport.ListingResponse{}, err
	}

	s.log.Info("listing status changed", "id", id, "status", status)
	return toListingResponse(candidate{listing: listing}), nil
}

// Delete removes a listing the seller owns. Stored images are cleaned up
// best effort; an orphaned object never blocks the delete.
func (s *Service) Delete(ctx context.Context, sellerID, id uuid.UUID) error {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if listing.SellerID != sellerID {
		return apperr.NotFound("listing not found")
	}

	if err := s.repo.Delete(ctx, sellerID, id); err != nil {
		return err
	}

	if s.storage != nil {
		for _, key := range listing.Images {
			if err := s.storage.DeleteObject(ctx, s.bucket, key); err != nil {
				s.log.UpstreamError("storage", "delete listing image", err)
			}
		}
	}

	s.log.Info("listing deleted", "id", id, "sellerId", sellerID)
	return nil
}

// ListOwn retrieves the seller's own listings, any status.
func (s *Service) ListOwn(ctx context.Context, sellerID uuid.UUID, req transport.ListOwnListingsRequest) (transport.ListingListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	items, total, err := s.repo.ListBySeller(ctx, sellerID, (page-1)*pageSize, pageSize)
	if err != nil {
		s.log.DatabaseError("list seller listings", err)
		return transport.ListingListResponse{}, apperr.Wrap(apperr.KindInternal, "listing query failed", err)
	}

	candidates := make([]candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, candidate{listing: item})
	}
	return toListResponse(candidates, total, page, pageSize), nil
}

// PresignImageUpload returns a presigned upload URL for a listing image.
func (s *Service) PresignImageUpload(ctx context.Context, sellerID uuid.UUID, req transport.PresignUploadRequest) (transport.PresignUploadResponse, error) {
	if s.storage == nil {
		return transport.PresignUploadResponse{}, apperr.Unavailable("image storage is not configured")
	}
	if err := s.storage.ValidateContentType(req.ContentType); err != nil {
		return transport.PresignUploadResponse{}, apperr.Validation(err.Error())
	}
	if err := s.storage.ValidateFileSize(req.SizeBytes); err != nil {
		return transport.PresignUploadResponse{}, apperr.Validation(err.Error())
	}

	folder := imageFolder + "/" + sellerID.String()
	presigned, err := s.storage.GenerateUploadURL(ctx, s.bucket, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		s.log.UpstreamError("storage", "presign upload", err)
		return transport.PresignUploadResponse{}, apperr.Wrap(apperr.KindUnavailable, "could not presign upload", err)
	}
	return transport.PresignUploadResponse{UploadURL: presigned.URL, ObjectKey: presigned.FileKey}, nil
}

func validatePricing(status string, price *float64) error {
	if status == priceOnCall {
		if price != nil {
			return apperr.Validation("price must be omitted for price-on-call listings")
		}
		return nil
	}
	if price == nil {
		return apperr.Validation("price is required unless the listing is price-on-call")
	}
	if *price < 0 {
		return apperr.Validation("price must not be negative")
	}
	return nil
}

func toListingResponse(c candidate) transport.ListingResponse {
	l := c.listing
	resp := transport.ListingResponse{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Author:      l.Author,
		Description: l.Description,
		Category:    l.Category,
		Condition:   l.Condition,
		Board:       l.Board,
		ClassLevel:  l.ClassLevel,
		Subject:     l.Subject,
		Price:       l.Price,
		PriceStatus: l.PriceStatus,
		Location:    l.Location,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		City:        l.City,
		Images:      l.Images,
		Status:      l.Status,
		Score:       c.score,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	if c.distance != nil && !math.IsInf(*c.distance, 1) {
		resp.DistanceKm = c.distance
	}
	return resp
}

func toListResponse(candidates []candidate, total, page, pageSize int) transport.ListingListResponse {
	items := make([]transport.ListingResponse, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, toListingResponse(c))
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.ListingListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
