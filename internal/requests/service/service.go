// Package service implements the book requests business logic: the request
// board with store-level text search, distance annotation, and seller
// notification for listing-bound requests.
package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bookmarket_backend/internal/email"
	"bookmarket_backend/internal/geo"
	listingtransport "bookmarket_backend/internal/listings/transport"
	"bookmarket_backend/internal/requests/repository"
	"bookmarket_backend/internal/requests/transport"
	"bookmarket_backend/platform/apperr"
	"bookmarket_backend/platform/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	geocodeFanOut   = 8
)

// LocationResolver is the slice of the geo resolver the service depends on.
type LocationResolver interface {
	ResolveWithPriority(ctx context.Context, ref geo.LocationRef) *geo.Coordinates
}

// ProfileDirectory supplies user contact details and stored locations.
type ProfileDirectory interface {
	ContactEmail(ctx context.Context, userID uuid.UUID) (string, error)
	DisplayName(ctx context.Context, userID uuid.UUID) string
	LocationRef(ctx context.Context, userID uuid.UUID) (geo.LocationRef, error)
}

// ListingDirectory looks up listings a request may be bound to.
type ListingDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (listingtransport.ListingResponse, error)
}

// Service provides business logic for book requests.
type Service struct {
	repo     repository.Repository
	resolver LocationResolver
	profiles ProfileDirectory
	listings ListingDirectory
	mailer   email.Sender
	log      *logger.Logger
}

// New creates a new book requests service.
func New(
	repo repository.Repository,
	resolver LocationResolver,
	profiles ProfileDirectory,
	listings ListingDirectory,
	mailer email.Sender,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		profiles: profiles,
		listings: listings,
		mailer:   mailer,
		log:      log,
	}
}

// annotated pairs a request with its distance from the searcher.
type annotated struct {
	request  repository.BookRequest
	distance *float64
}

// List retrieves the request board. Text search, filters and pagination run
// at the store; distance sorts fetch the full filtered set and order in
// memory with unresolvable entries last.
func (s *Service) List(ctx context.Context, userID uuid.UUID, req transport.ListRequestsRequest) (transport.RequestListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	distanceSort := req.SortBy == "distance" || req.SortBy == "distance_desc"

	params := repository.ListRequestsParams{
		Search:     strings.TrimSpace(req.Search),
		Category:   req.Category,
		Board:      req.Board,
		ClassLevel: req.ClassLevel,
		Subject:    req.Subject,
		City:       req.City,
		SortBy:     storeSortKey(req.SortBy),
	}
	if !distanceSort {
		params.Offset = (page - 1) * pageSize
		params.Limit = pageSize
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.log.DatabaseError("list book requests", err)
		return transport.RequestListResponse{}, apperr.Wrap(apperr.KindInternal, "request query failed", err)
	}

	entries := make([]annotated, 0, len(items))
	for _, item := range items {
		entries = append(entries, annotated{request: item})
	}

	if user := s.userCoordinates(ctx, userID, req); user != nil {
		s.annotateDistances(ctx, entries, *user)
		if distanceSort {
			sortByDistance(entries, req.SortBy == "distance_desc")
		}
	}
	if distanceSort {
		entries = paginatePage(entries, page, pageSize)
	}

	return toListResponse(entries, total, page, pageSize), nil
}

// GetByID retrieves a single book request.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.RequestResponse, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	return toResponse(annotated{request: request}), nil
}

// Create records a book request. When the request is bound to a listing, the
// seller is notified by email; notification failures are logged, never
// surfaced, so a flaky mail server cannot block the request.
func (s *Service) Create(ctx context.Context, requesterID uuid.UUID, req transport.CreateRequestRequest) (transport.RequestResponse, error) {
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return transport.RequestResponse{}, apperr.Validation("latitude and longitude must be provided together")
	}

	var listing *listingtransport.ListingResponse
	if req.ListingID != nil {
		found, err := s.listings.GetByID(ctx, *req.ListingID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return transport.RequestResponse{}, apperr.Validation("referenced listing does not exist")
			}
			return transport.RequestResponse{}, err
		}
		listing = &found
	}

	request, err := s.repo.Create(ctx, repository.CreateRequestParams{
		RequesterID: requesterID,
		ListingID:   req.ListingID,
		Title:       strings.TrimSpace(req.Title),
		Author:      req.Author,
		Message:     req.Message,
		Category:    req.Category,
		Board:       req.Board,
		ClassLevel:  req.ClassLevel,
		Subject:     req.Subject,
		Condition:   req.Condition,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		City:        req.City,
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	if listing != nil {
		s.notifySeller(ctx, requesterID, *listing, request)
	}

	s.log.Info("book request created", "id", request.ID, "requesterId", requesterID, "title", request.Title)
	return toResponse(annotated{request: request}), nil
}

// Delete removes a book request owned by the requester.
func (s *Service) Delete(ctx context.Context, requesterID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, requesterID, id); err != nil {
		return err
	}
	s.log.Info("book request deleted", "id", id, "requesterId", requesterID)
	return nil
}

func (s *Service) notifySeller(ctx context.Context, requesterID uuid.UUID, listing listingtransport.ListingResponse, request repository.BookRequest) {
	toEmail, err := s.profiles.ContactEmail(ctx, listing.SellerID)
	if err != nil {
		s.log.Debug("seller has no contact email, skipping notification", "sellerId", listing.SellerID)
		return
	}

	message := ""
	if request.Message != nil {
		message = *request.Message
	}
	requesterName := s.profiles.DisplayName(ctx, requesterID)
	if err := s.mailer.SendBookRequestEmail(ctx, toEmail, requesterName, listing.Title, message); err != nil {
		s.log.UpstreamError("email", "send book request notification", err)
	}
}

func (s *Service) userCoordinates(ctx context.Context, userID uuid.UUID, req transport.ListRequestsRequest) *geo.Coordinates {
	var ref geo.LocationRef
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		ref.MapPicked = &geo.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	case userID != uuid.Nil && s.profiles != nil:
		stored, err := s.profiles.LocationRef(ctx, userID)
		if err != nil {
			return nil
		}
		ref = stored
	default:
		return nil
	}
	return s.resolver.ResolveWithPriority(ctx, ref)
}

func (s *Service) annotateDistances(ctx context.Context, entries []annotated, user geo.Coordinates) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(geocodeFanOut)
	for i := range entries {
		i := i
		g.Go(func() error {
			coords := s.resolver.ResolveWithPriority(ctx, locationRefOf(entries[i].request))
			d := math.Inf(1)
			if coords != nil {
				d = geo.DistanceKm(user, *coords)
			}
			entries[i].distance = &d
			return nil
		})
	}
	_ = g.Wait()
}

func locationRefOf(r repository.BookRequest) geo.LocationRef {
	ref := geo.LocationRef{}
	if r.Latitude != nil && r.Longitude != nil {
		ref.MapPicked = &geo.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	if r.Location != nil {
		ref.Address = *r.Location
	} else if r.City != nil {
		ref.Address = *r.City
	}
	return ref
}

func sortByDistance(entries []annotated, descending bool) {
	dist := func(e annotated) float64 {
		if e.distance == nil {
			return math.Inf(1)
		}
		return *e.distance
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dist(entries[i]), dist(entries[j])
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

func storeSortKey(sortBy string) string {
	if sortBy == "date_asc" {
		return "date_asc"
	}
	return "newest"
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

func paginatePage(entries []annotated, page, pageSize int) []annotated {
	start := (page - 1) * pageSize
	if start >= len(entries) {
		return nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

func toResponse(e annotated) transport.RequestResponse {
	r := e.request
	resp := transport.RequestResponse{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		ListingID:   r.ListingID,
		Title:       r.Title,
		Author:      r.Author,
		Message:     r.Message,
		Category:    r.Category,
		Board:       r.Board,
		ClassLevel:  r.ClassLevel,
		Subject:     r.Subject,
		Condition:   r.Condition,
		Location:    r.Location,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		City:        r.City,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if e.distance != nil && !math.IsInf(*e.distance, 1) {
		resp.DistanceKm = e.distance
	}
	return resp
}

func toListResponse(entries []annotated, total, page, pageSize int) transport.RequestListResponse {
	items := make([]transport.RequestResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toResponse(e))
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.RequestListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
