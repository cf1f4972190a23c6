package profiles

import (
	"context"

	"github.com/google/uuid"

	"bookmarket_backend/internal/geo"
	"bookmarket_backend/platform/apperr"
	"bookmarket_backend/platform/logger"
	"bookmarket_backend/platform/phone"
)

// Service provides business logic for user profiles.
type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// GetOwn retrieves the caller's profile. A user who never saved one gets an
// empty profile rather than a 404.
func (s *Service) GetOwn(ctx context.Context, userID uuid.UUID) (ProfileResponse, error) {
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return ProfileResponse{UserID: userID}, nil
		}
		return ProfileResponse{}, err
	}
	return toResponse(profile), nil
}

// UpdateOwn creates or updates the caller's profile. Phone numbers are
// normalized to E.164 before storage.
func (s *Service) UpdateOwn(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (ProfileResponse, error) {
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return ProfileResponse{}, apperr.Validation("latitude and longitude must be provided together")
	}

	normalized := req.Phone
	if req.Phone != nil {
		p := phone.NormalizeE164(*req.Phone)
		normalized = &p
	}

	profile, err := s.store.Upsert(ctx, Profile{
		UserID:    userID,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     normalized,
		Location:  req.Location,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		City:      req.City,
	})
	if err != nil {
		s.log.DatabaseError("upsert profile", err)
		return ProfileResponse{}, apperr.Wrap(apperr.KindInternal, "could not save profile", err)
	}

	s.log.Info("profile updated", "userId", userID)
	return toResponse(profile), nil
}

// ContactEmail returns a user's notification address, when they saved one.
func (s *Service) ContactEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.Email == nil || *profile.Email == "" {
		return "", apperr.NotFound("no email on profile")
	}
	return *profile.Email, nil
}

// DisplayName returns the user's name for notifications, falling back to a
// generic label when the profile is empty or missing.
func (s *Service) DisplayName(ctx context.Context, userID uuid.UUID) string {
	profile, err := s.store.Get(ctx, userID)
	if err != nil || profile.FullName == nil || *profile.FullName == "" {
		return "A BookMarket user"
	}
	return *profile.FullName
}

// LocationRef returns the location inputs stored on a user's profile, for
// use as a fallback when a request carries no explicit position.
func (s *Service) LocationRef(ctx context.Context, userID uuid.UUID) (geo.LocationRef, error) {
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		return geo.LocationRef{}, err
	}

	ref := geo.LocationRef{}
	if profile.Latitude != nil && profile.Longitude != nil {
		ref.MapPicked = &geo.Coordinates{Latitude: *profile.Latitude, Longitude: *profile.Longitude}
	}
	if profile.Location != nil {
		ref.Address = *profile.Location
	} else if profile.City != nil {
		ref.Address = *profile.City
	}
	return ref, nil
}
