package profiles

import "github.com/google/uuid"

// Profile is a user's marketplace profile. The ID is the auth subject.
type Profile struct {
	UserID    uuid.UUID `db:"user_id"`
	FullName  *string   `db:"full_name"`
	Email     *string   `db:"email"`
	Phone     *string   `db:"phone"`
	Location  *string   `db:"location"`
	Latitude  *float64  `db:"latitude"`
	Longitude *float64  `db:"longitude"`
	City      *string   `db:"city"`
	CreatedAt string    `db:"created_at"`
	UpdatedAt string    `db:"updated_at"`
}

type UpdateProfileRequest struct {
	FullName  *string  `json:"fullName,omitempty" validate:"omitempty,max=200"`
	Email     *string  `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone     *string  `json:"phone,omitempty" validate:"omitempty,max=25"`
	Location  *string  `json:"location,omitempty" validate:"omitempty,max=300"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	City      *string  `json:"city,omitempty" validate:"omitempty,max=100"`
}

type ProfileResponse struct {
	UserID    uuid.UUID `json:"userId"`
	FullName  *string   `json:"fullName,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	City      *string   `json:"city,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

func toResponse(p Profile) ProfileResponse {
	return ProfileResponse{
		UserID:    p.UserID,
		FullName:  p.FullName,
		Email:     p.Email,
		Phone:     p.Phone,
		Location:  p.Location,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		City:      p.City,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
