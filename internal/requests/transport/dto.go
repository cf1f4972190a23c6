package transport

import "github.com/google/uuid"

type CreateRequestRequest struct {
	ListingID  *uuid.UUID `json:"listingId,omitempty"`
	Title      string     `json:"title" validate:"required,min=1,max=200"`
	Author     *string    `json:"author,omitempty" validate:"omitempty,max=200"`
	Message    *string    `json:"message,omitempty" validate:"omitempty,max=2000"`
	Category   *string    `json:"category,omitempty" validate:"omitempty,max=100"`
	Board      *string    `json:"board,omitempty" validate:"omitempty,max=100"`
	ClassLevel *string    `json:"classLevel,omitempty" validate:"omitempty,max=50"`
	Subject    *string    `json:"subject,omitempty" validate:"omitempty,max=100"`
	Condition  *string    `json:"condition,omitempty" validate:"omitempty,oneof=new like-new good fair poor"`
	Location   *string    `json:"location,omitempty" validate:"omitempty,max=300"`
	Latitude   *float64   `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude  *float64   `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	City       *string    `json:"city,omitempty" validate:"omitempty,max=100"`
}

type ListRequestsRequest struct {
	Search     string   `form:"q" validate:"max=200"`
	Category   string   `form:"category" validate:"omitempty,max=100"`
	Board      string   `form:"board" validate:"omitempty,max=100"`
	ClassLevel string   `form:"classLevel" validate:"omitempty,max=50"`
	Subject    string   `form:"subject" validate:"omitempty,max=100"`
	City       string   `form:"city" validate:"omitempty,max=100"`
	SortBy     string   `form:"sortBy" validate:"omitempty,oneof=newest date_asc date_desc distance distance_desc"`
	Latitude   *float64 `form:"lat" validate:"omitempty,min=-90,max=90"`
	Longitude  *float64 `form:"lng" validate:"omitempty,min=-180,max=180"`
	Page       int      `form:"page" validate:"omitempty,min=1"`
	PageSize   int      `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type RequestResponse struct {
	ID          uuid.UUID  `json:"id"`
	RequesterID uuid.UUID  `json:"requesterId"`
	ListingID   *uuid.UUID `json:"listingId,omitempty"`
	Title       string     `json:"title"`
	Author      *string    `json:"author,omitempty"`
	Message     *string    `json:"message,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Board       *string    `json:"board,omitempty"`
	ClassLevel  *string    `json:"classLevel,omitempty"`
	Subject     *string    `json:"subject,omitempty"`
	Condition   *string    `json:"condition,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	City        *string    `json:"city,omitempty"`
	Status      string     `json:"status"`
	DistanceKm  *float64   `json:"distanceKm,omitempty"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
}

type RequestListResponse struct {
	Items      []RequestResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}
