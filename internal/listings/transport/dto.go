package transport

import "github.com/google/uuid"

type CreateListingRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Author      *string  `json:"author,omitempty" validate:"omitempty,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    string   `json:"category" validate:"required,max=100"`
	Condition   string   `json:"condition" validate:"required,oneof=new like-new good fair poor"`
	Board       *string  `json:"board,omitempty" validate:"omitempty,max=100"`
	ClassLevel  *string  `json:"classLevel,omitempty" validate:"omitempty,max=50"`
	Subject     *string  `json:"subject,omitempty" validate:"omitempty,max=100"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	PriceStatus string   `json:"priceStatus" validate:"required,oneof=fixed negotiable price_on_call"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=300"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	City        *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	Images      []string `json:"images,omitempty" validate:"omitempty,max=10,dive,max=500"`
}

type UpdateListingRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Author      *string  `json:"author,omitempty" validate:"omitempty,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Condition   *string  `json:"condition,omitempty" validate:"omitempty,oneof=new like-new good fair poor"`
	Board       *string  `json:"board,omitempty" validate:"omitempty,max=100"`
	ClassLevel  *string  `json:"classLevel,omitempty" validate:"omitempty,max=50"`
	Subject     *string  `json:"subject,omitempty" validate:"omitempty,max=100"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	PriceStatus *string  `json:"priceStatus,omitempty" validate:"omitempty,oneof=fixed negotiable price_on_call"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=300"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	City        *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	Images      []string `json:"images,omitempty" validate:"omitempty,max=10,dive,max=500"`
}

type UpdateListingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available sold reserved"`
}

type SearchListingsRequest struct {
	Query       string   `form:"q" validate:"max=200"`
	Category    string   `form:"category" validate:"omitempty,max=100"`
	Board       string   `form:"board" validate:"omitempty,max=100"`
	ClassLevel  string   `form:"classLevel" validate:"omitempty,max=50"`
	Subject     string   `form:"subject" validate:"omitempty,max=100"`
	City        string   `form:"city" validate:"omitempty,max=100"`
	Condition   string   `form:"condition" validate:"omitempty,oneof=new like-new good fair poor"`
	PriceStatus string   `form:"priceStatus" validate:"omitempty,oneof=fixed negotiable price_on_call"`
	MinPrice    *float64 `form:"minPrice" validate:"omitempty,min=0"`
	MaxPrice    *float64 `form:"maxPrice" validate:"omitempty,min=0"`
	SortBy      string   `form:"sortBy" validate:"omitempty,oneof=newest date_asc date_desc price_asc price_desc distance distance_desc relevance"`
	Latitude    *float64 `form:"lat" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `form:"lng" validate:"omitempty,min=-180,max=180"`
	Page        int      `form:"page" validate:"omitempty,min=1"`
	PageSize    int      `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListOwnListingsRequest struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListingResponse struct {
	ID          uuid.UUID `json:"id"`
	SellerID    uuid.UUID `json:"sellerId"`
	Title       string    `json:"title"`
	Author      *string   `json:"author,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Board       *string   `json:"board,omitempty"`
	ClassLevel  *string   `json:"classLevel,omitempty"`
	Subject     *string   `json:"subject,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	PriceStatus string    `json:"priceStatus"`
	Location    *string   `json:"location,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	City        *string   `json:"city,omitempty"`
	Images      []string  `json:"images"`
	Status      string    `json:"status"`
	Score       *float64  `json:"score,omitempty"`
	DistanceKm  *float64  `json:"distanceKm,omitempty"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

type ListingListResponse struct {
	Items      []ListingResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

type PresignUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,gt=0"`
}

type PresignUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}
