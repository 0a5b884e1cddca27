package simplepublish

import "github.com/google/uuid"

// Request DTOs. Shape rules are expressed as validator tags and checked by
// validateRequest before any transaction starts.

// CreateOrganizationRequest contains parameters for creating an organization.
type CreateOrganizationRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"required,max=100,slug"`
	Description string `json:"description" validate:"max=2000"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url,max=2048"`
	WebsiteURL  string `json:"website_url" validate:"omitempty,url,max=2048"`
}

// UpdateOrganizationRequest applies only the non-nil fields.
type UpdateOrganizationRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Slug        *string `json:"slug" validate:"omitempty,max=100,slug"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url,max=2048"`
	WebsiteURL  *string `json:"website_url" validate:"omitempty,url,max=2048"`
}

// ListOrganizationsRequest filters and pages organizations.
type ListOrganizationsRequest struct {
	Search    string `json:"search" validate:"max=200"`
	SortBy    string `json:"sort_by" validate:"omitempty,oneof=name created_at"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	Limit     int    `json:"limit" validate:"gte=0,lte=100"`
	Offset    int    `json:"offset" validate:"gte=0"`
}

// CreateMediaItemRequest contains parameters for registering an upload.
// StorageKey is generated when empty.
type CreateMediaItemRequest struct {
	Title         string    `json:"title" validate:"required,max=255"`
	Description   string    `json:"description" validate:"max=5000"`
	MediaType     MediaType `json:"media_type" validate:"required,oneof=video audio"`
	StorageKey    string    `json:"storage_key" validate:"max=1024"`
	FileName      string    `json:"file_name" validate:"max=255"`
	FileSizeBytes int64     `json:"file_size_bytes" validate:"gte=0"`
	MimeType      string    `json:"mime_type" validate:"required,max=100"`
}

// UpdateMediaItemRequest applies only the non-nil fields. Status changes go
// through UpdateStatus and MarkAsReady.
type UpdateMediaItemRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	FileSizeBytes *int64  `json:"file_size_bytes" validate:"omitempty,gte=0"`
	MimeType      *string `json:"mime_type" validate:"omitempty,min=1,max=100"`
}

// ListMediaItemsRequest filters and pages a creator's media.
type ListMediaItemsRequest struct {
	Status    MediaStatus `json:"status" validate:"omitempty,oneof=uploading uploaded transcoding ready failed"`
	MediaType MediaType   `json:"media_type" validate:"omitempty,oneof=video audio"`
	Search    string      `json:"search" validate:"max=200"`
	SortBy    string      `json:"sort_by" validate:"omitempty,oneof=created_at updated_at title"`
	SortOrder string      `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	Limit     int         `json:"limit" validate:"gte=0,lte=100"`
	Offset    int         `json:"offset" validate:"gte=0"`
}

// CreateContentRequest contains parameters for creating content.
// MediaItemID is required for video and audio content and rejected for
// written content.
type CreateContentRequest struct {
	Title          string      `json:"title" validate:"required,max=255"`
	Slug           string      `json:"slug" validate:"required,max=100,slug"`
	Description    string      `json:"description" validate:"max=5000"`
	ContentBody    string      `json:"content_body" validate:"max=100000"`
	Category       string      `json:"category" validate:"max=100"`
	Tags           []string    `json:"tags" validate:"max=20,dive,required,max=50"`
	ThumbnailURL   string      `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
	ContentType    ContentType `json:"content_type" validate:"required,oneof=video audio written"`
	Visibility     Visibility  `json:"visibility" validate:"omitempty,oneof=public private members_only purchased_only"`
	PriceCents     *int64      `json:"price_cents" validate:"omitempty,gte=0"`
	OrganizationID *uuid.UUID  `json:"organization_id"`
	MediaItemID    *uuid.UUID  `json:"media_item_id"`
}

// UpdateContentRequest applies only the non-nil fields. The media item and
// organization of a content record cannot be changed.
//
// When ExpectedVersion is set the update fails with ErrVersionConflict unless
// it matches the stored version.
type UpdateContentRequest struct {
	Title           *string     `json:"title" validate:"omitempty,min=1,max=255"`
	Slug            *string     `json:"slug" validate:"omitempty,max=100,slug"`
	Description     *string     `json:"description" validate:"omitempty,max=5000"`
	ContentBody     *string     `json:"content_body" validate:"omitempty,max=100000"`
	Category        *string     `json:"category" validate:"omitempty,max=100"`
	Tags            []string    `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	ThumbnailURL    *string     `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
	Visibility      *Visibility `json:"visibility" validate:"omitempty,oneof=public private members_only purchased_only"`
	PriceCents      *int64      `json:"price_cents" validate:"omitempty,gte=0"`
	ClearPrice      bool        `json:"clear_price"`
	ExpectedVersion *int64      `json:"expected_version" validate:"omitempty,gte=1"`
}

// ListContentRequest filters and pages a creator's content.
//
// OrganizationID narrows to one organization; PersonalOnly narrows to content
// without an organization. Setting both is a validation error.
type ListContentRequest struct {
	Status         ContentStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	ContentType    ContentType   `json:"content_type" validate:"omitempty,oneof=video audio written"`
	Visibility     Visibility    `json:"visibility" validate:"omitempty,oneof=public private members_only purchased_only"`
	Category       string        `json:"category" validate:"max=100"`
	OrganizationID *uuid.UUID    `json:"organization_id"`
	PersonalOnly   bool          `json:"personal_only"`
	Search         string        `json:"search" validate:"max=200"`
	SortBy         string        `json:"sort_by" validate:"omitempty,oneof=created_at updated_at published_at title view_count"`
	SortOrder      string        `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	Limit          int           `json:"limit" validate:"gte=0,lte=100"`
	Offset         int           `json:"offset" validate:"gte=0"`
}
