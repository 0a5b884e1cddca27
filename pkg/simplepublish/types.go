package simplepublish

import (
	"time"

	"github.com/google/uuid"
)

// MediaStatus is the processing state of a MediaItem.
type MediaStatus string

// Media status constants (typed).
const (
	MediaStatusUploading   MediaStatus = "uploading"
	MediaStatusUploaded    MediaStatus = "uploaded"
	MediaStatusTranscoding MediaStatus = "transcoding"
	MediaStatusReady       MediaStatus = "ready"
	MediaStatusFailed      MediaStatus = "failed"
)

// MediaType is the kind of an uploaded asset.
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// ContentType is the kind of a content record.
type ContentType string

const (
	ContentTypeVideo   ContentType = "video"
	ContentTypeAudio   ContentType = "audio"
	ContentTypeWritten ContentType = "written"
)

// RequiresMedia reports whether content of this type must link a MediaItem.
func (t ContentType) RequiresMedia() bool {
	return t == ContentTypeVideo || t == ContentTypeAudio
}

// ContentStatus is the publishing state of a content record.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusArchived  ContentStatus = "archived"
)

// Visibility is the access tier of a content record.
type Visibility string

const (
	VisibilityPublic        Visibility = "public"
	VisibilityPrivate       Visibility = "private"
	VisibilityMembersOnly   Visibility = "members_only"
	VisibilityPurchasedOnly Visibility = "purchased_only"
)

// Organization owns a shared slug scope for content.
type Organization struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	LogoURL     string     `json:"logo_url,omitempty"`
	WebsiteURL  string     `json:"website_url,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// MediaItem is an uploaded asset tracked through processing.
//
// Playlist, thumbnail, duration and dimension fields stay nil until the item
// is marked ready.
type MediaItem struct {
	ID              uuid.UUID   `json:"id"`
	CreatorID       string      `json:"creator_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	MediaType       MediaType   `json:"media_type"`
	Status          MediaStatus `json:"status"`
	StorageKey      string      `json:"storage_key"`
	FileSizeBytes   int64       `json:"file_size_bytes"`
	MimeType        string      `json:"mime_type"`
	PlaylistKey     *string     `json:"playlist_key,omitempty"`
	ThumbnailKey    *string     `json:"thumbnail_key,omitempty"`
	DurationSeconds *int        `json:"duration_seconds,omitempty"`
	Width           *int        `json:"width,omitempty"`
	Height          *int        `json:"height,omitempty"`
	UploadedAt      *time.Time  `json:"uploaded_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	DeletedAt       *time.Time  `json:"deleted_at,omitempty"`
}

// Content is a publishable record owned by a creator, optionally inside an
// organization.
type Content struct {
	ID             uuid.UUID     `json:"id"`
	CreatorID      string        `json:"creator_id"`
	OrganizationID *uuid.UUID    `json:"organization_id,omitempty"`
	MediaItemID    *uuid.UUID    `json:"media_item_id,omitempty"`
	Title          string        `json:"title"`
	Slug           string        `json:"slug"`
	Description    string        `json:"description,omitempty"`
	ContentBody    string        `json:"content_body,omitempty"`
	Category       string        `json:"category,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	ThumbnailURL   string        `json:"thumbnail_url,omitempty"`
	ContentType    ContentType   `json:"content_type"`
	Visibility     Visibility    `json:"visibility"`
	PriceCents     *int64        `json:"price_cents,omitempty"`
	Status         ContentStatus `json:"status"`
	PublishedAt    *time.Time    `json:"published_at,omitempty"`
	ViewCount      int64         `json:"view_count"`
	PurchaseCount  int64         `json:"purchase_count"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
}

// Scope returns the slug scope this content belongs to.
func (c *Content) Scope() SlugScope {
	return ScopeFor(c.CreatorID, c.OrganizationID)
}

// OrganizationSummary is the eagerly loaded organization of a content record.
type OrganizationSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Slug    string    `json:"slug"`
	LogoURL string    `json:"logo_url,omitempty"`
}

// CreatorSummary describes the owner of a content record. DisplayName and
// AvatarURL are set only when a CreatorDirectory knows the creator.
type CreatorSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// ContentDetails is a content record with its relations populated.
type ContentDetails struct {
	Content
	Creator      *CreatorSummary      `json:"creator"`
	Organization *OrganizationSummary `json:"organization,omitempty"`
	MediaItem    *MediaItem           `json:"media_item,omitempty"`
}

// ReadyMetadata is reported by the transcoding pipeline when a media item
// finishes processing.
type ReadyMetadata struct {
	PlaylistKey     string `json:"playlist_key" validate:"required,max=1024"`
	ThumbnailKey    string `json:"thumbnail_key" validate:"omitempty,max=1024"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	Width           int    `json:"width" validate:"gte=0"`
	Height          int    `json:"height" validate:"gte=0"`
}

// ObjectMeta describes a stored object as reported by a MediaStore.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// Page is one page of a listing.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// HasMore reports whether rows exist past this page.
func (p *Page[T]) HasMore() bool {
	return int64(p.Offset+len(p.Items)) < p.Total
}
