package simplepublish

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrganizationRepository persists organizations. Every read excludes
// soft-deleted rows and returns ErrRecordNotFound on a miss.
type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	// GetOrganizationForUpdate is GetOrganization with a row lock held until
	// the transaction ends.
	GetOrganizationForUpdate(ctx context.Context, id uuid.UUID) (*Organization, error)
	// GetOrganizationBySlug matches slugs case-insensitively.
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	UpdateOrganization(ctx context.Context, org *Organization) error
	SoftDeleteOrganization(ctx context.Context, id uuid.UUID, at time.Time) error
	ListOrganizations(ctx context.Context, params OrganizationListParams) ([]*Organization, int64, error)
	// OrganizationSlugExists reports a live case-insensitive slug match,
	// ignoring excludeID when non-nil.
	OrganizationSlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}

// MediaRepository persists media items. Reads are scoped by creator.
type MediaRepository interface {
	CreateMediaItem(ctx context.Context, item *MediaItem) error
	GetMediaItem(ctx context.Context, id uuid.UUID, creatorID string) (*MediaItem, error)
	GetMediaItemForUpdate(ctx context.Context, id uuid.UUID, creatorID string) (*MediaItem, error)
	UpdateMediaItem(ctx context.Context, item *MediaItem) error
	SoftDeleteMediaItem(ctx context.Context, id uuid.UUID, creatorID string, at time.Time) error
	ListMediaItems(ctx context.Context, params MediaListParams) ([]*MediaItem, int64, error)
}

// ContentRepository persists content. Reads are scoped by creator except
// ListContentByOrganization, which serves organization-wide maintenance.
type ContentRepository interface {
	CreateContent(ctx context.Context, content *Content) error
	GetContent(ctx context.Context, id uuid.UUID, creatorID string) (*Content, error)
	GetContentForUpdate(ctx context.Context, id uuid.UUID, creatorID string) (*Content, error)
	GetContentBySlug(ctx context.Context, scope SlugScope, slug string) (*Content, error)
	// UpdateContent writes content if the stored version equals
	// content.Version-1, returning ErrStaleVersion otherwise.
	UpdateContent(ctx context.Context, content *Content) error
	SoftDeleteContent(ctx context.Context, id uuid.UUID, creatorID string, at time.Time) error
	ListContent(ctx context.Context, params ContentListParams) ([]*Content, int64, error)
	ListContentByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Content, error)
	ContentSlugExists(ctx context.Context, scope SlugScope, slug string, excludeID *uuid.UUID) (bool, error)
}

// Store groups the repositories bound to one transaction.
type Store interface {
	Organizations() OrganizationRepository
	MediaItems() MediaRepository
	Contents() ContentRepository
}

// TxRunner runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// OrganizationListParams is the repository form of ListOrganizationsRequest.
type OrganizationListParams struct {
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// MediaListParams is the repository form of ListMediaItemsRequest.
type MediaListParams struct {
	CreatorID string
	Status    MediaStatus
	MediaType MediaType
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ContentListParams is the repository form of ListContentRequest.
type ContentListParams struct {
	CreatorID      string
	Status         ContentStatus
	ContentType    ContentType
	Visibility     Visibility
	Category       string
	OrganizationID *uuid.UUID
	PersonalOnly   bool
	Search         string
	SortBy         string
	SortOrder      string
	Limit          int
	Offset         int
}

// EventSink receives lifecycle events after the owning transaction commits.
// Errors are logged by the caller and never fail the operation.
type EventSink interface {
	ContentCreated(ctx context.Context, content *Content) error
	ContentUpdated(ctx context.Context, content *Content) error
	ContentPublished(ctx context.Context, content *Content) error
	ContentUnpublished(ctx context.Context, content *Content) error
	ContentDeleted(ctx context.Context, contentID uuid.UUID, creatorID string) error
	MediaStatusChanged(ctx context.Context, item *MediaItem, from MediaStatus) error
	OrganizationDeleted(ctx context.Context, orgID uuid.UUID, detached []uuid.UUID) error
}

// Role is an organization-level capability checked by an Authorizer.
type Role string

const (
	// RoleAdmin may modify or delete the organization itself.
	RoleAdmin Role = "admin"
	// RoleCreator may create content inside the organization.
	RoleCreator Role = "creator"
)

// Authorizer answers organization membership questions.
type Authorizer interface {
	HasRole(ctx context.Context, orgID uuid.UUID, actorID string, role Role) (bool, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, orgID uuid.UUID, actorID string, role Role) (bool, error)

// HasRole calls f.
func (f AuthorizerFunc) HasRole(ctx context.Context, orgID uuid.UUID, actorID string, role Role) (bool, error) {
	return f(ctx, orgID, actorID, role)
}

// CreatorDirectory looks up display details for creator ids. A nil summary
// with a nil error means the creator is unknown.
type CreatorDirectory interface {
	LookupCreator(ctx context.Context, creatorID string) (*CreatorSummary, error)
}

// MediaStore signs URLs for media objects and reports their stored metadata.
type MediaStore interface {
	// UploadURL returns a presigned URL for uploading key.
	UploadURL(ctx context.Context, key, contentType string) (string, error)
	// DownloadURL returns a presigned URL for reading key.
	DownloadURL(ctx context.Context, key string) (string, error)
	// Stat returns metadata for key, or ErrObjectMissing.
	Stat(ctx context.Context, key string) (*ObjectMeta, error)
}
