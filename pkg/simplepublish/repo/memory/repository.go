package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Repository implements simplepublish.TxRunner using in-memory storage.
// Transactions are serialized; each one works on a staged copy of the maps
// that replaces the committed state only when fn succeeds.
type Repository struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	organizations map[uuid.UUID]*simplepublish.Organization
	mediaItems    map[uuid.UUID]*simplepublish.MediaItem
	contents      map[uuid.UUID]*simplepublish.Content
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{data: &state{
		organizations: make(map[uuid.UUID]*simplepublish.Organization),
		mediaItems:    make(map[uuid.UUID]*simplepublish.MediaItem),
		contents:      make(map[uuid.UUID]*simplepublish.Content),
	}}
}

// WithTx runs fn against a staged copy of the data.
func (r *Repository) WithTx(ctx context.Context, fn func(tx simplepublish.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// Records are replaced rather than mutated, so copying the maps is
	// enough to isolate the staged writes.
	staged := &state{
		organizations: maps.Clone(r.data.organizations),
		mediaItems:    maps.Clone(r.data.mediaItems),
		contents:      maps.Clone(r.data.contents),
	}
	if err := fn(staged); err != nil {
		return err
	}
	r.data = staged
	return nil
}

func (s *state) Organizations() simplepublish.OrganizationRepository { return organizationRepo{s} }
func (s *state) MediaItems() simplepublish.MediaRepository           { return mediaRepo{s} }
func (s *state) Contents() simplepublish.ContentRepository           { return contentRepo{s} }

// liveOnly is the single soft-delete predicate for every read path.
func liveOnly(deletedAt *time.Time) bool {
	return deletedAt == nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// page applies offset and limit to an already sorted slice.
func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}

// Organizations

type organizationRepo struct{ s *state }

func copyOrganization(o *simplepublish.Organization) *simplepublish.Organization {
	c := *o
	if o.DeletedAt != nil {
		t := *o.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func (r organizationRepo) CreateOrganization(ctx context.Context, org *simplepublish.Organization) error {
	if r.slugTaken(org.Slug, &org.ID) {
		return simplepublish.ErrDuplicateKey
	}
	r.s.organizations[org.ID] = copyOrganization(org)
	return nil
}

func (r organizationRepo) GetOrganization(ctx context.Context, id uuid.UUID) (*simplepublish.Organization, error) {
	o, ok := r.s.organizations[id]
	if !ok || !liveOnly(o.DeletedAt) {
		return nil, simplepublish.ErrRecordNotFound
	}
	return copyOrganization(o), nil
}

func (r organizationRepo) GetOrganizationForUpdate(ctx context.Context, id uuid.UUID) (*simplepublish.Organization, error) {
	return r.GetOrganization(ctx, id)
}

func (r organizationRepo) GetOrganizationBySlug(ctx context.Context, slug string) (*simplepublish.Organization, error) {
	for _, o := range r.s.organizations {
		if liveOnly(o.DeletedAt) && strings.EqualFold(o.Slug, slug) {
			return copyOrganization(o), nil
		}
	}
	return nil, simplepublish.ErrRecordNotFound
}

func (r organizationRepo) UpdateOrganization(ctx context.Context, org *simplepublish.Organization) error {
	current, ok := r.s.organizations[org.ID]
	if !ok || !liveOnly(current.DeletedAt) {
		return simplepublish.ErrRecordNotFound
	}
	if r.slugTaken(org.Slug, &org.ID) {
		return simplepublish.ErrDuplicateKey
	}
	r.s.organizations[org.ID] = copyOrganization(org)
	return nil
}

func (r organizationRepo) SoftDeleteOrganization(ctx context.Context, id uuid.UUID, at time.Time) error {
	o, ok := r.s.organizations[id]
	if !ok || !liveOnly(o.DeletedAt) {
		return simplepublish.ErrRecordNotFound
	}
	deleted := copyOrganization(o)
	deleted.DeletedAt = &at
	deleted.UpdatedAt = at
	r.s.organizations[id] = deleted
	return nil
}

func (r organizationRepo) ListOrganizations(ctx context.Context, params simplepublish.OrganizationListParams) ([]*simplepublish.Organization, int64, error) {
	var rows []*simplepublish.Organization
	for _, o := range r.s.organizations {
		if !liveOnly(o.DeletedAt) {
			continue
		}
		if params.Search != "" && !containsFold(o.Name, params.Search) && !containsFold(o.Description, params.Search) {
			continue
		}
		rows = append(rows, o)
	}

	less := func(a, b *simplepublish.Organization) int {
		if params.SortBy == "name" {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := less(rows[i], rows[j])
		if c == 0 {
			c = strings.Compare(rows[i].ID.String(), rows[j].ID.String())
		}
		if params.SortOrder == "asc" {
			return c < 0
		}
		return c > 0
	})

	total := int64(len(rows))
	out := make([]*simplepublish.Organization, 0, len(rows))
	for _, o := range page(rows, params.Limit, params.Offset) {
		out = append(out, copyOrganization(o))
	}
	return out, total, nil
}

func (r organizationRepo) OrganizationSlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	return r.slugTaken(slug, excludeID), nil
}

func (r organizationRepo) slugTaken(slug string, excludeID *uuid.UUID) bool {
	for _, o := range r.s.organizations {
		if excludeID != nil && o.ID == *excludeID {
			continue
		}
		if liveOnly(o.DeletedAt) && strings.EqualFold(o.Slug, slug) {
			return true
		}
	}
	return false
}

// Media items

type mediaRepo struct{ s *state }

func copyMediaItem(m *simplepublish.MediaItem) *simplepublish.MediaItem {
	c := *m
	c.PlaylistKey = clonePtr(m.PlaylistKey)
	c.ThumbnailKey = clonePtr(m.ThumbnailKey)
	c.DurationSeconds = clonePtr(m.DurationSeconds)
	c.Width = clonePtr(m.Width)
	c.Height = clonePtr(m.Height)
	c.UploadedAt = clonePtr(m.UploadedAt)
	c.DeletedAt = clonePtr(m.DeletedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (r mediaRepo) CreateMediaItem(ctx context.Context, item *simplepublish.MediaItem) error {
	if _, exists := r.s.mediaItems[item.ID]; exists {
		return simplepublish.ErrDuplicateKey
	}
	r.s.mediaItems[item.ID] = copyMediaItem(item)
	return nil
}

func (r mediaRepo) GetMediaItem(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.MediaItem, error) {
	m, ok := r.s.mediaItems[id]
	if !ok || !liveOnly(m.DeletedAt) || m.CreatorID != creatorID {
		return nil, simplepublish.ErrRecordNotFound
	}
	return copyMediaItem(m), nil
}

func (r mediaRepo) GetMediaItemForUpdate(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.MediaItem, error) {
	return r.GetMediaItem(ctx, id, creatorID)
}

func (r mediaRepo) UpdateMediaItem(ctx context.Context, item *simplepublish.MediaItem) error {
	current, ok := r.s.mediaItems[item.ID]
	if !ok || !liveOnly(current.DeletedAt) || current.CreatorID != item.CreatorID {
		return simplepublish.ErrRecordNotFound
	}
	r.s.mediaItems[item.ID] = copyMediaItem(item)
	return nil
}

func (r mediaRepo) SoftDeleteMediaItem(ctx context.Context, id uuid.UUID, creatorID string, at time.Time) error {
	m, ok := r.s.mediaItems[id]
	if !ok || !liveOnly(m.DeletedAt) || m.CreatorID != creatorID {
		return simplepublish.ErrRecordNotFound
	}
	deleted := copyMediaItem(m)
	deleted.DeletedAt = &at
	deleted.UpdatedAt = at
	r.s.mediaItems[id] = deleted
	return nil
}

func (r mediaRepo) ListMediaItems(ctx context.Context, params simplepublish.MediaListParams) ([]*simplepublish.MediaItem, int64, error) {
	var rows []*simplepublish.MediaItem
	for _, m := range r.s.mediaItems {
		switch {
		case !liveOnly(m.DeletedAt), m.CreatorID != params.CreatorID:
			continue
		case params.Status != "" && m.Status != params.Status:
			continue
		case params.MediaType != "" && m.MediaType != params.MediaType:
			continue
		case params.Search != "" && !containsFold(m.Title, params.Search) && !containsFold(m.Description, params.Search):
			continue
		}
		rows = append(rows, m)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		var c int
		switch params.SortBy {
		case "title":
			c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if params.SortOrder == "asc" {
			return c < 0
		}
		return c > 0
	})

	total := int64(len(rows))
	out := make([]*simplepublish.MediaItem, 0, len(rows))
	for _, m := range page(rows, params.Limit, params.Offset) {
		out = append(out, copyMediaItem(m))
	}
	return out, total, nil
}

// Content

type contentRepo struct{ s *state }

func copyContent(c *simplepublish.Content) *simplepublish.Content {
	out := *c
	out.OrganizationID = clonePtr(c.OrganizationID)
	out.MediaItemID = clonePtr(c.MediaItemID)
	out.PriceCents = clonePtr(c.PriceCents)
	out.PublishedAt = clonePtr(c.PublishedAt)
	out.DeletedAt = clonePtr(c.DeletedAt)
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	return &out
}

func (r contentRepo) CreateContent(ctx context.Context, content *simplepublish.Content) error {
	if r.slugTaken(content.Scope(), content.Slug, &content.ID) {
		return simplepublish.ErrDuplicateKey
	}
	r.s.contents[content.ID] = copyContent(content)
	return nil
}

func (r contentRepo) GetContent(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.Content, error) {
	c, ok := r.s.contents[id]
	if !ok || !liveOnly(c.DeletedAt) || c.CreatorID != creatorID {
		return nil, simplepublish.ErrRecordNotFound
	}
	return copyContent(c), nil
}

func (r contentRepo) GetContentForUpdate(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.Content, error) {
	return r.GetContent(ctx, id, creatorID)
}

func (r contentRepo) GetContentBySlug(ctx context.Context, scope simplepublish.SlugScope, slug string) (*simplepublish.Content, error) {
	for _, c := range r.s.contents {
		if liveOnly(c.DeletedAt) && c.Slug == slug && scope.Contains(c) {
			return copyContent(c), nil
		}
	}
	return nil, simplepublish.ErrRecordNotFound
}

func (r contentRepo) UpdateContent(ctx context.Context, content *simplepublish.Content) error {
	current, ok := r.s.contents[content.ID]
	if !ok || !liveOnly(current.DeletedAt) {
		return simplepublish.ErrRecordNotFound
	}
	if current.Version != content.Version-1 {
		return simplepublish.ErrStaleVersion
	}
	if r.slugTaken(content.Scope(), content.Slug, &content.ID) {
		return simplepublish.ErrDuplicateKey
	}
	r.s.contents[content.ID] = copyContent(content)
	return nil
}

func (r contentRepo) SoftDeleteContent(ctx context.Context, id uuid.UUID, creatorID string, at time.Time) error {
	c, ok := r.s.contents[id]
	if !ok || !liveOnly(c.DeletedAt) || c.CreatorID != creatorID {
		return simplepublish.ErrRecordNotFound
	}
	deleted := copyContent(c)
	deleted.DeletedAt = &at
	deleted.UpdatedAt = at
	r.s.contents[id] = deleted
	return nil
}

func (r contentRepo) ListContent(ctx context.Context, params simplepublish.ContentListParams) ([]*simplepublish.Content, int64, error) {
	var rows []*simplepublish.Content
	for _, c := range r.s.contents {
		switch {
		case !liveOnly(c.DeletedAt), c.CreatorID != params.CreatorID:
			continue
		case params.Status != "" && c.Status != params.Status:
			continue
		case params.ContentType != "" && c.ContentType != params.ContentType:
			continue
		case params.Visibility != "" && c.Visibility != params.Visibility:
			continue
		case params.Category != "" && c.Category != params.Category:
			continue
		case params.PersonalOnly && c.OrganizationID != nil:
			continue
		case params.OrganizationID != nil && (c.OrganizationID == nil || *c.OrganizationID != *params.OrganizationID):
			continue
		case params.Search != "" && !containsFold(c.Title, params.Search) && !containsFold(c.Description, params.Search):
			continue
		}
		rows = append(rows, c)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		var c int
		switch params.SortBy {
		case "title":
			c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case "published_at":
			// Drafts have no publish time and sort last in either direction.
			if (a.PublishedAt == nil) != (b.PublishedAt == nil) {
				return a.PublishedAt != nil
			}
			c = comparePublished(a.PublishedAt, b.PublishedAt)
		case "view_count":
			c = compareInt(a.ViewCount, b.ViewCount)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if params.SortOrder == "asc" {
			return c < 0
		}
		return c > 0
	})

	total := int64(len(rows))
	out := make([]*simplepublish.Content, 0, len(rows))
	for _, c := range page(rows, params.Limit, params.Offset) {
		out = append(out, copyContent(c))
	}
	return out, total, nil
}

func (r contentRepo) ListContentByOrganization(ctx context.Context, orgID uuid.UUID) ([]*simplepublish.Content, error) {
	var out []*simplepublish.Content
	for _, c := range r.s.contents {
		if liveOnly(c.DeletedAt) && c.OrganizationID != nil && *c.OrganizationID == orgID {
			out = append(out, copyContent(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r contentRepo) ContentSlugExists(ctx context.Context, scope simplepublish.SlugScope, slug string, excludeID *uuid.UUID) (bool, error) {
	return r.slugTaken(scope, slug, excludeID), nil
}

func (r contentRepo) slugTaken(scope simplepublish.SlugScope, slug string, excludeID *uuid.UUID) bool {
	for _, c := range r.s.contents {
		if excludeID != nil && c.ID == *excludeID {
			continue
		}
		if liveOnly(c.DeletedAt) && c.Slug == slug && scope.Contains(c) {
			return true
		}
	}
	return false
}

func comparePublished(a, b *time.Time) int {
	if a == nil || b == nil {
		return 0
	}
	return a.Compare(*b)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
