package simplepublish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentService is the content lifecycle engine.
type ContentService struct {
	*deps
}

// Create inserts a draft. Organization, media ownership and kind, and slug
// uniqueness are all checked in the inserting transaction.
func (s *ContentService) Create(ctx context.Context, creatorID string, req CreateContentRequest) (*Content, error) {
	const op = "content.create"
	if creatorID == "" {
		return nil, invalid(op, "creator_id", "required")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	switch {
	case req.ContentType.RequiresMedia() && req.MediaItemID == nil:
		return nil, invalid(op, "media_item_id", "required")
	case !req.ContentType.RequiresMedia() && req.MediaItemID != nil:
		return nil, invalid(op, "media_item_id", "excluded")
	}
	if req.Visibility == "" {
		req.Visibility = VisibilityPublic
	}

	now := s.clock()
	content := &Content{
		ID:             uuid.New(),
		CreatorID:      creatorID,
		OrganizationID: req.OrganizationID,
		MediaItemID:    req.MediaItemID,
		Title:          req.Title,
		Slug:           req.Slug,
		Description:    req.Description,
		ContentBody:    req.ContentBody,
		Category:       req.Category,
		Tags:           append([]string(nil), req.Tags...),
		ThumbnailURL:   req.ThumbnailURL,
		ContentType:    req.ContentType,
		Visibility:     req.Visibility,
		PriceCents:     req.PriceCents,
		Status:         ContentStatusDraft,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.tx.WithTx(ctx, func(tx Store) error {
		if content.OrganizationID != nil {
			org, err := tx.Organizations().GetOrganization(ctx, *content.OrganizationID)
			if errors.Is(err, ErrRecordNotFound) {
				return newError(op, ErrNotFound, "organization not found",
					map[string]any{"organizationId": content.OrganizationID.String()})
			}
			if err != nil {
				return err
			}
			if err := s.requireRole(ctx, op, org, creatorID, RoleCreator); err != nil {
				return err
			}
		}

		if content.MediaItemID != nil {
			media, err := tx.MediaItems().GetMediaItem(ctx, *content.MediaItemID, creatorID)
			if errors.Is(err, ErrRecordNotFound) {
				return newError(op, ErrNotFound, "media item not found",
					map[string]any{"mediaItemId": content.MediaItemID.String()})
			}
			if err != nil {
				return err
			}
			if err := checkMediaKind(op, content.ContentType, media); err != nil {
				return err
			}
		}

		if err := s.checkSlug(ctx, op, tx, content.Scope(), content.Slug, nil); err != nil {
			return err
		}
		return tx.Contents().CreateContent(ctx, content)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, contentSlugConflict(op, content.Scope(), content.Slug)
		}
		return nil, s.fail(ctx, op, err)
	}

	s.emit(ctx, "content_created", func(e EventSink) error {
		return e.ContentCreated(ctx, content)
	})
	return content, nil
}

// Get returns the creator's live content with its organization and media
// populated, or nil.
func (s *ContentService) Get(ctx context.Context, id uuid.UUID, creatorID string) (*ContentDetails, error) {
	const op = "content.get"
	var details *ContentDetails
	err := s.tx.WithTx(ctx, func(tx Store) error {
		c, err := tx.Contents().GetContent(ctx, id, creatorID)
		if err != nil {
			return err
		}
		details, err = newRelationLoader(tx, s.deps).load(ctx, c)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return details, nil
}

// GetBySlug resolves a slug in the personal scope of creatorID, or in orgID
// when set. Content of other creators is not returned.
func (s *ContentService) GetBySlug(ctx context.Context, creatorID string, orgID *uuid.UUID, slug string) (*ContentDetails, error) {
	const op = "content.get_by_slug"
	if !IsValidSlug(slug) {
		return nil, invalid(op, "slug", "slug")
	}
	var details *ContentDetails
	err := s.tx.WithTx(ctx, func(tx Store) error {
		c, err := tx.Contents().GetContentBySlug(ctx, ScopeFor(creatorID, orgID), slug)
		if err != nil {
			return err
		}
		if c.CreatorID != creatorID {
			return ErrRecordNotFound
		}
		details, err = newRelationLoader(tx, s.deps).load(ctx, c)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return details, nil
}

// IsSlugAvailable reports whether slug is free in the scope selected by
// creatorID and orgID.
func (s *ContentService) IsSlugAvailable(ctx context.Context, creatorID string, orgID *uuid.UUID, slug string) (bool, error) {
	const op = "content.is_slug_available"
	if !IsValidSlug(slug) {
		return false, invalid(op, "slug", "slug")
	}
	var taken bool
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		taken, err = tx.Contents().ContentSlugExists(ctx, ScopeFor(creatorID, orgID), slug, nil)
		return err
	})
	if err != nil {
		return false, s.fail(ctx, op, err)
	}
	return !taken, nil
}

// Update applies the provided fields. Media and organization links are
// fixed at creation.
func (s *ContentService) Update(ctx context.Context, id uuid.UUID, creatorID string, req UpdateContentRequest) (*Content, error) {
	const op = "content.update"
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if req.ClearPrice && req.PriceCents != nil {
		return nil, invalid(op, "clear_price", "excluded_with")
	}

	content, _, err := s.mutate(ctx, id, creatorID, func(tx Store, c *Content) (bool, error) {
		if req.ExpectedVersion != nil && *req.ExpectedVersion != c.Version {
			return false, newError(op, ErrVersionConflict, "content was modified",
				map[string]any{"expectedVersion": *req.ExpectedVersion, "currentVersion": c.Version})
		}
		if req.Slug != nil && *req.Slug != c.Slug {
			if err := s.checkSlug(ctx, op, tx, c.Scope(), *req.Slug, &c.ID); err != nil {
				return false, err
			}
			c.Slug = *req.Slug
		}
		if req.Title != nil {
			c.Title = *req.Title
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		if req.ContentBody != nil {
			c.ContentBody = *req.ContentBody
		}
		if req.Category != nil {
			c.Category = *req.Category
		}
		if req.Tags != nil {
			c.Tags = append([]string(nil), req.Tags...)
		}
		if req.ThumbnailURL != nil {
			c.ThumbnailURL = *req.ThumbnailURL
		}
		if req.Visibility != nil {
			c.Visibility = *req.Visibility
		}
		switch {
		case req.ClearPrice:
			c.PriceCents = nil
		case req.PriceCents != nil:
			price := *req.PriceCents
			c.PriceCents = &price
		}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) && req.Slug != nil {
			return nil, newError(op, ErrConflict, "slug already in use", map[string]any{"slug": *req.Slug})
		}
		return nil, s.fail(ctx, op, err)
	}

	s.emit(ctx, "content_updated", func(e EventSink) error {
		return e.ContentUpdated(ctx, content)
	})
	return content, nil
}

// Publish makes content visible. Video and audio content requires its media
// item to be live and ready. Publishing published content is a no-op.
func (s *ContentService) Publish(ctx context.Context, id uuid.UUID, creatorID string) (*Content, error) {
	const op = "content.publish"
	content, changed, err := s.mutate(ctx, id, creatorID, func(tx Store, c *Content) (bool, error) {
		switch c.Status {
		case ContentStatusPublished:
			return false, nil
		case ContentStatusArchived:
			return false, newError(op, ErrBusinessLogic, "archived content cannot be published",
				map[string]any{"from": string(c.Status), "to": string(ContentStatusPublished)})
		}

		var media *MediaItem
		if c.MediaItemID != nil {
			m, err := tx.MediaItems().GetMediaItem(ctx, *c.MediaItemID, c.CreatorID)
			switch {
			case errors.Is(err, ErrRecordNotFound):
			case err != nil:
				return false, err
			default:
				media = m
			}
		}
		if err := canPublish(op, c, media); err != nil {
			return false, err
		}

		now := s.clock()
		c.Status = ContentStatusPublished
		c.PublishedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	if changed {
		s.emit(ctx, "content_published", func(e EventSink) error {
			return e.ContentPublished(ctx, content)
		})
	}
	return content, nil
}

// Unpublish returns published content to draft. PublishedAt is kept.
func (s *ContentService) Unpublish(ctx context.Context, id uuid.UUID, creatorID string) (*Content, error) {
	const op = "content.unpublish"
	content, changed, err := s.mutate(ctx, id, creatorID, func(tx Store, c *Content) (bool, error) {
		if c.Status != ContentStatusPublished {
			return false, nil
		}
		c.Status = ContentStatusDraft
		return true, nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	if changed {
		s.emit(ctx, "content_unpublished", func(e EventSink) error {
			return e.ContentUnpublished(ctx, content)
		})
	}
	return content, nil
}

// Delete soft-deletes content. A second delete reports not found.
func (s *ContentService) Delete(ctx context.Context, id uuid.UUID, creatorID string) error {
	const op = "content.delete"
	err := s.tx.WithTx(ctx, func(tx Store) error {
		if _, err := tx.Contents().GetContentForUpdate(ctx, id, creatorID); err != nil {
			return err
		}
		return tx.Contents().SoftDeleteContent(ctx, id, creatorID, s.clock())
	})
	if err != nil {
		return s.fail(ctx, op, err)
	}

	s.emit(ctx, "content_deleted", func(e EventSink) error {
		return e.ContentDeleted(ctx, id, creatorID)
	})
	return nil
}

// List returns a page of the creator's live content with relations populated.
func (s *ContentService) List(ctx context.Context, creatorID string, req ListContentRequest) (*Page[ContentDetails], error) {
	const op = "content.list"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if req.PersonalOnly && req.OrganizationID != nil {
		return nil, invalid(op, "personal_only", "excluded_with")
	}
	limit, offset := pageBounds(req.Limit, req.Offset)
	params := ContentListParams{
		CreatorID:      creatorID,
		Status:         req.Status,
		ContentType:    req.ContentType,
		Visibility:     req.Visibility,
		Category:       req.Category,
		OrganizationID: req.OrganizationID,
		PersonalOnly:   req.PersonalOnly,
		Search:         strings.TrimSpace(req.Search),
		SortBy:         req.SortBy,
		SortOrder:      sortOrder(req.SortOrder),
		Limit:          limit,
		Offset:         offset,
	}
	if params.SortBy == "" {
		params.SortBy = "created_at"
	}

	page := &Page[ContentDetails]{Limit: limit, Offset: offset}
	err := s.tx.WithTx(ctx, func(tx Store) error {
		rows, total, err := tx.Contents().ListContent(ctx, params)
		if err != nil {
			return err
		}
		page.Total = total
		page.Items = make([]ContentDetails, 0, len(rows))
		loader := newRelationLoader(tx, s.deps)
		for _, c := range rows {
			d, err := loader.load(ctx, c)
			if err != nil {
				return err
			}
			page.Items = append(page.Items, *d)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return page, nil
}

// detachOrganization moves every live content row of a deleted organization
// into its creator's personal scope. Published rows drop back to draft with
// PublishedAt cleared, and slugs that collide with personal content get a
// numeric suffix.
func (s *ContentService) detachOrganization(ctx context.Context, tx Store, org *Organization, at time.Time) ([]uuid.UUID, error) {
	rows, err := tx.Contents().ListContentByOrganization(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("list organization content: %w", err)
	}

	detached := make([]uuid.UUID, 0, len(rows))
	for _, c := range rows {
		c.OrganizationID = nil
		if c.Status == ContentStatusPublished {
			c.Status = ContentStatusDraft
			c.PublishedAt = nil
		}

		slug, err := s.freePersonalSlug(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		if slug != c.Slug {
			s.logger.InfoContext(ctx, "renamed detached content slug",
				"content_id", c.ID, "from", c.Slug, "to", slug)
			c.Slug = slug
		}

		c.Version++
		c.UpdatedAt = at
		if err := tx.Contents().UpdateContent(ctx, c); err != nil {
			return nil, fmt.Errorf("detach content %s: %w", c.ID, err)
		}
		detached = append(detached, c.ID)
	}
	return detached, nil
}

func (s *ContentService) freePersonalSlug(ctx context.Context, tx Store, c *Content) (string, error) {
	scope := ScopeFor(c.CreatorID, nil)
	candidate := c.Slug
	for n := 1; ; n++ {
		taken, err := tx.Contents().ContentSlugExists(ctx, scope, candidate, &c.ID)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = suffixedSlug(c.Slug, n)
	}
}

// mutate locks the content row, applies fn, and when fn reports a change
// bumps the version and writes it back, all in one transaction.
func (s *ContentService) mutate(ctx context.Context, id uuid.UUID, creatorID string, fn func(Store, *Content) (bool, error)) (*Content, bool, error) {
	var (
		content *Content
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		content, err = tx.Contents().GetContentForUpdate(ctx, id, creatorID)
		if err != nil {
			return err
		}
		changed, err = fn(tx, content)
		if err != nil || !changed {
			return err
		}
		content.Version++
		content.UpdatedAt = s.clock()
		return tx.Contents().UpdateContent(ctx, content)
	})
	return content, changed, err
}

func (s *ContentService) checkSlug(ctx context.Context, op string, tx Store, scope SlugScope, slug string, excludeID *uuid.UUID) error {
	taken, err := tx.Contents().ContentSlugExists(ctx, scope, slug, excludeID)
	if err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if taken {
		return contentSlugConflict(op, scope, slug)
	}
	return nil
}

func contentSlugConflict(op string, scope SlugScope, slug string) error {
	return newError(op, ErrConflict, "slug already in use", map[string]any{"slug": slug, "scope": scope.String()})
}

// relationLoader populates ContentDetails, caching lookups across a page.
type relationLoader struct {
	tx       Store
	deps     *deps
	creators map[string]*CreatorSummary
	orgs     map[uuid.UUID]*OrganizationSummary
	media    map[uuid.UUID]*MediaItem
}

func newRelationLoader(tx Store, d *deps) *relationLoader {
	return &relationLoader{
		tx:       tx,
		deps:     d,
		creators: make(map[string]*CreatorSummary),
		orgs:     make(map[uuid.UUID]*OrganizationSummary),
		media:    make(map[uuid.UUID]*MediaItem),
	}
}

// creator resolves the summary for id. Directory failures degrade to the
// bare id so reads never fail on them.
func (l *relationLoader) creator(ctx context.Context, id string) *CreatorSummary {
	if summary, ok := l.creators[id]; ok {
		return summary
	}
	summary := &CreatorSummary{ID: id}
	if l.deps.people != nil {
		found, err := l.deps.people.LookupCreator(ctx, id)
		switch {
		case err != nil:
			l.deps.logger.WarnContext(ctx, "creator lookup failed", "creator_id", id, "err", err)
		case found != nil:
			summary = &CreatorSummary{ID: id, DisplayName: found.DisplayName, AvatarURL: found.AvatarURL}
		}
	}
	l.creators[id] = summary
	return summary
}

func (l *relationLoader) load(ctx context.Context, c *Content) (*ContentDetails, error) {
	d := &ContentDetails{Content: *c, Creator: l.creator(ctx, c.CreatorID)}

	if c.OrganizationID != nil {
		summary, ok := l.orgs[*c.OrganizationID]
		if !ok {
			org, err := l.tx.Organizations().GetOrganization(ctx, *c.OrganizationID)
			switch {
			case errors.Is(err, ErrRecordNotFound):
			case err != nil:
				return nil, fmt.Errorf("load organization: %w", err)
			default:
				summary = &OrganizationSummary{ID: org.ID, Name: org.Name, Slug: org.Slug, LogoURL: org.LogoURL}
			}
			l.orgs[*c.OrganizationID] = summary
		}
		d.Organization = summary
	}

	if c.MediaItemID != nil {
		item, ok := l.media[*c.MediaItemID]
		if !ok {
			m, err := l.tx.MediaItems().GetMediaItem(ctx, *c.MediaItemID, c.CreatorID)
			switch {
			case errors.Is(err, ErrRecordNotFound):
			case err != nil:
				return nil, fmt.Errorf("load media item: %w", err)
			default:
				item = m
			}
			l.media[*c.MediaItemID] = item
		}
		d.MediaItem = item
	}
	return d, nil
}
