package simplepublish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrganizationDeletedHandler runs inside the transaction that soft-deletes
// org and returns the ids of records it changed.
type OrganizationDeletedHandler func(ctx context.Context, tx Store, org *Organization, at time.Time) ([]uuid.UUID, error)

// OrganizationService is the organization registry.
type OrganizationService struct {
	*deps
	onDelete []OrganizationDeletedHandler
}

// OnDelete registers a handler fired in the same transaction as every
// organization delete. Handler errors abort the delete.
func (s *OrganizationService) OnDelete(h OrganizationDeletedHandler) {
	s.onDelete = append(s.onDelete, h)
}

// Create registers a new organization owned by actorID.
func (s *OrganizationService) Create(ctx context.Context, actorID string, req CreateOrganizationRequest) (*Organization, error) {
	const op = "organization.create"
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = NormalizeOrganizationSlug(req.Slug)
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	now := s.clock()
	org := &Organization{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		WebsiteURL:  req.WebsiteURL,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.WithTx(ctx, func(tx Store) error {
		taken, err := tx.Organizations().OrganizationSlugExists(ctx, org.Slug, nil)
		if err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if taken {
			return orgSlugConflict(op, org.Slug)
		}
		return tx.Organizations().CreateOrganization(ctx, org)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, orgSlugConflict(op, org.Slug)
		}
		return nil, s.fail(ctx, op, err)
	}
	return org, nil
}

// Get returns a live organization, or nil when it does not exist.
func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	const op = "organization.get"
	var org *Organization
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		org, err = tx.Organizations().GetOrganization(ctx, id)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return org, nil
}

// GetBySlug looks up a live organization by slug, ignoring case.
func (s *OrganizationService) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	const op = "organization.get_by_slug"
	slug = NormalizeOrganizationSlug(slug)
	if slug == "" {
		return nil, invalid(op, "slug", "required")
	}
	var org *Organization
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		org, err = tx.Organizations().GetOrganizationBySlug(ctx, slug)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return org, nil
}

// Update applies the provided fields to a live organization.
func (s *OrganizationService) Update(ctx context.Context, actorID string, id uuid.UUID, req UpdateOrganizationRequest) (*Organization, error) {
	const op = "organization.update"
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Slug != nil {
		slug := NormalizeOrganizationSlug(*req.Slug)
		req.Slug = &slug
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	var org *Organization
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		org, err = tx.Organizations().GetOrganizationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.requireRole(ctx, op, org, actorID, RoleAdmin); err != nil {
			return err
		}

		if req.Slug != nil && *req.Slug != org.Slug {
			taken, err := tx.Organizations().OrganizationSlugExists(ctx, *req.Slug, &org.ID)
			if err != nil {
				return fmt.Errorf("check slug: %w", err)
			}
			if taken {
				return orgSlugConflict(op, *req.Slug)
			}
			org.Slug = *req.Slug
		}
		if req.Name != nil {
			org.Name = *req.Name
		}
		if req.Description != nil {
			org.Description = *req.Description
		}
		if req.LogoURL != nil {
			org.LogoURL = *req.LogoURL
		}
		if req.WebsiteURL != nil {
			org.WebsiteURL = *req.WebsiteURL
		}
		org.UpdatedAt = s.clock()
		return tx.Organizations().UpdateOrganization(ctx, org)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) && req.Slug != nil {
			return nil, orgSlugConflict(op, *req.Slug)
		}
		return nil, s.fail(ctx, op, err)
	}
	return org, nil
}

// Delete soft-deletes an organization and detaches its content in the same
// transaction.
func (s *OrganizationService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	const op = "organization.delete"
	var detached []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx Store) error {
		org, err := tx.Organizations().GetOrganizationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.requireRole(ctx, op, org, actorID, RoleAdmin); err != nil {
			return err
		}
		now := s.clock()
		if err := tx.Organizations().SoftDeleteOrganization(ctx, org.ID, now); err != nil {
			return err
		}
		for _, h := range s.onDelete {
			ids, err := h(ctx, tx, org, now)
			if err != nil {
				return fmt.Errorf("organization delete handler: %w", err)
			}
			detached = append(detached, ids...)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, op, err)
	}

	s.logger.InfoContext(ctx, "organization deleted", "organization_id", id, "detached", len(detached))
	s.emit(ctx, "organization_deleted", func(e EventSink) error {
		return e.OrganizationDeleted(ctx, id, detached)
	})
	return nil
}

// List returns a page of live organizations.
func (s *OrganizationService) List(ctx context.Context, req ListOrganizationsRequest) (*Page[Organization], error) {
	const op = "organization.list"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	limit, offset := pageBounds(req.Limit, req.Offset)
	params := OrganizationListParams{
		Search:    strings.TrimSpace(req.Search),
		SortBy:    req.SortBy,
		SortOrder: sortOrder(req.SortOrder),
		Limit:     limit,
		Offset:    offset,
	}
	if params.SortBy == "" {
		params.SortBy = "created_at"
	}

	var (
		rows  []*Organization
		total int64
	)
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		rows, total, err = tx.Organizations().ListOrganizations(ctx, params)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	page := &Page[Organization]{Items: make([]Organization, 0, len(rows)), Total: total, Limit: limit, Offset: offset}
	for _, o := range rows {
		page.Items = append(page.Items, *o)
	}
	return page, nil
}

// IsSlugAvailable reports whether no live organization uses slug.
func (s *OrganizationService) IsSlugAvailable(ctx context.Context, slug string) (bool, error) {
	const op = "organization.is_slug_available"
	slug = NormalizeOrganizationSlug(slug)
	if !IsValidSlug(slug) {
		return false, invalid(op, "slug", "slug")
	}
	var taken bool
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		taken, err = tx.Organizations().OrganizationSlugExists(ctx, slug, nil)
		return err
	})
	if err != nil {
		return false, s.fail(ctx, op, err)
	}
	return !taken, nil
}

func orgSlugConflict(op, slug string) error {
	return newError(op, ErrConflict, "organization slug already in use", map[string]any{"slug": slug})
}
