package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tendant/simple-publish/pkg/simplepublish"
)

type organizationRepo struct{ db DBTX }

const organizationColumns = `id, name, slug, description, logo_url, website_url,
	created_by, created_at, updated_at, deleted_at`

func scanOrganization(row pgx.Row) (*simplepublish.Organization, error) {
	var o simplepublish.Organization
	var description, logoURL, websiteURL *string
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &description, &logoURL, &websiteURL,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt); err != nil {
		return nil, err
	}
	o.Description = derefString(description)
	o.LogoURL = derefString(logoURL)
	o.WebsiteURL = derefString(websiteURL)
	return &o, nil
}

func (r organizationRepo) CreateOrganization(ctx context.Context, org *simplepublish.Organization) error {
	query := `
		INSERT INTO organizations (` + organizationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		org.ID, org.Name, org.Slug, nullString(org.Description), nullString(org.LogoURL),
		nullString(org.WebsiteURL), org.CreatedBy, org.CreatedAt, org.UpdatedAt, org.DeletedAt)
	if err != nil {
		return handlePostgresError("create organization", err)
	}
	return nil
}

func (r organizationRepo) get(ctx context.Context, operation, suffix string, args ...interface{}) (*simplepublish.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE ` + notDeleted("") + ` AND ` + suffix
	org, err := scanOrganization(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, handlePostgresError(operation, err)
	}
	return org, nil
}

func (r organizationRepo) GetOrganization(ctx context.Context, id uuid.UUID) (*simplepublish.Organization, error) {
	return r.get(ctx, "get organization", "id = $1", id)
}

func (r organizationRepo) GetOrganizationForUpdate(ctx context.Context, id uuid.UUID) (*simplepublish.Organization, error) {
	return r.get(ctx, "get organization for update", "id = $1 FOR UPDATE", id)
}

func (r organizationRepo) GetOrganizationBySlug(ctx context.Context, slug string) (*simplepublish.Organization, error) {
	return r.get(ctx, "get organization by slug", "lower(slug) = lower($1)", slug)
}

func (r organizationRepo) UpdateOrganization(ctx context.Context, org *simplepublish.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, slug = $3, description = $4, logo_url = $5, website_url = $6, updated_at = $7
		WHERE id = $1 AND ` + notDeleted("")

	tag, err := r.db.Exec(ctx, query,
		org.ID, org.Name, org.Slug, nullString(org.Description), nullString(org.LogoURL),
		nullString(org.WebsiteURL), org.UpdatedAt)
	if err != nil {
		return handlePostgresError("update organization", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.ErrRecordNotFound
	}
	return nil
}

func (r organizationRepo) SoftDeleteOrganization(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE organizations SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND ` + notDeleted("")
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return handlePostgresError("delete organization", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.ErrRecordNotFound
	}
	return nil
}

func (r organizationRepo) ListOrganizations(ctx context.Context, params simplepublish.OrganizationListParams) ([]*simplepublish.Organization, int64, error) {
	q := newListQuery("")
	if params.Search != "" {
		q.search(params.Search, "name", "description")
	}

	total, err := count(ctx, r.db, "count organizations", "organizations", q)
	if err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	if params.SortBy == "name" {
		sortBy = "lower(name)"
	}
	query := `SELECT ` + organizationColumns + ` FROM organizations` + q.clause() +
		q.page(sortBy, params.SortOrder, false, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, 0, handlePostgresError("list organizations", err)
	}
	defer rows.Close()

	orgs := []*simplepublish.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, handlePostgresError("scan organization", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, handlePostgresError("iterate organization rows", err)
	}
	return orgs, total, nil
}

func (r organizationRepo) OrganizationSlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM organizations
			WHERE lower(slug) = lower($1) AND ($2::uuid IS NULL OR id <> $2) AND ` + notDeleted("") + `
		)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, handlePostgresError("check organization slug", err)
	}
	return exists, nil
}
