package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tendant/simple-publish/pkg/simplepublish"
)

type contentRepo struct{ db DBTX }

const contentColumns = `id, creator_id, organization_id, media_item_id, title, slug, description,
	content_body, category, tags, thumbnail_url, content_type, visibility, price_cents, status,
	published_at, view_count, purchase_count, version, created_at, updated_at, deleted_at`

func scanContent(row pgx.Row) (*simplepublish.Content, error) {
	var c simplepublish.Content
	var description, body, category, thumbnail *string
	if err := row.Scan(&c.ID, &c.CreatorID, &c.OrganizationID, &c.MediaItemID, &c.Title, &c.Slug,
		&description, &body, &category, &c.Tags, &thumbnail, &c.ContentType, &c.Visibility,
		&c.PriceCents, &c.Status, &c.PublishedAt, &c.ViewCount, &c.PurchaseCount, &c.Version,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
		return nil, err
	}
	c.Description = derefString(description)
	c.ContentBody = derefString(body)
	c.Category = derefString(category)
	c.ThumbnailURL = derefString(thumbnail)
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	return &c, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// scopeCondition restricts rows to a slug scope. The organization id or the
// creator id is bound at position n.
func scopeCondition(scope simplepublish.SlugScope, n string) (string, interface{}) {
	if scope.IsOrganization() {
		return "organization_id = $" + n, *scope.OrganizationID
	}
	return "organization_id IS NULL AND creator_id = $" + n, scope.CreatorID
}

func (r contentRepo) CreateContent(ctx context.Context, content *simplepublish.Content) error {
	query := `
		INSERT INTO content (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22)`

	_, err := r.db.Exec(ctx, query,
		content.ID, content.CreatorID, content.OrganizationID, content.MediaItemID, content.Title,
		content.Slug, nullString(content.Description), nullString(content.ContentBody),
		nullString(content.Category), tagsOrEmpty(content.Tags), nullString(content.ThumbnailURL),
		content.ContentType, content.Visibility, content.PriceCents, content.Status,
		content.PublishedAt, content.ViewCount, content.PurchaseCount, content.Version,
		content.CreatedAt, content.UpdatedAt, content.DeletedAt)
	if err != nil {
		return handlePostgresError("create content", err)
	}
	return nil
}

func (r contentRepo) get(ctx context.Context, operation string, id uuid.UUID, creatorID string, lock bool) (*simplepublish.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content
		WHERE id = $1 AND creator_id = $2 AND ` + notDeleted("")
	if lock {
		query += " FOR UPDATE"
	}
	c, err := scanContent(r.db.QueryRow(ctx, query, id, creatorID))
	if err != nil {
		return nil, handlePostgresError(operation, err)
	}
	return c, nil
}

func (r contentRepo) GetContent(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.Content, error) {
	return r.get(ctx, "get content", id, creatorID, false)
}

func (r contentRepo) GetContentForUpdate(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.Content, error) {
	return r.get(ctx, "get content for update", id, creatorID, true)
}

func (r contentRepo) GetContentBySlug(ctx context.Context, scope simplepublish.SlugScope, slug string) (*simplepublish.Content, error) {
	cond, arg := scopeCondition(scope, "2")
	query := `SELECT ` + contentColumns + ` FROM content
		WHERE slug = $1 AND ` + cond + ` AND ` + notDeleted("")
	c, err := scanContent(r.db.QueryRow(ctx, query, slug, arg))
	if err != nil {
		return nil, handlePostgresError("get content by slug", err)
	}
	return c, nil
}

func (r contentRepo) UpdateContent(ctx context.Context, content *simplepublish.Content) error {
	query := `
		UPDATE content
		SET organization_id = $2, media_item_id = $3, title = $4, slug = $5, description = $6,
		    content_body = $7, category = $8, tags = $9, thumbnail_url = $10, visibility = $11,
		    price_cents = $12, status = $13, published_at = $14, view_count = $15,
		    purchase_count = $16, version = $17, updated_at = $18
		WHERE id = $1 AND version = $17 - 1 AND ` + notDeleted("")

	tag, err := r.db.Exec(ctx, query,
		content.ID, content.OrganizationID, content.MediaItemID, content.Title, content.Slug,
		nullString(content.Description), nullString(content.ContentBody),
		nullString(content.Category), tagsOrEmpty(content.Tags), nullString(content.ThumbnailURL),
		content.Visibility, content.PriceCents, content.Status, content.PublishedAt,
		content.ViewCount, content.PurchaseCount, content.Version, content.UpdatedAt)
	if err != nil {
		return handlePostgresError("update content", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows is either a missing row or a version mismatch.
	var exists bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM content WHERE id = $1 AND `+notDeleted("")+`)`,
		content.ID).Scan(&exists)
	if err != nil {
		return handlePostgresError("update content", err)
	}
	if exists {
		return simplepublish.ErrStaleVersion
	}
	return simplepublish.ErrRecordNotFound
}

func (r contentRepo) SoftDeleteContent(ctx context.Context, id uuid.UUID, creatorID string, at time.Time) error {
	query := `UPDATE content SET deleted_at = $3, updated_at = $3
		WHERE id = $1 AND creator_id = $2 AND ` + notDeleted("")
	tag, err := r.db.Exec(ctx, query, id, creatorID, at)
	if err != nil {
		return handlePostgresError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.ErrRecordNotFound
	}
	return nil
}

func (r contentRepo) ListContent(ctx context.Context, params simplepublish.ContentListParams) ([]*simplepublish.Content, int64, error) {
	q := newListQuery("")
	q.add("creator_id = $%d", params.CreatorID)
	if params.Status != "" {
		q.add("status = $%d", params.Status)
	}
	if params.ContentType != "" {
		q.add("content_type = $%d", params.ContentType)
	}
	if params.Visibility != "" {
		q.add("visibility = $%d", params.Visibility)
	}
	if params.Category != "" {
		q.add("category = $%d", params.Category)
	}
	if params.OrganizationID != nil {
		q.add("organization_id = $%d", *params.OrganizationID)
	}
	if params.PersonalOnly {
		q.where = append(q.where, "organization_id IS NULL")
	}
	if params.Search != "" {
		q.search(params.Search, "title", "description")
	}

	total, err := count(ctx, r.db, "count content", "content", q)
	if err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	switch params.SortBy {
	case "updated_at", "published_at", "view_count":
		sortBy = params.SortBy
	case "title":
		sortBy = "lower(title)"
	}
	// Drafts have no publish time and sort last in either direction.
	query := `SELECT ` + contentColumns + ` FROM content` + q.clause() +
		q.page(sortBy, params.SortOrder, sortBy == "published_at", params.Limit, params.Offset)

	items, err := r.list(ctx, "list content", query, q.args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r contentRepo) ListContentByOrganization(ctx context.Context, orgID uuid.UUID) ([]*simplepublish.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content
		WHERE organization_id = $1 AND ` + notDeleted("") + `
		ORDER BY created_at, id`
	return r.list(ctx, "list content by organization", query, orgID)
}

func (r contentRepo) list(ctx context.Context, operation, query string, args ...interface{}) ([]*simplepublish.Content, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError(operation, err)
	}
	defer rows.Close()

	items := []*simplepublish.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, handlePostgresError("scan content", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("iterate content rows", err)
	}
	return items, nil
}

func (r contentRepo) ContentSlugExists(ctx context.Context, scope simplepublish.SlugScope, slug string, excludeID *uuid.UUID) (bool, error) {
	cond, arg := scopeCondition(scope, "2")
	query := `
		SELECT EXISTS (
			SELECT 1 FROM content
			WHERE slug = $1 AND ` + cond + ` AND ($3::uuid IS NULL OR id <> $3) AND ` + notDeleted("") + `
		)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, slug, arg, excludeID).Scan(&exists); err != nil {
		return false, handlePostgresError("check content slug", err)
	}
	return exists, nil
}
