package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tendant/simple-publish/pkg/simplepublish"
)

type mediaRepo struct{ db DBTX }

const mediaColumns = `id, creator_id, title, description, media_type, status, storage_key,
	file_size_bytes, mime_type, playlist_key, thumbnail_key, duration_seconds, width, height,
	uploaded_at, created_at, updated_at, deleted_at`

func scanMediaItem(row pgx.Row) (*simplepublish.MediaItem, error) {
	var m simplepublish.MediaItem
	var description *string
	if err := row.Scan(&m.ID, &m.CreatorID, &m.Title, &description, &m.MediaType, &m.Status,
		&m.StorageKey, &m.FileSizeBytes, &m.MimeType, &m.PlaylistKey, &m.ThumbnailKey,
		&m.DurationSeconds, &m.Width, &m.Height, &m.UploadedAt,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt); err != nil {
		return nil, err
	}
	m.Description = derefString(description)
	return &m, nil
}

func (r mediaRepo) CreateMediaItem(ctx context.Context, item *simplepublish.MediaItem) error {
	query := `
		INSERT INTO media_items (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(ctx, query,
		item.ID, item.CreatorID, item.Title, nullString(item.Description), item.MediaType, item.Status,
		item.StorageKey, item.FileSizeBytes, item.MimeType, item.PlaylistKey, item.ThumbnailKey,
		item.DurationSeconds, item.Width, item.Height, item.UploadedAt,
		item.CreatedAt, item.UpdatedAt, item.DeletedAt)
	if err != nil {
		return handlePostgresError("create media item", err)
	}
	return nil
}

func (r mediaRepo) get(ctx context.Context, operation string, id uuid.UUID, creatorID string, lock bool) (*simplepublish.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items
		WHERE id = $1 AND creator_id = $2 AND ` + notDeleted("")
	if lock {
		query += " FOR UPDATE"
	}
	item, err := scanMediaItem(r.db.QueryRow(ctx, query, id, creatorID))
	if err != nil {
		return nil, handlePostgresError(operation, err)
	}
	return item, nil
}

func (r mediaRepo) GetMediaItem(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.MediaItem, error) {
	return r.get(ctx, "get media item", id, creatorID, false)
}

func (r mediaRepo) GetMediaItemForUpdate(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.MediaItem, error) {
	return r.get(ctx, "get media item for update", id, creatorID, true)
}

func (r mediaRepo) UpdateMediaItem(ctx context.Context, item *simplepublish.MediaItem) error {
	query := `
		UPDATE media_items
		SET title = $3, description = $4, status = $5, storage_key = $6, file_size_bytes = $7,
		    mime_type = $8, playlist_key = $9, thumbnail_key = $10, duration_seconds = $11,
		    width = $12, height = $13, uploaded_at = $14, updated_at = $15
		WHERE id = $1 AND creator_id = $2 AND ` + notDeleted("")

	tag, err := r.db.Exec(ctx, query,
		item.ID, item.CreatorID, item.Title, nullString(item.Description), item.Status,
		item.StorageKey, item.FileSizeBytes, item.MimeType, item.PlaylistKey, item.ThumbnailKey,
		item.DurationSeconds, item.Width, item.Height, item.UploadedAt, item.UpdatedAt)
	if err != nil {
		return handlePostgresError("update media item", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.ErrRecordNotFound
	}
	return nil
}

func (r mediaRepo) SoftDeleteMediaItem(ctx context.Context, id uuid.UUID, creatorID string, at time.Time) error {
	query := `UPDATE media_items SET deleted_at = $3, updated_at = $3
		WHERE id = $1 AND creator_id = $2 AND ` + notDeleted("")
	tag, err := r.db.Exec(ctx, query, id, creatorID, at)
	if err != nil {
		return handlePostgresError("delete media item", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.ErrRecordNotFound
	}
	return nil
}

func (r mediaRepo) ListMediaItems(ctx context.Context, params simplepublish.MediaListParams) ([]*simplepublish.MediaItem, int64, error) {
	q := newListQuery("")
	q.add("creator_id = $%d", params.CreatorID)
	if params.Status != "" {
		q.add("status = $%d", params.Status)
	}
	if params.MediaType != "" {
		q.add("media_type = $%d", params.MediaType)
	}
	if params.Search != "" {
		q.search(params.Search, "title", "description")
	}

	total, err := count(ctx, r.db, "count media items", "media_items", q)
	if err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	switch params.SortBy {
	case "updated_at":
		sortBy = "updated_at"
	case "title":
		sortBy = "lower(title)"
	}
	query := `SELECT ` + mediaColumns + ` FROM media_items` + q.clause() +
		q.page(sortBy, params.SortOrder, false, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, 0, handlePostgresError("list media items", err)
	}
	defer rows.Close()

	items := []*simplepublish.MediaItem{}
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, 0, handlePostgresError("scan media item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, handlePostgresError("iterate media item rows", err)
	}
	return items, total, nil
}
