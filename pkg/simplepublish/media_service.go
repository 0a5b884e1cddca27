package simplepublish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
)

// MediaService tracks uploaded assets through processing.
type MediaService struct {
	*deps
}

// Create registers a new media item in the uploading state.
func (s *MediaService) Create(ctx context.Context, creatorID string, req CreateMediaItemRequest) (*MediaItem, error) {
	const op = "media.create"
	if creatorID == "" {
		return nil, invalid(op, "creator_id", "required")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if err := checkMimeType(op, req.MediaType, req.MimeType); err != nil {
		return nil, err
	}

	now := s.clock()
	item := &MediaItem{
		ID:            uuid.New(),
		CreatorID:     creatorID,
		Title:         req.Title,
		Description:   req.Description,
		MediaType:     req.MediaType,
		Status:        MediaStatusUploading,
		StorageKey:    req.StorageKey,
		FileSizeBytes: req.FileSizeBytes,
		MimeType:      req.MimeType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if item.StorageKey == "" {
		item.StorageKey = s.keys.GenerateKey(item.ID, &objectkey.KeyMetadata{
			CreatorID: creatorID,
			FileName:  req.FileName,
			MediaType: string(req.MediaType),
		})
	}

	err := s.tx.WithTx(ctx, func(tx Store) error {
		return tx.MediaItems().CreateMediaItem(ctx, item)
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return item, nil
}

// Get returns the creator's live media item, or nil.
func (s *MediaService) Get(ctx context.Context, id uuid.UUID, creatorID string) (*MediaItem, error) {
	const op = "media.get"
	var item *MediaItem
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		item, err = tx.MediaItems().GetMediaItem(ctx, id, creatorID)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return item, nil
}

// Update applies the provided descriptive fields.
func (s *MediaService) Update(ctx context.Context, id uuid.UUID, creatorID string, req UpdateMediaItemRequest) (*MediaItem, error) {
	const op = "media.update"
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, id, creatorID, func(item *MediaItem) error {
		if req.MimeType != nil {
			if err := checkMimeType(op, item.MediaType, *req.MimeType); err != nil {
				return err
			}
			item.MimeType = *req.MimeType
		}
		if req.Title != nil {
			item.Title = *req.Title
		}
		if req.Description != nil {
			item.Description = *req.Description
		}
		if req.FileSizeBytes != nil {
			item.FileSizeBytes = *req.FileSizeBytes
		}
		return nil
	})
}

// UpdateStatus moves a media item along the processing state machine.
func (s *MediaService) UpdateStatus(ctx context.Context, id uuid.UUID, creatorID string, status MediaStatus) (*MediaItem, error) {
	const op = "media.update_status"
	return s.mutate(ctx, op, id, creatorID, func(item *MediaItem) error {
		if err := canTransitionMedia(op, item.Status, status); err != nil {
			return err
		}
		if status == MediaStatusUploaded && item.UploadedAt == nil {
			now := s.clock()
			item.UploadedAt = &now
		}
		item.Status = status
		return nil
	})
}

// MarkAsReady records transcoding output and moves the item to ready.
func (s *MediaService) MarkAsReady(ctx context.Context, id uuid.UUID, creatorID string, meta ReadyMetadata) (*MediaItem, error) {
	const op = "media.mark_ready"
	if err := validateRequest(op, meta); err != nil {
		return nil, err
	}
	return s.mutate(ctx, op, id, creatorID, func(item *MediaItem) error {
		if err := canMarkReady(op, item.Status); err != nil {
			return err
		}
		item.Status = MediaStatusReady
		item.PlaylistKey = &meta.PlaylistKey
		if meta.ThumbnailKey != "" {
			item.ThumbnailKey = &meta.ThumbnailKey
		}
		item.DurationSeconds = &meta.DurationSeconds
		item.Width = &meta.Width
		item.Height = &meta.Height
		if item.UploadedAt == nil {
			now := s.clock()
			item.UploadedAt = &now
		}
		return nil
	})
}

// Delete soft-deletes a media item. Content linked to it can no longer be
// published.
func (s *MediaService) Delete(ctx context.Context, id uuid.UUID, creatorID string) error {
	const op = "media.delete"
	err := s.tx.WithTx(ctx, func(tx Store) error {
		if _, err := tx.MediaItems().GetMediaItemForUpdate(ctx, id, creatorID); err != nil {
			return err
		}
		return tx.MediaItems().SoftDeleteMediaItem(ctx, id, creatorID, s.clock())
	})
	return s.fail(ctx, op, err)
}

// List returns a page of the creator's live media.
func (s *MediaService) List(ctx context.Context, creatorID string, req ListMediaItemsRequest) (*Page[MediaItem], error) {
	const op = "media.list"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	limit, offset := pageBounds(req.Limit, req.Offset)
	params := MediaListParams{
		CreatorID: creatorID,
		Status:    req.Status,
		MediaType: req.MediaType,
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
		rows  []*MediaItem
		total int64
	)
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		rows, total, err = tx.MediaItems().ListMediaItems(ctx, params)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	page := &Page[MediaItem]{Items: make([]MediaItem, 0, len(rows)), Total: total, Limit: limit, Offset: offset}
	for _, m := range rows {
		page.Items = append(page.Items, *m)
	}
	return page, nil
}

// UploadURL returns a presigned URL the creator uploads the original to.
func (s *MediaService) UploadURL(ctx context.Context, id uuid.UUID, creatorID string) (string, error) {
	const op = "media.upload_url"
	if s.store == nil {
		return "", storageNotConfigured(op)
	}
	item, err := s.Get(ctx, id, creatorID)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", newError(op, ErrNotFound, "", nil)
	}
	if item.Status != MediaStatusUploading {
		return "", newError(op, ErrBusinessLogic,
			fmt.Sprintf("media item is %s", item.Status),
			map[string]any{"status": string(item.Status)})
	}
	url, err := s.store.UploadURL(ctx, item.StorageKey, item.MimeType)
	if err != nil {
		return "", s.fail(ctx, op, fmt.Errorf("presign upload: %w", err))
	}
	return url, nil
}

// ConfirmUpload checks the uploaded object in storage, records its size and
// content type, and moves the item to uploaded.
func (s *MediaService) ConfirmUpload(ctx context.Context, id uuid.UUID, creatorID string) (*MediaItem, error) {
	const op = "media.confirm_upload"
	if s.store == nil {
		return nil, storageNotConfigured(op)
	}
	current, err := s.Get(ctx, id, creatorID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, newError(op, ErrNotFound, "", nil)
	}

	meta, err := s.store.Stat(ctx, current.StorageKey)
	if errors.Is(err, ErrObjectMissing) {
		return nil, newError(op, ErrBusinessLogic, "upload not found in storage",
			map[string]any{"storageKey": current.StorageKey})
	}
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("stat object: %w", err))
	}

	return s.mutate(ctx, op, id, creatorID, func(item *MediaItem) error {
		if err := canTransitionMedia(op, item.Status, MediaStatusUploaded); err != nil {
			return err
		}
		item.Status = MediaStatusUploaded
		item.FileSizeBytes = meta.Size
		if meta.ContentType != "" && checkMimeType(op, item.MediaType, meta.ContentType) == nil {
			item.MimeType = meta.ContentType
		}
		now := s.clock()
		item.UploadedAt = &now
		return nil
	})
}

// PlaybackURL returns a presigned URL for the playlist of a ready item.
func (s *MediaService) PlaybackURL(ctx context.Context, id uuid.UUID, creatorID string) (string, error) {
	const op = "media.playback_url"
	if s.store == nil {
		return "", storageNotConfigured(op)
	}
	item, err := s.Get(ctx, id, creatorID)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", newError(op, ErrNotFound, "", nil)
	}
	if item.Status != MediaStatusReady || item.PlaylistKey == nil {
		return "", newError(op, ErrMediaNotReady, fmt.Sprintf("media item is %s", item.Status),
			map[string]any{"mediaItemId": item.ID.String(), "mediaStatus": string(item.Status)})
	}
	url, err := s.store.DownloadURL(ctx, *item.PlaylistKey)
	if err != nil {
		return "", s.fail(ctx, op, fmt.Errorf("presign download: %w", err))
	}
	return url, nil
}

// mutate locks the item, applies fn and writes it back in one transaction.
// A status change is reported to the event sink after commit.
func (s *MediaService) mutate(ctx context.Context, op string, id uuid.UUID, creatorID string, fn func(*MediaItem) error) (*MediaItem, error) {
	var (
		item *MediaItem
		from MediaStatus
	)
	err := s.tx.WithTx(ctx, func(tx Store) error {
		var err error
		item, err = tx.MediaItems().GetMediaItemForUpdate(ctx, id, creatorID)
		if err != nil {
			return err
		}
		from = item.Status
		if err := fn(item); err != nil {
			return err
		}
		item.UpdatedAt = s.clock()
		return tx.MediaItems().UpdateMediaItem(ctx, item)
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	if item.Status != from {
		s.emit(ctx, "media_status_changed", func(e EventSink) error {
			return e.MediaStatusChanged(ctx, item, from)
		})
	}
	return item, nil
}

func checkMimeType(op string, t MediaType, mime string) error {
	if strings.HasPrefix(strings.ToLower(mime), string(t)+"/") {
		return nil
	}
	return newError(op, ErrValidation, fmt.Sprintf("mime type %s does not match %s media", mime, t),
		map[string]any{"mime_type": "media_type"})
}

func storageNotConfigured(op string) error {
	return newError(op, ErrBusinessLogic, "storage not configured", nil)
}
