// Package reconcile confirms uploads whose objects reached storage but whose
// media items were never confirmed, e.g. because the client crashed after
// uploading.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Media is the subset of MediaService the reconciler drives.
type Media interface {
	List(ctx context.Context, creatorID string, req simplepublish.ListMediaItemsRequest) (*simplepublish.Page[simplepublish.MediaItem], error)
	ConfirmUpload(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.MediaItem, error)
}

// Options configures a run.
type Options struct {
	CreatorID string

	// BatchSize is the page size used to walk uploading items (default 100).
	BatchSize int

	// DryRun counts candidates without confirming anything.
	DryRun bool

	// OnProgress is called after each batch.
	OnProgress func(processed, total int64)
}

// Result summarizes a run.
type Result struct {
	// TotalFound is the number of items in uploading status when the run began.
	TotalFound int64

	// TotalConfirmed moved to uploaded.
	TotalConfirmed int64

	// TotalPending are still waiting for their object in storage.
	TotalPending int64

	// TotalFailed could not be confirmed for another reason.
	TotalFailed int64
	FailedIDs   []string
}

// Reconciler walks a creator's uploading media items.
type Reconciler struct {
	media Media
}

// New creates a Reconciler.
func New(media Media) *Reconciler {
	return &Reconciler{media: media}
}

// Run confirms every uploading item whose object exists in storage. Items
// whose object is still missing are counted as pending; other failures are
// recorded and the run continues.
func (r *Reconciler) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.CreatorID == "" {
		return nil, errors.New("creator id is required")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	if batch > 100 {
		batch = 100
	}

	result := &Result{}
	offset := 0
	var processed int64
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := r.media.List(ctx, opts.CreatorID, simplepublish.ListMediaItemsRequest{
			Status:    simplepublish.MediaStatusUploading,
			SortBy:    "created_at",
			SortOrder: "asc",
			Limit:     batch,
			Offset:    offset,
		})
		if err != nil {
			return result, fmt.Errorf("list uploading media: %w", err)
		}
		if processed == 0 && offset == 0 {
			result.TotalFound = page.Total
		}
		if len(page.Items) == 0 {
			break
		}

		// Confirmed items leave the uploading filter, so only the ones
		// left behind advance the offset.
		remaining := 0
		for _, item := range page.Items {
			processed++
			if opts.DryRun {
				remaining++
				continue
			}
			_, err := r.media.ConfirmUpload(ctx, item.ID, opts.CreatorID)
			switch {
			case err == nil:
				result.TotalConfirmed++
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return result, err
			case errors.Is(err, simplepublish.ErrBusinessLogic):
				result.TotalPending++
				remaining++
			default:
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, item.ID.String())
				remaining++
			}
		}
		offset += remaining

		if opts.OnProgress != nil {
			opts.OnProgress(processed, result.TotalFound)
		}
		if len(page.Items) < batch {
			break
		}
	}
	return result, nil
}
