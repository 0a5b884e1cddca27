package reconcile_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/reconcile"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/memory"
	memorystorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
)

func setup(t *testing.T) (*simplepublish.Core, *memorystorage.Backend) {
	t.Helper()
	store := memorystorage.New("")
	core, err := simplepublish.New(
		simplepublish.WithTxRunner(memory.New()),
		simplepublish.WithMediaStore(store),
	)
	require.NoError(t, err)
	return core, store
}

func createMedia(t *testing.T, core *simplepublish.Core, title string) *simplepublish.MediaItem {
	t.Helper()
	item, err := core.Media.Create(context.Background(), "alice", simplepublish.CreateMediaItemRequest{
		Title: title, MediaType: simplepublish.MediaTypeVideo, MimeType: "video/mp4",
	})
	require.NoError(t, err)
	return item
}

func TestRun_ConfirmsUploadedObjects(t *testing.T) {
	ctx := context.Background()
	core, store := setup(t)

	a := createMedia(t, core, "a")
	b := createMedia(t, core, "b")
	c := createMedia(t, core, "c")
	require.NoError(t, store.Put(ctx, a.StorageKey, "video/mp4", strings.NewReader("aaaa")))
	require.NoError(t, store.Put(ctx, c.StorageKey, "video/mp4", strings.NewReader("cc")))

	var progress []int64
	result, err := reconcile.New(core.Media).Run(ctx, reconcile.Options{
		CreatorID:  "alice",
		BatchSize:  1,
		OnProgress: func(processed, total int64) { progress = append(progress, processed) },
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.TotalFound)
	assert.EqualValues(t, 2, result.TotalConfirmed)
	assert.EqualValues(t, 1, result.TotalPending)
	assert.Zero(t, result.TotalFailed)
	assert.Equal(t, []int64{1, 2, 3}, progress)

	for id, want := range map[uuid.UUID]simplepublish.MediaStatus{
		a.ID: simplepublish.MediaStatusUploaded,
		b.ID: simplepublish.MediaStatusUploading,
		c.ID: simplepublish.MediaStatusUploaded,
	} {
		item, err := core.Media.Get(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, item.Status)
	}

	// A second run only sees the pending item.
	result, err = reconcile.New(core.Media).Run(ctx, reconcile.Options{CreatorID: "alice"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.TotalFound)
	assert.EqualValues(t, 1, result.TotalPending)
}

func TestRun_DryRun(t *testing.T) {
	ctx := context.Background()
	core, store := setup(t)
	a := createMedia(t, core, "a")
	createMedia(t, core, "b")
	require.NoError(t, store.Put(ctx, a.StorageKey, "video/mp4", strings.NewReader("aaaa")))

	result, err := reconcile.New(core.Media).Run(ctx, reconcile.Options{CreatorID: "alice", DryRun: true, BatchSize: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.TotalFound)
	assert.Zero(t, result.TotalConfirmed)

	item, err := core.Media.Get(ctx, a.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, simplepublish.MediaStatusUploading, item.Status)
}

func TestRun_RequiresCreator(t *testing.T) {
	core, _ := setup(t)
	_, err := reconcile.New(core.Media).Run(context.Background(), reconcile.Options{})
	assert.EqualError(t, err, "creator id is required")
}

type failingMedia struct {
	items []simplepublish.MediaItem
	err   error
}

func (f *failingMedia) List(ctx context.Context, creatorID string, req simplepublish.ListMediaItemsRequest) (*simplepublish.Page[simplepublish.MediaItem], error) {
	page := &simplepublish.Page[simplepublish.MediaItem]{Total: int64(len(f.items)), Limit: req.Limit, Offset: req.Offset}
	if req.Offset < len(f.items) {
		end := min(req.Offset+req.Limit, len(f.items))
		page.Items = f.items[req.Offset:end]
	}
	return page, nil
}

func (f *failingMedia) ConfirmUpload(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.MediaItem, error) {
	return nil, f.err
}

func TestRun_RecordsFailures(t *testing.T) {
	items := []simplepublish.MediaItem{{ID: uuid.New()}, {ID: uuid.New()}}
	media := &failingMedia{items: items, err: simplepublish.ErrInternal}

	result, err := reconcile.New(media).Run(context.Background(), reconcile.Options{CreatorID: "alice"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.TotalFailed)
	assert.Equal(t, []string{items[0].ID.String(), items[1].ID.String()}, result.FailedIDs)
}

func TestRun_StopsOnCancel(t *testing.T) {
	items := []simplepublish.MediaItem{{ID: uuid.New()}, {ID: uuid.New()}}
	media := &failingMedia{items: items, err: context.Canceled}

	result, err := reconcile.New(media).Run(context.Background(), reconcile.Options{CreatorID: "alice"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, result.TotalFailed)
}
