package simplepublish_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
	storagememory "github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
)

func TestMediaService_Create(t *testing.T) {
	f := newFixture(t)

	t.Run("starts uploading with generated key", func(t *testing.T) {
		item := f.media(t, "alice", simplepublish.MediaTypeVideo)
		assert.Equal(t, simplepublish.MediaStatusUploading, item.Status)
		assert.True(t, strings.HasPrefix(item.StorageKey, "media/alice/"), item.StorageKey)
		assert.True(t, strings.HasSuffix(item.StorageKey, "_raw.mp4"), item.StorageKey)
		assert.Nil(t, item.PlaylistKey)
		assert.Nil(t, item.UploadedAt)
	})

	t.Run("explicit storage key", func(t *testing.T) {
		item, err := f.core.Media.Create(f.ctx, "alice", simplepublish.CreateMediaItemRequest{
			Title:      "Podcast",
			MediaType:  simplepublish.MediaTypeAudio,
			MimeType:   "audio/mpeg",
			StorageKey: "imports/ep1.mp3",
		})
		require.NoError(t, err)
		assert.Equal(t, "imports/ep1.mp3", item.StorageKey)
	})

	t.Run("mime type must match kind", func(t *testing.T) {
		_, err := f.core.Media.Create(f.ctx, "alice", simplepublish.CreateMediaItemRequest{
			Title:     "Clip",
			MediaType: simplepublish.MediaTypeVideo,
			MimeType:  "audio/mpeg",
		})
		assert.ErrorIs(t, err, simplepublish.ErrValidation)
	})

	t.Run("unknown media type", func(t *testing.T) {
		_, err := f.core.Media.Create(f.ctx, "alice", simplepublish.CreateMediaItemRequest{
			Title:     "Doc",
			MediaType: "document",
			MimeType:  "document/pdf",
		})
		require.Error(t, err)
		assert.Equal(t, "oneof", simplepublish.DetailsOf(err)["media_type"])
	})

	t.Run("custom key generator", func(t *testing.T) {
		g := newFixture(t, simplepublish.WithKeyGenerator(objectkey.NewFlatGenerator()))
		item := g.media(t, "alice", simplepublish.MediaTypeAudio)
		assert.Equal(t, "media/"+item.ID.String()+"/raw.mp4", item.StorageKey)
	})
}

func TestMediaService_StateMachine(t *testing.T) {
	f := newFixture(t)
	item := f.media(t, "alice", simplepublish.MediaTypeVideo)

	for _, next := range []simplepublish.MediaStatus{
		simplepublish.MediaStatusUploaded,
		simplepublish.MediaStatusTranscoding,
		simplepublish.MediaStatusFailed,
		simplepublish.MediaStatusUploading,
		simplepublish.MediaStatusUploaded,
		simplepublish.MediaStatusTranscoding,
		simplepublish.MediaStatusReady,
	} {
		updated, err := f.core.Media.UpdateStatus(f.ctx, item.ID, "alice", next)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	got, err := f.core.Media.Get(f.ctx, item.ID, "alice")
	require.NoError(t, err)
	assert.NotNil(t, got.UploadedAt)

	_, err = f.core.Media.UpdateStatus(f.ctx, item.ID, "alice", simplepublish.MediaStatusUploading)
	require.Error(t, err)
	assert.ErrorIs(t, err, simplepublish.ErrBusinessLogic)
	assert.Equal(t, http.StatusUnprocessableEntity, simplepublish.HTTPStatus(err))
	assert.Equal(t, map[string]any{"from": "ready", "to": "uploading"}, simplepublish.DetailsOf(err))

	_, err = f.core.Media.UpdateStatus(f.ctx, item.ID, "alice", "exploded")
	assert.ErrorIs(t, err, simplepublish.ErrValidation)

	events := f.events.names()
	assert.Contains(t, events, "media_uploading_uploaded")
	assert.Contains(t, events, "media_transcoding_ready")
}

func TestMediaService_MarkAsReady(t *testing.T) {
	f := newFixture(t)

	t.Run("from uploading", func(t *testing.T) {
		item := f.media(t, "alice", simplepublish.MediaTypeVideo)
		ready, err := f.core.Media.MarkAsReady(f.ctx, item.ID, "alice", simplepublish.ReadyMetadata{
			PlaylistKey:     "hls/index.m3u8",
			ThumbnailKey:    "thumb.jpg",
			DurationSeconds: 95,
			Width:           1920,
			Height:          1080,
		})
		require.NoError(t, err)
		assert.Equal(t, simplepublish.MediaStatusReady, ready.Status)
		assert.Equal(t, "hls/index.m3u8", *ready.PlaylistKey)
		assert.Equal(t, "thumb.jpg", *ready.ThumbnailKey)
		assert.Equal(t, 95, *ready.DurationSeconds)
		assert.Equal(t, 1920, *ready.Width)
		assert.Equal(t, 1080, *ready.Height)
		assert.NotNil(t, ready.UploadedAt)
	})

	t.Run("from ready", func(t *testing.T) {
		item := f.readyMedia(t, "alice", simplepublish.MediaTypeVideo)
		_, err := f.core.Media.MarkAsReady(f.ctx, item.ID, "alice", simplepublish.ReadyMetadata{PlaylistKey: "x"})
		assert.ErrorIs(t, err, simplepublish.ErrBusinessLogic)
	})

	t.Run("from failed", func(t *testing.T) {
		item := f.media(t, "alice", simplepublish.MediaTypeVideo)
		_, err := f.core.Media.UpdateStatus(f.ctx, item.ID, "alice", simplepublish.MediaStatusFailed)
		require.NoError(t, err)
		_, err = f.core.Media.MarkAsReady(f.ctx, item.ID, "alice", simplepublish.ReadyMetadata{PlaylistKey: "x"})
		assert.ErrorIs(t, err, simplepublish.ErrBusinessLogic)
	})

	t.Run("playlist required", func(t *testing.T) {
		item := f.media(t, "alice", simplepublish.MediaTypeVideo)
		_, err := f.core.Media.MarkAsReady(f.ctx, item.ID, "alice", simplepublish.ReadyMetadata{})
		assert.ErrorIs(t, err, simplepublish.ErrValidation)
	})
}

func TestMediaService_CreatorScoping(t *testing.T) {
	f := newFixture(t)
	item := f.media(t, "alice", simplepublish.MediaTypeVideo)

	got, err := f.core.Media.Get(f.ctx, item.ID, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.core.Media.Update(f.ctx, item.ID, "bob", simplepublish.UpdateMediaItemRequest{Title: ptr("mine")})
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)

	_, err = f.core.Media.UpdateStatus(f.ctx, item.ID, "bob", simplepublish.MediaStatusUploaded)
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)

	err = f.core.Media.Delete(f.ctx, item.ID, "bob")
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)

	page, err := f.core.Media.List(f.ctx, "bob", simplepublish.ListMediaItemsRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestMediaService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	item := f.media(t, "alice", simplepublish.MediaTypeAudio)

	updated, err := f.core.Media.Update(f.ctx, item.ID, "alice", simplepublish.UpdateMediaItemRequest{
		Title:    ptr("  Episode 1 "),
		MimeType: ptr("audio/aac"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Episode 1", updated.Title)
	assert.Equal(t, "audio/aac", updated.MimeType)

	_, err = f.core.Media.Update(f.ctx, item.ID, "alice", simplepublish.UpdateMediaItemRequest{MimeType: ptr("video/mp4")})
	assert.ErrorIs(t, err, simplepublish.ErrValidation)

	require.NoError(t, f.core.Media.Delete(f.ctx, item.ID, "alice"))
	got, err := f.core.Media.Get(f.ctx, item.ID, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, f.core.Media.Delete(f.ctx, item.ID, "alice"), simplepublish.ErrNotFound)
}

func TestMediaService_List(t *testing.T) {
	f := newFixture(t)
	f.media(t, "alice", simplepublish.MediaTypeVideo)
	audio := f.media(t, "alice", simplepublish.MediaTypeAudio)
	ready := f.readyMedia(t, "alice", simplepublish.MediaTypeVideo)
	f.media(t, "bob", simplepublish.MediaTypeVideo)

	page, err := f.core.Media.List(f.ctx, "alice", simplepublish.ListMediaItemsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = f.core.Media.List(f.ctx, "alice", simplepublish.ListMediaItemsRequest{MediaType: simplepublish.MediaTypeAudio})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, audio.ID, page.Items[0].ID)

	page, err = f.core.Media.List(f.ctx, "alice", simplepublish.ListMediaItemsRequest{Status: simplepublish.MediaStatusReady})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ready.ID, page.Items[0].ID)
}

func TestMediaService_Storage(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t)
		item := f.media(t, "alice", simplepublish.MediaTypeVideo)
		_, err := f.core.Media.UploadURL(f.ctx, item.ID, "alice")
		assert.ErrorIs(t, err, simplepublish.ErrBusinessLogic)
		_, err = f.core.Media.ConfirmUpload(f.ctx, item.ID, "alice")
		assert.ErrorIs(t, err, simplepublish.ErrBusinessLogic)
	})

	store := storagememory.New("https://cdn.example.com")
	f := newFixture(t, simplepublish.WithMediaStore(store))
	item := f.media(t, "alice", simplepublish.MediaTypeVideo)

	url, err := f.core.Media.UploadURL(f.ctx, item.ID, "alice")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/"+item.StorageKey), url)

	_, err = f.core.Media.ConfirmUpload(f.ctx, item.ID, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, simplepublish.ErrBusinessLogic)
	assert.Equal(t, item.StorageKey, simplepublish.DetailsOf(err)["storageKey"])

	require.NoError(t, store.Put(f.ctx, item.StorageKey, "video/quicktime", strings.NewReader("0123456789")))
	uploaded, err := f.core.Media.ConfirmUpload(f.ctx, item.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, simplepublish.MediaStatusUploaded, uploaded.Status)
	assert.Equal(t, int64(10), uploaded.FileSizeBytes)
	assert.Equal(t, "video/quicktime", uploaded.MimeType)
	assert.NotNil(t, uploaded.UploadedAt)

	_, err = f.core.Media.UploadURL(f.ctx, item.ID, "alice")
	assert.ErrorIs(t, err, simplepublish.ErrBusinessLogic)

	_, err = f.core.Media.PlaybackURL(f.ctx, item.ID, "alice")
	assert.ErrorIs(t, err, simplepublish.ErrMediaNotReady)

	_, err = f.core.Media.MarkAsReady(f.ctx, item.ID, "alice", simplepublish.ReadyMetadata{PlaylistKey: "hls/index.m3u8"})
	require.NoError(t, err)
	url, err = f.core.Media.PlaybackURL(f.ctx, item.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/hls/index.m3u8", url)

	_, err = f.core.Media.PlaybackURL(f.ctx, uuid.New(), "alice")
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)
}
