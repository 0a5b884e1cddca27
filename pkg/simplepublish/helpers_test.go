package simplepublish_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/memory"
)

// recordingSink keeps every event name it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []string
	fail   error
}

func (r *recordingSink) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	return r.fail
}

func (r *recordingSink) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingSink) ContentCreated(ctx context.Context, c *simplepublish.Content) error {
	return r.record("content_created")
}
func (r *recordingSink) ContentUpdated(ctx context.Context, c *simplepublish.Content) error {
	return r.record("content_updated")
}
func (r *recordingSink) ContentPublished(ctx context.Context, c *simplepublish.Content) error {
	return r.record("content_published")
}
func (r *recordingSink) ContentUnpublished(ctx context.Context, c *simplepublish.Content) error {
	return r.record("content_unpublished")
}
func (r *recordingSink) ContentDeleted(ctx context.Context, id uuid.UUID, creatorID string) error {
	return r.record("content_deleted")
}
func (r *recordingSink) MediaStatusChanged(ctx context.Context, item *simplepublish.MediaItem, from simplepublish.MediaStatus) error {
	return r.record("media_" + string(from) + "_" + string(item.Status))
}
func (r *recordingSink) OrganizationDeleted(ctx context.Context, orgID uuid.UUID, detached []uuid.UUID) error {
	return r.record("organization_deleted")
}

// steppingClock advances one second on every reading so ordering by
// timestamp is deterministic.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	ctx    context.Context
	core   *simplepublish.Core
	events *recordingSink
}

func newFixture(t *testing.T, opts ...simplepublish.Option) *fixture {
	t.Helper()
	events := &recordingSink{}
	base := []simplepublish.Option{
		simplepublish.WithTxRunner(memory.New()),
		simplepublish.WithEventSink(events),
		simplepublish.WithClock(steppingClock()),
	}
	core, err := simplepublish.New(append(base, opts...)...)
	require.NoError(t, err)
	return &fixture{ctx: context.Background(), core: core, events: events}
}

func (f *fixture) org(t *testing.T, name, slug string) *simplepublish.Organization {
	t.Helper()
	org, err := f.core.Organizations.Create(f.ctx, "owner", simplepublish.CreateOrganizationRequest{Name: name, Slug: slug})
	require.NoError(t, err)
	return org
}

func (f *fixture) media(t *testing.T, creatorID string, kind simplepublish.MediaType) *simplepublish.MediaItem {
	t.Helper()
	item, err := f.core.Media.Create(f.ctx, creatorID, simplepublish.CreateMediaItemRequest{
		Title:     "Raw " + string(kind),
		MediaType: kind,
		MimeType:  string(kind) + "/mp4",
		FileName:  "raw.mp4",
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) readyMedia(t *testing.T, creatorID string, kind simplepublish.MediaType) *simplepublish.MediaItem {
	t.Helper()
	item := f.media(t, creatorID, kind)
	item, err := f.core.Media.MarkAsReady(f.ctx, item.ID, creatorID, simplepublish.ReadyMetadata{
		PlaylistKey:     item.StorageKey + "/index.m3u8",
		DurationSeconds: 60,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) written(t *testing.T, creatorID, slug string, orgID *uuid.UUID) *simplepublish.Content {
	t.Helper()
	c, err := f.core.Content.Create(f.ctx, creatorID, simplepublish.CreateContentRequest{
		Title:          "Post " + slug,
		Slug:           slug,
		ContentType:    simplepublish.ContentTypeWritten,
		ContentBody:    "body",
		OrganizationID: orgID,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) video(t *testing.T, creatorID, slug string, mediaID uuid.UUID, orgID *uuid.UUID) *simplepublish.Content {
	t.Helper()
	c, err := f.core.Content.Create(f.ctx, creatorID, simplepublish.CreateContentRequest{
		Title:          "Video " + slug,
		Slug:           slug,
		ContentType:    simplepublish.ContentTypeVideo,
		MediaItemID:    &mediaID,
		OrganizationID: orgID,
	})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }
