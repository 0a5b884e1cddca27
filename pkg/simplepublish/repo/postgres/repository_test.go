//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/postgres"
)

// newRepository connects to TEST_DATABASE_URL and migrates a throwaway schema.
func newRepository(t *testing.T) *postgres.Repository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := "sp_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")

	admin, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	return postgres.NewWithPool(pool)
}

func newCore(t *testing.T) *simplepublish.Core {
	t.Helper()
	core, err := simplepublish.New(simplepublish.WithTxRunner(newRepository(t)))
	require.NoError(t, err)
	return core
}

func TestPostgres_TxRollback(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	org := &simplepublish.Organization{ID: uuid.New(), Name: "Acme", Slug: "acme", CreatedBy: "alice", CreatedAt: now, UpdatedAt: now}

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx simplepublish.Store) error {
		require.NoError(t, tx.Organizations().CreateOrganization(ctx, org))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = repo.WithTx(ctx, func(tx simplepublish.Store) error {
		_, err := tx.Organizations().GetOrganization(ctx, org.ID)
		return err
	})
	assert.ErrorIs(t, err, simplepublish.ErrRecordNotFound)
}

func TestPostgres_SlugIndexes(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	create := func(c *simplepublish.Content) error {
		return repo.WithTx(ctx, func(tx simplepublish.Store) error {
			return tx.Contents().CreateContent(ctx, c)
		})
	}
	content := func(creator, slug string) *simplepublish.Content {
		return &simplepublish.Content{
			ID: uuid.New(), CreatorID: creator, Title: slug, Slug: slug,
			ContentType: simplepublish.ContentTypeWritten, Visibility: simplepublish.VisibilityPublic,
			Status: simplepublish.ContentStatusDraft, Version: 1, CreatedAt: now, UpdatedAt: now,
		}
	}

	require.NoError(t, create(content("alice", "intro")))
	require.NoError(t, create(content("bob", "intro")))
	assert.ErrorIs(t, create(content("alice", "intro")), simplepublish.ErrDuplicateKey)
}

func TestPostgres_ContentLifecycle(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()

	org, err := core.Organizations.Create(ctx, "owner", simplepublish.CreateOrganizationRequest{Name: "Acme", Slug: "Acme"})
	require.NoError(t, err)

	item, err := core.Media.Create(ctx, "alice", simplepublish.CreateMediaItemRequest{
		Title: "Raw", MediaType: simplepublish.MediaTypeVideo, MimeType: "video/mp4", FileName: "raw.mp4",
	})
	require.NoError(t, err)

	c, err := core.Content.Create(ctx, "alice", simplepublish.CreateContentRequest{
		Title: "Launch", Slug: "launch", ContentType: simplepublish.ContentTypeVideo,
		MediaItemID: &item.ID, OrganizationID: &org.ID, Tags: []string{"rockets"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Version)

	_, err = core.Content.Publish(ctx, c.ID, "alice")
	assert.ErrorIs(t, err, simplepublish.ErrMediaNotReady)

	_, err = core.Media.MarkAsReady(ctx, item.ID, "alice", simplepublish.ReadyMetadata{PlaylistKey: "p.m3u8", DurationSeconds: 30})
	require.NoError(t, err)

	published, err := core.Content.Publish(ctx, c.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, simplepublish.ContentStatusPublished, published.Status)
	assert.Equal(t, []string{"rockets"}, published.Tags)

	page, err := core.Content.List(ctx, "alice", simplepublish.ListContentRequest{SortBy: "published_at"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, core.Organizations.Delete(ctx, "owner", org.ID))

	got, err := core.Content.Get(ctx, c.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.OrganizationID)
	assert.Equal(t, simplepublish.ContentStatusDraft, got.Status)
}

func TestPostgres_ListSearchEscapesWildcards(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()
	for i, name := range []string{"100% Films", "Plain Films"} {
		_, err := core.Organizations.Create(ctx, "owner", simplepublish.CreateOrganizationRequest{Name: name, Slug: fmt.Sprintf("org-%d", i)})
		require.NoError(t, err)
	}

	page, err := core.Organizations.List(ctx, simplepublish.ListOrganizationsRequest{Search: "100%"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "100% Films", page.Items[0].Name)
}
