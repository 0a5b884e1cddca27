package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

func newTestContext(t *testing.T) (*commandContext, *config.Runtime) {
	t.Helper()
	cfg, err := config.Load(config.WithEvents("noop"))
	require.NoError(t, err)
	rt, err := cfg.Build(context.Background(), nil)
	require.NoError(t, err)
	return &commandContext{cfg: cfg, rt: rt}, rt
}

func execute(t *testing.T, cc *commandContext, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCommand(cc)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestOrgCreateAndList(t *testing.T) {
	cc, _ := newTestContext(t)

	out, err := execute(t, cc, "org", "create", "--actor", "alice", "--name", "Acme", "--slug", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "created organization acme")

	out, err = execute(t, cc, "org", "list", "--json")
	require.NoError(t, err)
	var page simplepublish.Page[simplepublish.Organization]
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Acme", page.Items[0].Name)

	out, err = execute(t, cc, "org", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "1 of 1 organizations")
}

func TestOrgCreate_RequiresFlags(t *testing.T) {
	cc, _ := newTestContext(t)
	_, err := execute(t, cc, "org", "create", "--name", "Acme")
	assert.Error(t, err)
}

func TestMediaUploadReadyAndPublish(t *testing.T) {
	cc, rt := newTestContext(t)
	ctx := context.Background()

	item, err := rt.Core.Media.Create(ctx, "alice", simplepublish.CreateMediaItemRequest{
		Title: "Episode", MediaType: simplepublish.MediaTypeAudio, MimeType: "audio/mpeg",
	})
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "episode.mp3")
	require.NoError(t, os.WriteFile(file, []byte("audio"), 0o600))

	out, err := execute(t, cc, "media", "upload", item.ID.String(), file, "--creator", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded 5 bytes")

	out, err = execute(t, cc, "media", "status", item.ID.String(), "transcoding", "--creator", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "is transcoding")

	out, err = execute(t, cc, "media", "mark-ready", item.ID.String(),
		"--creator", "alice", "--playlist-key", item.StorageKey+"/index.m3u8", "--duration", "90")
	require.NoError(t, err)
	assert.Contains(t, out, "is ready")

	content, err := rt.Core.Content.Create(ctx, "alice", simplepublish.CreateContentRequest{
		Title: "Episode", Slug: "episode", ContentType: simplepublish.ContentTypeAudio, MediaItemID: &item.ID,
	})
	require.NoError(t, err)

	out, err = execute(t, cc, "content", "publish", content.ID.String(), "--creator", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "content episode is published (version 2)")

	out, err = execute(t, cc, "content", "list", "--creator", "alice", "--status", "published")
	require.NoError(t, err)
	assert.Contains(t, out, "episode")

	out, err = execute(t, cc, "media", "list", "--creator", "alice", "--json")
	require.NoError(t, err)
	var media simplepublish.Page[simplepublish.MediaItem]
	require.NoError(t, json.Unmarshal([]byte(out), &media))
	require.Len(t, media.Items, 1)
	assert.Equal(t, simplepublish.MediaStatusReady, media.Items[0].Status)
}

func TestMediaReconcile(t *testing.T) {
	cc, rt := newTestContext(t)
	ctx := context.Background()

	item, err := rt.Core.Media.Create(ctx, "alice", simplepublish.CreateMediaItemRequest{
		Title: "Orphan", MediaType: simplepublish.MediaTypeVideo, MimeType: "video/mp4",
	})
	require.NoError(t, err)
	writer, ok := rt.MediaStore.(objectWriter)
	require.True(t, ok)
	require.NoError(t, writer.Put(ctx, item.StorageKey, "video/mp4", bytes.NewReader([]byte("frames"))))

	out, err := execute(t, cc, "media", "reconcile", "--creator", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "found 1, confirmed 1, pending 0, failed 0")

	item, err = rt.Core.Media.Get(ctx, item.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, simplepublish.MediaStatusUploaded, item.Status)
}

func TestMediaUpload_UnknownItem(t *testing.T) {
	cc, _ := newTestContext(t)
	file := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := execute(t, cc, "media", "upload", "6f1c1c4e-3a55-4d5e-9a6c-1b2f3e4d5c6b", file, "--creator", "alice")
	assert.ErrorContains(t, err, "not found")
}

func TestMigrate(t *testing.T) {
	cc, _ := newTestContext(t)

	out, err := execute(t, cc, "migrate", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS content")

	_, err = execute(t, cc, "migrate")
	assert.EqualError(t, err, "migrate requires DATABASE_TYPE=postgres")
}
