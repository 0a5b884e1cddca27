package cdn_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/storage/cdn"
	"github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
)

func TestNew_Validation(t *testing.T) {
	_, err := cdn.New(nil, "https://cdn.example.com")
	assert.Error(t, err)

	for _, base := range []string{"", "cdn.example.com", "/media"} {
		_, err := cdn.New(memory.New(""), base)
		assert.Error(t, err, base)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	origin := memory.New("http://origin.test")
	store, err := cdn.New(origin, "https://cdn.example.com/media/")
	require.NoError(t, err)

	url, err := store.DownloadURL(ctx, "media/ab/cd/index.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/media/ab/cd/index.m3u8", url)

	url, err = store.DownloadURL(ctx, "media/x/my clip.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/media/x/my%20clip.m3u8", url)

	_, err = store.DownloadURL(ctx, "")
	assert.Error(t, err)

	upload, err := store.UploadURL(ctx, "media/ab", "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload, "http://origin.test/media/ab"))

	_, err = store.Stat(ctx, "media/ab")
	assert.ErrorIs(t, err, simplepublish.ErrObjectMissing)

	require.NoError(t, origin.Put(ctx, "media/ab", "video/mp4", strings.NewReader("abc")))
	meta, err := store.Stat(ctx, "media/ab")
	require.NoError(t, err)
	assert.EqualValues(t, 3, meta.Size)

	assert.Same(t, origin, store.Origin())
}
