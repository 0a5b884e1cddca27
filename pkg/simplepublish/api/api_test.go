package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/api"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/memory"
	memorystorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
)

type testServer struct {
	handler http.Handler
	store   *memorystorage.Backend
}

func newTestServer(t *testing.T, opts ...api.Option) *testServer {
	t.Helper()
	store := memorystorage.New("http://media.test")
	core, err := simplepublish.New(
		simplepublish.WithTxRunner(memory.New()),
		simplepublish.WithMediaStore(store),
	)
	require.NoError(t, err)
	return &testServer{handler: api.New(core, opts...).Routes(), store: store}
}

func (s *testServer) do(t *testing.T, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(api.ActorHeader, actor)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuth_MissingActorHeader(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/content", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeBody[api.ErrorResponse](t, rec).Code)
}

func TestAuth_JWT(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	s := newTestServer(t, api.WithJWTAuth(ja))

	// The actor header is ignored once tokens are required.
	rec := s.do(t, http.MethodGet, "/media", "alice", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, token, err := ja.Encode(map[string]interface{}{"sub": "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media",
		strings.NewReader(`{"title":"Clip","media_type":"video","mime_type":"video/mp4"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decodeBody[simplepublish.MediaItem](t, rec).CreatorID)

	_, noSub, err := ja.Encode(map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
	req.Header.Set("Authorization", "Bearer "+noSub)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrganizations_CRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/organizations", "owner", map[string]any{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	org := decodeBody[simplepublish.Organization](t, rec)

	rec = s.do(t, http.MethodPost, "/organizations", "owner", map[string]any{"name": "Other", "slug": "ACME"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeBody[api.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/organizations/by-slug/acme", "owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, org.ID, decodeBody[simplepublish.Organization](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/organizations/slug-available?slug=acme", "owner", nil)
	assert.Equal(t, map[string]bool{"available": false}, decodeBody[map[string]bool](t, rec))

	rec = s.do(t, http.MethodPatch, "/organizations/"+org.ID.String(), "owner", map[string]any{"name": "Acme Corp"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Acme Corp", decodeBody[simplepublish.Organization](t, rec).Name)

	rec = s.do(t, http.MethodGet, "/organizations?search=corp", "owner", nil)
	page := decodeBody[simplepublish.Page[simplepublish.Organization]](t, rec)
	assert.EqualValues(t, 1, page.Total)

	rec = s.do(t, http.MethodDelete, "/organizations/"+org.ID.String(), "owner", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/organizations/"+org.ID.String(), "owner", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/content/not-a-uuid", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Code)
	assert.Equal(t, "uuid", resp.Details["id"])

	rec = s.do(t, http.MethodGet, "/content?limit=ten&personal_only=maybe", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, "integer", resp.Details["limit"])
	assert.Equal(t, "boolean", resp.Details["personal_only"])

	rec = s.do(t, http.MethodPost, "/content", "alice", map[string]any{"title": "x", "slug": "Bad Slug", "content_type": "written"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeBody[api.ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", strings.NewReader("{"))
	req.Header.Set(api.ActorHeader, "alice")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaUploadAndPublishFlow(t *testing.T) {
	s := newTestServer(t)
	const creator = "alice"

	rec := s.do(t, http.MethodPost, "/media", creator, map[string]any{
		"title": "Episode 1", "media_type": "video", "mime_type": "video/mp4", "file_name": "ep1.mp4",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decodeBody[simplepublish.MediaItem](t, rec)
	base := "/media/" + item.ID.String()

	rec = s.do(t, http.MethodPost, base+"/upload-url", creator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	upload := decodeBody[api.UploadURLResponse](t, rec)
	assert.Equal(t, item.StorageKey, upload.StorageKey)
	assert.True(t, strings.HasPrefix(upload.UploadURL, "http://media.test/"+item.StorageKey))

	// Confirming before the object exists fails.
	rec = s.do(t, http.MethodPost, base+"/confirm-upload", creator, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.NoError(t, s.store.Put(context.Background(), item.StorageKey, "video/mp4", strings.NewReader("frames")))
	rec = s.do(t, http.MethodPost, base+"/confirm-upload", creator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decodeBody[simplepublish.MediaItem](t, rec)
	assert.Equal(t, simplepublish.MediaStatusUploaded, confirmed.Status)
	assert.EqualValues(t, 6, confirmed.FileSizeBytes)

	rec = s.do(t, http.MethodPost, "/content", creator, map[string]any{
		"title": "Episode 1", "slug": "episode-1", "content_type": "video", "media_item_id": item.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	content := decodeBody[simplepublish.Content](t, rec)
	contentPath := "/content/" + content.ID.String()

	rec = s.do(t, http.MethodPost, contentPath+"/publish", creator, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "media_not_ready", decodeBody[api.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, base+"/playback-url", creator, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPut, base+"/status", creator, api.StatusRequest{Status: simplepublish.MediaStatusTranscoding})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/ready", creator, simplepublish.ReadyMetadata{
		PlaylistKey: item.StorageKey + "/hls/index.m3u8", DurationSeconds: 1200, Width: 1920, Height: 1080,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, base+"/playback-url", creator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://media.test/"+item.StorageKey+"/hls/index.m3u8",
		decodeBody[api.PlaybackURLResponse](t, rec).PlaybackURL)

	rec = s.do(t, http.MethodPost, contentPath+"/publish", creator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	published := decodeBody[simplepublish.Content](t, rec)
	assert.Equal(t, simplepublish.ContentStatusPublished, published.Status)
	assert.NotNil(t, published.PublishedAt)

	rec = s.do(t, http.MethodGet, contentPath, creator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decodeBody[simplepublish.ContentDetails](t, rec)
	require.NotNil(t, details.MediaItem)
	assert.Equal(t, simplepublish.MediaStatusReady, details.MediaItem.Status)

	// Another creator cannot see it.
	rec = s.do(t, http.MethodGet, contentPath, "mallory", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContent_OptimisticUpdateWithIfMatch(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/content", "alice", map[string]any{
		"title": "Notes", "slug": "notes", "content_type": "written", "content_body": "hello",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decodeBody[simplepublish.Content](t, rec)
	path := "/api/v1/content/" + c.ID.String()

	rec = s.do(t, http.MethodGet, "/content/"+c.ID.String(), "alice", nil)
	etag := rec.Header().Get("ETag")
	require.Equal(t, `"1"`, etag)
	details := decodeBody[simplepublish.ContentDetails](t, rec)
	require.NotNil(t, details.Creator)
	assert.Equal(t, "alice", details.Creator.ID)

	patch := func(ifMatch, title string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"title":"`+title+`"}`))
		req.Header.Set(api.ActorHeader, "alice")
		req.Header.Set("If-Match", ifMatch)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec = patch(etag, "Notes v2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))

	rec = patch(etag, "Notes v3")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "version_conflict", decodeBody[api.ErrorResponse](t, rec).Code)

	rec = patch("abc", "Notes v3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContent_OrganizationScopeAndSlugs(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/organizations", "alice", map[string]any{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	org := decodeBody[simplepublish.Organization](t, rec)

	for _, body := range []map[string]any{
		{"title": "Hello", "slug": "hello", "content_type": "written"},
		{"title": "Hello", "slug": "hello", "content_type": "written", "organization_id": org.ID},
	} {
		rec = s.do(t, http.MethodPost, "/content", "alice", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/content", "alice", map[string]any{"title": "Again", "slug": "hello", "content_type": "written"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/content/by-slug/hello?organization_id="+org.ID.String(), "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decodeBody[simplepublish.ContentDetails](t, rec)
	require.NotNil(t, details.Organization)
	assert.Equal(t, "acme", details.Organization.Slug)

	rec = s.do(t, http.MethodGet, "/content?personal_only=true", "alice", nil)
	page := decodeBody[simplepublish.Page[simplepublish.ContentDetails]](t, rec)
	require.Len(t, page.Items, 1)
	assert.Nil(t, page.Items[0].OrganizationID)

	rec = s.do(t, http.MethodGet, "/content/slug-available?slug=hello", "alice", nil)
	assert.Equal(t, map[string]bool{"available": false}, decodeBody[map[string]bool](t, rec))
	rec = s.do(t, http.MethodGet, "/content/slug-available?slug=hello", "bob", nil)
	assert.Equal(t, map[string]bool{"available": true}, decodeBody[map[string]bool](t, rec))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, api.WithMetrics(true))
	s.do(t, http.MethodGet, "/content", "alice", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "simplepublish_http_request_duration_seconds")
}

func TestMount(t *testing.T) {
	core, err := simplepublish.New(simplepublish.WithTxRunner(memory.New()))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/v2", api.New(core).Mount)

	req := httptest.NewRequest(http.MethodGet, "/v2/media", nil)
	req.Header.Set(api.ActorHeader, "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody[simplepublish.Page[simplepublish.MediaItem]](t, rec).Total)
}

// brokenTx fails every transaction with a storage error.
type brokenTx struct{}

func (brokenTx) WithTx(ctx context.Context, fn func(simplepublish.Store) error) error {
	return errors.New("connection reset by peer")
}

func TestInternalErrorLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	core, err := simplepublish.New(simplepublish.WithTxRunner(brokenTx{}), simplepublish.WithLogger(logger))
	require.NoError(t, err)
	s := &testServer{handler: api.New(core, api.WithLogger(logger)).Routes()}

	rec := s.do(t, http.MethodGet, "/organizations/"+uuid.NewString(), "alice", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	logs := buf.String()
	assert.Equal(t, 1, strings.Count(logs, "level=ERROR"), logs)
	assert.Contains(t, logs, "op=organization.get")
}
