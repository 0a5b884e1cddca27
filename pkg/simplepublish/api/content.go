package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

func (s *Server) createContent(w http.ResponseWriter, r *http.Request) {
	var req simplepublish.CreateContentRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.core.Content.Create(r.Context(), actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := simplepublish.ListContentRequest{
		Status:         simplepublish.ContentStatus(q.str("status")),
		ContentType:    simplepublish.ContentType(q.str("content_type")),
		Visibility:     simplepublish.Visibility(q.str("visibility")),
		Category:       q.str("category"),
		OrganizationID: q.id("organization_id"),
		PersonalOnly:   q.boolean("personal_only"),
		Search:         q.str("search"),
		SortBy:         q.str("sort_by"),
		SortOrder:      q.str("sort_order"),
		Limit:          q.integer("limit"),
		Offset:         q.integer("offset"),
	}
	if !q.ok(w) {
		return
	}
	page, err := s.core.Content.List(r.Context(), actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (s *Server) contentSlugAvailable(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	orgID := q.id("organization_id")
	if !q.ok(w) {
		return
	}
	ok, err := s.core.Content.IsSlugAvailable(r.Context(), actor(r), orgID, q.str("slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"available": ok})
}

func (s *Server) getContentBySlug(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	orgID := q.id("organization_id")
	if !q.ok(w) {
		return
	}
	c, err := s.core.Content.GetBySlug(r.Context(), actor(r), orgID, chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if c == nil {
		s.notFound(w, r, "content")
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := s.core.Content.Get(r.Context(), id, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if c == nil {
		s.notFound(w, r, "content")
		return
	}
	w.Header().Set("ETag", etag(c.Version))
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) updateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req simplepublish.UpdateContentRequest
	if !decode(w, r, &req) {
		return
	}
	// If-Match applies only when the body does not name a version itself.
	if req.ExpectedVersion == nil {
		if v := r.Header.Get("If-Match"); v != "" {
			n, err := strconv.ParseInt(strings.Trim(v, `"`), 10, 64)
			if err != nil {
				badRequest(w, r, "invalid If-Match header", map[string]any{"If-Match": "version"})
				return
			}
			req.ExpectedVersion = &n
		}
	}
	c, err := s.core.Content.Update(r.Context(), id, actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(c.Version))
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) publishContent(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "publish", s.core.Content.Publish)
}

func (s *Server) unpublishContent(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "unpublish", s.core.Content.Unpublish)
}

type transitionFunc func(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.Content, error)

func (s *Server) transition(w http.ResponseWriter, r *http.Request, name string, fn transitionFunc) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := fn(r.Context(), id, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	transitionsTotal.WithLabelValues(name).Inc()
	w.Header().Set("ETag", etag(c.Version))
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.core.Content.Delete(r.Context(), id, actor(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	transitionsTotal.WithLabelValues("delete").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}
