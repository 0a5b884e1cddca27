package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req simplepublish.CreateOrganizationRequest
	if !decode(w, r, &req) {
		return
	}
	org, err := s.core.Organizations.Create(r.Context(), actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, org)
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := simplepublish.ListOrganizationsRequest{
		Search:    q.str("search"),
		SortBy:    q.str("sort_by"),
		SortOrder: q.str("sort_order"),
		Limit:     q.integer("limit"),
		Offset:    q.integer("offset"),
	}
	if !q.ok(w) {
		return
	}
	page, err := s.core.Organizations.List(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (s *Server) organizationSlugAvailable(w http.ResponseWriter, r *http.Request) {
	ok, err := s.core.Organizations.IsSlugAvailable(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"available": ok})
}

func (s *Server) getOrganizationBySlug(w http.ResponseWriter, r *http.Request) {
	org, err := s.core.Organizations.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if org == nil {
		s.notFound(w, r, "organization")
		return
	}
	writeJSON(w, r, http.StatusOK, org)
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	org, err := s.core.Organizations.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if org == nil {
		s.notFound(w, r, "organization")
		return
	}
	writeJSON(w, r, http.StatusOK, org)
}

func (s *Server) updateOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req simplepublish.UpdateOrganizationRequest
	if !decode(w, r, &req) {
		return
	}
	org, err := s.core.Organizations.Update(r.Context(), actor(r), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, org)
}

func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.core.Organizations.Delete(r.Context(), actor(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
