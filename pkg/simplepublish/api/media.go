package api

import (
	"net/http"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// StatusRequest is the body of PUT /media/{id}/status.
type StatusRequest struct {
	Status simplepublish.MediaStatus `json:"status"`
}

// UploadURLResponse carries a presigned upload target.
type UploadURLResponse struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

// PlaybackURLResponse carries a presigned playback URL.
type PlaybackURLResponse struct {
	PlaybackURL string `json:"playback_url"`
}

func (s *Server) createMedia(w http.ResponseWriter, r *http.Request) {
	var req simplepublish.CreateMediaItemRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := s.core.Media.Create(r.Context(), actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, item)
}

func (s *Server) listMedia(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := simplepublish.ListMediaItemsRequest{
		Status:    simplepublish.MediaStatus(q.str("status")),
		MediaType: simplepublish.MediaType(q.str("media_type")),
		Search:    q.str("search"),
		SortBy:    q.str("sort_by"),
		SortOrder: q.str("sort_order"),
		Limit:     q.integer("limit"),
		Offset:    q.integer("offset"),
	}
	if !q.ok(w) {
		return
	}
	page, err := s.core.Media.List(r.Context(), actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := s.core.Media.Get(r.Context(), id, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if item == nil {
		s.notFound(w, r, "media item")
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) updateMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req simplepublish.UpdateMediaItemRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := s.core.Media.Update(r.Context(), id, actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) deleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.core.Media.Delete(r.Context(), id, actor(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateMediaStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := s.core.Media.UpdateStatus(r.Context(), id, actor(r), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) markMediaReady(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var meta simplepublish.ReadyMetadata
	if !decode(w, r, &meta) {
		return
	}
	item, err := s.core.Media.MarkAsReady(r.Context(), id, actor(r), meta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) mediaUploadURL(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	url, err := s.core.Media.UploadURL(ctx, id, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.core.Media.Get(ctx, id, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := UploadURLResponse{UploadURL: url}
	if item != nil {
		resp.StorageKey = item.StorageKey
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) confirmMediaUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := s.core.Media.ConfirmUpload(r.Context(), id, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) mediaPlaybackURL(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	url, err := s.core.Media.PlaybackURL(r.Context(), id, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, PlaybackURLResponse{PlaybackURL: url})
}
