package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := simplepublish.HTTPStatus(err)
	resp := ErrorResponse{
		Code:    simplepublish.Code(err),
		Details: simplepublish.DetailsOf(err),
	}
	var e *simplepublish.Error
	typed := errors.As(err, &e)
	if typed && e.Message != "" && status != http.StatusInternalServerError {
		resp.Message = e.Message
	} else {
		resp.Message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		resp.Details = nil
		// Typed internal errors were logged by the core when wrapped.
		if !typed {
			s.logger.ErrorContext(r.Context(), "request failed",
				"method", r.Method, "path", r.URL.Path, "error", err)
		}
	}
	errorsTotal.WithLabelValues(resp.Code).Inc()
	writeJSON(w, r, status, resp)
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	errorsTotal.WithLabelValues(resp.Code).Inc()
	writeJSON(w, r, status, resp)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, what string) {
	writeErrorResponse(w, r, http.StatusNotFound, ErrorResponse{
		Code:    "not_found",
		Message: what + " not found",
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string, details map[string]any) {
	writeErrorResponse(w, r, http.StatusBadRequest, ErrorResponse{
		Code:    "validation_error",
		Message: message,
		Details: details,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
