package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// query collects parse failures so a request reports every bad parameter at once.
type query struct {
	r    *http.Request
	errs map[string]any
}

func newQuery(r *http.Request) *query {
	return &query{r: r}
}

func (q *query) fail(name, rule string) {
	if q.errs == nil {
		q.errs = map[string]any{}
	}
	q.errs[name] = rule
}

func (q *query) str(name string) string {
	return q.r.URL.Query().Get(name)
}

func (q *query) integer(name string) int {
	v := q.str(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(name, "integer")
		return 0
	}
	return n
}

func (q *query) boolean(name string) bool {
	v := q.str(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.fail(name, "boolean")
	}
	return b
}

func (q *query) id(name string) *uuid.UUID {
	v := q.str(name)
	if v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		q.fail(name, "uuid")
		return nil
	}
	return &id
}

// ok writes a 400 and returns false when any parameter failed to parse.
func (q *query) ok(w http.ResponseWriter) bool {
	if len(q.errs) == 0 {
		return true
	}
	badRequest(w, q.r, "invalid query parameters", q.errs)
	return false
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, r, "invalid id", map[string]any{"id": "uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		badRequest(w, r, "invalid request body", nil)
		return false
	}
	return true
}
