package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xilytix/revdatasource/internal/dataset"
	"github.com/xilytix/revdatasource/internal/logging"
	"github.com/xilytix/revdatasource/internal/schema"
)

const (
	// maxBodySize bounds JSON request bodies (1MB).
	maxBodySize = 1 << 20

	// maxWindow bounds the rows returned by one records request.
	maxWindow = 1000
)

// FieldsRequest replaces the schema, either from a preset or an explicit
// descriptor list.
type FieldsRequest struct {
	Preset string              `json:"preset,omitempty"`
	Fields []schema.Descriptor `json:"fields,omitempty"`
}

// ValueRequest sets one field of a record from text.
type ValueRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// FindResponse reports where a value sits in the sorted view.
type FindResponse struct {
	Row   int  `json:"row"`
	Found bool `json:"found"`
}

// handleListFields returns the current columns.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"fields": s.data.FieldViews(),
	})
}

// handleListPresets returns the names of the built-in field lists.
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"presets": schema.PresetNames(),
	})
}

// handleSetFields replaces the schema and reloads the records.
func (s *Server) handleSetFields(w http.ResponseWriter, r *http.Request) {
	var req FieldsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := req.Fields
	if req.Preset != "" {
		if len(req.Fields) > 0 {
			badRequest(w, r, "give either preset or fields, not both")
			return
		}
		var ok bool
		if fields, ok = schema.Preset(req.Preset); !ok {
			badRequest(w, r, fmt.Sprintf("unknown preset %q", req.Preset))
			return
		}
	}

	if err := s.data.SetFields(r.Context(), fields); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("fields replaced",
		"preset", req.Preset,
		"fields", len(fields),
		"records", s.data.Len(),
	)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"fields":  s.data.FieldViews(),
		"records": s.data.Len(),
	})
}

// handleReload discards the records and loads them again.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.data.Reload(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"records": s.data.Len()})
}

// handleClearMarks drops the change decorations of every loaded record.
func (s *Server) handleClearMarks(w http.ResponseWriter, r *http.Request) {
	n := s.data.ClearChangeMarks()
	writeJSON(w, r, http.StatusOK, map[string]any{"cleared": n})
}

// handleWindow returns a window of the view. Passing sort (and optionally
// dir) replaces the sort columns first; an empty sort clears them.
func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	count, err := queryInt(r, "count", s.cfg.Dataset.PageSize)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	count = min(count, maxWindow)

	if q.Has("sort") {
		if err := s.data.SetSorts(dataset.ParseSortSpecs(q.Get("sort"), q.Get("dir"))); err != nil {
			respondError(w, r, err)
			return
		}
	}

	page, err := s.data.Window(offset, count)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// handleGetRecord returns one record.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rv, err := s.data.Record(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rv)
}

// handleUpdateValue sets one field of a record and returns the record.
func (s *Server) handleUpdateValue(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req ValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Field == "" {
		badRequest(w, r, "field is required")
		return
	}

	if err := s.data.UpdateValue(id, req.Field, req.Value); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug("value updated", "record_id", id, "field", req.Field)
	s.writeRecord(w, r, id)
}

// handleRefresh reloads a record from its source and returns it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	if err := s.data.Refresh(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	s.writeRecord(w, r, id)
}

// handleRemoveRecord removes a record from the view.
func (s *Server) handleRemoveRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	if err := s.data.RemoveRecord(id); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("record removed", "record_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleFind locates a value of the primary sort field.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := q.Get("field")
	if field == "" {
		badRequest(w, r, "field is required")
		return
	}

	row, found, err := s.data.Find(field, q.Get("value"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, FindResponse{Row: row, Found: found})
}

func (s *Server) writeRecord(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	rv, err := s.data.Record(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rv)
}

// recordID parses the recordID URL parameter, writing a 400 when invalid.
func recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "recordID"))
	if err != nil {
		badRequest(w, r, "invalid record ID")
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON decodes a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// queryInt parses a non-negative integer query parameter with a default value.
func queryInt(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return i, nil
}
