package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/rotex-can-core/internal/engine"
)

// SetValueRequest is the body of PUT /api/v1/entities/{id}.
type SetValueRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) engineContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), engineTimeout)
}

// handleListEntities returns every entity value, optionally filtered by
// ?kind=sensor|text_sensor|binary_sensor|number|select.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.engineContext(r)
	defer cancel()

	updates, err := s.engine.Snapshot(ctx)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	kind := r.URL.Query().Get("kind")
	out := make([]engine.Update, 0, len(updates))
	for _, u := range updates {
		if kind != "" && string(u.Kind) != kind {
			continue
		}
		out = append(out, u)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": out,
		"count":    len(out),
	})
}

// handleGetEntity returns one entity by id or display name.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := s.engineContext(r)
	defer cancel()

	updates, err := s.engine.Snapshot(ctx)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	for _, u := range updates {
		if u.ID == id || u.Name == id {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeNotFound(w, "entity not found")
}

// handleSetEntity writes an operator value. The response only confirms the
// request was queued on the bus; the new value arrives with the next poll.
func (s *Server) handleSetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Value) == 0 {
		writeBadRequest(w, "value field is required")
		return
	}
	v, err := engine.DecodeValue(req.Value)
	if err != nil {
		writeBadRequest(w, "value must be a number, string or bool")
		return
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()

	if err := s.engine.SetValue(ctx, id, v); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"entity_id": id,
		"value":     v.Any(),
		"status":    "accepted",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
