package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// CustomRequest is the body of POST /api/v1/commands/custom.
type CustomRequest struct {
	// Command is a hex byte string such as "31 00 FA 01 D6 00 00".
	Command string `json:"command"`
}

// handleCustom sends a freeform request frame.
func (s *Server) handleCustom(w http.ResponseWriter, r *http.Request) {
	var req CustomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeBadRequest(w, "command field is required")
		return
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()

	if err := s.engine.SendCustom(ctx, req.Command); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"command": req.Command,
		"status":  "sent",
	})
}

// handleDHWRun starts a one-off hot water boost.
func (s *Server) handleDHWRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.engineContext(r)
	defer cancel()

	if err := s.engine.RunDHW(ctx); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started"})
}

// handleDump logs every entity and returns the same listing.
func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.engineContext(r)
	defer cancel()

	updates, err := s.engine.Dump(ctx)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": updates,
		"count":    len(updates),
	})
}
