package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sangit/relaygate/internal/relay"
)

// configRequest is the body of POST /api/v1/config.
type configRequest struct {
	Device string `json:"device"`
	Relay  string `json:"relay"`
	Name   string `json:"name"`
	GPIO   int    `json:"gpio"`
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
}

// commandRequest is the body of POST /api/v1/command.
type commandRequest struct {
	Device string `json:"device"`
	Cmd    string `json:"cmd"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	devices := 0
	if s.registry != nil {
		devices = s.registry.Count()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"devices":    devices,
		"dashboards": s.hub.ClientCount(),
	})
}

// handleGetConfig returns the full device configuration snapshot.
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// handlePostConfig mutates one relay slot and returns the full updated
// snapshot. An "action":"delete" removes the slot; anything else is an
// upsert. Validation failures return 400 with the specific reason.
func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Device == "" {
		writeBadRequest(w, "device is required")
		return
	}
	if req.Relay == "" {
		writeBadRequest(w, "relay is required")
		return
	}

	if req.Action == "delete" {
		snapshot := s.store.DeleteSlot(r.Context(), req.Device, req.Relay)
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	snapshot, err := s.store.UpsertSlot(r.Context(), req.Device, req.Relay, req.Name, req.GPIO, relay.Category(req.Type))
	if err != nil {
		if isValidationError(err) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("config update failed", "device", req.Device, "slot", req.Relay, "error", err)
		writeInternalError(w, "config update failed")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleHistory returns recent relay state events, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	events, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("querying relay events failed", "error", err)
		writeInternalError(w, "querying history failed")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleCommand routes an operator relay command to the device.
//
// Fire and forget: any well-formed request gets 204. Invalid tokens and
// offline devices are silently dropped, matching the wire protocol.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.commands.IssueCommand(req.Device, req.Cmd); err != nil {
		s.logger.Debug("command dropped", "device", req.Device, "command", req.Cmd, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// isValidationError reports whether err is one of the relay validation
// failures that map to a 400 response.
func isValidationError(err error) bool {
	return errors.Is(err, relay.ErrInvalidSlotKey) ||
		errors.Is(err, relay.ErrInvalidName) ||
		errors.Is(err, relay.ErrInvalidGPIO) ||
		errors.Is(err, relay.ErrInvalidCategory) ||
		errors.Is(err, relay.ErrGPIOConflict)
}

// handleNotFound returns a structured 404 for unknown API paths.
func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
}
