package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voxhome/iot-core/internal/device"
)

// ControlRequest is the body of POST /api/v1/control.
type ControlRequest struct {
	Commands []device.Command `json:"commands"`
}

// handleListDevices returns the full state of every registered device,
// grouped by device type and location.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Snapshot(r.Context())

	count := 0
	for _, locations := range snapshot {
		count += len(locations)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": snapshot,
		"count":   count,
	})
}

// handleGetDevice returns the state of a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	t, location, ok := deviceParams(r)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	state, err := s.store.Get(r.Context(), t, location)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device":   t,
		"location": location,
		"state":    state,
	})
}

// handleDeviceHistory returns recent state changes for a device, newest first.
//
// Query parameters:
//   - limit: maximum entries to return (default 50, max 200)
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "state history is not enabled")
		return
	}

	t, location, ok := deviceParams(r)
	if !ok || !s.store.Exists(t, location) {
		writeNotFound(w, "device not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.GetHistory(r.Context(), t, location, limit)
	if err != nil {
		s.logger.Error("state history query failed", "device", t, "location", location, "error", err)
		writeInternalError(w, "failed to query state history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device":   t,
		"location": location,
		"history":  entries,
		"count":    len(entries),
	})
}

// handleControl executes a batch of device commands and returns
// per-command results in request order.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Commands) == 0 {
		writeBadRequest(w, "no commands provided")
		return
	}

	results := s.executor.ExecuteBatch(r.Context(), req.Commands)

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// deviceParams extracts and validates the {type}/{location} route params.
// Locations may arrive percent-encoded ("living%20room").
func deviceParams(r *http.Request) (device.Type, string, bool) {
	t, err := device.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		return "", "", false
	}

	location := chi.URLParam(r, "location")
	if unescaped, err := url.PathUnescape(location); err == nil {
		location = unescaped
	}
	if location == "" {
		return "", "", false
	}

	return t, location, true
}
