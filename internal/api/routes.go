package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lift-control/lcc/internal/auth"
	"github.com/lift-control/lcc/internal/request"
)

const (
	apiV1       = "/api/v1"
	unitsPrefix = apiV1 + "/units/"
)

// RegisterRoutes registers all v1 endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(auth.HealthPath, s.handleHealth)

	mux.HandleFunc(apiV1+"/units", s.protect(auth.ScopeRead, s.handleUnits))
	mux.HandleFunc(unitsPrefix, s.handleUnitEndpoints)

	mux.HandleFunc(apiV1+"/requests", s.protect(auth.ScopeControl, s.handleRequests))
	mux.HandleFunc(apiV1+"/requests/stats", s.protect(auth.ScopeRead, s.handleStats))

	mux.HandleFunc(apiV1+"/telemetry", s.protect(auth.ScopeTelemetry, s.handleTelemetry))
}

// protect wraps h with authentication and a scope check.
func (s *Server) protect(scope string, h http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(scope)(h))
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET method is allowed", nil)
		return
	}

	subsystems := map[string]bool{
		"telemetry":    s.telemetryHub != nil,
		"orchestrator": s.orchestrator != nil,
	}

	operational := 0
	if s.orchestrator != nil {
		for _, status := range s.orchestrator.Units().Items {
			if status.Operational() {
				operational++
			}
		}
	}

	overallStatus := "ok"
	if !subsystems["telemetry"] || !subsystems["orchestrator"] || operational == 0 {
		overallStatus = "degraded"
	}

	health := map[string]interface{}{
		"status":           overallStatus,
		"uptimeSec":        time.Since(s.startTime).Seconds(),
		"version":          Version,
		"subsystems":       subsystems,
		"operationalUnits": operational,
	}
	if s.telemetryHub != nil {
		health["droppedEvents"] = s.telemetryHub.Dropped()
	}

	if overallStatus != "ok" {
		WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED", "One or more subsystems are unavailable", health)
		return
	}
	WriteSuccess(w, health)
}

// handleUnits handles GET /units
func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET method is allowed", nil)
		return
	}
	if s.orchestrator == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service not available", nil)
		return
	}
	WriteSuccess(w, s.orchestrator.Units())
}

// handleUnitEndpoints routes /units/{id} and /units/{id}/{action} with the
// scope each needs.
func (s *Server) handleUnitEndpoints(w http.ResponseWriter, r *http.Request) {
	_, action, err := splitUnitPath(r.URL.Path)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	scope := auth.ScopeControl
	if action == "" {
		scope = auth.ScopeRead
	}
	s.protect(scope, s.handleUnit)(w, r)
}

// handleUnit serves one unit path after authorization.
func (s *Server) handleUnit(w http.ResponseWriter, r *http.Request) {
	unitID, action, err := splitUnitPath(r.URL.Path)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if s.orchestrator == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service not available", nil)
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET method is allowed", nil)
			return
		}
		status, err := s.orchestrator.Unit(r.Context(), unitID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		WriteSuccess(w, status)
		return
	}

	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST method is allowed", nil)
		return
	}

	ctx := r.Context()
	switch action {
	case "move":
		var body struct {
			Floor *int `json:"floor"`
		}
		if err := decodeStrict(r.Body, &body); err != nil {
			writeMappedError(w, err)
			return
		}
		if body.Floor == nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "floor is required", nil)
			return
		}
		s.reply(w, s.orchestrator.Move(ctx, unitID, *body.Floor), map[string]interface{}{"unitId": unitID, "floor": *body.Floor})

	case "load", "unload":
		var body struct {
			Count *int `json:"count"`
		}
		if err := decodeStrict(r.Body, &body); err != nil {
			writeMappedError(w, err)
			return
		}
		if body.Count == nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "count is required", nil)
			return
		}
		op := s.orchestrator.Load
		if action == "unload" {
			op = s.orchestrator.Unload
		}
		s.reply(w, op(ctx, unitID, *body.Count), map[string]interface{}{"unitId": unitID, "count": *body.Count})

	case "open":
		s.reply(w, s.orchestrator.Open(ctx, unitID), map[string]interface{}{"unitId": unitID})

	case "close":
		s.reply(w, s.orchestrator.Close(ctx, unitID), map[string]interface{}{"unitId": unitID})

	case "faults":
		var body struct {
			Kind string `json:"kind"`
		}
		if err := decodeStrict(r.Body, &body); err != nil {
			writeMappedError(w, err)
			return
		}
		fault := request.ParseFault(body.Kind)
		s.reply(w, s.orchestrator.InjectFault(ctx, unitID, fault), map[string]interface{}{"unitId": unitID, "kind": fault.String()})

	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Unknown unit action %q", action), nil)
	}
}

// reply writes an accepted command or its mapped error.
func (s *Server) reply(w http.ResponseWriter, err error, data map[string]interface{}) {
	if err != nil {
		writeMappedError(w, err)
		return
	}
	WriteAccepted(w, data)
}

// handleRequests handles POST /requests. The record is dispatched at once
// unless wait is set, in which case it is served when its time comes.
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST method is allowed", nil)
		return
	}

	var body struct {
		Record string `json:"record"`
		Wait   bool   `json:"wait"`
	}
	if err := decodeStrict(r.Body, &body); err != nil {
		writeMappedError(w, err)
		return
	}

	req, err := request.Decode([]byte(body.Record))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if s.orchestrator == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service not available", nil)
		return
	}

	if body.Wait {
		s.orchestrator.Enqueue(req)
		WriteAccepted(w, map[string]interface{}{"record": string(req.Encode()), "queued": true})
		return
	}

	unitID, err := s.orchestrator.Dispatch(r.Context(), req)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	WriteAccepted(w, map[string]interface{}{"record": string(req.Encode()), "unitId": unitID})
}

// handleStats handles GET /requests/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET method is allowed", nil)
		return
	}
	if s.orchestrator == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service not available", nil)
		return
	}
	WriteSuccess(w, s.orchestrator.Stats())
}

// handleTelemetry handles GET /telemetry (SSE)
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET method is allowed", nil)
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Telemetry service not available", nil)
		return
	}

	if err := s.telemetryHub.Subscribe(r.Context(), w, r); err != nil {
		s.log.Warn().Err(err).Msg("Telemetry subscription failed")
	}
}

// splitUnitPath parses /api/v1/units/{id}[/{action}].
func splitUnitPath(path string) (int, string, error) {
	remaining := strings.Trim(strings.TrimPrefix(path, unitsPrefix), "/")
	parts := strings.Split(remaining, "/")
	if parts[0] == "" || len(parts) > 2 {
		return 0, "", fmt.Errorf("%w: unit path %q", ErrNotFoundError, path)
	}

	unitID, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("%w: unit id %q", ErrBadRequest, parts[0])
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	return unitID, action, nil
}

// decodeStrict decodes a single JSON object, rejecting unknown fields and
// trailing data. An empty body leaves v untouched.
func decodeStrict(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: malformed JSON or unknown fields: %v", ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON object", ErrBadRequest)
	}
	return nil
}
