package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wavecue/wavecue-core/internal/routine"
)

// maxURLParamLen limits URL parameter length to prevent abuse via oversized params.
const maxURLParamLen = 100

// urlParam extracts and length-checks a chi URL parameter.
func urlParam(r *http.Request, key string) (string, bool) {
	v := chi.URLParam(r, key)
	if v == "" || len(v) > maxURLParamLen {
		return "", false
	}
	return v, true
}

// handleListRoutines returns the scope's loaded routines.
func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}

	routines := s.routines.RoutinesForScope(scopeID)
	writeJSON(w, http.StatusOK, map[string]any{"routines": routines, "count": len(routines)})
}

// createRoutineRequest is the body for routine creation. Either a
// textual definition or a structured trigger/conditions/actions set is
// accepted; the definition wins when both are present.
//
// Structured bodies can supply conditions two ways: a ready-made tree
// in "conditions", or a flat "condition_pool" combined by an ordinal
// "expression" such as "C1 AND (C2 OR C3)". The expression form exists
// for clients that build conditions as a list; an explicit tree wins
// when both are present.
type createRoutineRequest struct {
	Name          string                   `json:"name"`
	Definition    string                   `json:"definition,omitempty"`
	Trigger       routine.Trigger          `json:"trigger,omitempty"`
	Conditions    *routine.ConditionNode   `json:"conditions,omitempty"`
	ConditionPool []*routine.ConditionNode `json:"condition_pool,omitempty"`
	Expression    string                   `json:"expression,omitempty"`
	Actions       []routine.Action         `json:"actions,omitempty"`
	Enabled       *bool                    `json:"enabled,omitempty"`
}

// handleCreateRoutine creates a routine from a textual definition or a
// structured body.
func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}

	var req createRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Definition != "" {
		created, err := s.routines.CreateFromDSL(r.Context(), scopeID, req.Name, req.Definition)
		if err != nil {
			writeRoutineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
		return
	}

	conditions := req.Conditions
	if conditions == nil && req.Expression != "" {
		parsed, err := routine.ParseExpression(req.Expression, req.ConditionPool)
		if err != nil {
			writeRoutineError(w, err)
			return
		}
		conditions = parsed
	}

	rt := &routine.Routine{
		ScopeID:    scopeID,
		Name:       req.Name,
		Enabled:    true,
		Trigger:    req.Trigger,
		Conditions: conditions,
		Actions:    req.Actions,
	}
	if req.Enabled != nil {
		rt.Enabled = *req.Enabled
	}

	if err := s.routines.Create(r.Context(), rt); err != nil {
		writeRoutineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt)
}

// handleGetRoutine returns a single routine by ID.
func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}
	id, ok := urlParam(r, "id")
	if !ok {
		writeBadRequest(w, "invalid routine ID")
		return
	}

	rt, err := s.routines.Get(r.Context(), scopeID, id)
	if err != nil {
		writeRoutineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

// handleDeleteRoutine removes a routine.
func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}
	id, ok := urlParam(r, "id")
	if !ok {
		writeBadRequest(w, "invalid routine ID")
		return
	}

	if err := s.routines.Delete(r.Context(), scopeID, id); err != nil {
		writeRoutineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleToggleRoutine flips a routine's enabled flag.
func (s *Server) handleToggleRoutine(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}
	id, ok := urlParam(r, "id")
	if !ok {
		writeBadRequest(w, "invalid routine ID")
		return
	}

	enabled, err := s.routines.Toggle(r.Context(), scopeID, id)
	if err != nil {
		writeRoutineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
}

// handleIgnoreChannel suppresses event routines for a channel.
func (s *Server) handleIgnoreChannel(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}
	channelID, ok := urlParam(r, "channelID")
	if !ok {
		writeBadRequest(w, "invalid channel ID")
		return
	}

	if err := s.routines.IgnoreChannel(r.Context(), scopeID, channelID); err != nil {
		writeInternalError(w, "failed to ignore channel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel_id": channelID, "ignored": true})
}

// handleUnignoreChannel re-enables event routines for a channel.
func (s *Server) handleUnignoreChannel(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}
	channelID, ok := urlParam(r, "channelID")
	if !ok {
		writeBadRequest(w, "invalid channel ID")
		return
	}

	if err := s.routines.UnignoreChannel(r.Context(), scopeID, channelID); err != nil {
		writeInternalError(w, "failed to unignore channel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel_id": channelID, "ignored": false})
}

// writeRoutineError maps routine package errors onto HTTP responses.
func writeRoutineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routine.ErrRoutineNotFound):
		writeNotFound(w, "routine not found")
	case errors.Is(err, routine.ErrRoutineExists):
		writeConflict(w, err.Error())
	case errors.Is(err, routine.ErrInvalidRoutine),
		errors.Is(err, routine.ErrInvalidName),
		errors.Is(err, routine.ErrInvalidTrigger),
		errors.Is(err, routine.ErrInvalidCondition),
		errors.Is(err, routine.ErrInvalidAction),
		errors.Is(err, routine.ErrNoActions),
		errors.Is(err, routine.ErrInvalidExpression),
		errors.Is(err, routine.ErrConditionOutOfRange),
		errors.Is(err, routine.ErrInvalidDSL):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, "routine operation failed")
	}
}
