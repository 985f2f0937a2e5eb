package api

import (
	"errors"
	"net/http"

	"github.com/wavecue/wavecue-core/internal/playback"
)

// handleQueueInfo returns the scope's playback queue snapshot.
func (s *Server) handleQueueInfo(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}

	writeJSON(w, http.StatusOK, s.playback.QueueInfo(scopeID))
}

// handleSkip skips the currently playing sound in the scope.
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}

	if err := s.playback.Skip(scopeID); err != nil {
		if errors.Is(err, playback.ErrNothingPlaying) {
			writeNotFound(w, "nothing playing")
			return
		}
		writeInternalError(w, "failed to skip")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skipped": true})
}

// handleStop stops playback and clears the scope's queue.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}

	if err := s.playback.Stop(scopeID); err != nil {
		if errors.Is(err, playback.ErrNotConnected) {
			writeNotFound(w, "no active player for scope")
			return
		}
		writeInternalError(w, "failed to stop")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stopped": true})
}
