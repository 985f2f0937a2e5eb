package api

import (
	"net/http"
)

// handleListSounds returns the sounds visible to a scope: its own plus
// global sounds not shadowed by a local name.
func (s *Server) handleListSounds(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}

	sounds, err := s.catalogue.Available(r.Context(), scopeID)
	if err != nil {
		writeInternalError(w, "failed to list sounds")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sounds": sounds, "count": len(sounds)})
}

// handleSyncSounds registers audio files on disk that are missing from
// the scope's catalogue.
func (s *Server) handleSyncSounds(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := urlParam(r, "scopeID")
	if !ok {
		writeBadRequest(w, "invalid scope ID")
		return
	}

	added, err := s.catalogue.SyncFolder(r.Context(), scopeID)
	if err != nil {
		writeInternalError(w, "folder sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}
