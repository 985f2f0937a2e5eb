package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// VoiceEventSink receives gateway voice-state updates.
// *gateway.Dispatcher satisfies it.
type VoiceEventSink interface {
	HandleVoiceUpdate(ctx context.Context, update platform.VoiceStateUpdate)
}

// handleVoiceEvent ingests one voice-state update from the gateway
// sidecar. Routine dispatch runs asynchronously, so the update is
// accepted as soon as it decodes.
func (s *Server) handleVoiceEvent(w http.ResponseWriter, r *http.Request) {
	var update platform.VoiceStateUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if update.ScopeID == "" {
		writeBadRequest(w, "scope_id is required")
		return
	}
	if update.Member.ID == "" {
		writeBadRequest(w, "member.id is required")
		return
	}

	// Firings outlive the request: detach from its cancellation.
	s.events.HandleVoiceUpdate(context.WithoutCancel(r.Context()), update)
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}
