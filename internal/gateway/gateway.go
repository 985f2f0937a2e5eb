// Package gateway is the seam between the chat platform and the
// engine: one Dispatcher fans each raw voice-state update into event
// routine dispatch and the alone-in-channel check, so an embedding
// deployment (or the ops API's event endpoint) has a single entry
// point to deliver gateway traffic to.
package gateway

import (
	"context"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// RoutineDispatcher receives membership updates for event routines.
// *routine.Manager satisfies it.
type RoutineDispatcher interface {
	HandleVoiceUpdate(ctx context.Context, update platform.VoiceStateUpdate)
}

// AloneChecker disconnects a scope's player when no human remains in
// its room. *playback.Manager satisfies it.
type AloneChecker interface {
	CheckAlone(ctx context.Context, scopeID string) error
}

// Logger defines the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher routes one voice-state update to every consumer that
// cares: routine dispatch always, the alone check only when the update
// may have emptied a room.
type Dispatcher struct {
	routines RoutineDispatcher
	players  AloneChecker
	logger   Logger
}

// NewDispatcher creates a dispatcher over the engine's consumers.
func NewDispatcher(routines RoutineDispatcher, players AloneChecker) *Dispatcher {
	return &Dispatcher{
		routines: routines,
		players:  players,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// HandleVoiceUpdate fans a single update into routine dispatch and,
// when the member left or changed rooms, the alone-in-channel check.
func (d *Dispatcher) HandleVoiceUpdate(ctx context.Context, update platform.VoiceStateUpdate) {
	d.routines.HandleVoiceUpdate(ctx, update)

	if !leftChannel(update) {
		return
	}
	if err := d.players.CheckAlone(ctx, update.ScopeID); err != nil {
		d.logger.Warn("alone check failed",
			"scope_id", update.ScopeID, "error", err)
	}
}

// leftChannel reports whether the update vacated a room: a disconnect
// or a move. Flag-only changes keep the member in place.
func leftChannel(update platform.VoiceStateUpdate) bool {
	if !update.Before.InChannel() {
		return false
	}
	if !update.After.InChannel() {
		return true
	}
	return *update.Before.ChannelID != *update.After.ChannelID
}
