package routine

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// Logger defines the logging interface used by the routine engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SoundSource resolves playable sounds for a scope. Lookups check the
// scope's own catalogue before the global one, so a scope-local sound
// shadows a global sound of the same name.
type SoundSource interface {
	// Resolve returns the filesystem path of a named sound visible to
	// the scope. sound.ErrSoundNotFound (or equivalent) when missing.
	Resolve(ctx context.Context, scopeID, name string) (path string, err error)

	// Names returns the sound names visible to the scope (scope-local
	// merged over global).
	Names(ctx context.Context, scopeID string) ([]string, error)
}

// Enqueuer queues audio for sequential playback in a scope.
type Enqueuer interface {
	// Enqueue appends an item to the scope's playback queue and
	// returns its 1-based position.
	Enqueue(ctx context.Context, scopeID, sourcePath, soundName, requester, targetChannelID string) (int, error)
}

// Telemetry receives fire-and-forget notifications about engine
// activity. Implementations must not block.
type Telemetry interface {
	RoutineFired(scopeID, routineID string, triggerType string, actionCount int)
}

// requesterRoutine is the queue requester label for routine-initiated playback.
const requesterRoutine = "Routine"

// Executor runs a routine's ordered actions.
//
// Each firing runs on its own goroutine; a Wait action suspends only
// that firing. Errors and panics are contained at the firing boundary:
// one action's failure abandons the rest of that firing and nothing else.
type Executor struct {
	platform  platform.Client
	sounds    SoundSource
	queue     Enqueuer
	telemetry Telemetry
	logger    Logger

	// intn is rand.Intn, injectable for deterministic tests.
	intn func(n int) int

	// sleep is time.Sleep, injectable so tests don't wait.
	sleep func(d time.Duration)
}

// NewExecutor creates an action executor.
func NewExecutor(client platform.Client, sounds SoundSource, queue Enqueuer) *Executor {
	return &Executor{
		platform: client,
		sounds:   sounds,
		queue:    queue,
		logger:   noopLogger{},
		intn:     rand.Intn,
		sleep:    time.Sleep,
	}
}

// SetLogger sets the logger for the executor.
func (e *Executor) SetLogger(logger Logger) {
	e.logger = logger
}

// SetTelemetry sets an optional telemetry sink for firing events.
func (e *Executor) SetTelemetry(t Telemetry) {
	e.telemetry = t
}

// Execute runs one firing of a routine in the given context. It is
// intended to be called on its own goroutine.
//
// Actions run strictly in order. After every Wait the context is
// rebuilt fresh: the original member may have moved or left. The first
// action error abandons the remaining actions of this firing only.
func (e *Executor) Execute(ctx context.Context, r *Routine, ec ExecutionContext) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("routine firing panicked",
				"routine_id", r.ID,
				"scope_id", r.ScopeID,
				"panic", rec,
			)
		}
	}()

	originalMember := ec.Member

	for i, action := range r.Actions {
		var err error

		switch action.Type {
		case ActionWait:
			// Suspends only this firing. Not cancellable mid-flight:
			// a routine reload never tears an in-flight sleep.
			e.sleep(time.Duration(action.Seconds) * time.Second)
			ec = e.refreshContext(ctx, r.ScopeID, originalMember)

		case ActionPlay:
			err = e.executePlay(ctx, r, action, ec)

		case ActionMessage:
			e.executeMessage(ctx, r, action, ec)
		}

		if err != nil {
			e.logger.Warn("routine action failed, abandoning firing",
				"routine_id", r.ID,
				"scope_id", r.ScopeID,
				"action_index", i,
				"action_type", action.Type,
				"error", err,
			)
			return
		}
	}

	if e.telemetry != nil {
		e.telemetry.RoutineFired(r.ScopeID, r.ID, string(r.Trigger.Kind), len(r.Actions))
	}
}

// refreshContext rebuilds the execution context after a suspension.
//
// If the original member is still connected, the context follows them
// to their current room. Otherwise a uniformly random occupied room is
// used with the member unset. With no occupied room at all the context
// is left roomless; room-dependent actions will skip themselves.
func (e *Executor) refreshContext(ctx context.Context, scopeID string, member *platform.Member) ExecutionContext {
	ec := ExecutionContext{ScopeID: scopeID}

	if member != nil {
		state, err := e.platform.VoiceState(ctx, scopeID, member.ID)
		if err == nil && state.InChannel() {
			ec.ChannelID = *state.ChannelID
			ec.Member = member
			return ec
		}
	}

	if channelID, ok := e.randomOccupiedChannel(ctx, scopeID); ok {
		ec.ChannelID = channelID
		return ec
	}

	e.logger.Debug("no occupied room after wait, context left roomless", "scope_id", scopeID)
	return ec
}

// executePlay resolves the sound and target room, then enqueues onto
// the scope's playback queue. Missing sounds or rooms skip the action.
func (e *Executor) executePlay(ctx context.Context, r *Routine, action Action, ec ExecutionContext) error {
	name := action.SoundName

	if name == RandomSound {
		names, err := e.sounds.Names(ctx, r.ScopeID)
		if err != nil || len(names) == 0 {
			e.logger.Warn("no sounds available for random pick",
				"routine_id", r.ID, "scope_id", r.ScopeID, "error", err)
			return nil
		}
		name = names[e.intn(len(names))]
	}

	path, err := e.sounds.Resolve(ctx, r.ScopeID, name)
	if err != nil {
		e.logger.Warn("sound not found, skipping action",
			"routine_id", r.ID, "scope_id", r.ScopeID, "sound", name, "error", err)
		return nil
	}

	// Target room priority: context room, then the action's bound room
	// for the "specific" strategy, then a random occupied room.
	target := ec.ChannelID
	if target == "" && action.Strategy == StrategySpecific && action.ChannelID != "" {
		target = action.ChannelID
	}
	if target == "" {
		channelID, ok := e.randomOccupiedChannel(ctx, r.ScopeID)
		if !ok {
			e.logger.Debug("no occupied room for playback, skipping action",
				"routine_id", r.ID, "scope_id", r.ScopeID, "sound", name)
			return nil
		}
		target = channelID
	}

	if _, err := e.queue.Enqueue(ctx, r.ScopeID, path, name, requesterRoutine, target); err != nil {
		return err
	}

	e.logger.Debug("routine queued sound",
		"routine_id", r.ID, "scope_id", r.ScopeID, "sound", name, "channel_id", target)
	return nil
}

// executeMessage sends a text message, substituting {user} and
// {username} when the context carries a member. Delivery failures are
// logged and non-fatal.
func (e *Executor) executeMessage(ctx context.Context, r *Routine, action Action, ec ExecutionContext) {
	channelID := action.ChannelID
	if channelID == "" {
		channelID = ec.ChannelID
	}
	if channelID == "" {
		e.logger.Debug("no channel for message, skipping action",
			"routine_id", r.ID, "scope_id", r.ScopeID)
		return
	}

	content := action.Content
	if ec.Member != nil {
		content = strings.ReplaceAll(content, "{user}", ec.Member.Mention())
		content = strings.ReplaceAll(content, "{username}", ec.Member.DisplayName)
	}

	if err := e.platform.SendMessage(ctx, channelID, content); err != nil {
		e.logger.Warn("message delivery failed",
			"routine_id", r.ID, "scope_id", r.ScopeID, "channel_id", channelID, "error", err)
	}
}

// randomOccupiedChannel picks a uniformly random voice room of the
// scope that has at least one non-bot member connected.
func (e *Executor) randomOccupiedChannel(ctx context.Context, scopeID string) (string, bool) {
	channels, err := e.platform.Channels(ctx, scopeID)
	if err != nil {
		e.logger.Warn("listing channels failed", "scope_id", scopeID, "error", err)
		return "", false
	}

	var occupied []string
	for _, ch := range channels {
		members, err := e.platform.ChannelMembers(ctx, ch.ID)
		if err != nil {
			continue
		}
		for _, m := range members {
			if !m.Bot {
				occupied = append(occupied, ch.ID)
				break
			}
		}
	}

	if len(occupied) == 0 {
		return "", false
	}
	return occupied[e.intn(len(occupied))], true
}
