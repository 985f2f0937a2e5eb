package routine

import (
	"context"
	"time"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// SnapshotSource is the scheduler's view of the loaded routines.
// *Manager satisfies it; tests substitute fixed snapshots.
type SnapshotSource interface {
	Scopes() []string
	RoutinesForScope(scopeID string) []*Routine
}

// Scheduler drives timer routines off a periodic tick.
//
// Timer due-ness is tracked on the routine structs themselves
// (Routine.LastRun), so a snapshot reload resets it and a reloaded
// timer routine fires immediately on the next tick.
type Scheduler struct {
	source   SnapshotSource
	platform platform.Client
	executor *Executor
	eval     *Evaluator
	tick     time.Duration
	logger   Logger

	// now is time.Now, injectable for tests.
	now func() time.Time
}

// NewScheduler creates a timer-routine scheduler.
func NewScheduler(source SnapshotSource, client platform.Client, executor *Executor, eval *Evaluator, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Second
	}
	return &Scheduler{
		source:   source,
		platform: client,
		executor: executor,
		eval:     eval,
		tick:     tick,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Run ticks until the context is cancelled. It is intended to be
// started on its own goroutine for the process lifetime.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "tick", s.tick)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs a single scheduling pass over every scope's timer routines.
// Exported for tests; Run calls it on every ticker tick.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, scopeID := range s.source.Scopes() {
		for _, r := range s.source.RoutinesForScope(scopeID) {
			s.tickRoutine(ctx, r)
		}
	}
}

// tickRoutine fires one routine if it is due. Errors and panics are
// contained so one routine can never stop the loop or its peers.
func (s *Scheduler) tickRoutine(ctx context.Context, r *Routine) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("scheduler tick panicked",
				"routine_id", r.ID, "scope_id", r.ScopeID, "panic", rec)
		}
	}()

	if !r.Enabled || r.Trigger.Kind != TriggerTimer {
		return
	}

	interval := r.Trigger.Interval()
	if interval <= 0 {
		return
	}

	now := s.now()
	if !r.LastRun.IsZero() && now.Sub(r.LastRun) < interval {
		return
	}

	ec, ok := s.resolveContext(ctx, r)
	if !ok {
		return
	}

	// Only the scheduler goroutine touches LastRun.
	r.LastRun = now

	s.logger.Info("timer routine fired",
		"routine_id", r.ID, "scope_id", r.ScopeID, "channel_id", ec.ChannelID)
	go s.executor.Execute(ctx, r, ec)
}

// resolveContext finds an execution context for a timer routine.
//
// Every non-bot member across the scope's voice rooms is tried against
// the condition tree; the first match wins. Iteration order follows
// the platform's listing, so ties are non-deterministic. When no
// member matches and the tree has no user-id leaf, any occupied room
// serves as a memberless fallback without re-checking the conditions:
// a routine gated only on time or channel still fires as long as
// somebody, anybody, is in voice. No occupied room means no firing
// this tick.
func (s *Scheduler) resolveContext(ctx context.Context, r *Routine) (ExecutionContext, bool) {
	channels, err := s.platform.Channels(ctx, r.ScopeID)
	if err != nil {
		s.logger.Warn("listing channels failed",
			"routine_id", r.ID, "scope_id", r.ScopeID, "error", err)
		return ExecutionContext{}, false
	}

	var fallbackChannel string

	for _, ch := range channels {
		members, err := s.platform.ChannelMembers(ctx, ch.ID)
		if err != nil {
			continue
		}

		for i := range members {
			if members[i].Bot {
				continue
			}
			if fallbackChannel == "" {
				fallbackChannel = ch.ID
			}

			ec := ExecutionContext{
				ScopeID:   r.ScopeID,
				ChannelID: ch.ID,
				Member:    &members[i],
			}
			if s.eval.Evaluate(r.Conditions, ec) {
				return ec, true
			}
		}
	}

	// The memberless fallback only applies when the conditions never
	// name a specific user. It deliberately skips condition evaluation:
	// per-member checks above are the gate, the fallback just supplies
	// a room to play into.
	if fallbackChannel == "" || r.Conditions.ContainsKind(LeafUserID) {
		return ExecutionContext{}, false
	}

	return ExecutionContext{ScopeID: r.ScopeID, ChannelID: fallbackChannel}, true
}
