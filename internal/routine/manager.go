package routine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// Manager owns the in-memory routine snapshots and dispatches
// membership events into the engine.
//
// Snapshots are replaced wholesale on every (re)load, never mutated
// in place: an iteration in progress during a reload completes against
// the stale snapshot, and nothing ever observes a half-updated routine.
//
// All public methods are thread-safe.
type Manager struct {
	repo     Repository
	executor *Executor
	eval     *Evaluator
	logger   Logger

	// mu protects the snapshots below.
	mu       sync.RWMutex
	routines map[string][]*Routine
	ignored  map[string]map[string]struct{}
}

// NewManager creates a routine manager.
func NewManager(repo Repository, executor *Executor, eval *Evaluator) *Manager {
	return &Manager{
		repo:     repo,
		executor: executor,
		eval:     eval,
		logger:   noopLogger{},
		routines: make(map[string][]*Routine),
		ignored:  make(map[string]map[string]struct{}),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// LoadAll loads every scope's routines from the repository.
// A failure in one scope is logged and does not stop the others.
func (m *Manager) LoadAll(ctx context.Context) error {
	scopes, err := m.repo.Scopes(ctx)
	if err != nil {
		return fmt.Errorf("listing scopes: %w", err)
	}

	for _, scopeID := range scopes {
		if err := m.LoadScope(ctx, scopeID); err != nil {
			m.logger.Error("loading scope failed", "scope_id", scopeID, "error", err)
		}
	}

	m.logger.Info("routine snapshots loaded", "scopes", len(scopes))
	return nil
}

// LoadScope replaces one scope's routine and ignored-channel snapshots
// wholesale. Timer lastRun state lives on the routine structs, so a
// reload makes every timer routine of the scope immediately due again.
func (m *Manager) LoadScope(ctx context.Context, scopeID string) error {
	routines, err := m.repo.List(ctx, scopeID)
	if err != nil {
		return fmt.Errorf("loading routines: %w", err)
	}

	ignored, err := m.repo.IgnoredChannels(ctx, scopeID)
	if err != nil {
		return fmt.Errorf("loading ignored channels: %w", err)
	}

	m.mu.Lock()
	m.routines[scopeID] = routines
	m.ignored[scopeID] = ignored
	m.mu.Unlock()

	m.logger.Debug("scope snapshot replaced", "scope_id", scopeID, "routines", len(routines))
	return nil
}

// Scopes returns the scope ids with a loaded snapshot.
func (m *Manager) Scopes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scopes := make([]string, 0, len(m.routines))
	for scopeID := range m.routines {
		scopes = append(scopes, scopeID)
	}
	return scopes
}

// RoutinesForScope returns the current snapshot slice for a scope.
// Callers iterate the returned slice as-is; a concurrent reload swaps
// the map entry but never mutates a handed-out slice.
func (m *Manager) RoutinesForScope(scopeID string) []*Routine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routines[scopeID]
}

// IsIgnored reports whether events from a channel are suppressed.
func (m *Manager) IsIgnored(scopeID, channelID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ignored[scopeID][channelID]
	return ok
}

// HandleVoiceUpdate classifies a membership update and fires every
// matching event routine. Each firing runs on its own goroutine; this
// method never blocks on action execution.
func (m *Manager) HandleVoiceUpdate(ctx context.Context, update platform.VoiceStateUpdate) {
	events := Classify(update)
	if len(events) == 0 {
		return
	}

	snapshot := m.RoutinesForScope(update.ScopeID)
	if len(snapshot) == 0 {
		return
	}

	member := update.Member

	// A routine fires at most once per update, even when the update
	// expands to several events.
	fired := make(map[string]struct{})

	for _, event := range events {
		if event.ChannelID != "" && m.IsIgnored(update.ScopeID, event.ChannelID) {
			continue
		}

		for _, r := range snapshot {
			if !r.Enabled || r.Trigger.Kind != TriggerEvent || r.Trigger.EventType != event.Type {
				continue
			}
			if _, done := fired[r.ID]; done {
				continue
			}

			ec := ExecutionContext{
				ScopeID:   update.ScopeID,
				ChannelID: event.ChannelID,
				Member:    &member,
			}

			if !m.eval.Evaluate(r.Conditions, ec) {
				continue
			}

			fired[r.ID] = struct{}{}
			m.logger.Info("event routine fired",
				"routine_id", r.ID,
				"scope_id", r.ScopeID,
				"event", event.Type,
				"channel_id", event.ChannelID,
			)
			go m.executor.Execute(ctx, r, ec)
		}
	}
}

// ─── Routine management ─────────────────────────────────────────────────────

// Create validates and persists a new routine, then reloads its scope.
// A missing ID is assigned.
func (m *Manager) Create(ctx context.Context, r *Routine) error {
	if r.ID == "" {
		r.ID = GenerateID()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := Validate(r); err != nil {
		return err
	}

	if err := m.repo.Add(ctx, r); err != nil {
		return err
	}
	return m.LoadScope(ctx, r.ScopeID)
}

// CreateFromDSL parses a textual routine definition and persists it.
func (m *Manager) CreateFromDSL(ctx context.Context, scopeID, name, definition string) (*Routine, error) {
	r, err := ParseDSL(definition)
	if err != nil {
		return nil, err
	}

	r.ScopeID = scopeID
	r.Name = name
	r.Enabled = true

	if err := m.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update validates and persists changes to a routine, then reloads its scope.
func (m *Manager) Update(ctx context.Context, r *Routine) error {
	r.UpdatedAt = time.Now().UTC()

	if err := Validate(r); err != nil {
		return err
	}

	if err := m.repo.Update(ctx, r); err != nil {
		return err
	}
	return m.LoadScope(ctx, r.ScopeID)
}

// Delete removes a routine, then reloads its scope.
func (m *Manager) Delete(ctx context.Context, scopeID, id string) error {
	if err := m.repo.Delete(ctx, scopeID, id); err != nil {
		return err
	}
	return m.LoadScope(ctx, scopeID)
}

// Toggle flips a routine's enabled flag and returns the new state.
func (m *Manager) Toggle(ctx context.Context, scopeID, id string) (bool, error) {
	r, err := m.repo.Get(ctx, scopeID, id)
	if err != nil {
		return false, err
	}

	enabled := !r.Enabled
	if err := m.repo.SetEnabled(ctx, scopeID, id, enabled); err != nil {
		return false, err
	}
	if err := m.LoadScope(ctx, scopeID); err != nil {
		return false, err
	}
	return enabled, nil
}

// Get returns a routine by id.
func (m *Manager) Get(ctx context.Context, scopeID, id string) (*Routine, error) {
	return m.repo.Get(ctx, scopeID, id)
}

// IgnoreChannel suppresses event routines for a channel.
func (m *Manager) IgnoreChannel(ctx context.Context, scopeID, channelID string) error {
	if err := m.repo.AddIgnoredChannel(ctx, scopeID, channelID); err != nil {
		return err
	}
	return m.LoadScope(ctx, scopeID)
}

// UnignoreChannel re-enables event routines for a channel.
func (m *Manager) UnignoreChannel(ctx context.Context, scopeID, channelID string) error {
	if err := m.repo.RemoveIgnoredChannel(ctx, scopeID, channelID); err != nil {
		return err
	}
	return m.LoadScope(ctx, scopeID)
}
