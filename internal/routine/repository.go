package routine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for routine persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Routine CRUD
	Get(ctx context.Context, scopeID, id string) (*Routine, error)
	List(ctx context.Context, scopeID string) ([]*Routine, error)
	Scopes(ctx context.Context) ([]string, error)
	Add(ctx context.Context, r *Routine) error
	Update(ctx context.Context, r *Routine) error
	Delete(ctx context.Context, scopeID, id string) error
	SetEnabled(ctx context.Context, scopeID, id string, enabled bool) error

	// Ignored channels
	IgnoredChannels(ctx context.Context, scopeID string) (map[string]struct{}, error)
	AddIgnoredChannel(ctx context.Context, scopeID, channelID string) error
	RemoveIgnoredChannel(ctx context.Context, scopeID, channelID string) error
}

// routineColumns is the SELECT column list for routine queries.
const routineColumns = `id, scope_id, name, enabled, trigger_type, trigger_data,
			conditions, actions, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
//
// Trigger, condition and action payloads are stored as JSON columns
// and decoded once at load; unknown kinds fail the decode rather than
// leaking into evaluation.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a routine by scope and id.
func (r *SQLiteRepository) Get(ctx context.Context, scopeID, id string) (*Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE scope_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, query, scopeID, id)
	routine, err := scanRoutineRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, fmt.Errorf("querying routine: %w", err)
	}
	return routine, nil
}

// List retrieves all routines of a scope ordered by name.
func (r *SQLiteRepository) List(ctx context.Context, scopeID string) ([]*Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE scope_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, scopeID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	var routines []*Routine
	for rows.Next() {
		routine, err := scanRoutineRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		routines = append(routines, routine)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routines: %w", err)
	}
	return routines, nil
}

// Scopes returns every scope id that has at least one routine.
func (r *SQLiteRepository) Scopes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT scope_id FROM routines ORDER BY scope_id")
	if err != nil {
		return nil, fmt.Errorf("querying scopes: %w", err)
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var scopeID string
		if err := rows.Scan(&scopeID); err != nil {
			return nil, fmt.Errorf("scanning scope: %w", err)
		}
		scopes = append(scopes, scopeID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scopes: %w", err)
	}
	return scopes, nil
}

// Add inserts a new routine.
func (r *SQLiteRepository) Add(ctx context.Context, routine *Routine) error {
	triggerJSON, conditionsJSON, actionsJSON, err := marshalRoutinePayloads(routine)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if routine.CreatedAt.IsZero() {
		routine.CreatedAt = now
	}
	routine.UpdatedAt = now

	query := `
		INSERT INTO routines (
			id, scope_id, name, enabled, trigger_type, trigger_data,
			conditions, actions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		routine.ID,
		routine.ScopeID,
		routine.Name,
		boolToInt(routine.Enabled),
		string(routine.Trigger.Kind),
		triggerJSON,
		conditionsJSON,
		actionsJSON,
		routine.CreatedAt.Format(time.RFC3339),
		routine.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRoutineExists
		}
		return fmt.Errorf("inserting routine: %w", err)
	}
	return nil
}

// Update modifies an existing routine.
func (r *SQLiteRepository) Update(ctx context.Context, routine *Routine) error {
	triggerJSON, conditionsJSON, actionsJSON, err := marshalRoutinePayloads(routine)
	if err != nil {
		return err
	}

	routine.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE routines SET
			name = ?, enabled = ?, trigger_type = ?, trigger_data = ?,
			conditions = ?, actions = ?, updated_at = ?
		WHERE scope_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		routine.Name,
		boolToInt(routine.Enabled),
		string(routine.Trigger.Kind),
		triggerJSON,
		conditionsJSON,
		actionsJSON,
		routine.UpdatedAt.Format(time.RFC3339),
		routine.ScopeID,
		routine.ID,
	)
	if err != nil {
		return fmt.Errorf("updating routine: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

// Delete removes a routine.
func (r *SQLiteRepository) Delete(ctx context.Context, scopeID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM routines WHERE scope_id = ? AND id = ?", scopeID, id)
	if err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

// SetEnabled flips a routine's enabled flag.
func (r *SQLiteRepository) SetEnabled(ctx context.Context, scopeID, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE routines SET enabled = ?, updated_at = ? WHERE scope_id = ? AND id = ?",
		boolToInt(enabled),
		time.Now().UTC().Format(time.RFC3339),
		scopeID,
		id,
	)
	if err != nil {
		return fmt.Errorf("toggling routine: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

// IgnoredChannels returns the channel ids whose events are suppressed
// for a scope.
func (r *SQLiteRepository) IgnoredChannels(ctx context.Context, scopeID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT channel_id FROM ignored_channels WHERE scope_id = ?", scopeID)
	if err != nil {
		return nil, fmt.Errorf("querying ignored channels: %w", err)
	}
	defer rows.Close()

	ignored := make(map[string]struct{})
	for rows.Next() {
		var channelID string
		if err := rows.Scan(&channelID); err != nil {
			return nil, fmt.Errorf("scanning ignored channel: %w", err)
		}
		ignored[channelID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ignored channels: %w", err)
	}
	return ignored, nil
}

// AddIgnoredChannel suppresses a channel's events. Idempotent.
func (r *SQLiteRepository) AddIgnoredChannel(ctx context.Context, scopeID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO ignored_channels (scope_id, channel_id) VALUES (?, ?)",
		scopeID, channelID)
	if err != nil {
		return fmt.Errorf("inserting ignored channel: %w", err)
	}
	return nil
}

// RemoveIgnoredChannel re-enables a channel's events. Idempotent.
func (r *SQLiteRepository) RemoveIgnoredChannel(ctx context.Context, scopeID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM ignored_channels WHERE scope_id = ? AND channel_id = ?",
		scopeID, channelID)
	if err != nil {
		return fmt.Errorf("deleting ignored channel: %w", err)
	}
	return nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoutineRow(scanner rowScanner) (*Routine, error) {
	var r Routine
	var enabled int
	var triggerType, triggerJSON, actionsJSON string
	var conditionsJSON sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&r.ID,
		&r.ScopeID,
		&r.Name,
		&enabled,
		&triggerType,
		&triggerJSON,
		&conditionsJSON,
		&actionsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Enabled = enabled != 0

	if err := json.Unmarshal([]byte(triggerJSON), &r.Trigger); err != nil {
		return nil, fmt.Errorf("unmarshalling trigger: %w", err)
	}
	_ = triggerType // denormalised copy of Trigger.Kind for indexed queries

	if conditionsJSON.Valid && conditionsJSON.String != "" && conditionsJSON.String != "null" {
		if err := json.Unmarshal([]byte(conditionsJSON.String), &r.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshalling conditions: %w", err)
		}
	}

	if actionsJSON != "" && actionsJSON != "[]" {
		if err := json.Unmarshal([]byte(actionsJSON), &r.Actions); err != nil {
			return nil, fmt.Errorf("unmarshalling actions: %w", err)
		}
	}
	if r.Actions == nil {
		r.Actions = []Action{}
	}

	// Parse timestamps (stored as RFC3339)
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		r.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		r.UpdatedAt = t
	}

	return &r, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

// marshalRoutinePayloads serialises the JSON columns of a routine row.
func marshalRoutinePayloads(r *Routine) (trigger string, conditions sql.NullString, actions string, err error) {
	triggerJSON, err := json.Marshal(r.Trigger)
	if err != nil {
		return "", sql.NullString{}, "", fmt.Errorf("marshalling trigger: %w", err)
	}

	var conditionsNS sql.NullString
	if r.Conditions != nil {
		conditionsJSON, err := json.Marshal(r.Conditions)
		if err != nil {
			return "", sql.NullString{}, "", fmt.Errorf("marshalling conditions: %w", err)
		}
		conditionsNS = sql.NullString{String: string(conditionsJSON), Valid: true}
	}

	actionsJSON, err := json.Marshal(r.Actions)
	if err != nil {
		return "", sql.NullString{}, "", fmt.Errorf("marshalling actions: %w", err)
	}

	return string(triggerJSON), conditionsNS, string(actionsJSON), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
