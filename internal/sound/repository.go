package sound

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Repository defines the interface for catalogue persistence.
type Repository interface {
	// Sounds
	Get(ctx context.Context, scopeID, name string) (*Sound, error)
	List(ctx context.Context, scopeID string) ([]*Sound, error)
	Add(ctx context.Context, s *Sound) error
	Remove(ctx context.Context, scopeID, name string) error
	Rename(ctx context.Context, scopeID, oldName, newName string) error
	IncrementPlayCount(ctx context.Context, scopeID, name string) error

	// Scope config (closed key set)
	GetConfig(ctx context.Context, scopeID, key string) (int, bool, error)
	SetConfig(ctx context.Context, scopeID, key string, value int) error
}

// soundColumns is the SELECT column list for sound queries.
const soundColumns = `id, scope_id, name, filename, play_count, added_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a sound by name within one scope. It does not consult
// the global scope; the Catalogue handles shadowed resolution.
func (r *SQLiteRepository) Get(ctx context.Context, scopeID, name string) (*Sound, error) {
	query := `SELECT ` + soundColumns + ` FROM sounds WHERE scope_id = ? AND name = ?`

	row := r.db.QueryRowContext(ctx, query, scopeID, name)
	s, err := scanSoundRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSoundNotFound
		}
		return nil, fmt.Errorf("querying sound: %w", err)
	}
	return s, nil
}

// List retrieves one scope's sounds ordered by name.
func (r *SQLiteRepository) List(ctx context.Context, scopeID string) ([]*Sound, error) {
	query := `SELECT ` + soundColumns + ` FROM sounds WHERE scope_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, scopeID)
	if err != nil {
		return nil, fmt.Errorf("querying sounds: %w", err)
	}
	defer rows.Close()

	var sounds []*Sound
	for rows.Next() {
		s, err := scanSoundRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sound: %w", err)
		}
		sounds = append(sounds, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sounds: %w", err)
	}
	return sounds, nil
}

// Add inserts a new sound.
func (r *SQLiteRepository) Add(ctx context.Context, s *Sound) error {
	if s.AddedAt.IsZero() {
		s.AddedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sounds (id, scope_id, name, filename, play_count, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ScopeID, s.Name, s.Filename, s.PlayCount,
		s.AddedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isSoundUniqueConstraintError(err) {
			return ErrSoundExists
		}
		return fmt.Errorf("inserting sound: %w", err)
	}
	return nil
}

// Remove deletes a sound from one scope's catalogue.
func (r *SQLiteRepository) Remove(ctx context.Context, scopeID, name string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM sounds WHERE scope_id = ? AND name = ?", scopeID, name)
	if err != nil {
		return fmt.Errorf("deleting sound: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSoundNotFound
	}
	return nil
}

// Rename changes a sound's catalogue name; the file keeps its name.
func (r *SQLiteRepository) Rename(ctx context.Context, scopeID, oldName, newName string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sounds SET name = ? WHERE scope_id = ? AND name = ?",
		newName, scopeID, oldName)
	if err != nil {
		if isSoundUniqueConstraintError(err) {
			return ErrSoundExists
		}
		return fmt.Errorf("renaming sound: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSoundNotFound
	}
	return nil
}

// IncrementPlayCount bumps a sound's play counter.
func (r *SQLiteRepository) IncrementPlayCount(ctx context.Context, scopeID, name string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sounds SET play_count = play_count + 1 WHERE scope_id = ? AND name = ?",
		scopeID, name)
	if err != nil {
		return fmt.Errorf("incrementing play count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSoundNotFound
	}
	return nil
}

// GetConfig reads one scope config value. The second return reports
// whether the scope has the key set at all.
func (r *SQLiteRepository) GetConfig(ctx context.Context, scopeID, key string) (int, bool, error) {
	if !validConfigKey(key) {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownConfigKey, key)
	}

	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM scope_configs WHERE scope_id = ? AND key = ?",
		scopeID, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying scope config: %w", err)
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: stored %q is not an integer", ErrInvalidConfigValue, raw)
	}
	return value, true, nil
}

// SetConfig writes one scope config value, upserting on the
// (scope_id, key) primary key.
func (r *SQLiteRepository) SetConfig(ctx context.Context, scopeID, key string, value int) error {
	if !validConfigKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownConfigKey, key)
	}
	if value <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConfigValue, value)
	}

	query := `
		INSERT INTO scope_configs (scope_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(scope_id, key) DO UPDATE SET value = excluded.value`

	if _, err := r.db.ExecContext(ctx, query, scopeID, key, strconv.Itoa(value)); err != nil {
		return fmt.Errorf("setting scope config: %w", err)
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSoundRow(scanner rowScanner) (*Sound, error) {
	var s Sound
	var addedAt string

	err := scanner.Scan(&s.ID, &s.ScopeID, &s.Name, &s.Filename, &s.PlayCount, &addedAt)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.RFC3339, addedAt); parseErr == nil {
		s.AddedAt = t
	}
	return &s, nil
}

func validConfigKey(key string) bool {
	switch key {
	case ConfigMaxDuration, ConfigMaxFileSizeMB, ConfigMaxNameLength:
		return true
	}
	return false
}

func isSoundUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
