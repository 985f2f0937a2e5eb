package sound

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the catalogue.
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

// Config carries the catalogue's filesystem settings and default
// limits. Per-scope overrides live in the scope_configs table.
type Config struct {
	// Dir is the root sounds directory, one subdirectory per scope.
	Dir string

	// AllowedExtensions limits which files folder sync registers.
	AllowedExtensions []string

	// Defaults for the closed scope-config key set.
	MaxDurationSeconds int
	MaxFileSizeMB      int
	MaxNameLength      int
}

// Catalogue resolves, lists and maintains the sound catalogue. It
// satisfies the routine engine's SoundSource interface.
//
// All methods are safe for concurrent use; state lives in the
// repository and on disk.
type Catalogue struct {
	repo   Repository
	cfg    Config
	logger Logger

	allowedExts map[string]struct{}
}

// NewCatalogue creates a catalogue over a repository and sounds directory.
func NewCatalogue(repo Repository, cfg Config) *Catalogue {
	exts := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &Catalogue{
		repo:        repo,
		cfg:         cfg,
		logger:      noopLogger{},
		allowedExts: exts,
	}
}

// SetLogger sets the logger for the catalogue.
func (c *Catalogue) SetLogger(logger Logger) {
	c.logger = logger
}

// Resolve returns the filesystem path of a named sound visible to the
// scope. The scope's own catalogue is checked first, then the global
// one. A catalogue entry whose file has gone missing resolves to
// ErrSoundNotFound.
func (c *Catalogue) Resolve(ctx context.Context, scopeID, name string) (string, error) {
	s, err := c.lookup(ctx, scopeID, name)
	if err != nil {
		return "", err
	}

	path := filepath.Join(c.cfg.Dir, s.ScopeID, s.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: file missing for %q", ErrSoundNotFound, name)
	}
	return path, nil
}

// Names returns the sound names visible to a scope: the scope's own
// merged over the global catalogue, sorted, without duplicates.
func (c *Catalogue) Names(ctx context.Context, scopeID string) ([]string, error) {
	merged, err := c.Available(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(merged))
	for _, s := range merged {
		names = append(names, s.Name)
	}
	return names, nil
}

// Available returns the sounds visible to a scope, sorted by name.
// A scope-local sound shadows a global sound of the same name.
func (c *Catalogue) Available(ctx context.Context, scopeID string) ([]*Sound, error) {
	byName := make(map[string]*Sound)

	if scopeID != GlobalScope {
		global, err := c.repo.List(ctx, GlobalScope)
		if err != nil {
			return nil, err
		}
		for _, s := range global {
			byName[s.Name] = s
		}
	}

	local, err := c.repo.List(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	for _, s := range local {
		byName[s.Name] = s
	}

	merged := make([]*Sound, 0, len(byName))
	for _, s := range byName {
		merged = append(merged, s)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	return merged, nil
}

// Get returns a sound visible to the scope (scope first, then global).
func (c *Catalogue) Get(ctx context.Context, scopeID, name string) (*Sound, error) {
	return c.lookup(ctx, scopeID, name)
}

// Add registers an existing file in the scope's directory under a
// catalogue name.
func (c *Catalogue) Add(ctx context.Context, scopeID, name, filename string) (*Sound, error) {
	if err := c.validateName(ctx, scopeID, name); err != nil {
		return nil, err
	}

	s := &Sound{
		ID:       uuid.New().String(),
		ScopeID:  scopeID,
		Name:     name,
		Filename: filename,
	}
	if err := c.repo.Add(ctx, s); err != nil {
		return nil, err
	}

	c.logger.Info("sound added", "scope_id", scopeID, "name", name, "filename", filename)
	return s, nil
}

// Remove deletes a sound from the scope's catalogue and its file from
// disk. A missing file is not an error; the entry still goes.
func (c *Catalogue) Remove(ctx context.Context, scopeID, name string) error {
	s, err := c.repo.Get(ctx, scopeID, name)
	if err != nil {
		return err
	}

	if err := c.repo.Remove(ctx, scopeID, name); err != nil {
		return err
	}

	path := filepath.Join(c.cfg.Dir, scopeID, s.Filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("sound file removal failed", "path", path, "error", err)
	}

	c.logger.Info("sound removed", "scope_id", scopeID, "name", name)
	return nil
}

// Rename changes a sound's catalogue name within its scope.
func (c *Catalogue) Rename(ctx context.Context, scopeID, oldName, newName string) error {
	if err := c.validateName(ctx, scopeID, newName); err != nil {
		return err
	}
	if err := c.repo.Rename(ctx, scopeID, oldName, newName); err != nil {
		return err
	}

	c.logger.Info("sound renamed", "scope_id", scopeID, "from", oldName, "to", newName)
	return nil
}

// MarkPlayed bumps the play counter of the entry that actually
// resolved (scope-local if present, otherwise global).
func (c *Catalogue) MarkPlayed(ctx context.Context, scopeID, name string) error {
	s, err := c.lookup(ctx, scopeID, name)
	if err != nil {
		return err
	}
	return c.repo.IncrementPlayCount(ctx, s.ScopeID, s.Name)
}

// Limit returns a scope's effective limit for one of the closed config
// keys, falling back to the configured default.
func (c *Catalogue) Limit(ctx context.Context, scopeID, key string) (int, error) {
	value, set, err := c.repo.GetConfig(ctx, scopeID, key)
	if err != nil {
		return 0, err
	}
	if set {
		return value, nil
	}

	switch key {
	case ConfigMaxDuration:
		return c.cfg.MaxDurationSeconds, nil
	case ConfigMaxFileSizeMB:
		return c.cfg.MaxFileSizeMB, nil
	case ConfigMaxNameLength:
		return c.cfg.MaxNameLength, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownConfigKey, key)
}

// SetLimit writes a per-scope override for one of the closed config keys.
func (c *Catalogue) SetLimit(ctx context.Context, scopeID, key string, value int) error {
	return c.repo.SetConfig(ctx, scopeID, key, value)
}

// SyncFolder registers audio files present in a scope's directory but
// missing from its catalogue. Names derive from the filename stem.
// Returns the number of sounds registered.
func (c *Catalogue) SyncFolder(ctx context.Context, scopeID string) (int, error) {
	dir := filepath.Join(c.cfg.Dir, scopeID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading sounds directory: %w", err)
	}

	existing, err := c.repo.List(ctx, scopeID)
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		known[s.Filename] = struct{}{}
	}

	added := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()

		ext := strings.ToLower(filepath.Ext(filename))
		if _, ok := c.allowedExts[ext]; !ok {
			continue
		}
		if _, ok := known[filename]; ok {
			continue
		}

		s := &Sound{
			ID:       uuid.New().String(),
			ScopeID:  scopeID,
			Name:     NormaliseName(filename),
			Filename: filename,
		}
		if err := c.repo.Add(ctx, s); err != nil {
			c.logger.Warn("folder sync skipped file",
				"scope_id", scopeID, "filename", filename, "error", err)
			continue
		}
		added++
	}

	if added > 0 {
		c.logger.Info("folder sync registered sounds", "scope_id", scopeID, "added", added)
	}
	return added, nil
}

// SyncAll runs SyncFolder over every scope subdirectory of the sounds
// root, the global scope included.
func (c *Catalogue) SyncAll(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading sounds root: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		added, err := c.SyncFolder(ctx, entry.Name())
		if err != nil {
			c.logger.Error("folder sync failed", "scope_id", entry.Name(), "error", err)
			continue
		}
		total += added
	}
	return total, nil
}

// lookup finds a sound scope-first, then global.
func (c *Catalogue) lookup(ctx context.Context, scopeID, name string) (*Sound, error) {
	s, err := c.repo.Get(ctx, scopeID, name)
	if err == nil {
		return s, nil
	}
	if scopeID == GlobalScope {
		return nil, err
	}
	return c.repo.Get(ctx, GlobalScope, name)
}

// validateName enforces non-empty names within the scope's length limit.
func (c *Catalogue) validateName(ctx context.Context, scopeID, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	limit, err := c.Limit(ctx, scopeID, ConfigMaxNameLength)
	if err != nil {
		return err
	}
	if limit > 0 && len(name) > limit {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, limit)
	}
	return nil
}
