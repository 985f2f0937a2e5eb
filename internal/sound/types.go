package sound

import (
	"path/filepath"
	"strings"
	"time"
)

// GlobalScope is the literal scope id whose sounds are visible to
// every scope. A scope-local sound of the same name shadows it.
const GlobalScope = "global"

// Scope config keys (closed set; anything else is rejected).
const (
	ConfigMaxDuration   = "max_duration"
	ConfigMaxFileSizeMB = "max_file_size_mb"
	ConfigMaxNameLength = "max_name_length"
)

// Sound is one catalogue entry: a named audio file within a scope.
type Sound struct {
	ID      string `json:"id"`
	ScopeID string `json:"scope_id"`

	// Name is the handle users and routines play the sound by. Derived
	// from the filename stem on folder sync.
	Name string `json:"name"`

	// Filename is the file's basename within the scope's directory.
	Filename string `json:"filename"`

	PlayCount int       `json:"play_count"`
	AddedAt   time.Time `json:"added_at"`
}

// NormaliseName derives a catalogue name from a filename: the stem,
// lowercased, with spaces replaced by underscores.
//
// Example: "Air Horn.mp3" → "air_horn"
func NormaliseName(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = strings.ToLower(stem)
	return strings.ReplaceAll(stem, " ", "_")
}
