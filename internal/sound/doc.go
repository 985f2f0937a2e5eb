// Package sound provides the audio catalogue for Wavecue Core.
//
// Sounds are named audio files grouped by scope, with the literal
// "global" scope shared across every scope. A scope-local sound
// shadows a global sound of the same name. The catalogue tracks play
// counts and per-scope limits, and can sync itself against the sounds
// directory on disk.
//
// # Key Types
//
//   - Sound: A catalogue entry (scope, name, filename, play count)
//   - Catalogue: Resolution, listing and folder sync over a Repository
//   - Repository: Persistence interface; SQLiteRepository implements it
//
// The Catalogue satisfies the routine engine's SoundSource interface,
// which is how play actions find their files.
package sound
