package playback

import "errors"

// Domain errors for the playback package.
var (
	// ErrNotConnected is returned when an operation needs a live voice
	// connection and the scope's player has none.
	ErrNotConnected = errors.New("playback: not connected")

	// ErrNothingPlaying is returned when skip is requested with no
	// current item.
	ErrNothingPlaying = errors.New("playback: nothing playing")

	// ErrClosed is returned when enqueueing onto a manager that has
	// been shut down.
	ErrClosed = errors.New("playback: closed")
)
