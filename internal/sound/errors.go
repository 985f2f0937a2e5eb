package sound

import "errors"

// Domain errors for the sound package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sound.ErrSoundNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSoundNotFound is returned when a sound name resolves in
	// neither the scope's catalogue nor the global one.
	ErrSoundNotFound = errors.New("sound: not found")

	// ErrSoundExists is returned when adding a sound whose name is
	// already taken within the scope.
	ErrSoundExists = errors.New("sound: already exists")

	// ErrInvalidName is returned when a sound name is empty or exceeds
	// the scope's name length limit.
	ErrInvalidName = errors.New("sound: invalid name")

	// ErrUnknownConfigKey is returned for scope config keys outside
	// the closed key set.
	ErrUnknownConfigKey = errors.New("sound: unknown config key")

	// ErrInvalidConfigValue is returned when a scope config value is
	// not a positive integer.
	ErrInvalidConfigValue = errors.New("sound: invalid config value")
)
