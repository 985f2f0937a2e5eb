package platform

import "errors"

// Domain errors for the platform package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, platform.ErrChannelNotFound) {
//	    // handle missing room
//	}
var (
	// ErrChannelNotFound is returned when a channel ID does not exist.
	ErrChannelNotFound = errors.New("platform: channel not found")

	// ErrMemberNotFound is returned when a member ID does not exist in the scope.
	ErrMemberNotFound = errors.New("platform: member not found")

	// ErrConnectFailed is returned when a voice connection cannot be established.
	ErrConnectFailed = errors.New("platform: voice connect failed")

	// ErrNotConnected is returned when an operation requires an open voice connection.
	ErrNotConnected = errors.New("platform: not connected to voice")
)
