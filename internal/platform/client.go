package platform

import "context"

// Client is the narrow surface of the chat-platform gateway used by
// the automation and playback layers. Implementations wrap whatever
// SDK speaks to the platform; tests substitute in-memory fakes.
type Client interface {
	// Channels returns the voice rooms of a scope.
	Channels(ctx context.Context, scopeID string) ([]Channel, error)

	// ChannelMembers returns the members currently connected to a
	// voice room. The service's own account is included; callers
	// filter on Member.Bot where needed.
	ChannelMembers(ctx context.Context, channelID string) ([]Member, error)

	// VoiceState returns a member's current voice state within a scope.
	VoiceState(ctx context.Context, scopeID, memberID string) (VoiceState, error)

	// SendMessage posts a text message to a channel.
	SendMessage(ctx context.Context, channelID, content string) error

	// JoinVoice connects to a voice room, or moves the existing
	// connection for the scope if one is already open.
	JoinVoice(ctx context.Context, scopeID, channelID string) (VoiceConn, error)
}

// VoiceConn is an open voice connection to a single room.
//
// Implementations must be safe for concurrent use: the playback
// dispatcher calls Play from one goroutine while Stop and skip
// requests arrive from others.
type VoiceConn interface {
	// Play starts transmitting the audio file at path. onComplete is
	// invoked exactly once from the transport goroutine when playback
	// finishes or is stopped, with a nil error on clean completion.
	Play(path string, volume float64, onComplete func(error)) error

	// Stop aborts the current transmission, if any. The pending
	// onComplete still fires.
	Stop()

	// IsPlaying reports whether audio is currently being transmitted.
	IsPlaying() bool

	// ChannelID returns the room this connection is currently in.
	ChannelID() string

	// Disconnect tears the connection down.
	Disconnect(ctx context.Context) error
}
