// Package platform defines the chat-platform gateway abstraction for
// Wavecue Core.
//
// The automation engine and playback queues never talk to a platform
// SDK directly. They depend on the Client and VoiceConn interfaces
// here, fed by the gateway's voice-state updates. This keeps the
// domain packages testable with in-memory fakes and independent of
// any one platform's wire protocol.
//
// # Key Types
//
//   - Member: a user in a scope, with display name and role ids
//   - VoiceState: one member's voice presence (room, mute/deaf flags)
//   - VoiceStateUpdate: a before/after pair consumed by the classifier
//   - Client: channel listing, member lookup, messaging, voice connect
//   - VoiceConn: a single open voice connection with async playback
package platform
