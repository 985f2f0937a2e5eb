package platform

import "fmt"

// Member represents a user within a scope (a room group on the
// chat platform). Fields mirror what the gateway delivers; the
// automation layer only ever reads them.
type Member struct {
	// Identity
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`

	// Bot marks accounts operated by software, including this service.
	Bot bool `json:"bot"`

	// RoleIDs are the scope-level role identifiers held by the member.
	RoleIDs []string `json:"role_ids,omitempty"`
}

// Mention returns the platform mention string for the member.
//
// Example: <@184home2930>
func (m Member) Mention() string {
	return fmt.Sprintf("<@%s>", m.ID)
}

// VoiceState describes a member's presence in voice at one instant.
//
// A nil ChannelID means the member is not connected to any voice room.
type VoiceState struct {
	ChannelID *string `json:"channel_id,omitempty"`

	SelfMute   bool `json:"self_mute"`
	SelfDeaf   bool `json:"self_deaf"`
	SelfStream bool `json:"self_stream"`
	SelfVideo  bool `json:"self_video"`
}

// InChannel reports whether the state places the member in a voice room.
func (s VoiceState) InChannel() bool {
	return s.ChannelID != nil && *s.ChannelID != ""
}

// SameChannel reports whether two states reference the same voice room.
// Two disconnected states are considered the same.
func (s VoiceState) SameChannel(other VoiceState) bool {
	if !s.InChannel() && !other.InChannel() {
		return true
	}
	if s.InChannel() != other.InChannel() {
		return false
	}
	return *s.ChannelID == *other.ChannelID
}

// Channel represents a voice room within a scope.
type Channel struct {
	ID      string `json:"id"`
	ScopeID string `json:"scope_id"`
	Name    string `json:"name"`
}

// VoiceStateUpdate is the raw gateway notification consumed by the
// event classifier: one member's voice state before and after a change.
type VoiceStateUpdate struct {
	ScopeID string     `json:"scope_id"`
	Member  Member     `json:"member"`
	Before  VoiceState `json:"before"`
	After   VoiceState `json:"after"`
}
