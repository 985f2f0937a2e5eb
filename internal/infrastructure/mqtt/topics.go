package mqtt

import "fmt"

// Topic prefixes for Wavecue MQTT telemetry.
//
// All event topics use the scheme: wavecue/event/{kind}/{scope_id}
const (
	// TopicPrefixEvent is the base for all telemetry event topics.
	TopicPrefixEvent = "wavecue/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "wavecue/system"
)

// Topics provides builders for Wavecue MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.RoutineEvent("scope-123")
//	// Returns: "wavecue/event/routine/scope-123"
type Topics struct{}

// RoutineEvent returns the topic for routine firing events in a scope.
//
// Example: wavecue/event/routine/scope-123
func (Topics) RoutineEvent(scopeID string) string {
	return fmt.Sprintf("%s/routine/%s", TopicPrefixEvent, scopeID)
}

// PlaybackEvent returns the topic for playback activity events in a scope.
//
// Example: wavecue/event/playback/scope-123
func (Topics) PlaybackEvent(scopeID string) string {
	return fmt.Sprintf("%s/playback/%s", TopicPrefixEvent, scopeID)
}

// SystemStatus returns the topic for service online/offline status.
//
// Example: wavecue/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
