package routine

import "github.com/wavecue/wavecue-core/internal/platform"

// Classify converts a raw voice-state transition into its ordered
// semantic events. Updates from bot accounts yield nothing.
//
// Channel rules:
//   - disconnected → connected: Join(after)
//   - connected → disconnected: Leave(before)
//   - connected → different room: Leave(before), Join(after), Move(after),
//     exactly those three, in that order
//   - same room: no channel events
//
// Flag rules: each of mute/deafen/stream/video toggling false→true
// emits its Start event, true→false its Stop event, on the after room
// (or the before room when the member just disconnected). Flag events
// are independent of channel events.
func Classify(update platform.VoiceStateUpdate) []Event {
	if update.Member.Bot {
		return nil
	}

	var events []Event

	before, after := update.Before, update.After

	switch {
	case !before.InChannel() && after.InChannel():
		events = append(events, Event{Type: EventJoin, ChannelID: *after.ChannelID})

	case before.InChannel() && !after.InChannel():
		events = append(events, Event{Type: EventLeave, ChannelID: *before.ChannelID})

	case before.InChannel() && after.InChannel() && !before.SameChannel(after):
		events = append(events,
			Event{Type: EventLeave, ChannelID: *before.ChannelID},
			Event{Type: EventJoin, ChannelID: *after.ChannelID},
			Event{Type: EventMove, ChannelID: *after.ChannelID},
		)
	}

	// Flag events land on the room the member is in now, falling back
	// to the room they just left.
	flagChannel := ""
	if after.InChannel() {
		flagChannel = *after.ChannelID
	} else if before.InChannel() {
		flagChannel = *before.ChannelID
	}

	events = appendFlagEvent(events, before.SelfMute, after.SelfMute,
		EventMuteStart, EventMuteStop, flagChannel)
	events = appendFlagEvent(events, before.SelfDeaf, after.SelfDeaf,
		EventDeafenStart, EventDeafenStop, flagChannel)
	events = appendFlagEvent(events, before.SelfStream, after.SelfStream,
		EventStreamStart, EventStreamStop, flagChannel)
	events = appendFlagEvent(events, before.SelfVideo, after.SelfVideo,
		EventVideoStart, EventVideoStop, flagChannel)

	return events
}

// appendFlagEvent appends a Start or Stop event when a flag toggled.
func appendFlagEvent(events []Event, before, after bool, start, stop EventType, channelID string) []Event {
	switch {
	case !before && after:
		return append(events, Event{Type: start, ChannelID: channelID})
	case before && !after:
		return append(events, Event{Type: stop, ChannelID: channelID})
	}
	return events
}
