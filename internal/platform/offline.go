package platform

import "context"

// Offline is the placeholder client used when no gateway binding is
// wired into the process. Reads return empty results and writes fail
// with ErrNotConnected, so the engine, catalogue and ops API keep
// working while voice-dependent actions degrade gracefully.
//
// Deployments embed Wavecue behind a real gateway and inject their own
// Client; Offline exists so the process can run without one.
type Offline struct{}

// NewOffline creates the placeholder client.
func NewOffline() Offline {
	return Offline{}
}

func (Offline) Channels(context.Context, string) ([]Channel, error) {
	return nil, nil
}

func (Offline) ChannelMembers(context.Context, string) ([]Member, error) {
	return nil, nil
}

func (Offline) VoiceState(context.Context, string, string) (VoiceState, error) {
	return VoiceState{}, ErrMemberNotFound
}

func (Offline) SendMessage(context.Context, string, string) error {
	return ErrNotConnected
}

func (Offline) JoinVoice(context.Context, string, string) (VoiceConn, error) {
	return nil, ErrConnectFailed
}
