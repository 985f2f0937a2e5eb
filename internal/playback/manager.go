package playback

import (
	"context"
	"sync"
	"time"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// markPlayedTimeout bounds the play-count write that follows a
// successful playback.
const markPlayedTimeout = 5 * time.Second

// SoundMarker records that a sound was played to completion.
type SoundMarker interface {
	MarkPlayed(ctx context.Context, scopeID, name string) error
}

// Manager owns one Player per scope, created lazily on first enqueue.
type Manager struct {
	client    platform.Client
	cfg       Config
	logger    Logger
	telemetry Telemetry
	marker    SoundMarker

	mu      sync.Mutex
	players map[string]*Player
	closed  bool
}

// NewManager creates a playback manager.
func NewManager(client platform.Client, cfg Config) *Manager {
	return &Manager{
		client:  client,
		cfg:     cfg,
		logger:  noopLogger{},
		players: make(map[string]*Player),
	}
}

// SetLogger sets the logger for the manager and all future players.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetTelemetry sets an optional telemetry sink.
func (m *Manager) SetTelemetry(t Telemetry) {
	m.telemetry = t
}

// SetSoundMarker sets the collaborator that records play counts.
func (m *Manager) SetSoundMarker(marker SoundMarker) {
	m.marker = marker
}

// Enqueue queues a sound for the scope's player and returns its
// 1-based queue position.
func (m *Manager) Enqueue(ctx context.Context, scopeID, sourcePath, soundName, requester, targetChannelID string) (int, error) {
	player, err := m.player(scopeID)
	if err != nil {
		return 0, err
	}

	position := player.Enqueue(Item{
		SoundName: soundName,
		Path:      sourcePath,
		Requester: requester,
		ChannelID: targetChannelID,
	})
	return position, nil
}

// Skip stops the currently playing item in the scope, if any.
func (m *Manager) Skip(scopeID string) error {
	player, ok := m.existing(scopeID)
	if !ok {
		return ErrNothingPlaying
	}
	return player.Skip()
}

// Stop clears the scope's queue and stops the current item.
func (m *Manager) Stop(scopeID string) error {
	player, ok := m.existing(scopeID)
	if !ok {
		return ErrNotConnected
	}
	player.Stop()
	return nil
}

// QueueInfo returns the scope's player state, or a disconnected
// snapshot when no player exists yet.
func (m *Manager) QueueInfo(scopeID string) Info {
	player, ok := m.existing(scopeID)
	if !ok {
		return Info{ScopeID: scopeID, Queue: []Item{}}
	}
	return player.Info()
}

// CheckAlone disconnects the scope's player when no human is left in
// its voice channel. Intended to run on member-leave events.
func (m *Manager) CheckAlone(ctx context.Context, scopeID string) error {
	player, ok := m.existing(scopeID)
	if !ok {
		return nil
	}
	channelID, connected := player.ConnectedChannel()
	if !connected {
		return nil
	}

	members, err := m.client.ChannelMembers(ctx, channelID)
	if err != nil {
		return err
	}
	for _, member := range members {
		if !member.Bot {
			return nil
		}
	}

	m.logger.Info("alone in channel, disconnecting",
		"scope_id", scopeID, "channel_id", channelID)
	return player.Disconnect(ctx)
}

// DisconnectAll tears down every live player. Used at shutdown.
func (m *Manager) DisconnectAll(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	for _, p := range players {
		if err := p.Disconnect(ctx); err != nil {
			m.logger.Warn("disconnect failed on shutdown", "error", err)
		}
	}
}

func (m *Manager) player(scopeID string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if p, ok := m.players[scopeID]; ok {
		return p, nil
	}

	p := NewPlayer(scopeID, m.client, m.cfg)
	p.SetLogger(m.logger)
	p.SetTelemetry(&playerTelemetry{manager: m, scopeID: scopeID})
	m.players[scopeID] = p
	return p, nil
}

func (m *Manager) existing(scopeID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[scopeID]
	return p, ok
}

// playerTelemetry forwards player notifications to the manager's sink
// and bumps play counts on success.
type playerTelemetry struct {
	manager *Manager
	scopeID string
}

func (t *playerTelemetry) PlaybackFinished(scopeID, soundName, requester string, success bool) {
	if success && t.manager.marker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), markPlayedTimeout)
		if err := t.manager.marker.MarkPlayed(ctx, scopeID, soundName); err != nil {
			t.manager.logger.Warn("play count update failed",
				"scope_id", scopeID, "sound", soundName, "error", err)
		}
		cancel()
	}
	if t.manager.telemetry != nil {
		t.manager.telemetry.PlaybackFinished(scopeID, soundName, requester, success)
	}
}

func (t *playerTelemetry) QueueDepth(scopeID string, depth int) {
	if t.manager.telemetry != nil {
		t.manager.telemetry.QueueDepth(scopeID, depth)
	}
}
