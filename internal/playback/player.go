package playback

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// Logger defines the logging interface used by the playback layer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Telemetry receives fire-and-forget playback notifications.
// Implementations must not block.
type Telemetry interface {
	PlaybackFinished(scopeID, soundName, requester string, success bool)
	QueueDepth(scopeID string, depth int)
}

// Item is one queued playback request.
type Item struct {
	ID        string `json:"id"`
	SoundName string `json:"sound_name"`
	Path      string `json:"-"`
	Requester string `json:"requester"`
	ChannelID string `json:"channel_id"`
}

// Config carries per-player tunables.
type Config struct {
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	Volume         float64
}

// Player owns one scope's playback queue and voice connection.
//
// Dispatch runs on one goroutine at a time: the head item is peeked,
// the connection established, and only then is the head popped, so a
// concurrent Stop between peek and pop simply clears the queue out
// from under the dispatcher.
type Player struct {
	scopeID   string
	client    platform.Client
	cfg       Config
	logger    Logger
	telemetry Telemetry

	mu          sync.Mutex
	queue       []Item
	conn        platform.VoiceConn
	playing     bool
	current     *Item
	dispatching bool
	idleTimer   *time.Timer
}

// NewPlayer creates a player for one scope.
func NewPlayer(scopeID string, client platform.Client, cfg Config) *Player {
	if cfg.Volume <= 0 {
		cfg.Volume = 1.0
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Player{
		scopeID: scopeID,
		client:  client,
		cfg:     cfg,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the player.
func (p *Player) SetLogger(logger Logger) {
	p.logger = logger
}

// SetTelemetry sets an optional telemetry sink.
func (p *Player) SetTelemetry(t Telemetry) {
	p.telemetry = t
}

// Enqueue appends an item to the queue and returns its 1-based
// position. Adding always cancels a pending idle disconnect, and kicks
// the dispatcher if it is not already running.
func (p *Player) Enqueue(item Item) int {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	p.mu.Lock()
	p.queue = append(p.queue, item)
	position := len(p.queue)
	p.cancelIdleTimerLocked()

	start := !p.dispatching
	if start {
		p.dispatching = true
	}
	depth := len(p.queue)
	p.mu.Unlock()

	if p.telemetry != nil {
		p.telemetry.QueueDepth(p.scopeID, depth)
	}
	if start {
		go p.dispatch()
	}

	p.logger.Debug("item queued",
		"scope_id", p.scopeID, "sound", item.SoundName, "position", position)
	return position
}

// dispatch drains the queue sequentially. It exits when the queue is
// empty, leaving the idle-disconnect timer armed if still connected.
func (p *Player) dispatch() {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("playback dispatch panicked", "scope_id", p.scopeID, "panic", rec)
			p.mu.Lock()
			p.playing = false
			p.current = nil
			p.dispatching = false
			p.mu.Unlock()
		}
	}()

	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.dispatching = false
			if p.conn != nil {
				p.armIdleTimerLocked()
			}
			p.mu.Unlock()
			return
		}
		head := p.queue[0] // peek; pop only after the connect succeeds
		p.mu.Unlock()

		conn, err := p.connect(head.ChannelID)
		if err != nil {
			p.logger.Warn("voice connect failed, dropping item",
				"scope_id", p.scopeID, "channel_id", head.ChannelID,
				"sound", head.SoundName, "error", err)
			p.dropHead(head.ID)
			p.reportFinished(head, false)
			continue
		}

		p.mu.Lock()
		// Stop may have cleared the queue while we were connecting.
		if len(p.queue) == 0 || p.queue[0].ID != head.ID {
			p.mu.Unlock()
			continue
		}
		p.queue = p.queue[1:]
		p.playing = true
		p.current = &head
		p.mu.Unlock()

		playErr := p.playAndWait(conn, head)

		p.mu.Lock()
		p.playing = false
		p.current = nil
		p.mu.Unlock()

		p.reportFinished(head, playErr == nil)
		if playErr != nil {
			p.logger.Warn("playback failed",
				"scope_id", p.scopeID, "sound", head.SoundName, "error", playErr)
		}
	}
}

// playAndWait starts transmission and blocks until the transport's
// completion callback hands the result over. The hand-off channel is
// buffered, so the callback never blocks on the dispatcher: a transport
// that calls back synchronously from Play, or calls back twice, cannot
// wedge either side. Extra invocations are logged and dropped.
func (p *Player) playAndWait(conn platform.VoiceConn, item Item) error {
	done := make(chan error, 1)

	err := conn.Play(item.Path, p.cfg.Volume, func(playErr error) {
		select {
		case done <- playErr:
		default:
			p.logger.Warn("duplicate completion callback dropped",
				"scope_id", p.scopeID, "sound", item.SoundName)
		}
	})
	if err != nil {
		return err
	}

	return <-done
}

// connect returns the existing connection when it is already in the
// target room, otherwise joins (or moves) and cancels any pending idle
// disconnect.
func (p *Player) connect(channelID string) (platform.VoiceConn, error) {
	p.mu.Lock()
	if p.conn != nil && p.conn.ChannelID() == channelID {
		conn := p.conn
		p.cancelIdleTimerLocked()
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectTimeout)
	defer cancel()

	conn, err := p.client.JoinVoice(ctx, p.scopeID, channelID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.conn = conn
	p.cancelIdleTimerLocked()
	p.mu.Unlock()

	p.logger.Info("voice connected", "scope_id", p.scopeID, "channel_id", channelID)
	return conn, nil
}

// dropHead removes the head item if it is still the given one.
func (p *Player) dropHead(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) > 0 && p.queue[0].ID == id {
		p.queue = p.queue[1:]
	}
}

// Skip stops the current item only; the dispatcher moves on to the
// next queued item.
func (p *Player) Skip() error {
	p.mu.Lock()
	conn, playing := p.conn, p.playing
	p.mu.Unlock()

	if !playing || conn == nil {
		return ErrNothingPlaying
	}
	conn.Stop()
	return nil
}

// Stop clears the queue and stops the current item. The connection
// stays up; the idle-disconnect timer will reap it.
func (p *Player) Stop() {
	p.mu.Lock()
	p.queue = nil
	conn, playing := p.conn, p.playing
	p.mu.Unlock()

	if playing && conn != nil {
		conn.Stop()
	}

	if p.telemetry != nil {
		p.telemetry.QueueDepth(p.scopeID, 0)
	}
	p.logger.Info("playback stopped, queue cleared", "scope_id", p.scopeID)
}

// Disconnect stops everything and tears the voice connection down.
func (p *Player) Disconnect(ctx context.Context) error {
	p.Stop()

	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.cancelIdleTimerLocked()
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Disconnect(ctx)
}

// Info describes a player's observable state.
type Info struct {
	ScopeID   string `json:"scope_id"`
	Connected bool   `json:"connected"`
	ChannelID string `json:"channel_id,omitempty"`
	Playing   bool   `json:"playing"`
	Current   *Item  `json:"current,omitempty"`
	Queue     []Item `json:"queue"`
}

// Info returns a snapshot of the player's state.
func (p *Player) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := Info{
		ScopeID:   p.scopeID,
		Connected: p.conn != nil,
		Playing:   p.playing,
		Queue:     append([]Item(nil), p.queue...),
	}
	if p.conn != nil {
		info.ChannelID = p.conn.ChannelID()
	}
	if p.current != nil {
		current := *p.current
		info.Current = &current
	}
	return info
}

// ConnectedChannel returns the room of the live connection, if any.
func (p *Player) ConnectedChannel() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return "", false
	}
	return p.conn.ChannelID(), true
}

// ─── Idle disconnect ────────────────────────────────────────────────────────

// armIdleTimerLocked schedules an idle disconnect. Caller holds p.mu.
func (p *Player) armIdleTimerLocked() {
	if p.cfg.IdleTimeout <= 0 {
		return
	}
	p.cancelIdleTimerLocked()
	p.idleTimer = time.AfterFunc(p.cfg.IdleTimeout, p.idleDisconnect)
}

// cancelIdleTimerLocked stops a pending idle disconnect. Caller holds p.mu.
func (p *Player) cancelIdleTimerLocked() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
}

// idleDisconnect fires from the timer goroutine. It only tears the
// connection down if the player is still genuinely idle.
func (p *Player) idleDisconnect() {
	p.mu.Lock()
	if p.playing || len(p.queue) > 0 || p.conn == nil {
		p.mu.Unlock()
		return
	}
	conn := p.conn
	p.conn = nil
	p.idleTimer = nil
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectTimeout)
	defer cancel()

	if err := conn.Disconnect(ctx); err != nil {
		p.logger.Warn("idle disconnect failed", "scope_id", p.scopeID, "error", err)
		return
	}
	p.logger.Info("idle disconnect", "scope_id", p.scopeID)
}

func (p *Player) reportFinished(item Item, success bool) {
	if p.telemetry != nil {
		p.telemetry.PlaybackFinished(p.scopeID, item.SoundName, item.Requester, success)
	}
}
