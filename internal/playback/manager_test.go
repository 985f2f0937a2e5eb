package playback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wavecue/wavecue-core/internal/platform"
)

type fakeMarker struct {
	mu     sync.Mutex
	marked []string
}

func (m *fakeMarker) MarkPlayed(_ context.Context, scopeID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, scopeID+"/"+name)
	return nil
}

func (m *fakeMarker) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.marked...)
}

func botMember(id string) platform.Member {
	return platform.Member{ID: id, DisplayName: id, Bot: true}
}

func humanMember(id string) platform.Member {
	return platform.Member{ID: id, DisplayName: id}
}

func setChannelMembers(client *fakeVoiceClient, channelID string, members ...platform.Member) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.members == nil {
		client.members = make(map[string][]platform.Member)
	}
	client.members[channelID] = members
}

func TestManagerEnqueueCreatesPlayerPerScope(t *testing.T) {
	client := newFakeVoiceClient()
	m := NewManager(client, testPlayerConfig())

	pos, err := m.Enqueue(context.Background(), "scope-1", "/sounds/a.mp3", "a", "Routine", "room-1")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if pos != 1 {
		t.Errorf("position = %d, want 1", pos)
	}
	if _, err := m.Enqueue(context.Background(), "scope-2", "/sounds/b.mp3", "b", "Routine", "room-9"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	for _, scopeID := range []string{"scope-1", "scope-2"} {
		conn := waitForConn(t, client, scopeID)
		conn.waitForPlay(t)
		conn.finish(nil)
	}

	if got := client.conn("scope-1").ChannelID(); got != "room-1" {
		t.Errorf("scope-1 channel = %q, want room-1", got)
	}
	if got := client.conn("scope-2").ChannelID(); got != "room-9" {
		t.Errorf("scope-2 channel = %q, want room-9", got)
	}
}

func TestManagerMarksPlayedOnSuccess(t *testing.T) {
	client := newFakeVoiceClient()
	marker := &fakeMarker{}

	m := NewManager(client, testPlayerConfig())
	m.SetSoundMarker(marker)

	if _, err := m.Enqueue(context.Background(), "scope-1", "/sounds/airhorn.mp3", "airhorn", "Routine", "room-1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	conn := waitForConn(t, client, "scope-1")
	conn.waitForPlay(t)
	conn.finish(nil)

	waitFor(t, "play count update", func() bool { return len(marker.all()) == 1 })
	if got := marker.all()[0]; got != "scope-1/airhorn" {
		t.Errorf("marked = %q, want scope-1/airhorn", got)
	}
}

func TestManagerDoesNotMarkFailedPlays(t *testing.T) {
	client := newFakeVoiceClient()
	marker := &fakeMarker{}
	telemetry := &recordingTelemetry{}

	m := NewManager(client, testPlayerConfig())
	m.SetSoundMarker(marker)
	m.SetTelemetry(telemetry)

	if _, err := m.Enqueue(context.Background(), "scope-1", "/sounds/x.mp3", "x", "Routine", "room-1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	conn := waitForConn(t, client, "scope-1")
	conn.waitForPlay(t)
	conn.finish(errors.New("stream reset"))

	waitFor(t, "failure reported", func() bool { return len(telemetry.finishedEvents()) == 1 })
	if got := len(marker.all()); got != 0 {
		t.Errorf("marked %d sounds, want 0 after failed play", got)
	}
}

func TestManagerQueueInfoUnknownScope(t *testing.T) {
	m := NewManager(newFakeVoiceClient(), testPlayerConfig())

	info := m.QueueInfo("scope-1")
	if info.Connected || info.Playing || len(info.Queue) != 0 {
		t.Errorf("QueueInfo() = %+v, want empty disconnected snapshot", info)
	}
}

func TestManagerSkipAndStopUnknownScope(t *testing.T) {
	m := NewManager(newFakeVoiceClient(), testPlayerConfig())

	if err := m.Skip("scope-1"); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("Skip() error = %v, want ErrNothingPlaying", err)
	}
	if err := m.Stop("scope-1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Stop() error = %v, want ErrNotConnected", err)
	}
}

func TestManagerCheckAloneDisconnects(t *testing.T) {
	client := newFakeVoiceClient()
	m := NewManager(client, testPlayerConfig())

	if _, err := m.Enqueue(context.Background(), "scope-1", "/sounds/a.mp3", "a", "Routine", "room-1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	conn := waitForConn(t, client, "scope-1")
	conn.waitForPlay(t)
	conn.finish(nil)
	waitFor(t, "player idle", func() bool { return !m.QueueInfo("scope-1").Playing })

	// Only this service's own account remains in the room.
	setChannelMembers(client, "room-1", botMember("self"))

	if err := m.CheckAlone(context.Background(), "scope-1"); err != nil {
		t.Fatalf("CheckAlone() error = %v", err)
	}
	if !conn.isDisconnected() {
		t.Error("connection still up, want disconnect when alone")
	}
}

func TestManagerCheckAloneStaysWithHumans(t *testing.T) {
	client := newFakeVoiceClient()
	m := NewManager(client, testPlayerConfig())

	if _, err := m.Enqueue(context.Background(), "scope-1", "/sounds/a.mp3", "a", "Routine", "room-1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	conn := waitForConn(t, client, "scope-1")
	conn.waitForPlay(t)
	conn.finish(nil)
	waitFor(t, "player idle", func() bool { return !m.QueueInfo("scope-1").Playing })

	setChannelMembers(client, "room-1", botMember("self"), humanMember("u1"))

	if err := m.CheckAlone(context.Background(), "scope-1"); err != nil {
		t.Fatalf("CheckAlone() error = %v", err)
	}
	if conn.isDisconnected() {
		t.Error("disconnected with a human still in the room")
	}
}

func TestManagerDisconnectAll(t *testing.T) {
	client := newFakeVoiceClient()
	m := NewManager(client, testPlayerConfig())

	if _, err := m.Enqueue(context.Background(), "scope-1", "/sounds/a.mp3", "a", "Routine", "room-1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	conn := waitForConn(t, client, "scope-1")
	conn.waitForPlay(t)
	conn.finish(nil)

	m.DisconnectAll(context.Background())

	if !conn.isDisconnected() {
		t.Error("connection still up after DisconnectAll")
	}
	if _, err := m.Enqueue(context.Background(), "scope-1", "/sounds/b.mp3", "b", "Routine", "room-1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue() after shutdown error = %v, want ErrClosed", err)
	}
}
