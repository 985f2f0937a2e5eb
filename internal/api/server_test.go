package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wavecue/wavecue-core/internal/infrastructure/config"
	"github.com/wavecue/wavecue-core/internal/infrastructure/database"
	"github.com/wavecue/wavecue-core/internal/infrastructure/logging"
	"github.com/wavecue/wavecue-core/internal/platform"
	"github.com/wavecue/wavecue-core/internal/playback"
	"github.com/wavecue/wavecue-core/internal/routine"
	"github.com/wavecue/wavecue-core/internal/sound"

	_ "github.com/wavecue/wavecue-core/migrations"
)

// ─── Test Helpers ───────────────────────────────────────────────────────────

// stubClient is a platform client that satisfies the interface without
// reaching anything; API tests never drive real playback.
type stubClient struct{}

func (stubClient) Channels(context.Context, string) ([]platform.Channel, error) {
	return nil, nil
}

func (stubClient) ChannelMembers(context.Context, string) ([]platform.Member, error) {
	return nil, nil
}

func (stubClient) VoiceState(context.Context, string, string) (platform.VoiceState, error) {
	return platform.VoiceState{}, nil
}

func (stubClient) SendMessage(context.Context, string, string) error {
	return nil
}

func (stubClient) JoinVoice(context.Context, string, string) (platform.VoiceConn, error) {
	return nil, platform.ErrConnectFailed
}

// recordingSink captures voice-state updates handed to the event endpoint.
type recordingSink struct {
	mu      sync.Mutex
	updates []platform.VoiceStateUpdate
}

func (s *recordingSink) HandleVoiceUpdate(_ context.Context, update platform.VoiceStateUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type testEnv struct {
	server    *Server
	router    http.Handler
	catalogue *sound.Catalogue
	soundsDir string
	sink      *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(dir, "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	soundsDir := filepath.Join(dir, "sounds")
	catalogue := sound.NewCatalogue(sound.NewSQLiteRepository(db.DB), sound.Config{
		Dir:                soundsDir,
		AllowedExtensions:  []string{".mp3", ".wav"},
		MaxDurationSeconds: 30,
		MaxFileSizeMB:      5,
		MaxNameLength:      32,
	})

	client := stubClient{}
	players := playback.NewManager(client, playback.Config{Volume: 0.7})
	executor := routine.NewExecutor(client, catalogue, players)
	manager := routine.NewManager(routine.NewSQLiteRepository(db.DB), executor, routine.NewEvaluator())

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")

	sink := &recordingSink{}
	server, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:    logger,
		Routines:  manager,
		Playback:  players,
		Catalogue: catalogue,
		Events:    sink,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	return &testEnv{
		server:    server,
		router:    server.buildRouter(),
		catalogue: catalogue,
		soundsDir: soundsDir,
		sink:      sink,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestCreateRoutineFromDefinition(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines",
		`{"name": "greeter", "definition": "on join do play airhorn"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created routine.Routine
	decodeBody(t, rec, &created)
	if created.ID == "" || created.Name != "greeter" || !created.Enabled {
		t.Errorf("created = %+v", created)
	}
	if created.Trigger.Kind != routine.TriggerEvent {
		t.Errorf("trigger kind = %q, want event", created.Trigger.Kind)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/scopes/scope-1/routines/", "")
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &list)
	if list.Count != 1 {
		t.Errorf("list count = %d, want 1", list.Count)
	}
}

func TestCreateRoutineBadDefinition(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines",
		`{"name": "broken", "definition": "whenever something happens"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var apiErr Error
	decodeBody(t, rec, &apiErr)
	if apiErr.Code != ErrCodeBadRequest {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeBadRequest)
	}
}

func TestCreateRoutineStructured(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines", `{
		"name": "hourly chime",
		"trigger": {"kind": "timer", "interval_minutes": 60},
		"actions": [{"type": "play", "sound_name": "chime"}]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created routine.Routine
	decodeBody(t, rec, &created)
	if created.Trigger.IntervalMinutes != 60 {
		t.Errorf("interval = %d, want 60", created.Trigger.IntervalMinutes)
	}
}

func TestCreateRoutineWithExpression(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines", `{
		"name": "weekend greeter",
		"trigger": {"kind": "event", "event_type": "join"},
		"condition_pool": [
			{"type": "condition", "kind": "time_range", "operator": "==", "value": "18:00-23:00"},
			{"type": "condition", "kind": "channel_id", "operator": "==", "value": "lounge"}
		],
		"expression": "C1 AND C2",
		"actions": [{"type": "play", "sound_name": "welcome"}]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created routine.Routine
	decodeBody(t, rec, &created)
	if created.Conditions == nil {
		t.Fatal("created routine has no conditions")
	}
	if created.Conditions.Type != routine.NodeAnd {
		t.Errorf("root node = %q, want and", created.Conditions.Type)
	}
	if len(created.Conditions.Children) != 2 {
		t.Errorf("children = %d, want 2", len(created.Conditions.Children))
	}
}

func TestCreateRoutineBadExpression(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines", `{
		"name": "broken",
		"trigger": {"kind": "event", "event_type": "join"},
		"condition_pool": [
			{"type": "condition", "kind": "channel_id", "operator": "==", "value": "lounge"}
		],
		"expression": "C1 AND C5",
		"actions": [{"type": "play", "sound_name": "welcome"}]
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var apiErr Error
	decodeBody(t, rec, &apiErr)
	if apiErr.Code != ErrCodeBadRequest {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeBadRequest)
	}
}

func TestCreateRoutineInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRoutineNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/scopes/scope-1/routines/missing/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteRoutine(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines",
		`{"name": "shortlived", "definition": "timer 30s do play beep"}`)
	var created routine.Routine
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodDelete, "/api/v1/scopes/scope-1/routines/"+created.ID+"/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/scopes/scope-1/routines/"+created.ID+"/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestToggleRoutine(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines",
		`{"name": "toggled", "definition": "timer 5m do play beep"}`)
	var created routine.Routine
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/routines/"+created.ID+"/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	decodeBody(t, rec, &body)
	if body.Enabled {
		t.Error("enabled = true after toggle, want false")
	}
}

func TestQueueInfoEmptyScope(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/scopes/scope-1/queue/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info playback.Info
	decodeBody(t, rec, &info)
	if info.Connected || info.Playing || len(info.Queue) != 0 {
		t.Errorf("info = %+v, want empty disconnected snapshot", info)
	}
}

func TestSkipNothingPlaying(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/queue/skip", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListSounds(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.catalogue.Add(context.Background(), "scope-1", "airhorn", "airhorn.mp3"); err != nil {
		t.Fatalf("seeding sound: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/scopes/scope-1/sounds/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestSyncSounds(t *testing.T) {
	env := newTestEnv(t)

	scopeDir := filepath.Join(env.soundsDir, "scope-1")
	if err := os.MkdirAll(scopeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scopeDir, "New Horn.mp3"), []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/sounds/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Added int `json:"added"`
	}
	decodeBody(t, rec, &body)
	if body.Added != 1 {
		t.Errorf("added = %d, want 1", body.Added)
	}
}

func TestVoiceEventAccepted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/events/voice", `{
		"scope_id": "scope-1",
		"member": {"id": "u1", "display_name": "Alice"},
		"before": {"channel_id": "room-1"},
		"after": {}
	}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	if env.sink.count() != 1 {
		t.Fatalf("sink received %d updates, want 1", env.sink.count())
	}
	got := env.sink.updates[0]
	if got.ScopeID != "scope-1" || got.Member.ID != "u1" {
		t.Errorf("update = %+v", got)
	}
	if !got.Before.InChannel() || got.After.InChannel() {
		t.Errorf("before/after = %+v / %+v, want leave", got.Before, got.After)
	}
}

func TestVoiceEventMissingScope(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/events/voice",
		`{"member": {"id": "u1"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if env.sink.count() != 0 {
		t.Errorf("sink received %d updates, want 0", env.sink.count())
	}
}

func TestIgnoreChannel(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/channels/afk-room/ignore", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ignore status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/scopes/scope-1/channels/afk-room/unignore", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unignore status = %d: %s", rec.Code, rec.Body.String())
	}
}
