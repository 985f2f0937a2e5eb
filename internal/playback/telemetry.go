package playback

import (
	"encoding/json"
	"time"

	"github.com/wavecue/wavecue-core/internal/infrastructure/influxdb"
	"github.com/wavecue/wavecue-core/internal/infrastructure/mqtt"
)

// EventPublisher is the slice of the MQTT client the telemetry
// adapter needs.
type EventPublisher interface {
	PublishEvent(topic string, payload []byte) error
}

// MetricsWriter is the slice of the InfluxDB client the telemetry
// adapter needs.
type MetricsWriter interface {
	WritePlayback(scopeID, soundName, requester string, success bool)
	WriteQueueDepth(scopeID string, depth int)
}

var (
	_ EventPublisher = (*mqtt.Client)(nil)
	_ MetricsWriter  = (*influxdb.Client)(nil)
)

// playbackEvent is the JSON payload published on playback topics.
type playbackEvent struct {
	ScopeID   string `json:"scope_id"`
	SoundName string `json:"sound_name"`
	Requester string `json:"requester"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// TelemetryAdapter fans playback notifications out to MQTT and
// InfluxDB. Either sink may be nil, in which case it is skipped.
type TelemetryAdapter struct {
	publisher EventPublisher
	metrics   MetricsWriter
	topics    mqtt.Topics
	logger    Logger
}

// NewTelemetryAdapter creates an adapter over the given sinks.
func NewTelemetryAdapter(publisher EventPublisher, metrics MetricsWriter) *TelemetryAdapter {
	return &TelemetryAdapter{
		publisher: publisher,
		metrics:   metrics,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the adapter.
func (a *TelemetryAdapter) SetLogger(logger Logger) {
	a.logger = logger
}

// PlaybackFinished publishes a playback event and records the metric.
func (a *TelemetryAdapter) PlaybackFinished(scopeID, soundName, requester string, success bool) {
	if a.metrics != nil {
		a.metrics.WritePlayback(scopeID, soundName, requester, success)
	}
	if a.publisher == nil {
		return
	}

	payload, err := json.Marshal(playbackEvent{
		ScopeID:   scopeID,
		SoundName: soundName,
		Requester: requester,
		Success:   success,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		a.logger.Error("playback event marshal failed", "error", err)
		return
	}
	if err := a.publisher.PublishEvent(a.topics.PlaybackEvent(scopeID), payload); err != nil {
		a.logger.Warn("playback event publish failed", "scope_id", scopeID, "error", err)
	}
}

// QueueDepth records the queue depth metric.
func (a *TelemetryAdapter) QueueDepth(scopeID string, depth int) {
	if a.metrics != nil {
		a.metrics.WriteQueueDepth(scopeID, depth)
	}
}
