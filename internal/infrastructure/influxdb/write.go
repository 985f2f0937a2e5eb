package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePlayback records a completed (or failed) sound playback.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - scopeID: Scope the playback happened in
//   - soundName: Catalogue name of the sound played
//   - requester: Display label of who queued it (user name or "Routine")
//   - success: Whether the playback completed
func (c *Client) WritePlayback(scopeID, soundName, requester string, success bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"playback",
		map[string]string{
			"scope_id": scopeID,
			"sound":    soundName,
		},
		map[string]interface{}{
			"requester": requester,
			"success":   success,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRoutineFired records a routine firing.
//
// Parameters:
//   - scopeID: Scope the routine belongs to
//   - routineID: Routine identifier
//   - triggerType: What fired it ("timer", "join", "leave", "move")
//   - actionCount: Number of actions executed
func (c *Client) WriteRoutineFired(scopeID, routineID, triggerType string, actionCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"routine_fired",
		map[string]string{
			"scope_id":     scopeID,
			"routine_id":   routineID,
			"trigger_type": triggerType,
		},
		map[string]interface{}{
			"action_count": actionCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteQueueDepth records the current queue depth for a scope.
//
// Useful for spotting scopes where routines enqueue faster than
// playback drains.
func (c *Client) WriteQueueDepth(scopeID string, depth int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"queue_depth",
		map[string]string{
			"scope_id": scopeID,
		},
		map[string]interface{}{
			"depth": depth,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "wavecue-01"},
//	    map[string]interface{}{"goroutines": 42})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
