// Package influxdb provides time-series metric storage for Wavecue Core.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking batched writes for playback and routine metrics
//   - Connection health monitoring
//
// # Measurements
//
//   - playback: one point per sound played (scope, sound, requester, success)
//   - routine_fired: one point per routine firing (scope, routine, trigger type)
//   - queue_depth: periodic queue depth samples per scope
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // Metrics are optional; continue without them
//	}
//	defer client.Close()
//
//	client.WritePlayback("scope-123", "airhorn", "Routine", true)
//
// Writes are fire-and-forget. Errors surface via SetOnError.
package influxdb
