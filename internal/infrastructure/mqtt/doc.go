// Package mqtt provides MQTT client connectivity for Wavecue Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Telemetry event publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Wavecue publishes telemetry events (routine firings, playback
// activity) and its own online/offline status to the broker so that
// external systems can observe what the service is doing without
// polling the HTTP API.
//
//	Wavecue Core → MQTT Broker → External subscribers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.RoutineEvent("scope-123")
//	client.PublishEvent(topic, payload)
package mqtt
