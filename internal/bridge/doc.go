// Package bridge connects the polling engine to an MQTT broker.
//
// Outbound, every committed entity value is published retained to
// <prefix>/<node>/state/<entity_id> and every confirmed fault to
// <prefix>/<node>/event/fault. Publishing never blocks the engine loop:
// messages pass through a bounded outbox drained by a worker goroutine,
// and a full outbox drops the message with a warning.
//
// Inbound, the bridge subscribes to:
//
//	<prefix>/<node>/set/<entity_id>   {"value": 45} or a bare scalar
//	<prefix>/<node>/command/custom    "31 00 FA 01 12 00 00"
//	<prefix>/<node>/command/dhw_run   any payload
//	<prefix>/<node>/command/dump      any payload
//
// A HealthReporter publishes the loop statistics to <prefix>/<node>/health
// at a fixed interval.
package bridge
