// Package api implements the HTTP REST API and WebSocket server of the
// Rotex CAN core.
//
// This package provides:
//   - REST endpoints to read entity values and write operator values
//   - Operator commands: freeform hex requests, DHW run and entity dump
//   - A WebSocket hub that pushes committed values and fault confirmations
//   - The Prometheus scrape endpoint and a JSON runtime summary
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Every request is turned into a command on the engine loop, so handlers
// never touch entity state directly. The Hub implements engine.Publisher and
// is registered alongside the MQTT bridge.
//
// # Graceful Degradation
//
// The server runs without MQTT. When the engine loop has stopped, reads and
// writes answer 503.
package api
