// Package api implements the HTTP REST API and WebSocket server for the
// device registry.
//
// This package provides:
//   - REST endpoints for reading device state, executing commands, and
//     querying state change history
//   - WebSocket hub for real-time device update broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API server sits between user interfaces (voice assistant frontend,
// web dashboard) and the device store. Commands arrive over REST or
// WebSocket, pass through the shared executor, and the resulting state is
// broadcast to every connected WebSocket client. Clients therefore never
// need to poll: a full snapshot arrives on connect and updates stream in
// as they happen.
//
// # Graceful Degradation
//
// The server operates without MQTT, InfluxDB, or SQLite configured —
// commands, reads, and WebSocket broadcasts all work; only the optional
// side channel, telemetry, and history endpoints are affected.
package api
