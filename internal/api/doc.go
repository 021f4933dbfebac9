// Package api implements the HTTP API gateway for the Lift Control Container.
//
// The gateway exposes HTTP/JSON unit commands, request intake and statistics,
// and an SSE telemetry stream, translating HTTP requests into orchestrator calls.
package api
