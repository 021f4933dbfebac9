// Package telemetry implements the telemetry hub for the lift control container.
//
// The hub turns unit notifications (lamps, passenger transfers, tints, door
// shifts and positions) into events, fans them out to SSE clients and keeps
// the last N events per unit for reconnection with Last-Event-ID.
package telemetry
