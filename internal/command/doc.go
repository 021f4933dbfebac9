// Package command routes dispatcher intents to unit controllers.
//
// The orchestrator validates each intent against the fleet (unit exists, floor
// in range, unit operational), applies it, writes an audit record and keeps
// the request tracker informed. Requests from the transports are held until
// their scheduled time, placed on a unit and expanded into a job plan.
package command
