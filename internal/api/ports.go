package api

import (
	"context"
	"net/http"

	"github.com/lift-control/lcc/internal/command"
	"github.com/lift-control/lcc/internal/fleet"
	"github.com/lift-control/lcc/internal/request"
	"github.com/lift-control/lcc/internal/telemetry"
	"github.com/lift-control/lcc/internal/unit"
)

// OrchestratorPort defines the minimal interface the API needs from the orchestrator.
type OrchestratorPort interface {
	Units() *fleet.UnitList
	Unit(ctx context.Context, unitID int) (*unit.Status, error)
	Move(ctx context.Context, unitID, floor int) error
	Load(ctx context.Context, unitID, count int) error
	Unload(ctx context.Context, unitID, count int) error
	Open(ctx context.Context, unitID int) error
	Close(ctx context.Context, unitID int) error
	InjectFault(ctx context.Context, unitID int, fault request.Fault) error
	Dispatch(ctx context.Context, req *request.Request) (int, error)
	Enqueue(req *request.Request)
	Stats() command.Stats
}

// TelemetryPort defines the minimal interface the API needs from the telemetry hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	Dropped() int64
}

// Compile-time assertions for port conformance
var _ OrchestratorPort = (*command.Orchestrator)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
