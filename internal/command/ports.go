package command

import (
	"context"
	"errors"

	"github.com/lift-control/lcc/internal/fleet"
	"github.com/lift-control/lcc/internal/unit"
)

// Fleet is the unit inventory the orchestrator works against.
type Fleet interface {
	Get(id int) (*unit.Controller, error)
	List() *fleet.UnitList
	Nearest(floor int) (*unit.Controller, error)
	Floors() int
}

// AuditLogger writes audit records.
type AuditLogger interface {
	LogAction(ctx context.Context, action string, unitID int, params map[string]interface{}, err error)
}

// Publisher publishes telemetry events for a unit.
type Publisher interface {
	PublishUnit(unitID int, eventType string, data map[string]interface{})
}

var (
	// ErrNotFound indicates a requested unit was not found.
	ErrNotFound = errors.New("NOT_FOUND")

	// ErrInvalidRange indicates a floor or count outside the allowed range.
	ErrInvalidRange = errors.New("INVALID_RANGE")

	// ErrUnavailable indicates the unit is out of service or none is available.
	ErrUnavailable = errors.New("UNAVAILABLE")

	// ErrInvalidParameter indicates a structurally invalid parameter.
	ErrInvalidParameter = errors.New("BAD_REQUEST")
)

var _ Fleet = (*fleet.Manager)(nil)
