package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/fleet"
	"github.com/lift-control/lcc/internal/request"
	"github.com/lift-control/lcc/internal/unit"
)

// EventRequest is published when a request is placed on a unit.
const EventRequest = "request"

// Orchestrator routes validated intents to unit controllers.
type Orchestrator struct {
	fleet     Fleet
	tracker   *Tracker
	publisher Publisher
	audit     AuditLogger
	log       zerolog.Logger

	mu       sync.RWMutex
	baseline time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. publisher and audit may be nil.
// The eligibility baseline defaults to the construction time.
func NewOrchestrator(f Fleet, tracker *Tracker, publisher Publisher, audit AuditLogger, logger zerolog.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		fleet:     f,
		tracker:   tracker,
		publisher: publisher,
		audit:     audit,
		log:       logger.With().Str("component", "orchestrator").Logger(),
		baseline:  time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetBaseline sets the simulation start time that request times are measured against.
func (o *Orchestrator) SetBaseline(t time.Time) {
	o.mu.Lock()
	o.baseline = t
	o.mu.Unlock()
}

// Baseline returns the simulation start time.
func (o *Orchestrator) Baseline() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.baseline
}

// Units returns a snapshot of every unit.
func (o *Orchestrator) Units() *fleet.UnitList {
	return o.fleet.List()
}

// Unit returns a snapshot of one unit.
func (o *Orchestrator) Unit(ctx context.Context, unitID int) (*unit.Status, error) {
	c, err := o.lookup(unitID)
	if err != nil {
		return nil, err
	}
	s := c.Status()
	return &s, nil
}

// Move sends a unit to floor.
func (o *Orchestrator) Move(ctx context.Context, unitID, floor int) error {
	return o.execute(ctx, "move", unitID, map[string]interface{}{"floor": floor},
		func() error { return o.validateFloor(floor) },
		func(c *unit.Controller) { c.Move(floor) })
}

// Load boards count passengers at the unit's current floor.
func (o *Orchestrator) Load(ctx context.Context, unitID, count int) error {
	return o.execute(ctx, "load", unitID, map[string]interface{}{"count": count},
		func() error { return validateCount(count) },
		func(c *unit.Controller) { c.Load(count) })
}

// Unload discharges count passengers at the unit's current floor.
func (o *Orchestrator) Unload(ctx context.Context, unitID, count int) error {
	return o.execute(ctx, "unload", unitID, map[string]interface{}{"count": count},
		func() error { return validateCount(count) },
		func(c *unit.Controller) { c.Unload(count) })
}

// Open opens the unit's doors.
func (o *Orchestrator) Open(ctx context.Context, unitID int) error {
	return o.execute(ctx, "open", unitID, nil, nil, func(c *unit.Controller) { c.Open() })
}

// Close closes the unit's doors.
func (o *Orchestrator) Close(ctx context.Context, unitID int) error {
	return o.execute(ctx, "close", unitID, nil, nil, func(c *unit.Controller) { c.Close() })
}

// InjectFault arms a transient door fault or triggers a hard fault.
func (o *Orchestrator) InjectFault(ctx context.Context, unitID int, fault request.Fault) error {
	validate := func() error {
		if fault == request.NoFault {
			return fmt.Errorf("%w: fault kind required", ErrInvalidParameter)
		}
		return nil
	}
	return o.execute(ctx, "fault", unitID, map[string]interface{}{"kind": fault.String()}, validate,
		func(c *unit.Controller) { applyFault(c, fault) })
}

func applyFault(c *unit.Controller, fault request.Fault) {
	switch fault {
	case request.OpenFault:
		c.ArmOpenFault()
	case request.CloseFault:
		c.ArmCloseFault()
	case request.HardFault:
		c.HardFault()
	}
}

// execute looks up the unit, validates, applies and audits one intent.
func (o *Orchestrator) execute(ctx context.Context, action string, unitID int, params map[string]interface{},
	validate func() error, apply func(*unit.Controller)) error {
	c, err := o.lookup(unitID)
	if err == nil && validate != nil {
		err = validate()
	}
	if err == nil && !c.Status().Operational() {
		err = fmt.Errorf("%w: unit %d is out of service", ErrUnavailable, unitID)
	}
	if err != nil {
		o.logAudit(ctx, action, unitID, params, err)
		return err
	}

	apply(c)
	o.logAudit(ctx, action, unitID, params, nil)
	o.log.Debug().Int("unit", unitID).Str("action", action).Interface("params", params).Msg("Command accepted")
	return nil
}

// Dispatch places an eligible request on the nearest operational unit and
// queues its plan. It returns the chosen unit id.
func (o *Orchestrator) Dispatch(ctx context.Context, req *request.Request) (int, error) {
	params := map[string]interface{}{
		"time":        req.Time().Format(request.TimeLayout),
		"origin":      req.Origin(),
		"destination": req.Destination(),
		"fault":       req.Fault().String(),
	}

	if err := o.validateFloor(req.Origin()); err != nil {
		o.logAudit(ctx, "dispatch", -1, params, err)
		return -1, err
	}
	if err := o.validateFloor(req.Destination()); err != nil {
		o.logAudit(ctx, "dispatch", -1, params, err)
		return -1, err
	}

	c, err := o.fleet.Nearest(req.Origin())
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		o.logAudit(ctx, "dispatch", -1, params, err)
		return -1, err
	}

	req.SetStartTime(time.Now())
	o.tracker.Track(c.ID(), req)

	// Fault annotations are queued with the plan so they act on this
	// request's own stops, not on work already queued ahead of it.
	fault := req.Fault()
	c.Move(req.Origin())
	if fault == request.HardFault {
		c.QueueHardFault()
	}
	if fault == request.OpenFault {
		c.QueueOpenFault()
	}
	c.Open()
	c.Load(1)
	if fault == request.CloseFault {
		c.QueueCloseFault()
	}
	c.Close()
	c.Move(req.Destination())
	c.Open()
	c.Unload(1)
	c.Close()

	o.logAudit(ctx, "dispatch", c.ID(), params, nil)
	if o.publisher != nil {
		o.publisher.PublishUnit(c.ID(), EventRequest, params)
	}
	o.log.Info().Int("unit", c.ID()).Stringer("request", req).Msg("Request dispatched")
	return c.ID(), nil
}

// Serve waits until req is eligible and dispatches it. It returns ctx's
// error if cancelled while waiting.
func (o *Orchestrator) Serve(ctx context.Context, req *request.Request) error {
	req.WaitForTime(ctx, o.Baseline())
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := o.Dispatch(ctx, req)
	return err
}

// Enqueue serves req in the background until Stop is called.
func (o *Orchestrator) Enqueue(req *request.Request) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.Serve(o.ctx, req); err != nil && !errors.Is(err, context.Canceled) {
			o.log.Warn().Err(err).Stringer("request", req).Msg("Request rejected")
		}
	}()
}

// Stats returns request statistics.
func (o *Orchestrator) Stats() Stats {
	return o.tracker.Stats()
}

// Stop abandons requests still waiting for their time.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) lookup(unitID int) (*unit.Controller, error) {
	c, err := o.fleet.Get(unitID)
	if err != nil {
		return nil, fmt.Errorf("%w: unit %d", ErrNotFound, unitID)
	}
	return c, nil
}

func (o *Orchestrator) validateFloor(floor int) error {
	if floor < 0 || floor >= o.fleet.Floors() {
		return fmt.Errorf("%w: floor %d outside [0, %d)", ErrInvalidRange, floor, o.fleet.Floors())
	}
	return nil
}

func validateCount(count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRange, count)
	}
	return nil
}

func (o *Orchestrator) logAudit(ctx context.Context, action string, unitID int, params map[string]interface{}, err error) {
	if o.audit != nil {
		o.audit.LogAction(ctx, action, unitID, params, err)
	}
}
