package unit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Controller drives a single unit. All state is owned by its worker
// goroutine; other goroutines only enqueue jobs, arm faults or read Status.
type Controller struct {
	id       int
	timing   Timing
	notifier Notifier
	log      zerolog.Logger

	inbox       *inbox
	outstanding atomic.Int64 // queued plus running jobs

	openFault  atomic.Bool
	closeFault atomic.Bool
	hard       atomic.Bool

	mu         sync.RWMutex
	floor      int
	position   float64
	door       DoorState
	passengers int
	fault      FaultMode
	busy       bool

	// Job cancellation. interruptPending cancels the next job registered
	// when a hard fault arrives between jobs.
	jobMu            sync.Mutex
	cancelJob        context.CancelFunc
	interruptPending bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a controller parked at floor 0 with doors closed and starts
// its worker.
func New(id int, timing Timing, notifier Notifier, logger zerolog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:       id,
		timing:   timing,
		notifier: notifier,
		log:      logger.With().Str("component", "unit").Int("unit", id).Logger(),
		inbox:    newInbox(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go c.run()
	return c
}

// ID returns the unit identifier.
func (c *Controller) ID() int {
	return c.id
}

// Move queues a move to floor.
func (c *Controller) Move(floor int) {
	c.Submit(Command{Kind: KindMove, Arg: floor})
}

// Load queues boarding of n passengers at the current floor.
func (c *Controller) Load(n int) {
	c.Submit(Command{Kind: KindLoad, Arg: n})
}

// Unload queues alighting of n passengers at the current floor.
func (c *Controller) Unload(n int) {
	c.Submit(Command{Kind: KindUnload, Arg: n})
}

// Open queues a door-open transition.
func (c *Controller) Open() {
	c.Submit(Command{Kind: KindOpen})
}

// Close queues a door-close transition.
func (c *Controller) Close() {
	c.Submit(Command{Kind: KindClose})
}

// ArmOpenFault makes the next door opening trigger a transient fault.
func (c *Controller) ArmOpenFault() {
	c.openFault.Store(true)
}

// ArmCloseFault makes the next door closing trigger a transient fault.
func (c *Controller) ArmCloseFault() {
	c.closeFault.Store(true)
}

// QueueOpenFault arms the open fault when the worker reaches this point in
// the inbox, so only door openings queued after it can trigger.
func (c *Controller) QueueOpenFault() {
	c.Submit(Command{Kind: KindArmOpenFault})
}

// QueueCloseFault arms the close fault when the worker reaches this point in
// the inbox.
func (c *Controller) QueueCloseFault() {
	c.Submit(Command{Kind: KindArmCloseFault})
}

// QueueHardFault takes the unit out of service once every job queued before
// it has run.
func (c *Controller) QueueHardFault() {
	c.enqueue(Command{Kind: KindHardFault})
}

// Submit appends a job to the inbox. A hard fault job preempts instead.
// Jobs submitted after a hard fault are dropped.
func (c *Controller) Submit(cmd Command) {
	if cmd.Kind == KindHardFault {
		c.HardFault()
		return
	}
	c.enqueue(cmd)
}

func (c *Controller) enqueue(cmd Command) {
	if c.hard.Load() {
		c.log.Debug().Stringer("command", cmd).Msg("Dropping command for faulted unit")
		return
	}
	c.outstanding.Add(1)
	if !c.inbox.pushBack(cmd) {
		c.outstanding.Add(-1)
		c.log.Debug().Stringer("command", cmd).Msg("Dropping command for faulted unit")
	}
}

// HardFault puts the hard fault at the head of the inbox and interrupts the
// running job.
func (c *Controller) HardFault() {
	if c.hard.Load() {
		return
	}
	c.outstanding.Add(1)
	if !c.inbox.pushFront(Command{Kind: KindHardFault}) {
		c.outstanding.Add(-1)
		return
	}

	c.jobMu.Lock()
	if c.cancelJob != nil {
		c.cancelJob()
	} else {
		c.interruptPending = true
	}
	c.jobMu.Unlock()
}

// Status returns a snapshot of the unit.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		ID:         c.id,
		Floor:      c.floor,
		Position:   c.position,
		Door:       c.door,
		DoorName:   c.door.String(),
		Passengers: c.passengers,
		Fault:      c.fault,
		FaultName:  c.fault.String(),
		Busy:       c.busy,
		Pending:    c.inbox.len(),
		Idle:       c.Idle(),
	}
}

// Passengers returns the current passenger count.
func (c *Controller) Passengers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.passengers
}

// Idle reports whether no job is queued or running.
func (c *Controller) Idle() bool {
	return c.outstanding.Load() <= 0
}

// Done is closed when the worker has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Stop cancels the worker and waits for it to exit.
func (c *Controller) Stop() {
	c.cancel()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		c.log.Warn().Msg("Timeout waiting for unit worker to stop")
	}
}

// run is the worker loop.
func (c *Controller) run() {
	defer close(c.done)
	c.log.Debug().Msg("Unit worker started")

	for {
		cmd, ok := c.inbox.take(c.ctx)
		if !ok {
			c.log.Debug().Msg("Unit worker stopped")
			return
		}

		ctx := c.beginJob()
		c.execute(ctx, cmd)
		c.endJob()

		if cmd.Kind == KindHardFault {
			c.log.Warn().Msg("Unit worker exited after hard fault")
			return
		}
	}
}

func (c *Controller) beginJob() context.Context {
	ctx, cancel := context.WithCancel(c.ctx)

	c.jobMu.Lock()
	c.cancelJob = cancel
	if c.interruptPending {
		c.interruptPending = false
		cancel()
	}
	c.jobMu.Unlock()

	c.setBusy(true)
	return ctx
}

func (c *Controller) endJob() {
	c.jobMu.Lock()
	if c.cancelJob != nil {
		c.cancelJob()
		c.cancelJob = nil
	}
	c.jobMu.Unlock()

	c.setBusy(false)
	c.outstanding.Add(-1)
}

// execute dispatches a job to its handler.
func (c *Controller) execute(ctx context.Context, cmd Command) {
	c.log.Debug().Stringer("command", cmd).Msg("Executing job")

	switch cmd.Kind {
	case KindMove:
		c.handleMove(ctx, cmd.Arg)
	case KindLoad:
		c.handleTransfer(ctx, cmd.Arg, true)
	case KindUnload:
		c.handleTransfer(ctx, cmd.Arg, false)
	case KindOpen:
		c.handleDoor(ctx, true)
	case KindClose:
		c.handleDoor(ctx, false)
	case KindHardFault:
		c.handleHardFault()
	case KindArmOpenFault:
		c.openFault.Store(true)
	case KindArmCloseFault:
		c.closeFault.Store(true)
	default:
		c.log.Warn().Int("kind", int(cmd.Kind)).Msg("Unknown job kind")
	}
}

func (c *Controller) setBusy(busy bool) {
	c.mu.Lock()
	c.busy = busy
	c.mu.Unlock()
}
