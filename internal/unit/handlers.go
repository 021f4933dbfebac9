package unit

import (
	"context"
	"time"

	"github.com/lift-control/lcc/internal/request"
)

// sleep waits for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// animate ticks from 0 through total inclusive, sleeping one tick before
// each step. It returns false if cancelled.
func animate(ctx context.Context, total, tick time.Duration, step func(alpha float64)) bool {
	for elapsed := time.Duration(0); elapsed <= total; elapsed += tick {
		if !sleep(ctx, tick) {
			return false
		}
		alpha := 1.0
		if total > 0 {
			alpha = float64(elapsed) / float64(total)
		}
		step(alpha)
	}
	return true
}

func lerp(from, to, alpha float64) float64 {
	return from + (to-from)*alpha
}

func (c *Controller) handleMove(ctx context.Context, target int) {
	c.mu.RLock()
	from := c.floor
	c.mu.RUnlock()

	floors := target - from
	if floors == 0 {
		return
	}

	sign, direction := 1, request.Up
	if floors < 0 {
		floors, sign, direction = -floors, -1, request.Down
	}

	c.notifier.Lamp(c.id, target, direction, true)
	defer c.notifier.Lamp(c.id, target, direction, false)

	completed := animate(ctx, c.timing.MoveDuration(floors), MotionTick, func(alpha float64) {
		offset := alpha * float64(floors) * float64(sign)
		c.mu.Lock()
		c.position = float64(from) + offset
		c.mu.Unlock()
		c.notifier.Position(c.id, from, offset)
	})
	if !completed {
		c.log.Debug().Int("target", target).Msg("Move interrupted")
		return
	}

	c.mu.Lock()
	c.floor = target
	c.position = float64(target)
	c.mu.Unlock()
	c.notifier.Position(c.id, target, 0)
}

// handleTransfer boards or discharges n passengers one at a time.
func (c *Controller) handleTransfer(ctx context.Context, n int, load bool) {
	for i := 0; i < n; i++ {
		if !sleep(ctx, c.timing.LoadTime) {
			return
		}

		c.mu.Lock()
		floor := c.floor
		if !load && c.passengers == 0 {
			c.mu.Unlock()
			c.log.Debug().Int("remaining", n-i).Msg("Unload stopped on empty unit")
			return
		}
		if load {
			c.passengers++
		} else {
			c.passengers--
		}
		c.mu.Unlock()

		if load {
			c.notifier.Taken(c.id, floor, 1)
		} else {
			c.notifier.Delivered(c.id, floor, 1)
		}
	}
}

func (c *Controller) handleDoor(ctx context.Context, open bool) {
	c.mu.Lock()
	if c.door.IsOpen() == open {
		c.mu.Unlock()
		return
	}
	if open {
		c.door = DoorOpening
	} else {
		c.door = DoorClosing
	}
	c.mu.Unlock()

	armed := &c.closeFault
	if open {
		armed = &c.openFault
	}

	halfway := false
	completed := animate(ctx, c.timing.DoorTime, DoorTick, func(alpha float64) {
		if alpha > 0.5 && !halfway {
			halfway = true
			if armed.Swap(false) {
				c.handleTransientFault(ctx)
			}
		}
		if !open {
			alpha = 1 - alpha
		}
		c.notifier.DoorShift(c.id, int(lerp(0, float64(c.timing.DoorWidth), alpha)))
	})
	if !completed {
		c.log.Debug().Bool("open", open).Msg("Door transition interrupted")
		return
	}

	c.mu.Lock()
	if open {
		c.door = DoorOpen
	} else {
		c.door = DoorClosed
	}
	c.mu.Unlock()
}

// handleTransientFault fades a red tint out. The tint is always cleared on
// exit, including when the enclosing job is cancelled.
func (c *Controller) handleTransientFault(ctx context.Context) {
	c.log.Info().Msg("Transient fault")
	c.setFault(FaultTransient)
	defer func() {
		c.notifier.Tint(c.id, Clear)
		c.setFault(FaultNone)
	}()

	animate(ctx, c.timing.TransientFaultTime, FaultTick, func(alpha float64) {
		c.notifier.Tint(c.id, Color{R: 1, A: lerp(TransientFaultAlpha, 0, alpha)})
	})
}

func (c *Controller) handleHardFault() {
	c.hard.Store(true)
	c.setFault(FaultHard)
	c.notifier.Tint(c.id, HardFaultTint)
	dropped := c.inbox.shut()
	c.outstanding.Add(-int64(dropped))
	c.log.Error().Int("dropped", dropped).Msg("Hard fault, unit out of service")
}

func (c *Controller) setFault(mode FaultMode) {
	c.mu.Lock()
	c.fault = mode
	c.mu.Unlock()
}
