package unit

import (
	"fmt"
	"time"

	"github.com/lift-control/lcc/internal/request"
)

// Kind identifies a controller job.
type Kind int

const (
	KindMove Kind = iota
	KindLoad
	KindUnload
	KindOpen
	KindClose
	KindHardFault
	KindArmOpenFault
	KindArmCloseFault
)

var kindNames = map[Kind]string{
	KindMove:          "move",
	KindLoad:          "load",
	KindUnload:        "unload",
	KindOpen:          "open",
	KindClose:         "close",
	KindHardFault:     "hardFault",
	KindArmOpenFault:  "armOpenFault",
	KindArmCloseFault: "armCloseFault",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Command is a queued job. Arg is the target floor for moves and the
// passenger count for loads and unloads; other kinds ignore it.
type Command struct {
	Kind Kind
	Arg  int
}

func (c Command) String() string {
	switch c.Kind {
	case KindMove, KindLoad, KindUnload:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Arg)
	}
	return c.Kind.String()
}

// DoorState is the door animation state.
type DoorState int

const (
	DoorClosed DoorState = iota
	DoorOpening
	DoorOpen
	DoorClosing
)

func (d DoorState) String() string {
	switch d {
	case DoorOpening:
		return "opening"
	case DoorOpen:
		return "open"
	case DoorClosing:
		return "closing"
	}
	return "closed"
}

// IsOpen reports the door's state category, which is its last settled state.
func (d DoorState) IsOpen() bool {
	return d == DoorOpen || d == DoorClosing
}

// FaultMode is the unit's fault state.
type FaultMode int

const (
	FaultNone FaultMode = iota
	FaultTransient
	FaultHard
)

func (f FaultMode) String() string {
	switch f {
	case FaultTransient:
		return "transient"
	case FaultHard:
		return "hard"
	}
	return "none"
}

// Color is an RGBA tint with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

var (
	// Clear removes any tint.
	Clear = Color{}
	// HardFaultTint marks a unit that is permanently out of service.
	HardFaultTint = Color{R: 1, A: 0.5}
)

// Fixed animation granularity.
const (
	MotionTick = 100 * time.Millisecond
	DoorTick   = 10 * time.Millisecond
	FaultTick  = 100 * time.Millisecond

	// TransientFaultAlpha is the starting tint alpha of a transient fault fade.
	TransientFaultAlpha = 0.5
)

// Timing holds the simulation constants for one unit.
type Timing struct {
	FloorsPerSecond    float64
	LoadTime           time.Duration // per passenger
	DoorTime           time.Duration // one full open or close
	TransientFaultTime time.Duration
	DoorWidth          int // full panel travel in pixels
}

// DefaultTiming returns the stock simulation constants.
func DefaultTiming() Timing {
	return Timing{
		FloorsPerSecond:    1,
		LoadTime:           time.Second,
		DoorTime:           time.Second,
		TransientFaultTime: 3 * time.Second,
		DoorWidth:          16,
	}
}

// MoveDuration returns how long a move across floors takes.
func (t Timing) MoveDuration(floors int) time.Duration {
	ms := int64(float64(floors) / t.FloorsPerSecond * 1000)
	return time.Duration(ms) * time.Millisecond
}

// Notifier receives controller side effects. Implementations must not block.
type Notifier interface {
	Lamp(unit, floor int, direction request.Direction, on bool)
	Taken(unit, floor, count int)
	Delivered(unit, floor, count int)
	Tint(unit int, c Color)
	DoorShift(unit, shift int)
	Position(unit, floor int, offset float64)
}

// Status is a point-in-time view of a unit.
type Status struct {
	ID         int       `json:"id"`
	Floor      int       `json:"floor"`
	Position   float64   `json:"position"`
	Door       DoorState `json:"-"`
	DoorName   string    `json:"door"`
	Passengers int       `json:"passengers"`
	Fault      FaultMode `json:"-"`
	FaultName  string    `json:"fault"`
	Busy       bool      `json:"busy"`
	Pending    int       `json:"pending"`
	Idle       bool      `json:"idle"`
}

// Operational reports whether the unit still accepts work.
func (s Status) Operational() bool {
	return s.Fault != FaultHard
}
