// Package fake provides a recording unit.Notifier for tests.
package fake

import (
	"sync"

	"github.com/lift-control/lcc/internal/request"
	"github.com/lift-control/lcc/internal/unit"
)

// Call is one recorded notification.
type Call struct {
	Method    string
	Unit      int
	Floor     int
	Count     int
	Direction request.Direction
	On        bool
	Tint      unit.Color
	Shift     int
	Offset    float64
}

// Recorder records every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *Recorder) Lamp(u, floor int, direction request.Direction, on bool) {
	r.record(Call{Method: "Lamp", Unit: u, Floor: floor, Direction: direction, On: on})
}

func (r *Recorder) Taken(u, floor, count int) {
	r.record(Call{Method: "Taken", Unit: u, Floor: floor, Count: count})
}

func (r *Recorder) Delivered(u, floor, count int) {
	r.record(Call{Method: "Delivered", Unit: u, Floor: floor, Count: count})
}

func (r *Recorder) Tint(u int, c unit.Color) {
	r.record(Call{Method: "Tint", Unit: u, Tint: c})
}

func (r *Recorder) DoorShift(u, shift int) {
	r.record(Call{Method: "DoorShift", Unit: u, Shift: shift})
}

func (r *Recorder) Position(u, floor int, offset float64) {
	r.record(Call{Method: "Position", Unit: u, Floor: floor, Offset: offset})
}

// Calls returns a copy of the recorded calls, optionally filtered by method.
func (r *Recorder) Calls(methods ...string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		if len(methods) == 0 || contains(methods, c.Method) {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

var _ unit.Notifier = (*Recorder)(nil)
