package unit

import "github.com/lift-control/lcc/internal/request"

// Fanout forwards every notification to each notifier in order.
type Fanout []Notifier

func (f Fanout) Lamp(unit, floor int, direction request.Direction, on bool) {
	for _, n := range f {
		n.Lamp(unit, floor, direction, on)
	}
}

func (f Fanout) Taken(unit, floor, count int) {
	for _, n := range f {
		n.Taken(unit, floor, count)
	}
}

func (f Fanout) Delivered(unit, floor, count int) {
	for _, n := range f {
		n.Delivered(unit, floor, count)
	}
}

func (f Fanout) Tint(unit int, c Color) {
	for _, n := range f {
		n.Tint(unit, c)
	}
}

func (f Fanout) DoorShift(unit, shift int) {
	for _, n := range f {
		n.DoorShift(unit, shift)
	}
}

func (f Fanout) Position(unit, floor int, offset float64) {
	for _, n := range f {
		n.Position(unit, floor, offset)
	}
}

// Discard ignores every notification.
type Discard struct{}

func (Discard) Lamp(int, int, request.Direction, bool) {}
func (Discard) Taken(int, int, int)                    {}
func (Discard) Delivered(int, int, int)                {}
func (Discard) Tint(int, Color)                        {}
func (Discard) DoorShift(int, int)                     {}
func (Discard) Position(int, int, float64)             {}

var (
	_ Notifier = Fanout(nil)
	_ Notifier = Discard{}
)
