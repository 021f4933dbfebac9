package telemetry

import (
	"github.com/lift-control/lcc/internal/request"
	"github.com/lift-control/lcc/internal/unit"
)

// Lamp publishes a hall lamp change.
func (h *Hub) Lamp(unitID, floor int, direction request.Direction, on bool) {
	h.PublishUnit(unitID, EventLamp, map[string]interface{}{
		"floor":     floor,
		"direction": direction.String(),
		"on":        on,
	})
}

// Taken publishes passengers boarding at a floor.
func (h *Hub) Taken(unitID, floor, count int) {
	h.PublishUnit(unitID, EventTaken, map[string]interface{}{"floor": floor, "count": count})
}

// Delivered publishes passengers alighting at a floor.
func (h *Hub) Delivered(unitID, floor, count int) {
	h.PublishUnit(unitID, EventDelivered, map[string]interface{}{"floor": floor, "count": count})
}

// Tint publishes the unit's fault tint.
func (h *Hub) Tint(unitID int, c unit.Color) {
	h.PublishUnit(unitID, EventTint, map[string]interface{}{"r": c.R, "g": c.G, "b": c.B, "a": c.A})
}

// DoorShift publishes door panel offsets and clips. The left panel moves
// left and is clipped on its left edge; the right panel mirrors it.
func (h *Hub) DoorShift(unitID, shift int) {
	h.PublishUnit(unitID, EventDoor, map[string]interface{}{
		"leftOffset":  -shift,
		"leftClip":    shift,
		"rightOffset": shift,
		"rightClip":   shift,
	})
}

// Position publishes the unit's height as a floor plus fractional offset.
func (h *Hub) Position(unitID, floor int, offset float64) {
	h.PublishUnit(unitID, EventPosition, map[string]interface{}{"floor": floor, "offset": offset})
}

var _ unit.Notifier = (*Hub)(nil)
