package request

import (
	"fmt"
	"strings"
)

// Direction is the travel direction a passenger asked for.
type Direction int

const (
	None Direction = iota
	Up
	Down
)

var directionNames = map[Direction]string{
	None: "NONE",
	Up:   "UP",
	Down: "DOWN",
}

// String returns the wire token for the direction.
func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Sign returns +1 for Up, -1 for Down and 0 otherwise.
func (d Direction) Sign() int {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	}
	return 0
}

// ParseDirection converts a wire token to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.TrimSpace(s) {
	case "UP":
		return Up, nil
	case "DOWN":
		return Down, nil
	case "NONE":
		return None, nil
	}
	return None, fmt.Errorf("%w: unknown direction %q", ErrDecode, s)
}

// Fault is a fault-injection tag carried by a request.
type Fault int

const (
	NoFault Fault = iota
	OpenFault
	CloseFault
	HardFault
)

// faultTable is the immutable token table shared by String and ParseFault.
var faultTable = []struct {
	fault Fault
	token string
}{
	{NoFault, "NO_FAULT"},
	{OpenFault, "OPEN_FAULT"},
	{CloseFault, "CLOSE_FAULT"},
	{HardFault, "HARD_FAULT"},
}

// String returns the wire token for the fault.
func (f Fault) String() string {
	for _, entry := range faultTable {
		if entry.fault == f {
			return entry.token
		}
	}
	return "NO_FAULT"
}

// ParseFault maps a wire token to a Fault. Unknown tokens map to NoFault.
func ParseFault(s string) Fault {
	token := strings.TrimSpace(s)
	for _, entry := range faultTable {
		if entry.token == token {
			return entry.fault
		}
	}
	return NoFault
}
