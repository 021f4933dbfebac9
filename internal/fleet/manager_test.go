package fleet

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/unit"
)

func fastTiming() unit.Timing {
	return unit.Timing{
		FloorsPerSecond:    50,
		LoadTime:           5 * time.Millisecond,
		DoorTime:           20 * time.Millisecond,
		TransientFaultTime: 50 * time.Millisecond,
		DoorWidth:          16,
	}
}

func newTestManager(t *testing.T, count int) *Manager {
	t.Helper()
	m := NewManager(count, 10, fastTiming(), unit.Discard{}, zerolog.Nop())
	t.Cleanup(m.Close)
	return m
}

func waitIdle(t *testing.T, c *unit.Controller) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !c.Idle() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for unit %d", c.ID())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewManager(t *testing.T) {
	m := newTestManager(t, 3)

	list := m.List()
	if list.Floors != 10 {
		t.Errorf("Expected 10 floors, got %d", list.Floors)
	}
	if len(list.Items) != 3 {
		t.Fatalf("Expected 3 units, got %d", len(list.Items))
	}
	for i, s := range list.Items {
		if s.ID != i {
			t.Errorf("Expected unit %d at index %d, got %d", i, i, s.ID)
		}
	}
}

func TestGet(t *testing.T) {
	m := newTestManager(t, 2)

	c, err := m.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error = %v", err)
	}
	if c.ID() != 1 {
		t.Errorf("Expected unit 1, got %d", c.ID())
	}

	if _, err := m.Get(5); !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("Expected ErrUnitNotFound, got %v", err)
	}
}

func TestNearest(t *testing.T) {
	m := newTestManager(t, 3)

	u1, _ := m.Get(1)
	u2, _ := m.Get(2)
	u1.Move(6)
	u2.Move(8)
	waitIdle(t, u1)
	waitIdle(t, u2)

	tests := []struct {
		floor int
		want  int
	}{
		{0, 0},
		{2, 0},
		{3, 0}, // tie between unit 0 (3 away) and unit 1 (3 away)
		{5, 1},
		{7, 1}, // tie between unit 1 and unit 2
		{9, 2},
	}
	for _, tt := range tests {
		c, err := m.Nearest(tt.floor)
		if err != nil {
			t.Fatalf("Nearest(%d) error = %v", tt.floor, err)
		}
		if c.ID() != tt.want {
			t.Errorf("Nearest(%d): expected unit %d, got %d", tt.floor, tt.want, c.ID())
		}
	}
}

func TestNearestSkipsFaultedUnits(t *testing.T) {
	m := newTestManager(t, 2)

	u0, _ := m.Get(0)
	u0.HardFault()
	<-u0.Done()

	c, err := m.Nearest(0)
	if err != nil {
		t.Fatalf("Nearest(0) error = %v", err)
	}
	if c.ID() != 1 {
		t.Errorf("Expected unit 1, got %d", c.ID())
	}

	u1, _ := m.Get(1)
	u1.HardFault()
	<-u1.Done()

	if _, err := m.Nearest(0); !errors.Is(err, ErrNoUnitAvailable) {
		t.Errorf("Expected ErrNoUnitAvailable, got %v", err)
	}
}
