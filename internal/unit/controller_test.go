package unit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/request"
	"github.com/lift-control/lcc/internal/unit"
	"github.com/lift-control/lcc/internal/unit/fake"
)

func fastTiming() unit.Timing {
	return unit.Timing{
		FloorsPerSecond:    10,
		LoadTime:           20 * time.Millisecond,
		DoorTime:           50 * time.Millisecond,
		TransientFaultTime: 200 * time.Millisecond,
		DoorWidth:          16,
	}
}

func newTestController(t *testing.T, timing unit.Timing) (*unit.Controller, *fake.Recorder) {
	t.Helper()
	rec := fake.NewRecorder()
	c := unit.New(1, timing, rec, zerolog.Nop())
	t.Cleanup(c.Stop)
	return c, rec
}

func waitIdle(t *testing.T, c *unit.Controller) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !c.Idle() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for unit to go idle: %+v", c.Status())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNewController(t *testing.T) {
	c, _ := newTestController(t, fastTiming())

	s := c.Status()
	if s.ID != 1 {
		t.Errorf("Expected ID 1, got %d", s.ID)
	}
	if s.Floor != 0 || s.Door != unit.DoorClosed || s.Passengers != 0 || s.Fault != unit.FaultNone {
		t.Errorf("Unexpected initial status: %+v", s)
	}
	if !s.Operational() {
		t.Error("Expected new unit to be operational")
	}
	if !c.Idle() {
		t.Error("Expected new unit to be idle")
	}
}

func TestMove(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Move(3)
	waitIdle(t, c)

	s := c.Status()
	if s.Floor != 3 {
		t.Errorf("Expected floor 3, got %d", s.Floor)
	}
	if s.Position != 3 {
		t.Errorf("Expected position 3, got %v", s.Position)
	}

	lamps := rec.Calls("Lamp")
	if len(lamps) != 2 {
		t.Fatalf("Expected 2 lamp notifications, got %d", len(lamps))
	}
	if !lamps[0].On || lamps[0].Floor != 3 || lamps[0].Direction != request.Up {
		t.Errorf("Expected lamp on for floor 3 UP, got %+v", lamps[0])
	}
	if lamps[1].On || lamps[1].Floor != 3 {
		t.Errorf("Expected lamp off for floor 3, got %+v", lamps[1])
	}

	positions := rec.Calls("Position")
	if len(positions) < 2 {
		t.Fatalf("Expected position updates, got %d", len(positions))
	}
	if first := positions[0]; first.Floor != 0 || first.Offset != 0 {
		t.Errorf("Expected first position at floor 0 offset 0, got %+v", first)
	}
	if last := positions[len(positions)-1]; last.Floor != 3 || last.Offset != 0 {
		t.Errorf("Expected final snap to floor 3, got %+v", last)
	}
	for i := 1; i < len(positions)-1; i++ {
		if positions[i].Offset < positions[i-1].Offset {
			t.Errorf("Position went backwards at tick %d: %v < %v", i, positions[i].Offset, positions[i-1].Offset)
		}
	}
}

func TestMoveDown(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Move(2)
	c.Move(0)
	waitIdle(t, c)

	lamps := rec.Calls("Lamp")
	if len(lamps) != 4 {
		t.Fatalf("Expected 4 lamp notifications, got %d", len(lamps))
	}
	if lamps[2].Floor != 0 || lamps[2].Direction != request.Down {
		t.Errorf("Expected lamp for floor 0 DOWN, got %+v", lamps[2])
	}
	if got := c.Status().Floor; got != 0 {
		t.Errorf("Expected floor 0, got %d", got)
	}
}

func TestMoveToCurrentFloor(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Move(0)
	waitIdle(t, c)

	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("Expected no notifications, got %+v", calls)
	}
}

func TestLoadUnload(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Move(2)
	c.Load(3)
	c.Unload(2)
	waitIdle(t, c)

	if got := c.Passengers(); got != 1 {
		t.Errorf("Expected 1 passenger, got %d", got)
	}

	taken := rec.Calls("Taken")
	if len(taken) != 3 {
		t.Errorf("Expected 3 taken notifications, got %d", len(taken))
	}
	for _, call := range taken {
		if call.Floor != 2 || call.Count != 1 {
			t.Errorf("Expected taken(2, 1), got %+v", call)
		}
	}
	if delivered := rec.Calls("Delivered"); len(delivered) != 2 {
		t.Errorf("Expected 2 delivered notifications, got %d", len(delivered))
	}
}

func TestUnloadEmptyUnit(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Load(1)
	c.Unload(3)
	waitIdle(t, c)

	if got := c.Passengers(); got != 0 {
		t.Errorf("Expected 0 passengers, got %d", got)
	}
	if delivered := rec.Calls("Delivered"); len(delivered) != 1 {
		t.Errorf("Expected 1 delivered notification, got %d", len(delivered))
	}
}

func TestDoors(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Open()
	waitIdle(t, c)
	if got := c.Status().Door; got != unit.DoorOpen {
		t.Fatalf("Expected door open, got %v", got)
	}

	shifts := rec.Calls("DoorShift")
	if len(shifts) == 0 {
		t.Fatal("Expected door shift notifications")
	}
	if first := shifts[0].Shift; first != 0 {
		t.Errorf("Expected opening to start at shift 0, got %d", first)
	}
	if last := shifts[len(shifts)-1].Shift; last != 16 {
		t.Errorf("Expected opening to end at shift 16, got %d", last)
	}

	rec.Reset()
	c.Open()
	waitIdle(t, c)
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("Expected repeated open to be a no-op, got %d notifications", len(calls))
	}

	c.Close()
	waitIdle(t, c)
	if got := c.Status().Door; got != unit.DoorClosed {
		t.Errorf("Expected door closed, got %v", got)
	}
	shifts = rec.Calls("DoorShift")
	if first := shifts[0].Shift; first != 16 {
		t.Errorf("Expected closing to start at shift 16, got %d", first)
	}
	if last := shifts[len(shifts)-1].Shift; last != 0 {
		t.Errorf("Expected closing to end at shift 0, got %d", last)
	}
}

func TestJobsRunInOrder(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Move(2)
	c.Open()
	c.Load(1)
	c.Close()
	waitIdle(t, c)

	var order []string
	for _, call := range rec.Calls("Lamp", "DoorShift", "Taken") {
		if len(order) == 0 || order[len(order)-1] != call.Method {
			order = append(order, call.Method)
		}
	}
	want := []string{"Lamp", "DoorShift", "Taken", "DoorShift"}
	if len(order) != len(want) {
		t.Fatalf("Expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected order %v, got %v", want, order)
			break
		}
	}
}

func TestTransientOpenFault(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.ArmOpenFault()
	c.Open()
	waitIdle(t, c)

	tints := rec.Calls("Tint")
	if len(tints) < 2 {
		t.Fatalf("Expected a tint fade, got %d tint notifications", len(tints))
	}
	if first := tints[0].Tint; first.R != 1 || first.A != unit.TransientFaultAlpha {
		t.Errorf("Expected fade to start at red alpha 0.5, got %+v", first)
	}
	if last := tints[len(tints)-1].Tint; last != unit.Clear {
		t.Errorf("Expected fade to end with a clear tint, got %+v", last)
	}
	for i := 1; i < len(tints)-1; i++ {
		if tints[i].Tint.A > tints[i-1].Tint.A {
			t.Errorf("Tint alpha increased at step %d", i)
		}
	}
	if got := c.Status(); got.Door != unit.DoorOpen || got.Fault != unit.FaultNone {
		t.Errorf("Expected door open and no fault after transient, got %+v", got)
	}

	// Consumed: a second cycle must not fade again.
	rec.Reset()
	c.Close()
	c.Open()
	waitIdle(t, c)
	if tints := rec.Calls("Tint"); len(tints) != 0 {
		t.Errorf("Expected open fault to be consumed, got %d tint notifications", len(tints))
	}
}

func TestTransientCloseFault(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.ArmCloseFault()
	c.Open()
	waitIdle(t, c)
	if tints := rec.Calls("Tint"); len(tints) != 0 {
		t.Fatalf("Expected close fault to ignore opening, got %d tint notifications", len(tints))
	}

	c.Close()
	waitIdle(t, c)
	tints := rec.Calls("Tint")
	if len(tints) == 0 {
		t.Fatal("Expected close fault to fade on closing")
	}
	if last := tints[len(tints)-1].Tint; last != unit.Clear {
		t.Errorf("Expected clear tint at end, got %+v", last)
	}
}

func TestQueuedOpenFaultSkipsEarlierOpenings(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Open()
	c.Close()
	c.QueueOpenFault()
	c.Move(2)
	c.Open()
	waitIdle(t, c)

	arrival, firstTint := -1, -1
	for i, call := range rec.Calls() {
		if arrival < 0 && call.Method == "Position" && call.Floor == 2 && call.Offset == 0 {
			arrival = i
		}
		if firstTint < 0 && call.Method == "Tint" {
			firstTint = i
		}
	}
	if arrival < 0 || firstTint < 0 {
		t.Fatalf("Expected arrival and a fault fade, got arrival %d tint %d", arrival, firstTint)
	}
	if firstTint < arrival {
		t.Errorf("Expected fade only on the opening after arrival, tint at %d before arrival at %d", firstTint, arrival)
	}
	if s := c.Status(); s.Door != unit.DoorOpen || s.Fault != unit.FaultNone {
		t.Errorf("Expected door open and no fault, got %+v", s)
	}
}

func TestQueuedCloseFault(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Open()
	c.Close()
	c.Open()
	c.QueueCloseFault()
	c.Close()
	waitIdle(t, c)

	shiftsBefore := 0
	for _, call := range rec.Calls() {
		if call.Method == "Tint" {
			break
		}
		if call.Method == "DoorShift" {
			shiftsBefore++
		}
	}
	total := len(rec.Calls("DoorShift"))
	// Three full transitions plus half of the fourth precede the fade.
	if shiftsBefore <= total*3/4 {
		t.Errorf("Expected fade during the last closing, got %d of %d shifts before it", shiftsBefore, total)
	}
}

func TestQueueHardFaultRunsAfterEarlierJobs(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.Move(2)
	c.QueueHardFault()
	c.Open()
	c.Move(5)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected worker to exit after queued hard fault")
	}

	s := c.Status()
	if s.Floor != 2 {
		t.Errorf("Expected unit to stop at floor 2, got %d", s.Floor)
	}
	if s.Fault != unit.FaultHard {
		t.Errorf("Expected hard fault mode, got %v", s.Fault)
	}
	if s.Door != unit.DoorClosed || s.Pending != 0 || !s.Idle {
		t.Errorf("Expected later jobs to be discarded, got %+v", s)
	}
	if shifts := rec.Calls("DoorShift"); len(shifts) != 0 {
		t.Errorf("Expected no door movement, got %d shifts", len(shifts))
	}
}

func TestSubmitRacingHardFaultStaysIdle(t *testing.T) {
	c, _ := newTestController(t, fastTiming())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(floor int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Move(floor)
				c.Open()
			}
		}(i + 1)
	}
	c.HardFault()
	wg.Wait()
	<-c.Done()

	if !c.Idle() {
		t.Errorf("Expected faulted unit to report idle, outstanding jobs remain: %+v", c.Status())
	}
	if p := c.Status().Pending; p != 0 {
		t.Errorf("Expected empty inbox, got %d", p)
	}
}

func TestHardFaultInterruptsMove(t *testing.T) {
	timing := fastTiming()
	timing.FloorsPerSecond = 2 // 10 floors take 5s
	c, rec := newTestController(t, timing)

	c.Move(10)
	c.Open()
	waitFor(t, "motion to start", func() bool { return len(rec.Calls("Position")) > 0 })

	start := time.Now()
	c.HardFault()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected worker to exit promptly after hard fault")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Hard fault took %v to take effect", elapsed)
	}

	s := c.Status()
	if s.Floor != 0 {
		t.Errorf("Expected interrupted move to leave floor at 0, got %d", s.Floor)
	}
	if s.Fault != unit.FaultHard || s.Operational() {
		t.Errorf("Expected hard fault mode, got %v", s.Fault)
	}
	if s.Door != unit.DoorClosed {
		t.Errorf("Expected queued open to be discarded, got door %v", s.Door)
	}

	lamps := rec.Calls("Lamp")
	if len(lamps) != 2 || lamps[1].On {
		t.Errorf("Expected lamp on/off pair, got %+v", lamps)
	}
	tints := rec.Calls("Tint")
	if len(tints) != 1 || tints[0].Tint != unit.HardFaultTint {
		t.Errorf("Expected a single hard fault tint, got %+v", tints)
	}
	if shifts := rec.Calls("DoorShift"); len(shifts) != 0 {
		t.Errorf("Expected no door movement, got %d shifts", len(shifts))
	}
}

func TestHardFaultDropsLaterCommands(t *testing.T) {
	c, rec := newTestController(t, fastTiming())

	c.HardFault()
	<-c.Done()

	rec.Reset()
	c.Move(3)
	c.Open()
	c.HardFault()
	time.Sleep(100 * time.Millisecond)

	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("Expected commands after hard fault to be dropped, got %+v", calls)
	}
	if s := c.Status(); s.Floor != 0 || s.Pending != 0 {
		t.Errorf("Expected no movement and empty inbox, got %+v", s)
	}
}

func TestHardFaultDuringTransientFault(t *testing.T) {
	timing := fastTiming()
	timing.TransientFaultTime = 5 * time.Second
	c, rec := newTestController(t, timing)

	c.ArmOpenFault()
	c.Open()
	waitFor(t, "transient fade to start", func() bool { return len(rec.Calls("Tint")) > 0 })

	c.HardFault()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected worker to exit after hard fault")
	}

	tints := rec.Calls("Tint")
	if len(tints) < 3 {
		t.Fatalf("Expected fade, clear and hard tint, got %+v", tints)
	}
	if got := tints[len(tints)-2].Tint; got != unit.Clear {
		t.Errorf("Expected transient cleanup before hard fault tint, got %+v", got)
	}
	if got := tints[len(tints)-1].Tint; got != unit.HardFaultTint {
		t.Errorf("Expected hard fault tint last, got %+v", got)
	}
	if got := c.Status().Door; got == unit.DoorOpen {
		t.Error("Expected door transition to be aborted")
	}
}

func TestStop(t *testing.T) {
	c := unit.New(7, fastTiming(), unit.Discard{}, zerolog.Nop())
	c.Move(50)
	c.Stop()

	select {
	case <-c.Done():
	default:
		t.Error("Expected worker to have exited after Stop")
	}
}
