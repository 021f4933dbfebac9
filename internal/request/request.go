package request

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrDecode is wrapped by every error returned from Decode.
var ErrDecode = errors.New("DECODE_ERROR")

const (
	// Delimiter separates fields in the wire encoding.
	Delimiter = ";"

	// TimeLayout is the wire layout of the request time.
	TimeLayout = "15:04:05.000"

	minFields = 6
)

// Request is a single passenger request. It is safe for concurrent use;
// the dispatcher and unit notifications may touch it from different goroutines.
type Request struct {
	mu sync.Mutex

	time        time.Time
	direction   Direction
	origin      int
	destination int
	loaded      bool
	processed   bool
	startTime   time.Time
	fault       Fault
	hasFault    bool
}

// New creates an unloaded, unprocessed request with no fault annotation.
// The time is reduced to its time of day at millisecond precision.
func New(at time.Time, direction Direction, origin, destination int) *Request {
	return &Request{
		time:        Clock(at),
		direction:   direction,
		origin:      origin,
		destination: destination,
	}
}

// Clock projects t onto a date-less time of day truncated to the millisecond.
func Clock(t time.Time) time.Time {
	return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC).
		Truncate(time.Millisecond)
}

// Decode parses a wire record. At least six fields are required; a seventh
// field, when present, is the fault token.
func Decode(data []byte) (*Request, error) {
	line := strings.TrimSpace(strings.TrimRight(string(data), "\x00"))
	parts := strings.Split(line, Delimiter)
	if len(parts) < minFields {
		return nil, fmt.Errorf("%w: expected at least %d fields, got %d", ErrDecode, minFields, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	at, err := parseClock(parts[0])
	if err != nil {
		return nil, err
	}

	direction, err := ParseDirection(parts[1])
	if err != nil {
		return nil, err
	}

	origin, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: origin floor %q: %v", ErrDecode, parts[2], err)
	}
	if origin < 0 {
		return nil, fmt.Errorf("%w: origin floor %d is negative", ErrDecode, origin)
	}

	destination, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: destination %q: %v", ErrDecode, parts[3], err)
	}

	r := New(at, direction, origin, destination)
	r.loaded = strings.HasPrefix(parts[4], "1")
	r.processed = strings.HasPrefix(parts[5], "1")
	if len(parts) > minFields {
		r.fault = ParseFault(parts[6])
		r.hasFault = true
	}
	return r, nil
}

func parseClock(s string) (time.Time, error) {
	// time.Parse also takes a comma before fractional seconds.
	if strings.Contains(s, ",") {
		return time.Time{}, fmt.Errorf("%w: invalid time of day %q", ErrDecode, s)
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid time of day %q", ErrDecode, s)
}

// Encode renders the request as a wire record.
func (r *Request) Encode() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(r.time.Format(TimeLayout))
	b.WriteString(Delimiter)
	b.WriteString(r.direction.String())
	b.WriteString(Delimiter)
	b.WriteString(strconv.Itoa(r.origin))
	b.WriteString(Delimiter)
	b.WriteString(strconv.Itoa(r.destination))
	b.WriteString(Delimiter)
	b.WriteString(flag(r.loaded))
	b.WriteString(Delimiter)
	b.WriteString(flag(r.processed))
	if r.hasFault {
		b.WriteString(Delimiter)
		b.WriteString(r.fault.String())
	}
	return []byte(b.String())
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// Time returns the scheduled time of day.
func (r *Request) Time() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.time
}

// Direction returns the requested travel direction.
func (r *Request) Direction() Direction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.direction
}

// Origin returns the floor where the passenger waits.
func (r *Request) Origin() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.origin
}

// Destination returns the in-unit target selector.
func (r *Request) Destination() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destination
}

// Loaded reports whether the passenger has boarded.
func (r *Request) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Processed reports whether the request has been completed.
func (r *Request) Processed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}

// MarkLoaded sets the loaded flag. It never reverts.
func (r *Request) MarkLoaded() {
	r.mu.Lock()
	r.loaded = true
	r.mu.Unlock()
}

// MarkProcessed sets the processed flag. It never reverts.
func (r *Request) MarkProcessed() {
	r.mu.Lock()
	r.processed = true
	r.mu.Unlock()
}

// StartTime returns when servicing began and whether it has been set.
func (r *Request) StartTime() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTime, !r.startTime.IsZero()
}

// SetStartTime records when servicing began.
func (r *Request) SetStartTime(t time.Time) {
	r.mu.Lock()
	r.startTime = t
	r.mu.Unlock()
}

// Fault returns the fault annotation, NoFault when absent.
func (r *Request) Fault() Fault {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasFault {
		return NoFault
	}
	return r.fault
}

// AddFault annotates the request with a fault tag.
func (r *Request) AddFault(f Fault) {
	r.mu.Lock()
	r.fault = f
	r.hasFault = true
	r.mu.Unlock()
}

// ClearFault resets the fault tag to NoFault. The loaded and processed
// flags are left untouched.
func (r *Request) ClearFault() {
	r.AddFault(NoFault)
}

// Delay returns how long after baseline the request becomes eligible,
// truncated to the millisecond. Both instants are compared as times of day.
func (r *Request) Delay(baseline time.Time) time.Duration {
	return r.Time().Sub(Clock(baseline)).Truncate(time.Millisecond)
}

// WaitForTime blocks until the request becomes eligible relative to baseline.
// It returns at once when the delay is not positive and returns early,
// silently, when ctx is cancelled.
func (r *Request) WaitForTime(ctx context.Context, baseline time.Time) {
	delay := r.Delay(baseline)
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// CompareByFloor orders requests by ascending origin floor.
func CompareByFloor(a, b *Request) int {
	return compareInt(a.Origin(), b.Origin())
}

// CompareByTime orders requests by ascending time of day.
func CompareByTime(a, b *Request) int {
	return a.Time().Compare(b.Time())
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// String returns a human-readable summary used in logs.
func (r *Request) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	fault := "NO_FAULT"
	if r.hasFault {
		fault = r.fault.String()
	}
	return fmt.Sprintf("[%s] %s from floor %d to %d (loaded=%t processed=%t fault=%s)",
		r.time.Format(TimeLayout), r.direction, r.origin, r.destination, r.loaded, r.processed, fault)
}
