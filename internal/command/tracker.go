package command

import (
	"sync"
	"time"

	"github.com/lift-control/lcc/internal/request"
	"github.com/lift-control/lcc/internal/unit"
)

// Stats summarizes every request seen since startup.
type Stats struct {
	Total           int           `json:"total"`
	Loaded          int           `json:"loaded"`
	Processed       int           `json:"processed"`
	Faulted         int           `json:"faulted"`
	InFlight        int           `json:"inFlight"`
	MeanServiceTime time.Duration `json:"-"`
	MeanServiceMs   int64         `json:"meanServiceMs"`
}

type tracked struct {
	req  *request.Request
	unit int
	done time.Time
}

// Tracker follows dispatched requests through passenger notifications. A
// taken event at a floor loads the oldest unloaded request of that unit
// waiting there; a delivered event processes the oldest loaded request bound
// for that floor. Requests are kept after completion for statistics.
type Tracker struct {
	unit.Discard

	mu       sync.Mutex
	all      []*tracked
	inflight map[int][]*tracked
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{inflight: make(map[int][]*tracked)}
}

// Track registers a request dispatched to unitID.
func (t *Tracker) Track(unitID int, req *request.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := &tracked{req: req, unit: unitID}
	t.all = append(t.all, entry)
	t.inflight[unitID] = append(t.inflight[unitID], entry)
}

// Taken marks waiting requests at floor as loaded.
func (t *Tracker) Taken(unitID, floor, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.inflight[unitID] {
		if count == 0 {
			return
		}
		if !entry.req.Loaded() && entry.req.Origin() == floor {
			entry.req.MarkLoaded()
			count--
		}
	}
}

// Delivered marks loaded requests bound for floor as processed.
func (t *Tracker) Delivered(unitID, floor, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.inflight[unitID][:0]
	for _, entry := range t.inflight[unitID] {
		if count > 0 && entry.req.Loaded() && entry.req.Destination() == floor {
			entry.req.MarkProcessed()
			entry.done = time.Now()
			count--
			continue
		}
		pending = append(pending, entry)
	}
	t.inflight[unitID] = pending
}

// Stats returns request statistics.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Stats
	var service time.Duration
	for _, entry := range t.all {
		s.Total++
		if entry.req.Loaded() {
			s.Loaded++
		}
		if entry.req.Fault() != request.NoFault {
			s.Faulted++
		}
		if !entry.req.Processed() {
			continue
		}
		s.Processed++
		if start, ok := entry.req.StartTime(); ok && !entry.done.IsZero() {
			service += entry.done.Sub(start)
		}
	}
	for _, entries := range t.inflight {
		s.InFlight += len(entries)
	}
	if s.Processed > 0 {
		s.MeanServiceTime = service / time.Duration(s.Processed)
		s.MeanServiceMs = s.MeanServiceTime.Milliseconds()
	}
	return s
}

var _ unit.Notifier = (*Tracker)(nil)
