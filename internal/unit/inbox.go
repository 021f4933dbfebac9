package unit

import (
	"context"
	"sync"
)

// inbox is an unbounded double-ended job queue with a blocking take.
// Once shut it refuses further pushes.
type inbox struct {
	mu     sync.Mutex
	items  []Command
	closed bool
	ready  chan struct{}
}

func newInbox() *inbox {
	return &inbox{ready: make(chan struct{}, 1)}
}

func (q *inbox) pushBack(cmd Command) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()
	q.signal()
	return true
}

func (q *inbox) pushFront(cmd Command) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append([]Command{cmd}, q.items...)
	q.mu.Unlock()
	q.signal()
	return true
}

func (q *inbox) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// take blocks until a job is available or ctx is done.
func (q *inbox) take(ctx context.Context) (Command, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return cmd, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Command{}, false
		case <-q.ready:
		}
	}
}

// shut discards queued jobs and refuses later pushes. It returns the
// number discarded.
func (q *inbox) shut() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	n := len(q.items)
	q.items = nil
	return n
}

func (q *inbox) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
