package diagnostics

import (
	"sync"
	"time"
)

// Entry is one developer-facing failure record. It never carries the
// visitor id, which doubles as the session cookie.
type Entry struct {
	Time     time.Time `json:"time"`
	ActionID string    `json:"actionId,omitempty"`
	Message  string    `json:"message"`
}

// Ring holds the most recent entries, overwriting the oldest when full.
// It is safe for concurrent use.
type Ring struct {
	mu       sync.Mutex
	buf      []Entry
	writePos int
	capacity int
	written  int // total entries ever added
}

// New creates a ring holding up to capacity entries (minimum 1).
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:      make([]Entry, capacity),
		capacity: capacity,
	}
}

// Add appends an entry. A zero Time is set to now.
func (r *Ring) Add(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.writePos] = e
	r.writePos = (r.writePos + 1) % r.capacity
	r.written++
}

// Snapshot returns a copy of the last n entries, oldest first.
// n <= 0 returns everything held.
func (r *Ring) Snapshot(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	available := min(r.written, r.capacity)
	if n <= 0 || n > available {
		n = available
	}
	if n == 0 {
		return nil
	}

	out := make([]Entry, n)
	start := (r.writePos - n + r.capacity) % r.capacity
	for i := range out {
		out[i] = r.buf[(start+i)%r.capacity]
	}
	return out
}

// Len returns the number of entries currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return min(r.written, r.capacity)
}

// Total returns the number of entries ever added.
func (r *Ring) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
