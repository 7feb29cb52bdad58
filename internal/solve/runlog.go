package solve

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Entry is one line of run history.
type Entry struct {
	Time     time.Time
	RunID    string
	TaskKey  string
	TaskType TaskType
	Message  string
}

// RunLog is the append-only sink every solver and the runner write
// progress into. Entries accumulate for inspection after the run, stream
// to an optional writer as they happen, and fan out through a bounded
// event channel. Emission never blocks: when the consumer falls behind,
// events are dropped rather than stalling a solve.
type RunLog struct {
	mu      sync.RWMutex
	entries []Entry
	events  chan Entry
	w       io.Writer
	closed  bool
}

// NewRunLog creates a run log with an event buffer of the given size
// (<= 0 picks a default).
func NewRunLog(buffer int) *RunLog {
	if buffer <= 0 {
		buffer = 64
	}
	return &RunLog{events: make(chan Entry, buffer)}
}

// SetWriter mirrors every entry to w as a formatted line.
func (l *RunLog) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = w
}

// Append records an entry, stamping Time when unset.
func (l *RunLog) Append(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	w := l.w
	// Emit under the lock so Close cannot land between the check and the
	// send. The send is non-blocking, so the lock is held only briefly.
	if !l.closed {
		select {
		case l.events <- e:
		default:
		}
	}
	l.mu.Unlock()

	if w != nil {
		fmt.Fprintf(w, "%s [%s] %s: %s\n", e.Time.Format("15:04:05"), e.TaskType, e.TaskKey, e.Message)
	}
}

// Entries returns a copy of everything appended so far.
func (l *RunLog) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *RunLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Events returns the live entry stream. The channel closes when the run
// log is closed.
func (l *RunLog) Events() <-chan Entry {
	return l.events
}

// Close closes the event stream. Appends after Close still accumulate but
// no longer emit. Safe to call more than once.
func (l *RunLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.events)
}
