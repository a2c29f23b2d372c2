package gate

import (
	"context"
	"sync"
	"time"
)

// DefaultJournalSize bounds the number of retained entries.
const DefaultJournalSize = 256

// Entry is a journaled request.
type Entry struct {
	Seq     int64     `json:"seq"`
	At      time.Time `json:"at"`
	Request Request   `json:"request"`
}

// Journal keeps the most recent gate requests in memory so they can be served
// to pollers. Sequence numbers increase monotonically from 1.
type Journal struct {
	mu      sync.RWMutex
	size    int
	entries []Entry
	seq     int64
	now     func() time.Time
}

// JournalOption customizes a Journal.
type JournalOption func(*Journal)

// WithJournalClock overrides the timestamp source.
func WithJournalClock(clock func() time.Time) JournalOption {
	return func(j *Journal) {
		if clock != nil {
			j.now = clock
		}
	}
}

// NewJournal creates a ring holding at most size entries.
func NewJournal(size int, opts ...JournalOption) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	j := &Journal{size: size, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Notify implements Notifier.
func (j *Journal) Notify(_ context.Context, req Request) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.entries = append(j.entries, Entry{Seq: j.seq, At: j.now().UTC(), Request: req})
	if over := len(j.entries) - j.size; over > 0 {
		j.entries = append([]Entry(nil), j.entries[over:]...)
	}
	return nil
}

// List returns retained entries with a sequence number greater than since.
func (j *Journal) List(since int64) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Entry, 0, len(j.entries))
	for _, e := range j.entries {
		if e.Seq > since {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the highest assigned sequence number.
func (j *Journal) Last() int64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.seq
}
