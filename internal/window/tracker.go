// Package window implements the sliding-window counters behind the spam and
// raid detectors: per key, how many events landed within the last W seconds.
package window

import "time"

// Tracker keeps a bounded, ordered timestamp sequence per key. Capacity
// bounds memory under sustained flooding (oldest entries are evicted first);
// the window bounds what Record and Peek count.
//
// A Tracker is owned by the engine goroutine and is not safe for concurrent
// use.
type Tracker struct {
	window   time.Duration
	capacity int
	keys     map[uint64][]int64
}

func NewTracker(window time.Duration, capacity int) *Tracker {
	if capacity < 1 {
		capacity = 1
	}
	return &Tracker{
		window:   window,
		capacity: capacity,
		keys:     make(map[uint64][]int64),
	}
}

// Record appends a timestamp for key, evicts entries older than the window,
// and returns the resulting in-window count.
func (t *Tracker) Record(key uint64, ts time.Time) int {
	seq := t.keys[key]

	if len(seq) >= t.capacity {
		// Oldest out first, keeping the sequence bounded.
		drop := len(seq) - t.capacity + 1
		seq = seq[:copy(seq, seq[drop:])]
	}
	seq = append(seq, ts.UnixNano())

	seq = evict(seq, ts.Add(-t.window).UnixNano())
	t.keys[key] = seq
	return len(seq)
}

// Peek returns the in-window count for key as of now, evicting stale entries
// without recording anything.
func (t *Tracker) Peek(key uint64, now time.Time) int {
	seq, ok := t.keys[key]
	if !ok {
		return 0
	}
	seq = evict(seq, now.Add(-t.window).UnixNano())
	t.keys[key] = seq
	return len(seq)
}

// Reset clears the sequence for key. Detectors call this after a breach so
// the same burst cannot immediately re-trigger.
func (t *Tracker) Reset(key uint64) {
	delete(t.keys, key)
}

// Window returns the configured window duration.
func (t *Tracker) Window() time.Duration {
	return t.window
}

func evict(seq []int64, cutoff int64) []int64 {
	idx := 0
	for idx < len(seq) && seq[idx] < cutoff {
		idx++
	}
	if idx == 0 {
		return seq
	}
	return seq[:copy(seq, seq[idx:])]
}
