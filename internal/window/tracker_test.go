package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerRecord(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("counts events inside the window", func(t *testing.T) {
		tr := NewTracker(7*time.Second, 50)
		for i := 0; i < 6; i++ {
			tr.Record(1, base.Add(time.Duration(i)*time.Second))
		}
		assert.Equal(t, 7, tr.Record(1, base.Add(6500*time.Millisecond)))
	})

	t.Run("evicts events older than the window", func(t *testing.T) {
		tr := NewTracker(7*time.Second, 50)
		tr.Record(1, base)
		tr.Record(1, base.Add(time.Second))
		// 8s later the first two have aged out
		assert.Equal(t, 1, tr.Record(1, base.Add(8*time.Second)))
	})

	t.Run("boundary event exactly window old still counts", func(t *testing.T) {
		tr := NewTracker(7*time.Second, 50)
		tr.Record(1, base)
		assert.Equal(t, 2, tr.Record(1, base.Add(7*time.Second)))
	})

	t.Run("keys are independent", func(t *testing.T) {
		tr := NewTracker(7*time.Second, 50)
		tr.Record(1, base)
		tr.Record(1, base)
		assert.Equal(t, 1, tr.Record(2, base))
	})

	t.Run("capacity bounds retained events", func(t *testing.T) {
		tr := NewTracker(time.Hour, 5)
		for i := 0; i < 20; i++ {
			n := tr.Record(1, base.Add(time.Duration(i)*time.Millisecond))
			assert.LessOrEqual(t, n, 5)
		}
	})
}

func TestTrackerPeek(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(10*time.Second, 128)

	tr.Record(7, base)
	tr.Record(7, base.Add(time.Second))

	assert.Equal(t, 2, tr.Peek(7, base.Add(2*time.Second)))
	// Peek must not add an event
	assert.Equal(t, 3, tr.Record(7, base.Add(3*time.Second)))
	assert.Equal(t, 0, tr.Peek(99, base))
}

func TestTrackerReset(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(10*time.Second, 128)

	for i := 0; i < 6; i++ {
		tr.Record(3, base.Add(time.Duration(i)*time.Millisecond))
	}
	tr.Reset(3)
	assert.Equal(t, 1, tr.Record(3, base.Add(time.Second)))
}
