package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStore(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("incr updates global and guild counters", func(t *testing.T) {
		s := NewStore(start)
		s.Incr(CounterMessagesSeen, 10)
		s.Incr(CounterMessagesSeen, 10)
		s.Incr(CounterMessagesSeen, 11)

		assert.Equal(t, uint64(3), s.Global().Get(CounterMessagesSeen))
		assert.Equal(t, uint64(2), s.Guild(10).Get(CounterMessagesSeen))
		assert.Equal(t, uint64(1), s.Guild(11).Get(CounterMessagesSeen))
	})

	t.Run("unknown counter names are ignored", func(t *testing.T) {
		s := NewStore(start)
		s.Incr("not_a_counter", 10)
		assert.Equal(t, uint64(0), s.Global().Get("not_a_counter"))
	})

	t.Run("snapshot includes every known counter", func(t *testing.T) {
		s := NewStore(start)
		snap := s.Global().Snapshot()
		assert.Len(t, snap, 13)
		assert.Contains(t, snap, CounterRaidLocks)
		assert.Contains(t, snap, CounterNukes)
	})

	t.Run("uptime tracks the start time", func(t *testing.T) {
		s := NewStore(start)
		assert.Equal(t, 90*time.Second, s.Uptime(start.Add(90*time.Second)))
	})
}

func TestTrafficCollect(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	t.Run("empty series has no nil slices", func(t *testing.T) {
		tr := NewTraffic(100)
		s := tr.Collect(now)
		require.NotNil(t, s.Counts)
		require.NotNil(t, s.Labels)
		assert.Empty(t, s.Counts)
	})

	t.Run("buckets cover the trailing five minutes", func(t *testing.T) {
		tr := NewTraffic(5000)
		// one event per bucket: buckets are 10s wide
		for i := 0; i < 30; i++ {
			tr.Record(now.Add(-5*time.Minute + time.Duration(i*10)*time.Second + 5*time.Second))
		}
		s := tr.Collect(now)
		require.Len(t, s.Counts, 30)
		require.Len(t, s.Labels, 30)
		for i, c := range s.Counts {
			assert.Equal(t, 1, c, "bucket %d", i)
		}
	})

	t.Run("labels use UTC+7 wall time", func(t *testing.T) {
		tr := NewTraffic(100)
		tr.Record(now.Add(-time.Second))
		s := tr.Collect(now)
		// window starts 12:00 UTC, 19:00 in Jakarta
		assert.Equal(t, "19:00", s.Labels[0])
		assert.Equal(t, "2026-03-01 19:00:00", s.WindowStartJakarta)
		assert.Equal(t, "2026-03-01 12:00:00", s.WindowStartUTC)
	})

	t.Run("points older than the window do not count", func(t *testing.T) {
		tr := NewTraffic(100)
		tr.Record(now.Add(-10 * time.Minute))
		tr.Record(now.Add(-time.Second))
		s := tr.Collect(now)
		total := 0
		for _, c := range s.Counts {
			total += c
		}
		assert.Equal(t, 1, total)
	})

	t.Run("capacity evicts the oldest points", func(t *testing.T) {
		tr := NewTraffic(3)
		for i := 0; i < 10; i++ {
			tr.Record(now.Add(time.Duration(i) * time.Second))
		}
		s := tr.Collect(now.Add(20 * time.Second))
		total := 0
		for _, c := range s.Counts {
			total += c
		}
		assert.Equal(t, 3, total)
	})
}
