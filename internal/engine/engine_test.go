package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/dispatcher"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/ingest"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
)

const (
	testGuild   = uint64(500)
	testUser    = uint64(77)
	testChannel = uint64(900)
)

type testHarness struct {
	engine *Engine
	jobs   *dispatcher.Queue
	warns  *state.WarnLedger
	flags  *state.FlagStore
	stats  *metrics.Store
	clk    *clock.Fake
}

// noopLocker satisfies the lockdown controller; engine tests never execute
// lock jobs, they only inspect the queue.
type noopLocker struct{}

func (noopLocker) GuildTextChannels(uint64) ([]lockdown.ChannelState, error) { return nil, nil }
func (noopLocker) SetSendLock(uint64, uint64, bool, string) error           { return nil }

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	cfg := config.DefaultConfig()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	stats := metrics.NewStore(clk.Now())
	jobs := dispatcher.NewQueue()
	flags := state.NewFlagStore(cfg.FlagDefaults())
	warns := state.NewWarnLedger()
	ld := lockdown.NewController(noopLocker{}, stats, clk, 10*time.Minute)

	eng := New(cfg, ingest.NewRingBuffer(64), jobs, flags, warns, stats,
		metrics.NewTraffic(5000), ld, nil, clk)
	return &testHarness{engine: eng, jobs: jobs, warns: warns, flags: flags, stats: stats, clk: clk}
}

func (h *testHarness) message(ts time.Time) ingest.Event {
	return ingest.NewMessageEvent(testGuild, testUser, testChannel, 1, ts.UnixNano())
}

func (h *testHarness) drainJobs() map[dispatcher.JobType]int {
	counts := make(map[dispatcher.JobType]int)
	for {
		job, ok := h.jobs.Dequeue()
		if !ok {
			return counts
		}
		counts[job.Type]++
	}
}

func TestSpamDetection(t *testing.T) {
	t.Run("seventh message in the window flags once", func(t *testing.T) {
		h := newHarness(t)
		base := h.clk.Now()
		for i := 0; i < 7; i++ {
			h.engine.Process(h.message(base.Add(time.Duration(i) * 100 * time.Millisecond)))
		}

		assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterSpamFlags))
		assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterTimeouts))
		assert.Equal(t, 1, h.warns.Count(testGuild, testUser))

		counts := h.drainJobs()
		assert.Equal(t, 1, counts[dispatcher.JobDeleteMessage])
		assert.Equal(t, 1, counts[dispatcher.JobTimeout])
	})

	t.Run("the window resets after a flag", func(t *testing.T) {
		h := newHarness(t)
		base := h.clk.Now()
		for i := 0; i < 8; i++ {
			h.engine.Process(h.message(base.Add(time.Duration(i) * 100 * time.Millisecond)))
		}
		// the eighth message starts a fresh window
		assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterSpamFlags))
	})

	t.Run("slow messages never flag", func(t *testing.T) {
		h := newHarness(t)
		base := h.clk.Now()
		for i := 0; i < 20; i++ {
			h.engine.Process(h.message(base.Add(time.Duration(i) * 2 * time.Second)))
		}
		assert.Equal(t, uint64(0), h.stats.Global().Get(metrics.CounterSpamFlags))
	})

	t.Run("exempt authors are never flagged", func(t *testing.T) {
		h := newHarness(t)
		base := h.clk.Now()
		for i := 0; i < 10; i++ {
			ev := h.message(base)
			ev.Exempt = true
			h.engine.Process(ev)
		}
		assert.Equal(t, uint64(0), h.stats.Global().Get(metrics.CounterSpamFlags))
		// message traffic still counts
		assert.Equal(t, uint64(10), h.stats.Global().Get(metrics.CounterMessagesSeen))
	})

	t.Run("disabled feature skips detection", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.flags.Set(state.FlagAntiSpam, false))
		base := h.clk.Now()
		for i := 0; i < 10; i++ {
			h.engine.Process(h.message(base))
		}
		assert.Equal(t, uint64(0), h.stats.Global().Get(metrics.CounterSpamFlags))
	})
}

func TestInviteDetection(t *testing.T) {
	h := newHarness(t)
	ev := h.message(h.clk.Now())
	ev.ContainsInvite = true
	h.engine.Process(ev)

	assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterInvitesBlocked))
	assert.Equal(t, 1, h.warns.Count(testGuild, testUser))

	counts := h.drainJobs()
	assert.Equal(t, 1, counts[dispatcher.JobDeleteMessage])
	assert.Equal(t, 0, counts[dispatcher.JobTimeout])
}

func TestMentionFloodDetection(t *testing.T) {
	t.Run("mass mention mutes and deletes", func(t *testing.T) {
		h := newHarness(t)
		ev := h.message(h.clk.Now())
		ev.MentionCount = 8
		h.engine.Process(ev)

		assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterMentionsFlagged))
		counts := h.drainJobs()
		assert.Equal(t, 1, counts[dispatcher.JobDeleteMessage])
		assert.Equal(t, 1, counts[dispatcher.JobTimeout])
	})

	t.Run("everyone ping triggers regardless of count", func(t *testing.T) {
		h := newHarness(t)
		ev := h.message(h.clk.Now())
		ev.MentionsEveryone = true
		h.engine.Process(ev)
		assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterMentionsFlagged))
	})

	t.Run("seven mentions stay under the threshold", func(t *testing.T) {
		h := newHarness(t)
		ev := h.message(h.clk.Now())
		ev.MentionCount = 7
		h.engine.Process(ev)
		assert.Equal(t, uint64(0), h.stats.Global().Get(metrics.CounterMentionsFlagged))
	})
}

func TestWarnEscalation(t *testing.T) {
	h := newHarness(t)
	base := h.clk.Now()

	// invites warn without muting, so five of them walk the ledger to the
	// threshold
	for i := 0; i < 5; i++ {
		ev := h.message(base.Add(time.Duration(i) * time.Minute))
		ev.ContainsInvite = true
		h.engine.Process(ev)
	}

	counts := h.drainJobs()
	assert.Equal(t, 1, counts[dispatcher.JobTimeout], "exactly one escalation mute")
	assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterTimeouts))
	// ledger resets after escalation
	assert.Equal(t, 0, h.warns.Count(testGuild, testUser))
}

func TestRaidDetection(t *testing.T) {
	join := func(user uint64, ts time.Time) ingest.Event {
		return ingest.NewJoinEvent(testGuild, user, ts.UnixNano())
	}

	t.Run("six joins inside the window trigger a lockdown job", func(t *testing.T) {
		h := newHarness(t)
		base := h.clk.Now()
		for i := 0; i < 6; i++ {
			h.engine.Process(join(uint64(1000+i), base.Add(time.Duration(i)*time.Second)))
		}

		assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterRaidsDetected))
		assert.Equal(t, uint64(6), h.stats.Global().Get(metrics.CounterJoinsSeen))

		job, ok := h.jobs.Dequeue()
		require.True(t, ok)
		assert.Equal(t, dispatcher.JobRaidLock, job.Type)
		assert.Equal(t, dispatcher.PriorityCritical, job.Priority)
	})

	t.Run("join window resets after a detection", func(t *testing.T) {
		h := newHarness(t)
		base := h.clk.Now()
		for i := 0; i < 11; i++ {
			h.engine.Process(join(uint64(1000+i), base.Add(time.Duration(i)*100*time.Millisecond)))
		}
		// 6 trigger, reset, then only 5 more: no second detection
		assert.Equal(t, uint64(1), h.stats.Global().Get(metrics.CounterRaidsDetected))
	})

	t.Run("slow joins never trigger", func(t *testing.T) {
		h := newHarness(t)
		base := h.clk.Now()
		for i := 0; i < 20; i++ {
			h.engine.Process(join(uint64(1000+i), base.Add(time.Duration(i)*3*time.Second)))
		}
		assert.Equal(t, uint64(0), h.stats.Global().Get(metrics.CounterRaidsDetected))
	})

	t.Run("disabled anti-raid skips detection", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.flags.Set(state.FlagAntiRaid, false))
		base := h.clk.Now()
		for i := 0; i < 10; i++ {
			h.engine.Process(join(uint64(1000+i), base))
		}
		assert.Equal(t, uint64(0), h.stats.Global().Get(metrics.CounterRaidsDetected))
		assert.Equal(t, uint64(10), h.stats.Global().Get(metrics.CounterJoinsSeen))
	})
}
