// Package engine runs the detection loop. One goroutine owns the loop and
// every sliding window in it, so the hot path takes no locks; everything
// that talks to the platform leaves through the job queue.
package engine

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/dispatcher"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/ingest"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/sys"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/window"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

const (
	colorAlert = 0xE74C3C
	colorWarn  = 0xF1C40F
	colorMute  = 0xE67E22
)

// IncidentSink receives moderation incidents for the audit log. A nil sink
// disables recording. RecordIncident is called from the detection loop, so
// implementations must buffer or drop rather than block.
type IncidentSink interface {
	RecordIncident(guildID, userID uint64, kind, detail string)
}

type Engine struct {
	cfg      *config.Config
	ring     *ingest.RingBuffer
	jobs     *dispatcher.Queue
	flags    *state.FlagStore
	warns    *state.WarnLedger
	stats    *metrics.Store
	traffic  *metrics.Traffic
	lockdown *lockdown.Controller
	sink     IncidentSink
	clk      clock.Clock

	// per-guild message windows keyed by user, owned by the loop goroutine
	spamWindows map[uint64]*window.Tracker
	// single join window keyed by guild
	joinWindow *window.Tracker

	running   atomic.Bool
	heartbeat atomic.Int64
}

func New(cfg *config.Config, ring *ingest.RingBuffer, jobs *dispatcher.Queue,
	flags *state.FlagStore, warns *state.WarnLedger, stats *metrics.Store,
	traffic *metrics.Traffic, ld *lockdown.Controller, sink IncidentSink, clk clock.Clock) *Engine {
	return &Engine{
		cfg:         cfg,
		ring:        ring,
		jobs:        jobs,
		flags:       flags,
		warns:       warns,
		stats:       stats,
		traffic:     traffic,
		lockdown:    ld,
		sink:        sink,
		clk:         clk,
		spamWindows: make(map[uint64]*window.Tracker),
		joinWindow: window.NewTracker(
			time.Duration(cfg.Protection.RaidWindowSeconds)*time.Second,
			cfg.Protection.RaidWindowCap,
		),
	}
}

// Run consumes the event ring until Stop is called. It pins its OS thread
// and busy-spins; the loop must stay allocation-free between events.
func (e *Engine) Run() {
	runtime.LockOSThread()
	if core := e.cfg.Runtime.EngineCPU; core >= 0 {
		if err := sys.PinToCore(core); err != nil {
			logging.Warn("Engine CPU pinning failed: %v", err)
		}
	}

	e.running.Store(true)
	e.heartbeat.Store(time.Now().UnixNano())
	logging.Info("Protection engine started")

	var spins uint32
	for e.running.Load() {
		ev, ok := e.ring.Dequeue()
		if !ok {
			spins++
			if spins&0x3FFF == 0 {
				e.heartbeat.Store(time.Now().UnixNano())
			}
			runtime.Gosched()
			continue
		}

		e.Process(ev)
		e.heartbeat.Store(time.Now().UnixNano())
	}
	logging.Info("Protection engine stopped")
}

func (e *Engine) Stop() {
	e.running.Store(false)
}

// LastHeartbeat returns the unix-nano timestamp of the last loop activity.
func (e *Engine) LastHeartbeat() int64 {
	return e.heartbeat.Load()
}

// Process applies detection to a single event. Exported so tests can drive
// the engine without the spin loop.
func (e *Engine) Process(ev ingest.Event) {
	switch ev.EventType {
	case ingest.EventTypeMessage:
		e.handleMessage(ev)
	case ingest.EventTypeJoin:
		e.handleJoin(ev)
	}
}

func (e *Engine) handleMessage(ev ingest.Event) {
	e.stats.Incr(metrics.CounterMessagesSeen, ev.GuildID)
	ts := time.Unix(0, ev.Timestamp)
	e.traffic.Record(ts)

	// moderators and whitelisted users are marked upstream
	if ev.Exempt {
		return
	}

	if e.flags.Get(state.FlagAntiSpam) {
		n := e.spamWindow(ev.GuildID).Record(ev.UserID, ts)
		if n >= e.cfg.Protection.SpamMaxMessages {
			e.onSpam(ev)
		}
	}

	if e.flags.Get(state.FlagAntiInvites) && ev.ContainsInvite {
		e.onInvite(ev)
	}

	if e.flags.Get(state.FlagAntiMentions) {
		if ev.MentionsEveryone || int(ev.MentionCount) >= e.cfg.Protection.MentionThreshold {
			e.onMentionFlood(ev)
		}
	}
}

func (e *Engine) handleJoin(ev ingest.Event) {
	e.stats.Incr(metrics.CounterJoinsSeen, ev.GuildID)

	if !e.flags.Get(state.FlagAntiRaid) {
		return
	}

	ts := time.Unix(0, ev.Timestamp)
	n := e.joinWindow.Record(ev.GuildID, ts)
	if n < e.cfg.Protection.RaidJoinThreshold {
		return
	}
	if e.lockdown.Mode(ev.GuildID) != lockdown.Monitoring {
		return
	}

	e.stats.Incr(metrics.CounterRaidsDetected, ev.GuildID)
	e.joinWindow.Reset(ev.GuildID)
	e.record(ev.GuildID, 0, "raid", fmt.Sprintf("%d joins within %ds", n, e.cfg.Protection.RaidWindowSeconds))
	logging.Warn("Raid detected in guild %d (%d joins), locking down", ev.GuildID, n)

	e.jobs.Enqueue(dispatcher.NewRaidLockJob(ev.GuildID))
	e.jobs.Enqueue(dispatcher.NewNotifyJob(ev.GuildID, "🚨 Raid Detected",
		fmt.Sprintf("%d joins in %d seconds. Text channels locked for %d minutes.",
			n, e.cfg.Protection.RaidWindowSeconds, e.cfg.Protection.RaidLockMinutes), colorAlert))
}

func (e *Engine) onSpam(ev ingest.Event) {
	e.stats.Incr(metrics.CounterSpamFlags, ev.GuildID)
	e.spamWindow(ev.GuildID).Reset(ev.UserID)
	e.record(ev.GuildID, ev.UserID, "spam",
		fmt.Sprintf("%d messages within %ds", e.cfg.Protection.SpamMaxMessages, e.cfg.Protection.SpamWindowSeconds))

	reason := "GLX Protection • spam"
	e.jobs.Enqueue(dispatcher.NewDeleteJob(ev.GuildID, ev.ChannelID, ev.MessageID, reason))
	e.mute(ev.GuildID, ev.UserID, time.Duration(e.cfg.Protection.AutoMuteSeconds)*time.Second, reason)
	e.warn(ev.GuildID, ev.UserID, "spamming")
}

func (e *Engine) onInvite(ev ingest.Event) {
	e.stats.Incr(metrics.CounterInvitesBlocked, ev.GuildID)
	e.record(ev.GuildID, ev.UserID, "invite", "invite link posted")

	e.jobs.Enqueue(dispatcher.NewDeleteJob(ev.GuildID, ev.ChannelID, ev.MessageID, "GLX Protection • invite link"))
	e.warn(ev.GuildID, ev.UserID, "posting invite links")
}

func (e *Engine) onMentionFlood(ev ingest.Event) {
	e.stats.Incr(metrics.CounterMentionsFlagged, ev.GuildID)
	e.record(ev.GuildID, ev.UserID, "mention_flood",
		fmt.Sprintf("%d mentions in one message", ev.MentionCount))

	reason := "GLX Protection • mention flood"
	e.jobs.Enqueue(dispatcher.NewDeleteJob(ev.GuildID, ev.ChannelID, ev.MessageID, reason))
	e.mute(ev.GuildID, ev.UserID, time.Duration(e.cfg.Protection.AutoMuteSeconds)*time.Second, reason)
	e.warn(ev.GuildID, ev.UserID, "mass mentions")
}

// warn adds a strike and escalates to a long mute when the ledger reaches
// the threshold. The ledger resets on escalation so the next strike starts
// a fresh count.
func (e *Engine) warn(guildID, userID uint64, why string) {
	n := e.warns.Warn(guildID, userID)
	threshold := e.cfg.Protection.WarnThreshold

	e.jobs.Enqueue(dispatcher.NewNotifyJob(guildID, "⚠️ Warning",
		fmt.Sprintf("<@%d> warned for %s (%d/%d)", userID, why, n, threshold), colorWarn))

	if n < threshold {
		return
	}

	e.warns.Clear(guildID, userID)
	e.record(guildID, userID, "warn_escalation", fmt.Sprintf("reached %d warnings", threshold))
	e.mute(guildID, userID, time.Duration(e.cfg.Protection.WarnMuteMinutes)*time.Minute,
		"GLX Protection • warning limit reached")
}

func (e *Engine) mute(guildID, userID uint64, d time.Duration, reason string) {
	e.stats.Incr(metrics.CounterTimeouts, guildID)
	e.stats.Incr(metrics.CounterMutes, guildID)
	e.jobs.Enqueue(dispatcher.NewTimeoutJob(guildID, userID, d, reason))
	e.jobs.Enqueue(dispatcher.NewNotifyJob(guildID, "🔇 Muted",
		fmt.Sprintf("<@%d> muted for %s. %s", userID, util.FormatSeconds(int(d.Seconds())), reason), colorMute))
}

func (e *Engine) record(guildID, userID uint64, kind, detail string) {
	if e.sink != nil {
		e.sink.RecordIncident(guildID, userID, kind, detail)
	}
}

func (e *Engine) spamWindow(guildID uint64) *window.Tracker {
	t, ok := e.spamWindows[guildID]
	if !ok {
		t = window.NewTracker(
			time.Duration(e.cfg.Protection.SpamWindowSeconds)*time.Second,
			e.cfg.Protection.SpamWindowCap,
		)
		e.spamWindows[guildID] = t
	}
	return t
}
