// Package lockdown drives the per-guild raid response: lock every text
// channel the guild will let us, remember exactly which ones we locked, and
// restore them after the configured duration or on manual override.
package lockdown

import (
	"sync"
	"time"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
)

type Mode uint8

const (
	Monitoring Mode = iota
	Locked
)

// ChannelState is the slice of channel information the controller needs:
// identity plus whether sending is already disabled by someone else.
type ChannelState struct {
	ID           uint64
	SendDisabled bool
}

// ChannelLocker is the platform side of a lockdown. Calls may fail
// transiently; per-channel failures are skipped, not fatal.
type ChannelLocker interface {
	GuildTextChannels(guildID uint64) ([]ChannelState, error)
	SetSendLock(guildID, channelID uint64, locked bool, reason string) error
}

type guildLockdown struct {
	mode           Mode
	locking        bool
	lockedChannels []uint64
	unlockTimer    clock.Timer
}

// Controller is the per-guild MONITORING/LOCKED state machine. A guild is
// LOCKED iff at least one channel carries a lock this controller applied;
// unlock only ever restores channels recorded here, never locks applied by
// the guild's own operators.
type Controller struct {
	mu       sync.Mutex
	locker   ChannelLocker
	stats    *metrics.Store
	clk      clock.Clock
	duration time.Duration
	guilds   map[uint64]*guildLockdown
}

func NewController(locker ChannelLocker, stats *metrics.Store, clk clock.Clock, duration time.Duration) *Controller {
	return &Controller{
		locker:   locker,
		stats:    stats,
		clk:      clk,
		duration: duration,
		guilds:   make(map[uint64]*guildLockdown),
	}
}

// Mode returns the guild's current state.
func (c *Controller) Mode(guildID uint64) Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.guilds[guildID]; ok {
		return g.mode
	}
	return Monitoring
}

// Lock transitions MONITORING -> LOCKED: disables sending on every text
// channel not already send-disabled, records the set it changed, and arms
// the auto-unlock timer. Returns the number of channels locked. Calling
// Lock while already LOCKED is a no-op returning 0; the existing unlock
// window is kept as-is (overlapping detections coalesce, the timer is not
// re-armed).
func (c *Controller) Lock(guildID uint64, reason string) (int, error) {
	c.mu.Lock()
	g, ok := c.guilds[guildID]
	if !ok {
		g = &guildLockdown{}
		c.guilds[guildID] = g
	}
	if g.mode == Locked || g.locking {
		c.mu.Unlock()
		return 0, nil
	}
	g.locking = true
	c.mu.Unlock()

	channels, err := c.locker.GuildTextChannels(guildID)
	if err != nil {
		c.mu.Lock()
		g.locking = false
		c.mu.Unlock()
		return 0, err
	}

	var locked []uint64
	for _, ch := range channels {
		if ch.SendDisabled {
			// Someone else owns this lock; touching it would make us
			// incorrectly restore it later.
			continue
		}
		if err := c.locker.SetSendLock(guildID, ch.ID, true, reason); err != nil {
			logging.Warn("Lockdown: failed to lock channel %d in guild %d: %v", ch.ID, guildID, err)
			continue
		}
		locked = append(locked, ch.ID)
	}

	if len(locked) == 0 {
		// Nothing changed, so the guild is not LOCKED and no timer runs.
		c.mu.Lock()
		g.locking = false
		c.mu.Unlock()
		return 0, nil
	}

	c.mu.Lock()
	g.locking = false
	g.mode = Locked
	g.lockedChannels = locked
	g.unlockTimer = c.clk.AfterFunc(c.duration, func() {
		changed, err := c.Unlock(guildID, "GLX Protection • auto unlock after raid")
		if err != nil {
			logging.Error("Lockdown: auto unlock failed for guild %d: %v", guildID, err)
			return
		}
		if changed > 0 {
			logging.Info("Lockdown: auto unlocked %d channels in guild %d", changed, guildID)
		}
	})
	c.mu.Unlock()

	if c.stats != nil {
		c.stats.Incr(metrics.CounterRaidLocks, guildID)
	}
	return len(locked), nil
}

// Unlock transitions LOCKED -> MONITORING, restoring only the channels this
// controller locked, and cancels any pending auto-unlock. Unlocking a guild
// that is not LOCKED is a no-op returning 0, so a missed timer cancellation
// cannot double-apply.
func (c *Controller) Unlock(guildID uint64, reason string) (int, error) {
	c.mu.Lock()
	g, ok := c.guilds[guildID]
	if !ok || g.mode != Locked {
		c.mu.Unlock()
		return 0, nil
	}

	channels := g.lockedChannels
	g.mode = Monitoring
	g.lockedChannels = nil
	if g.unlockTimer != nil {
		g.unlockTimer.Stop()
		g.unlockTimer = nil
	}
	c.mu.Unlock()

	changed := 0
	for _, chID := range channels {
		if err := c.locker.SetSendLock(guildID, chID, false, reason); err != nil {
			logging.Warn("Lockdown: failed to unlock channel %d in guild %d: %v", chID, guildID, err)
			continue
		}
		changed++
	}
	return changed, nil
}

// LockedChannelCount reports how many channels the controller currently
// holds locked for the guild.
func (c *Controller) LockedChannelCount(guildID uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.guilds[guildID]; ok {
		return len(g.lockedChannels)
	}
	return 0
}
