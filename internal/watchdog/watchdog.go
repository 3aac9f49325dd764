// Package watchdog tracks liveness of the engine loop and the action
// workers. Components report heartbeats; the monitor flags any that go
// quiet past their threshold.
package watchdog

import (
	"sync/atomic"
	"time"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
)

// HeartbeatSource exposes a component's last-activity timestamp in unix
// nanoseconds. The engine and workers already keep one for free.
type HeartbeatSource interface {
	LastHeartbeat() int64
}

type component struct {
	name      string
	source    HeartbeatSource
	threshold time.Duration
	healthy   atomic.Bool
}

type Watchdog struct {
	components    []*component
	checkInterval time.Duration
	running       atomic.Bool
}

func New(checkInterval time.Duration) *Watchdog {
	return &Watchdog{checkInterval: checkInterval}
}

// Register must be called before Start; the component list is read-only
// afterwards.
func (w *Watchdog) Register(name string, source HeartbeatSource, threshold time.Duration) {
	c := &component{name: name, source: source, threshold: threshold}
	c.healthy.Store(true)
	w.components = append(w.components, c)
}

func (w *Watchdog) Start() {
	w.running.Store(true)
	go w.monitorLoop()
}

func (w *Watchdog) Stop() {
	w.running.Store(false)
}

func (w *Watchdog) monitorLoop() {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for w.running.Load() {
		<-ticker.C
		w.check()
	}
}

func (w *Watchdog) check() {
	now := time.Now().UnixNano()
	for _, c := range w.components {
		last := c.source.LastHeartbeat()
		if last == 0 {
			continue
		}
		elapsed := time.Duration(now - last)
		if elapsed > c.threshold {
			if c.healthy.Swap(false) {
				logging.Error("Watchdog: %s unhealthy (no heartbeat for %v)", c.name, elapsed)
			}
		} else {
			c.healthy.Store(true)
		}
	}
}

// Status reports per-component health for the stats payload.
func (w *Watchdog) Status() map[string]bool {
	status := make(map[string]bool, len(w.components))
	for _, c := range w.components {
		status[c.name] = c.healthy.Load()
	}
	return status
}
