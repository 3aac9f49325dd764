// Package report assembles the dashboard stats payload. What a caller sees
// depends on their credential role: no credentials gets aggregate totals
// only, a user key adds its own guild's detail, an admin key gets every
// guild plus host-level system stats.
package report

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/access"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/watchdog"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

var jakartaZone = time.FixedZone("Asia/Jakarta", 7*3600)

// GuildInfo is one guild's row in the detail section.
type GuildInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"members"`
	BotCount    int    `json:"bots"`
	Locked      bool   `json:"locked"`
}

// Directory lists the guilds the bot currently serves. The bot layer
// implements it from gateway state.
type Directory interface {
	Guilds() []GuildInfo
}

// SystemInfo is the host-level section, admin only.
type SystemInfo struct {
	Hostname      string  `json:"hostname"`
	OS            string  `json:"os"`
	HostUptime    string  `json:"host_uptime"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   uint64  `json:"heap_alloc_mb"`
}

type Payload struct {
	Locked       bool               `json:"locked"`
	Role         *string            `json:"role"`
	Uptime       string             `json:"uptime"`
	Guilds       int                `json:"guilds"`
	Members      int                `json:"members"`
	Bots         int                `json:"bots"`
	Stats        map[string]uint64  `json:"stats"`
	Features     map[string]bool    `json:"features"`
	Traffic      metrics.Series     `json:"traffic"`
	License      access.LicenseInfo `json:"license"`
	TimeUTC      string             `json:"time_utc"`
	TimeJakarta  string             `json:"time_jakarta"`
	GuildsDetail []GuildInfo        `json:"guilds_detail"`
	System       *SystemInfo        `json:"system,omitempty"`
	Health       map[string]bool    `json:"health,omitempty"`
}

type Aggregator struct {
	stats     *metrics.Store
	traffic   *metrics.Traffic
	flags     *state.FlagStore
	keys      *access.Store
	lockdown  *lockdown.Controller
	directory Directory
	dog       *watchdog.Watchdog
	clk       clock.Clock
}

func NewAggregator(stats *metrics.Store, traffic *metrics.Traffic, flags *state.FlagStore,
	keys *access.Store, ld *lockdown.Controller, directory Directory,
	dog *watchdog.Watchdog, clk clock.Clock) *Aggregator {
	return &Aggregator{
		stats:     stats,
		traffic:   traffic,
		flags:     flags,
		keys:      keys,
		lockdown:  ld,
		directory: directory,
		dog:       dog,
		clk:       clk,
	}
}

// Collect builds the payload for the given role. scopeGuildID narrows the
// view to one guild for user keys and is ignored for admin keys. Invalid
// credentials get aggregate totals with locked set and no guild rows.
func (a *Aggregator) Collect(role access.Role, scopeGuildID uint64) Payload {
	now := a.clk.Now()
	guilds := a.directory.Guilds()

	p := Payload{
		Locked:       role == access.RoleNone,
		Uptime:       util.HumanDelta(a.stats.Uptime(now)),
		Guilds:       len(guilds),
		Stats:        a.stats.Global().Snapshot(),
		Features:     a.flags.Snapshot(),
		Traffic:      a.traffic.Collect(now),
		License:      a.keys.License(),
		TimeUTC:      now.UTC().Format("2006-01-02 15:04:05") + " UTC",
		TimeJakarta:  now.In(jakartaZone).Format("2006-01-02 15:04:05") + " Asia/Jakarta (UTC+7)",
		GuildsDetail: []GuildInfo{},
	}
	for _, g := range guilds {
		p.Members += g.MemberCount
		p.Bots += g.BotCount
	}

	if role == access.RoleNone {
		return p
	}
	roleName := string(role)
	p.Role = &roleName

	if role == access.RoleUser {
		// single-server view: the scoped guild's counters replace the
		// global rollup
		p.Guilds, p.Members, p.Bots = 0, 0, 0
		p.Stats = a.stats.Guild(scopeGuildID).Snapshot()
		for _, g := range guilds {
			id := util.ParseSnowflake(g.ID)
			if id != scopeGuildID {
				continue
			}
			g.Locked = a.lockdown.Mode(id) == lockdown.Locked
			p.Guilds = 1
			p.Members = g.MemberCount
			p.Bots = g.BotCount
			p.GuildsDetail = append(p.GuildsDetail, g)
		}
		return p
	}

	for _, g := range guilds {
		id := util.ParseSnowflake(g.ID)
		g.Locked = a.lockdown.Mode(id) == lockdown.Locked
		p.GuildsDetail = append(p.GuildsDetail, g)
	}
	p.System = collectSystem()
	if a.dog != nil {
		p.Health = a.dog.Status()
	}
	return p
}

// collectSystem never fails the request; unavailable probes just leave
// their fields zero.
func collectSystem() *SystemInfo {
	info := &SystemInfo{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	info.HeapAllocMB = ms.HeapAlloc / 1024 / 1024

	if hi, err := host.Info(); err == nil {
		info.Hostname = hi.Hostname
		info.OS = hi.OS
		info.HostUptime = util.HumanDelta(time.Duration(hi.Uptime) * time.Second)
	}
	// interval 0 reports usage since the previous call instead of blocking
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		info.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryPercent = vm.UsedPercent
		info.MemoryUsedMB = vm.Used / 1024 / 1024
		info.MemoryTotalMB = vm.Total / 1024 / 1024
	}
	return info
}
