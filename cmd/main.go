package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/access"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/automod"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/bot"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/commands"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/database"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/dispatcher"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/engine"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/ingest"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/report"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/watchdog"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/web"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/memory"
)

func main() {
	fmt.Println("Starting GLX Protection")

	cfg := loadConfig()

	if err := logging.InitGlobalLogger(logging.LevelInfo, cfg.Logging.Path, cfg.Logging.Echo); err != nil {
		fmt.Printf("Logging init failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.Bot.Token == "" {
		logging.Critical("No bot token configured (set DISCORD_TOKEN)")
		os.Exit(1)
	}

	initializeRuntime(cfg)

	if err := database.Initialize(cfg.Database.Path); err != nil {
		logging.Warn("Audit log unavailable: %v", err)
	}

	clk := clock.System()

	// shared state
	flags := state.NewFlagStore(cfg.FlagDefaults())
	warns := state.NewWarnLedger()
	whitelist := state.NewWhitelist()
	keys := access.NewStore(cfg.Bot.OwnerID, clk)
	stats := metrics.NewStore(clk.Now())
	traffic := metrics.NewTraffic(5000)

	// pipeline
	ring := ingest.NewRingBuffer(65536)
	jobs := dispatcher.NewQueue()
	pool := dispatcher.NewHTTPPool(cfg.Network.HTTPPoolSize)
	rest := dispatcher.NewRestClient(pool, cfg.Bot.Token, cfg.Network.APIBaseURL)

	b, err := bot.New(cfg, ring, whitelist, rest)
	if err != nil {
		logging.Critical("Bot setup failed: %v", err)
		os.Exit(1)
	}

	ld := lockdown.NewController(b, stats, clk,
		time.Duration(cfg.Protection.RaidLockMinutes)*time.Minute)
	b.SetLockdown(ld)

	var sink engine.IncidentSink
	if db := database.GetDB(); db != nil {
		sink = db
	}
	eng := engine.New(cfg, ring, jobs, flags, warns, stats, traffic, ld, sink, clk)
	go eng.Run()

	workers := make([]*dispatcher.Worker, cfg.Network.WorkerCount)
	for i := range workers {
		workers[i] = dispatcher.NewWorker(jobs, b, i)
		go workers[i].Start()
	}

	dog := watchdog.New(5 * time.Second)
	dog.Register("engine", eng, 10*time.Second)
	for i, w := range workers {
		dog.Register(fmt.Sprintf("worker-%d", i), w, 30*time.Second)
	}
	dog.Start()

	syncer := automod.NewSyncer(b.Session(), cfg.Automod, flags, stats)
	b.SetAutomod(syncer)
	commands.Initialize(cfg, b, flags, warns, whitelist, keys, stats, ld, jobs, syncer)

	pool.Warmup(cfg.Network.APIBaseURL)
	if err := b.Connect(); err != nil {
		logging.Critical("Gateway connection failed: %v", err)
		os.Exit(1)
	}

	// web surface
	aggregator := report.NewAggregator(stats, traffic, flags, keys, ld, b, dog, clk)
	hub := web.NewHub(traffic, clk, 5*time.Second)
	go hub.Run()

	var incidents web.IncidentStore
	if db := database.GetDB(); db != nil {
		incidents = db
	}
	srv := web.NewServer(cfg.Web, keys, flags, aggregator, b, b, syncer, incidents, hub)
	srv.Start()

	logging.Info("All components started")
	waitForShutdown()

	logging.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Web shutdown: %v", err)
	}
	hub.Stop()
	dog.Stop()
	eng.Stop()
	for _, w := range workers {
		w.Stop()
	}
	b.Close()
	database.Close()
	logging.Info("Shutdown complete")
	logging.CloseGlobalLogger()
}

func loadConfig() *config.Config {
	cfg, err := config.Load("config.json")
	if err != nil {
		fmt.Printf("Config load failed, using defaults: %v\n", err)
		cfg = config.DefaultConfig()
		cfg.Bot.Token = os.Getenv("DISCORD_TOKEN")
	}
	return cfg
}

func initializeRuntime(cfg *config.Config) {
	if cfg.Runtime.DisableGC {
		debug.SetGCPercent(-1)
		logging.Info("GC disabled for hot path performance")
	}
	if cfg.Runtime.MemoryLock {
		if err := memory.MlockAll(); err != nil {
			logging.Warn("Memory lock not available on this platform: %v", err)
		} else {
			logging.Info("Memory locked to prevent page faults")
		}
	}
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
