// Package bot owns the gateway session. It normalizes raw gateway events
// into the engine's event ring and implements the platform surfaces the
// rest of the system acts through.
package bot

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/dispatcher"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/ingest"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/notifier"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

const colorOnline = 0x2ECC71

// RuleSyncer pushes automod rules into one guild. Satisfied by the automod
// package; wired after construction like the lockdown controller.
type RuleSyncer interface {
	Sync(guildID uint64) (int, error)
}

type Bot struct {
	session   *discordgo.Session
	cfg       *config.Config
	ring      *ingest.RingBuffer
	whitelist *state.Whitelist
	notifier  *notifier.Notifier
	rest      *dispatcher.RestClient
	lockdown  *lockdown.Controller
	automod   RuleSyncer

	invitePatterns []string
	botID          uint64

	mu          sync.Mutex
	knownGuilds map[string]bool
}

func New(cfg *config.Config, ring *ingest.RingBuffer, whitelist *state.Whitelist, rest *dispatcher.RestClient) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	patterns := make([]string, len(cfg.Protection.InvitePatterns))
	for i, p := range cfg.Protection.InvitePatterns {
		patterns[i] = strings.ToLower(p)
	}

	b := &Bot{
		session:        dg,
		cfg:            cfg,
		ring:           ring,
		whitelist:      whitelist,
		rest:           rest,
		invitePatterns: patterns,
		knownGuilds:    make(map[string]bool),
	}
	b.notifier = notifier.New(dg, cfg.Bot.LogChannelName)

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onGuildMemberAdd)
	return b, nil
}

// SetLockdown wires the lockdown controller after construction; the
// controller needs the bot as its channel locker.
func (b *Bot) SetLockdown(ld *lockdown.Controller) {
	b.lockdown = ld
}

// SetAutomod wires the rule syncer after construction; the syncer needs
// the bot's session.
func (b *Bot) SetAutomod(syncer RuleSyncer) {
	b.automod = syncer
}

func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) Connect() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	if b.session.State.User != nil {
		b.botID, _ = strconv.ParseUint(b.session.State.User.ID, 10, 64)
		logging.Info("Bot ID: %d", b.botID)
	}
	logging.Info("Gateway connected")
	return nil
}

func (b *Bot) Close() error {
	if b.session != nil {
		return b.session.Close()
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.mu.Lock()
	for _, g := range r.Guilds {
		b.knownGuilds[g.ID] = true
	}
	b.mu.Unlock()

	if b.cfg.Bot.GameStatus != "" {
		if err := s.UpdateGameStatus(0, b.cfg.Bot.GameStatus); err != nil {
			logging.Warn("Failed to set presence: %v", err)
		}
	}
	logging.Info("Ready, serving %d guilds", len(r.Guilds))
}

// onGuildCreate fires once per guild after ready and again whenever the
// bot is added to a new guild. Both paths get an automod sync; only a
// genuinely new guild gets the online announcement.
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	b.mu.Lock()
	known := b.knownGuilds[g.ID]
	b.knownGuilds[g.ID] = true
	b.mu.Unlock()

	if !known {
		logging.Info("Joined new guild: %s (%s)", g.Name, g.ID)
		if b.notifier != nil {
			go func() {
				prefix := b.cfg.Bot.Prefix
				desc := fmt.Sprintf("GLX Protection is now guarding **%s**.\nPrefix: `%s` • Try `%shelp`.",
					g.Name, prefix, prefix)
				if err := b.notifier.Send(util.ParseSnowflake(g.ID), "GLX Protection Online", desc, colorOnline); err != nil {
					logging.Warn("Failed to announce in guild %s: %v", g.ID, err)
				}
			}()
		}
	}

	if b.automod != nil {
		guildID := util.ParseSnowflake(g.ID)
		go func() {
			if _, err := b.automod.Sync(guildID); err != nil {
				logging.Warn("Automod sync failed for guild %s: %v", g.ID, err)
			}
		}()
	}
}
