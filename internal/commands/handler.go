// Package commands implements the prefix command surface. Commands are the
// operator's in-chat control plane; detection itself never depends on them.
package commands

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/access"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/automod"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/bot"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/dispatcher"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

type Handler struct {
	cfg       *config.Config
	bot       *bot.Bot
	flags     *state.FlagStore
	warns     *state.WarnLedger
	whitelist *state.Whitelist
	keys      *access.Store
	stats     *metrics.Store
	lockdown  *lockdown.Controller
	jobs      *dispatcher.Queue
	automod   *automod.Syncer
}

func Initialize(cfg *config.Config, b *bot.Bot, flags *state.FlagStore, warns *state.WarnLedger,
	whitelist *state.Whitelist, keys *access.Store, stats *metrics.Store,
	ld *lockdown.Controller, jobs *dispatcher.Queue, syncer *automod.Syncer) *Handler {
	h := &Handler{
		cfg:       cfg,
		bot:       b,
		flags:     flags,
		warns:     warns,
		whitelist: whitelist,
		keys:      keys,
		stats:     stats,
		lockdown:  ld,
		jobs:      jobs,
		automod:   syncer,
	}
	b.Session().AddHandler(h.onMessageCreate)
	logging.Info("Command handler initialized (prefix %q)", cfg.Bot.Prefix)
	return h
}

func (h *Handler) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, h.cfg.Bot.Prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, h.cfg.Bot.Prefix))
	if len(fields) == 0 {
		return
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "glx", "glxhelp":
		h.handleHelp(s, m)
	case "glxstats":
		h.handleStats(s, m)
	case "generate":
		h.handleGenerate(s, m, args)
	case "genadmin":
		h.handleGenAdmin(s, m, args)
	case "warn":
		h.handleWarn(s, m, args)
	case "warnings":
		h.handleWarnings(s, m, args)
	case "clearwarns":
		h.handleClearWarns(s, m, args)
	case "mute":
		h.handleMute(s, m, args)
	case "unmute":
		h.handleUnmute(s, m, args)
	case "ban":
		h.handleBan(s, m, args)
	case "kick":
		h.handleKick(s, m, args)
	case "nuke":
		h.handleNuke(s, m, args)
	case "raidlock", "lock":
		h.handleLock(s, m)
	case "unlock":
		h.handleUnlock(s, m)
	case "antispam", "antiraid", "antiinvites", "antimentions", "automod":
		h.handleToggle(s, m, name, args)
	case "syncautomod":
		h.handleSyncAutomod(s, m)
	case "glxwhitelist":
		h.handleWhitelist(s, m, args)
	}
}

func (h *Handler) reply(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	if _, err := s.ChannelMessageSend(m.ChannelID, "[GLX] "+text); err != nil {
		logging.Warn("Failed to send command reply: %v", err)
	}
}

// isModerator gates the moderation and protection commands.
func (h *Handler) isModerator(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.State.MessagePermissions(m.Message)
	if err != nil {
		return false
	}
	return perms&(discordgo.PermissionAdministrator|
		discordgo.PermissionManageServer|
		discordgo.PermissionModerateMembers) != 0
}

func (h *Handler) isOwner(m *discordgo.MessageCreate) bool {
	return h.cfg.Bot.OwnerID != 0 && util.ParseSnowflake(m.Author.ID) == h.cfg.Bot.OwnerID
}

// parseUserArg accepts a raw snowflake or a <@…> / <@!…> mention.
func parseUserArg(arg string) uint64 {
	arg = strings.TrimSuffix(strings.TrimPrefix(arg, "<@"), ">")
	arg = strings.TrimPrefix(arg, "!")
	return util.ParseSnowflake(arg)
}
