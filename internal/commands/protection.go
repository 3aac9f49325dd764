package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

// toggle command names map onto feature flag names
var toggleFlags = map[string]string{
	"antispam":     state.FlagAntiSpam,
	"antiraid":     state.FlagAntiRaid,
	"antiinvites":  state.FlagAntiInvites,
	"antimentions": state.FlagAntiMentions,
	"automod":      state.FlagAutomod,
}

func (h *Handler) handleToggle(s *discordgo.Session, m *discordgo.MessageCreate, name string, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}

	flag := toggleFlags[name]
	if len(args) == 0 {
		status := "disabled"
		if h.flags.Get(flag) {
			status = "enabled"
		}
		h.reply(s, m, fmt.Sprintf("%s is currently %s. Use `%s%s on` or `%s%s off`.",
			name, status, h.cfg.Bot.Prefix, name, h.cfg.Bot.Prefix, name))
		return
	}

	var value bool
	switch strings.ToLower(args[0]) {
	case "on", "enable", "true":
		value = true
	case "off", "disable", "false":
		value = false
	default:
		h.reply(s, m, "Use `on` or `off`.")
		return
	}

	if err := h.flags.Set(flag, value); err != nil {
		h.reply(s, m, "Unknown protection feature.")
		return
	}
	status := "disabled"
	if value {
		status = "enabled"
	}
	h.reply(s, m, fmt.Sprintf("%s is now %s.", name, status))
}

func (h *Handler) handleLock(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}

	n, err := h.lockdown.Lock(util.ParseSnowflake(m.GuildID),
		fmt.Sprintf("GLX Protection • manual lock by %s", m.Author.Username))
	if err != nil {
		h.reply(s, m, "Lockdown failed: "+err.Error())
		return
	}
	if n == 0 {
		h.reply(s, m, "Nothing to lock; the server is already locked or has no open text channels.")
		return
	}
	h.reply(s, m, fmt.Sprintf("Locked %d text channel(s). Auto unlock in %d minutes.",
		n, h.cfg.Protection.RaidLockMinutes))
}

func (h *Handler) handleUnlock(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}

	n, err := h.lockdown.Unlock(util.ParseSnowflake(m.GuildID),
		fmt.Sprintf("GLX Protection • manual unlock by %s", m.Author.Username))
	if err != nil {
		h.reply(s, m, "Unlock failed: "+err.Error())
		return
	}
	h.reply(s, m, fmt.Sprintf("Unlocked %d text channel(s).", n))
}

func (h *Handler) handleSyncAutomod(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}

	if !h.flags.Get(state.FlagAutomod) {
		h.reply(s, m, fmt.Sprintf("Automod is disabled. Enable it with `%sautomod on` first.", h.cfg.Bot.Prefix))
		return
	}

	n, err := h.automod.Sync(util.ParseSnowflake(m.GuildID))
	if err != nil {
		h.reply(s, m, "Automod sync failed: "+err.Error())
		return
	}
	h.reply(s, m, fmt.Sprintf("Automod sync complete, %d rule(s) created.", n))
}

func (h *Handler) handleWhitelist(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}
	if len(args) < 1 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"glxwhitelist add|remove @user")
		return
	}

	switch strings.ToLower(args[0]) {
	case "add":
		target := firstUserArg(args[1:])
		if target == 0 {
			h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"glxwhitelist add @user")
			return
		}
		h.whitelist.Add(target)
		h.reply(s, m, fmt.Sprintf("<@%d> is now exempt from protection checks.", target))
	case "remove":
		target := firstUserArg(args[1:])
		if target == 0 {
			h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"glxwhitelist remove @user")
			return
		}
		if h.whitelist.Remove(target) {
			h.reply(s, m, fmt.Sprintf("<@%d> removed from the whitelist.", target))
		} else {
			h.reply(s, m, fmt.Sprintf("<@%d> was not whitelisted.", target))
		}
	default:
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"glxwhitelist add|remove @user")
	}
}
