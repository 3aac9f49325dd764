package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/dispatcher"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

func (h *Handler) handleWarn(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}
	target := firstUserArg(args)
	if target == 0 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"warn @user [reason]")
		return
	}

	guildID := util.ParseSnowflake(m.GuildID)
	n := h.warns.Warn(guildID, target)
	threshold := h.cfg.Protection.WarnThreshold

	if n >= threshold {
		h.warns.Clear(guildID, target)
		h.stats.Incr(metrics.CounterTimeouts, guildID)
		h.stats.Incr(metrics.CounterMutes, guildID)
		h.jobs.Enqueue(dispatcher.NewTimeoutJob(guildID, target,
			time.Duration(h.cfg.Protection.WarnMuteMinutes)*time.Minute,
			"GLX Protection • warning limit reached"))
		h.reply(s, m, fmt.Sprintf("<@%d> reached %d warnings and was muted for %d minutes.",
			target, threshold, h.cfg.Protection.WarnMuteMinutes))
		return
	}
	h.reply(s, m, fmt.Sprintf("<@%d> warned (%d/%d).", target, n, threshold))
}

func (h *Handler) handleWarnings(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	target := firstUserArg(args)
	if target == 0 {
		target = util.ParseSnowflake(m.Author.ID)
	}
	n := h.warns.Count(util.ParseSnowflake(m.GuildID), target)
	h.reply(s, m, fmt.Sprintf("<@%d> has %d warning(s).", target, n))
}

func (h *Handler) handleClearWarns(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}
	target := firstUserArg(args)
	if target == 0 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"clearwarns @user")
		return
	}
	prev := h.warns.Clear(util.ParseSnowflake(m.GuildID), target)
	h.reply(s, m, fmt.Sprintf("Cleared %d warning(s) for <@%d>.", prev, target))
}

func (h *Handler) handleMute(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}
	target := firstUserArg(args)
	if target == 0 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"mute @user [minutes]")
		return
	}

	minutes := h.cfg.Protection.AutoMuteSeconds / 60
	if len(args) >= 2 {
		if n := util.ParseSnowflake(args[1]); n > 0 && n <= 7*24*60 {
			minutes = int(n)
		}
	}

	guildID := util.ParseSnowflake(m.GuildID)
	h.stats.Incr(metrics.CounterTimeouts, guildID)
	h.stats.Incr(metrics.CounterMutes, guildID)
	h.jobs.Enqueue(dispatcher.NewTimeoutJob(guildID, target,
		time.Duration(minutes)*time.Minute,
		fmt.Sprintf("GLX Protection • muted by %s", m.Author.Username)))
	h.reply(s, m, fmt.Sprintf("<@%d> muted for %d minute(s).", target, minutes))
}

func (h *Handler) handleUnmute(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}
	target := firstUserArg(args)
	if target == 0 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"unmute @user")
		return
	}
	h.jobs.Enqueue(dispatcher.NewClearTimeoutJob(util.ParseSnowflake(m.GuildID), target,
		fmt.Sprintf("GLX Protection • unmuted by %s", m.Author.Username)))
	h.reply(s, m, fmt.Sprintf("Unmuted <@%d>.", target))
}

func (h *Handler) handleBan(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}
	target := firstUserArg(args)
	if target == 0 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"ban @user [reason]")
		return
	}
	guildID := util.ParseSnowflake(m.GuildID)
	h.stats.Incr(metrics.CounterBans, guildID)
	h.jobs.Enqueue(dispatcher.NewBanJob(guildID, target, banReason(args, m.Author.Username)))
	h.reply(s, m, fmt.Sprintf("Banned <@%d>.", target))
}

func (h *Handler) handleKick(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need moderator permissions for that.")
		return
	}
	target := firstUserArg(args)
	if target == 0 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"kick @user [reason]")
		return
	}
	guildID := util.ParseSnowflake(m.GuildID)
	h.stats.Incr(metrics.CounterKicks, guildID)
	h.jobs.Enqueue(dispatcher.NewKickJob(guildID, target, banReason(args, m.Author.Username)))
	h.reply(s, m, fmt.Sprintf("Kicked <@%d>.", target))
}

// handleNuke bans the target and purges their recent messages. Owner only,
// and the feature switch ships disabled.
func (h *Handler) handleNuke(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isOwner(m) {
		h.reply(s, m, "Only the bot owner can use nuke.")
		return
	}
	if !h.flags.Get(state.FlagNuke) {
		h.reply(s, m, "The nuke feature is disabled.")
		return
	}
	target := firstUserArg(args)
	if target == 0 {
		h.reply(s, m, "Usage: "+h.cfg.Bot.Prefix+"nuke @user")
		return
	}

	guildID := util.ParseSnowflake(m.GuildID)
	h.stats.Incr(metrics.CounterNukes, guildID)
	h.stats.Incr(metrics.CounterBans, guildID)
	h.jobs.Enqueue(dispatcher.NewBanJob(guildID, target, "GLX Protection • nuke"))
	h.reply(s, m, fmt.Sprintf("Nuked <@%d>.", target))
}

func firstUserArg(args []string) uint64 {
	if len(args) == 0 {
		return 0
	}
	return parseUserArg(args[0])
}

func banReason(args []string, moderator string) string {
	if len(args) > 1 {
		return "GLX Protection • " + strings.Join(args[1:], " ")
	}
	return "GLX Protection • requested by " + moderator
}
