package bot

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/dispatcher"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/report"
)

// The bot implements dispatcher.Executor, lockdown.ChannelLocker and
// report.Directory: session-backed calls for channel and guild work, the
// pooled REST client for member moderation.

func (b *Bot) DeleteMessage(_, channelID, messageID uint64, _ string) error {
	return b.session.ChannelMessageDelete(
		strconv.FormatUint(channelID, 10),
		strconv.FormatUint(messageID, 10),
	)
}

func (b *Bot) Timeout(job *dispatcher.Job) error {
	return b.rest.ExecuteTimeout(job.GuildID, job.TargetID, job.Duration, job.Reason)
}

func (b *Bot) ClearTimeout(guildID, userID uint64, reason string) error {
	return b.rest.ExecuteClearTimeout(guildID, userID, reason)
}

func (b *Bot) Ban(guildID, userID uint64, reason string) error {
	return b.rest.ExecuteBan(guildID, userID, reason)
}

func (b *Bot) Kick(guildID, userID uint64, reason string) error {
	return b.rest.ExecuteKick(guildID, userID, reason)
}

func (b *Bot) RaidLock(guildID uint64) (int, error) {
	return b.lockdown.Lock(guildID, "GLX Protection • raid detected")
}

func (b *Bot) Notify(guildID uint64, title, description string, color int) error {
	return b.notifier.Send(guildID, title, description, color)
}

// GuildTextChannels lists the guild's text channels from gateway state,
// noting which ones already deny @everyone send access.
func (b *Bot) GuildTextChannels(guildID uint64) ([]lockdown.ChannelState, error) {
	guild, err := b.session.State.Guild(strconv.FormatUint(guildID, 10))
	if err != nil {
		return nil, fmt.Errorf("guild %d not in state: %w", guildID, err)
	}

	channels := make([]lockdown.ChannelState, 0, len(guild.Channels))
	for _, ch := range guild.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		id, err := strconv.ParseUint(ch.ID, 10, 64)
		if err != nil {
			continue
		}
		channels = append(channels, lockdown.ChannelState{
			ID:           id,
			SendDisabled: sendDeniedForEveryone(ch, guild.ID),
		})
	}
	return channels, nil
}

// SetSendLock adds or removes a send-message deny for @everyone on one
// channel, preserving any other bits in the overwrite.
func (b *Bot) SetSendLock(guildID, channelID uint64, locked bool, _ string) error {
	guildIDStr := strconv.FormatUint(guildID, 10)
	channelIDStr := strconv.FormatUint(channelID, 10)

	var allow, deny int64
	if ch, err := b.session.State.Channel(channelIDStr); err == nil {
		if ow := everyoneOverwrite(ch, guildIDStr); ow != nil {
			allow, deny = ow.Allow, ow.Deny
		}
	}

	allow &^= discordgo.PermissionSendMessages
	if locked {
		deny |= discordgo.PermissionSendMessages
	} else {
		deny &^= discordgo.PermissionSendMessages
	}

	if allow == 0 && deny == 0 {
		return b.session.ChannelPermissionDelete(channelIDStr, guildIDStr)
	}
	// the @everyone role ID equals the guild ID
	return b.session.ChannelPermissionSet(channelIDStr, guildIDStr,
		discordgo.PermissionOverwriteTypeRole, allow, deny)
}

// Guilds builds the report directory from gateway state.
func (b *Bot) Guilds() []report.GuildInfo {
	guilds := make([]report.GuildInfo, 0, len(b.session.State.Guilds))
	for _, g := range b.session.State.Guilds {
		bots := 0
		for _, m := range g.Members {
			if m.User != nil && m.User.Bot {
				bots++
			}
		}
		guilds = append(guilds, report.GuildInfo{
			ID:          g.ID,
			Name:        g.Name,
			MemberCount: g.MemberCount,
			BotCount:    bots,
		})
	}
	return guilds
}

// LeaveGuild removes the bot from a guild and drops cached log channels.
func (b *Bot) LeaveGuild(guildID uint64) error {
	if err := b.session.GuildLeave(strconv.FormatUint(guildID, 10)); err != nil {
		return err
	}
	b.notifier.Forget(guildID)
	return nil
}

func sendDeniedForEveryone(ch *discordgo.Channel, everyoneID string) bool {
	ow := everyoneOverwrite(ch, everyoneID)
	return ow != nil && ow.Deny&discordgo.PermissionSendMessages != 0
}

func everyoneOverwrite(ch *discordgo.Channel, everyoneID string) *discordgo.PermissionOverwrite {
	for _, ow := range ch.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeRole && ow.ID == everyoneID {
			return ow
		}
	}
	return nil
}
