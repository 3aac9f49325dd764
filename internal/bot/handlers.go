package bot

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/ingest"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

const exemptPermissions = discordgo.PermissionAdministrator |
	discordgo.PermissionManageServer |
	discordgo.PermissionModerateMembers

// onMessageCreate turns a gateway message into an engine event. Everything
// the engine needs to decide is computed here so the hot loop never touches
// gateway state.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	guildID := util.ParseSnowflake(m.GuildID)
	userID := util.ParseSnowflake(m.Author.ID)
	channelID := util.ParseSnowflake(m.ChannelID)
	messageID := util.ParseSnowflake(m.ID)
	if guildID == 0 || userID == 0 {
		return
	}

	ev := ingest.NewMessageEvent(guildID, userID, channelID, messageID, time.Now().UnixNano())
	ev.Exempt = b.isExempt(s, m)
	ev.MentionsEveryone = m.MentionEveryone
	ev.MentionCount = uint16(len(m.Mentions) + len(m.MentionRoles))
	ev.ContainsInvite = b.containsInvite(m.Content)

	if !b.ring.Enqueue(ev) {
		logging.Warn("Event ring full, dropped message event for guild %d", guildID)
	}
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	guildID := util.ParseSnowflake(m.GuildID)
	userID := util.ParseSnowflake(m.User.ID)
	if guildID == 0 || userID == 0 {
		return
	}

	if !b.ring.Enqueue(ingest.NewJoinEvent(guildID, userID, time.Now().UnixNano())) {
		logging.Warn("Event ring full, dropped join event for guild %d", guildID)
	}
}

// isExempt reports whether the author is whitelisted or holds moderator
// permissions in the channel.
func (b *Bot) isExempt(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if b.whitelist.Contains(util.ParseSnowflake(m.Author.ID)) {
		return true
	}
	perms, err := s.State.MessagePermissions(m.Message)
	if err != nil {
		// unknown member, treat as regular user
		return false
	}
	return perms&exemptPermissions != 0
}

func (b *Bot) containsInvite(content string) bool {
	if content == "" {
		return false
	}
	lower := strings.ToLower(content)
	for _, p := range b.invitePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
