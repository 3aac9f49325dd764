package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/access"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

// handleGenerate issues a guild-scoped dashboard key. The pair is sent over
// DM; only a confirmation lands in the channel.
func (h *Handler) handleGenerate(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !h.isModerator(s, m) {
		h.reply(s, m, "You need Manage Server to generate a web key.")
		return
	}

	guildID := util.ParseSnowflake(m.GuildID)
	guildName := m.GuildID
	if g, err := s.State.Guild(m.GuildID); err == nil {
		guildName = g.Name
	}

	rec := h.keys.IssueUserKey(guildID, guildName, util.ParseSnowflake(m.Author.ID),
		m.Author.Username, strings.Join(args, " "))

	if h.dmCredentials(s, m.Author.ID, rec) {
		h.reply(s, m, "Web key generated. Check your DMs.")
	} else {
		h.reply(s, m, "Could not DM you the key. Enable DMs from server members and try again.")
	}
}

// handleGenAdmin issues a global dashboard key, owner only.
func (h *Handler) handleGenAdmin(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	rec, err := h.keys.IssueAdminKey(util.ParseSnowflake(m.Author.ID), m.Author.Username,
		strings.Join(args, " "))
	if err != nil {
		h.reply(s, m, "Only the bot owner can generate admin keys.")
		return
	}

	if h.dmCredentials(s, m.Author.ID, rec) {
		h.reply(s, m, "Admin web key generated. Check your DMs.")
	} else {
		h.reply(s, m, "Could not DM you the key. Enable DMs from server members and try again.")
	}
}

func (h *Handler) dmCredentials(s *discordgo.Session, userID string, rec *access.KeyRecord) bool {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		return false
	}

	scope := "all guilds"
	if rec.Role == access.RoleUser {
		scope = rec.GuildName
	}
	msg := fmt.Sprintf(
		"**GLX Protection web access**\nScope: %s\nCode: `%s`\nPIN: `%s`\nKeep both secret; anyone with the pair can use the dashboard.",
		scope, rec.DisplayCode, rec.PIN,
	)
	_, err = s.ChannelMessageSend(ch.ID, msg)
	return err == nil
}
