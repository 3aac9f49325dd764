package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

func (h *Handler) handleHelp(s *discordgo.Session, m *discordgo.MessageCreate) {
	p := h.cfg.Bot.Prefix
	lines := []string{
		"**GLX Protection commands**",
		fmt.Sprintf("`%sglxstats` server protection counters", p),
		fmt.Sprintf("`%sgenerate` / `%sgenadmin` dashboard keys", p, p),
		fmt.Sprintf("`%swarn` `%swarnings` `%sclearwarns` warning ledger", p, p, p),
		fmt.Sprintf("`%smute` `%sunmute` `%sban` `%skick` moderation", p, p, p, p),
		fmt.Sprintf("`%slock` / `%sunlock` channel lockdown", p, p),
		fmt.Sprintf("`%santispam` `%santiraid` `%santiinvites` `%santimentions` `%sautomod` feature switches", p, p, p, p, p),
		fmt.Sprintf("`%ssyncautomod` push automod rules", p),
		fmt.Sprintf("`%sglxwhitelist add|remove` protection exemptions", p),
	}
	h.reply(s, m, strings.Join(lines, "\n"))
}

func (h *Handler) handleStats(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := util.ParseSnowflake(m.GuildID)
	counters := h.stats.Guild(guildID).Snapshot()

	mode := "monitoring"
	if h.lockdown.Mode(guildID) == lockdown.Locked {
		mode = fmt.Sprintf("LOCKED (%d channels)", h.lockdown.LockedChannelCount(guildID))
	}

	embed := &discordgo.MessageEmbed{
		Title: "🛡️ GLX Protection",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: mode, Inline: true},
			{Name: "Uptime", Value: util.HumanDelta(h.stats.Uptime(time.Now())), Inline: true},
			{Name: "Messages seen", Value: fmt.Sprintf("%d", counters[metrics.CounterMessagesSeen]), Inline: true},
			{Name: "Spam flagged", Value: fmt.Sprintf("%d", counters[metrics.CounterSpamFlags]), Inline: true},
			{Name: "Invites blocked", Value: fmt.Sprintf("%d", counters[metrics.CounterInvitesBlocked]), Inline: true},
			{Name: "Mention floods", Value: fmt.Sprintf("%d", counters[metrics.CounterMentionsFlagged]), Inline: true},
			{Name: "Raids detected", Value: fmt.Sprintf("%d", counters[metrics.CounterRaidsDetected]), Inline: true},
			{Name: "Timeouts", Value: fmt.Sprintf("%d", counters[metrics.CounterTimeouts]), Inline: true},
			{Name: "Joins seen", Value: fmt.Sprintf("%d", counters[metrics.CounterJoinsSeen]), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "GLX Protection"},
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		h.reply(s, m, "Could not send the stats embed here.")
	}
}
