// Package notifier posts protection events into each guild's glx-logs
// channel, creating the channel on first use with send access restricted to
// the bot.
package notifier

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
)

type Notifier struct {
	session     *discordgo.Session
	channelName string

	mu       sync.Mutex
	channels map[uint64]string // guildID -> log channel ID
}

func New(session *discordgo.Session, channelName string) *Notifier {
	return &Notifier{
		session:     session,
		channelName: channelName,
		channels:    make(map[uint64]string),
	}
}

// Send posts an embed to the guild's log channel, creating the channel if
// it does not exist yet.
func (n *Notifier) Send(guildID uint64, title, description string, color int) error {
	channelID, err := n.ensureChannel(guildID)
	if err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "GLX Protection",
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	_, err = n.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// ensureChannel resolves the log channel, preferring the cache, then the
// guild's existing channels, then creating a fresh locked-down channel.
func (n *Notifier) ensureChannel(guildID uint64) (string, error) {
	n.mu.Lock()
	if id, ok := n.channels[guildID]; ok {
		n.mu.Unlock()
		return id, nil
	}
	n.mu.Unlock()

	guildIDStr := strconv.FormatUint(guildID, 10)
	channels, err := n.session.GuildChannels(guildIDStr)
	if err != nil {
		return "", fmt.Errorf("list channels for guild %d: %w", guildID, err)
	}

	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == n.channelName {
			n.remember(guildID, ch.ID)
			return ch.ID, nil
		}
	}

	created, err := n.createLogChannel(guildIDStr)
	if err != nil {
		return "", err
	}
	n.remember(guildID, created.ID)
	logging.Info("Created log channel #%s in guild %d", n.channelName, guildID)
	return created.ID, nil
}

// createLogChannel makes the channel read-only for @everyone while keeping
// the bot able to post.
func (n *Notifier) createLogChannel(guildID string) (*discordgo.Channel, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID, // @everyone role shares the guild ID
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionSendMessages,
		},
	}
	if n.session.State != nil && n.session.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    n.session.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionSendMessages | discordgo.PermissionViewChannel,
		})
	}

	return n.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 n.channelName,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                "GLX Protection event log",
		PermissionOverwrites: overwrites,
	})
}

func (n *Notifier) remember(guildID uint64, channelID string) {
	n.mu.Lock()
	n.channels[guildID] = channelID
	n.mu.Unlock()
}

// Forget drops the cached channel for a guild, e.g. when the bot leaves.
func (n *Notifier) Forget(guildID uint64) {
	n.mu.Lock()
	delete(n.channels, guildID)
	n.mu.Unlock()
}
