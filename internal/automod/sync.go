// Package automod mirrors the bot's protections into platform-native
// AutoMod rules so baseline filtering still applies when the bot is down.
package automod

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
)

const (
	ruleSpam        = "GLX-SPAM"
	ruleMentionSpam = "GLX-MENTION-SPAM"
	rulePresets     = "GLX-PRESETS"
	ruleKeywordFmt  = "GLX-KW-%d"

	keywordsPerRule = 10
)

// scamKeywords are chunked across GLX-KW-N rules.
var scamKeywords = []string{
	"free nitro", "nitro giveaway", "free discord nitro",
	"steam gift", "free steam", "csgo skins free",
	"claim your prize", "you won a gift", "airdrop claim",
	"crypto giveaway", "double your crypto", "guaranteed profit",
	"onlyfans leak", "18+ content free", "hot singles",
	"account verification required", "verify your account here",
	"password reset link", "login to claim",
}

type Syncer struct {
	session *discordgo.Session
	cfg     config.AutomodConfig
	flags   *state.FlagStore
	stats   *metrics.Store

	mu     sync.Mutex
	warned map[uint64]bool // guilds already warned about the rule cap
}

func NewSyncer(session *discordgo.Session, cfg config.AutomodConfig, flags *state.FlagStore, stats *metrics.Store) *Syncer {
	return &Syncer{
		session: session,
		cfg:     cfg,
		flags:   flags,
		stats:   stats,
		warned:  make(map[uint64]bool),
	}
}

// Sync creates any missing GLX rules in the guild. Existing rules are left
// untouched; operators may have tuned them. The automod feature flag gates
// every caller here, so the guild-join path, the command, and the admin
// endpoint all honor it.
func (s *Syncer) Sync(guildID uint64) (int, error) {
	if !s.flags.Get(state.FlagAutomod) {
		logging.Info("Automod disabled; skipping sync for guild %d", guildID)
		return 0, nil
	}

	guildIDStr := strconv.FormatUint(guildID, 10)

	existing, err := s.session.AutoModerationRules(guildIDStr)
	if err != nil {
		return 0, fmt.Errorf("list automod rules for guild %d: %w", guildID, err)
	}

	present := make(map[string]bool, len(existing))
	for _, r := range existing {
		present[r.Name] = true
	}

	created := 0
	total := len(existing)
	for _, rule := range s.desiredRules() {
		if present[rule.Name] {
			continue
		}
		if total >= s.cfg.MaxRules {
			s.warnCap(guildID, total)
			break
		}
		if _, err := s.session.AutoModerationRuleCreate(guildIDStr, rule); err != nil {
			logging.Warn("Failed to create automod rule %s in guild %d: %v", rule.Name, guildID, err)
			continue
		}
		created++
		total++
		s.stats.Incr(metrics.CounterAutomodRulesCreated, guildID)
	}

	if created > 0 {
		logging.Info("Synced %d automod rules into guild %d", created, guildID)
	}
	return created, nil
}

func (s *Syncer) desiredRules() []*discordgo.AutoModerationRule {
	enabled := true
	block := []discordgo.AutoModerationAction{
		{Type: discordgo.AutoModerationRuleActionBlockMessage},
	}

	rules := []*discordgo.AutoModerationRule{
		{
			Name:        ruleSpam,
			EventType:   discordgo.AutoModerationEventMessageSend,
			TriggerType: discordgo.AutoModerationEventTriggerSpam,
			Actions:     block,
			Enabled:     &enabled,
		},
		{
			Name:        ruleMentionSpam,
			EventType:   discordgo.AutoModerationEventMessageSend,
			// discordgo (through v0.29.0) does not export a constant for the
			// Discord API's mention_spam trigger type, which is 5.
			TriggerType: discordgo.AutoModerationRuleTriggerType(5),
			TriggerMetadata: &discordgo.AutoModerationTriggerMetadata{
				MentionTotalLimit: s.cfg.MentionLimit,
			},
			Actions: block,
			Enabled: &enabled,
		},
		{
			Name:        rulePresets,
			EventType:   discordgo.AutoModerationEventMessageSend,
			TriggerType: discordgo.AutoModerationEventTriggerKeywordPreset,
			TriggerMetadata: &discordgo.AutoModerationTriggerMetadata{
				Presets: []discordgo.AutoModerationKeywordPreset{
					discordgo.AutoModerationKeywordPresetProfanity,
					discordgo.AutoModerationKeywordPresetSexualContent,
					discordgo.AutoModerationKeywordPresetSlurs,
				},
			},
			Actions: block,
			Enabled: &enabled,
		},
	}

	for i, chunk := range chunkKeywords(scamKeywords, keywordsPerRule) {
		if i >= s.cfg.KeywordRules {
			break
		}
		rules = append(rules, &discordgo.AutoModerationRule{
			Name:        fmt.Sprintf(ruleKeywordFmt, i+1),
			EventType:   discordgo.AutoModerationEventMessageSend,
			TriggerType: discordgo.AutoModerationEventTriggerKeyword,
			TriggerMetadata: &discordgo.AutoModerationTriggerMetadata{
				KeywordFilter: chunk,
			},
			Actions: block,
			Enabled: &enabled,
		})
	}
	return rules
}

// warnCap logs the rule-capacity warning once per guild per process.
func (s *Syncer) warnCap(guildID uint64, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.warned[guildID] {
		return
	}
	s.warned[guildID] = true
	logging.Warn("Guild %d is at the automod rule cap (%d/%d), skipping remaining rules",
		guildID, total, s.cfg.MaxRules)
}

func chunkKeywords(words []string, size int) [][]string {
	var chunks [][]string
	for len(words) > 0 {
		n := size
		if len(words) < n {
			n = len(words)
		}
		chunks = append(chunks, words[:n])
		words = words[n:]
	}
	return chunks
}
