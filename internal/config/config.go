package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Bot        BotConfig        `json:"bot"`
	Protection ProtectionConfig `json:"protection"`
	Features   FeatureDefaults  `json:"features"`
	Automod    AutomodConfig    `json:"automod"`
	Web        WebConfig        `json:"web"`
	Runtime    RuntimeConfig    `json:"runtime"`
	Network    NetworkConfig    `json:"network"`
	Database   DatabaseConfig   `json:"database"`
	Logging    LoggingConfig    `json:"logging"`
}

type BotConfig struct {
	Token          string `json:"token"`
	Prefix         string `json:"prefix"`
	GameStatus     string `json:"game_status"`
	OwnerID        uint64 `json:"owner_id"`
	LogChannelName string `json:"log_channel_name"`
}

type ProtectionConfig struct {
	SpamWindowSeconds int `json:"spam_window_seconds"`
	SpamMaxMessages   int `json:"spam_max_messages"`
	SpamWindowCap     int `json:"spam_window_cap"`
	AutoMuteSeconds   int `json:"auto_mute_seconds"`

	RaidWindowSeconds int `json:"raid_window_seconds"`
	RaidJoinThreshold int `json:"raid_join_threshold"`
	RaidWindowCap     int `json:"raid_window_cap"`
	RaidLockMinutes   int `json:"raid_lock_minutes"`

	MentionThreshold int `json:"mention_threshold"`

	WarnThreshold   int `json:"warn_threshold"`
	WarnMuteMinutes int `json:"warn_mute_minutes"`

	InvitePatterns []string `json:"invite_patterns"`
}

type FeatureDefaults struct {
	AntiSpam     bool `json:"anti_spam"`
	AntiRaid     bool `json:"anti_raid"`
	Automod      bool `json:"automod"`
	AntiInvites  bool `json:"anti_invites"`
	AntiMentions bool `json:"anti_mentions"`
	Nuke         bool `json:"nuke"`
}

type AutomodConfig struct {
	MaxRules     int `json:"max_rules"`
	KeywordRules int `json:"keyword_rules"`
	MentionLimit int `json:"mention_limit"`
}

type WebConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type RuntimeConfig struct {
	DisableGC  bool `json:"disable_gc"`
	MemoryLock bool `json:"memory_lock"`
	EngineCPU  int  `json:"engine_cpu"`
}

type NetworkConfig struct {
	HTTPPoolSize int    `json:"http_pool_size"`
	WorkerCount  int    `json:"worker_count"`
	APIBaseURL   string `json:"api_base_url"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type LoggingConfig struct {
	Path string `json:"path"`
	Echo bool   `json:"echo"`
}

// Load reads an optional JSON config file and applies GLX_* environment
// overrides on top. A missing file is not an error; env alone is enough.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Prefix:         "!",
			GameStatus:     "GLX Protection • Guarding your community",
			LogChannelName: "glx-logs",
		},
		Protection: ProtectionConfig{
			SpamWindowSeconds: 7,
			SpamMaxMessages:   7,
			SpamWindowCap:     50,
			AutoMuteSeconds:   10 * 60,
			RaidWindowSeconds: 10,
			RaidJoinThreshold: 6,
			RaidWindowCap:     128,
			RaidLockMinutes:   10,
			MentionThreshold:  8,
			WarnThreshold:     5,
			WarnMuteMinutes:   90,
			InvitePatterns: []string{
				"discord.gg/",
				"discord.com/invite/",
				"discordapp.com/invite/",
			},
		},
		Features: FeatureDefaults{
			AntiSpam:     true,
			AntiRaid:     true,
			Automod:      true,
			AntiInvites:  true,
			AntiMentions: true,
			Nuke:         false,
		},
		Automod: AutomodConfig{
			MaxRules:     80,
			KeywordRules: 60,
			MentionLimit: 6,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Runtime: RuntimeConfig{
			EngineCPU: -1,
		},
		Network: NetworkConfig{
			HTTPPoolSize: 4,
			WorkerCount:  4,
			APIBaseURL:   "https://discord.com/api/v10",
		},
		Database: DatabaseConfig{
			Path: "glx.db",
		},
		Logging: LoggingConfig{
			Path: "glx.log",
			Echo: true,
		},
	}
}

func (c *Config) applyEnv() {
	envString("DISCORD_TOKEN", &c.Bot.Token)
	envString("GLX_PREFIX", &c.Bot.Prefix)
	envString("GLX_GAME_STATUS", &c.Bot.GameStatus)
	envString("GLX_LOG_CHANNEL_NAME", &c.Bot.LogChannelName)
	envUint64("GLX_OWNER_ID", &c.Bot.OwnerID)

	envBool("GLX_ANTISPAM_ENABLED", &c.Features.AntiSpam)
	envBool("GLX_ANTIRAID_ENABLED", &c.Features.AntiRaid)
	envBool("GLX_AUTOMOD_ENABLED", &c.Features.Automod)
	envBool("GLX_ANTIINVITES_ENABLED", &c.Features.AntiInvites)
	envBool("GLX_ANTIMENTIONS_ENABLED", &c.Features.AntiMentions)
	envBool("GLX_NUKE_ENABLED", &c.Features.Nuke)

	envInt("GLX_SPAM_WINDOW_SECONDS", &c.Protection.SpamWindowSeconds)
	envInt("GLX_SPAM_MAX_MESSAGES", &c.Protection.SpamMaxMessages)
	envInt("GLX_AUTOMUTE_SECONDS", &c.Protection.AutoMuteSeconds)
	envInt("GLX_RAID_WINDOW_SECONDS", &c.Protection.RaidWindowSeconds)
	envInt("GLX_RAID_JOIN_THRESHOLD", &c.Protection.RaidJoinThreshold)
	envInt("GLX_RAID_LOCK_MINUTES", &c.Protection.RaidLockMinutes)
	envInt("GLX_MENTION_THRESHOLD", &c.Protection.MentionThreshold)
	envInt("GLX_WARN_THRESHOLD", &c.Protection.WarnThreshold)
	envInt("GLX_WARN_MUTE_MINUTES", &c.Protection.WarnMuteMinutes)

	envInt("GLX_AUTOMOD_MAX_RULES", &c.Automod.MaxRules)
	envInt("GLX_AUTOMOD_KEYWORD_RULES", &c.Automod.KeywordRules)
	envInt("GLX_AUTOMOD_MENTION_LIMIT", &c.Automod.MentionLimit)

	envString("GLX_WEB_HOST", &c.Web.Host)
	envInt("GLX_WEB_PORT", &c.Web.Port)

	envString("GLX_DATABASE_PATH", &c.Database.Path)
	envString("GLX_LOG_PATH", &c.Logging.Path)
}

// FlagDefaults returns the feature switch defaults keyed by flag name.
func (c *Config) FlagDefaults() map[string]bool {
	return map[string]bool{
		"anti_spam":     c.Features.AntiSpam,
		"anti_raid":     c.Features.AntiRaid,
		"automod":       c.Features.Automod,
		"anti_invites":  c.Features.AntiInvites,
		"anti_mentions": c.Features.AntiMentions,
		"nuke":          c.Features.Nuke,
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envUint64(key string, dst *uint64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

// envBool treats a case-insensitive "true" as true, anything else as false.
func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true")
	}
}
