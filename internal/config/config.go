// Package config loads and validates the bot configuration from a JSON
// file or from ANTLOVE_-prefixed environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level antlove configuration.
type Config struct {
	Bot        BotConfig        `json:"bot"`
	Tickets    TicketConfig     `json:"tickets"`
	Captcha    CaptchaConfig    `json:"captcha"`
	Roles      RolesConfig      `json:"roles"`
	Moderation ModerationConfig `json:"moderation"`
	Alerts     AlertConfig      `json:"alerts"`
}

// BotConfig holds the connection and guild-level settings.
type BotConfig struct {
	Token        string   `json:"token"`
	GuildID      string   `json:"guild_id"`
	DataDir      string   `json:"data_dir"`
	AdminRoleIDs []string `json:"admin_role_ids,omitempty"`
	AutoRoleID   string   `json:"auto_role_id,omitempty"`
}

// TicketConfig holds the ticket workflow settings.
type TicketConfig struct {
	CategoryID        string `json:"category_id"`
	LogsChannelID     string `json:"logs_channel_id"`
	LogDir            string `json:"log_dir,omitempty"`
	GraceDelaySeconds int    `json:"grace_delay_seconds,omitempty"` // default 5
}

// CaptchaConfig holds the verification challenge settings.
type CaptchaConfig struct {
	TTLSeconds          int    `json:"ttl_seconds,omitempty"`           // default 60
	CleanupDelaySeconds int    `json:"cleanup_delay_seconds,omitempty"` // default 5
	SweepSchedule       string `json:"sweep_schedule,omitempty"`        // default @every 1m
}

// RolesConfig holds the role request workflow settings.
type RolesConfig struct {
	RoleIDs         []string `json:"role_ids"`
	ReviewChannelID string   `json:"review_channel_id"`
	InitialRoleID   string   `json:"initial_role_id,omitempty"`
}

// ModerationConfig holds the moderation surface settings.
type ModerationConfig struct {
	WarningsFile string `json:"warnings_file,omitempty"`
}

// AlertConfig holds the optional ops notification channels.
type AlertConfig struct {
	Telegram *TelegramAlertConfig `json:"telegram,omitempty"`
	Slack    *SlackAlertConfig    `json:"slack,omitempty"`
}

// TelegramAlertConfig holds Telegram alert settings.
type TelegramAlertConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// SlackAlertConfig holds Slack alert settings.
type SlackAlertConfig struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds the config from environment variables with ANTLOVE_
// prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Bot: BotConfig{
			Token:      os.Getenv("ANTLOVE_TOKEN"),
			GuildID:    os.Getenv("ANTLOVE_GUILD_ID"),
			DataDir:    getenv("ANTLOVE_DATA_DIR", "data"),
			AutoRoleID: os.Getenv("ANTLOVE_AUTO_ROLE_ID"),
		},
		Tickets: TicketConfig{
			CategoryID:        os.Getenv("ANTLOVE_TICKET_CATEGORY_ID"),
			LogsChannelID:     os.Getenv("ANTLOVE_TICKET_LOGS_CHANNEL_ID"),
			LogDir:            os.Getenv("ANTLOVE_TICKET_LOG_DIR"),
			GraceDelaySeconds: getenvInt("ANTLOVE_TICKET_GRACE_SECONDS", 0),
		},
		Captcha: CaptchaConfig{
			TTLSeconds: getenvInt("ANTLOVE_CAPTCHA_TTL_SECONDS", 0),
		},
		Roles: RolesConfig{
			RoleIDs:         parseStringList(os.Getenv("ANTLOVE_ROLE_IDS")),
			ReviewChannelID: os.Getenv("ANTLOVE_REVIEW_CHANNEL_ID"),
			InitialRoleID:   os.Getenv("ANTLOVE_INITIAL_ROLE_ID"),
		},
		Moderation: ModerationConfig{
			WarningsFile: os.Getenv("ANTLOVE_WARNINGS_FILE"),
		},
	}
	cfg.Bot.AdminRoleIDs = parseStringList(os.Getenv("ANTLOVE_ADMIN_ROLE_IDS"))

	if token := os.Getenv("ANTLOVE_ALERT_TELEGRAM_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("ANTLOVE_ALERT_TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: ANTLOVE_ALERT_TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Alerts.Telegram = &TelegramAlertConfig{Token: token, ChatID: chatID}
	}
	if token := os.Getenv("ANTLOVE_ALERT_SLACK_TOKEN"); token != "" {
		cfg.Alerts.Slack = &SlackAlertConfig{
			Token:   token,
			Channel: os.Getenv("ANTLOVE_ALERT_SLACK_CHANNEL"),
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.DataDir == "" {
		c.Bot.DataDir = "data"
	}
	if c.Tickets.LogDir == "" {
		c.Tickets.LogDir = filepath.Join(c.Bot.DataDir, "transcripts")
	}
	if c.Tickets.GraceDelaySeconds == 0 {
		c.Tickets.GraceDelaySeconds = 5
	}
	if c.Captcha.TTLSeconds == 0 {
		c.Captcha.TTLSeconds = 60
	}
	if c.Captcha.CleanupDelaySeconds == 0 {
		c.Captcha.CleanupDelaySeconds = 5
	}
	if c.Captcha.SweepSchedule == "" {
		c.Captcha.SweepSchedule = "@every 1m"
	}
	if c.Moderation.WarningsFile == "" {
		c.Moderation.WarningsFile = filepath.Join(c.Bot.DataDir, "warnings.json")
	}
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Bot.Token == "" {
		errs = append(errs, "bot.token is required")
	}
	if c.Bot.GuildID == "" {
		errs = append(errs, "bot.guild_id is required")
	}
	if c.Tickets.CategoryID == "" {
		errs = append(errs, "tickets.category_id is required")
	}
	if c.Tickets.LogsChannelID == "" {
		errs = append(errs, "tickets.logs_channel_id is required")
	}
	if len(c.Roles.RoleIDs) == 0 {
		errs = append(errs, "roles.role_ids must list at least one role")
	}
	if c.Roles.ReviewChannelID == "" {
		errs = append(errs, "roles.review_channel_id is required")
	}
	if c.Alerts.Telegram != nil && c.Alerts.Telegram.Token == "" {
		errs = append(errs, "alerts.telegram.token is required")
	}
	if c.Alerts.Slack != nil && (c.Alerts.Slack.Token == "" || c.Alerts.Slack.Channel == "") {
		errs = append(errs, "alerts.slack.token and alerts.slack.channel are required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// TicketGraceDelay returns the close grace delay as a duration.
func (c *Config) TicketGraceDelay() time.Duration {
	return time.Duration(c.Tickets.GraceDelaySeconds) * time.Second
}

// CaptchaTTL returns the challenge lifetime as a duration.
func (c *Config) CaptchaTTL() time.Duration {
	return time.Duration(c.Captcha.TTLSeconds) * time.Second
}

// CaptchaCleanupDelay returns the challenge message cleanup delay.
func (c *Config) CaptchaCleanupDelay() time.Duration {
	return time.Duration(c.Captcha.CleanupDelaySeconds) * time.Second
}

// DatabasePath returns the SQLite file path under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Bot.DataDir, "tickets.db")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
