package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validJSON = `{
  "bot": {
    "token": "bot-token",
    "guild_id": "g1",
    "data_dir": "/tmp/antlove-test",
    "admin_role_ids": ["a1", "a2"],
    "auto_role_id": "init"
  },
  "tickets": {
    "category_id": "cat1",
    "logs_channel_id": "logs1"
  },
  "roles": {
    "role_ids": ["r1", "r2"],
    "review_channel_id": "review1",
    "initial_role_id": "init"
  },
  "alerts": {
    "telegram": {
      "token": "123456:ABC",
      "chat_id": 100
    }
  }
}`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(validJSON), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Bot.Token != "bot-token" {
		t.Errorf("bot.token = %q", cfg.Bot.Token)
	}
	if cfg.Bot.GuildID != "g1" {
		t.Errorf("bot.guild_id = %q", cfg.Bot.GuildID)
	}
	if len(cfg.Bot.AdminRoleIDs) != 2 {
		t.Errorf("admin_role_ids = %v", cfg.Bot.AdminRoleIDs)
	}
	if cfg.Tickets.CategoryID != "cat1" {
		t.Errorf("tickets.category_id = %q", cfg.Tickets.CategoryID)
	}
	if len(cfg.Roles.RoleIDs) != 2 {
		t.Errorf("role_ids = %v", cfg.Roles.RoleIDs)
	}
	if cfg.Alerts.Telegram == nil || cfg.Alerts.Telegram.ChatID != 100 {
		t.Errorf("telegram alert = %+v", cfg.Alerts.Telegram)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(validJSON), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TicketGraceDelay() != 5*time.Second {
		t.Errorf("grace delay = %v, want 5s", cfg.TicketGraceDelay())
	}
	if cfg.CaptchaTTL() != time.Minute {
		t.Errorf("captcha ttl = %v, want 1m", cfg.CaptchaTTL())
	}
	if cfg.CaptchaCleanupDelay() != 5*time.Second {
		t.Errorf("cleanup delay = %v, want 5s", cfg.CaptchaCleanupDelay())
	}
	if cfg.Captcha.SweepSchedule != "@every 1m" {
		t.Errorf("sweep schedule = %q", cfg.Captcha.SweepSchedule)
	}
	if cfg.Tickets.LogDir != filepath.Join("/tmp/antlove-test", "transcripts") {
		t.Errorf("log dir = %q", cfg.Tickets.LogDir)
	}
	if cfg.Moderation.WarningsFile != filepath.Join("/tmp/antlove-test", "warnings.json") {
		t.Errorf("warnings file = %q", cfg.Moderation.WarningsFile)
	}
	if cfg.DatabasePath() != filepath.Join("/tmp/antlove-test", "tickets.db") {
		t.Errorf("db path = %q", cfg.DatabasePath())
	}
}

func TestValidateMissingFields(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate should fail on empty config")
	}
	for _, want := range []string{"bot.token", "bot.guild_id", "tickets.category_id", "roles.role_ids"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANTLOVE_TOKEN", "env-token")
	t.Setenv("ANTLOVE_GUILD_ID", "g1")
	t.Setenv("ANTLOVE_TICKET_CATEGORY_ID", "cat1")
	t.Setenv("ANTLOVE_TICKET_LOGS_CHANNEL_ID", "logs1")
	t.Setenv("ANTLOVE_ROLE_IDS", "r1, r2,r3")
	t.Setenv("ANTLOVE_REVIEW_CHANNEL_ID", "review1")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Errorf("token = %q", cfg.Bot.Token)
	}
	if len(cfg.Roles.RoleIDs) != 3 || cfg.Roles.RoleIDs[1] != "r2" {
		t.Errorf("role_ids = %v", cfg.Roles.RoleIDs)
	}
	if cfg.Alerts.Telegram != nil {
		t.Error("telegram alert should be nil without env vars")
	}
}

func TestLoadFromEnvBadChatID(t *testing.T) {
	t.Setenv("ANTLOVE_TOKEN", "env-token")
	t.Setenv("ANTLOVE_GUILD_ID", "g1")
	t.Setenv("ANTLOVE_TICKET_CATEGORY_ID", "cat1")
	t.Setenv("ANTLOVE_TICKET_LOGS_CHANNEL_ID", "logs1")
	t.Setenv("ANTLOVE_ROLE_IDS", "r1")
	t.Setenv("ANTLOVE_REVIEW_CHANNEL_ID", "review1")
	t.Setenv("ANTLOVE_ALERT_TELEGRAM_TOKEN", "123456:ABC")
	t.Setenv("ANTLOVE_ALERT_TELEGRAM_CHAT_ID", "not-a-number")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("LoadFromEnv should fail on unparseable chat id")
	}
}
