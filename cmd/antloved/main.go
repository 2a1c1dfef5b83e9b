package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/xunintzx/antlove/internal/alert"
	"github.com/xunintzx/antlove/internal/bot"
	"github.com/xunintzx/antlove/internal/captcha"
	"github.com/xunintzx/antlove/internal/config"
	"github.com/xunintzx/antlove/internal/directory"
	"github.com/xunintzx/antlove/internal/logbuf"
	"github.com/xunintzx/antlove/internal/moderation"
	"github.com/xunintzx/antlove/internal/rolereq"
	"github.com/xunintzx/antlove/internal/scheduler"
	"github.com/xunintzx/antlove/internal/ticket"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Local development convention: secrets in a .env file.
	godotenv.Load()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("antloved starting", "guild", cfg.Bot.GuildID)

	// 1. Ticket store
	if err := os.MkdirAll(cfg.Bot.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.Bot.DataDir, "error", err)
		os.Exit(1)
	}
	store, err := ticket.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		logger.Error("failed to open ticket store", "path", cfg.DatabasePath(), "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// 2. Ops alert notifiers
	var notifiers alert.Multi
	if tg := cfg.Alerts.Telegram; tg != nil {
		n, err := alert.NewTelegram(tg.Token, tg.ChatID)
		if err != nil {
			logger.Error("failed to init telegram alerts", "error", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, n)
		logger.Info("telegram alerts enabled")
	}
	if sl := cfg.Alerts.Slack; sl != nil {
		n, err := alert.NewSlack(sl.Token, sl.Channel)
		if err != nil {
			logger.Error("failed to init slack alerts", "error", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, n)
		logger.Info("slack alerts enabled")
	}
	var alerts alert.Notifier
	if len(notifiers) > 0 {
		alerts = notifiers
	}

	// 3. Gateway session and directory
	session, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}
	dir := directory.NewDiscord(session, cfg.Bot.GuildID, cfg.Tickets.CategoryID)

	// 4. Workflow components
	sched := scheduler.New(logger.With("component", "scheduler"))
	gate := captcha.NewGate(cfg.CaptchaTTL(), logger.With("component", "captcha"))
	pending := rolereq.NewPending()

	tickets := ticket.NewManager(dir, store, sched, alerts, ticket.Config{
		LogsChannelID: cfg.Tickets.LogsChannelID,
		LogDir:        cfg.Tickets.LogDir,
		GraceDelay:    cfg.TicketGraceDelay(),
	}, logger.With("component", "tickets"))

	requests := rolereq.NewManager(dir, pending, gate, rolereq.Config{
		RoleIDs:         cfg.Roles.RoleIDs,
		ReviewChannelID: cfg.Roles.ReviewChannelID,
	}, logger.With("component", "rolereq"))

	resolver := rolereq.NewResolver(dir, pending, alerts, cfg.Roles.InitialRoleID,
		logger.With("component", "approval"))

	warnings := moderation.NewWarningLog(cfg.Moderation.WarningsFile)
	mod := moderation.NewDispatcher(dir, warnings, logger.With("component", "moderation"))

	if err := sched.Every(cfg.Captcha.SweepSchedule, func() { gate.Sweep() }); err != nil {
		logger.Error("failed to schedule challenge sweep", "error", err)
		os.Exit(1)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go safeGo(logger, "scheduler", func() { sched.Start(ctx) })

	// 5. Bot
	b := bot.New(session, cfg, bot.Deps{
		Dir:        dir,
		Tickets:    tickets,
		Requests:   requests,
		Resolver:   resolver,
		Moderation: mod,
		Scheduler:  sched,
		Logs:       logBuf,
	}, logger.With("component", "bot"))

	if err := b.Start(); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	logger.Info("antloved running", "open_tickets", tickets.OpenCount())

	// 6. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	if err := b.Close(); err != nil {
		logger.Warn("gateway close failed", "error", err)
	}
	logger.Info("antloved stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
