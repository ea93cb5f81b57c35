// Command midgard runs the Battle of Midgard chat game.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts the Twitch chat bot, the Discord bot, background jobs (sentry
//     windows, giveaway resolution) and the EventSub webhook bootstrap.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status,
//     /metrics and the EventSub callback.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vanderwood/midgard/chat"
	"github.com/vanderwood/midgard/config"
	"github.com/vanderwood/midgard/db"
	"github.com/vanderwood/midgard/discord"
	"github.com/vanderwood/midgard/eventsub"
	"github.com/vanderwood/midgard/game"
	"github.com/vanderwood/midgard/server"
	"github.com/vanderwood/midgard/store"
	"github.com/vanderwood/midgard/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	shutdown, err := telemetry.InitTracing("midgard", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Migrations: versioned first, embedded SQL as fallback for deployments
	// predating the schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(database)
	svc := game.New(st, cfg.Tuning)

	// Discord is optional; without a token the cross-posts are dropped.
	var alerts chat.Alerter
	if cfg.DiscordToken != "" {
		discordBot, err := discord.New(cfg, svc)
		if err != nil {
			slog.Error("discord init failed", slog.Any("err", err))
			os.Exit(1)
		}
		if err := discordBot.Start(ctx); err != nil {
			slog.Error("discord start failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := discordBot.Stop(); err != nil {
				slog.Error("discord stop failed", slog.Any("err", err))
			}
		}()
		alerts = discordBot
	} else {
		slog.Info("discord disabled (DISCORD_TOKEN not set)")
	}

	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("twitch chat not configured", slog.Any("err", err))
		os.Exit(1)
	}
	bot := chat.New(cfg, svc, alerts)
	go func() {
		if err := bot.Run(ctx); err != nil {
			slog.Error("chat bot exited", slog.Any("err", err))
			stop()
		}
	}()

	game.StartSentryJob(ctx, svc, bot, cfg.Tuning.SentryInterval)
	game.StartGiveawayResolverJob(ctx, svc, bot, cfg.Tuning.GiveawayInterval)

	// EventSub webhook: mounted only when fully configured.
	var esHandler http.Handler
	if err := cfg.ValidateEventSubReady(); err == nil {
		esHandler = eventsub.NewHandler(cfg.EventSubSecret, svc, bot, alerts)
		go func() {
			if err := eventsub.EnsureSubscriptions(ctx, cfg, st); err != nil {
				slog.Error("eventsub bootstrap failed", slog.Any("err", err))
			}
		}()
	} else {
		slog.Info("eventsub disabled", slog.Any("reason", err))
	}

	if err := server.Start(ctx, database, cfg.HTTPAddr, esHandler); err != nil {
		os.Exit(1)
	}
}

func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
