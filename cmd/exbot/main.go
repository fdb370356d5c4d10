package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/p2pdesk/exbot/core/config"
	"github.com/p2pdesk/exbot/core/database"
	"github.com/p2pdesk/exbot/core/logger"
	"github.com/p2pdesk/exbot/core/telegram"
	"github.com/p2pdesk/exbot/internal/bot"
	"github.com/p2pdesk/exbot/internal/flow"
	"github.com/p2pdesk/exbot/internal/journal"
	"github.com/p2pdesk/exbot/internal/notify"
	"github.com/p2pdesk/exbot/internal/rates"
	"github.com/p2pdesk/exbot/internal/session"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Init(logger.Options{})
		logger.App.Error("configuration load failed",
			slog.String("event", "config.load"),
			slog.String("path", configPath),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.App.Info("starting exbot",
		slog.String("event", "startup"),
		slog.String("run_mode", cfg.Telegram.RunMode),
		slog.Int("admins", len(cfg.Telegram.AdminIDs)),
	)

	var db *sqlx.DB
	var requestJournal flow.Journal
	if cfg.Journal.Enabled {
		if err := database.RunMigrations(cfg.Journal.Database); err != nil {
			logger.App.Error("migrations failed",
				slog.String("event", "migrate"),
				slog.String("err", err.Error()),
			)
			os.Exit(1)
		}
		db, err = database.Connect(cfg.Journal.Database)
		if err != nil {
			logger.App.Error("database connection failed",
				slog.String("event", "db.connect"),
				slog.String("err", err.Error()),
			)
			os.Exit(1)
		}
		defer db.Close()
		requestJournal = journal.NewRepo(db)
	}

	states := session.NewStore()
	rateRegistry := rates.NewRegistry(cfg.Exchange.BuyRates, cfg.Exchange.SellRates)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = telegram.RunTelegram(ctx, telegram.RunOptions{
		Config:      cfg,
		Middlewares: telegram.DefaultMiddlewares(cfg, nil),
		Setup: func(rt telegram.Runtime) error {
			sender := bot.NewSender(rt.Bot, rt.Dispatcher)
			engine := flow.NewEngine(flow.Config{
				Admins:     cfg.Telegram.AdminIDs,
				ChannelURL: cfg.Exchange.ChannelURL,
			}, flow.Deps{
				States:   states,
				Rates:    rateRegistry,
				Notifier: notify.NewDispatcher(sender),
				Sender:   sender,
				Journal:  requestJournal,
			})
			return bot.NewHandlers(engine).Register(rt.Registry)
		},
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			logger.App.Info("bot ready",
				slog.String("event", "ready"),
				slog.String("bot", rt.Bot.Me.Username),
			)
			return nil
		},
	})
	if err != nil {
		logger.App.Error("bot terminated with error",
			slog.String("event", "shutdown"),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}

	logger.App.Info("shutdown complete", slog.String("event", "shutdown"))
}
