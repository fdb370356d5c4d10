// Package telegram owns the bot runtime: update source selection, route
// wiring, the global middleware chain, and graceful shutdown.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/p2pdesk/exbot/core/config"
	"github.com/p2pdesk/exbot/core/logger"
	"github.com/p2pdesk/exbot/core/telegram/middleware"
	tgsender "github.com/p2pdesk/exbot/core/telegram/sender"
)

// Middleware is a named global middleware registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Runtime hands the constructed components to the setup and lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Middlewares       []Middleware

	// Setup runs after the bot is constructed and before routes are wired;
	// it is where the application registers its commands, callbacks, and
	// text fallback into the registry.
	Setup func(rt Runtime) error

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// RunTelegram builds the bot from the options and serves updates until the
// context is cancelled or the poller stops on its own.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config provided")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
		Client: newAPIClient(),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logRunMode(ctx, bot.Poller)

	// A leftover webhook blocks long polling until removed.
	if !opts.DisableWebhookCleanup && strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		if err := dropWebhook(cfg.Telegram.Token); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("err", err.Error()),
			)
		}
	}

	dispatcher := tgsender.NewDispatcher(opts.DispatcherOptions)
	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}

	if opts.Setup != nil {
		if err := opts.Setup(rt); err != nil {
			dispatcher.Close()
			return fmt.Errorf("telegram: setup failed: %w", err)
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	wireRoutes(bot, reg, cfg)

	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.TG.Warn("failed to publish command menu",
			slog.String("event", "set_commands"),
			slog.String("err", err.Error()),
		)
	}
	logger.TG.Info("handlers wired",
		slog.String("event", "wire.complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			dispatcher.Close()
			return err
		}
	}

	return serve(ctx, bot, dispatcher, rt, opts.OnStop)
}

// serve runs the poller loop and orchestrates shutdown: stop the bot, run
// the OnStop hook, then drain the outbound queue.
func serve(ctx context.Context, bot *tele.Bot, dispatcher *tgsender.Dispatcher, rt Runtime, onStop func(context.Context, Runtime) error) error {
	polling := make(chan struct{})
	go func() {
		bot.Start()
		close(polling)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-polling
		runErr = ctx.Err()
	case <-polling:
	}

	var stopErr error
	if onStop != nil {
		stopErr = onStop(context.Background(), rt)
	}
	dispatcher.Close()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// wireRoutes binds the registry to the bot. Every handler gets panic
// recovery; admin-only commands get the admin gate on top.
func wireRoutes(bot *tele.Bot, reg *Registry, cfg *coreconfig.Config) {
	adminGate := middleware.AdminOnlyMiddleware(middleware.AdminOptions{AdminIDs: cfg.Telegram.AdminIDs})

	for name, cmd := range reg.Commands() {
		h := middleware.RecoverMiddleware(cmd.Handler)
		if cmd.AdminOnly {
			h = adminGate(h)
		}
		bot.Handle(name, h)
	}

	bot.Handle(tele.OnCallback, middleware.RecoverMiddleware(func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := middleware.ParseCallback(cb)
		_ = c.Respond()

		handler, ok := reg.GetCallback(key)
		if !ok || handler == nil {
			handler = reg.CallbackNotFound()
			if handler == nil {
				return nil
			}
		}
		return handler(c)
	}))

	bot.Handle(tele.OnText, middleware.RecoverMiddleware(func(c tele.Context) error {
		if fb := reg.TextFallback(); fb != nil {
			return fb(c)
		}
		return nil
	}))
}

func logRunMode(ctx context.Context, poller tele.Poller) {
	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Duration("timeout", p.Timeout),
		)
	}
}

// dropWebhook removes a registered webhook via the Bot API directly, before
// the poller starts.
func dropWebhook(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint := "https://api.telegram.org/bot" + token + "/deleteWebhook"
	form := url.Values{"drop_pending_updates": {"false"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
