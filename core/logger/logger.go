// Package logger configures the process-wide structured logger and exposes
// per-component loggers plus context helpers for request correlation.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	initOnce sync.Once

	levelVar slog.LevelVar

	// L is the base logger; component loggers below derive from it.
	L = slog.Default()

	// App logs process lifecycle events.
	App = L.With("component", "app")
	// TG logs Telegram transport events.
	TG = L.With("component", "tg")
	// DB logs database connection events.
	DB = L.With("component", "db")
	// MIG logs database migration events.
	MIG = L.With("component", "db.migrate")
	// Flow logs conversation engine activity.
	Flow = L.With("component", "flow")
	// Notify logs admin notification dispatch.
	Notify = L.With("component", "notify")
)

// Options selects the output level and format of the logger.
type Options struct {
	Level  string
	Format string
}

// Init configures the global structured logger. It may be called only once;
// later calls are no-ops.
func Init(opts Options) {
	initOnce.Do(func() {
		levelVar.Set(parseLevel(opts.Level))

		hopts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		switch strings.ToLower(strings.TrimSpace(opts.Format)) {
		case "kv", "text", "pretty":
			handler = slog.NewTextHandler(os.Stdout, hopts)
		default:
			handler = slog.NewJSONHandler(os.Stdout, hopts)
		}

		L = slog.New(handler)
		slog.SetDefault(L)
		wireComponents()
	})
}

func wireComponents() {
	App = L.With("component", "app")
	TG = L.With("component", "tg")
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	Flow = L.With("component", "flow")
	Notify = L.With("component", "notify")
}

// Component derives a logger for an ad-hoc component name.
func Component(name string) *slog.Logger {
	return L.With("component", name)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
