package telegram

import (
	"fmt"
	"sort"
	"sync"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/p2pdesk/exbot/core/logger"
)

// Command is one slash command: its handler plus the metadata that controls
// menu visibility and the admin gate.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
}

// Registry collects the routes the application registers during setup:
// slash commands, callback handlers keyed by their button unique, and the
// free-text fallback. Commands are registered before the bot starts and
// read-only afterwards; callbacks keep a lock because diagnostics may list
// them at runtime.
type Registry struct {
	commands map[string]Command

	mu        sync.RWMutex
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry. Unknown callbacks get a generic
// "Unsupported action" toast until the application replaces the fallback.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand adds a command under its slash-prefixed name. Invalid or
// duplicate registrations are logged and dropped so one bad route cannot
// take the bot down during wiring.
func (r *Registry) RegisterCommand(name string, cmd Command) {
	reason := ""
	switch {
	case r == nil || cmd.Handler == nil:
		reason = "nil handler"
	case name == "" || name[0] != '/':
		reason = "missing slash prefix"
	default:
		if _, dup := r.commands[name]; dup {
			reason = "duplicate"
		}
	}
	if reason != "" {
		logger.TG.Warn("command registration skipped",
			slog.String("event", "register.command.skip"),
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return
	}
	r.commands[name] = cmd
}

// Commands returns the registered command table.
func (r *Registry) Commands() map[string]Command {
	return r.commands
}

// ListCommands renders the sorted Telegram command menu. With visibleOnly
// set, hidden and admin-only commands are omitted.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback maps a callback unique to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		return fmt.Errorf("invalid callback registration: %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback looks up a callback handler by its unique.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered uniques, sorted, for diagnostics.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the unknown-callback fallback. Nil keeps the
// current handler.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the unknown-callback fallback.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets the handler that consumes free-text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the free-text handler, nil when none is set.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}
