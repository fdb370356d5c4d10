// Package flow implements the per-user conversation state machine of the
// exchange intake bot: language selection, the buy/sell menu, city capture,
// and forwarding of completed requests to the admins.
//
// The engine is transport-agnostic. It consumes typed events from a chat
// adapter, decides the next state inside an atomic state-store update, and
// only then performs outbound sends, so no store or registry lock is ever
// held across a network call. Malformed or out-of-order events degrade to a
// safe prompt instead of failing hard.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/p2pdesk/exbot/core/logger"
	"github.com/p2pdesk/exbot/internal/notify"
	"github.com/p2pdesk/exbot/internal/rates"
	"github.com/p2pdesk/exbot/internal/session"
	"github.com/p2pdesk/exbot/internal/texts"
)

// Callback actions understood by the engine. The transport routes button
// presses back by these keys.
const (
	ActionBuy         = "buy"
	ActionSell        = "sell"
	ActionChannel     = "channel"
	ActionSwitchLang  = "switch_language"
	ActionBackToStart = "back_to_start"
	ActionLanguage    = "lang"
)

// ErrEmptyCity marks a blank city message; the user is re-prompted and the
// state is left unchanged.
var ErrEmptyCity = errors.New("flow: empty city input")

// Config carries the static settings of the engine.
type Config struct {
	// Admins is the allow-list for rate-set commands and the recipient list
	// for request notifications. Read-only after startup.
	Admins     []int64
	ChannelURL string
}

// Deps wires the engine's collaborators.
type Deps struct {
	States   *session.Store
	Rates    *rates.Registry
	Notifier *notify.Dispatcher
	Sender   Sender
	// Journal is optional; nil disables request journaling.
	Journal Journal
}

// Engine owns the conversation state machine.
type Engine struct {
	cfg      Config
	admins   map[int64]struct{}
	states   *session.Store
	rates    *rates.Registry
	notifier *notify.Dispatcher
	sender   Sender
	journal  Journal
	log      *slog.Logger
}

// NewEngine constructs the engine. All Deps fields except Journal are
// required.
func NewEngine(cfg Config, deps Deps) *Engine {
	admins := make(map[int64]struct{}, len(cfg.Admins))
	for _, id := range cfg.Admins {
		admins[id] = struct{}{}
	}
	return &Engine{
		cfg:      cfg,
		admins:   admins,
		states:   deps.States,
		rates:    deps.Rates,
		notifier: deps.Notifier,
		sender:   deps.Sender,
		journal:  deps.Journal,
		log:      logger.Flow,
	}
}

func (e *Engine) isAdmin(userID int64) bool {
	_, ok := e.admins[userID]
	return ok
}

// Start handles the restart command: the pending action is dropped, the
// language (if already chosen) is kept, and the user lands on the language
// prompt or the main menu.
func (e *Engine) Start(ctx context.Context, u User) error {
	st := e.states.Update(u.ID, func(s *session.UserState) {
		s.PendingAction = ""
		s.MenuMessageID = 0
		if s.Language == "" {
			s.Phase = session.PhaseAwaitingLanguage
		} else {
			s.Phase = session.PhaseMainMenu
		}
	})
	if st.Language == "" {
		return e.sender.Send(ctx, u.ID, texts.Resolve("", "lang.prompt"), languageKeyboard())
	}
	return e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, "menu.title"), menuKeyboard(st.Language))
}

// SelectLanguage stores the chosen language and moves the user to the main
// menu. Unknown codes degrade to a fresh start prompt.
func (e *Engine) SelectLanguage(ctx context.Context, u User, code string, menuMsgID int) error {
	if !texts.IsSupported(code) {
		e.log.Warn("unsupported language selection",
			slog.String("event", "flow.lang.unknown"),
			slog.Int64("user_id", u.ID),
			slog.String("code", logger.SanitizeLimit(code, 16)),
		)
		return e.Start(ctx, u)
	}
	st := e.states.Update(u.ID, func(s *session.UserState) {
		s.Language = code
		s.Phase = session.PhaseMainMenu
		s.PendingAction = ""
		s.MenuMessageID = 0
	})
	return e.editOrSend(ctx, u.ID, menuMsgID, texts.Resolve(st.Language, "menu.title"), menuKeyboard(st.Language))
}

// ChooseAction handles the buy/sell selection: it records the pending action
// together with the menu message id, and renders the side's rate snapshot
// followed by the city prompt.
func (e *Engine) ChooseAction(ctx context.Context, u User, action string, menuMsgID int) error {
	side, ok := sideFor(action)
	if !ok {
		return e.Start(ctx, u)
	}
	st := e.states.Update(u.ID, func(s *session.UserState) {
		if s.Language == "" {
			// Stale menu pressed before a language was ever chosen.
			s.Phase = session.PhaseAwaitingLanguage
			return
		}
		s.PendingAction = action
		s.MenuMessageID = menuMsgID
		s.Phase = session.PhaseAwaitingCity
	})
	if st.Language == "" {
		return e.editOrSend(ctx, u.ID, menuMsgID, texts.Resolve("", "lang.prompt"), languageKeyboard())
	}
	return e.editOrSend(ctx, u.ID, menuMsgID, e.renderActionIntro(st.Language, side), nil)
}

// ShowChannel renders the community channel link with a back control. The
// phase stays untouched.
func (e *Engine) ShowChannel(ctx context.Context, u User, menuMsgID int) error {
	st := e.states.Get(u.ID)
	kb := Keyboard{{{Text: texts.Resolve(st.Language, "menu.back"), Action: ActionBackToStart}}}
	return e.editOrSend(ctx, u.ID, menuMsgID, texts.Resolve(st.Language, "channel.info", e.cfg.ChannelURL), kb)
}

// SwitchLanguage sends the user back to language selection. The previous
// language stays in effect until a new one is chosen.
func (e *Engine) SwitchLanguage(ctx context.Context, u User, menuMsgID int) error {
	e.states.Update(u.ID, func(s *session.UserState) {
		s.Phase = session.PhaseAwaitingLanguage
		s.PendingAction = ""
		s.MenuMessageID = 0
	})
	return e.editOrSend(ctx, u.ID, menuMsgID, texts.Resolve("", "lang.prompt"), languageKeyboard())
}

// BackToStart is the inline equivalent of Start, editing the message the
// button was attached to.
func (e *Engine) BackToStart(ctx context.Context, u User, menuMsgID int) error {
	st := e.states.Update(u.ID, func(s *session.UserState) {
		s.PendingAction = ""
		s.MenuMessageID = 0
		if s.Language == "" {
			s.Phase = session.PhaseAwaitingLanguage
		} else {
			s.Phase = session.PhaseMainMenu
		}
	})
	if st.Language == "" {
		return e.editOrSend(ctx, u.ID, menuMsgID, texts.Resolve("", "lang.prompt"), languageKeyboard())
	}
	return e.editOrSend(ctx, u.ID, menuMsgID, texts.Resolve(st.Language, "menu.title"), menuKeyboard(st.Language))
}

// ShowRates renders the current buy and sell snapshots. No state change.
func (e *Engine) ShowRates(ctx context.Context, u User) error {
	st := e.states.Get(u.ID)
	return e.sender.Send(ctx, u.ID, e.renderRates(st.Language), nil)
}

// SubmitText consumes a free-text message. With a pending action it is the
// city name completing the request; otherwise the user is steered back to
// language selection or the main menu.
func (e *Engine) SubmitText(ctx context.Context, u User, text string) error {
	st := e.states.Get(u.ID)
	if st.Phase != session.PhaseAwaitingCity || st.PendingAction == "" {
		return e.redirect(ctx, u, st)
	}

	city := strings.TrimSpace(text)
	if city == "" {
		e.log.Debug("empty city input",
			slog.String("event", "flow.city.empty"),
			slog.Int64("user_id", u.ID),
			slog.String("err", ErrEmptyCity.Error()),
		)
		return e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, "city.empty"), nil)
	}

	var (
		action    string
		menuMsgID int
	)
	st = e.states.Update(u.ID, func(s *session.UserState) {
		action = s.PendingAction
		menuMsgID = s.MenuMessageID
		s.PendingAction = ""
		s.MenuMessageID = 0
		s.Phase = session.PhaseMainMenu
	})
	if action == "" {
		// Lost a race with a restart between the read and the update.
		return e.redirect(ctx, u, st)
	}

	if menuMsgID != 0 {
		if err := e.sender.Delete(ctx, u.ID, menuMsgID); err != nil {
			// Stale or already-gone menu message; retraction is best-effort.
			e.log.Debug("menu retraction skipped",
				slog.String("event", "flow.menu.stale"),
				slog.Int64("user_id", u.ID),
				slog.Int("message_id", menuMsgID),
				slog.String("err", err.Error()),
			)
		}
	}

	if err := e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, "thanks"), nil); err != nil {
		e.log.Error("thank-you delivery failed",
			slog.String("event", "flow.thanks.fail"),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
	}

	summary := renderAdminRequest(u, action, city)
	if _, err := e.notifier.Notify(ctx, e.cfg.Admins, summary); err != nil {
		// Already logged per recipient by the dispatcher; the user flow is
		// complete regardless.
		e.log.Warn("request notification incomplete",
			slog.String("event", "flow.notify.partial"),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
	}

	if e.journal != nil {
		if err := e.journal.Record(ctx, u.ID, u.Username, action, city); err != nil {
			e.log.Warn("journal write failed",
				slog.String("event", "flow.journal.fail"),
				slog.Int64("user_id", u.ID),
				slog.String("err", err.Error()),
			)
		}
	}

	e.log.Info("request completed",
		slog.String("event", "flow.request.done"),
		slog.Int64("user_id", u.ID),
		slog.String("action", action),
		slog.String("city", logger.SanitizeLimit(city, 64)),
	)
	return nil
}

// SetRate handles the admin rate-set command for one side. Non-admin issuers
// are ignored without any response.
func (e *Engine) SetRate(ctx context.Context, u User, side rates.Side, args []string) error {
	if !e.isAdmin(u.ID) {
		e.log.Debug("rate-set from non-admin dropped",
			slog.String("event", "flow.setrate.unauthorized"),
			slog.Int64("user_id", u.ID),
		)
		return nil
	}

	st := e.states.Get(u.ID)
	usageKey := "setrate.usage.buy"
	doneKey := "setrate.done.buy"
	if side == rates.SideSell {
		usageKey = "setrate.usage.sell"
		doneKey = "setrate.done.sell"
	}

	if len(args) != 2 {
		return e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, usageKey), nil)
	}

	value, parseErr := strconv.ParseFloat(args[1], 64)
	if parseErr != nil {
		return e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, "setrate.invalid"), nil)
	}
	prev, existed, err := e.rates.Set(side, args[0], value)
	if err != nil {
		return e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, "setrate.invalid"), nil)
	}

	currency := strings.ToUpper(strings.TrimSpace(args[0]))
	attrs := []any{
		slog.String("event", "flow.setrate.done"),
		slog.Int64("admin_id", u.ID),
		slog.String("side", string(side)),
		slog.String("currency", currency),
		slog.Float64("rate", value),
	}
	if existed {
		attrs = append(attrs, slog.Float64("prev", prev))
	}
	e.log.Info("rate updated", attrs...)

	return e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, doneKey, currency, formatRate(value)), nil)
}

// redirect steers a user without a pending action to the right prompt.
func (e *Engine) redirect(ctx context.Context, u User, st session.UserState) error {
	if st.Language == "" {
		e.states.Update(u.ID, func(s *session.UserState) {
			s.Phase = session.PhaseAwaitingLanguage
		})
		return e.sender.Send(ctx, u.ID, texts.Resolve("", "lang.prompt"), languageKeyboard())
	}
	return e.sender.Send(ctx, u.ID, texts.Resolve(st.Language, "menu.guidance"), menuKeyboard(st.Language))
}

// editOrSend edits the referenced message, falling back to a fresh send when
// the edit fails or no message id is known.
func (e *Engine) editOrSend(ctx context.Context, userID int64, messageID int, text string, kb Keyboard) error {
	if messageID != 0 {
		if err := e.sender.Edit(ctx, userID, messageID, text, kb); err == nil {
			return nil
		}
	}
	return e.sender.Send(ctx, userID, text, kb)
}

func sideFor(action string) (rates.Side, bool) {
	switch action {
	case ActionBuy:
		return rates.SideBuy, true
	case ActionSell:
		return rates.SideSell, true
	}
	return "", false
}
