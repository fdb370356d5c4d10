package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/p2pdesk/exbot/core/telegram"
	"github.com/p2pdesk/exbot/core/telegram/middleware"
	"github.com/p2pdesk/exbot/internal/flow"
	"github.com/p2pdesk/exbot/internal/rates"
)

// Handlers routes telebot updates into the conversation engine.
type Handlers struct {
	engine *flow.Engine
}

func NewHandlers(engine *flow.Engine) *Handlers {
	return &Handlers{engine: engine}
}

// Register binds commands, callbacks, and the free-text fallback.
func (h *Handlers) Register(reg *telegram.Registry) error {
	reg.RegisterCommand("/start", telegram.Command{
		Handler:     h.start,
		Description: "Start or restart the conversation",
	})
	reg.RegisterCommand("/rate", telegram.Command{
		Handler:     h.showRates,
		Description: "Show current exchange rates",
	})
	reg.RegisterCommand("/setratebuy", telegram.Command{
		Handler:   h.setRate(rates.SideBuy),
		AdminOnly: true,
		Hidden:    true,
	})
	reg.RegisterCommand("/setratesell", telegram.Command{
		Handler:   h.setRate(rates.SideSell),
		AdminOnly: true,
		Hidden:    true,
	})

	callbacks := map[string]tele.HandlerFunc{
		flow.ActionBuy:         h.chooseAction(flow.ActionBuy),
		flow.ActionSell:        h.chooseAction(flow.ActionSell),
		flow.ActionChannel:     h.showChannel,
		flow.ActionSwitchLang:  h.switchLanguage,
		flow.ActionBackToStart: h.backToStart,
		flow.ActionLanguage:    h.selectLanguage,
	}
	for key, handler := range callbacks {
		if err := reg.RegisterCallback(key, handler); err != nil {
			return err
		}
	}

	reg.SetTextFallback(h.text)
	return nil
}

func (h *Handlers) start(c tele.Context) error {
	return h.engine.Start(middleware.BuildContext(c), userFrom(c))
}

func (h *Handlers) showRates(c tele.Context) error {
	return h.engine.ShowRates(middleware.BuildContext(c), userFrom(c))
}

func (h *Handlers) setRate(side rates.Side) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.engine.SetRate(middleware.BuildContext(c), userFrom(c), side, c.Args())
	}
}

func (h *Handlers) chooseAction(action string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.engine.ChooseAction(middleware.BuildContext(c), userFrom(c), action, menuMessageID(c))
	}
}

func (h *Handlers) showChannel(c tele.Context) error {
	return h.engine.ShowChannel(middleware.BuildContext(c), userFrom(c), menuMessageID(c))
}

func (h *Handlers) switchLanguage(c tele.Context) error {
	return h.engine.SwitchLanguage(middleware.BuildContext(c), userFrom(c), menuMessageID(c))
}

func (h *Handlers) backToStart(c tele.Context) error {
	return h.engine.BackToStart(middleware.BuildContext(c), userFrom(c), menuMessageID(c))
}

func (h *Handlers) selectLanguage(c tele.Context) error {
	_, payload := middleware.ParseCallback(c.Callback())
	return h.engine.SelectLanguage(middleware.BuildContext(c), userFrom(c), payload, menuMessageID(c))
}

func (h *Handlers) text(c tele.Context) error {
	return h.engine.SubmitText(middleware.BuildContext(c), userFrom(c), c.Text())
}

func userFrom(c tele.Context) flow.User {
	sender := c.Sender()
	if sender == nil {
		return flow.User{}
	}
	return flow.User{ID: sender.ID, Username: sender.Username}
}

func menuMessageID(c tele.Context) int {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return 0
	}
	return cb.Message.ID
}
