// Package bot adapts the transport-agnostic conversation engine to telebot:
// it renders abstract keyboards, translates inbound updates into engine
// events, and implements the engine's outbound sender.
package bot

import (
	"context"
	"errors"
	"strconv"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/p2pdesk/exbot/core/logger"
	"github.com/p2pdesk/exbot/core/telegram/keyboard"
	tgsender "github.com/p2pdesk/exbot/core/telegram/sender"
	"github.com/p2pdesk/exbot/internal/flow"
)

// Sender implements flow.Sender over a telebot instance. Plain sends go
// through the async dispatcher; edits, deletions, and admin deliveries run
// synchronously because their callers act on the result.
type Sender struct {
	bot  *tele.Bot
	disp *tgsender.Dispatcher
}

// NewSender wires a sender over the bot and the outbound dispatcher.
func NewSender(b *tele.Bot, disp *tgsender.Dispatcher) *Sender {
	return &Sender{bot: b, disp: disp}
}

var _ flow.Sender = (*Sender)(nil)

// Send delivers a message to the user, asynchronously when the dispatcher
// queue has room.
func (s *Sender) Send(ctx context.Context, userID int64, text string, kb flow.Keyboard) error {
	run := func() error {
		_, err := s.bot.Send(&tele.User{ID: userID}, text, sendOptions(kb)...)
		return err
	}
	if s.disp == nil {
		return run()
	}
	if err := s.disp.Enqueue(ctx, "send.text", run); err != nil {
		if errors.Is(err, tgsender.ErrQueueFull) || errors.Is(err, tgsender.ErrQueueClosed) {
			logger.TG.Warn("dispatcher unavailable, sending inline",
				slog.String("event", "queue.fallback"),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// Edit replaces the text and keyboard of a previously rendered message.
func (s *Sender) Edit(ctx context.Context, userID int64, messageID int, text string, kb flow.Keyboard) error {
	_, err := s.bot.Edit(storedMessage(userID, messageID), text, sendOptions(kb)...)
	return err
}

// Delete retracts a previously rendered message. Callers treat failures as
// best-effort.
func (s *Sender) Delete(ctx context.Context, userID int64, messageID int) error {
	return s.bot.Delete(storedMessage(userID, messageID))
}

// SendTo delivers a message to an arbitrary recipient, synchronously so the
// notification dispatcher can record the per-recipient outcome.
func (s *Sender) SendTo(ctx context.Context, recipientID int64, text string) error {
	_, err := s.bot.Send(&tele.User{ID: recipientID}, text)
	return err
}

func storedMessage(chatID int64, messageID int) *tele.StoredMessage {
	return &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
}

func sendOptions(kb flow.Keyboard) []interface{} {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Text, Unique: b.Action, Data: b.Payload})
		}
		rows = append(rows, btns)
	}
	return []interface{}{keyboard.InlineButtonsRows(rows...)}
}
