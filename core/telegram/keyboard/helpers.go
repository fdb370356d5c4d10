// Package keyboard builds inline keyboards from plain button descriptions.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one inline button: visible text, the callback unique it
// routes to, and an optional payload.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// InlineButtonsRows renders rows of buttons into telebot markup.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		rendered := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			rendered = append(rendered, *markup.Data(btn.Text, btn.Unique, btn.Data).Inline())
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, rendered)
	}
	return markup
}

// InlineButtons renders the buttons one per row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}
