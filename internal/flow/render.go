package flow

import (
	"sort"
	"strconv"
	"strings"

	"github.com/p2pdesk/exbot/internal/rates"
	"github.com/p2pdesk/exbot/internal/texts"
)

// Rendering helpers. The registry makes no ordering promise, so currencies
// are sorted here for stable display.

func languageKeyboard() Keyboard {
	kb := make(Keyboard, 0, len(texts.Supported()))
	for _, code := range texts.Supported() {
		kb = append(kb, []Button{{
			Text:    texts.Resolve("", "lang.name."+code),
			Action:  ActionLanguage,
			Payload: code,
		}})
	}
	return kb
}

func menuKeyboard(lang string) Keyboard {
	return Keyboard{
		{{Text: texts.Resolve(lang, "menu.buy"), Action: ActionBuy}},
		{{Text: texts.Resolve(lang, "menu.sell"), Action: ActionSell}},
		{
			{Text: texts.Resolve(lang, "menu.channel"), Action: ActionChannel},
			{Text: texts.Resolve(lang, "menu.language"), Action: ActionSwitchLang},
		},
	}
}

func (e *Engine) renderActionIntro(lang string, side rates.Side) string {
	key := "action.buy"
	if side == rates.SideSell {
		key = "action.sell"
	}
	var b strings.Builder
	b.WriteString(texts.Resolve(lang, key))
	b.WriteString("\n\n")
	b.WriteString(texts.Resolve(lang, "rates.list"))
	b.WriteString("\n")
	b.WriteString(renderSide(e.rates.Snapshot(side), side))
	b.WriteString("\n\n")
	b.WriteString(texts.Resolve(lang, "city.prompt"))
	return b.String()
}

func (e *Engine) renderRates(lang string) string {
	var b strings.Builder
	b.WriteString(texts.Resolve(lang, "rates.header"))
	b.WriteString("\n\n")
	b.WriteString(texts.Resolve(lang, "rates.buy"))
	b.WriteString("\n")
	b.WriteString(renderSide(e.rates.Snapshot(rates.SideBuy), rates.SideBuy))
	b.WriteString("\n\n")
	b.WriteString(texts.Resolve(lang, "rates.sell"))
	b.WriteString("\n")
	b.WriteString(renderSide(e.rates.Snapshot(rates.SideSell), rates.SideSell))
	return b.String()
}

// renderSide formats one table: buy lines read "1 USDT = rate CUR", sell
// lines read "rate CUR = 1 USDT".
func renderSide(snapshot map[string]float64, side rates.Side) string {
	currencies := make([]string, 0, len(snapshot))
	for cur := range snapshot {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	lines := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		v := formatRate(snapshot[cur])
		if side == rates.SideSell {
			lines = append(lines, v+" "+cur+" = 1 USDT")
		} else {
			lines = append(lines, "1 USDT = "+v+" "+cur)
		}
	}
	return strings.Join(lines, "\n")
}

func renderAdminRequest(u User, action, city string) string {
	identity := "id: " + strconv.FormatInt(u.ID, 10)
	if u.Username != "" {
		identity = "@" + u.Username
	}
	markerKey := "admin.action.buy"
	if action == ActionSell {
		markerKey = "admin.action.sell"
	}
	marker := texts.Resolve(texts.DefaultLanguage, markerKey)
	return texts.Resolve(texts.DefaultLanguage, "admin.request", identity, marker, city)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
