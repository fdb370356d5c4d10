// Package texts resolves user-facing message templates per language.
// Lookup falls back from the requested language to the default language and
// finally to a visible placeholder, so a missing translation never breaks a
// conversation.
package texts

import "fmt"

// DefaultLanguage is the fallback language of the catalog. The service
// started as a Russian-speaking bot, so ru is the most complete catalog.
const DefaultLanguage = "ru"

var supported = []string{"en", "ru", "pl"}

// Supported returns the language codes the catalog carries, in display order.
func Supported() []string {
	return append([]string(nil), supported...)
}

// IsSupported reports whether code is a known language.
func IsSupported(code string) bool {
	for _, l := range supported {
		if l == code {
			return true
		}
	}
	return false
}

// Resolve looks up the template for key in the given language and formats it
// with args. Empty or unknown languages resolve against the default language;
// a key missing everywhere renders as a ⟦key⟧ placeholder.
func Resolve(lang, key string, args ...any) string {
	tpl, ok := catalog[lang][key]
	if !ok {
		tpl, ok = catalog[DefaultLanguage][key]
	}
	if !ok {
		return "⟦" + key + "⟧"
	}
	if len(args) == 0 {
		return tpl
	}
	return fmt.Sprintf(tpl, args...)
}
