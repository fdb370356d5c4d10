package texts

// catalog maps language → key → template. Templates use fmt verbs for
// parameters. Keys absent from a language fall back to ru.
var catalog = map[string]map[string]string{
	"ru": {
		"lang.prompt":        "🌐 Выберите язык:",
		"lang.name.en":       "English 🇬🇧",
		"lang.name.ru":       "Русский 🇷🇺",
		"lang.name.pl":       "Polski 🇵🇱",
		"menu.title":         "🚀 Добро пожаловать! Выберите действие:",
		"menu.buy":           "💰 Купить USDT",
		"menu.sell":          "💸 Продать USDT",
		"menu.channel":       "📣 Наш канал",
		"menu.language":      "🌐 Сменить язык",
		"menu.back":          "⬅️ Назад",
		"menu.guidance":      "Сначала выберите действие через /start.",
		"channel.info":       "📣 Наш канал: %s",
		"rates.header":       "💱 Актуальные курсы USDT:",
		"rates.buy":          "🟢 Покупка:",
		"rates.sell":         "🔴 Продажа:",
		"rates.list":         "📈 Курсы:",
		"action.buy":         "🚀 Вы выбрали покупку USDT",
		"action.sell":        "🚀 Вы выбрали продажу USDT",
		"city.prompt":        "🌍 Введите ваш город:",
		"city.empty":         "Название города не может быть пустым. Введите ваш город:",
		"thanks":             "✅ Спасибо! Мы скоро свяжемся с вами.",
		"setrate.usage.buy":  "Используй: /setratebuy PLN 3.25",
		"setrate.usage.sell": "Используй: /setratesell PLN 3.97",
		"setrate.invalid":    "❌ Ошибка формата.",
		"setrate.done.buy":   "✅ Курс покупки %s обновлён: %s",
		"setrate.done.sell":  "✅ Курс продажи %s обновлён: %s",
		"admin.request":      "🔔 Новый запрос\n\n👤 Пользователь: %s\n🎯 Действие: %s\n🌍 Город: %s",
		"admin.action.buy":   "КУПИТЬ 🟢",
		"admin.action.sell":  "ПРОДАТЬ 🔴",
	},
	"en": {
		"lang.prompt":        "🌐 Choose your language:",
		"menu.title":         "🚀 Welcome! Choose an action:",
		"menu.buy":           "💰 Buy USDT",
		"menu.sell":          "💸 Sell USDT",
		"menu.channel":       "📣 Our channel",
		"menu.language":      "🌐 Change language",
		"menu.back":          "⬅️ Back",
		"menu.guidance":      "Please pick an action via /start first.",
		"channel.info":       "📣 Our channel: %s",
		"rates.header":       "💱 Current USDT rates:",
		"rates.buy":          "🟢 Buy:",
		"rates.sell":         "🔴 Sell:",
		"rates.list":         "📈 Rates:",
		"action.buy":         "🚀 You chose to buy USDT",
		"action.sell":        "🚀 You chose to sell USDT",
		"city.prompt":        "🌍 Enter your city:",
		"city.empty":         "City name cannot be empty. Enter your city:",
		"thanks":             "✅ Thank you! We will contact you shortly.",
		"setrate.usage.buy":  "Usage: /setratebuy PLN 3.25",
		"setrate.usage.sell": "Usage: /setratesell PLN 3.97",
		"setrate.invalid":    "❌ Invalid format.",
		"setrate.done.buy":   "✅ Buy rate for %s updated: %s",
		"setrate.done.sell":  "✅ Sell rate for %s updated: %s",
	},
	"pl": {
		"lang.prompt":        "🌐 Wybierz język:",
		"menu.title":         "🚀 Witamy! Wybierz działanie:",
		"menu.buy":           "💰 Kup USDT",
		"menu.sell":          "💸 Sprzedaj USDT",
		"menu.channel":       "📣 Nasz kanał",
		"menu.language":      "🌐 Zmień język",
		"menu.back":          "⬅️ Wstecz",
		"menu.guidance":      "Najpierw wybierz działanie przez /start.",
		"channel.info":       "📣 Nasz kanał: %s",
		"rates.header":       "💱 Aktualne kursy USDT:",
		"rates.buy":          "🟢 Kupno:",
		"rates.sell":         "🔴 Sprzedaż:",
		"rates.list":         "📈 Kursy:",
		"action.buy":         "🚀 Wybrano kupno USDT",
		"action.sell":        "🚀 Wybrano sprzedaż USDT",
		"city.prompt":        "🌍 Podaj swoje miasto:",
		"city.empty":         "Nazwa miasta nie może być pusta. Podaj swoje miasto:",
		"thanks":             "✅ Dziękujemy! Wkrótce się z Tobą skontaktujemy.",
		"setrate.usage.buy":  "Użycie: /setratebuy PLN 3.25",
		"setrate.usage.sell": "Użycie: /setratesell PLN 3.97",
		"setrate.invalid":    "❌ Błędny format.",
		"setrate.done.buy":   "✅ Kurs kupna %s zaktualizowany: %s",
		"setrate.done.sell":  "✅ Kurs sprzedaży %s zaktualizowany: %s",
	},
}
