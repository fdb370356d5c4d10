package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/p2pdesk/exbot/internal/notify"
	"github.com/p2pdesk/exbot/internal/rates"
	"github.com/p2pdesk/exbot/internal/session"
)

type sentMessage struct {
	UserID int64
	Text   string
	Kb     Keyboard
}

type fakeSender struct {
	sent    []sentMessage
	edits   []sentMessage
	deleted []int

	failEdit   bool
	failDelete bool
	failSend   bool
}

func (f *fakeSender) Send(ctx context.Context, userID int64, text string, kb Keyboard) error {
	if f.failSend {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, sentMessage{UserID: userID, Text: text, Kb: kb})
	return nil
}

func (f *fakeSender) Edit(ctx context.Context, userID int64, messageID int, text string, kb Keyboard) error {
	if f.failEdit {
		return errors.New("message is not modified")
	}
	f.edits = append(f.edits, sentMessage{UserID: userID, Text: text, Kb: kb})
	return nil
}

func (f *fakeSender) Delete(ctx context.Context, userID int64, messageID int) error {
	if f.failDelete {
		return errors.New("message to delete not found")
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSender) SendTo(ctx context.Context, recipientID int64, text string) error {
	f.sent = append(f.sent, sentMessage{UserID: recipientID, Text: text})
	return nil
}

func (f *fakeSender) lastTo(userID int64) (sentMessage, bool) {
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].UserID == userID {
			return f.sent[i], true
		}
	}
	return sentMessage{}, false
}

type journalEntry struct {
	UserID   int64
	Username string
	Action   string
	City     string
}

type fakeJournal struct {
	entries []journalEntry
	err     error
}

func (f *fakeJournal) Record(ctx context.Context, userID int64, username, action, city string) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, journalEntry{userID, username, action, city})
	return nil
}

type fixture struct {
	engine  *Engine
	sender  *fakeSender
	states  *session.Store
	rates   *rates.Registry
	journal *fakeJournal
}

func newFixture(admins ...int64) *fixture {
	fs := &fakeSender{}
	fj := &fakeJournal{}
	states := session.NewStore()
	reg := rates.NewRegistry(
		map[string]float64{"PLN": 3.14, "USD": 0.84},
		map[string]float64{"PLN": 3.97, "USD": 1.06},
	)
	engine := NewEngine(Config{
		Admins:     admins,
		ChannelURL: "https://t.me/example",
	}, Deps{
		States:   states,
		Rates:    reg,
		Notifier: notify.NewDispatcher(fs),
		Sender:   fs,
		Journal:  fj,
	})
	return &fixture{engine: engine, sender: fs, states: states, rates: reg, journal: fj}
}

func TestStartPromptsForLanguage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1, Username: "alice"}

	if err := f.engine.Start(ctx, u); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msg, ok := f.sender.lastTo(1)
	if !ok {
		t.Fatal("no message sent")
	}
	if !strings.Contains(msg.Text, "Выберите язык") {
		t.Errorf("text = %q, want language prompt", msg.Text)
	}
	if len(msg.Kb) != 3 {
		t.Fatalf("keyboard rows = %d, want one per language", len(msg.Kb))
	}
	for i, row := range msg.Kb {
		if len(row) != 1 || row[0].Action != ActionLanguage {
			t.Errorf("row %d = %v, want a single language button", i, row)
		}
	}
	if st := f.states.Get(1); st.Phase != session.PhaseAwaitingLanguage {
		t.Errorf("phase = %v, want AwaitingLanguage", st.Phase)
	}
}

func TestStartKeepsChosenLanguage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	if err := f.engine.Start(ctx, u); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msg, _ := f.sender.lastTo(1)
	if !strings.Contains(msg.Text, "Welcome") {
		t.Errorf("text = %q, want english menu", msg.Text)
	}
	st := f.states.Get(1)
	if st.Language != "en" || st.Phase != session.PhaseMainMenu {
		t.Errorf("state = %+v", st)
	}
}

func TestStartClearsPendingAction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	_ = f.engine.ChooseAction(ctx, u, ActionBuy, 10)
	if st := f.states.Get(1); st.PendingAction != ActionBuy {
		t.Fatalf("precondition: pending = %q", st.PendingAction)
	}

	_ = f.engine.Start(ctx, u)

	st := f.states.Get(1)
	if st.PendingAction != "" || st.Phase != session.PhaseMainMenu {
		t.Errorf("state after restart = %+v", st)
	}
}

func TestSelectLanguageUnknownCodeRestarts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	if err := f.engine.SelectLanguage(ctx, u, "xx", 0); err != nil {
		t.Fatalf("SelectLanguage: %v", err)
	}

	st := f.states.Get(1)
	if st.Language != "" || st.Phase != session.PhaseAwaitingLanguage {
		t.Errorf("state = %+v, want untouched language", st)
	}
	msg, _ := f.sender.lastTo(1)
	if !strings.Contains(msg.Text, "Выберите язык") {
		t.Errorf("text = %q, want language prompt", msg.Text)
	}
}

func TestChooseActionStoresPendingAndShowsRates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	if err := f.engine.ChooseAction(ctx, u, ActionBuy, 55); err != nil {
		t.Fatalf("ChooseAction: %v", err)
	}

	st := f.states.Get(1)
	if st.Phase != session.PhaseAwaitingCity || st.PendingAction != ActionBuy || st.MenuMessageID != 55 {
		t.Errorf("state = %+v", st)
	}

	if len(f.sender.edits) == 0 {
		t.Fatal("expected the menu message to be edited in place")
	}
	text := f.sender.edits[len(f.sender.edits)-1].Text
	for _, part := range []string{"buy USDT", "PLN", "3.14", "Enter your city"} {
		if !strings.Contains(text, part) {
			t.Errorf("intro = %q, missing %q", text, part)
		}
	}
	if strings.Contains(text, "3.97") {
		t.Errorf("intro = %q, leaked sell-side rate", text)
	}
}

func TestChooseActionWithoutLanguagePrompts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	if err := f.engine.ChooseAction(ctx, u, ActionSell, 7); err != nil {
		t.Fatalf("ChooseAction: %v", err)
	}

	st := f.states.Get(1)
	if st.PendingAction != "" || st.Phase != session.PhaseAwaitingLanguage {
		t.Errorf("state = %+v, want no pending action", st)
	}
}

func TestCompleteBuyRequest(t *testing.T) {
	f := newFixture(100, 200)
	ctx := context.Background()
	u := User{ID: 1, Username: "alice"}

	_ = f.engine.Start(ctx, u)
	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	_ = f.engine.ChooseAction(ctx, u, ActionBuy, 42)
	if err := f.engine.SubmitText(ctx, u, "Warsaw"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	msg, _ := f.sender.lastTo(1)
	if !strings.Contains(msg.Text, "Thank you") {
		t.Errorf("user got %q, want thank-you", msg.Text)
	}

	if len(f.sender.deleted) != 1 || f.sender.deleted[0] != 42 {
		t.Errorf("deleted = %v, want [42]", f.sender.deleted)
	}

	for _, admin := range []int64{100, 200} {
		note, ok := f.sender.lastTo(admin)
		if !ok {
			t.Fatalf("admin %d got no notification", admin)
		}
		for _, part := range []string{"@alice", "КУПИТЬ 🟢", "Warsaw", "Новый запрос"} {
			if !strings.Contains(note.Text, part) {
				t.Errorf("notification = %q, missing %q", note.Text, part)
			}
		}
	}

	st := f.states.Get(1)
	if st.Phase != session.PhaseMainMenu || st.PendingAction != "" || st.MenuMessageID != 0 {
		t.Errorf("state after completion = %+v", st)
	}
	if st.Language != "en" {
		t.Errorf("language = %q, must survive completion", st.Language)
	}

	if len(f.journal.entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(f.journal.entries))
	}
	if e := f.journal.entries[0]; e.UserID != 1 || e.Action != ActionBuy || e.City != "Warsaw" {
		t.Errorf("journal entry = %+v", e)
	}
}

func TestCompleteSellRequestWithoutUsername(t *testing.T) {
	f := newFixture(100)
	ctx := context.Background()
	u := User{ID: 777}

	_ = f.engine.SelectLanguage(ctx, u, "ru", 0)
	_ = f.engine.ChooseAction(ctx, u, ActionSell, 5)
	if err := f.engine.SubmitText(ctx, u, "  Kraków  "); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	note, _ := f.sender.lastTo(100)
	for _, part := range []string{"id: 777", "ПРОДАТЬ 🔴", "Kraków"} {
		if !strings.Contains(note.Text, part) {
			t.Errorf("notification = %q, missing %q", note.Text, part)
		}
	}
}

func TestSubmitTextEmptyCityReprompts(t *testing.T) {
	f := newFixture(100)
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	_ = f.engine.ChooseAction(ctx, u, ActionBuy, 9)
	if err := f.engine.SubmitText(ctx, u, "   "); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	msg, _ := f.sender.lastTo(1)
	if !strings.Contains(msg.Text, "cannot be empty") {
		t.Errorf("text = %q, want re-prompt", msg.Text)
	}
	st := f.states.Get(1)
	if st.Phase != session.PhaseAwaitingCity || st.PendingAction != ActionBuy {
		t.Errorf("state = %+v, pending action must survive", st)
	}
	if _, ok := f.sender.lastTo(100); ok {
		t.Error("admin notified despite empty city")
	}
}

func TestSubmitTextWithoutPendingActionRedirects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// No language yet: free text lands on the language prompt.
	u := User{ID: 1}
	_ = f.engine.SubmitText(ctx, u, "hello")
	msg, _ := f.sender.lastTo(1)
	if !strings.Contains(msg.Text, "Выберите язык") {
		t.Errorf("text = %q, want language prompt", msg.Text)
	}

	// Language chosen but no action: steer to the menu.
	u2 := User{ID: 2}
	_ = f.engine.SelectLanguage(ctx, u2, "en", 0)
	_ = f.engine.SubmitText(ctx, u2, "hello")
	msg, _ = f.sender.lastTo(2)
	if !strings.Contains(msg.Text, "pick an action") {
		t.Errorf("text = %q, want menu guidance", msg.Text)
	}
}

func TestSubmitTextDeleteFailureTolerated(t *testing.T) {
	f := newFixture(100)
	f.sender.failDelete = true
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	_ = f.engine.ChooseAction(ctx, u, ActionBuy, 33)
	if err := f.engine.SubmitText(ctx, u, "Warsaw"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	if _, ok := f.sender.lastTo(100); !ok {
		t.Error("admin not notified after delete failure")
	}
	if st := f.states.Get(1); st.Phase != session.PhaseMainMenu {
		t.Errorf("phase = %v, want MainMenu", st.Phase)
	}
}

func TestSubmitTextJournalFailureTolerated(t *testing.T) {
	f := newFixture(100)
	f.journal.err = errors.New("connection refused")
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	_ = f.engine.ChooseAction(ctx, u, ActionBuy, 0)
	if err := f.engine.SubmitText(ctx, u, "Warsaw"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if _, ok := f.sender.lastTo(100); !ok {
		t.Error("admin not notified after journal failure")
	}
}

func TestSubmitTextNoAdminsConfigured(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	_ = f.engine.ChooseAction(ctx, u, ActionBuy, 0)
	if err := f.engine.SubmitText(ctx, u, "Warsaw"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	msg, _ := f.sender.lastTo(1)
	if !strings.Contains(msg.Text, "Thank you") {
		t.Errorf("user got %q, flow must complete without admins", msg.Text)
	}
}

func TestShowChannel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	if err := f.engine.ShowChannel(ctx, u, 0); err != nil {
		t.Fatalf("ShowChannel: %v", err)
	}

	msg, _ := f.sender.lastTo(1)
	if !strings.Contains(msg.Text, "https://t.me/example") {
		t.Errorf("text = %q, want channel link", msg.Text)
	}
	if len(msg.Kb) != 1 || len(msg.Kb[0]) != 1 || msg.Kb[0][0].Action != ActionBackToStart {
		t.Errorf("keyboard = %v, want a single back button", msg.Kb)
	}
}

func TestSwitchLanguageKeepsCurrentUntilNewChoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "pl", 0)
	if err := f.engine.SwitchLanguage(ctx, u, 0); err != nil {
		t.Fatalf("SwitchLanguage: %v", err)
	}

	st := f.states.Get(1)
	if st.Language != "pl" {
		t.Errorf("language = %q, previous choice must stay until replaced", st.Language)
	}
	if st.Phase != session.PhaseAwaitingLanguage {
		t.Errorf("phase = %v, want AwaitingLanguage", st.Phase)
	}
}

func TestShowRatesRendersBothSides(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 0)
	if err := f.engine.ShowRates(ctx, u); err != nil {
		t.Fatalf("ShowRates: %v", err)
	}

	msg, _ := f.sender.lastTo(1)
	for _, part := range []string{"3.14", "3.97", "0.84", "1.06", "Buy", "Sell"} {
		if !strings.Contains(msg.Text, part) {
			t.Errorf("rates = %q, missing %q", msg.Text, part)
		}
	}
}

func TestSetRateNonAdminSilentlyDropped(t *testing.T) {
	f := newFixture(100)
	ctx := context.Background()
	u := User{ID: 1}

	if err := f.engine.SetRate(ctx, u, rates.SideBuy, []string{"PLN", "9.99"}); err != nil {
		t.Fatalf("SetRate: %v", err)
	}

	if len(f.sender.sent) != 0 {
		t.Errorf("sent = %v, non-admin must get no response", f.sender.sent)
	}
	if v, _ := f.rates.Get(rates.SideBuy, "PLN"); v != 3.14 {
		t.Errorf("buy PLN = %v, non-admin must not mutate rates", v)
	}
}

func TestSetRateAdmin(t *testing.T) {
	f := newFixture(100)
	ctx := context.Background()
	admin := User{ID: 100}

	cases := []struct {
		name     string
		side     rates.Side
		args     []string
		wantText string
		wantRate float64
	}{
		{"valid buy", rates.SideBuy, []string{"pln", "3.25"}, "PLN", 3.25},
		{"valid sell", rates.SideSell, []string{"EUR", "0.93"}, "EUR", 0},
		{"missing args", rates.SideBuy, []string{"PLN"}, "/setratebuy PLN 3.25", 0},
		{"bad number", rates.SideBuy, []string{"PLN", "abc"}, "Ошибка формата", 0},
		{"non-positive", rates.SideBuy, []string{"PLN", "-2"}, "Ошибка формата", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := f.engine.SetRate(ctx, admin, tc.side, tc.args); err != nil {
				t.Fatalf("SetRate: %v", err)
			}
			msg, ok := f.sender.lastTo(100)
			if !ok {
				t.Fatal("admin got no response")
			}
			if !strings.Contains(msg.Text, tc.wantText) {
				t.Errorf("response = %q, missing %q", msg.Text, tc.wantText)
			}
			if tc.wantRate != 0 {
				if v, _ := f.rates.Get(tc.side, tc.args[0]); v != tc.wantRate {
					t.Errorf("rate = %v, want %v", v, tc.wantRate)
				}
			}
		})
	}

	if v, _ := f.rates.Get(rates.SideBuy, "PLN"); v != 3.25 {
		t.Errorf("buy PLN = %v after valid update, want 3.25", v)
	}
	if v, ok := f.rates.Get(rates.SideSell, "EUR"); !ok || v != 0.93 {
		t.Errorf("sell EUR = %v, %v, want new currency added", v, ok)
	}
}

func TestEditFallsBackToSend(t *testing.T) {
	f := newFixture()
	f.sender.failEdit = true
	ctx := context.Background()
	u := User{ID: 1}

	_ = f.engine.SelectLanguage(ctx, u, "en", 3)

	if len(f.sender.edits) != 0 {
		t.Errorf("edits = %v, failing edit must not record", f.sender.edits)
	}
	msg, ok := f.sender.lastTo(1)
	if !ok || !strings.Contains(msg.Text, "Welcome") {
		t.Errorf("fallback send = %v, %v", msg, ok)
	}
}
