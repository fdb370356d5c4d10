package flow

import "context"

// User identifies the sender of an inbound event.
type User struct {
	ID       int64
	Username string
}

// Button is an abstract selectable control. Action is the callback key the
// transport routes back to the engine; Payload carries optional data such as
// a language code.
type Button struct {
	Text    string
	Action  string
	Payload string
}

// Keyboard is rendered by the transport as rows of buttons.
type Keyboard [][]Button

// Sender is the outbound capability the engine needs from its transport.
// Message identifiers are opaque ints scoped to the user's chat. Send may be
// delivered asynchronously; Edit, Delete and SendTo report their outcome so
// the engine can degrade gracefully.
type Sender interface {
	Send(ctx context.Context, userID int64, text string, kb Keyboard) error
	Edit(ctx context.Context, userID int64, messageID int, text string, kb Keyboard) error
	Delete(ctx context.Context, userID int64, messageID int) error
	SendTo(ctx context.Context, recipientID int64, text string) error
}

// Journal records completed intake requests for auditing. Implementations
// must treat failures as their own concern: the engine logs and moves on.
type Journal interface {
	Record(ctx context.Context, userID int64, username, action, city string) error
}
