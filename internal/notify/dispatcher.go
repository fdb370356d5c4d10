// Package notify fans completed intake requests out to the configured admin
// recipients. Delivery is best-effort and per-recipient: one failure never
// aborts the remaining sends.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/p2pdesk/exbot/core/logger"
)

// ErrNoAdmins signals an empty recipient list. It is a configuration warning
// for the caller, not a hard failure: the user-facing flow must still
// complete.
var ErrNoAdmins = errors.New("notify: no admin recipients configured")

// RecipientSender delivers a rendered message to an arbitrary recipient.
type RecipientSender interface {
	SendTo(ctx context.Context, recipientID int64, text string) error
}

// Result is the delivery outcome for a single recipient.
type Result struct {
	RecipientID int64
	Err         error
}

// Dispatcher sends one message to every admin independently.
type Dispatcher struct {
	sender RecipientSender
}

// NewDispatcher wires a dispatcher over the given sender.
func NewDispatcher(sender RecipientSender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Notify attempts delivery to each recipient in order and records the outcome
// per recipient. Failures are logged with the recipient id and aggregated
// into the returned error; an empty recipient list yields ErrNoAdmins.
func (d *Dispatcher) Notify(ctx context.Context, recipients []int64, text string) ([]Result, error) {
	if len(recipients) == 0 {
		logger.Notify.Warn("no recipients configured, request not forwarded",
			slog.String("event", "notify.skip"),
		)
		return nil, ErrNoAdmins
	}

	results := make([]Result, 0, len(recipients))
	var merr *multierror.Error
	delivered := 0
	for _, id := range recipients {
		err := d.sender.SendTo(ctx, id, text)
		results = append(results, Result{RecipientID: id, Err: err})
		if err != nil {
			logger.Notify.Error("admin delivery failed",
				slog.String("event", "notify.fail"),
				slog.Int64("admin_id", id),
				slog.String("err", err.Error()),
			)
			merr = multierror.Append(merr, fmt.Errorf("recipient %d: %w", id, err))
			continue
		}
		delivered++
	}

	logger.Notify.Debug("request forwarded",
		slog.String("event", "notify.done"),
		slog.Int("recipients", len(recipients)),
		slog.Int("delivered", delivered),
	)
	return results, merr.ErrorOrNil()
}
