package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminIDs []int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only allow-listed users can invoke
// downstream handlers. Without an OnReject handler rejected updates are
// dropped silently, leaking nothing to the caller.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	allowed := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		allowed[id] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if len(allowed) > 0 {
				sender := c.Sender()
				if sender == nil {
					return nil
				}
				if _, ok := allowed[sender.ID]; !ok {
					if opts.OnReject != nil {
						return opts.OnReject(c)
					}
					return nil
				}
			}
			return next(c)
		}
	}
}
