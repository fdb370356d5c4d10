// Package netutil decides which Telegram API call failures are transient.
package netutil

import (
	"errors"
	"net"
	"net/url"
)

// ShouldRetry reports whether err looks like a transient transport failure:
// a timeout anywhere in the chain, or a failed dial. Protocol-level errors
// (4xx responses, malformed replies) are never retried.
func ShouldRetry(err error) bool {
	for err != nil {
		switch e := err.(type) {
		case *url.Error:
			if e.Timeout() {
				return true
			}
			err = e.Err
		case *net.OpError:
			if e.Timeout() || e.Op == "dial" {
				return true
			}
			err = e.Err
		default:
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return true
			}
			err = errors.Unwrap(err)
		}
	}
	return false
}
