// Package rates holds the mutable buy/sell rate table consulted by the
// conversation flow and mutated by admin commands.
package rates

import (
	"errors"
	"math"
	"strings"
	"sync"
)

// Side selects one of the two independent rate tables.
type Side string

const (
	// SideBuy is the table for users buying USDT.
	SideBuy Side = "buy"
	// SideSell is the table for users selling USDT.
	SideSell Side = "sell"
)

// ErrInvalidRate is returned by Set when the value is not a finite positive
// number.
var ErrInvalidRate = errors.New("rates: rate must be a finite positive number")

type table struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// Registry is a concurrency-safe currency→rate mapping per side. The two
// sides are locked independently; writes to one are never observable on the
// other. Entries are only ever inserted or overwritten, never deleted.
type Registry struct {
	buy  table
	sell table
}

// NewRegistry seeds a registry from the given initial tables. Currency codes
// are normalized to upper-case; nil maps produce empty tables.
func NewRegistry(buy, sell map[string]float64) *Registry {
	r := &Registry{
		buy:  table{rates: make(map[string]float64, len(buy))},
		sell: table{rates: make(map[string]float64, len(sell))},
	}
	for cur, v := range buy {
		r.buy.rates[normalize(cur)] = v
	}
	for cur, v := range sell {
		r.sell.rates[normalize(cur)] = v
	}
	return r
}

func normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func (r *Registry) side(s Side) *table {
	if s == SideSell {
		return &r.sell
	}
	return &r.buy
}

// Snapshot returns a copy of one side's table. Callers never observe later
// mutations through the returned map.
func (r *Registry) Snapshot(s Side) map[string]float64 {
	t := r.side(s)
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.rates))
	for cur, v := range t.rates {
		out[cur] = v
	}
	return out
}

// Get looks up a single currency on one side.
func (r *Registry) Get(s Side, currency string) (float64, bool) {
	t := r.side(s)
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rates[normalize(currency)]
	return v, ok
}

// Set inserts or overwrites a rate, returning the previous value if the
// currency was already present. The value must be a finite positive number,
// otherwise ErrInvalidRate is returned and the table is left untouched.
// Writes to the same currency serialize on the side lock; the last completed
// Set wins.
func (r *Registry) Set(s Side, currency string, rate float64) (prev float64, existed bool, err error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return 0, false, ErrInvalidRate
	}
	cur := normalize(currency)
	if cur == "" {
		return 0, false, ErrInvalidRate
	}
	t := r.side(s)
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed = t.rates[cur]
	t.rates[cur] = rate
	return prev, existed, nil
}
