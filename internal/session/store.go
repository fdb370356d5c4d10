// Package session keeps per-user conversation state for the intake flow.
// It is the only mutable shared structure besides the rate registry, so all
// access goes through a sharded store that serializes mutations per user.
package session

import "sync"

// Phase identifies the user's position in the conversation flow.
type Phase int

const (
	// PhaseAwaitingLanguage is the initial phase for every new user.
	PhaseAwaitingLanguage Phase = iota
	// PhaseMainMenu means the user picked a language and sees the action menu.
	PhaseMainMenu
	// PhaseAwaitingCity means an action is pending and the next text message
	// is treated as the user's city.
	PhaseAwaitingCity
)

// String returns a log-friendly phase name.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingLanguage:
		return "awaiting_language"
	case PhaseMainMenu:
		return "main_menu"
	case PhaseAwaitingCity:
		return "awaiting_city"
	}
	return "unknown"
}

// UserState is the conversation state of a single user.
//
// PendingAction is non-empty if and only if Phase is PhaseAwaitingCity.
// MenuMessageID points at the last bot-rendered menu message so it can be
// retracted once the user supplies the city.
type UserState struct {
	Language      string
	Phase         Phase
	PendingAction string
	MenuMessageID int
}

const shardCount = 16

type shard struct {
	mu    sync.RWMutex
	users map[int64]*UserState
}

// Store maps user IDs to conversation state. Keys are spread over a fixed
// number of shards so updates for different users do not contend on a single
// lock, while updates for the same user are applied atomically in order.
type Store struct {
	shards [shardCount]*shard
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{users: make(map[int64]*UserState)}
	}
	return s
}

func (s *Store) shardFor(userID int64) *shard {
	return s.shards[uint64(userID)%shardCount]
}

// Get returns a copy of the user's state. Unknown users observe the default
// state (PhaseAwaitingLanguage, nothing else set); the entry itself is
// materialized lazily by Update so reads stay cheap.
func (s *Store) Get(userID int64) UserState {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if st, ok := sh.users[userID]; ok {
		return *st
	}
	return UserState{}
}

// Update applies fn to the user's state under the shard lock, creating the
// default state first if the user is new. The resulting state is returned as
// a copy. Concurrent Update calls for the same user never interleave.
func (s *Store) Update(userID int64, fn func(*UserState)) UserState {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.users[userID]
	if !ok {
		st = &UserState{}
		sh.users[userID] = st
	}
	fn(st)
	return *st
}

// Reset drops the user's state entirely, returning them to the default.
func (s *Store) Reset(userID int64) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.users, userID)
}

// Len reports the number of tracked users across all shards.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.users)
		sh.mu.RUnlock()
	}
	return n
}
