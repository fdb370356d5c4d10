package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestGetReturnsZeroStateForUnknownUser(t *testing.T) {
	s := NewStore()

	st := s.Get(42)
	if st.Language != "" {
		t.Errorf("Language = %q, want empty", st.Language)
	}
	if st.Phase != PhaseAwaitingLanguage {
		t.Errorf("Phase = %v, want %v", st.Phase, PhaseAwaitingLanguage)
	}
	if st.PendingAction != "" {
		t.Errorf("PendingAction = %q, want empty", st.PendingAction)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Get, want 0", s.Len())
	}
}

func TestUpdateCreatesAndMutatesState(t *testing.T) {
	s := NewStore()

	got := s.Update(7, func(st *UserState) {
		st.Language = "en"
		st.Phase = PhaseMainMenu
	})
	if got.Language != "en" || got.Phase != PhaseMainMenu {
		t.Fatalf("Update returned %+v", got)
	}

	stored := s.Get(7)
	if stored != got {
		t.Errorf("Get(7) = %+v, want %+v", stored, got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestUpdateReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Update(1, func(st *UserState) { st.Language = "ru" })

	copy1 := s.Get(1)
	copy1.Language = "pl"

	if got := s.Get(1); got.Language != "ru" {
		t.Errorf("stored language changed to %q via returned copy", got.Language)
	}
}

func TestReset(t *testing.T) {
	s := NewStore()
	s.Update(9, func(st *UserState) {
		st.Language = "en"
		st.Phase = PhaseAwaitingCity
		st.PendingAction = "buy"
	})

	s.Reset(9)

	if got := s.Get(9); got != (UserState{}) {
		t.Errorf("state after Reset = %+v, want zero", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", s.Len())
	}
}

func TestConcurrentUpdatesAreIsolatedPerUser(t *testing.T) {
	const users = 128
	const rounds = 50

	s := NewStore()
	var wg sync.WaitGroup
	for u := int64(0); u < users; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			lang := fmt.Sprintf("l%d", userID)
			for i := 0; i < rounds; i++ {
				s.Update(userID, func(st *UserState) {
					st.Language = lang
					st.MenuMessageID++
				})
			}
		}(u)
	}
	wg.Wait()

	if s.Len() != users {
		t.Fatalf("Len() = %d, want %d", s.Len(), users)
	}
	for u := int64(0); u < users; u++ {
		st := s.Get(u)
		if want := fmt.Sprintf("l%d", u); st.Language != want {
			t.Errorf("user %d language = %q, want %q", u, st.Language, want)
		}
		if st.MenuMessageID != rounds {
			t.Errorf("user %d counter = %d, want %d", u, st.MenuMessageID, rounds)
		}
	}
}
