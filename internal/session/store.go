package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session pairs a viewer State with two locks: actionMu serializes whole
// actions (including their backend fetches), mu guards the state itself and
// is only held for short reads and writes.
type Session struct {
	ID string

	actionMu sync.Mutex
	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

// Serialize runs fn while holding the action lock. Readers are not blocked.
func (s *Session) Serialize(fn func()) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	fn()
}

// Do runs fn with exclusive access to the session state. Never fetch inside fn.
func (s *Session) Do(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Snapshot returns a copy of the state that is safe to read without the lock.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Images = s.state.Images.Clone()
	return st
}

// Store keeps viewer sessions in memory. Nothing is persisted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

func NewStore(idle time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// New starts an empty session with a fresh random id.
func (st *Store) New() *Session {
	s := &Session{
		ID:       "v--" + uuid.New().String(),
		state:    NewState(),
		lastSeen: st.now(),
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastSeen = st.now()
	return s, nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the store's idle timeout.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.idle)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("session sweep removed=%d remaining=%d", removed, len(st.sessions))
	}
	return removed
}
