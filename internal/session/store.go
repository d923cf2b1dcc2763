package session

import (
	"sync"
)

// Transition computes the next state from the current one
type Transition func(State) (State, error)

// Store holds the current state behind a mutex
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates a store starting from initial
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Snapshot returns the current state. State values are never mutated in
// place, so the snapshot stays consistent after later transitions.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply runs fn against the current state and stores its result.
// On error the state is left unchanged.
func (s *Store) Apply(fn Transition) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.state)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// Update applies a transition that cannot fail
func (s *Store) Update(fn func(State) State) State {
	next, _ := s.Apply(func(st State) (State, error) {
		return fn(st), nil
	})
	return next
}
