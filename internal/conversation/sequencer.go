package conversation

import "sync"

// Sequencer serializes turns per user. Turns of different users never wait
// on each other.
type Sequencer struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu   sync.Mutex
	refs int
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{slots: make(map[string]*slot)}
}

// Acquire blocks until userID has no other turn in flight and returns the
// function that ends the turn.
func (s *Sequencer) Acquire(userID string) (release func()) {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	if !ok {
		sl = &slot{}
		s.slots[userID] = sl
	}
	sl.refs++
	s.mu.Unlock()

	sl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sl.mu.Unlock()

			s.mu.Lock()
			sl.refs--
			if sl.refs == 0 {
				delete(s.slots, userID)
			}
			s.mu.Unlock()
		})
	}
}

// active returns the number of users with a turn in flight or waiting.
func (s *Sequencer) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
