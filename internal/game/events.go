package game

// eventBuffer is the per-subscriber channel capacity. Slow subscribers miss
// events rather than stall the session; each event carries a full snapshot.
const eventBuffer = 32

// Subscribe returns a channel of session events and a func to stop receiving.
// The channel is closed on unsubscribe or when the session closes.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, eventBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.touchLocked()
	s.nextSub++
	key := s.nextSub
	s.subs[key] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[key]; ok {
			close(c)
			delete(s.subs, key)
			s.touchLocked()
		}
	}
}

// Watched reports whether anyone is subscribed to the session's events.
func (s *Session) Watched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

// emitLocked fans an event out to subscribers without blocking.
func (s *Session) emitLocked(ev Event) {
	if len(s.subs) == 0 {
		return
	}
	ev.Snapshot = s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
