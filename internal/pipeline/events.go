package pipeline

import "time"

// EventType names a session event.
type EventType string

const (
	EventPrediction      EventType = "prediction"
	EventEmission        EventType = "emission"
	EventSentenceCleared EventType = "sentence_cleared"
	EventHistoryCleared  EventType = "history_cleared"
)

// Event is published to subscribers for every classifier result, emission
// and clear action.
type Event struct {
	Type       EventType `json:"type"`
	Label      string    `json:"label,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Sentence   string    `json:"sentence"`
	At         time.Time `json:"at"`
}

const subscriberBuffer = 32

// Subscribe returns a channel of session events and a function that
// unsubscribes. Slow subscribers miss events rather than blocking the
// session. The channel is closed on unsubscribe or when the session closes.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.subMu.Lock()
	if s.subsClosed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
		s.subMu.Unlock()
	}
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
