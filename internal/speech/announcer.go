package speech

import (
	"context"
	"errors"
	"log"
	"sync"
)

type utterance struct {
	text  string
	voice Voice
}

// Announcer speaks utterances one at a time on a background worker. A new
// utterance cancels the one being spoken and replaces any that is waiting,
// so only the latest request is heard.
type Announcer struct {
	speaker Speaker

	mu      sync.Mutex
	pending *utterance
	cancel  context.CancelFunc
	closed  bool

	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
}

// NewAnnouncer starts an announcer over speaker.
func NewAnnouncer(speaker Speaker) *Announcer {
	if speaker == nil {
		speaker = Nop{}
	}
	a := &Announcer{
		speaker: speaker,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Say queues text, interrupting whatever is currently being spoken.
// Empty text is ignored.
func (a *Announcer) Say(text string, voice Voice) {
	if text == "" {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.pending = &utterance{text: text, voice: voice}
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Stop silences the current utterance and drops any waiting one.
func (a *Announcer) Stop() {
	a.mu.Lock()
	a.pending = nil
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()
}

// Close stops the worker and waits for it to exit.
func (a *Announcer) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	a.pending = nil
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	close(a.stopCh)
	<-a.done
}

func (a *Announcer) loop() {
	defer close(a.done)

	for {
		select {
		case <-a.stopCh:
			return
		case <-a.wake:
		}

		a.mu.Lock()
		u := a.pending
		a.pending = nil
		if u == nil || a.closed {
			a.mu.Unlock()
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		a.mu.Unlock()

		err := a.speaker.Speak(ctx, u.text, u.voice)

		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
		cancel()

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Speech failed: %v", err)
		}
	}
}
