package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrMailboxClosed is returned by Take after Close.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is a single-slot hand-off between a frame producer and the
// session consumer. Putting a frame replaces any frame not yet taken, so
// the consumer always sees the latest one.
type Mailbox struct {
	mu      sync.Mutex
	frame   *Frame
	dropped uint64
	closed  bool
	ready   chan struct{}
	done    chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Put stores f, replacing an untaken frame. It reports whether a frame was
// replaced. Put on a closed mailbox does nothing.
func (m *Mailbox) Put(f Frame) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	replaced := m.frame != nil
	if replaced {
		m.dropped++
	}
	m.frame = &f
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return replaced
}

// Take waits for a frame. It returns ctx.Err() when ctx is done and
// ErrMailboxClosed once the mailbox is closed and empty.
func (m *Mailbox) Take(ctx context.Context) (Frame, error) {
	for {
		m.mu.Lock()
		if m.frame != nil {
			f := *m.frame
			m.frame = nil
			m.mu.Unlock()
			return f, nil
		}
		if m.closed {
			m.mu.Unlock()
			return Frame{}, ErrMailboxClosed
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-m.ready:
		case <-m.done:
		}
	}
}

// Dropped returns how many frames were replaced before being taken.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Close wakes any waiting Take. Subsequent Puts are ignored.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

// FrameHandler consumes frames.
type FrameHandler interface {
	OnFrame(ctx context.Context, f Frame) Outcome
}

// Run feeds frames from mb to h until ctx is done or mb is closed. It is
// the single consumer of mb.
func Run(ctx context.Context, mb *Mailbox, h FrameHandler) error {
	for {
		f, err := mb.Take(ctx)
		if err != nil {
			if errors.Is(err, ErrMailboxClosed) {
				return nil
			}
			return err
		}
		if h.OnFrame(ctx, f) == OutcomeClosed {
			return nil
		}
	}
}
