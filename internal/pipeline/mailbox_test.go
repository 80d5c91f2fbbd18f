package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/signstream/internal/detector"
)

func labeledFrame(n int) Frame {
	hands := make([]detector.HandLandmarks, n)
	for i := range hands {
		hands[i] = detector.FistLandmarks()
	}
	return Frame{Hands: hands}
}

func TestMailbox_LatestWins(t *testing.T) {
	mb := NewMailbox()

	if mb.Put(labeledFrame(1)) {
		t.Error("first Put should not replace")
	}
	if !mb.Put(labeledFrame(2)) {
		t.Error("second Put should replace")
	}
	if mb.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", mb.Dropped())
	}

	f, err := mb.Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if len(f.Hands) != 2 {
		t.Errorf("took frame with %d hands, want the latest (2)", len(f.Hands))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := mb.Take(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Take() on empty mailbox error = %v, want deadline exceeded", err)
	}
}

func TestMailbox_TakeWaitsForPut(t *testing.T) {
	mb := NewMailbox()

	got := make(chan Frame, 1)
	go func() {
		f, err := mb.Take(context.Background())
		if err == nil {
			got <- f
		}
	}()

	time.Sleep(10 * time.Millisecond)
	mb.Put(labeledFrame(1))

	select {
	case f := <-got:
		if len(f.Hands) != 1 {
			t.Errorf("took %d hands, want 1", len(f.Hands))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Take did not return after Put")
	}
}

func TestMailbox_Close(t *testing.T) {
	mb := NewMailbox()

	errCh := make(chan error, 1)
	go func() {
		_, err := mb.Take(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	mb.Close()
	mb.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrMailboxClosed) {
			t.Errorf("Take() error = %v, want ErrMailboxClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not wake Take")
	}

	if mb.Put(labeledFrame(1)) {
		t.Error("Put after Close should do nothing")
	}
}

type countingHandler struct {
	mu     sync.Mutex
	frames []Frame
	block  chan struct{}
}

func (h *countingHandler) OnFrame(ctx context.Context, f Frame) Outcome {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.frames = append(h.frames, f)
	h.mu.Unlock()
	return OutcomeAccumulating
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func TestRun_DropsStaleFrames(t *testing.T) {
	mb := NewMailbox()
	h := &countingHandler{block: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, mb, h) }()

	// The consumer takes frame 1 and blocks in the handler; frames 2..4
	// pile up in the single slot and only the last survives.
	mb.Put(labeledFrame(1))
	time.Sleep(20 * time.Millisecond)
	mb.Put(labeledFrame(2))
	mb.Put(labeledFrame(2))
	mb.Put(Frame{})

	close(h.block)

	deadline := time.Now().Add(2 * time.Second)
	for h.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	if h.count() != 2 {
		t.Fatalf("handled %d frames, want 2", h.count())
	}
	if len(h.frames[1].Hands) != 0 {
		t.Errorf("second handled frame should be the latest (no hands), got %d hands", len(h.frames[1].Hands))
	}
	if mb.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", mb.Dropped())
	}
}

func TestRun_StopsOnClosedSession(t *testing.T) {
	s := NewSession(DefaultConfig(), script())
	s.Close()

	mb := NewMailbox()
	mb.Put(labeledFrame(1))

	if err := Run(context.Background(), mb, s); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

func TestRun_StopsOnClosedMailbox(t *testing.T) {
	mb := NewMailbox()
	mb.Close()

	if err := Run(context.Background(), mb, &countingHandler{}); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}
