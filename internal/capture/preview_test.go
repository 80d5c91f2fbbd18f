package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestPreview_Next(t *testing.T) {
	p := NewPreview()

	if data, seq := p.Latest(); data != nil || seq != 0 {
		t.Errorf("empty preview Latest() = %v, %d", data, seq)
	}

	got := make(chan []byte, 1)
	go func() {
		data, _, err := p.Next(context.Background(), 0)
		if err == nil {
			got <- data
		}
	}()

	time.Sleep(10 * time.Millisecond)
	p.PublishJPEG([]byte("frame-1"))

	select {
	case data := <-got:
		if string(data) != "frame-1" {
			t.Errorf("Next() = %q, want frame-1", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not wake on publish")
	}

	p.PublishJPEG([]byte("frame-2"))
	data, seq, err := p.Next(context.Background(), 1)
	if err != nil || string(data) != "frame-2" || seq != 2 {
		t.Errorf("Next(1) = %q, %d, %v", data, seq, err)
	}
}

func TestPreview_NextCanceled(t *testing.T) {
	p := NewPreview()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, _, err := p.Next(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() error = %v, want deadline exceeded", err)
	}
}

func TestPreview_Publish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	p := NewPreview()
	if err := p.Publish(&frame); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	data, seq := p.Latest()
	if seq != 1 || len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("Latest() = %d bytes seq %d, want a JPEG", len(data), seq)
	}
}
