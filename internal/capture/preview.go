package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Preview holds the latest captured frame as JPEG so that any number of
// viewers can watch without reading from the camera themselves.
type Preview struct {
	mu     sync.Mutex
	jpeg   []byte
	seq    uint64
	notify chan struct{}
}

// NewPreview creates an empty preview.
func NewPreview() *Preview {
	return &Preview{notify: make(chan struct{})}
}

// Publish encodes frame as JPEG and stores it.
func (p *Preview) Publish(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode preview frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.PublishJPEG(data)
	return nil
}

// PublishJPEG stores an already encoded frame and wakes waiting viewers.
func (p *Preview) PublishJPEG(data []byte) {
	p.mu.Lock()
	p.jpeg = data
	p.seq++
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()
}

// Latest returns the current frame and its sequence number. The sequence
// is 0 before the first frame.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Next waits for a frame newer than after.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after {
			data, seq := p.jpeg, p.seq
			p.mu.Unlock()
			return data, seq, nil
		}
		wait := p.notify
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-wait:
		}
	}
}
