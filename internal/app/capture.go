package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ayusman/signstream/internal/capture"
	"github.com/ayusman/signstream/internal/pipeline"
	"gocv.io/x/gocv"
)

// runCapture reads camera frames at the rate chosen by the activity
// monitor, publishes them to the preview and hands tracked hands to the
// session mailbox.
//
// The rate drops to the idle FPS when the scene is still and rises to the
// active FPS on motion. Every frame is tracked regardless, so a sign held
// still keeps being classified.
func (a *App) runCapture(ctx context.Context) {
	fps := a.activity.FPS()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrNoMoreFrames) {
				log.Println("Camera stream ended")
				a.mu.Lock()
				a.cameraActive = false
				a.mu.Unlock()
				return
			}
			log.Printf("Error reading frame: %v", err)
			continue
		}

		if next := a.processFrame(frame, time.Now()); next != fps {
			fps = next
			a.camera.SetFPS(fps)
			ticker.Reset(time.Second / time.Duration(fps))
			log.Printf("Capture rate switched to %d FPS", fps)
		}
	}
}

// processFrame runs one camera frame through preview, activity tracking
// and hand detection, and returns the capture rate to use next. It closes
// frame.
func (a *App) processFrame(frame *gocv.Mat, now time.Time) int {
	defer frame.Close()

	if err := a.preview.Publish(frame); err != nil {
		log.Printf("Preview failed: %v", err)
	}

	fps, _ := a.activity.Observe(frame, now)

	if !a.IsEnabled() || a.detector == nil {
		return fps
	}

	hands, err := a.detector.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return fps
	}

	a.mailbox.Put(pipeline.Frame{Hands: hands, At: now})
	return fps
}
