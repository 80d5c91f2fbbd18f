package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// ActivityConfig tunes the ActivityMonitor.
type ActivityConfig struct {
	// Threshold is the percentage of pixels that must change to count as motion.
	Threshold   float64
	IdleTimeout time.Duration
	IdleFPS     int
	ActiveFPS   int
}

// DefaultActivityConfig returns 1% change, a 2s idle timeout, 5 idle FPS
// and 15 active FPS.
func DefaultActivityConfig() ActivityConfig {
	return ActivityConfig{Threshold: 1.0, IdleTimeout: 2 * time.Second, IdleFPS: 5, ActiveFPS: 15}
}

// ActivityMonitor watches consecutive frames for motion and picks the
// capture rate: ActiveFPS while the scene moves and for IdleTimeout after
// it stops, IdleFPS otherwise. Frames are never skipped, only slowed, so a
// sign held perfectly still is still classified.
type ActivityMonitor struct {
	config      ActivityConfig
	prevGray    gocv.Mat
	initialized bool
	active      bool
	lastMotion  time.Time
	mu          sync.Mutex
}

// NewActivityMonitor creates a monitor. It starts idle.
func NewActivityMonitor(config ActivityConfig) *ActivityMonitor {
	def := DefaultActivityConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = def.IdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = def.ActiveFPS
	}
	return &ActivityMonitor{
		config:   config,
		prevGray: gocv.NewMat(),
	}
}

// Observe analyzes frame and returns the capture rate to use and whether
// it changed.
func (m *ActivityMonitor) Observe(frame *gocv.Mat, now time.Time) (fps int, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	motion, _ := m.detect(frame)
	return m.update(motion, now)
}

// FPS returns the current capture rate.
func (m *ActivityMonitor) FPS() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fpsLocked()
}

// Active reports whether the monitor is in the active state.
func (m *ActivityMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *ActivityMonitor) fpsLocked() int {
	if m.active {
		return m.config.ActiveFPS
	}
	return m.config.IdleFPS
}

// update advances the idle/active state. Caller holds m.mu.
func (m *ActivityMonitor) update(motion bool, now time.Time) (int, bool) {
	was := m.active
	switch {
	case motion:
		m.lastMotion = now
		m.active = true
	case m.active && now.Sub(m.lastMotion) > m.config.IdleTimeout:
		m.active = false
	}
	return m.fpsLocked(), m.active != was
}

// detect compares frame with the previous one: grayscale, 21x21 blur,
// absolute difference, binary threshold, then the share of changed pixels.
// The first frame only sets the baseline. Caller holds m.mu.
func (m *ActivityMonitor) detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changePercent := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0

	blurred.CopyTo(&m.prevGray)

	return changePercent > m.config.Threshold, changePercent
}

// Reset drops the baseline frame and returns to idle.
func (m *ActivityMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
	m.active = false
}

// Close releases resources used by the monitor.
func (m *ActivityMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prevGray.Close()
	m.initialized = false
}
