package capture

import (
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestActivityMonitor_Defaults(t *testing.T) {
	m := NewActivityMonitor(ActivityConfig{})
	defer m.Close()

	if m.config != DefaultActivityConfig() {
		t.Errorf("config = %+v, want defaults", m.config)
	}
	if m.Active() || m.FPS() != 5 {
		t.Errorf("new monitor should be idle at 5 FPS, got active=%v fps=%d", m.Active(), m.FPS())
	}
}

func TestActivityMonitor_Transitions(t *testing.T) {
	m := NewActivityMonitor(DefaultActivityConfig())
	defer m.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		motion      bool
		at          time.Duration
		wantFPS     int
		wantChanged bool
	}{
		{"still scene stays idle", false, 0, 5, false},
		{"motion activates", true, 100 * time.Millisecond, 15, true},
		{"quiet within timeout stays active", false, 1500 * time.Millisecond, 15, false},
		{"more motion extends", true, 2 * time.Second, 15, false},
		{"quiet just under timeout", false, 4 * time.Second, 15, false},
		{"quiet past timeout idles", false, 4100 * time.Millisecond, 5, true},
	}

	for _, tt := range tests {
		m.mu.Lock()
		fps, changed := m.update(tt.motion, start.Add(tt.at))
		m.mu.Unlock()
		if fps != tt.wantFPS || changed != tt.wantChanged {
			t.Errorf("%s: update() = (%d, %v), want (%d, %v)", tt.name, fps, changed, tt.wantFPS, tt.wantChanged)
		}
	}
}

func TestActivityMonitor_Observe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	m := NewActivityMonitor(DefaultActivityConfig())
	defer m.Close()

	black := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer black.Close()

	now := time.Now()
	if _, changed := m.Observe(&black, now); changed {
		t.Error("baseline frame should not change state")
	}
	if fps, _ := m.Observe(&black, now.Add(100*time.Millisecond)); fps != 5 {
		t.Errorf("identical frames: fps = %d, want idle 5", fps)
	}

	moved := black.Clone()
	defer moved.Close()
	gocv.Rectangle(&moved, image.Rect(40, 40, 280, 200), color.RGBA{255, 255, 255, 0}, -1)

	fps, changed := m.Observe(&moved, now.Add(200*time.Millisecond))
	if fps != 15 || !changed {
		t.Errorf("changed frame: fps = %d changed = %v, want 15 true", fps, changed)
	}

	m.Reset()
	if m.Active() {
		t.Error("Reset should return to idle")
	}
}

func TestActivityMonitor_NilFrame(t *testing.T) {
	m := NewActivityMonitor(DefaultActivityConfig())
	defer m.Close()

	if fps, changed := m.Observe(nil, time.Now()); fps != 5 || changed {
		t.Errorf("nil frame: (%d, %v), want (5, false)", fps, changed)
	}
}
