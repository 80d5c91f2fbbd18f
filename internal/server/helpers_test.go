package server

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/signstream/internal/app"
	"github.com/ayusman/signstream/internal/config"
	"github.com/ayusman/signstream/internal/store"
)

// newTestApp starts an app without a camera, using trained templates and
// no minimum interval between emissions.
func newTestApp(t *testing.T) *app.App {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}

	cfg := &config.Config{
		Server:     config.ServerConfig{Addr: "127.0.0.1:0"},
		Camera:     config.CameraConfig{FPS: 15, IdleFPS: 5},
		Detector:   config.DetectorConfig{Mode: config.DetectorMock},
		Classifier: config.ClassifierConfig{Timeout: time.Second},
		Pipeline: config.PipelineConfig{
			UserID:        "tester",
			WindowSize:    3,
			MinConfidence: 0.75,
			HistorySize:   10,
		},
		Speech: config.SpeechConfig{Mode: config.SpeechNone, Volume: 75, Rate: 1, VoiceID: "Matthew", AudioEnabled: true},
	}

	a, err := app.New(cfg, s)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		a.Stop()
		s.Close()
	})
	return a
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
