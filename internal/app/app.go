// Package app wires camera capture, hand tracking, classification and
// speech into a running sign recognition session.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ayusman/signstream/internal/capture"
	"github.com/ayusman/signstream/internal/classifier"
	"github.com/ayusman/signstream/internal/config"
	"github.com/ayusman/signstream/internal/detector"
	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/speech"
	"github.com/ayusman/signstream/internal/store"
)

// modelLoadTimeout bounds the model warm-up request made on Start.
const modelLoadTimeout = 30 * time.Second

var (
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("app has been stopped")
	// ErrNoStore is returned by New without a store.
	ErrNoStore = errors.New("store is required")
)

// Classifier modes reported by Status.
const (
	ModeRemote   = "remote"
	ModeTemplate = "template"
)

// Option overrides a collaborator, mainly for tests.
type Option func(*App)

// WithCamera replaces the configured camera device.
func WithCamera(c capture.Camera) Option {
	return func(a *App) { a.camera = c }
}

// WithDetector replaces the configured hand detector.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithClassifier replaces the configured classifier.
func WithClassifier(c classifier.Classifier) Option {
	return func(a *App) { a.classifier = c }
}

// WithSpeaker replaces the configured speech backend.
func WithSpeaker(s speech.Speaker) Option {
	return func(a *App) { a.speaker = s }
}

// App owns one recognition session and the goroutines feeding it.
type App struct {
	config     *config.Config
	store      *store.Store
	camera     capture.Camera
	activity   *capture.ActivityMonitor
	preview    *capture.Preview
	detector   detector.Detector
	matcher    *gesture.Matcher
	remote     *classifier.HTTPClient
	classifier classifier.Classifier
	speaker    speech.Speaker
	announcer  *speech.Announcer
	session    *pipeline.Session
	mailbox    *pipeline.Mailbox
	scheduler  *cron.Cron

	mu           sync.RWMutex
	enabled      bool
	cameraActive bool
	modelInfo    *classifier.ModelInfo
	started      bool
	stopped      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// New builds an App from cfg. Nothing runs until Start.
func New(cfg *config.Config, st *store.Store, opts ...Option) (*App, error) {
	if st == nil {
		return nil, ErrNoStore
	}

	a := &App{
		config:  cfg,
		store:   st,
		preview: capture.NewPreview(),
		matcher: gesture.NewMatcher(),
		mailbox: pipeline.NewMailbox(),
		enabled: true,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.camera == nil && cfg.Camera.Enabled {
		a.camera = capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.IdleFPS,
		})
	}
	if a.camera != nil {
		a.activity = capture.NewActivityMonitor(capture.ActivityConfig{
			Threshold:   cfg.Camera.MotionThreshold,
			IdleTimeout: cfg.Camera.IdleTimeout,
			IdleFPS:     cfg.Camera.IdleFPS,
			ActiveFPS:   cfg.Camera.FPS,
		})
	}
	if a.detector == nil && a.camera != nil {
		a.detector = newDetector(cfg.Detector)
	}

	if a.classifier == nil {
		if cfg.Classifier.URL != "" {
			a.remote = classifier.NewHTTPClient(cfg.Classifier.URL, classifier.WithTimeout(cfg.Classifier.Timeout))
			a.classifier = a.remote
			log.Printf("Using sign model service at %s", a.remote.BaseURL())
		} else {
			a.classifier = classifier.NewTemplateClassifier(a.matcher)
			log.Println("No sign model service configured, using trained templates")
		}
	}

	if a.speaker == nil {
		a.speaker = newSpeaker(cfg.Speech)
	}
	a.announcer = speech.NewAnnouncer(a.speaker)

	prefs := a.loadPreferences()
	a.session = pipeline.NewSession(pipeline.Config{
		SessionID:     uuid.NewString(),
		UserID:        cfg.Pipeline.UserID,
		WindowSize:    cfg.Pipeline.WindowSize,
		MinConfidence: cfg.Pipeline.MinConfidence,
		MinInterval:   cfg.Pipeline.MinInterval,
		HistorySize:   cfg.Pipeline.HistorySize,
		Preferences:   prefs,
	}, a.classifier,
		pipeline.WithAnnouncer(a.announcer),
		pipeline.WithRecorder(&recorder{store: st}),
	)

	return a, nil
}

func newDetector(cfg config.DetectorConfig) detector.Detector {
	if cfg.Mode == config.DetectorMock {
		log.Println("Using mock hand detection")
		return detector.NewMockDetector()
	}

	dc := detector.Config{
		MaxHands:        cfg.MaxHands,
		MinConfidence:   cfg.MinConfidence,
		MinTrackingConf: cfg.MinTrackingConf,
		MirrorX:         cfg.Mirror,
		ScriptPath:      cfg.ScriptPath,
	}
	mp, err := detector.NewMediaPipeDetector(dc)
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return mp
}

func newSpeaker(cfg config.SpeechConfig) speech.Speaker {
	switch cfg.Mode {
	case config.SpeechHTTP:
		var player speech.Player
		if cfg.Player != "" {
			player = speech.CommandPlayer{Path: cfg.Player, Args: []string{"-"}}
		}
		return speech.NewHTTPSpeaker(cfg.URL, cfg.APIKey, player)
	case config.SpeechCommand:
		return speech.NewCommandSpeaker(cfg.Command, cfg.Timeout)
	default:
		return speech.Nop{}
	}
}

// Start loads the trained signs, records the session and starts the
// capture loop, the pipeline consumer and the retention job. A camera that
// fails to open is logged and the app keeps serving pushed frames.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return ErrStopped
	}
	if a.started {
		return nil
	}

	if err := a.loadSigns(); err != nil {
		return fmt.Errorf("load signs: %w", err)
	}

	status := a.session.Status()
	if err := a.store.Sessions().Create(&store.Session{
		ID:        status.SessionID,
		UserID:    a.config.Pipeline.UserID,
		StartedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("record session: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.started = true

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := pipeline.Run(ctx, a.mailbox, a.session); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Pipeline stopped: %v", err)
		}
	}()

	if a.camera != nil {
		if err := a.camera.Open(); err != nil {
			log.Printf("Camera unavailable: %v", err)
		} else {
			a.cameraActive = true
			a.camera.SetFPS(a.activity.FPS())
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.runCapture(ctx)
			}()
		}
	}

	if a.remote != nil && a.config.Classifier.LoadOnStart {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.loadModel(ctx)
		}()
	}

	a.scheduler = a.startRetention()

	log.Printf("Session %s started", status.SessionID)
	return nil
}

func (a *App) loadModel(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, modelLoadTimeout)
	defer cancel()

	info, err := a.remote.Load(ctx)
	if err != nil {
		log.Printf("Sign model load failed: %v", err)
		return
	}
	a.mu.Lock()
	a.modelInfo = &info
	a.mu.Unlock()
	log.Printf("Sign model loaded: %d classes, input %v", len(info.Classes), info.InputShape)
}

// Stop ends the session and releases every resource. Stop is idempotent.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	started := a.started
	cancel := a.cancel
	scheduler := a.scheduler
	a.cameraActive = false
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.mailbox.Close()
	a.wg.Wait()
	a.session.Close()
	a.announcer.Close()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if started {
		if err := a.store.Sessions().End(a.session.ID(), time.Now()); err != nil {
			log.Printf("Error ending session: %v", err)
		}
	}
	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}
	if a.activity != nil {
		a.activity.Close()
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Recognition stopped")
}

// SetEnabled pauses or resumes recognition. Pausing resets the stability
// window.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if !enabled {
		a.mailbox.Put(pipeline.Frame{At: time.Now()})
	}
}

// IsEnabled reports whether recognition is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// PushFrame hands a tracked frame to the session, replacing any frame not
// yet processed. It reports false when recognition is paused or stopped.
func (a *App) PushFrame(f pipeline.Frame) bool {
	a.mu.RLock()
	ok := a.enabled && !a.stopped
	a.mu.RUnlock()
	if !ok {
		return false
	}
	if f.At.IsZero() {
		f.At = time.Now()
	}
	a.mailbox.Put(f)
	return true
}

// Status extends the session snapshot with the app's own state.
type Status struct {
	pipeline.Status
	Enabled        bool                  `json:"enabled"`
	CameraActive   bool                  `json:"camera_active"`
	CaptureFPS     int                   `json:"capture_fps"`
	ClassifierMode string                `json:"classifier_mode"`
	Model          *classifier.ModelInfo `json:"model,omitempty"`
	Templates      int                   `json:"templates"`
	DroppedFrames  uint64                `json:"dropped_frames"`
}

// Status returns a snapshot of the app and its session.
func (a *App) Status() Status {
	st := Status{
		Status:         a.session.Status(),
		ClassifierMode: ModeTemplate,
		Templates:      a.matcher.Len(),
		DroppedFrames:  a.mailbox.Dropped(),
	}
	if a.remote != nil {
		st.ClassifierMode = ModeRemote
	}

	a.mu.RLock()
	st.Enabled = a.enabled
	st.CameraActive = a.cameraActive
	st.Model = a.modelInfo
	a.mu.RUnlock()

	if st.CameraActive && a.activity != nil {
		st.CaptureFPS = a.activity.FPS()
	}
	return st
}

// Session returns the live session.
func (a *App) Session() *pipeline.Session {
	return a.session
}

// Preview returns the latest camera frame holder.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// Store returns the app's store.
func (a *App) Store() *store.Store {
	return a.store
}

// Matcher returns the trained template set used for local classification.
func (a *App) Matcher() *gesture.Matcher {
	return a.matcher
}

// CameraActive reports whether frames are being captured locally.
func (a *App) CameraActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cameraActive
}
