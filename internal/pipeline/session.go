// Package pipeline turns a stream of hand landmark frames into stable sign
// emissions, a sentence and a conversation history.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/signstream/internal/classifier"
	"github.com/ayusman/signstream/internal/detector"
	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/speech"
)

// DefaultMinInterval is the minimum time between a stable emission and the
// next classifier call.
const DefaultMinInterval = 2000 * time.Millisecond

// Frame is one batch of tracked hands. An empty Hands slice means no hand
// is visible.
type Frame struct {
	Hands []detector.HandLandmarks `json:"hands"`
	At    time.Time                `json:"at,omitempty"`
}

// Outcome reports what OnFrame did with a frame.
type Outcome int

const (
	// OutcomeIdle: no hands; the stability window was reset.
	OutcomeIdle Outcome = iota
	// OutcomeBusy: a classifier call was in flight; the frame was dropped.
	OutcomeBusy
	// OutcomeRateLimited: too soon after the last emission; the frame was dropped.
	OutcomeRateLimited
	// OutcomeRejected: the prediction was unknown or below threshold; the window was reset.
	OutcomeRejected
	// OutcomeAccumulating: the prediction was added to the window.
	OutcomeAccumulating
	// OutcomeEmitted: the window became stable and a sign was emitted.
	OutcomeEmitted
	// OutcomeClosed: the session is closed; the frame or its result was discarded.
	OutcomeClosed
)

var outcomeNames = [...]string{"idle", "busy", "rate_limited", "rejected", "accumulating", "emitted", "closed"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// State is the session's position in the stability state machine.
type State string

const (
	StateIdle         State = "idle"
	StateAccumulating State = "accumulating"
	StateClosed       State = "closed"
)

// Preferences are the user-controlled speech settings.
type Preferences struct {
	AutoSpeak    bool         `json:"auto_speak"`
	AudioEnabled bool         `json:"audio_enabled"`
	Voice        speech.Voice `json:"voice"`
}

// DefaultPreferences returns auto-speak on, audio on and the default voice.
func DefaultPreferences() Preferences {
	return Preferences{AutoSpeak: true, AudioEnabled: true, Voice: speech.DefaultVoice()}
}

// Config holds the session parameters.
type Config struct {
	SessionID     string
	UserID        string
	WindowSize    int
	MinConfidence float64
	MinInterval   time.Duration
	HistorySize   int
	Preferences   Preferences
}

// DefaultConfig returns a window of 3, threshold 0.75, a 2s interval and a
// history of 10.
func DefaultConfig() Config {
	return Config{
		WindowSize:    gesture.DefaultWindowSize,
		MinConfidence: gesture.DefaultMinConfidence,
		MinInterval:   DefaultMinInterval,
		HistorySize:   gesture.DefaultHistorySize,
		Preferences:   DefaultPreferences(),
	}
}

// Announcer speaks text without blocking the caller.
type Announcer interface {
	Say(text string, voice speech.Voice)
}

// Emission is a confirmed sign handed to the Recorder.
type Emission struct {
	SessionID  string
	UserID     string
	Label      string
	Kind       gesture.LabelKind
	Confidence float64
	Sentence   string
	At         time.Time
}

// Recorder persists emissions. Errors are logged, never fatal.
type Recorder interface {
	RecordEmission(e Emission) error
}

// Option configures a Session.
type Option func(*Session)

// WithAnnouncer sets the speech sink.
func WithAnnouncer(a Announcer) Option {
	return func(s *Session) { s.announcer = a }
}

// WithRecorder sets the emission sink.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one live recognition session. All state is guarded by a
// single mutex; the classifier is called without holding it.
type Session struct {
	cfg        Config
	classifier classifier.Classifier
	announcer  Announcer
	recorder   Recorder
	now        func() time.Time

	mu         sync.Mutex
	closed     bool
	busy       bool
	stab       *gesture.Stabilizer
	transcript *gesture.Transcript
	lastEmit   time.Time
	prefs      Preferences
	current    *gesture.Prediction
	lastStable *gesture.Prediction
	failures   int
	lastErr    string
	frames     int64
	calls      int64
	emissions  int64
	fps        int
	fpsCount   int
	fpsStart   time.Time

	subMu      sync.Mutex
	subs       map[int]chan Event
	subsClosed bool
	nextID     int
}

// NewSession creates a session classifying frames with c.
func NewSession(cfg Config, c classifier.Classifier, opts ...Option) *Session {
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	stab := gesture.NewStabilizer(cfg.WindowSize, cfg.MinConfidence)
	cfg.WindowSize = stab.Size()

	s := &Session{
		cfg:        cfg,
		classifier: c,
		now:        time.Now,
		stab:       stab,
		transcript: gesture.NewTranscript(cfg.HistorySize),
		prefs:      cfg.Preferences,
		subs:       make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.cfg.SessionID
}

// OnFrame processes one frame. It blocks for the duration of a classifier
// call when one is made. Frames arriving while a call is in flight are
// dropped, except that a no-hands frame still resets the window.
func (s *Session) OnFrame(ctx context.Context, f Frame) Outcome {
	now := s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return OutcomeClosed
	}
	s.countFrame(now)

	if !hasPoints(f.Hands) {
		s.stab.Reset()
		s.current = nil
		s.mu.Unlock()
		return OutcomeIdle
	}
	if s.busy {
		s.mu.Unlock()
		return OutcomeBusy
	}
	if !s.lastEmit.IsZero() && now.Sub(s.lastEmit) < s.cfg.MinInterval {
		s.mu.Unlock()
		return OutcomeRateLimited
	}
	s.busy = true
	s.calls++
	s.mu.Unlock()

	// Busy covers the emission side effects too, so a status reporting
	// idle has the emission recorded.
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	res := s.classifier.Classify(ctx, gesture.Extract(f.Hands))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return OutcomeClosed
	}

	if res.Failed() {
		s.failures++
		s.lastErr = res.Err().Error()
	} else {
		s.failures = 0
		s.lastErr = ""
	}

	pred := res.Prediction()
	s.current = &pred
	predEvent := Event{Type: EventPrediction, Label: pred.Label, Confidence: pred.Confidence, At: now}

	stable, ok := s.stab.Observe(pred)
	if !ok {
		outcome := OutcomeAccumulating
		if s.stab.Len() == 0 {
			outcome = OutcomeRejected
		}
		predEvent.Sentence = s.transcript.Sentence()
		s.mu.Unlock()
		s.publish(predEvent)
		return outcome
	}

	at := s.now()
	s.lastEmit = at
	s.emissions++
	s.lastStable = &stable
	effect := s.transcript.Apply(stable, at)
	sentence := s.transcript.Sentence()
	prefs := s.prefs
	s.mu.Unlock()

	kind := gesture.KindOf(stable.Label)
	if effect == gesture.EffectAppended && prefs.AutoSpeak && prefs.AudioEnabled && s.announcer != nil {
		s.announcer.Say(stable.Label, prefs.Voice)
	}

	if s.recorder != nil {
		err := s.recorder.RecordEmission(Emission{
			SessionID:  s.cfg.SessionID,
			UserID:     s.cfg.UserID,
			Label:      stable.Label,
			Kind:       kind,
			Confidence: stable.Confidence,
			Sentence:   sentence,
			At:         at,
		})
		if err != nil {
			log.Printf("Failed to record emission %s: %v", stable.Label, err)
		}
	}

	predEvent.Sentence = sentence
	s.publish(predEvent)
	s.publish(Event{
		Type:       EventEmission,
		Label:      stable.Label,
		Kind:       kind.String(),
		Confidence: stable.Confidence,
		Sentence:   sentence,
		At:         at,
	})
	return OutcomeEmitted
}

// countFrame updates the frames-per-second counter. Caller holds s.mu.
// hasPoints reports whether any hand carries landmarks. Hands without
// points would classify an all-zero vector.
func hasPoints(hands []detector.HandLandmarks) bool {
	for _, h := range hands {
		if len(h.Points) > 0 {
			return true
		}
	}
	return false
}

func (s *Session) countFrame(now time.Time) {
	s.frames++
	if s.fpsStart.IsZero() {
		s.fpsStart = now
	}
	s.fpsCount++
	if elapsed := now.Sub(s.fpsStart); elapsed >= time.Second {
		s.fps = s.fpsCount
		s.fpsCount = 0
		s.fpsStart = now
	}
}

// ClearSentence empties the sentence and announces it.
func (s *Session) ClearSentence() {
	s.mu.Lock()
	s.transcript.ClearSentence()
	s.current = nil
	prefs := s.prefs
	s.mu.Unlock()

	s.say("Sentence cleared", prefs)
	s.publish(Event{Type: EventSentenceCleared, At: s.now()})
}

// ClearHistory empties the history and announces it.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	s.transcript.ClearHistory()
	s.current = nil
	sentence := s.transcript.Sentence()
	prefs := s.prefs
	s.mu.Unlock()

	s.say("History cleared", prefs)
	s.publish(Event{Type: EventHistoryCleared, Sentence: sentence, At: s.now()})
}

// SpeakSentence speaks the current sentence. It reports false when the
// sentence is empty or audio is disabled.
func (s *Session) SpeakSentence() bool {
	s.mu.Lock()
	sentence := s.transcript.Sentence()
	prefs := s.prefs
	s.mu.Unlock()

	if sentence == "" {
		return false
	}
	return s.say(sentence, prefs)
}

func (s *Session) say(text string, prefs Preferences) bool {
	if !prefs.AudioEnabled || s.announcer == nil {
		return false
	}
	s.announcer.Say(text, prefs.Voice)
	return true
}

// Preferences returns the current speech preferences.
func (s *Session) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetPreferences replaces the speech preferences.
func (s *Session) SetPreferences(p Preferences) {
	p.Voice = p.Voice.Clamp()
	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
}

// Sentence returns the current sentence.
func (s *Session) Sentence() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Sentence()
}

// History returns the conversation history, newest first.
func (s *Session) History() []gesture.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.History()
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	SessionID           string                 `json:"session_id"`
	State               State                  `json:"state"`
	Sentence            string                 `json:"sentence"`
	History             []gesture.HistoryEntry `json:"history"`
	Window              []string               `json:"window"`
	WindowSize          int                    `json:"window_size"`
	Current             *gesture.Prediction    `json:"current,omitempty"`
	LastEmission        *gesture.Prediction    `json:"last_emission,omitempty"`
	Busy                bool                   `json:"busy"`
	FPS                 int                    `json:"fps"`
	Frames              int64                  `json:"frames"`
	ClassifierCalls     int64                  `json:"classifier_calls"`
	Emissions           int64                  `json:"emissions"`
	ClassifierHealthy   bool                   `json:"classifier_healthy"`
	ConsecutiveFailures int                    `json:"consecutive_failures"`
	LastError           string                 `json:"last_error,omitempty"`
	Preferences         Preferences            `json:"preferences"`
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		SessionID:           s.cfg.SessionID,
		State:               StateIdle,
		Sentence:            s.transcript.Sentence(),
		History:             s.transcript.History(),
		Window:              s.stab.Window(),
		WindowSize:          s.stab.Size(),
		Busy:                s.busy,
		FPS:                 s.fps,
		Frames:              s.frames,
		ClassifierCalls:     s.calls,
		Emissions:           s.emissions,
		ClassifierHealthy:   s.failures == 0,
		ConsecutiveFailures: s.failures,
		LastError:           s.lastErr,
		Preferences:         s.prefs,
	}
	if s.current != nil {
		p := *s.current
		st.Current = &p
	}
	if s.lastStable != nil {
		p := *s.lastStable
		st.LastEmission = &p
	}
	switch {
	case s.closed:
		st.State = StateClosed
	case s.stab.Len() > 0:
		st.State = StateAccumulating
	}
	return st
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the session down. A classifier result that resolves after
// Close is discarded. Subscriber channels are closed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stab.Reset()
	s.mu.Unlock()

	s.subMu.Lock()
	s.subsClosed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
}
