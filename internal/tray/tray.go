// Package tray provides a system tray interface for signstream.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/signstream/internal/pipeline"
)

// maxSentenceRunes bounds the sentence shown in the menu.
const maxSentenceRunes = 32

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onSpeak    func()
	onClear    func()
	onSettings func()
	onQuit     func()
	enabled    bool
	lastSign   string
	sentence   string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastSign *systray.MenuItem
	menuSentence *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when recognition is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSpeak sets the callback for the speak sentence menu item.
func (t *Tray) OnSpeak(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSpeak = fn
}

// OnClear sets the callback for the clear sentence menu item.
func (t *Tray) OnClear(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Signstream")
	systray.SetTooltip("Signstream sign recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle sign recognition")
	systray.AddSeparator()

	t.menuLastSign = systray.AddMenuItem(lastSignTitle(t.lastSign), "Last recognized sign")
	t.menuLastSign.Disable()
	t.menuSentence = systray.AddMenuItem(sentenceTitle(t.sentence), "Current sentence")
	t.menuSentence.Disable()
	t.mu.Unlock()

	menuSpeak := systray.AddMenuItem("Speak Sentence", "Speak the current sentence")
	menuClear := systray.AddMenuItem("Clear Sentence", "Clear the current sentence")
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Signstream")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSpeak.ClickedCh:
				t.call(func() func() { return t.onSpeak })
			case <-menuClear.ClickedCh:
				t.call(func() func() { return t.onClear })
			case <-menuSettings.ClickedCh:
				t.call(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.call(func() func() { return t.onQuit })
	systray.Quit()
}

// Watch updates the menu from session events until the channel closes.
func (t *Tray) Watch(events <-chan pipeline.Event) {
	for ev := range events {
		t.apply(ev)
	}
}

func (t *Tray) apply(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventEmission:
		t.SetLastSign(ev.Label)
		t.SetSentence(ev.Sentence)
	case pipeline.EventSentenceCleared, pipeline.EventHistoryCleared:
		t.SetSentence(ev.Sentence)
	}
}

// SetLastSign updates the last sign display in the menu.
func (t *Tray) SetLastSign(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSign = name
	if t.menuLastSign != nil {
		t.menuLastSign.SetTitle(lastSignTitle(name))
	}
}

// SetSentence updates the sentence display in the menu.
func (t *Tray) SetSentence(sentence string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sentence = sentence
	if t.menuSentence != nil {
		t.menuSentence.SetTitle(sentenceTitle(sentence))
	}
}

// LastSign returns the last sign shown in the menu.
func (t *Tray) LastSign() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSign
}

// Sentence returns the sentence shown in the menu.
func (t *Tray) Sentence() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sentence
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastSignTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}

// sentenceTitle shows the tail of long sentences, where new signs appear.
func sentenceTitle(sentence string) string {
	if sentence == "" {
		return "Sentence: (empty)"
	}
	runes := []rune(sentence)
	if len(runes) > maxSentenceRunes {
		return "Sentence: …" + string(runes[len(runes)-maxSentenceRunes:])
	}
	return "Sentence: " + sentence
}

// Quit stops a running tray.
func Quit() {
	systray.Quit()
}
