package gesture

import "time"

// DefaultHistorySize is how many recognized signs the history keeps.
const DefaultHistorySize = 10

// Effect describes what applying an emission did to the transcript.
type Effect int

const (
	EffectIgnored Effect = iota
	EffectAppended
	EffectSpace
	EffectDeleted
)

// HistoryEntry records one recognized content sign.
type HistoryEntry struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Transcript accumulates the sentence built from stable emissions plus a
// newest-first history of recognized signs. Not safe for concurrent use.
type Transcript struct {
	sentence   []rune
	history    []HistoryEntry
	historyCap int
}

// NewTranscript creates an empty transcript. A cap below 1 uses DefaultHistorySize.
func NewTranscript(historyCap int) *Transcript {
	if historyCap < 1 {
		historyCap = DefaultHistorySize
	}
	return &Transcript{historyCap: historyCap}
}

// Apply updates the transcript for a stable emission.
func (t *Transcript) Apply(p Prediction, at time.Time) Effect {
	switch KindOf(p.Label) {
	case KindSpace:
		t.sentence = append(t.sentence, ' ')
		return EffectSpace

	case KindDelete:
		if len(t.sentence) > 0 {
			t.sentence = t.sentence[:len(t.sentence)-1]
		}
		return EffectDeleted

	case KindNothing:
		return EffectIgnored
	}

	t.sentence = append(t.sentence, []rune(p.Label)...)

	entry := HistoryEntry{Label: p.Label, Confidence: p.Confidence, Timestamp: at}
	t.history = append([]HistoryEntry{entry}, t.history...)
	if len(t.history) > t.historyCap {
		t.history = t.history[:t.historyCap]
	}
	return EffectAppended
}

// Sentence returns the accumulated text.
func (t *Transcript) Sentence() string {
	return string(t.sentence)
}

// History returns a copy of the history, newest first.
func (t *Transcript) History() []HistoryEntry {
	out := make([]HistoryEntry, len(t.history))
	copy(out, t.history)
	return out
}

// ClearSentence empties the sentence. History is kept.
func (t *Transcript) ClearSentence() {
	t.sentence = nil
}

// ClearHistory empties the history. The sentence is kept.
func (t *Transcript) ClearHistory() {
	t.history = nil
}
