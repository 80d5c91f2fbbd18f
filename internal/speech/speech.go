// Package speech speaks text through a pluggable text-to-speech backend.
package speech

import (
	"context"
	"errors"
)

// ErrSpeech is returned when a backend reports a failed utterance.
var ErrSpeech = errors.New("speech failed")

// Voice holds the user's speech preferences.
type Voice struct {
	Volume  int     `json:"volume"` // 0-100
	Rate    float64 `json:"rate"`
	VoiceID string  `json:"voice_id,omitempty"`
}

// DefaultVoice returns the preferences used before the user changes anything.
func DefaultVoice() Voice {
	return Voice{Volume: 75, Rate: 1, VoiceID: "Matthew"}
}

// Clamp returns v with volume in [0,100] and rate in [0.1,10].
func (v Voice) Clamp() Voice {
	if v.Volume < 0 {
		v.Volume = 0
	}
	if v.Volume > 100 {
		v.Volume = 100
	}
	if v.Rate <= 0 {
		v.Rate = 1
	}
	if v.Rate < 0.1 {
		v.Rate = 0.1
	}
	if v.Rate > 10 {
		v.Rate = 10
	}
	return v
}

// Speaker produces audible output for text. Speak blocks until the
// utterance finishes or ctx is canceled.
type Speaker interface {
	Speak(ctx context.Context, text string, voice Voice) error
}

// Nop is a Speaker that does nothing.
type Nop struct{}

// Speak implements Speaker.
func (Nop) Speak(context.Context, string, Voice) error { return nil }
