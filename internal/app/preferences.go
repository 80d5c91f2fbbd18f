package app

import (
	"log"
	"strconv"

	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/speech"
)

// Settings keys for the persisted speech preferences.
const (
	keyAutoSpeak    = "speech.auto_speak"
	keyAudioEnabled = "speech.audio_enabled"
	keyVolume       = "speech.volume"
	keyRate         = "speech.rate"
	keyVoiceID      = "speech.voice_id"
)

// defaultPreferences derives the preferences from configuration.
func (a *App) defaultPreferences() pipeline.Preferences {
	sc := a.config.Speech
	return pipeline.Preferences{
		AutoSpeak:    sc.AutoSpeak,
		AudioEnabled: sc.AudioEnabled,
		Voice: speech.Voice{
			Volume:  sc.Volume,
			Rate:    sc.Rate,
			VoiceID: sc.VoiceID,
		}.Clamp(),
	}
}

// loadPreferences overlays stored settings on the configured defaults.
// Unparseable values are logged and ignored.
func (a *App) loadPreferences() pipeline.Preferences {
	prefs := a.defaultPreferences()

	stored, err := a.store.Settings().All()
	if err != nil {
		log.Printf("Failed to load preferences: %v", err)
		return prefs
	}

	for key, value := range stored {
		if err := applySetting(&prefs, key, value); err != nil {
			log.Printf("Ignoring setting %s=%q: %v", key, value, err)
		}
	}

	prefs.Voice = prefs.Voice.Clamp()
	return prefs
}

func applySetting(p *pipeline.Preferences, key, value string) error {
	switch key {
	case keyAutoSpeak, keyAudioEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		if key == keyAutoSpeak {
			p.AutoSpeak = b
		} else {
			p.AudioEnabled = b
		}
	case keyVolume:
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		p.Voice.Volume = v
	case keyRate:
		r, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		p.Voice.Rate = r
	case keyVoiceID:
		p.Voice.VoiceID = value
	}
	return nil
}

// SetPreferences applies p to the session and persists it.
func (a *App) SetPreferences(p pipeline.Preferences) (pipeline.Preferences, error) {
	a.session.SetPreferences(p)
	p = a.session.Preferences()

	values := map[string]string{
		keyAutoSpeak:    strconv.FormatBool(p.AutoSpeak),
		keyAudioEnabled: strconv.FormatBool(p.AudioEnabled),
		keyVolume:       strconv.Itoa(p.Voice.Volume),
		keyRate:         strconv.FormatFloat(p.Voice.Rate, 'f', -1, 64),
		keyVoiceID:      p.Voice.VoiceID,
	}
	for key, value := range values {
		if err := a.store.Settings().Set(key, value); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Preferences returns the session's current speech preferences.
func (a *App) Preferences() pipeline.Preferences {
	return a.session.Preferences()
}
