package app

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/store"
)

func templateFor(sg *store.Sign) *gesture.Template {
	return &gesture.Template{
		ID:        sg.ID,
		Name:      sg.Name,
		Vector:    gesture.FromSlice(sg.Template),
		Tolerance: sg.Tolerance,
	}
}

// loadSigns registers every trained sign with the matcher.
func (a *App) loadSigns() error {
	signs, err := a.store.Signs().List()
	if err != nil {
		return err
	}

	trained := 0
	for _, sg := range signs {
		if sg.Trained() {
			a.matcher.AddTemplate(templateFor(sg))
			trained++
		}
	}

	log.Printf("Loaded %d trained signs from database (%d total)", trained, len(signs))
	return nil
}

// TrainSign averages the recorded samples of a sign into its template,
// stores it and makes it available to the local classifier.
func (a *App) TrainSign(id string) (*store.Sign, error) {
	samples, err := a.store.Samples().GetBySignID(id)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		if _, err := a.store.Signs().GetByID(id); err != nil {
			return nil, err
		}
		return nil, gesture.ErrNoSamples
	}

	raw := make([]json.RawMessage, len(samples))
	for i, s := range samples {
		raw[i] = s.Data
	}

	vector, err := gesture.Train(raw)
	if err != nil {
		return nil, fmt.Errorf("train sign %s: %w", id, err)
	}
	if err := a.store.Signs().SetTemplate(id, vector.Slice()); err != nil {
		return nil, err
	}

	sg, err := a.store.Signs().GetByID(id)
	if err != nil {
		return nil, err
	}
	a.matcher.AddTemplate(templateFor(sg))
	log.Printf("Trained sign %q from %d samples", sg.Name, len(samples))
	return sg, nil
}

// RefreshSign applies an edited sign's name and tolerance to its template.
func (a *App) RefreshSign(sg *store.Sign) {
	if sg.Trained() {
		a.matcher.AddTemplate(templateFor(sg))
	} else {
		a.matcher.RemoveTemplate(sg.ID)
	}
}

// ForgetSign drops a deleted sign from the local classifier.
func (a *App) ForgetSign(id string) {
	a.matcher.RemoveTemplate(id)
}
