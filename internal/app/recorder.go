package app

import (
	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/store"
)

// recorder appends session emissions to the store.
type recorder struct {
	store *store.Store
}

func (r *recorder) RecordEmission(e pipeline.Emission) error {
	return r.store.Emissions().Append(&store.Emission{
		SessionID:  e.SessionID,
		UserID:     e.UserID,
		Label:      e.Label,
		Kind:       e.Kind.String(),
		Confidence: e.Confidence,
		Sentence:   e.Sentence,
		EmittedAt:  e.At,
	})
}
