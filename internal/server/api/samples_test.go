package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ayusman/signstream/internal/detector"
	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/store"
)

func TestSamplesHandler(t *testing.T) {
	s, _, r := newSignRouter(t)
	s.Signs().Create(&store.Sign{ID: "s1", Name: "A"})

	hands := gesture.Sample{Hands: []detector.HandLandmarks{detector.FistLandmarks()}}
	features := gesture.Sample{Features: []float64{0.5, 0.5, 0}}

	rec := do(r, http.MethodPost, "/api/signs/s1/samples", map[string]any{"samples": []gesture.Sample{hands, features}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var added createSamplesResponse
	json.NewDecoder(rec.Body).Decode(&added)
	if added.Added != 2 || added.Total != 2 {
		t.Errorf("added = %+v", added)
	}

	rec = do(r, http.MethodPost, "/api/signs/s1/samples", map[string]any{"samples": []gesture.Sample{features}})
	json.NewDecoder(rec.Body).Decode(&added)
	if added.Total != 3 {
		t.Errorf("total after second batch = %d, want 3", added.Total)
	}

	rec = do(r, http.MethodGet, "/api/signs/s1/samples", nil)
	var listed listSamplesResponse
	json.NewDecoder(rec.Body).Decode(&listed)
	if len(listed.Samples) != 3 {
		t.Fatalf("listed %d samples, want 3", len(listed.Samples))
	}
	for i, sm := range listed.Samples {
		if sm.SampleIndex != i || sm.SignID != "s1" {
			t.Errorf("sample %d = %+v", i, sm)
		}
	}

	if rec := do(r, http.MethodDelete, "/api/signs/s1/samples", nil); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d, want 204", rec.Code)
	}
	sg, _ := s.Signs().GetByID("s1")
	if sg.Samples != 0 {
		t.Errorf("sample count after clear = %d", sg.Samples)
	}
}

func TestSamplesHandler_Errors(t *testing.T) {
	s, _, r := newSignRouter(t)
	s.Signs().Create(&store.Sign{ID: "s1", Name: "A"})

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"unknown sign list", http.MethodGet, "/api/signs/nope/samples", nil, http.StatusNotFound},
		{"unknown sign add", http.MethodPost, "/api/signs/nope/samples", map[string]any{"samples": []any{map[string]any{"features": []float64{1}}}}, http.StatusNotFound},
		{"no samples", http.MethodPost, "/api/signs/s1/samples", map[string]any{"samples": []any{}}, http.StatusBadRequest},
		{"empty sample", http.MethodPost, "/api/signs/s1/samples", map[string]any{"samples": []any{map[string]any{}}}, http.StatusBadRequest},
		{"bad sample", http.MethodPost, "/api/signs/s1/samples", `{"samples":[42]}`, http.StatusBadRequest},
		{"invalid json", http.MethodPost, "/api/signs/s1/samples", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(r, tt.method, tt.target, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}
