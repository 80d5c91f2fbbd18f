package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ayusman/signstream/internal/store"
)

func newSessionRouter(t *testing.T) (*store.Store, *fakeRecognizer, http.Handler) {
	t.Helper()
	s := newTestStore(t)
	rec := newFakeRecognizer("sess-1")
	t.Cleanup(rec.session.Close)
	if err := s.Sessions().Create(&store.Session{ID: "sess-1", UserID: "u", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Create session: %v", err)
	}
	return s, rec, newRouter(NewSessionHandler(rec, s).Register, NewSettingsHandler(rec).Register)
}

func TestSessionHandler_Status(t *testing.T) {
	_, _, r := newSessionRouter(t)

	rec := do(r, http.MethodGet, "/api/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st struct {
		SessionID  string `json:"session_id"`
		State      string `json:"state"`
		WindowSize int    `json:"window_size"`
		Enabled    bool   `json:"enabled"`
	}
	json.NewDecoder(rec.Body).Decode(&st)
	if st.SessionID != "sess-1" || st.State != "idle" || st.WindowSize != 3 || !st.Enabled {
		t.Errorf("status = %+v", st)
	}
}

func TestSessionHandler_PushFrame(t *testing.T) {
	_, fr, r := newSessionRouter(t)

	body := `{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0.3}]}]}`
	if rec := do(r, http.MethodPost, "/api/session/frames", body); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if len(fr.frames) != 1 || len(fr.frames[0].Hands) != 1 || fr.frames[0].Hands[0].Points[0].Y != 0.2 {
		t.Errorf("pushed frames = %+v", fr.frames)
	}

	if rec := do(r, http.MethodPost, "/api/session/frames", "not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid frame status = %d, want 400", rec.Code)
	}

	fr.paused = true
	if rec := do(r, http.MethodPost, "/api/session/frames", body); rec.Code != http.StatusConflict {
		t.Errorf("paused status = %d, want 409", rec.Code)
	}
}

func TestSessionHandler_Actions(t *testing.T) {
	_, _, r := newSessionRouter(t)

	for _, path := range []string{"/api/session/clear-sentence", "/api/session/clear-history"} {
		if rec := do(r, http.MethodPost, path, nil); rec.Code != http.StatusOK {
			t.Errorf("POST %s status = %d", path, rec.Code)
		}
		if rec := do(r, http.MethodGet, path, nil); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want 405", path, rec.Code)
		}
	}

	rec := do(r, http.MethodPost, "/api/session/speak", nil)
	var spoke speakResponse
	json.NewDecoder(rec.Body).Decode(&spoke)
	if rec.Code != http.StatusOK || spoke.Spoken {
		t.Errorf("speak on empty sentence = %d %+v", rec.Code, spoke)
	}
}

func TestSessionHandler_Emissions(t *testing.T) {
	s, _, r := newSessionRouter(t)

	base := time.Now()
	for i, label := range []string{"H", "I", "SPACE"} {
		s.Emissions().Append(&store.Emission{
			SessionID: "sess-1", Label: label, Kind: "sign", Confidence: 0.9,
			EmittedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	rec := do(r, http.MethodGet, "/api/session/emissions?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var listed listEmissionsResponse
	json.NewDecoder(rec.Body).Decode(&listed)
	if listed.SessionID != "sess-1" || len(listed.Emissions) != 2 || listed.Emissions[0].Label != "SPACE" {
		t.Errorf("listed = %+v, want the two newest", listed)
	}

	for _, q := range []string{"limit=0", "limit=x"} {
		if rec := do(r, http.MethodGet, "/api/session/emissions?"+q, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", q, rec.Code)
		}
	}
}

func TestSettingsHandler(t *testing.T) {
	_, fr, r := newSessionRouter(t)

	rec := do(r, http.MethodGet, "/api/settings", nil)
	var got settingsResponse
	json.NewDecoder(rec.Body).Decode(&got)
	if !got.AutoSpeak || !got.AudioEnabled || got.Volume != 75 || got.Rate != 1 || got.VoiceID != "Matthew" {
		t.Errorf("defaults = %+v", got)
	}

	rec = do(r, http.MethodPut, "/api/settings", map[string]any{"auto_speak": false, "volume": 40})
	json.NewDecoder(rec.Body).Decode(&got)
	if rec.Code != http.StatusOK || got.AutoSpeak || got.Volume != 40 || !got.AudioEnabled {
		t.Errorf("update = %d %+v", rec.Code, got)
	}
	if fr.Preferences().Voice.Volume != 40 {
		t.Error("preferences were not applied")
	}

	tests := []struct {
		name string
		body any
	}{
		{"volume too high", map[string]any{"volume": 101}},
		{"negative volume", map[string]any{"volume": -1}},
		{"zero rate", map[string]any{"rate": 0}},
		{"rate too high", map[string]any{"rate": 11}},
		{"blank voice", map[string]any{"voice_id": " "}},
		{"invalid json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(r, http.MethodPut, "/api/settings", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	fr.saveErr = errors.New("disk full")
	if rec := do(r, http.MethodPut, "/api/settings", map[string]any{"rate": 2}); rec.Code != http.StatusInternalServerError {
		t.Errorf("save failure status = %d, want 500", rec.Code)
	}
}
