package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ayusman/signstream/internal/pipeline"
)

// SettingsHandler reads and updates the speech preferences.
type SettingsHandler struct {
	rec Recognizer
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(rec Recognizer) *SettingsHandler {
	return &SettingsHandler{rec: rec}
}

// Register adds the settings routes to r.
func (h *SettingsHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/settings", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/settings", h.update).Methods(http.MethodPut)
}

type settingsResponse struct {
	AutoSpeak    bool    `json:"auto_speak"`
	AudioEnabled bool    `json:"audio_enabled"`
	Volume       int     `json:"volume"`
	Rate         float64 `json:"rate"`
	VoiceID      string  `json:"voice_id"`
}

type updateSettingsRequest struct {
	AutoSpeak    *bool    `json:"auto_speak"`
	AudioEnabled *bool    `json:"audio_enabled"`
	Volume       *int     `json:"volume"`
	Rate         *float64 `json:"rate"`
	VoiceID      *string  `json:"voice_id"`
}

func toSettingsResponse(p pipeline.Preferences) settingsResponse {
	return settingsResponse{
		AutoSpeak:    p.AutoSpeak,
		AudioEnabled: p.AudioEnabled,
		Volume:       p.Voice.Volume,
		Rate:         p.Voice.Rate,
		VoiceID:      p.Voice.VoiceID,
	}
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsResponse(h.rec.Preferences()))
}

// update handles PUT /api/settings. Omitted fields keep their value.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p := h.rec.Preferences()
	if req.AutoSpeak != nil {
		p.AutoSpeak = *req.AutoSpeak
	}
	if req.AudioEnabled != nil {
		p.AudioEnabled = *req.AudioEnabled
	}
	if req.Volume != nil {
		if *req.Volume < 0 || *req.Volume > 100 {
			writeError(w, http.StatusBadRequest, "Volume must be between 0 and 100")
			return
		}
		p.Voice.Volume = *req.Volume
	}
	if req.Rate != nil {
		if *req.Rate <= 0 || *req.Rate > 10 {
			writeError(w, http.StatusBadRequest, "Rate must be greater than 0 and at most 10")
			return
		}
		p.Voice.Rate = *req.Rate
	}
	if req.VoiceID != nil {
		id := strings.TrimSpace(*req.VoiceID)
		if id == "" {
			writeError(w, http.StatusBadRequest, "Voice ID must not be empty")
			return
		}
		p.Voice.VoiceID = id
	}

	saved, err := h.rec.SetPreferences(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(saved))
}
