package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ayusman/signstream/internal/app"
	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/store"
)

// maxFrameBytes bounds a pushed landmark frame.
const maxFrameBytes = 1 << 20

// Emission listing limits.
const (
	defaultEmissionLimit = 50
	maxEmissionLimit     = 500
)

// Recognizer is the running recognition app driven by the session and
// settings endpoints.
type Recognizer interface {
	Status() app.Status
	PushFrame(f pipeline.Frame) bool
	Session() *pipeline.Session
	Preferences() pipeline.Preferences
	SetPreferences(p pipeline.Preferences) (pipeline.Preferences, error)
}

// SessionHandler exposes the live session.
type SessionHandler struct {
	rec   Recognizer
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(rec Recognizer, s *store.Store) *SessionHandler {
	return &SessionHandler{rec: rec, store: s}
}

// Register adds the session routes to r.
func (h *SessionHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/session", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/session/frames", h.pushFrame).Methods(http.MethodPost)
	r.HandleFunc("/api/session/clear-sentence", h.clearSentence).Methods(http.MethodPost)
	r.HandleFunc("/api/session/clear-history", h.clearHistory).Methods(http.MethodPost)
	r.HandleFunc("/api/session/speak", h.speak).Methods(http.MethodPost)
	r.HandleFunc("/api/session/emissions", h.emissions).Methods(http.MethodGet)
}

type pushFrameResponse struct {
	Accepted bool `json:"accepted"`
}

type speakResponse struct {
	Spoken   bool   `json:"spoken"`
	Sentence string `json:"sentence"`
}

type listEmissionsResponse struct {
	SessionID string           `json:"session_id"`
	Emissions []store.Emission `json:"emissions"`
}

// status handles GET /api/session.
func (h *SessionHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rec.Status())
}

// pushFrame handles POST /api/session/frames. The frame replaces any
// frame the session has not processed yet.
func (h *SessionHandler) pushFrame(w http.ResponseWriter, r *http.Request) {
	var f pipeline.Frame
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBytes)).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frame")
		return
	}

	if !h.rec.PushFrame(f) {
		writeError(w, http.StatusConflict, "Recognition is paused")
		return
	}
	writeJSON(w, http.StatusAccepted, pushFrameResponse{Accepted: true})
}

// clearSentence handles POST /api/session/clear-sentence.
func (h *SessionHandler) clearSentence(w http.ResponseWriter, r *http.Request) {
	h.rec.Session().ClearSentence()
	writeJSON(w, http.StatusOK, h.rec.Status())
}

// clearHistory handles POST /api/session/clear-history.
func (h *SessionHandler) clearHistory(w http.ResponseWriter, r *http.Request) {
	h.rec.Session().ClearHistory()
	writeJSON(w, http.StatusOK, h.rec.Status())
}

// speak handles POST /api/session/speak.
func (h *SessionHandler) speak(w http.ResponseWriter, r *http.Request) {
	sess := h.rec.Session()
	spoken := sess.SpeakSentence()
	writeJSON(w, http.StatusOK, speakResponse{Spoken: spoken, Sentence: sess.Sentence()})
}

// emissions handles GET /api/session/emissions?limit=N.
func (h *SessionHandler) emissions(w http.ResponseWriter, r *http.Request) {
	limit := defaultEmissionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxEmissionLimit)
	}

	sessionID := h.rec.Session().ID()
	list, err := h.store.Emissions().ListBySession(sessionID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list emissions")
		return
	}
	if list == nil {
		list = []store.Emission{}
	}
	writeJSON(w, http.StatusOK, listEmissionsResponse{SessionID: sessionID, Emissions: list})
}
