package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/store"
)

// SamplesHandler handles HTTP requests for recorded sign samples.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// Register adds the sample routes to r.
func (h *SamplesHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/signs/{id}/samples", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/signs/{id}/samples", h.create).Methods(http.MethodPost)
	r.HandleFunc("/api/signs/{id}/samples", h.clear).Methods(http.MethodDelete)
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	SignID      string          `json:"sign_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type createSamplesResponse struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

func (h *SamplesHandler) signExists(w http.ResponseWriter, id string) bool {
	if _, err := h.store.Signs().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return false
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify sign")
		return false
	}
	return true
}

// list handles GET /api/signs/{id}/samples.
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request) {
	signID := mux.Vars(r)["id"]
	if !h.signExists(w, signID) {
		return
	}

	samples, err := h.store.Samples().GetBySignID(signID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			SignID:      s.SignID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   formatTime(s.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/signs/{id}/samples. Each sample must carry
// either tracked hands or a feature vector.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request) {
	signID := mux.Vars(r)["id"]

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	for i, raw := range req.Samples {
		var sample gesture.Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Sample %d is not valid JSON", i))
			return
		}
		if _, err := sample.Vector(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Sample %d: %v", i, err))
			return
		}
	}

	total, err := h.store.Samples().Add(signID, req.Samples)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, createSamplesResponse{Added: len(req.Samples), Total: total})
}

// clear handles DELETE /api/signs/{id}/samples.
func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request) {
	signID := mux.Vars(r)["id"]
	if !h.signExists(w, signID) {
		return
	}
	if err := h.store.Samples().DeleteBySignID(signID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
