package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/store"
)

// DefaultTolerance is the match distance given to signs created without one.
const DefaultTolerance = 0.5

// SignTrainer keeps the live classifier in step with the stored signs.
type SignTrainer interface {
	TrainSign(id string) (*store.Sign, error)
	RefreshSign(sg *store.Sign)
	ForgetSign(id string)
}

// SignHandler handles HTTP requests for locally trained signs.
type SignHandler struct {
	store   *store.Store
	trainer SignTrainer
}

// NewSignHandler creates a new SignHandler.
func NewSignHandler(s *store.Store, trainer SignTrainer) *SignHandler {
	return &SignHandler{store: s, trainer: trainer}
}

// Register adds the sign routes to r.
func (h *SignHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/signs", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/signs", h.create).Methods(http.MethodPost)
	r.HandleFunc("/api/signs/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/signs/{id}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/api/signs/{id}", h.delete).Methods(http.MethodDelete)
	r.HandleFunc("/api/signs/{id}/train", h.train).Methods(http.MethodPost)
}

type createSignRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
}

type updateSignRequest struct {
	Name      string   `json:"name"`
	Tolerance *float64 `json:"tolerance"`
}

type signResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	Trained   bool    `json:"trained"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

func toSignResponse(sg *store.Sign) signResponse {
	return signResponse{
		ID:        sg.ID,
		Name:      sg.Name,
		Tolerance: sg.Tolerance,
		Samples:   sg.Samples,
		Trained:   sg.Trained(),
		CreatedAt: formatTime(sg.CreatedAt),
		UpdatedAt: formatTime(sg.UpdatedAt),
	}
}

// validSignName rejects names the classifier treats as control labels.
func validSignName(name string) bool {
	return name != "" && gesture.KindOf(name) == gesture.KindContent && !strings.EqualFold(name, gesture.LabelUnknown)
}

// list handles GET /api/signs.
func (h *SignHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Signs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{Signs: make([]signResponse, 0, len(signs))}
	for _, sg := range signs {
		response.Signs = append(response.Signs, toSignResponse(sg))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/signs/{id}.
func (h *SignHandler) get(w http.ResponseWriter, r *http.Request) {
	sg, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSignResponse(sg))
}

func (h *SignHandler) lookup(w http.ResponseWriter, id string) (*store.Sign, bool) {
	sg, err := h.store.Signs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return nil, false
	}
	return sg, true
}

func (h *SignHandler) nameTaken(name, exceptID string) (bool, error) {
	existing, err := h.store.Signs().GetByName(name)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != exceptID, nil
}

// create handles POST /api/signs.
func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !validSignName(name) {
		writeError(w, http.StatusBadRequest, "Name is reserved")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}

	taken, err := h.nameTaken(name, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check sign name")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "Sign name already exists")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	sg := &store.Sign{
		ID:        uuid.New().String(),
		Name:      name,
		Tolerance: tolerance,
	}
	if err := h.store.Signs().Create(sg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sign")
		return
	}

	writeJSON(w, http.StatusCreated, toSignResponse(sg))
}

// update handles PUT /api/signs/{id}.
func (h *SignHandler) update(w http.ResponseWriter, r *http.Request) {
	sg, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req updateSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		if !validSignName(name) {
			writeError(w, http.StatusBadRequest, "Name is reserved")
			return
		}
		taken, err := h.nameTaken(name, sg.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to check sign name")
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "Sign name already exists")
			return
		}
		sg.Name = name
	}
	if req.Tolerance != nil {
		if *req.Tolerance < 0 {
			writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
			return
		}
		sg.Tolerance = *req.Tolerance
	}

	if err := h.store.Signs().Update(sg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update sign")
		return
	}
	h.trainer.RefreshSign(sg)

	writeJSON(w, http.StatusOK, toSignResponse(sg))
}

// delete handles DELETE /api/signs/{id}.
func (h *SignHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.Signs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sign")
		return
	}
	h.trainer.ForgetSign(id)

	w.WriteHeader(http.StatusNoContent)
}

// train handles POST /api/signs/{id}/train.
func (h *SignHandler) train(w http.ResponseWriter, r *http.Request) {
	sg, err := h.trainer.TrainSign(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Sign not found")
		return
	case errors.Is(err, gesture.ErrNoSamples):
		writeError(w, http.StatusBadRequest, "Sign has no samples")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to train sign")
		return
	}

	writeJSON(w, http.StatusOK, toSignResponse(sg))
}
