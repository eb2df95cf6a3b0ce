package custodians

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Handlers provides HTTP handlers for custodian endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new custodians handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "custodians").Logger(),
	}
}

// RegisterRoutes registers all custodian routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/custodians", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/holdings", h.ListWithHoldings)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List()
	if err != nil {
		h.respondError(w, err, "failed to list custodians")
		return
	}
	respondJSON(w, http.StatusOK, all)
}

// ListWithHoldings handles GET /holdings - custodians with live values
func (h *Handlers) ListWithHoldings(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListWithHoldings(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to list custodian holdings")
		return
	}
	respondJSON(w, http.StatusOK, all)
}

// Get handles GET /{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(id)
	if err != nil {
		h.respondError(w, err, "failed to get custodian")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Create handles POST /
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.service.Create(input)
	if err != nil {
		h.respondError(w, err, "failed to create custodian")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// Update handles PUT /{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.service.Update(id, input)
	if err != nil {
		h.respondError(w, err, "failed to update custodian")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(id); err != nil {
		h.respondError(w, err, "failed to delete custodian")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "custodian deleted"})
}

func (h *Handlers) respondError(w http.ResponseWriter, err error, msg string) {
	switch {
	case domain.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "custodian not found")
	default:
		h.log.Error().Err(err).Msg(msg)
		respondError(w, http.StatusInternalServerError, msg)
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
