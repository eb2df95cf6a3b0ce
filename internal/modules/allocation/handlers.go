package allocation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Handlers provides HTTP handlers for allocation endpoints
type Handlers struct {
	service *Service
	repo    *Repository
	log     zerolog.Logger
}

// NewHandlers creates a new allocation handlers instance
func NewHandlers(service *Service, repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// RegisterRoutes registers all allocation routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Get("/classes", h.ListClasses)
		r.Get("/report", h.GetReport)
		r.Get("/recommendations", h.GetRecommendations)
		r.Post("/suggest", h.SuggestInvestment)
		r.Get("/targets", h.GetTargets)
		r.Put("/targets", h.SetTargets)
	})
}

// ListClasses handles GET /classes - the model's buckets in display order
func (h *Handlers) ListClasses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Classes)
}

// GetReport handles GET /report - current vs target allocation
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build allocation report")
		respondError(w, http.StatusInternalServerError, "failed to build allocation report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetRecommendations handles GET /recommendations - rebalancing hints
func (h *Handlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.Recommendations(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build recommendations")
		respondError(w, http.StatusInternalServerError, "failed to build recommendations")
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

// SuggestRequest carries the amount to be distributed.
type SuggestRequest struct {
	Amount float64 `json:"amount"`
}

// SuggestInvestment handles POST /suggest - distribute a new contribution
// towards the most underweight buckets.
func (h *Handlers) SuggestInvestment(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	suggestions, err := h.service.SuggestInvestment(r.Context(), req.Amount)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build investment suggestion")
		respondError(w, http.StatusInternalServerError, "failed to build investment suggestion")
		return
	}
	respondJSON(w, http.StatusOK, suggestions)
}

// GetTargets handles GET /targets
func (h *Handlers) GetTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.repo.GetTargets()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load targets")
		respondError(w, http.StatusInternalServerError, "failed to load targets")
		return
	}
	respondJSON(w, http.StatusOK, targets)
}

// SetTargets handles PUT /targets - upsert target percentages per bucket
func (h *Handlers) SetTargets(w http.ResponseWriter, r *http.Request) {
	var targets map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&targets); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for class, pct := range targets {
		if err := h.repo.SetTarget(class, pct); err != nil {
			if domain.IsValidation(err) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.log.Error().Err(err).Str("class", class).Msg("failed to store target")
			respondError(w, http.StatusInternalServerError, "failed to store targets")
			return
		}
	}
	updated, err := h.repo.GetTargets()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to reload targets")
		respondError(w, http.StatusInternalServerError, "failed to reload targets")
		return
	}
	respondJSON(w, http.StatusOK, updated)
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
