package portfolio

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers provides HTTP handlers for portfolio valuation endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/by-custodian", h.ByCustodian)
		r.Get("/by-asset-class", h.ByAssetClass)
		r.Get("/evolution", h.Evolution)
	})
}

// Summary handles GET /summary - consolidated positions and totals
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build portfolio summary")
		respondError(w, http.StatusInternalServerError, "failed to build portfolio summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ByCustodian handles GET /by-custodian
func (h *Handlers) ByCustodian(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ByCustodian(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to group by custodian")
		respondError(w, http.StatusInternalServerError, "failed to group by custodian")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// ByAssetClass handles GET /by-asset-class
func (h *Handlers) ByAssetClass(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ByAssetClass(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to group by asset class")
		respondError(w, http.StatusInternalServerError, "failed to group by asset class")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// Evolution handles GET /evolution - date-sampled value series
func (h *Handlers) Evolution(w http.ResponseWriter, r *http.Request) {
	evo, err := h.service.Evolution(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build evolution series")
		respondError(w, http.StatusInternalServerError, "failed to build evolution series")
		return
	}
	respondJSON(w, http.StatusOK, evo)
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
