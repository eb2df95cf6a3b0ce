package transactions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Handlers provides HTTP handlers for transaction endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new transactions handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "transactions").Logger(),
	}
}

// RegisterRoutes registers all transaction routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET / - all transactions with live valuation figures
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	enriched, err := h.service.ListEnriched(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, enriched)
}

// Get handles GET /{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	txn, err := h.service.Get(id)
	if err != nil {
		h.respondError(w, err, "failed to get transaction")
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse(txn))
}

// Create handles POST /
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	txn, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err, "failed to create transaction")
		return
	}
	respondJSON(w, http.StatusCreated, transactionResponse(txn))
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
	txn, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err, "failed to update transaction")
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse(txn))
}

// Delete handles DELETE /{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(id); err != nil {
		h.respondError(w, err, "failed to delete transaction")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
}

// transactionResponse attaches the formatted date to a stored transaction.
func transactionResponse(txn *domain.Transaction) map[string]any {
	raw, _ := json.Marshal(txn)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	out["date"] = txn.DateString()
	return out
}

func (h *Handlers) respondError(w http.ResponseWriter, err error, msg string) {
	switch {
	case domain.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "transaction not found")
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
