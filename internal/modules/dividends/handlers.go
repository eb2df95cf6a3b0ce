package dividends

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Handlers provides HTTP handlers for dividend endpoints
type Handlers struct {
	service *Service
	feed    FeedProvider
	log     zerolog.Logger
}

// NewHandlers creates a new dividends handlers instance
func NewHandlers(service *Service, feed FeedProvider, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		feed:    feed,
		log:     log.With().Str("handler", "dividends").Logger(),
	}
}

// RegisterRoutes registers all dividend routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/dividends", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/expected", h.Expected)
		r.Post("/sync", h.Sync)
		r.Get("/summary/{year}", h.Summary)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET / - all records, optionally filtered by ?year=
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	var (
		records []domain.DividendRecord
		err     error
	)
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, parseErr := strconv.Atoi(yearStr)
		if parseErr != nil || year < 1900 || year > 2200 {
			respondError(w, http.StatusBadRequest, "invalid year")
			return
		}
		records, err = h.service.ListByYear(year)
	} else {
		records, err = h.service.List()
	}
	if err != nil {
		h.respondError(w, err, "failed to list dividends")
		return
	}

	out := make([]map[string]any, 0, len(records))
	for i := range records {
		out = append(out, dividendResponse(&records[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	record, err := h.service.Get(id)
	if err != nil {
		h.respondError(w, err, "failed to get dividend")
		return
	}
	respondJSON(w, http.StatusOK, dividendResponse(record))
}

// Create handles POST /
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	record, err := h.service.Create(input)
	if err != nil {
		h.respondError(w, err, "failed to create dividend")
		return
	}
	respondJSON(w, http.StatusCreated, dividendResponse(record))
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
	record, err := h.service.Update(id, input)
	if err != nil {
		h.respondError(w, err, "failed to update dividend")
		return
	}
	respondJSON(w, http.StatusOK, dividendResponse(record))
}

// Delete handles DELETE /{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(id); err != nil {
		h.respondError(w, err, "failed to delete dividend")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "dividend deleted"})
}

// Summary handles GET /summary/{year}
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 2200 {
		respondError(w, http.StatusBadRequest, "invalid year")
		return
	}
	summary, err := h.service.Summary(r.Context(), year)
	if err != nil {
		h.respondError(w, err, "failed to build dividend summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Expected handles GET /expected - projected annual income
func (h *Handlers) Expected(w http.ResponseWriter, r *http.Request) {
	expected, err := h.service.Expected(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to project dividend income")
		return
	}
	respondJSON(w, http.StatusOK, expected)
}

// Sync handles POST /sync - pull feed events into pending records
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncFromFeed(r.Context(), h.feed)
	if err != nil {
		h.respondError(w, err, "failed to sync dividends")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// dividendResponse attaches the formatted payment date to a stored record.
func dividendResponse(record *domain.DividendRecord) map[string]any {
	raw, _ := json.Marshal(record)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	out["payment_date"] = record.PaymentDate.Format(domain.DateLayout)
	out["created_at"] = record.CreatedAt.Format(time.RFC3339)
	return out
}

func (h *Handlers) respondError(w http.ResponseWriter, err error, msg string) {
	switch {
	case domain.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "dividend not found")
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
