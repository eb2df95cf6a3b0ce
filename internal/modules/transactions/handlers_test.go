package transactions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context { return context.Background() }

func newTestRouter(t *testing.T) (*chi.Mux, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	handlers := NewHandlers(svc, zerolog.Nop())

	router := chi.NewRouter()
	handlers.RegisterRoutes(router)
	return router, svc
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleCreateTransaction(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "POST", "/transactions/", Input{
		Ticker: "NAFTRAC", Market: "MX", Date: "2024-01-10", Price: 52.30, Quantity: 100,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NAFTRAC.MX", resp["ticker"])
	assert.Equal(t, "2024-01-10", resp["date"])
	assert.NotZero(t, resp["id"])
}

func TestHandleCreateValidationIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "POST", "/transactions/", Input{
		Ticker: "NAFTRAC", Market: "MX", Date: "2024-01-10", Price: -1, Quantity: 100,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "price")
}

func TestHandleCreateBadJSONIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("POST", "/transactions/", bytes.NewBufferString("{nope"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListTransactions(t *testing.T) {
	router, svc := newTestRouter(t)

	_, err := svc.Create(testCtx(), buyInput("NAFTRAC", "2024-01-10", 52.30, 100))
	require.NoError(t, err)

	w := doJSON(t, router, "GET", "/transactions/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "NAFTRAC.MX", resp[0]["ticker"])
	assert.Equal(t, 5230.0, resp[0]["invested_value"])
	assert.Nil(t, resp[0]["current_value"], "unpriced rows serialize null, not zero")
}

func TestHandleGetUnknownIs404(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "GET", "/transactions/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleBadIDIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "GET", "/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpdateAndDelete(t *testing.T) {
	router, svc := newTestRouter(t)

	txn, err := svc.Create(testCtx(), buyInput("NAFTRAC", "2024-01-10", 52.30, 100))
	require.NoError(t, err)

	w := doJSON(t, router, "PUT", "/transactions/1", buyInput("NAFTRAC", "2024-01-10", 53.00, 100))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 53.00, resp["price"])

	w = doJSON(t, router, "DELETE", "/transactions/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = svc.Get(txn.ID)
	assert.Error(t, err)
}
