package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/service"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/store"
)

func TestVendorRoutes(t *testing.T) {
	h := New(service.New(store.NewInMemory(), nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterManagement(r)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
		return rec
	}

	rec := do(http.MethodPost, "/vendors", `{"name":"Aqua Plaster","category":"plaster"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v models.Vendor
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	rec = do(http.MethodPost, "/vendors", `{"name":"aqua plaster"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(http.MethodPatch, "/vendors/"+v.ID.String(), `{"status":"paused"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPatch, "/vendors/"+v.ID.String(), `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/vendors?status=inactive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list vendorsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Vendors, 1)
	assert.Equal(t, "Aqua Plaster", list.Vendors[0].Name)

	rec = do(http.MethodGet, "/vendors/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
