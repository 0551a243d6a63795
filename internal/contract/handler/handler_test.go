package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/parser"
	omodels "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/testutil"
)

type stubImporter struct {
	got  *models.Contract
	opts omodels.ImportOptions
	err  error
}

func (s *stubImporter) ImportContract(_ context.Context, c *models.Contract, opts omodels.ImportOptions) (*omodels.OrderDetail, error) {
	s.got, s.opts = c, opts
	if s.err != nil {
		return nil, s.err
	}
	return &omodels.OrderDetail{Order: &omodels.Order{ID: id.NewOrderID(), OrderNo: c.Order.OrderNo}}, nil
}

type stubMerger struct{ added int }

func (m stubMerger) FetchAndMerge(_ context.Context, c *models.Contract) (int, error) {
	for i := 0; i < m.added; i++ {
		c.Items = append(c.Items, models.Item{Type: models.ItemLine, ProductService: "Addendum line"})
	}
	return m.added, nil
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "parser", "testdata", name))
	require.NoError(t, err)
	return b
}

func newRouter(imp Importer, opts ...Option) http.Handler {
	r := chi.NewRouter()
	New(parser.New(), imp, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...).Register(r)
	return r
}

func TestParseRawBody(t *testing.T) {
	router := newRouter(&stubImporter{})

	req := httptest.NewRequest(http.MethodPost, "/contracts/parse", bytes.NewReader(fixture(t, "contract_qp.eml")))
	req.Header.Set("Content-Type", "message/rfc822")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Contract struct {
			Order struct {
				OrderNo string `json:"order_no"`
			} `json:"order"`
		} `json:"contract"`
		AddendaMerged int `json:"addenda_merged"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "10452", body.Contract.Order.OrderNo)
	assert.Zero(t, body.AddendaMerged)
}

func TestParseMultipart(t *testing.T) {
	router := newRouter(&stubImporter{})

	req := testutil.NewUploadRequest(t, "/contracts/parse", "contract.eml", fixture(t, "contract_base64.eml"))
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/contracts/parse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseRejectsMissingOrderNumber(t *testing.T) {
	router := newRouter(&stubImporter{})

	req := httptest.NewRequest(http.MethodPost, "/contracts/parse", bytes.NewReader(fixture(t, "missing_order.eml")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Less(t, rec.Code, 500)
}

func TestFetchAddendaRequiresMerger(t *testing.T) {
	router := newRouter(&stubImporter{})

	req := httptest.NewRequest(http.MethodPost, "/contracts/parse?fetch_addenda=true", bytes.NewReader(fixture(t, "contract_qp.eml")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/contracts/parse?fetch_addenda=maybe", bytes.NewReader(fixture(t, "contract_qp.eml")))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport(t *testing.T) {
	imp := &stubImporter{}
	router := newRouter(imp, WithAddenda(stubMerger{added: 2}))

	req := httptest.NewRequest(http.MethodPost, "/contracts/import?overwrite=true&fetch_addenda=1", bytes.NewReader(fixture(t, "contract_qp.eml")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, imp.got)
	assert.True(t, imp.opts.Overwrite)
	assert.Equal(t, "Addendum line", imp.got.Items[len(imp.got.Items)-1].ProductService)

	var body struct {
		Order struct {
			OrderNo string `json:"order_no"`
		} `json:"order"`
		AddendaMerged int `json:"addenda_merged"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "10452", body.Order.OrderNo)
	assert.Equal(t, 2, body.AddendaMerged)
}

func TestImportConflict(t *testing.T) {
	router := newRouter(&stubImporter{err: dErrors.New(dErrors.CodeConflict, "order 10452 already exists")})

	req := httptest.NewRequest(http.MethodPost, "/contracts/import", bytes.NewReader(fixture(t, "contract_qp.eml")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
