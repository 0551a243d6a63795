package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/service"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/store"
	cmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	hservice "github.com/blastheart1/signed-contract-parser-sub003/internal/history/service"
	hstore "github.com/blastheart1/signed-contract-parser-sub003/internal/history/store"
	omodels "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	oservice "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/service"
	ostore "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/store"
	vmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	vstore "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/store"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/testutil"
)

type fixture struct {
	router http.Handler
	order  *omodels.OrderDetail
	vendor *vmodels.Vendor
	actor  requestcontext.ActorInfo
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{actor: requestcontext.ActorInfo{UserID: id.NewUserID(), Name: "Dana PM", Role: "admin"}}
	ctx := requestcontext.WithActor(context.Background(), f.actor)
	recorder := hservice.New(hstore.NewInMemory())
	runner := txcontext.NewMemoryRunner()
	orders, items := ostore.NewInMemoryOrders(), ostore.NewInMemoryItems()
	vendors := vstore.NewInMemory()

	detail, err := oservice.New(oservice.Stores{
		Customers: ostore.NewInMemoryCustomers(), Orders: orders, Items: items, Invoices: ostore.NewInMemoryInvoices(),
	}, runner, recorder).ImportContract(ctx, &cmodels.Contract{
		Customer: cmodels.Customer{Name: "Jane Doe"},
		Order:    cmodels.Order{OrderNo: "77"},
		Items: []cmodels.Item{
			{Type: cmodels.ItemLine, ProductService: "Pump", Qty: decimal.NewFromInt(1), Rate: decimal.NewFromInt(900), Amount: decimal.NewFromInt(900)},
		},
	}, omodels.ImportOptions{})
	require.NoError(t, err)
	f.order = detail

	f.vendor = &vmodels.Vendor{ID: id.NewVendorID(), Name: "Pump Pros", Status: vmodels.StatusActive}
	require.NoError(t, vendors.Create(ctx, f.vendor))

	svc := service.New(service.Deps{Approvals: store.NewInMemory(), Orders: orders, Items: items, Vendors: vendors}, runner, recorder)
	r := chi.NewRouter()
	r.Use(testutil.ActorMiddleware(func() requestcontext.ActorInfo { return f.actor }))
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) models.Detail {
	t.Helper()
	var d models.Detail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	return d
}

func TestApprovalLifecycleOverHTTP(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/approvals", `{"order_id":"`+f.order.Order.ID.String()+`","vendor_id":"`+f.vendor.ID.String()+`","item_ids":["`+f.order.Items[0].ID.String()+`"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	d := decode(t, rec)
	base := "/approvals/" + d.ID.String()

	rec = f.do(http.MethodPost, base+"/send", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	f.actor = requestcontext.ActorInfo{UserID: id.NewUserID(), Name: "Vic", Role: "vendor", VendorID: f.vendor.ID}
	rec = f.do(http.MethodPut, base+"/items/"+d.Items[0].ID.String()+"/negotiated-amount", `{"amount":"850"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "-50", decode(t, rec).Totals.Delta.String())

	rec = f.do(http.MethodPost, base+"/send", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, base+"/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)

	f.actor = requestcontext.ActorInfo{UserID: id.NewUserID(), Name: "Dana PM", Role: "contract_manager"}
	rec = f.do(http.MethodPost, base+"/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StageApproved, decode(t, rec).Stage)

	rec = f.do(http.MethodPatch, base, `{"notes":"too late"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/approvals?stage=approved&vendor_id="+f.vendor.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list approvalsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list.Approvals, 1)
}

func TestBadIdentifiers(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/approvals/xyz", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/approvals?order_id=nope", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/approvals/"+id.NewApprovalID().String()+"/send", "").Code)
}
