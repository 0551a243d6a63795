package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/app"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	app    *app.App
	router http.Handler
	admin  string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	t := s.T()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "correct-horse-battery")
	cfg := config.FromEnv()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	a, err := app.New(ctx, cfg, logger, reg)
	s.Require().NoError(err)
	s.T().Cleanup(a.Close)

	created, generated, err := a.Auth.Bootstrap(ctx, cfg.Auth.BootstrapAdminPassword)
	s.Require().NoError(err)
	s.Require().True(created)
	s.Require().Empty(generated)

	s.app = a
	s.router = NewRouter(DepsFromApp(a, reg, reg))
	s.admin = s.login("admin", "correct-horse-battery")
}

func (s *RouterSuite) do(method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	req := testutil.WithBearer(httptest.NewRequest(method, path, body), token)
	return testutil.DoRequest(s.router, req)
}

func (s *RouterSuite) doJSON(method, path, token string, in, out any) int {
	req := testutil.WithBearer(testutil.NewJSONRequest(s.T(), method, path, in), token)
	rec := testutil.DoRequest(s.router, req)
	if out != nil && rec.Code < 300 {
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(out), rec.Body.String())
	}
	return rec.Code
}

func (s *RouterSuite) login(username, password string) string {
	var res struct {
		Token string `json:"token"`
	}
	code := s.doJSON(http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password}, &res)
	s.Require().Equal(http.StatusOK, code)
	s.Require().NotEmpty(res.Token)
	return res.Token
}

func (s *RouterSuite) TestHealthAndMetricsArePublic() {
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	s.do(http.MethodGet, "/customers", s.admin, nil)
	rec = s.do(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "http_requests_total")
}

func (s *RouterSuite) TestRequiresSession() {
	rec := s.do(http.MethodGet, "/customers", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/customers", "not-a-token", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/nowhere", s.admin, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("not_found", testutil.ErrorCode(s.T(), rec))
}

func (s *RouterSuite) TestImportToApprovalFlow() {
	eml, err := os.ReadFile(filepath.Join("..", "..", "contract", "parser", "testdata", "contract_qp.eml"))
	s.Require().NoError(err)

	var imported struct {
		Order struct {
			ID      string `json:"id"`
			OrderNo string `json:"order_no"`
		} `json:"order"`
		Items []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"items"`
	}
	rec := s.do(http.MethodPost, "/contracts/import", s.admin, bytes.NewReader(eml))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&imported))
	s.Equal("10452", imported.Order.OrderNo)

	var lineID string
	for _, it := range imported.Items {
		if it.Type == "item" {
			lineID = it.ID
			break
		}
	}
	s.Require().NotEmpty(lineID)

	var vendor struct {
		ID string `json:"id"`
	}
	s.Require().Equal(http.StatusCreated, s.doJSON(http.MethodPost, "/vendors", s.admin,
		map[string]any{"name": "Pump Pros"}, &vendor))
	s.Require().Equal(http.StatusCreated, s.doJSON(http.MethodPost, "/admin/users", s.admin, map[string]any{
		"username": "pumps", "password": "vendor-password", "role": "vendor", "vendor_id": vendor.ID,
	}, nil))
	vendorToken := s.login("pumps", "vendor-password")

	var approval struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	}
	s.Require().Equal(http.StatusCreated, s.doJSON(http.MethodPost, "/approvals", s.admin, map[string]any{
		"order_id": imported.Order.ID, "vendor_id": vendor.ID, "item_ids": []string{lineID},
	}, &approval))
	s.Equal("draft", approval.Stage)

	// Vendors only see the approval surface.
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/customers", vendorToken, nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/admin/users", vendorToken, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/auth/me", vendorToken, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/approvals/"+approval.ID, vendorToken, nil).Code)

	rec = s.do(http.MethodGet, "/orders/"+imported.Order.ID+"/history", s.admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.True(strings.Contains(rec.Body.String(), "approval_"), rec.Body.String())
}

func (s *RouterSuite) TestUnhealthyBackend() {
	d := DepsFromApp(s.app, prometheus.NewRegistry(), prometheus.NewRegistry())
	d.Health = func(context.Context) error { return errors.New("database: connection refused") }
	rec := httptest.NewRecorder()
	NewRouter(d).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(s.T(), http.StatusServiceUnavailable, rec.Code)
}

func TestDepsFromAppMountsEveryHandler(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	reg := prometheus.NewRegistry()
	a, err := app.New(context.Background(), config.FromEnv(), slog.New(slog.NewTextHandler(io.Discard, nil)), reg)
	require.NoError(t, err)
	defer a.Close()

	d := DepsFromApp(a, reg, reg)
	assert.NotNil(t, d.Auth)
	assert.NotNil(t, d.Contracts)
	assert.NotNil(t, d.Orders)
	assert.NotNil(t, d.History)
	assert.NotNil(t, d.Vendors)
	assert.NotNil(t, d.Approvals)
}

func (s *RouterSuite) TestRepeatedBadLoginsLockTheAccount() {
	creds := map[string]string{"username": "admin", "password": "wrong-password"}
	for range s.app.Config.Auth.MaxLoginFailures {
		s.Equal(http.StatusUnauthorized, s.doJSON(http.MethodPost, "/auth/login", "", creds, nil))
	}
	creds["password"] = "correct-horse-battery"
	s.Equal(http.StatusTooManyRequests, s.doJSON(http.MethodPost, "/auth/login", "", creds, nil))
}
