package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	approvalhandler "github.com/blastheart1/signed-contract-parser-sub003/internal/approval/handler"
	authhandler "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/handler"
	authmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	contracthandler "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/handler"
	historyhandler "github.com/blastheart1/signed-contract-parser-sub003/internal/history/handler"
	ordershandler "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/handler"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/middleware"
	vendorshandler "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/handler"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/middleware/metadata"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/middleware/request"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/middleware/requesttime"
)

// Deps lists what the router mounts. Handlers stay thin and delegate to
// domain services, so transport concerns remain isolated here.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Authenticator  middleware.Authenticator
	Health         func(ctx context.Context) error
	RequestTimeout time.Duration

	Auth      *authhandler.Handler
	Contracts *contracthandler.Handler
	Orders    *ordershandler.Handler
	History   *historyhandler.Handler
	Vendors   *vendorshandler.Handler
	Approvals *approvalhandler.Handler
}

// NewRouter wires every endpoint. Vendor users reach only /auth/me and the
// approval routes; the approval service scopes them to their own vendor.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	if d.RequestTimeout > 0 {
		r.Use(request.Timeout(d.RequestTimeout))
	}

	r.Get("/healthz", healthz(d.Health))
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	d.Auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(d.Authenticator, d.Logger))
		d.Auth.RegisterAuthenticated(r)
		d.Approvals.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(authmodels.StaffRoles()...))
			d.Contracts.Register(r)
			d.Orders.Register(r)
			d.History.Register(r)
			d.Vendors.Register(r)
		})
		r.With(middleware.RequireRole(authmodels.ManagerRoles()...)).Group(d.Vendors.RegisterManagement)
		r.With(middleware.RequireRole(authmodels.RoleAdmin)).Group(d.Auth.RegisterAdmin)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
