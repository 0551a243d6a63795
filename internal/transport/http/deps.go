package httptransport

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/app"
	approvalhandler "github.com/blastheart1/signed-contract-parser-sub003/internal/approval/handler"
	authhandler "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/handler"
	contracthandler "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/handler"
	historyhandler "github.com/blastheart1/signed-contract-parser-sub003/internal/history/handler"
	ordershandler "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/handler"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/metrics"
	vendorshandler "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/handler"
)

// DepsFromApp builds every handler over the services in a.
func DepsFromApp(a *app.App, reg prometheus.Registerer, gatherer prometheus.Gatherer) Deps {
	logger := a.Logger
	return Deps{
		Logger:         logger,
		Metrics:        metrics.New(reg),
		Gatherer:       gatherer,
		Authenticator:  a.Auth,
		Health:         a.Health,
		RequestTimeout: a.Config.RequestTimeout,

		Auth: authhandler.New(a.Auth, logger, authhandler.WithSecureCookie(a.Config.Auth.SecureCookies)),
		Contracts: contracthandler.New(a.Parser, a.Orders, logger,
			contracthandler.WithMetrics(a.Metrics.Contract),
			contracthandler.WithAddenda(a.Addenda),
		),
		Orders:    ordershandler.New(a.Orders, a.Exporter, logger),
		History:   historyhandler.New(a.History, logger),
		Vendors:   vendorshandler.New(a.Vendors, logger),
		Approvals: approvalhandler.New(a.Approvals, logger),
	}
}
