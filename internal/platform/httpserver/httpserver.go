package httpserver

import (
	"net/http"
	"time"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
)

// writeSlack is added on top of the per-request timeout so the handler can
// still write its 504 before the connection is cut.
const writeSlack = 10 * time.Second

// New builds the API server. Uploads are bounded by the parser's message
// limit, so a fixed read timeout is enough.
func New(cfg config.Server, handler http.Handler) *http.Server {
	write := cfg.RequestTimeout + writeSlack
	if cfg.RequestTimeout <= 0 {
		write = 90 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
