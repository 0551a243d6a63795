package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
)

func TestWriteTimeoutFollowsRequestTimeout(t *testing.T) {
	srv := New(config.Server{Addr: ":9000", RequestTimeout: time.Minute}, http.NotFoundHandler())
	assert.Equal(t, ":9000", srv.Addr)
	assert.Equal(t, time.Minute+writeSlack, srv.WriteTimeout)

	srv = New(config.Server{Addr: ":9000"}, http.NotFoundHandler())
	assert.Equal(t, 90*time.Second, srv.WriteTimeout)
}
