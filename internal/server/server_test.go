package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledger-engine/internal/config"
	"github.com/congo-pay/ledger-engine/internal/logging"
	"github.com/congo-pay/ledger-engine/internal/routes"
)

func TestServerEnforcesUploadLimit(t *testing.T) {
	srv, err := New(routes.Deps{Cfg: config.Config{AppEnv: "test", MaxUploadBytes: 64}, Logger: logging.Discard()})
	require.NoError(t, err)

	body := "type,client,tx,amount\n" + strings.Repeat("deposit,1,1,1.0\n", 10)
	resp, err := srv.app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(body)))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestServerRejectsMissingBackendsInProduction(t *testing.T) {
	_, err := New(routes.Deps{Cfg: config.Config{AppEnv: "production", MaxUploadBytes: 1024}, Logger: logging.Discard()})
	assert.Error(t, err)
}
