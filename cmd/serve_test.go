package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/breeze-cli/config"
	"github.com/otherjamesbrown/breeze-cli/pkg/api"
)

func TestServe_WiresServer(t *testing.T) {
	var (
		gotServer *api.Server
		gotAddr   string
	)
	deps := DefaultServeDeps()
	deps.LoadConfig = func() (*config.CLIConfig, error) { return mockMeetingConfig(), nil }
	deps.Serve = func(ctx context.Context, srv *api.Server, addr string) error {
		gotServer, gotAddr = srv, addr
		return nil
	}

	cmd := NewServeCommand(deps)
	cmd.SetArgs([]string{"--addr", "127.0.0.1:9999"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.NotNil(t, gotServer)
	assert.Equal(t, "127.0.0.1:9999", gotAddr)

	router := gotServer.Router()
	get := func(path string) *httptest.ResponseRecorder {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		return resp
	}

	req := httptest.NewRequest(http.MethodPost, "/api/meetings",
		strings.NewReader(`{"link":"https://x","documentName":"cv.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	assert.Equal(t, http.StatusOK, get("/api/meetings").Code)
	assert.Equal(t, http.StatusOK, get("/ready").Code)

	metrics := get("/metrics").Body.String()
	assert.Contains(t, metrics, "breeze_store_operations_total")
	assert.Contains(t, metrics, "breeze_meetings_stored 1")
	assert.Contains(t, metrics, "go_goroutines")
}

func TestServe_DefaultAddressFromConfig(t *testing.T) {
	cfg := mockMeetingConfig()
	cfg.Server.Address = "localhost:7070"

	var gotAddr string
	deps := DefaultServeDeps()
	deps.LoadConfig = func() (*config.CLIConfig, error) { return cfg, nil }
	deps.Serve = func(ctx context.Context, srv *api.Server, addr string) error {
		gotAddr = addr
		return nil
	}

	cmd := NewServeCommand(deps)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "localhost:7070", gotAddr)
}
