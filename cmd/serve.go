package cmd

import (
	"context"
	"fmt"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/breeze-cli/config"
	"github.com/otherjamesbrown/breeze-cli/pkg/api"
	"github.com/otherjamesbrown/breeze-cli/pkg/db"
	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
)

var serveAddress string

// ServeCommandDeps holds dependencies for the serve command.
type ServeCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	OpenRuntime func(ctx context.Context, cfg *config.CLIConfig, reg prometheus.Registerer) (*Runtime, error)
	Serve       func(ctx context.Context, srv *api.Server, addr string) error
}

// DefaultServeDeps returns default dependencies for production use.
func DefaultServeDeps() *ServeCommandDeps {
	return &ServeCommandDeps{
		LoadConfig:  config.LoadConfig,
		OpenRuntime: OpenRuntime,
		Serve: func(ctx context.Context, srv *api.Server, addr string) error {
			return srv.ListenAndServe(ctx, addr)
		},
	}
}

// NewServeCommand creates the serve command.
func NewServeCommand(deps *ServeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultServeDeps()
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the meeting API over HTTP",
		Long: `Run an HTTP server exposing the meeting store.

Routes:
  GET  /api/meetings               list meetings
  POST /api/meetings               create (multipart "link" + PDF "file" [+ "title"], or JSON)
  GET  /api/meetings/{id}          meeting detail with results
  POST /api/meetings/{id}/start    start a meeting
  POST /api/meetings/{id}/stop     stop a meeting
  PUT  /api/meetings/{id}/status   set status: {"status": "active"}
  GET  /metrics                    Prometheus metrics
  GET  /version                    build information
  GET  /live, /ready               liveness and readiness

Examples:
  breeze serve
  breeze serve --addr 0.0.0.0:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), deps)
		},
	}

	cmd.Flags().StringVar(&serveAddress, "addr", "", "Listen address (default from server.address)")

	return cmd
}

func runServe(ctx context.Context, deps *ServeCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	addr := cfg.Server.Address
	if serveAddress != "" {
		addr = serveAddress
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	openCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	rt, err := deps.OpenRuntime(openCtx, cfg, reg)
	cancel()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer rt.Close()

	if rt.Pool != nil {
		if _, err := db.RegisterPoolStats(reg, rt.Pool, "breeze"); err != nil {
			return fmt.Errorf("registering pool metrics: %w", err)
		}
	}

	opts := []api.Option{
		api.WithRegistry(reg),
		api.WithLogger(logging.MustGlobal()),
		api.WithReadinessCheck("storage", healthcheck.Timeout(func() error {
			return rt.Slot.Ping(context.Background())
		}, cfg.Timeout)),
	}
	if cfg.Events.Enabled && rt.Events != nil {
		opts = append(opts, api.WithReadinessCheck("events", healthcheck.Timeout(func() error {
			return rt.Events.Ping(context.Background()).Err()
		}, cfg.Timeout)))
	}

	return deps.Serve(ctx, api.NewServer(rt.Store, opts...), addr)
}
