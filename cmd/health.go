package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/breeze-cli/config"
	"github.com/otherjamesbrown/breeze-cli/pkg/db"
)

// HealthReport is the result of `breeze health`.
type HealthReport struct {
	Overall   string                 `json:"overall" yaml:"overall"`
	Backend   string                 `json:"backend" yaml:"backend"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks" yaml:"checks"`
	Meetings  int                    `json:"meetings" yaml:"meetings"`
	Database  *db.HealthStatus       `json:"database,omitempty" yaml:"database,omitempty"`
}

// CheckStatus is the outcome of a single check.
type CheckStatus struct {
	Status  string `json:"status" yaml:"status"`
	Latency string `json:"latency,omitempty" yaml:"latency,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

var healthOutputFormat string

// HealthCommandDeps holds dependencies for the health command.
type HealthCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	OpenRuntime func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error)
	Out         io.Writer
}

// DefaultHealthDeps returns default dependencies for production use.
func DefaultHealthDeps() *HealthCommandDeps {
	return &HealthCommandDeps{
		LoadConfig: config.LoadConfig,
		OpenRuntime: func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error) {
			return OpenRuntime(ctx, cfg, nil)
		},
		Out: os.Stdout,
	}
}

// NewHealthCommand creates the health command.
func NewHealthCommand(deps *HealthCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultHealthDeps()
	}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the storage backend and event bus",
		Long: `Check that the configured storage backend is reachable and that stored
meetings can be read.

Checks:
  - storage: the slot backend responds to a ping
  - database: connection pool statistics (postgres only)
  - events: the Redis server used for event publishing responds (events.enabled only)

Exits non-zero when any check fails.

Examples:
  breeze health
  breeze health -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd.Context(), deps)
		},
	}

	cmd.Flags().StringVarP(&healthOutputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runHealth(ctx context.Context, deps *HealthCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	format, err := resolveOutputFormat(cfg, healthOutputFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	report := HealthReport{
		Backend:   cfg.Storage,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckStatus),
	}

	rt, err := deps.OpenRuntime(ctx, cfg)
	if err != nil {
		report.Checks["storage"] = CheckStatus{Status: statusUnhealthy, Error: err.Error()}
	} else {
		defer rt.Close()
		report.Checks["storage"] = timedCheck(func() error { return rt.Slot.Ping(ctx) })

		if rt.Pool != nil {
			report.Database = db.Check(ctx, rt.Pool)
		}
		if cfg.Events.Enabled && rt.Events != nil {
			report.Checks["events"] = timedCheck(func() error { return rt.Events.Ping(ctx).Err() })
		}
		report.Meetings = len(rt.Store.List(ctx))
	}

	failed := 0
	for _, c := range report.Checks {
		if c.Status != statusHealthy {
			failed++
		}
	}
	if report.Database != nil && !report.Database.Healthy {
		failed++
	}
	report.Overall = statusHealthy
	if failed > 0 {
		report.Overall = statusUnhealthy
	}

	w := deps.Out
	if w == nil {
		w = os.Stdout
	}
	if ok, err := writeStructured(w, format, report); ok {
		if err != nil {
			return err
		}
	} else {
		outputHealthText(w, report)
	}

	if failed > 0 {
		return fmt.Errorf("%d health check(s) failed", failed)
	}
	return nil
}

func timedCheck(check func() error) CheckStatus {
	start := time.Now()
	err := check()
	status := CheckStatus{Status: statusHealthy, Latency: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		status.Status = statusUnhealthy
		status.Error = err.Error()
	}
	return status
}

func outputHealthText(w io.Writer, r HealthReport) {
	fmt.Fprintf(w, "Overall: %s\n", r.Overall)
	fmt.Fprintf(w, "Backend: %s\n\n", r.Backend)

	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := r.Checks[name]
		line := fmt.Sprintf("  %-10s %s", name, c.Status)
		if c.Latency != "" {
			line += fmt.Sprintf(" (%s)", c.Latency)
		}
		if c.Error != "" {
			line += ": " + c.Error
		}
		fmt.Fprintln(w, line)
	}

	if d := r.Database; d != nil {
		fmt.Fprintf(w, "  %-10s healthy=%t conns=%d idle=%d acquired=%d\n",
			"database", d.Healthy, d.TotalConns, d.IdleConns, d.AcquiredConns)
		if d.Error != "" {
			fmt.Fprintf(w, "             %s\n", d.Error)
		}
	}

	if r.Overall == statusHealthy {
		fmt.Fprintf(w, "\nMeetings stored: %d\n", r.Meetings)
	}
}
