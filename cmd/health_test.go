package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/breeze-cli/config"
)

func runHealthCmd(t *testing.T, deps *HealthCommandDeps, args ...string) error {
	t.Helper()
	cmd := NewHealthCommand(deps)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

func TestHealth_Healthy(t *testing.T) {
	store := newTestStore()
	out := &bytes.Buffer{}
	deps := &HealthCommandDeps{
		LoadConfig: func() (*config.CLIConfig, error) { return mockMeetingConfig(), nil },
		OpenRuntime: func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error) {
			return NewMemoryRuntime(cfg, store), nil
		},
		Out: out,
	}

	require.NoError(t, runHealthCmd(t, deps, "-o", "json"))

	var report HealthReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, statusHealthy, report.Overall)
	assert.Equal(t, "memory", report.Backend)
	assert.Equal(t, statusHealthy, report.Checks["storage"].Status)
	assert.Nil(t, report.Database)
}

func TestHealth_OpenFails(t *testing.T) {
	out := &bytes.Buffer{}
	deps := &HealthCommandDeps{
		LoadConfig: func() (*config.CLIConfig, error) { return mockMeetingConfig(), nil },
		OpenRuntime: func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error) {
			return nil, assert.AnError
		},
		Out: out,
	}

	err := runHealthCmd(t, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 health check(s) failed")
	assert.Contains(t, out.String(), "Overall: unhealthy")
	assert.Contains(t, out.String(), assert.AnError.Error())
}

func TestHealth_RealMemoryBackend(t *testing.T) {
	out := &bytes.Buffer{}
	deps := DefaultHealthDeps()
	deps.LoadConfig = func() (*config.CLIConfig, error) { return mockMeetingConfig(), nil }
	deps.Out = out

	require.NoError(t, runHealthCmd(t, deps))
	assert.Contains(t, out.String(), "Overall: healthy")
	assert.Contains(t, out.String(), "Meetings stored: 0")
}
