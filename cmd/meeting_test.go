package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/breeze-cli/config"
	brerrors "github.com/otherjamesbrown/breeze-cli/pkg/errors"
	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
	"github.com/otherjamesbrown/breeze-cli/pkg/meeting"
	"github.com/otherjamesbrown/breeze-cli/pkg/storage"
)

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

const testPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"

// mockMeetingConfig creates a configuration backed by the memory slot.
func mockMeetingConfig() *config.CLIConfig {
	cfg := config.DefaultConfig()
	cfg.Storage = storage.BackendMemory
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newTestStore() *meeting.Store {
	return meeting.NewStore(meeting.NewMemoryRepository(),
		meeting.WithLogger(logging.NewNopLogger()),
		meeting.WithClock(func() time.Time { return testNow }))
}

// createMeetingTestDeps creates test dependencies sharing one store.
func createMeetingTestDeps(cfg *config.CLIConfig, store *meeting.Store) (*MeetingCommandDeps, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &MeetingCommandDeps{
		LoadConfig: func() (*config.CLIConfig, error) {
			return cfg, nil
		},
		OpenRuntime: func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error) {
			return NewMemoryRuntime(cfg, store), nil
		},
		Out: out,
	}, out
}

func runMeetingCmd(t *testing.T, deps *MeetingCommandDeps, args ...string) error {
	t.Helper()
	cmd := NewMeetingCommand(deps)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(testPDF), 0600))
	return path
}

func TestMeetingCommand_Structure(t *testing.T) {
	cmd := NewMeetingCommand(nil)

	assert.Equal(t, "meeting", cmd.Use)
	assert.Contains(t, cmd.Aliases, "meetings")

	want := []string{"list", "show", "create", "start", "stop", "set-status"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("output"))
}

func TestMeetingCreate(t *testing.T) {
	store := newTestStore()
	deps, out := createMeetingTestDeps(mockMeetingConfig(), store)

	err := runMeetingCmd(t, deps, "create",
		"--link", "https://meet.example.com/abc",
		"--document", writePDF(t, "cv.pdf"),
		"--title", "Backend interview")
	require.NoError(t, err)

	meetings := store.List(context.Background())
	require.Len(t, meetings, 1)
	assert.Equal(t, "cv.pdf", meetings[0].DocumentName)
	assert.Equal(t, "Backend interview", meetings[0].Title)
	assert.Equal(t, meeting.StatusWaiting, meetings[0].Status)
	assert.Contains(t, out.String(), "Created meeting "+meetings[0].ID)
}

func TestMeetingCreate_Validation(t *testing.T) {
	textFile := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(textFile, []byte("just some notes"), 0600))

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "missing link",
			args:    []string{"create", "--document", writePDF(t, "cv.pdf")},
			wantMsg: meeting.MsgLinkRequired,
		},
		{
			name:    "missing document",
			args:    []string{"create", "--link", "https://x"},
			wantMsg: meeting.MsgDocumentRequired,
		},
		{
			name:    "not a pdf despite extension",
			args:    []string{"create", "--link", "https://x", "--document", textFile},
			wantMsg: meeting.MsgPDFOnly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			deps, _ := createMeetingTestDeps(mockMeetingConfig(), store)

			err := runMeetingCmd(t, deps, tt.args...)
			require.Error(t, err)
			assert.True(t, brerrors.IsValidation(err))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Empty(t, store.List(context.Background()))
		})
	}
}

func TestMeetingCreate_MissingFile(t *testing.T) {
	deps, _ := createMeetingTestDeps(mockMeetingConfig(), newTestStore())

	err := runMeetingCmd(t, deps, "create", "--link", "https://x", "--document", filepath.Join(t.TempDir(), "gone.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening document")
}

func TestMeetingList(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	a, err := store.Create(ctx, meeting.NewMeeting{Link: "https://a", DocumentName: "a.pdf", Title: "First"})
	require.NoError(t, err)
	b, err := store.Create(ctx, meeting.NewMeeting{Link: "https://b", DocumentName: "b.pdf"})
	require.NoError(t, err)
	_, err = store.Start(ctx, b.ID)
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		deps, out := createMeetingTestDeps(mockMeetingConfig(), store)
		require.NoError(t, runMeetingCmd(t, deps, "list"))

		assert.Contains(t, out.String(), "Meetings (2):")
		assert.Contains(t, out.String(), a.ID)
		assert.Contains(t, out.String(), "First")
		assert.Contains(t, out.String(), "Active")
	})

	t.Run("json", func(t *testing.T) {
		deps, out := createMeetingTestDeps(mockMeetingConfig(), store)
		require.NoError(t, runMeetingCmd(t, deps, "list", "-o", "json"))

		var got struct {
			Meetings []meeting.StoredMeeting `json:"meetings"`
			Count    int                     `json:"count"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, 2, got.Count)
		assert.Equal(t, a.ID, got.Meetings[0].ID)
		assert.Equal(t, b.ID, got.Meetings[1].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		deps, out := createMeetingTestDeps(mockMeetingConfig(), store)
		require.NoError(t, runMeetingCmd(t, deps, "list", "--status", "active", "-o", "json"))
		assert.Contains(t, out.String(), b.ID)
		assert.NotContains(t, out.String(), a.ID)
	})

	t.Run("bad status filter", func(t *testing.T) {
		deps, _ := createMeetingTestDeps(mockMeetingConfig(), store)
		assert.Error(t, runMeetingCmd(t, deps, "list", "--status", "paused"))
	})

	t.Run("bad output format", func(t *testing.T) {
		deps, _ := createMeetingTestDeps(mockMeetingConfig(), store)
		assert.Error(t, runMeetingCmd(t, deps, "list", "-o", "xml"))
	})
}

func TestMeetingList_Empty(t *testing.T) {
	deps, out := createMeetingTestDeps(mockMeetingConfig(), newTestStore())
	require.NoError(t, runMeetingCmd(t, deps, "list"))
	assert.Equal(t, "No meetings found.\n", out.String())
}

func TestMeetingShow(t *testing.T) {
	store := newTestStore()
	m, err := store.Create(context.Background(), meeting.NewMeeting{Link: "https://a", DocumentName: "cv.pdf"})
	require.NoError(t, err)

	t.Run("enriched text", func(t *testing.T) {
		deps, out := createMeetingTestDeps(mockMeetingConfig(), store)
		require.NoError(t, runMeetingCmd(t, deps, "show", m.ID))

		s := out.String()
		assert.Contains(t, s, "Meeting "+m.ID)
		assert.Contains(t, s, "Status:    Waiting")
		assert.Contains(t, s, "John Doe")
		assert.Contains(t, s, "Final score:    3 / 6")
		assert.Contains(t, s, "Overall score:  8.5")
		assert.Contains(t, s, "Full Interview Recording (30:50)")
	})

	t.Run("enriched json", func(t *testing.T) {
		deps, out := createMeetingTestDeps(mockMeetingConfig(), store)
		require.NoError(t, runMeetingCmd(t, deps, "show", m.ID, "-o", "json"))

		var got meeting.EnrichedMeeting
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, 3.0, got.FinalScore)
		assert.Len(t, got.PerformanceMetrics, 3)
	})

	t.Run("raw", func(t *testing.T) {
		deps, out := createMeetingTestDeps(mockMeetingConfig(), store)
		require.NoError(t, runMeetingCmd(t, deps, "show", m.ID, "--raw"))
		assert.NotContains(t, out.String(), "John Doe")
	})

	t.Run("not found", func(t *testing.T) {
		deps, _ := createMeetingTestDeps(mockMeetingConfig(), store)
		err := runMeetingCmd(t, deps, "show", "mt-missing0")
		require.Error(t, err)
		assert.True(t, brerrors.IsNotFound(err))
	})
}

func TestMeetingLifecycle(t *testing.T) {
	store := newTestStore()
	m, err := store.Create(context.Background(), meeting.NewMeeting{Link: "https://a", DocumentName: "cv.pdf"})
	require.NoError(t, err)

	deps, out := createMeetingTestDeps(mockMeetingConfig(), store)

	err = runMeetingCmd(t, deps, "stop", m.ID)
	require.Error(t, err)
	assert.True(t, brerrors.IsInvalidState(err))

	require.NoError(t, runMeetingCmd(t, deps, "start", m.ID))
	assert.Contains(t, out.String(), "is now active")

	require.NoError(t, runMeetingCmd(t, deps, "stop", m.ID))
	assert.Contains(t, out.String(), "is now stopped")

	require.NoError(t, runMeetingCmd(t, deps, "set-status", m.ID, "ACTIVE"))
	got, err := store.FindByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusActive, got.Status)

	err = runMeetingCmd(t, deps, "set-status", m.ID, "waiting")
	require.Error(t, err)
	assert.True(t, brerrors.IsValidation(err))
}

func TestMeetingCommand_MalformedID(t *testing.T) {
	tests := [][]string{
		{"show", "nope"},
		{"show", "mt-missing00", "--raw"},
		{"start", "dc-ABCD1234"},
		{"stop", "mt-12"},
		{"set-status", "mt-ABC/1234", "active"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			opened := false
			deps, _ := createMeetingTestDeps(mockMeetingConfig(), newTestStore())
			deps.OpenRuntime = func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error) {
				opened = true
				return nil, assert.AnError
			}

			err := runMeetingCmd(t, deps, args...)
			require.Error(t, err)
			assert.True(t, brerrors.IsValidation(err), "got %v", err)
			assert.False(t, opened, "store should not be opened for a malformed id")
		})
	}
}

func TestMeetingCommand_LoadConfigError(t *testing.T) {
	deps, _ := createMeetingTestDeps(mockMeetingConfig(), newTestStore())
	deps.LoadConfig = func() (*config.CLIConfig, error) {
		return nil, assert.AnError
	}

	err := runMeetingCmd(t, deps, "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestOutputMeetingListText_Truncates(t *testing.T) {
	var buf bytes.Buffer
	outputMeetingListText(&buf, []meeting.StoredMeeting{{
		ID:           "mt-abc",
		Title:        "A very long meeting title that keeps going and going",
		DocumentName: "document.pdf",
		Status:       meeting.StatusWaiting,
		CreatedAt:    testNow,
	}})
	assert.Contains(t, buf.String(), "A very long meeting title t...")
}
