// Package cmd provides CLI commands for the breeze tool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/breeze-cli/config"
	"github.com/otherjamesbrown/breeze-cli/pkg/meeting"
)

// Meeting command flags
var (
	meetingOutputFormat string
	meetingStatusFilter string
	meetingCreateLink   string
	meetingCreateDoc    string
	meetingCreateTitle  string
	meetingShowRaw      bool
)

// MeetingCommandDeps holds dependencies for meeting commands.
type MeetingCommandDeps struct {
	Config      *config.CLIConfig
	LoadConfig  func() (*config.CLIConfig, error)
	OpenRuntime func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error)
	Out         io.Writer
}

// DefaultMeetingDeps returns default dependencies for production use.
func DefaultMeetingDeps() *MeetingCommandDeps {
	return &MeetingCommandDeps{
		LoadConfig: config.LoadConfig,
		OpenRuntime: func(ctx context.Context, cfg *config.CLIConfig) (*Runtime, error) {
			return OpenRuntime(ctx, cfg, nil)
		},
		Out: os.Stdout,
	}
}

// NewMeetingCommand creates the root meeting command with all subcommands.
func NewMeetingCommand(deps *MeetingCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultMeetingDeps()
	}

	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Manage meetings",
		Long: `Create meetings, list them, view their results and move them through
their lifecycle.

A meeting starts out waiting. Starting it makes it active; stopping an active
meeting makes it stopped, and a stopped meeting can be started again.

Examples:
  # Create a meeting with the candidate's CV
  breeze meeting create --link https://meet.example.com/abc --document cv.pdf

  # List meetings
  breeze meeting list

  # Show a meeting's results
  breeze meeting show mt-1a2b3c4d

  # Output as JSON
  breeze meeting list -o json`,
		Aliases: []string{"meetings"},
	}

	cmd.PersistentFlags().StringVarP(&meetingOutputFormat, "output", "o", "", "Output format: text, json, yaml")

	cmd.AddCommand(newMeetingListCommand(deps))
	cmd.AddCommand(newMeetingShowCommand(deps))
	cmd.AddCommand(newMeetingCreateCommand(deps))
	cmd.AddCommand(newMeetingStartCommand(deps))
	cmd.AddCommand(newMeetingStopCommand(deps))
	cmd.AddCommand(newMeetingSetStatusCommand(deps))

	return cmd
}

// withRuntime loads configuration, opens the runtime with the configured
// timeout and runs fn.
func withRuntime(ctx context.Context, deps *MeetingCommandDeps, fn func(ctx context.Context, rt *Runtime, format config.OutputFormat) error) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	deps.Config = cfg

	format, err := resolveOutputFormat(cfg, meetingOutputFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	rt, err := deps.OpenRuntime(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer rt.Close()

	return fn(ctx, rt, format)
}

func (d *MeetingCommandDeps) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

// newMeetingListCommand creates the 'meeting list' subcommand.
func newMeetingListCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings",
		Long: `List stored meetings in creation order.

Unreadable storage is reported as an empty list; run with --debug to see why.

Examples:
  breeze meeting list
  breeze meeting list --status active
  breeze meeting list -o json`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingList(cmd.Context(), deps)
		},
	}

	cmd.Flags().StringVarP(&meetingStatusFilter, "status", "s", "", "Only show meetings with this status: waiting, active, stopped")

	return cmd
}

func runMeetingList(ctx context.Context, deps *MeetingCommandDeps) error {
	filter := meeting.Status(strings.ToLower(meetingStatusFilter))
	if filter != "" && !filter.IsValid() {
		return fmt.Errorf("invalid status filter: %s (must be waiting, active, or stopped)", meetingStatusFilter)
	}

	return withRuntime(ctx, deps, func(ctx context.Context, rt *Runtime, format config.OutputFormat) error {
		meetings := rt.Store.List(ctx)
		if filter != "" {
			kept := meetings[:0]
			for _, m := range meetings {
				if m.Status == filter {
					kept = append(kept, m)
				}
			}
			meetings = kept
		}

		w := deps.out()
		if ok, err := writeStructured(w, format, map[string]interface{}{
			"meetings": meetings,
			"count":    len(meetings),
		}); ok {
			return err
		}
		outputMeetingListText(w, meetings)
		return nil
	})
}

// outputMeetingListText formats the meeting list for terminal display.
func outputMeetingListText(w io.Writer, meetings []meeting.StoredMeeting) {
	if len(meetings) == 0 {
		fmt.Fprintln(w, "No meetings found.")
		return
	}

	fmt.Fprintf(w, "Meetings (%d):\n\n", len(meetings))
	fmt.Fprintln(w, "  ID           STATUS    TITLE                          DOCUMENT                  CREATED")
	fmt.Fprintln(w, "  --           ------    -----                          --------                  -------")

	for _, m := range meetings {
		title := m.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "  %-12s %-9s %-30s %-25s %s\n",
			m.ID,
			m.Status.Label(),
			truncate(title, 30),
			truncate(m.DocumentName, 25),
			meeting.FormatDate(m.CreatedAt, nil))
	}

	fmt.Fprintln(w)
}

// newMeetingShowCommand creates the 'meeting show' subcommand.
func newMeetingShowCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show a meeting's details and results",
		Long: `Show a meeting with its candidate, scores, question results and
recording.

Results that have not been recorded yet are shown with placeholder values.
Use --raw to see only what is stored.

Examples:
  breeze meeting show mt-1a2b3c4d
  breeze meeting show mt-1a2b3c4d --raw -o json`,
		Args: cobra.MatchAll(cobra.ExactArgs(1), meetingIDArg),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingShow(cmd.Context(), deps, args[0])
		},
	}

	cmd.Flags().BoolVar(&meetingShowRaw, "raw", false, "Show the stored record without placeholder results")

	return cmd
}

func runMeetingShow(ctx context.Context, deps *MeetingCommandDeps, id string) error {
	return withRuntime(ctx, deps, func(ctx context.Context, rt *Runtime, format config.OutputFormat) error {
		w := deps.out()

		if meetingShowRaw {
			m, err := rt.Store.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if ok, err := writeStructured(w, format, m); ok {
				return err
			}
			outputMeetingHeaderText(w, m.ID, m.Title, m.Status, m.Link, m.DocumentName, m.CreatedAt)
			return nil
		}

		m, err := meeting.NewResolver(rt.Store).Resolve(ctx, id)
		if err != nil {
			return err
		}
		if ok, err := writeStructured(w, format, m); ok {
			return err
		}
		outputMeetingDetailText(w, m)
		return nil
	})
}

func outputMeetingHeaderText(w io.Writer, id, title string, status meeting.Status, link, doc string, createdAt time.Time) {
	fmt.Fprintf(w, "Meeting %s\n", id)
	if title != "" {
		fmt.Fprintf(w, "  Title:     %s\n", title)
	}
	fmt.Fprintf(w, "  Status:    %s\n", status.Label())
	fmt.Fprintf(w, "  Link:      %s\n", link)
	fmt.Fprintf(w, "  Document:  %s\n", doc)
	fmt.Fprintf(w, "  Created:   %s\n", meeting.FormatDate(createdAt, nil))
}

// outputMeetingDetailText renders the detail view.
func outputMeetingDetailText(w io.Writer, m meeting.EnrichedMeeting) {
	outputMeetingHeaderText(w, m.ID, m.Title, m.Status, m.Link, m.DocumentName, m.CreatedAt)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Candidate")
	fmt.Fprintf(w, "  Name:           %s\n", m.CandidateName)
	fmt.Fprintf(w, "  Email:          %s\n", m.CandidateEmail)
	fmt.Fprintf(w, "  Final score:    %g / %g\n", m.FinalScore, m.MaxFinalScore())
	fmt.Fprintf(w, "  Overall score:  %.1f\n", m.OverallScore)

	if m.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Summary")
		fmt.Fprintf(w, "  %s\n", m.Summary)
	}

	if len(m.PerformanceMetrics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Performance")
		for _, pm := range m.PerformanceMetrics {
			fmt.Fprintf(w, "  %-22s %g / %g  %s\n", pm.Name, pm.Score, pm.MaxScore, pm.Feedback)
		}
	}

	if len(m.Results) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Results")
		for i, r := range m.Results {
			fmt.Fprintf(w, "  %d. %s\n", i+1, r.Question)
			fmt.Fprintf(w, "     Answer:   %s\n", r.Answer)
			fmt.Fprintf(w, "     Score:    %g\n", r.Score)
			if r.Feedback != "" {
				fmt.Fprintf(w, "     Feedback: %s\n", r.Feedback)
			}
		}
	}

	if rec, ok := m.PrimaryRecording(); ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recording")
		fmt.Fprintf(w, "  %s (%s)  %s\n", rec.Name, meeting.FormatDuration(rec.Duration), rec.URL)
	}
}

// newMeetingCreateCommand creates the 'meeting create' subcommand.
func newMeetingCreateCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a meeting",
		Long: `Create a meeting from a meeting link and a PDF document.

The document must be a PDF; its content is checked, not just its extension.
Only the file name is stored.

Examples:
  breeze meeting create --link https://meet.example.com/abc --document ./cv.pdf
  breeze meeting create --link https://meet.example.com/abc --document ./cv.pdf --title "Backend interview"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingCreate(cmd.Context(), deps)
		},
	}

	cmd.Flags().StringVarP(&meetingCreateLink, "link", "l", "", "Meeting link (required)")
	cmd.Flags().StringVarP(&meetingCreateDoc, "document", "d", "", "Path to the PDF document (required)")
	cmd.Flags().StringVarP(&meetingCreateTitle, "title", "t", "", "Optional meeting title")

	return cmd
}

func runMeetingCreate(ctx context.Context, deps *MeetingCommandDeps) error {
	in := meeting.NewMeeting{Link: meetingCreateLink, Title: meetingCreateTitle}
	if meetingCreateDoc != "" {
		in.DocumentName = filepath.Base(meetingCreateDoc)
	}
	if err := meeting.ValidateNewMeeting(in); err != nil {
		return err
	}
	if err := checkDocument(meetingCreateDoc); err != nil {
		return err
	}

	return withRuntime(ctx, deps, func(ctx context.Context, rt *Runtime, format config.OutputFormat) error {
		m, err := rt.Store.Create(ctx, in)
		if err != nil {
			return err
		}

		w := deps.out()
		if ok, err := writeStructured(w, format, m); ok {
			return err
		}
		fmt.Fprintf(w, "Created meeting %s (%s)\n", m.ID, m.Status.Label())
		return nil
	})
}

// checkDocument sniffs the file's content type and validates it as a PDF.
func checkDocument(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading document: %w", err)
	}

	contentType := ""
	if n > 0 {
		contentType = http.DetectContentType(head[:n])
	}
	return meeting.ValidateDocument(filepath.Base(path), contentType)
}

// newMeetingStartCommand creates the 'meeting start' subcommand.
func newMeetingStartCommand(deps *MeetingCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "start <meeting-id>",
		Short: "Start a waiting or stopped meeting",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), meetingIDArg),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingTransition(cmd.Context(), deps, func(ctx context.Context, s *meeting.Store) (meeting.StoredMeeting, error) {
				return s.Start(ctx, args[0])
			})
		},
	}
}

// newMeetingStopCommand creates the 'meeting stop' subcommand.
func newMeetingStopCommand(deps *MeetingCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <meeting-id>",
		Short: "Stop an active meeting",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), meetingIDArg),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingTransition(cmd.Context(), deps, func(ctx context.Context, s *meeting.Store) (meeting.StoredMeeting, error) {
				return s.Stop(ctx, args[0])
			})
		},
	}
}

// newMeetingSetStatusCommand creates the 'meeting set-status' subcommand.
func newMeetingSetStatusCommand(deps *MeetingCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <meeting-id> <active|stopped>",
		Short: "Set a meeting's status directly",
		Long: `Set a meeting's status without the start/stop checks.

Only active and stopped can be set; a meeting never returns to waiting.

Examples:
  breeze meeting set-status mt-1a2b3c4d stopped`,
		Args: cobra.MatchAll(cobra.ExactArgs(2), meetingIDArg),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return []string{string(meeting.StatusActive), string(meeting.StatusStopped)}, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			status := meeting.Status(strings.ToLower(args[1]))
			return runMeetingTransition(cmd.Context(), deps, func(ctx context.Context, s *meeting.Store) (meeting.StoredMeeting, error) {
				return s.UpdateStatus(ctx, args[0], status)
			})
		},
	}
}

// meetingIDArg rejects a malformed meeting id in the first argument.
func meetingIDArg(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return meeting.ValidateID(args[0])
}

func runMeetingTransition(ctx context.Context, deps *MeetingCommandDeps, apply func(context.Context, *meeting.Store) (meeting.StoredMeeting, error)) error {
	return withRuntime(ctx, deps, func(ctx context.Context, rt *Runtime, format config.OutputFormat) error {
		m, err := apply(ctx, rt.Store)
		if err != nil {
			return err
		}

		w := deps.out()
		if ok, err := writeStructured(w, format, m); ok {
			return err
		}
		fmt.Fprintf(w, "Meeting %s is now %s.\n", m.ID, strings.ToLower(m.Status.Label()))
		return nil
	})
}
