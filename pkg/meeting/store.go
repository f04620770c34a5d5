package meeting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/otherjamesbrown/breeze-cli/pkg/contentid"
	brerrors "github.com/otherjamesbrown/breeze-cli/pkg/errors"
	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
	"github.com/otherjamesbrown/breeze-cli/pkg/observability"
)

// maxIDAttempts bounds the collision retry when generating a meeting id.
const maxIDAttempts = 16

// NewMeeting is the input to Store.Create.
type NewMeeting struct {
	Link         string
	DocumentName string
	Title        string
}

// Notifier is told about committed changes. Errors are logged and never
// undo the write.
type Notifier interface {
	MeetingCreated(ctx context.Context, m StoredMeeting) error
	StatusChanged(ctx context.Context, m StoredMeeting, from Status) error
}

// Store is the sole authority for meeting records. Every mutation is a full
// read-modify-write of the collection. The mutex serializes cycles within
// one process; concurrent processes can still lose updates.
type Store struct {
	repo     Repository
	logger   logging.Logger
	notifier Notifier
	metrics  *observability.StoreMetrics
	tracer   *observability.Tracer
	now      func() time.Time
	newID    func(time.Time) string

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock sets the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the meeting id generator.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.StoreMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracer enables tracing spans.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Store) {
		s.tracer = t
	}
}

// NewStore creates a Store over repo.
func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		now:   time.Now,
		newID: contentid.NewMeetingID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.MustGlobal()
	}
	s.logger = s.logger.With(logging.F("component", "meeting_store"))
	if s.tracer == nil {
		s.tracer = observability.NewTracer()
	}
	return s
}

// List returns every meeting in insertion order. It never fails: missing,
// malformed or unreadable content yields an empty slice. Records with an
// unknown status are left out.
func (s *Store) List(ctx context.Context) []StoredMeeting {
	ctx, span := s.tracer.StartOperation(ctx, "list")
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	meetings, err := s.load(ctx)
	s.mu.Unlock()

	if err != nil {
		// Backend read failures degrade here too.
		s.degraded(ctx, observability.ReasonBackend, err)
		meetings = []StoredMeeting{}
	}
	meetings = s.readable(ctx, meetings)
	span.SetAttributes(attribute.Int(observability.AttrCount, len(meetings)))
	s.metrics.ObserveOperation("list", observability.ResultOK, time.Since(start))
	return meetings
}

// Create validates in, appends a new waiting meeting and persists the
// collection.
func (s *Store) Create(ctx context.Context, in NewMeeting) (StoredMeeting, error) {
	ctx, span := s.tracer.StartOperation(ctx, "create")
	defer span.End()
	start := time.Now()

	if err := ValidateNewMeeting(in); err != nil {
		s.metrics.ObserveOperation("create", observability.ResultInvalid, time.Since(start))
		observability.RecordError(span, err)
		return StoredMeeting{}, err
	}

	s.mu.Lock()
	created, err := s.create(ctx, in)
	s.mu.Unlock()
	if err != nil {
		s.metrics.ObserveOperation("create", observability.ResultError, time.Since(start))
		observability.RecordError(span, err)
		return StoredMeeting{}, err
	}

	span.SetAttributes(attribute.String(observability.AttrMeetingID, created.ID))
	s.metrics.ObserveOperation("create", observability.ResultOK, time.Since(start))
	s.logger.WithContext(ctx).Info("Meeting created",
		logging.F("meeting_id", created.ID),
		logging.F("document", created.DocumentName))

	if s.notifier != nil {
		if err := s.notifier.MeetingCreated(ctx, created.clone()); err != nil {
			s.logger.WithContext(ctx).Warn("Failed to notify meeting created",
				logging.F("meeting_id", created.ID), logging.Err(err))
		}
	}
	return created, nil
}

func (s *Store) create(ctx context.Context, in NewMeeting) (StoredMeeting, error) {
	meetings, err := s.load(ctx)
	if err != nil {
		return StoredMeeting{}, err
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	id, err := s.uniqueID(meetings, createdAt)
	if err != nil {
		return StoredMeeting{}, err
	}

	m := StoredMeeting{
		ID:           id,
		Title:        strings.TrimSpace(in.Title),
		Link:         in.Link,
		DocumentName: in.DocumentName,
		Status:       StatusWaiting,
		CreatedAt:    createdAt,
	}
	meetings = append(meetings, m)

	if err := s.repo.Save(ctx, meetings); err != nil {
		return StoredMeeting{}, fmt.Errorf("saving meetings: %w", err)
	}
	s.metrics.SetMeetingsStored(len(meetings))
	return m, nil
}

func (s *Store) uniqueID(meetings []StoredMeeting, t time.Time) (string, error) {
	taken := make(map[string]struct{}, len(meetings))
	for _, m := range meetings {
		taken[m.ID] = struct{}{}
	}
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID(t)
		if _, dup := taken[id]; !dup {
			return id, nil
		}
	}
	return "", fmt.Errorf("generating meeting id: %d attempts collided", maxIDAttempts)
}

// FindByID returns the meeting with id, or an error wrapping ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id string) (StoredMeeting, error) {
	ctx, span := s.tracer.StartOperation(ctx, "find",
		attribute.String(observability.AttrMeetingID, id))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	meetings, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		s.metrics.ObserveOperation("find", observability.ResultError, time.Since(start))
		observability.RecordError(span, err)
		return StoredMeeting{}, err
	}

	for _, m := range s.readable(ctx, meetings) {
		if m.ID == id {
			s.metrics.ObserveOperation("find", observability.ResultOK, time.Since(start))
			return m, nil
		}
	}
	s.metrics.ObserveOperation("find", observability.ResultNotFound, time.Since(start))
	return StoredMeeting{}, fmt.Errorf("meeting %s: %w", id, brerrors.ErrNotFound)
}

// UpdateStatus sets the status of meeting id to active or stopped. Only the
// status field changes.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) (StoredMeeting, error) {
	return s.transition(ctx, "update_status", id, status, nil)
}

// Start activates a waiting or stopped meeting.
func (s *Store) Start(ctx context.Context, id string) (StoredMeeting, error) {
	return s.transition(ctx, "start", id, StatusActive, Status.CanStart)
}

// Stop stops an active meeting.
func (s *Store) Stop(ctx context.Context, id string) (StoredMeeting, error) {
	return s.transition(ctx, "stop", id, StatusStopped, Status.CanStop)
}

// transition applies a status change. allowed, when set, gates the change on
// the current status.
func (s *Store) transition(ctx context.Context, op, id string, status Status, allowed func(Status) bool) (StoredMeeting, error) {
	ctx, span := s.tracer.StartOperation(ctx, op,
		attribute.String(observability.AttrMeetingID, id),
		attribute.String(observability.AttrStatus, string(status)))
	defer span.End()
	start := time.Now()

	if status != StatusActive && status != StatusStopped {
		err := brerrors.Validationf("status", "status must be %q or %q, got %q", StatusActive, StatusStopped, status)
		s.metrics.ObserveOperation(op, observability.ResultInvalid, time.Since(start))
		observability.RecordError(span, err)
		return StoredMeeting{}, err
	}

	s.mu.Lock()
	updated, from, err := s.setStatus(ctx, id, status, allowed)
	s.mu.Unlock()
	if err != nil {
		s.metrics.ObserveOperation(op, resultFor(err), time.Since(start))
		observability.RecordError(span, err)
		return StoredMeeting{}, err
	}

	s.metrics.ObserveOperation(op, observability.ResultOK, time.Since(start))
	s.metrics.ObserveTransition(string(from), string(status))
	s.logger.WithContext(ctx).Info("Meeting status changed",
		logging.F("meeting_id", id),
		logging.F("from", from),
		logging.F("to", status))

	if s.notifier != nil {
		if err := s.notifier.StatusChanged(ctx, updated.clone(), from); err != nil {
			s.logger.WithContext(ctx).Warn("Failed to notify status change",
				logging.F("meeting_id", id), logging.Err(err))
		}
	}
	return updated, nil
}

func (s *Store) setStatus(ctx context.Context, id string, status Status, allowed func(Status) bool) (StoredMeeting, Status, error) {
	meetings, err := s.load(ctx)
	if err != nil {
		return StoredMeeting{}, "", err
	}

	idx := -1
	for i := range meetings {
		if meetings[i].ID == id && meetings[i].Status.IsValid() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return StoredMeeting{}, "", fmt.Errorf("meeting %s: %w", id, brerrors.ErrNotFound)
	}

	from := meetings[idx].Status
	if allowed != nil && !allowed(from) {
		return StoredMeeting{}, "", fmt.Errorf("meeting %s is %s, cannot become %s: %w", id, from, status, brerrors.ErrInvalidState)
	}

	meetings[idx].Status = status
	if err := s.repo.Save(ctx, meetings); err != nil {
		return StoredMeeting{}, "", fmt.Errorf("saving meetings: %w", err)
	}
	return meetings[idx], from, nil
}

// load reads the collection. Malformed content degrades to empty; backend
// errors are returned.
func (s *Store) load(ctx context.Context) ([]StoredMeeting, error) {
	meetings, err := s.repo.Load(ctx)
	if err != nil {
		if brerrors.IsStorageParse(err) {
			s.degraded(ctx, observability.ReasonParse, err)
			return []StoredMeeting{}, nil
		}
		return nil, fmt.Errorf("loading meetings: %w", err)
	}
	if meetings == nil {
		meetings = []StoredMeeting{}
	}
	s.metrics.SetMeetingsStored(len(meetings))
	return meetings, nil
}

// readable returns the records with a known status. The others stay in the
// collection so that saves write them back untouched.
func (s *Store) readable(ctx context.Context, meetings []StoredMeeting) []StoredMeeting {
	out := make([]StoredMeeting, 0, len(meetings))
	for _, m := range meetings {
		if !m.Status.IsValid() {
			s.metrics.ObserveDegradedLoad(observability.ReasonInvalidRecord)
			s.logger.WithContext(ctx).Warn("Skipping meeting with unknown status",
				logging.F("meeting_id", m.ID), logging.F("status", m.Status))
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Store) degraded(ctx context.Context, reason string, err error) {
	s.metrics.ObserveDegradedLoad(reason)
	s.logger.WithContext(ctx).Warn("Meeting collection unreadable, treating as empty",
		logging.F("reason", reason), logging.Err(err))
}

func resultFor(err error) string {
	switch {
	case brerrors.IsNotFound(err):
		return observability.ResultNotFound
	case brerrors.IsValidation(err), brerrors.IsInvalidState(err):
		return observability.ResultInvalid
	default:
		return observability.ResultError
	}
}
