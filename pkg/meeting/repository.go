package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	brerrors "github.com/otherjamesbrown/breeze-cli/pkg/errors"
	"github.com/otherjamesbrown/breeze-cli/pkg/storage"
)

// SlotKey is the fixed key under which the meeting collection is stored.
const SlotKey = "meetings"

// Repository loads and saves the whole meeting collection.
type Repository interface {
	// Load returns the persisted collection in insertion order. A missing
	// collection is an empty slice; malformed content is reported as an
	// error wrapping ErrStorageParse.
	Load(ctx context.Context) ([]StoredMeeting, error)

	// Save replaces the persisted collection.
	Save(ctx context.Context, meetings []StoredMeeting) error
}

// SlotRepository encodes the collection as a JSON array in a storage slot.
type SlotRepository struct {
	slot storage.Slot
	key  string
}

// NewSlotRepository stores meetings in slot under SlotKey.
func NewSlotRepository(slot storage.Slot) *SlotRepository {
	return &SlotRepository{slot: slot, key: SlotKey}
}

func (r *SlotRepository) Load(ctx context.Context) ([]StoredMeeting, error) {
	raw, found, err := r.slot.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	if !found || strings.TrimSpace(raw) == "" {
		return []StoredMeeting{}, nil
	}

	meetings, err := decodeMeetings([]byte(raw))
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

func (r *SlotRepository) Save(ctx context.Context, meetings []StoredMeeting) error {
	if meetings == nil {
		meetings = []StoredMeeting{}
	}
	data, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("encoding meetings: %w", err)
	}
	return r.slot.Set(ctx, r.key, string(data))
}

// decodeMeetings parses the persisted JSON array. A literal null is treated
// as empty. Records with an unknown status are returned as stored; the Store
// hides them from reads and writes them back unchanged.
func decodeMeetings(data []byte) ([]StoredMeeting, error) {
	var meetings []StoredMeeting
	if err := json.Unmarshal(data, &meetings); err != nil {
		return nil, fmt.Errorf("%w: %v", brerrors.ErrStorageParse, err)
	}
	if meetings == nil {
		return []StoredMeeting{}, nil
	}
	return meetings, nil
}

// MemoryRepository keeps the collection in memory. Load and Save copy the
// slice so callers cannot alias stored state.
type MemoryRepository struct {
	mu       sync.Mutex
	meetings []StoredMeeting
	saves    int
}

// NewMemoryRepository creates a repository seeded with meetings.
func NewMemoryRepository(meetings ...StoredMeeting) *MemoryRepository {
	return &MemoryRepository{meetings: cloneAll(meetings)}
}

func (r *MemoryRepository) Load(context.Context) ([]StoredMeeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.meetings), nil
}

func (r *MemoryRepository) Save(_ context.Context, meetings []StoredMeeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meetings = cloneAll(meetings)
	r.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (r *MemoryRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func cloneAll(in []StoredMeeting) []StoredMeeting {
	out := make([]StoredMeeting, len(in))
	for i, m := range in {
		out[i] = m.clone()
	}
	return out
}

// clone deep-copies the slices and score pointers of m.
func (m StoredMeeting) clone() StoredMeeting {
	c := m
	if m.Results != nil {
		c.Results = append([]CandidateResult(nil), m.Results...)
	}
	if m.Recordings != nil {
		c.Recordings = append([]Recording(nil), m.Recordings...)
	}
	if m.PerformanceMetrics != nil {
		c.PerformanceMetrics = append([]PerformanceMetric(nil), m.PerformanceMetrics...)
	}
	if m.OverallScore != nil {
		v := *m.OverallScore
		c.OverallScore = &v
	}
	if m.FinalScore != nil {
		v := *m.FinalScore
		c.FinalScore = &v
	}
	return c
}
