package contentid

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeetingID(t *testing.T) {
	id := NewMeetingID(time.Now())

	assert.True(t, strings.HasPrefix(id, "mt-"), "id %q should start with mt-", id)
	assert.Len(t, id, IDLength)
	assert.True(t, isValidBase62(id[3:]))
	assert.True(t, IsValid(id))
}

func TestNewAt_TimestampDerived(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	a := NewAt(TypeMeeting, at)
	b := NewAt(TypeMeeting, at)

	// Same creation instant, same timestamp component.
	assert.Equal(t, a[3:7], b[3:7])
	assert.Equal(t, encodeBase62(uint64(at.UnixMilli())%base62Max), a[3:7])

	later := NewAt(TypeMeeting, at.Add(time.Millisecond))
	assert.NotEqual(t, a[3:7], later[3:7])
}

func TestNewAt_UnknownTypePanics(t *testing.T) {
	assert.Panics(t, func() { NewAt("xx", time.Now()) })
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantType string
		wantErr  error
	}{
		{"valid meeting", "mt-ABCD1234", TypeMeeting, nil},
		{"valid zero", "mt-00000000", TypeMeeting, nil},
		{"document prefix", "dc-00000000", "", ErrInvalidType},
		{"too short", "mt-12345", "", ErrInvalidFormat},
		{"too long", "mt-123456789", "", ErrInvalidFormat},
		{"missing dash", "mt_12345678", "", ErrInvalidFormat},
		{"unknown prefix", "em-12345678", "", ErrInvalidType},
		{"bad characters", "mt-1234-678", "", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.id)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.id, got.String())
			assert.Equal(t, tt.id[3:7], got.Timestamp)
			assert.Equal(t, tt.id[7:], got.Random)
		})
	}
}

func TestEncodeBase62(t *testing.T) {
	assert.Equal(t, "0000", encodeBase62(0))
	assert.Equal(t, "000Z", encodeBase62(61))
	assert.Equal(t, "0010", encodeBase62(62))
	assert.Equal(t, "ZZZZ", encodeBase62(base62Max-1))
}

func TestRandomBase62(t *testing.T) {
	s := randomBase62(64)
	assert.Len(t, s, 64)
	assert.True(t, isValidBase62(s))
}
