// Package contentid generates and validates breeze meeting identifiers.
//
// ID Format: mt-<base62_ts:4><base62_rand:4> (11 chars total including dash)
//
// The timestamp component is the creation time in milliseconds modulo 62^4,
// so ids are derived from the creation timestamp. The random component adds
// 14M+ combinations; callers that need strict uniqueness within a collection
// check for collisions and draw again.
package contentid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

// TypeMeeting is the prefix of meeting identifiers.
const TypeMeeting = "mt"

// IDLength is the length of every identifier.
const IDLength = 11

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// base62Max is 62^4 = 14,776,336.
const base62Max = 62 * 62 * 62 * 62

var validTypes = map[string]bool{
	TypeMeeting: true,
}

var (
	ErrInvalidFormat = errors.New("invalid id format")
	ErrInvalidType   = errors.New("invalid id type")
)

// ID is a parsed identifier.
type ID struct {
	Type      string
	Timestamp string
	Random    string
	Raw       string
}

func (c ID) String() string {
	return c.Raw
}

// NewAt generates an identifier of the given type stamped with t.
// Panics if idType is not a known type constant.
func NewAt(idType string, t time.Time) string {
	if !validTypes[idType] {
		panic(fmt.Sprintf("contentid: invalid type: %q", idType))
	}

	ts := encodeBase62(uint64(t.UnixMilli()) % base62Max)
	return idType + "-" + ts + randomBase62(4)
}

// NewMeetingID generates a meeting identifier stamped with t.
func NewMeetingID(t time.Time) string {
	return NewAt(TypeMeeting, t)
}

// Parse validates and parses an identifier.
func Parse(id string) (ID, error) {
	if len(id) != IDLength {
		return ID{}, fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidFormat, IDLength, len(id))
	}
	if id[2] != '-' {
		return ID{}, fmt.Errorf("%w: missing dash at position 2", ErrInvalidFormat)
	}

	prefix := id[:2]
	if !validTypes[prefix] {
		return ID{}, fmt.Errorf("%w: unknown type %q", ErrInvalidType, prefix)
	}

	suffix := id[3:]
	if !isValidBase62(suffix) {
		return ID{}, fmt.Errorf("%w: suffix contains invalid characters", ErrInvalidFormat)
	}

	return ID{
		Type:      prefix,
		Timestamp: suffix[:4],
		Random:    suffix[4:],
		Raw:       id,
	}, nil
}

// IsValid reports whether id parses.
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

func encodeBase62(n uint64) string {
	result := make([]byte, 4)
	for i := 3; i >= 0; i-- {
		result[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(result)
}

// randomBase62 uses rejection sampling to avoid modulo bias.
func randomBase62(length int) string {
	result := make([]byte, length)

	// 248 is the largest multiple of 62 that fits in a byte.
	const maxUnbiased = 248

	var buf [16]byte
	for i := 0; i < length; {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("contentid: reading random bytes: %v", err))
		}
		for _, b := range buf {
			if i == length {
				break
			}
			if b < maxUnbiased {
				result[i] = base62Alphabet[b%62]
				i++
			}
		}
	}

	return string(result)
}

func isValidBase62(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
