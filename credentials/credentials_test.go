package credentials

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("TEST_SECRETS_KEY", testKeyHex)
	s, err := NewStore(t.TempDir(), NewEnvKeyProvider("TEST_SECRETS_KEY"))
	require.NoError(t, err)
	return s
}

func TestStore_SetGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(SecretRedisPassword, "s3cret-value"))

	got, err := s.Get(SecretRedisPassword)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-value", got)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "s3cret-value"), "value must be encrypted at rest")

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_Overwrite(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("db", "one"))
	require.NoError(t, s.Set("db", "two"))

	got, err := s.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "two", got)
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	v, err := s.Lookup("missing")
	assert.NoError(t, err)
	assert.Empty(t, v)
}

func TestStore_InvalidName(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "Has-Upper", "space name", "-leading", "a/b"} {
		assert.ErrorIs(t, s.Set(name, "v"), ErrInvalidName, "name %q", name)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(SecretPostgresPassword, "pg"))
	require.NoError(t, s.Set(SecretRedisPassword, "rd"))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, SecretPostgresPassword, entries[0].Name)
	assert.Equal(t, SecretRedisPassword, entries[1].Name)
	assert.False(t, entries[0].UpdatedAt.IsZero())

	require.NoError(t, s.Delete(SecretPostgresPassword))
	require.NoError(t, s.Delete(SecretPostgresPassword))

	entries, err = s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SecretRedisPassword, entries[0].Name)
}

func TestStore_WrongKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEY_A", testKeyHex)
	t.Setenv("KEY_B", strings.Repeat("ff", 32))

	a, err := NewStore(dir, NewEnvKeyProvider("KEY_A"))
	require.NoError(t, err)
	require.NoError(t, a.Set("db", "value"))

	b, err := NewStore(dir, NewEnvKeyProvider("KEY_B"))
	require.NoError(t, err)
	_, err = b.Get("db")
	assert.ErrorIs(t, err, ErrEncryptionFailed)
}

func TestStore_EncryptUsesFreshNonce(t *testing.T) {
	s := newTestStore(t)

	c1, err := s.encrypt("same")
	require.NoError(t, err)
	c2, err := s.encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)

	_, err = s.decrypt("not base64!")
	assert.ErrorIs(t, err, ErrEncryptionFailed)
	_, err = s.decrypt("YQ==")
	assert.ErrorIs(t, err, ErrEncryptionFailed)
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"12345678", "********"},
		{"supersecret", "*******cret"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mask(tt.in))
	}
}
