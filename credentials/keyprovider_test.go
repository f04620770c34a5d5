package credentials

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEnvKeyProvider_GetKey(t *testing.T) {
	const envVar = "TEST_BREEZE_ENCRYPTION_KEY"

	t.Run("valid key", func(t *testing.T) {
		t.Setenv(envVar, testKeyHex)

		key, err := NewEnvKeyProvider(envVar).GetKey()
		require.NoError(t, err)
		expected, _ := hex.DecodeString(testKeyHex)
		assert.Equal(t, expected, key)
	})

	t.Run("missing env var", func(t *testing.T) {
		t.Setenv(envVar, "")
		_, err := NewEnvKeyProvider(envVar).GetKey()
		assert.Error(t, err)
	})

	t.Run("invalid hex", func(t *testing.T) {
		t.Setenv(envVar, "not-valid-hex")
		_, err := NewEnvKeyProvider(envVar).GetKey()
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv(envVar, "0123456789abcdef")
		_, err := NewEnvKeyProvider(envVar).GetKey()
		assert.ErrorContains(t, err, "must be 32 bytes")
	})
}

func TestPassphraseKeyProvider(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
	require.NoError(t, err)
	assert.Len(t, k1, keyLength)

	k2, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "same passphrase and salt derive the same key")

	k3, err := NewPassphraseKeyProvider("battery staple", salt).GetKey()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = NewPassphraseKeyProvider("", salt).GetKey()
	assert.Error(t, err)
	_, err = NewPassphraseKeyProvider("x", nil).GetKey()
	assert.Error(t, err)
}

func TestLoadOrCreateSalt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "breeze")

	s1, err := LoadOrCreateSalt(dir)
	require.NoError(t, err)
	assert.Len(t, s1, saltLength)

	s2, err := LoadOrCreateSalt(dir)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	info, err := os.Stat(filepath.Join(dir, SaltFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(filepath.Join(dir, SaltFile), []byte("zz"), 0600))
	_, err = LoadOrCreateSalt(dir)
	assert.ErrorContains(t, err, "corrupt")
}

func TestKeyringKeyProvider(t *testing.T) {
	keyring.MockInit()

	p := NewKeyringKeyProvider()
	k1, err := p.GetKey()
	require.NoError(t, err)
	assert.Len(t, k1, keyLength)

	k2, err := p.GetKey()
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "key is stored after first use")
	assert.NotEmpty(t, p.Description())
}

func TestDefaultKeyProvider(t *testing.T) {
	keyring.MockInit()

	t.Run("env key wins", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, testKeyHex)
		t.Setenv(EnvPassphrase, "ignored")

		p, err := DefaultKeyProvider(t.TempDir())
		require.NoError(t, err)
		assert.IsType(t, &EnvKeyProvider{}, p)
	})

	t.Run("passphrase", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, "")
		t.Setenv(EnvPassphrase, "hunter2")

		dir := t.TempDir()
		p, err := DefaultKeyProvider(dir)
		require.NoError(t, err)
		assert.IsType(t, &PassphraseKeyProvider{}, p)
		assert.FileExists(t, filepath.Join(dir, SaltFile))
	})

	t.Run("keyring", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, "")
		t.Setenv(EnvPassphrase, "")

		p, err := DefaultKeyProvider(t.TempDir())
		require.NoError(t, err)
		assert.IsType(t, &KeyringKeyProvider{}, p)
	})
}
