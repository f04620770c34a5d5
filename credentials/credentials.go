// Package credentials stores named backend secrets (Redis and PostgreSQL
// passwords) in an encrypted file in the breeze config directory.
//
// Values are AES-GCM encrypted. The key comes from a KeyProvider: the system
// keyring by default, BREEZE_ENCRYPTION_KEY in CI, or a passphrase.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// SecretsFile is the file name of the secret store.
const SecretsFile = "secrets.yaml"

// Well-known secret names consulted by the storage configuration.
const (
	SecretRedisPassword    = "redis-password"
	SecretPostgresPassword = "postgres-password"
)

var (
	// ErrSecretNotFound is returned when no secret has the requested name.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrInvalidName is returned for names outside [a-z0-9-].
	ErrInvalidName = errors.New("invalid secret name")
	// ErrEncryptionFailed is returned when encryption or decryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// Entry describes a stored secret without its value.
type Entry struct {
	Name      string    `json:"name" yaml:"name"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type secretRecord struct {
	Value     string    `yaml:"value"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

type secretsFile struct {
	Secrets map[string]secretRecord `yaml:"secrets"`
}

// Store reads and writes the secrets file.
type Store struct {
	dir         string
	key         []byte
	keyProvider KeyProvider

	mu sync.Mutex
}

// NewStore opens the secret store in dir using kp for the encryption key.
func NewStore(dir string, kp KeyProvider) (*Store, error) {
	key, err := kp.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}
	if len(key) != keyLength {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrEncryptionFailed, keyLength)
	}
	return &Store{dir: dir, key: key, keyProvider: kp}, nil
}

// Path returns the secrets file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, SecretsFile)
}

// KeyDescription names where the encryption key is kept.
func (s *Store) KeyDescription() string {
	return s.keyProvider.Description()
}

// Set encrypts and stores value under name, replacing any previous value.
func (s *Store) Set(name, value string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	encrypted, err := s.encrypt(value)
	if err != nil {
		return err
	}
	f.Secrets[name] = secretRecord{Value: encrypted, UpdatedAt: time.Now().UTC()}
	return s.write(f)
}

// Get returns the decrypted value of name.
func (s *Store) Get(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return "", err
	}
	rec, ok := f.Secrets[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	value, err := s.decrypt(rec.Value)
	if err != nil {
		return "", fmt.Errorf("decrypting %s: %w", name, err)
	}
	return value, nil
}

// Delete removes name. Deleting a missing secret is not an error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := f.Secrets[name]; !ok {
		return nil
	}
	delete(f.Secrets, name)
	return s.write(f)
}

// List returns the stored secret names, sorted.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(f.Secrets))
	for name, rec := range f.Secrets {
		entries = append(entries, Entry{Name: name, UpdatedAt: rec.UpdatedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Lookup returns the value of name, or "" when it is not stored. Other
// errors are returned.
func (s *Store) Lookup(name string) (string, error) {
	value, err := s.Get(name)
	if errors.Is(err, ErrSecretNotFound) {
		return "", nil
	}
	return value, err
}

func (s *Store) read() (*secretsFile, error) {
	f := &secretsFile{Secrets: map[string]secretRecord{}}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	if f.Secrets == nil {
		f.Secrets = map[string]secretRecord{}
	}
	return f, nil
}

func (s *Store) write(f *secretsFile) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating secrets directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling secrets: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	return nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}
	return gcm, nil
}

// encrypt seals plaintext with a random nonce prefix, base64 encoded.
func (s *Store) encrypt(plaintext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}
	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed: %v", ErrEncryptionFailed, err)
	}
	return string(plaintext), nil
}

// Mask returns value with all but the last four characters hidden. Values
// of eight characters or fewer are fully hidden.
func Mask(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
