package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned when no secret is stored under a key
var ErrSecretNotFound = errors.New("secret not found")

// StorageBackend defines the interface for secret storage
type StorageBackend interface {
	Save(key string, data []byte) error
	Load(key string) ([]byte, error)
	Delete(key string) error
	Name() string
}

// KeyringStorage uses the system keyring
type KeyringStorage struct {
	serviceName string
}

func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{serviceName: serviceName}
}

func (s *KeyringStorage) Save(key string, data []byte) error {
	return keyring.Set(s.serviceName, key, string(data))
}

func (s *KeyringStorage) Load(key string) ([]byte, error) {
	data, err := keyring.Get(s.serviceName, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, key)
		}
		return nil, err
	}
	return []byte(data), nil
}

func (s *KeyringStorage) Delete(key string) error {
	err := keyring.Delete(s.serviceName, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return err
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// EncryptedFileStorage is the fallback for hosts without a keyring
// (typically the cron hosts rcache runs on). Each secret is an AES-GCM
// sealed file under baseDir/secrets, bound to its key name, and the
// 256-bit key lives in baseDir/.keyfile.
type EncryptedFileStorage struct {
	baseDir string
	aead    cipher.AEAD
}

const keyFileName = ".keyfile"

func NewEncryptedFileStorage(baseDir string) (*EncryptedFileStorage, error) {
	key, err := loadOrCreateKey(filepath.Join(baseDir, keyFileName))
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &EncryptedFileStorage{baseDir: baseDir, aead: aead}, nil
}

func (s *EncryptedFileStorage) Save(key string, data []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	sealed := s.aead.Seal(nonce, nonce, data, []byte(key))

	file := s.secretPath(key)
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return err
	}
	return os.WriteFile(file, sealed, 0o600)
}

func (s *EncryptedFileStorage) Load(key string) ([]byte, error) {
	sealed, err := os.ReadFile(s.secretPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("decrypting %s: file too short", key)
	}
	data, err := s.aead.Open(nil, sealed[:n], sealed[n:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", key, err)
	}
	return data, nil
}

func (s *EncryptedFileStorage) Delete(key string) error {
	err := os.Remove(s.secretPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return err
}

func (s *EncryptedFileStorage) Name() string {
	return "encrypted-file"
}

// secretPath flattens profile/name keys into one file name
func (s *EncryptedFileStorage) secretPath(key string) string {
	return filepath.Join(s.baseDir, "secrets", strings.ReplaceAll(key, "/", "__")+".enc")
}

// loadOrCreateKey reads the base64 key at path, generating it when the file
// does not exist. A malformed key file is an error: replacing it would make
// every stored secret unreadable.
func loadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("%s is not a 256-bit base64 key", path)
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	// O_EXCL so two first runs racing do not end up with different keys
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return loadOrCreateKey(path)
	}
	if err != nil {
		return nil, err
	}
	_, werr := f.WriteString(base64.StdEncoding.EncodeToString(key))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, werr
	}
	return key, nil
}
