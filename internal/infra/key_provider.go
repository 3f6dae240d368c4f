package infra

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// historyKeyLen is the raw SQLCipher key length in bytes.
const historyKeyLen = 32

// HistoryKeyFile implements domain.KeyProvider for the kill history. The
// key is kept hex encoded, the form SQLCipher takes as a raw key.
type HistoryKeyFile struct {
	path string
}

// NewHistoryKeyFile creates the key file handle for path.
func NewHistoryKeyFile(path string) *HistoryKeyFile {
	return &HistoryKeyFile{path: path}
}

// GetKey reads and decodes the key. Surrounding whitespace is ignored.
func (f *HistoryKeyFile) GetKey() ([]byte, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read history key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode history key %s: %w", f.path, err)
	}
	if len(key) != historyKeyLen {
		return nil, fmt.Errorf("history key %s is %d bytes, want %d", f.path, len(key), historyKeyLen)
	}
	return key, nil
}

// StoreKey writes key readable by the current user only.
func (f *HistoryKeyFile) StoreKey(key []byte) error {
	if len(key) != historyKeyLen {
		return fmt.Errorf("history key is %d bytes, want %d", len(key), historyKeyLen)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(hex.EncodeToString(key)+"\n"), 0600); err != nil {
		return fmt.Errorf("write history key: %w", err)
	}
	return nil
}

// KeyExists reports whether the key file is present.
func (f *HistoryKeyFile) KeyExists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// GenerateKey returns a fresh random history key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, historyKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate history key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the stored key, generating one on first use.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// OpenHistory opens the history database, creating its key on first use.
// A database left behind without its key can never be read again; it is
// renamed to "<dbPath>.orphaned-<unix>" and a new one is started.
func OpenHistory(dbPath string, provider domain.KeyProvider) (*HistoryStore, error) {
	if !provider.KeyExists() {
		if err := setAsideOrphan(dbPath); err != nil {
			return nil, err
		}
	}
	key, err := EnsureKey(provider)
	if err != nil {
		return nil, fmt.Errorf("history key: %w", err)
	}
	return NewHistoryStore(dbPath, key)
}

func setAsideOrphan(dbPath string) error {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	orphan := fmt.Sprintf("%s.orphaned-%d", dbPath, time.Now().Unix())
	if err := os.Rename(dbPath, orphan); err != nil {
		return fmt.Errorf("set aside history without key: %w", err)
	}
	return nil
}

// Ensure HistoryKeyFile implements domain.KeyProvider.
var _ domain.KeyProvider = (*HistoryKeyFile)(nil)
