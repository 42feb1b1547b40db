package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// TokenKey is the entry the admin token is stored under.
const TokenKey = "admin_token"

// TokenStore keeps the admin bearer token between calls.
type TokenStore interface {
	Token() (string, error)
	SetToken(string) error
	Clear() error
}

// FileStore persists entries in a small YAML file readable only by its
// owner.  Unknown keys in the file are preserved.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path.  The file is created on the
// first SetToken.
func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// DefaultTokenPath is $XDG_CONFIG_HOME/safarictl/credentials.yaml (or the
// OS equivalent).
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "safarictl", "credentials.yaml"), nil
}

func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return "", err
	}
	return m[TokenKey], nil
}

func (s *FileStore) SetToken(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	m[TokenKey] = tok
	return s.write(m)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := m[TokenKey]; !ok {
		return nil
	}
	delete(m, TokenKey)
	return s.write(m)
}

func (s *FileStore) read() (map[string]string, error) {
	m := map[string]string{}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", s.path, err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (s *FileStore) write(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// MemoryStore is a TokenStore for tests and one-shot programs.
type MemoryStore struct {
	mu  sync.Mutex
	tok string
}

func (m *MemoryStore) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok, nil
}

func (m *MemoryStore) SetToken(tok string) error {
	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error { return m.SetToken("") }
