package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultTokenKey is the storage key of the bearer token.
const DefaultTokenKey = "auth_token"

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// TokenFile is a JSON object of key → token on disk, shared by any number of stores.
type TokenFile struct {
	path string
	mu   sync.Mutex
}

func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// Store returns the TokenStore for key.
func (f *TokenFile) Store(key string) TokenStore {
	return &fileTokenStore{file: f, key: key}
}

func (f *TokenFile) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	tokens := map[string]string{}
	if len(data) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return tokens, nil
}

// write replaces the file atomically so a crash never leaves it half written.
func (f *TokenFile) write(tokens map[string]string) error {
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (f *TokenFile) update(fn func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, err := f.read()
	if err != nil {
		return err
	}
	fn(tokens)
	return f.write(tokens)
}

type fileTokenStore struct {
	file *TokenFile
	key  string
}

func (s *fileTokenStore) Load() (string, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	tokens, err := s.file.read()
	if err != nil {
		return "", err
	}
	return tokens[s.key], nil
}

func (s *fileTokenStore) Save(token string) error {
	return s.file.update(func(tokens map[string]string) { tokens[s.key] = token })
}

func (s *fileTokenStore) Clear() error {
	return s.file.update(func(tokens map[string]string) { delete(tokens, s.key) })
}

// MemoryTokenStore keeps the token for the lifetime of the process.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	return m.Save("")
}
