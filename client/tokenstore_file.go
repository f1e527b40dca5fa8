package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"classroom/pkg/constraints"
)

// FileTokenStore keeps the credentials in a small JSON document on disk, keyed
// the same way the browser client keys local storage.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Path() string {
	return s.path
}

func (s *FileTokenStore) Get(_ context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileTokenStore) Set(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(Credentials{Access: access, Refresh: refresh})
}

func (s *FileTokenStore) SetAccess(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.read()
	if err != nil {
		return err
	}
	creds.Access = access
	return s.write(creds)
}

func (s *FileTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) read() (Credentials, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read token file: %w", err)
	}

	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return Credentials{}, fmt.Errorf("decode token file: %w", err)
	}
	return Credentials{
		Access:  doc[constraints.KeyAccessToken],
		Refresh: doc[constraints.KeyRefreshToken],
	}, nil
}

// write replaces the file atomically so a crash never leaves half a document.
func (s *FileTokenStore) write(creds Credentials) error {
	doc := make(map[string]string, 2)
	if creds.Access != "" {
		doc[constraints.KeyAccessToken] = creds.Access
	}
	if creds.Refresh != "" {
		doc[constraints.KeyRefreshToken] = creds.Refresh
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
