package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// DocumentStore reads and writes the source-of-truth document.
type DocumentStore interface {
	LoadDocument() (string, error)
	SaveDocument(text string) error
}

// ClaimStore reads and writes the claim registry.
type ClaimStore interface {
	LoadClaims() (*Registry, error)
	SaveClaims(registry *Registry) error
}

// FileStore keeps the document and the claim registry in files.
type FileStore struct {
	DocumentPath string
	ClaimsPath   string
}

// NewFileStore returns a store for the given paths.
func NewFileStore(documentPath, claimsPath string) *FileStore {
	return &FileStore{DocumentPath: documentPath, ClaimsPath: claimsPath}
}

// LoadDocument reads the document. A missing file is ErrFileNotFound.
func (s *FileStore) LoadDocument() (string, error) {
	data, err := os.ReadFile(s.DocumentPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, s.DocumentPath)
	}
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// SaveDocument writes the document atomically.
func (s *FileStore) SaveDocument(text string) error {
	if err := writeFileAtomic(s.DocumentPath, []byte(text)); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// LoadClaims reads the registry. A missing file is an empty registry.
func (s *FileStore) LoadClaims() (*Registry, error) {
	data, err := os.ReadFile(s.ClaimsPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	var registry Registry
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &registry); err != nil {
			return nil, fmt.Errorf("unmarshal claims: %w", err)
		}
	}
	return registry.normalize(), nil
}

// SaveClaims writes the registry atomically, skipping the write when the
// contents are unchanged.
func (s *FileStore) SaveClaims(registry *Registry) error {
	data, err := json.MarshalIndent(registry.normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}
	data = append(data, '\n')

	if existing, err := os.ReadFile(s.ClaimsPath); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read claims: %w", err)
	}

	if err := writeFileAtomic(s.ClaimsPath, data); err != nil {
		return fmt.Errorf("write claims: %w", err)
	}
	return nil
}

// WithLock runs fn while holding an exclusive lock beside the document.
// The engine itself does no locking; callers that mutate wrap their
// load-mutate-save cycle in WithLock.
func (s *FileStore) WithLock(fn func() error) error {
	return withFileLock(s.DocumentPath+".lock", fn)
}

// withFileLock executes fn while holding an exclusive lock on the file at path.
// Creates the file if it doesn't exist.
func withFileLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open file for locking: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(data)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err == nil {
		err = os.Chmod(name, 0644)
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
