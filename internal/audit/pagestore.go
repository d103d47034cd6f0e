package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrPageCorrupt = errors.New("stored page failed integrity check")

// PageStore keeps raw portal pages content-addressed on disk as
// dir/{hash[:2]}/{hash}. Identical pages are stored once.
type PageStore struct {
	dir string
}

func NewPageStore(dir string) (*PageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}
	return &PageStore{dir: dir}, nil
}

// Put stores data and returns its SHA-256 hex id.
func (ps *PageStore) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	p, err := ps.path(id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err == nil {
		return id, nil
	}
	if err := atomicWriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write page: %w", err)
	}
	return id, nil
}

// Get reads a page back and verifies its hash.
func (ps *PageStore) Get(id string) ([]byte, error) {
	p, err := ps.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != id {
		return nil, fmt.Errorf("page %s hashed to %s: %w", id, got, ErrPageCorrupt)
	}
	return data, nil
}

func (ps *PageStore) Exists(id string) bool {
	p, err := ps.path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// path rejects anything that is not a SHA-256 hex digest so ids can never
// escape the store directory.
func (ps *PageStore) path(id string) (string, error) {
	if len(id) != sha256.Size*2 {
		return "", fmt.Errorf("invalid page id %q", id)
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", fmt.Errorf("invalid page id %q", id)
	}
	return filepath.Join(ps.dir, id[:2], id), nil
}

// atomicWriteFile writes through a temp file in the target directory and
// renames it into place.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	return os.Rename(tmpPath, path)
}
