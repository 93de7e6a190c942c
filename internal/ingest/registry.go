package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Registry tracks which source files have already been ingested, keyed by
// "{namespace}::{filename}" and valued by the file's content hash. A file
// whose hash is unchanged is skipped on re-ingestion.
//
// The registry is a JSON file guarded by an advisory file lock, so
// concurrent ingest runs on the same data directory serialize instead of
// clobbering each other.
type Registry struct {
	path    string
	lock    *flock.Flock
	entries map[string]string
}

// OpenRegistry loads (or initializes) the registry at path and takes the
// lock. The caller must Close it.
func OpenRegistry(path string) (*Registry, error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking registry: %w", err)
	}

	entries := make(map[string]string)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// first run
	case err != nil:
		_ = lock.Unlock()
		return nil, fmt.Errorf("reading registry: %w", err)
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("parsing registry %s: %w", path, err)
		}
	}

	return &Registry{path: path, lock: lock, entries: entries}, nil
}

// UpToDate reports whether the recorded hash for key matches hash.
func (r *Registry) UpToDate(key, hash string) bool {
	return r.entries[key] == hash
}

// Record stores the hash for key in memory; Save persists it.
func (r *Registry) Record(key, hash string) {
	r.entries[key] = hash
}

// Save writes the registry atomically via a temp file rename.
func (r *Registry) Save() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}

// Close releases the lock.
func (r *Registry) Close() error {
	return r.lock.Unlock()
}

// RegistryKey builds the registry key for a file within a namespace.
func RegistryKey(namespace, filename string) string {
	return namespace + "::" + filepath.Base(filename)
}

// FileHash returns the hex SHA-256 of the file contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
