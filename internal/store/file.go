package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DefaultBaseDir is the default data directory.
const DefaultBaseDir = "data"

// validIDPattern matches path-safe entity IDs.
var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateID checks that an ID is safe for use in file paths.
func validateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if !validIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrIDInvalidChars, id)
	}
	return nil
}

// FileStore implements Store on the local filesystem, one JSON document per
// entity at <base>/<repo>/<kind>/<id>.json. Writes are atomic (temp file +
// rename) and read-modify-write sequences are serialized per key.
type FileStore struct {
	// BaseDir is the root data directory (e.g., "data").
	BaseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*FileStore)

// WithBaseDir sets the base directory.
func WithBaseDir(dir string) FileStoreOption {
	return func(fs *FileStore) {
		fs.BaseDir = dir
	}
}

// NewFileStore creates a new file-based store.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	fs := &FileStore{
		BaseDir: DefaultBaseDir,
		locks:   make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs
}

// Init creates the base data directory.
func (fs *FileStore) Init() error {
	if err := os.MkdirAll(fs.BaseDir, 0700); err != nil {
		return fmt.Errorf("create data directory %s: %w", fs.BaseDir, err)
	}
	return nil
}

// Close releases any resources.
func (fs *FileStore) Close() error {
	return nil // No resources to release for file storage
}

// keyLock returns the writer lock for one (repo, kind, id) key.
func (fs *FileStore) keyLock(repo string, kind Kind, id string) *sync.Mutex {
	key := repo + "\x00" + string(kind) + "\x00" + id

	fs.mu.Lock()
	defer fs.mu.Unlock()

	l, ok := fs.locks[key]
	if !ok {
		l = &sync.Mutex{}
		fs.locks[key] = l
	}
	return l
}

// entityPath returns the file path for a record.
func (fs *FileStore) entityPath(repo string, kind Kind, id string) string {
	return filepath.Join(fs.BaseDir, repo, string(kind), id+".json")
}

// Get loads a record. Missing and malformed records both return ErrNotFound.
func (fs *FileStore) Get(repo string, kind Kind, id string, out any) error {
	if err := validateID(id); err != nil {
		return err
	}

	data, err := os.ReadFile(fs.entityPath(repo, kind, id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// Unreadable records are treated as absent, not fatal.
		return ErrNotFound
	}
	return nil
}

// Put writes a record atomically, replacing any existing one.
func (fs *FileStore) Put(repo string, kind Kind, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return fs.atomicWrite(fs.entityPath(repo, kind, id), data)
}

// Update performs a read-modify-write under the per-key writer lock.
func (fs *FileStore) Update(repo string, kind Kind, id string, out any, mutate func(exists bool) error) error {
	if err := validateID(id); err != nil {
		return err
	}

	l := fs.keyLock(repo, kind, id)
	l.Lock()
	defer l.Unlock()

	exists := true
	if err := fs.Get(repo, kind, id, out); err != nil {
		if err != ErrNotFound {
			return err
		}
		exists = false
	}

	if err := mutate(exists); err != nil {
		return err
	}

	return fs.Put(repo, kind, id, out)
}

// List returns the sorted IDs of all records of a kind.
func (fs *FileStore) List(repo string, kind Kind) ([]string, error) {
	dir := filepath.Join(fs.BaseDir, repo, string(kind))

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	sort.Strings(ids)
	return ids, nil
}

// Delete removes a record. Missing records are a no-op.
func (fs *FileStore) Delete(repo string, kind Kind, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := os.Remove(fs.entityPath(repo, kind, id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// atomicWrite writes data to a temp file and renames it into place.
func (fs *FileStore) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	// Create temp file in same directory for atomic rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath) //nolint:errcheck // cleanup in error path
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("write content: %w", err)
	}

	// Sync to ensure data is on disk
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("sync file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}
