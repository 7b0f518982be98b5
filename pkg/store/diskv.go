package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/peterbourgon/diskv/v3"
)

// Store is a named JSON document of string keys to JSON values. Every
// component that names the same file shares one Store handle.
type Store interface {
	// Name is the file name backing the store, e.g. "usage.json".
	Name() string
	// Get decodes the value at key into v. It reports false when key is
	// absent.
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	Delete(key string) error
	Keys() []string
	// Save writes the in-memory document to disk.
	Save() error
	// Reload replaces the in-memory document with what is on disk. It
	// reports false when the file still holds what this handle last read
	// or wrote.
	Reload() (bool, error)
}

// Config supplies the directory stores live in.
type Config interface {
	BasePath() string
}

const tempDirName = ".tmp"

// Open loads the named store under cfg.BasePath(). A missing file yields an
// empty store.
func Open(cfg Config, name string) (Store, error) {
	d, err := newDocument(cfg, name)
	if err != nil {
		return nil, err
	}
	if _, err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenEmpty returns the named store without reading the file. The next Save
// overwrites whatever is on disk; used to recover from an unreadable file.
func OpenEmpty(cfg Config, name string) (Store, error) {
	return newDocument(cfg, name)
}

func newDocument(cfg Config, name string) (*document, error) {
	if cfg == nil || cfg.BasePath() == "" {
		return nil, errors.New("store: base path unknown")
	}
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("store: invalid store name %q", name)
	}
	basePath := cfg.BasePath()
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}

	d := &document{
		name:     name,
		basePath: basePath,
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			TempDir:           filepath.Join(basePath, tempDirName),
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      64 * 1024,
		}),
		values: map[string]json.RawMessage{},
	}
	return d, nil
}

type document struct {
	name     string
	basePath string
	d        *diskv.Diskv

	mu        sync.RWMutex
	values    map[string]json.RawMessage
	lastSaved []byte
	// synced is set once lastSaved mirrors the file.
	synced bool
}

func (d *document) Name() string {
	return d.name
}

func (d *document) Get(key string, v any) (bool, error) {
	d.mu.RLock()
	raw, ok := d.values[key]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("store: decode %s[%s]: %w", d.name, key, err)
	}
	return true, nil
}

func (d *document) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s[%s]: %w", d.name, key, err)
	}
	d.mu.Lock()
	d.values[key] = raw
	d.mu.Unlock()
	return nil
}

func (d *document) Delete(key string) error {
	d.mu.Lock()
	delete(d.values, key)
	d.mu.Unlock()
	return nil
}

func (d *document) Keys() []string {
	d.mu.RLock()
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	d.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (d *document) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := json.MarshalIndent(d.values, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", d.name, err)
	}
	if err := d.d.Write(d.name, data); err != nil {
		return fmt.Errorf("store: write %s: %w", d.name, err)
	}
	d.lastSaved = data
	d.synced = true
	return nil
}

func (d *document) Reload() (bool, error) {
	// Read under the lock so a concurrent Save is seen whole or not at all.
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := d.read()
	if err != nil {
		return false, err
	}
	if d.synced && bytes.Equal(data, d.lastSaved) {
		return false, nil
	}
	values := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return false, fmt.Errorf("store: decode %s: %w", d.name, err)
		}
	}
	d.values = values
	d.lastSaved = data
	d.synced = true
	return true, nil
}

func (d *document) read() ([]byte, error) {
	// Bypass the diskv cache so edits by other processes are visible.
	rc, err := d.d.ReadStream(d.name, true)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", d.name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", d.name, err)
	}
	return data, nil
}

// Stores live flat in the base directory, one file per store name.
func keyToPathTransform(key string) *diskv.PathKey {
	return &diskv.PathKey{
		Path:     []string{},
		FileName: key,
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return pathKey.FileName
}
