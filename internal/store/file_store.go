package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// FileStore is a lightweight Store for local development: each key is one
// file under dir, written with an atomic rename so a
// crash mid-write never leaves a half-written blob behind (the same
// concern natefinch/atomic solves for config writers). Counters and active
// hub rows live in a single index file guarded by an in-process mutex,
// since this implementation only ever expects one process to hold dir.
type FileStore struct {
	dir string

	mu       sync.Mutex
	counters map[string]int64
	hubs     map[string]ActiveHubEntry
}

// NewFileStore creates dir if needed and returns a FileStore rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	fs := &FileStore{
		dir:      dir,
		counters: make(map[string]int64),
		hubs:     make(map[string]ActiveHubEntry),
	}
	if err := fs.loadIndex(); err != nil {
		return nil, err
	}
	return fs, nil
}

type fileStoreIndex struct {
	Counters map[string]int64        `json:"counters"`
	Hubs     map[string]ActiveHubEntry `json:"hubs"`
}

func (fs *FileStore) indexPath() string { return filepath.Join(fs.dir, "_index.json") }

func (fs *FileStore) loadIndex() error {
	data, err := os.ReadFile(fs.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read index: %w", err)
	}
	var idx fileStoreIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		// A malformed index is tolerated like a missing one (spec.md §4.7).
		return nil
	}
	if idx.Counters != nil {
		fs.counters = idx.Counters
	}
	if idx.Hubs != nil {
		fs.hubs = idx.Hubs
	}
	return nil
}

func (fs *FileStore) saveIndexLocked() error {
	idx := fileStoreIndex{Counters: fs.counters, Hubs: fs.hubs}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("store: marshal index: %w", err)
	}
	return atomic.WriteFile(fs.indexPath(), bytes.NewReader(data))
}

func (fs *FileStore) keyPath(key string) string {
	return filepath.Join(fs.dir, escapeKey(key)+".blob")
}

func (fs *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(fs.keyPath(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s: %w", key, err)
	}
	return data, true, nil
}

func (fs *FileStore) Set(_ context.Context, key string, value []byte) error {
	if err := atomic.WriteFile(fs.keyPath(key), bytes.NewReader(value)); err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

func (fs *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(fs.keyPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

func (fs *FileStore) IncrementCounter(_ context.Context, key string, delta int64) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.counters[key] += delta
	value := fs.counters[key]
	if err := fs.saveIndexLocked(); err != nil {
		return value, err
	}
	return value, nil
}

func (fs *FileStore) UpsertActiveHub(_ context.Context, entry ActiveHubEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.hubs[entry.HubID] = entry
	return fs.saveIndexLocked()
}

func (fs *FileStore) DeleteActiveHub(_ context.Context, hubID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.hubs, hubID)
	return fs.saveIndexLocked()
}

func (fs *FileStore) ListActiveHubs(_ context.Context) ([]ActiveHubEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	horizon := time.Now().Add(-ActiveHubHorizon)
	var out []ActiveHubEntry
	changed := false
	for id, e := range fs.hubs {
		if e.LastUpdatedAt.Before(horizon) {
			delete(fs.hubs, id)
			changed = true
			continue
		}
		out = append(out, e)
	}
	if changed {
		if err := fs.saveIndexLocked(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// escapeKey keeps key-derived filenames filesystem-safe without pulling in
// net/url for what is, in practice, always an "airport_state:KJFK"-shaped
// key.
func escapeKey(key string) string {
	buf := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			buf = append(buf, c)
		default:
			buf = append(buf, '_')
		}
	}
	return string(buf)
}
