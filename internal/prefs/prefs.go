// Package prefs persists small values across restarts.
//
// Values are CBOR-encoded and cached in memory. Save only touches the cache;
// a Flusher component writes changed keys to the backend on an interval and
// at shutdown, so frequent state changes do not turn into frequent writes.
package prefs

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create preferences CBOR encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create preferences CBOR decoder mode: %v", err))
	}
}

// Backend stores encoded values.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, values map[string][]byte) error
	Close() error
}

// Store is a write-back cache over a Backend. Safe for concurrent use.
type Store struct {
	backend Backend

	mu    sync.Mutex
	cache map[string][]byte
	dirty map[string]struct{}
}

// New returns a Store over backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		cache:   make(map[string][]byte),
		dirty:   make(map[string]struct{}),
	}
}

// Load decodes the value for key into v. It reports whether key exists.
func (s *Store) Load(key string, v any) (bool, error) {
	s.mu.Lock()
	data, ok := s.cache[key]
	s.mu.Unlock()

	if !ok {
		var err error
		data, ok, err = s.backend.Get(context.Background(), key)
		if err != nil {
			return false, fmt.Errorf("loading preference %q: %w", key, err)
		}
		if !ok {
			return false, nil
		}
		s.mu.Lock()
		if _, raced := s.cache[key]; !raced {
			s.cache[key] = data
		}
		s.mu.Unlock()
	}

	if err := decMode.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding preference %q: %w", key, err)
	}
	return true, nil
}

// Save encodes v for key. Unchanged values are not marked for writing.
func (s *Store) Save(key string, v any) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding preference %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.cache[key]; ok && bytes.Equal(old, data) {
		return nil
	}
	s.cache[key] = data
	s.dirty[key] = struct{}{}
	return nil
}

// Pending returns the keys waiting to be written, sorted.
func (s *Store) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush writes every changed key. On failure the keys stay pending.
func (s *Store) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	batch := make(map[string][]byte, len(s.dirty))
	for k := range s.dirty {
		batch[k] = s.cache[k]
	}
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	if err := s.backend.Put(ctx, batch); err != nil {
		s.mu.Lock()
		for k, v := range batch {
			// keep newer saves made during the failed write
			if bytes.Equal(s.cache[k], v) {
				s.dirty[k] = struct{}{}
			}
		}
		s.mu.Unlock()
		return 0, fmt.Errorf("flushing preferences: %w", err)
	}
	return len(batch), nil
}

// Close closes the backend without flushing.
func (s *Store) Close() error {
	return s.backend.Close()
}
