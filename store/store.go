// Package store defines the persisted document store and its backends.
//
// A document is one mapping from string keys to raw JSON values. Every
// backend keeps the mapping in memory; Set only touches memory and Sync
// writes the whole mapping to the backing medium.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Store is the interface that all document backends implement.
type Store interface {
	// Get returns a copy of the value stored under key. ok is false if the
	// key was never set.
	Get(key string) (value json.RawMessage, ok bool)

	// Set replaces the in-memory value for key. It does not write to disk.
	Set(key string, value json.RawMessage)

	// Sync flushes the entire mapping to the backing medium, overwriting
	// its previous contents.
	Sync() error

	// Keys returns every key currently set, sorted.
	Keys() []string

	// Close releases the backing medium. It does not sync.
	Close() error
}

// GetJSON decodes the value stored under key into v. It reports false with a
// nil error when the key is absent.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	s.Set(key, b)
	return nil
}

// document is the in-memory mapping shared by every backend.
type document struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

func newDocument(values map[string]json.RawMessage) document {
	if values == nil {
		values = make(map[string]json.RawMessage)
	}
	return document{values: values}
}

func (d *document) Get(key string) (json.RawMessage, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[key]
	if !ok {
		return nil, false
	}
	return cloneRaw(v), true
}

func (d *document) Set(key string, value json.RawMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = cloneRaw(value)
}

func (d *document) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// snapshot returns a copy of the mapping safe to serialize without the lock.
func (d *document) snapshot() map[string]json.RawMessage {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(d.values))
	for k, v := range d.values {
		out[k] = cloneRaw(v)
	}
	return out
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	return append(json.RawMessage(nil), v...)
}
