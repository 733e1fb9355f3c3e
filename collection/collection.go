// Package collection provides a typed record collection stored under one key
// of a document store.
//
// The key's value is a JSON array of records in insertion order. Each record
// carries an integer id taken from a per-collection counter that only grows:
// ids freed by Delete are never handed out again. Lookups are linear scans
// and every mutation rewrites the whole array and syncs the document, which
// is fine for the small single-tenant collections this is meant for.
package collection

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/stevemurr/friends-server/log"
	"github.com/stevemurr/friends-server/schema"
	"github.com/stevemurr/friends-server/store"
)

// Record is implemented by every type stored in a Collection.
type Record[R any] interface {
	// GetID returns the record's id; zero means unassigned.
	GetID() int
	// WithID returns a copy of the record carrying id.
	WithID(id int) R
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	schema *schema.Schema
}

// WithSchema validates every record already stored under the key against s
// when the collection is opened.
func WithSchema(s *schema.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// Collection is a typed view over one key of a store.Store.
// Safe for concurrent use; mutations are serialized and reads never observe
// a mutation whose sync failed.
type Collection[R Record[R]] struct {
	mu     sync.RWMutex
	db     store.Store
	key    string
	lastID int
}

// New opens the collection stored under key. When the key holds a non-empty
// array the id counter starts at its last element's id; otherwise, including
// when the value is not an array at all, the key is initialized to an empty
// array (in memory only) and the counter starts at 0. Malformed elements of a
// stored array are an error.
//
// Stored arrays are assumed to be in ascending id order.
func New[R Record[R]](db store.Store, key string, opts ...Option) (*Collection[R], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Collection[R]{db: db, key: key}

	raw, ok := db.Get(key)
	if !ok || isNull(raw) {
		c.reset()
		log.Debugf("collection %q initialized empty", key)
		return c, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		log.Warnf("collection %q: stored value is not an array, starting empty", key)
		c.reset()
		return c, nil
	}
	for i, elem := range elems {
		if err := schema.Validate(o.schema, elem); err != nil {
			return nil, fmt.Errorf("collection %q: record %d: %w", key, i, err)
		}
	}

	items, err := c.items()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		c.reset()
		return c, nil
	}
	c.lastID = items[len(items)-1].GetID()
	log.Debugf("collection %q loaded %d records, last id %d", key, len(items), c.lastID)
	return c, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// Key returns the document key the collection is stored under.
func (c *Collection[R]) Key() string {
	return c.key
}

// LastID returns the most recently assigned id (0 if none).
func (c *Collection[R]) LastID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastID
}

// All returns every record in stored order. The result is never nil.
func (c *Collection[R]) All() ([]R, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items()
}

// Len returns the number of records.
func (c *Collection[R]) Len() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items, err := c.items()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Get returns the first record with the given id. A missing id is reported
// through ok, not as an error.
func (c *Collection[R]) Get(id int) (record R, ok bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items, err := c.items()
	if err != nil {
		return record, false, err
	}
	if i := indexOf(items, id); i >= 0 {
		return items[i], true, nil
	}
	return record, false, nil
}

// Add assigns the next id to r, appends it and syncs. Any id already set on
// r is ignored. When the sync fails the record is not kept, but its id stays
// consumed.
func (c *Collection[R]) Add(r R) (R, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.items()
	if err != nil {
		var zero R
		return zero, err
	}
	c.lastID++
	created := r.WithID(c.lastID)
	if err := c.commit(append(items, created)); err != nil {
		var zero R
		return zero, err
	}
	return created, nil
}

// Update replaces the record with the given id by r, keeping the id and the
// record's position, and syncs. A missing id is a silent no-op and reports
// false; callers that need to know must check with Get first.
func (c *Collection[R]) Update(id int, r R) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.items()
	if err != nil {
		return false, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return false, nil
	}
	items[i] = r.WithID(id)
	if err := c.commit(items); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the record with the given id and syncs. A missing id is a
// silent no-op and reports false.
func (c *Collection[R]) Delete(id int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.items()
	if err != nil {
		return false, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return false, nil
	}
	items = append(items[:i], items[i+1:]...)
	if err := c.commit(items); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection[R]) items() ([]R, error) {
	var items []R
	if _, err := store.GetJSON(c.db, c.key, &items); err != nil {
		return nil, fmt.Errorf("collection %q: %w", c.key, err)
	}
	if items == nil {
		items = []R{}
	}
	return items, nil
}

// reset stores an empty array under the key without syncing.
func (c *Collection[R]) reset() {
	c.db.Set(c.key, json.RawMessage("[]"))
}

// commit stores items and syncs. When the sync fails the previous value is
// put back so memory does not run ahead of the backing medium.
func (c *Collection[R]) commit(items []R) error {
	prev, hadPrev := c.db.Get(c.key)
	if err := store.SetJSON(c.db, c.key, items); err != nil {
		return fmt.Errorf("collection %q: %w", c.key, err)
	}
	if err := c.db.Sync(); err != nil {
		if hadPrev {
			c.db.Set(c.key, prev)
		} else {
			c.reset()
		}
		log.Errorf("collection %q: sync failed: %v", c.key, err)
		return fmt.Errorf("collection %q: sync: %w", c.key, err)
	}
	return nil
}

func indexOf[R Record[R]](items []R, id int) int {
	for i, item := range items {
		if item.GetID() == id {
			return i
		}
	}
	return -1
}
