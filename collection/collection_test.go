package collection_test

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/friends-server/collection"
	"github.com/stevemurr/friends-server/schema"
	"github.com/stevemurr/friends-server/store"
)

type contact struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	AvatarData     []byte `json:"avatarData"`
	AvatarMimeType string `json:"avatarMimeType"`
	Phone          int64  `json:"phone"`
}

func (c contact) GetID() int { return c.ID }

func (c contact) WithID(id int) contact {
	c.ID = id
	return c
}

func person(name string) contact {
	return contact{Name: name, Phone: 5551234567, AvatarData: []byte("A"), AvatarMimeType: "image/png"}
}

func names(t *testing.T, c *collection.Collection[contact]) []string {
	t.Helper()
	all, err := c.All()
	require.NoError(t, err)
	out := make([]string, 0, len(all))
	for _, r := range all {
		out = append(out, r.Name)
	}
	return out
}

// failingStore fails every Sync after the first `ok` ones.
type failingStore struct {
	*store.MemoryStore
	ok    int
	calls int
}

func (f *failingStore) Sync() error {
	f.calls++
	if f.calls > f.ok {
		return errors.New("disk full")
	}
	return nil
}

func TestNewEmpty(t *testing.T) {
	db := store.NewMemoryStore()
	c, err := collection.New[contact](db, "friends")
	require.NoError(t, err)

	assert.Equal(t, "friends", c.Key())
	assert.Equal(t, 0, c.LastID())

	raw, ok := db.Get("friends")
	require.True(t, ok, "key is initialized")
	assert.JSONEq(t, `[]`, string(raw))

	all, err := c.All()
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestNewSeedsCounterFromLastElement(t *testing.T) {
	db := store.NewMemoryStore()
	db.Set("friends", json.RawMessage(`[{"id":2,"name":"a"},{"id":7,"name":"b"}]`))

	c, err := collection.New[contact](db, "friends")
	require.NoError(t, err)
	assert.Equal(t, 7, c.LastID())

	created, err := c.Add(person("c"))
	require.NoError(t, err)
	assert.Equal(t, 8, created.ID)
}

func TestNewNullAndEmptyArray(t *testing.T) {
	for _, raw := range []string{`null`, `[]`} {
		db := store.NewMemoryStore()
		db.Set("friends", json.RawMessage(raw))
		c, err := collection.New[contact](db, "friends")
		require.NoError(t, err, raw)
		assert.Equal(t, 0, c.LastID())
		stored, _ := db.Get("friends")
		assert.JSONEq(t, `[]`, string(stored))
	}
}

func TestNewResetsNonArray(t *testing.T) {
	for _, stored := range []string{`{"id":1}`, `"x"`, `42`, `true`} {
		t.Run(stored, func(t *testing.T) {
			db := store.NewMemoryStore()
			db.Set("friends", json.RawMessage(stored))

			c, err := collection.New[contact](db, "friends")
			require.NoError(t, err)
			assert.Equal(t, 0, c.LastID())

			raw, _ := db.Get("friends")
			assert.JSONEq(t, `[]`, string(raw))

			created, err := c.Add(person("a"))
			require.NoError(t, err)
			assert.Equal(t, 1, created.ID)
		})
	}
}

func TestNewRejectsMalformedRecords(t *testing.T) {
	db := store.NewMemoryStore()
	db.Set("friends", json.RawMessage(`[{"id":"one","name":"a"}]`))
	_, err := collection.New[contact](db, "friends")
	assert.Error(t, err)
}

func TestNewValidatesSchema(t *testing.T) {
	s := &schema.Schema{
		Type:     "object",
		Required: []string{"id", "name"},
		Properties: map[string]*schema.Schema{
			"id": {Type: "integer", Minimum: schema.Float(1)},
		},
	}

	db := store.NewMemoryStore()
	db.Set("friends", json.RawMessage(`[{"id":1,"name":"ok"},{"id":2}]`))
	_, err := collection.New[contact](db, "friends", collection.WithSchema(s))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
	assert.Contains(t, err.Error(), `missing required field "name"`)

	db.Set("friends", json.RawMessage(`[{"id":1,"name":"ok"}]`))
	_, err = collection.New[contact](db, "friends", collection.WithSchema(s))
	assert.NoError(t, err)
}

func TestAddThenGetAll(t *testing.T) {
	db := store.NewMemoryStore()
	c, err := collection.New[contact](db, "friends")
	require.NoError(t, err)

	created, err := c.Add(person("Alice"))
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)

	all, err := c.All()
	require.NoError(t, err)
	assert.Equal(t, []contact{{
		ID:             1,
		Name:           "Alice",
		Phone:          5551234567,
		AvatarData:     []byte("A"),
		AvatarMimeType: "image/png",
	}}, all)

	raw, _ := db.Get("friends")
	assert.JSONEq(t,
		`[{"id":1,"name":"Alice","phone":5551234567,"avatarData":"QQ==","avatarMimeType":"image/png"}]`,
		string(raw))

	got, ok, err := c.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created, got)
}

func TestAddIgnoresPresetID(t *testing.T) {
	c, err := collection.New[contact](store.NewMemoryStore(), "friends")
	require.NoError(t, err)

	r := person("x")
	r.ID = 42
	created, err := c.Add(r)
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
}

func TestIDsAreNeverReused(t *testing.T) {
	c, err := collection.New[contact](store.NewMemoryStore(), "friends")
	require.NoError(t, err)

	alice, err := c.Add(person("Alice"))
	require.NoError(t, err)
	bob, err := c.Add(person("Bob"))
	require.NoError(t, err)
	assert.Equal(t, 1, alice.ID)
	assert.Equal(t, 2, bob.ID)

	removed, err := c.Delete(1)
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := c.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].ID)
	assert.Equal(t, "Bob", all[0].Name)

	carol, err := c.Add(person("Carol"))
	require.NoError(t, err)
	assert.Equal(t, 3, carol.ID)

	prev := 0
	for i := 0; i < 5; i++ {
		r, err := c.Add(person("n"))
		require.NoError(t, err)
		if prev != 0 {
			assert.Equal(t, prev+1, r.ID)
		}
		prev = r.ID
		if i%2 == 0 {
			_, err = c.Delete(r.ID)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 8, c.LastID())
}

func TestGetMissing(t *testing.T) {
	c, err := collection.New[contact](store.NewMemoryStore(), "friends")
	require.NoError(t, err)

	_, ok, err := c.Get(999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c, err := collection.New[contact](store.NewMemoryStore(), "friends")
	require.NoError(t, err)
	for _, n := range []string{"a", "b", "c"} {
		_, err := c.Add(person(n))
		require.NoError(t, err)
	}

	removed, err := c.Delete(2)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"a", "c"}, names(t, c))

	_, ok, err := c.Get(2)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err = c.Delete(2)
	require.NoError(t, err)
	assert.False(t, removed)
	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdate(t *testing.T) {
	c, err := collection.New[contact](store.NewMemoryStore(), "friends")
	require.NoError(t, err)
	for _, n := range []string{"a", "b", "c"} {
		_, err := c.Add(person(n))
		require.NoError(t, err)
	}

	replacement := contact{ID: 99, Name: "B", Phone: 79998882200, AvatarData: []byte{1, 2}, AvatarMimeType: "image/jpeg"}
	updated, err := c.Update(2, replacement)
	require.NoError(t, err)
	assert.True(t, updated)

	got, ok, err := c.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.ID)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, int64(79998882200), got.Phone)
	assert.Equal(t, []byte{1, 2}, got.AvatarData)
	assert.Equal(t, "image/jpeg", got.AvatarMimeType)
	assert.Equal(t, []string{"a", "B", "c"}, names(t, c))

	_, ok, err = c.Get(99)
	require.NoError(t, err)
	assert.False(t, ok)

	updated, err = c.Update(42, replacement)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, []string{"a", "B", "c"}, names(t, c))
}

func TestReloadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	db, err := store.NewJsonFileStore(path)
	require.NoError(t, err)
	c, err := collection.New[contact](db, "friends")
	require.NoError(t, err)
	for _, n := range []string{"a", "b", "c", "d"} {
		_, err := c.Add(person(n))
		require.NoError(t, err)
	}
	_, err = c.Delete(2)
	require.NoError(t, err)
	_, err = c.Update(3, person("C"))
	require.NoError(t, err)

	before, err := c.All()
	require.NoError(t, err)

	db2, err := store.NewJsonFileStore(path)
	require.NoError(t, err)
	c2, err := collection.New[contact](db2, "friends")
	require.NoError(t, err)

	after, err := c2.All()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 4, c2.LastID())
}

func TestSyncFailurePropagates(t *testing.T) {
	db := &failingStore{MemoryStore: store.NewMemoryStore(), ok: 1}
	c, err := collection.New[contact](db, "friends")
	require.NoError(t, err)

	first, err := c.Add(person("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)

	_, err = c.Add(person("b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, []string{"a"}, names(t, c), "failed add is not kept")

	_, err = c.Delete(1)
	assert.Error(t, err)
	_, err = c.Update(1, person("z"))
	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, names(t, c))

	// The id consumed by the failed add is not handed out again.
	db.ok = 100
	next, err := c.Add(person("c"))
	require.NoError(t, err)
	assert.Equal(t, 3, next.ID)
}

func TestConcurrentAdds(t *testing.T) {
	c, err := collection.New[contact](store.NewMemoryStore(), "friends")
	require.NoError(t, err)

	const n = 50
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Add(person("p"))
			assert.NoError(t, err)
			ids <- r.ID
		}()
	}
	wg.Wait()
	close(ids)

	var got []int
	for id := range ids {
		got = append(got, id)
	}
	sort.Ints(got)
	want := make([]int, n)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, got)

	count, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestReadsNeverSeeFailedWrites(t *testing.T) {
	db := &failingStore{MemoryStore: store.NewMemoryStore()}
	c, err := collection.New[contact](db, "friends")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := c.Add(person("ghost"))
			assert.Error(t, err)
		}
	}()

	for i := 0; i < 200; i++ {
		all, err := c.All()
		require.NoError(t, err)
		require.Empty(t, all)
		n, err := c.Len()
		require.NoError(t, err)
		require.Zero(t, n)
	}
	wg.Wait()
}
