package keyValStore

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/i5heu/cactusdisk/pkg/types"
)

// memCacheDatabase keeps recently used record values of the wrapped
// database in memory. Only object records (positive names) are cached:
// allocator buckets always go through the backend. Existence is always
// answered by the wrapped transaction, so records removed by other sessions
// are dropped from the cache and the backend tracks every read. A value
// rewritten by another session may still be served stale, which is safe for
// strings and meta sequences since those are never rewritten.
type memCacheDatabase struct {
	inner Database
	cache *ristretto.Cache
}

// NewMemCache wraps db with a record cache holding up to maxBytes of values.
func NewMemCache(db Database, maxBytes int64) (Database, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating record cache: %w", err)
	}
	return &memCacheDatabase{inner: db, cache: cache}, nil
}

func (m *memCacheDatabase) Begin() (Transaction, error) {
	txn, err := m.inner.Begin()
	if err != nil {
		return nil, err
	}
	return &memCacheTransaction{
		inner:   txn,
		cache:   m.cache,
		pending: make(map[types.Name][]byte),
	}, nil
}

func (m *memCacheDatabase) Close() error {
	m.cache.Close()
	return m.inner.Close()
}

type memCacheTransaction struct {
	inner Transaction
	cache *ristretto.Cache
	// pending holds the writes of this transaction, nil marks a removal
	pending map[types.Name][]byte
}

func cacheable(key types.Name) bool {
	return key.IsObjectName()
}

// cached returns the cached value of key after confirming with the wrapped
// transaction that the record still exists.
func (t *memCacheTransaction) cached(key types.Name) (value []byte, hit bool, err error) {
	if !cacheable(key) {
		return nil, false, nil
	}
	v, ok := t.cache.Get(uint64(key))
	if !ok {
		return nil, false, nil
	}

	exists, err := t.inner.ContainsRecord(key)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		t.cache.Del(uint64(key))
		return nil, true, nil
	}
	return v.([]byte), true, nil
}

func (t *memCacheTransaction) ContainsRecord(key types.Name) (bool, error) {
	if v, ok := t.pending[key]; ok {
		return v != nil, nil
	}
	exists, err := t.inner.ContainsRecord(key)
	if err == nil && !exists && cacheable(key) {
		t.cache.Del(uint64(key))
	}
	return exists, err
}

func (t *memCacheTransaction) InsertRecord(key types.Name, value []byte) error {
	if err := t.inner.InsertRecord(key, value); err != nil {
		return err
	}
	t.remember(key, value)
	return nil
}

func (t *memCacheTransaction) UpdateRecord(key types.Name, value []byte) error {
	if err := t.inner.UpdateRecord(key, value); err != nil {
		return err
	}
	t.remember(key, value)
	return nil
}

func (t *memCacheTransaction) RemoveRecord(key types.Name) error {
	if err := t.inner.RemoveRecord(key); err != nil {
		return err
	}
	if cacheable(key) {
		t.pending[key] = nil
	}
	return nil
}

func (t *memCacheTransaction) remember(key types.Name, value []byte) {
	if !cacheable(key) {
		return
	}
	t.pending[key] = copyValue(value)
}

func (t *memCacheTransaction) GetRecord(key types.Name) ([]byte, error) {
	if v, ok := t.pending[key]; ok {
		return copyValue(v), nil
	}

	v, hit, err := t.cached(key)
	if err != nil {
		return nil, err
	}
	if hit {
		return copyValue(v), nil
	}

	value, err := t.inner.GetRecord(key)
	if err != nil || value == nil {
		return value, err
	}
	if cacheable(key) {
		v := copyValue(value)
		t.cache.Set(uint64(key), v, int64(len(v)))
	}
	return value, nil
}

func (t *memCacheTransaction) GetPartialRecord(key types.Name, offset, size int64) ([]byte, error) {
	v, hit := t.pending[key]
	if !hit {
		var err error
		v, hit, err = t.cached(key)
		if err != nil {
			return nil, err
		}
	}
	if !hit {
		return t.inner.GetPartialRecord(key, offset, size)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return partial(v, key, offset, size)
}

func copyValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (t *memCacheTransaction) Commit() error {
	if err := t.inner.Commit(); err != nil {
		return err
	}
	for key, value := range t.pending {
		if value == nil {
			t.cache.Del(uint64(key))
			continue
		}
		t.cache.Set(uint64(key), value, int64(len(value)))
	}
	if len(t.pending) > 0 {
		// later transactions must not observe the values replaced here
		t.cache.Wait()
	}
	t.pending = make(map[types.Name][]byte)
	return nil
}

func (t *memCacheTransaction) Abort() {
	t.inner.Abort()
	t.pending = make(map[types.Name][]byte)
}
