package uniqueID

import (
	"math"
	"math/rand"
	"testing"

	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) keyValStore.Database {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	db, err := keyValStore.Open(keyValStore.StoreConfig{Type: keyValStore.BadgerStore, InMemory: true, Logger: logger}, true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// conflictingDatabase fails the first commits with a retryable conflict.
type conflictingDatabase struct {
	keyValStore.Database
	conflicts int
}

func (c *conflictingDatabase) Begin() (keyValStore.Transaction, error) {
	txn, err := c.Database.Begin()
	if err != nil {
		return nil, err
	}
	return &conflictingTransaction{Transaction: txn, db: c}, nil
}

type conflictingTransaction struct {
	keyValStore.Transaction
	db *conflictingDatabase
}

func (c *conflictingTransaction) Commit() error {
	if c.db.conflicts > 0 {
		c.db.conflicts--
		return keyValStore.ErrRetryTransaction
	}
	return c.Transaction.Commit()
}

func TestAllocator_FirstBlockStartsAtBucketMinimum(t *testing.T) {
	db := openDB(t)
	a := NewAllocator(Config{BlockSize: 8, BucketNumber: 4}, rand.New(rand.NewSource(1)))

	first, err := a.Next(db, nil)
	require.NoError(t, err)

	found := false
	for bucket := types.Name(-1); bucket >= -4; bucket-- {
		minimum, _ := a.BucketBounds(bucket)
		if int64(first) == minimum {
			found = true
		}
	}
	assert.True(t, found, "first id %d is not a bucket minimum", first)
	assert.Equal(t, int64(7), a.Remaining())
}

func TestAllocator_BlockExhaustionAcquiresExactlyOneNewBlock(t *testing.T) {
	db := openDB(t)
	a := NewAllocator(Config{BucketNumber: 1}, rand.New(rand.NewSource(7)))

	seen := make(map[types.Name]bool)
	var previous types.Name
	for i := 0; i < DefaultBlockSize+1; i++ {
		id, err := a.Next(db, nil)
		require.NoError(t, err)
		require.NotEqual(t, types.NullName, id)
		require.False(t, seen[id], "id %d handed out twice", id)
		require.Greater(t, id, previous)
		seen[id] = true
		previous = id
	}

	assert.Equal(t, 2, a.Blocks())
	assert.Equal(t, types.Name(DefaultBlockSize+1), previous)
}

func TestAllocator_DistinctAcrossRandomBuckets(t *testing.T) {
	db := openDB(t)
	a := NewAllocator(Config{BlockSize: 16}, rand.New(rand.NewSource(3)))

	seen := make(map[types.Name]bool)
	var previous types.Name
	for i := 0; i < 16*20; i++ {
		remaining := a.Remaining()
		id, err := a.Next(db, nil)
		require.NoError(t, err)
		require.True(t, id.IsObjectName())
		require.False(t, seen[id])
		if remaining > 0 {
			require.Equal(t, previous+1, id)
		}
		seen[id] = true
		previous = id
	}
	assert.Equal(t, 20, a.Blocks())
}

func TestAllocator_SessionsSharingABackendNeverOverlap(t *testing.T) {
	db := openDB(t)
	first := NewAllocator(Config{BlockSize: 4, BucketNumber: 2}, rand.New(rand.NewSource(1)))
	second := NewAllocator(Config{BlockSize: 4, BucketNumber: 2}, rand.New(rand.NewSource(1)))

	seen := make(map[types.Name]bool)
	for i := 0; i < 64; i++ {
		for _, a := range []*Allocator{first, second} {
			id, err := a.Next(db, nil)
			require.NoError(t, err)
			require.False(t, seen[id], "id %d handed out twice", id)
			seen[id] = true
		}
	}
}

func TestAllocator_SeededSourcesAreReproducible(t *testing.T) {
	a := NewAllocator(Config{}, rand.New(rand.NewSource(99)))
	b := NewAllocator(Config{}, rand.New(rand.NewSource(99)))

	idA, err := a.Next(openDB(t), nil)
	require.NoError(t, err)
	idB, err := b.Next(openDB(t), nil)
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestAllocator_RetriesConflicts(t *testing.T) {
	db := &conflictingDatabase{Database: openDB(t), conflicts: 3}
	a := NewAllocator(Config{BlockSize: 10, BucketNumber: 1}, rand.New(rand.NewSource(1)))

	conflicts := 0
	id, err := a.Next(db, func(err error) { conflicts++ })
	require.NoError(t, err)
	assert.Equal(t, 3, conflicts)
	assert.Equal(t, types.Name(1), id)
	assert.Equal(t, 1, a.Blocks())

	err = keyValStore.RunTransaction(db, func(txn keyValStore.Transaction) error {
		value, err := txn.GetRecord(-1)
		require.NoError(t, err)
		assert.Equal(t, types.Name(11).Bytes(), value)
		return nil
	}, nil)
	require.NoError(t, err)
}

func TestAllocator_BucketExhausted(t *testing.T) {
	db := openDB(t)
	err := keyValStore.RunTransaction(db, func(txn keyValStore.Transaction) error {
		return txn.InsertRecord(-1, types.Name(math.MaxInt64-100).Bytes())
	}, nil)
	require.NoError(t, err)

	a := NewAllocator(Config{BucketNumber: 1}, rand.New(rand.NewSource(1)))
	_, err = a.Next(db, nil)
	assert.ErrorIs(t, err, ErrBucketExhausted)
	assert.Equal(t, 0, a.Blocks())
}

func TestAllocator_InvalidMark(t *testing.T) {
	db := openDB(t)
	err := keyValStore.RunTransaction(db, func(txn keyValStore.Transaction) error {
		return txn.InsertRecord(-1, []byte{1, 2})
	}, nil)
	require.NoError(t, err)

	a := NewAllocator(Config{BucketNumber: 1}, rand.New(rand.NewSource(1)))
	_, err = a.Next(db, nil)
	assert.ErrorIs(t, err, ErrInvalidMark)
}

func TestAllocator_BucketBounds(t *testing.T) {
	a := NewAllocator(Config{}, rand.New(rand.NewSource(1)))
	size := int64(math.MaxInt64 / DefaultBucketNumber)

	minimum, maximum := a.BucketBounds(-1)
	assert.Equal(t, int64(1), minimum)
	assert.Equal(t, size, maximum)

	minimum, maximum = a.BucketBounds(-DefaultBucketNumber)
	assert.Equal(t, size*(DefaultBucketNumber-1)+1, minimum)
	assert.LessOrEqual(t, maximum, int64(math.MaxInt64))
}
