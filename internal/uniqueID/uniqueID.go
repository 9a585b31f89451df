// Package uniqueID hands out names that are unique across every writer of a
// backend. The positive name space is split into buckets, each with a high
// water mark record stored under a negative key. A session reserves a block
// of names from a random bucket in one transaction and then serves the block
// from memory.
package uniqueID

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/pkg/types"
)

const (
	DefaultBlockSize    = 16384
	DefaultBucketNumber = 65536
)

var (
	// ErrBucketExhausted means a bucket has no room for another block.
	// It is not retried: the bucket sizing makes it a configuration error.
	ErrBucketExhausted = errors.New("unique id bucket exhausted")
	ErrInvalidMark     = errors.New("invalid bucket record")
)

type Config struct {
	BlockSize    int64
	BucketNumber int64
}

type Allocator struct {
	blockSize    int64
	bucketNumber int64
	bucketSize   int64

	current int64
	ceiling int64
	blocks  int

	random *rand.Rand
}

// NewAllocator returns an allocator drawing buckets from random. Zero config
// values select the defaults.
func NewAllocator(config Config, random *rand.Rand) *Allocator {
	if config.BlockSize < 1 {
		config.BlockSize = DefaultBlockSize
	}
	if config.BucketNumber < 1 {
		config.BucketNumber = DefaultBucketNumber
	}

	return &Allocator{
		blockSize:    config.BlockSize,
		bucketNumber: config.BucketNumber,
		bucketSize:   math.MaxInt64 / config.BucketNumber,
		random:       random,
	}
}

// Next returns the next unique name. When the current block is used up a
// new one is acquired through db; onConflict is called for every retried
// transaction.
func (a *Allocator) Next(db keyValStore.Database, onConflict func(err error)) (types.Name, error) {
	if a.current > a.ceiling {
		panic(fmt.Sprintf("unique id %d beyond block ceiling %d", a.current, a.ceiling))
	}
	if a.current == a.ceiling {
		if err := a.acquireBlock(db, onConflict); err != nil {
			return types.NullName, err
		}
	}
	id := a.current
	a.current++
	return types.Name(id), nil
}

// Remaining is the number of names left in the current block.
func (a *Allocator) Remaining() int64 {
	return a.ceiling - a.current
}

// Blocks is the number of blocks acquired so far.
func (a *Allocator) Blocks() int {
	return a.blocks
}

// BucketBounds returns the first and last name a bucket may hand out.
func (a *Allocator) BucketBounds(bucket types.Name) (minimum, maximum int64) {
	index := -int64(bucket)
	minimum = a.bucketSize*(index-1) + 1 // plus one for the reserved 0 name
	maximum = minimum + (a.bucketSize - 1)
	return minimum, maximum
}

func (a *Allocator) pickBucket() types.Name {
	return types.Name(-(a.random.Int63n(a.bucketNumber) + 1))
}

func (a *Allocator) acquireBlock(db keyValStore.Database, onConflict func(err error)) error {
	var mark int64
	err := keyValStore.RunTransaction(db, func(txn keyValStore.Transaction) error {
		bucket := a.pickBucket()
		minimum, maximum := a.BucketBounds(bucket)

		value, err := txn.GetRecord(bucket)
		if err != nil {
			return err
		}

		recordExists := value != nil
		mark = minimum
		if recordExists {
			var stored types.Name
			if err := stored.FromBytes(value); err != nil {
				return fmt.Errorf("%w %s: %v", ErrInvalidMark, bucket, err)
			}
			mark = int64(stored)
		}

		if mark >= maximum-a.blockSize {
			return fmt.Errorf("%w: bucket %s is at %d of %d", ErrBucketExhausted, bucket, mark, maximum)
		}

		next := types.Name(mark + a.blockSize)
		if recordExists {
			return txn.UpdateRecord(bucket, next.Bytes())
		}
		return txn.InsertRecord(bucket, next.Bytes())
	}, onConflict)
	if err != nil {
		return err
	}

	a.current = mark
	a.ceiling = mark + a.blockSize
	a.blocks++
	return nil
}
