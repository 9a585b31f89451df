// Package keyValStore is the transactional key value backend of a cactus
// disk. Records are keyed by 64 bit names; every implementation reports
// optimistic concurrency conflicts as ErrRetryTransaction.
package keyValStore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRetryTransaction signals a conflict with another writer. The
	// transaction must be aborted and run again from scratch.
	ErrRetryTransaction = errors.New("retry transaction")
	ErrRecordExists     = errors.New("record already exists")
	ErrRecordNotFound   = errors.New("record not found")
	ErrOutOfRange       = errors.New("partial record out of range")
	ErrUnknownStoreType = errors.New("unknown store type")

	// ErrTransactionTooBig is returned when a transaction holds more than the
	// backend can commit at once.
	ErrTransactionTooBig = errors.New("transaction too big")
)

// Database is a handle on a backend shared by any number of processes.
type Database interface {
	// Begin starts a transaction. Only one transaction per handle may be open at a time.
	Begin() (Transaction, error)
	Close() error
}

// Transaction is one optimistic transaction. Reads see the transaction's own writes.
type Transaction interface {
	ContainsRecord(key types.Name) (bool, error)
	// InsertRecord fails with ErrRecordExists if key is present.
	InsertRecord(key types.Name, value []byte) error
	// UpdateRecord fails with ErrRecordNotFound if key is absent.
	UpdateRecord(key types.Name, value []byte) error
	// RemoveRecord fails with ErrRecordNotFound if key is absent.
	RemoveRecord(key types.Name) error
	// GetRecord returns nil, nil if key is absent.
	GetRecord(key types.Name) ([]byte, error)
	// GetPartialRecord returns size bytes starting at offset.
	GetPartialRecord(key types.Name, offset, size int64) ([]byte, error)
	Commit() error
	// Abort discards the transaction. It is safe to call after Commit.
	Abort()
}

// RunTransaction runs fn in a fresh transaction and commits it. When fn or
// the commit fails with ErrRetryTransaction the transaction is aborted,
// onConflict is called and everything is run again, with no backoff and no
// limit. Any other error aborts the transaction and is returned as is.
func RunTransaction(db Database, fn func(txn Transaction) error, onConflict func(err error)) error {
	for {
		txn, err := db.Begin()
		if err != nil {
			if errors.Is(err, ErrRetryTransaction) {
				if onConflict != nil {
					onConflict(err)
				}
				continue
			}
			return err
		}

		err = fn(txn)
		if err == nil {
			err = txn.Commit()
		}
		if err == nil {
			return nil
		}

		txn.Abort()
		if !errors.Is(err, ErrRetryTransaction) {
			return err
		}
		if onConflict != nil {
			onConflict(err)
		}
	}
}

// Open connects to the backend described by config. With create set the
// backend is created if missing and emptied if it already holds records.
func Open(config StoreConfig, create bool) (Database, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	err := config.checkConfig(create)
	if err != nil {
		return nil, fmt.Errorf("error checking config for KeyValStore: %w", err)
	}

	var db Database
	switch config.Type {
	case BadgerStore:
		db, err = openBadger(config, create)
	case LevelDBStore:
		db, err = openLevelDB(config, create)
	case RedisStore:
		db, err = openRedis(config, create)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreType, config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.isLocal() {
		if err := displayDiskUsage(config.Logger, config.Paths); err != nil {
			config.Logger.WithError(err).Warn("Could not display disk usage")
		}
	}

	if config.MemCacheSize > 0 {
		cached, err := NewMemCache(db, config.MemCacheSize)
		if err != nil {
			db.Close()
			return nil, err
		}
		db = cached
	}

	return db, nil
}

func encodeKey(key types.Name) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(key))
	return b
}

func partial(value []byte, key types.Name, offset, size int64) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > int64(len(value)) {
		return nil, fmt.Errorf("%w: key %s offset %d size %d record length %d", ErrOutOfRange, key, offset, size, len(value))
	}
	out := make([]byte, size)
	copy(out, value[offset:offset+size])
	return out, nil
}
