package keyValStore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/i5heu/cactusdisk/pkg/types"
)

// DefaultMemTableSize lets a single badger transaction hold about 400k
// records or 40 MB.
const DefaultMemTableSize = 256 << 20

type badgerDatabase struct {
	badgerDB *badger.DB
}

func openBadger(config StoreConfig, create bool) (*badgerDatabase, error) {
	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Paths[0])
		opts.ValueLogFileSize = 1024 * 1024 * 100 // Set max size of each value log file to 100MB
	}
	opts.MemTableSize = config.MemTableSize
	if opts.MemTableSize == 0 {
		opts.MemTableSize = DefaultMemTableSize
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger: %w", err)
	}

	if create {
		if err := db.DropAll(); err != nil {
			db.Close()
			return nil, fmt.Errorf("error emptying badger: %w", err)
		}
	}

	return &badgerDatabase{badgerDB: db}, nil
}

// NewBadgerDatabase wraps an already opened badger instance.
func NewBadgerDatabase(db *badger.DB) Database {
	return &badgerDatabase{badgerDB: db}
}

func (b *badgerDatabase) Begin() (Transaction, error) {
	return &badgerTransaction{txn: b.badgerDB.NewTransaction(true)}, nil
}

func (b *badgerDatabase) Close() error {
	return b.badgerDB.Close()
}

type badgerTransaction struct {
	txn *badger.Txn
}

func translateBadgerError(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrRetryTransaction, err)
	}
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %v, raise store.memTableSize", ErrTransactionTooBig, err)
	}
	return err
}

func (t *badgerTransaction) ContainsRecord(key types.Name) (bool, error) {
	_, err := t.txn.Get(encodeKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translateBadgerError(err)
	}
	return true, nil
}

func (t *badgerTransaction) InsertRecord(key types.Name, value []byte) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrRecordExists, key)
	}
	return t.set(key, value)
}

func (t *badgerTransaction) UpdateRecord(key types.Name, value []byte) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return t.set(key, value)
}

func (t *badgerTransaction) set(key types.Name, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	return translateBadgerError(t.txn.Set(encodeKey(key), v))
}

func (t *badgerTransaction) RemoveRecord(key types.Name) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return translateBadgerError(t.txn.Delete(encodeKey(key)))
}

func (t *badgerTransaction) GetRecord(key types.Name) ([]byte, error) {
	item, err := t.txn.Get(encodeKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateBadgerError(err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("error reading key %s: %w", key, err)
	}
	return value, nil
}

func (t *badgerTransaction) GetPartialRecord(key types.Name, offset, size int64) ([]byte, error) {
	value, err := t.GetRecord(key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return partial(value, key, offset, size)
}

func (t *badgerTransaction) Commit() error {
	return translateBadgerError(t.txn.Commit())
}

func (t *badgerTransaction) Abort() {
	t.txn.Discard()
}
