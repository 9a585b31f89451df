package keyValStore

import (
	"fmt"

	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// levelDatabase is a local single writer backend. leveldb transactions hold
// an exclusive lock, so they never report conflicts.
type levelDatabase struct {
	levelDB *leveldb.DB
}

func openLevelDB(config StoreConfig, create bool) (*levelDatabase, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if config.InMemory {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(config.Paths[0], &opt.Options{ErrorIfMissing: !create})
	}
	if err != nil {
		return nil, fmt.Errorf("error opening leveldb: %w", err)
	}

	if create {
		if err := dropAllLevelDB(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("error emptying leveldb: %w", err)
		}
	}

	return &levelDatabase{levelDB: db}, nil
}

func dropAllLevelDB(db *leveldb.DB) error {
	batch := new(leveldb.Batch)
	it := db.NewIterator(nil, nil)
	for it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		batch.Delete(key)
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}
	return db.Write(batch, nil)
}

func (l *levelDatabase) Begin() (Transaction, error) {
	tr, err := l.levelDB.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("error opening leveldb transaction: %w", err)
	}
	return &levelTransaction{tr: tr}, nil
}

func (l *levelDatabase) Close() error {
	return l.levelDB.Close()
}

type levelTransaction struct {
	tr *leveldb.Transaction
}

func (t *levelTransaction) ContainsRecord(key types.Name) (bool, error) {
	return t.tr.Has(encodeKey(key), nil)
}

func (t *levelTransaction) InsertRecord(key types.Name, value []byte) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrRecordExists, key)
	}
	return t.tr.Put(encodeKey(key), value, nil)
}

func (t *levelTransaction) UpdateRecord(key types.Name, value []byte) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return t.tr.Put(encodeKey(key), value, nil)
}

func (t *levelTransaction) RemoveRecord(key types.Name) error {
	exists, err := t.ContainsRecord(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return t.tr.Delete(encodeKey(key), nil)
}

func (t *levelTransaction) GetRecord(key types.Name) ([]byte, error) {
	value, err := t.tr.Get(encodeKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading key %s: %w", key, err)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (t *levelTransaction) GetPartialRecord(key types.Name, offset, size int64) ([]byte, error) {
	value, err := t.GetRecord(key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return partial(value, key, offset, size)
}

func (t *levelTransaction) Commit() error {
	return t.tr.Commit()
}

func (t *levelTransaction) Abort() {
	t.tr.Discard()
}
