package keyValStore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

func openInMemory(t *testing.T, storeType StoreType) Database {
	t.Helper()
	db, err := Open(StoreConfig{Type: storeType, InMemory: true, Logger: quietLogger()}, true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func backends(t *testing.T) map[string]func(t *testing.T) Database {
	b := map[string]func(t *testing.T) Database{
		"badger":  func(t *testing.T) Database { return openInMemory(t, BadgerStore) },
		"leveldb": func(t *testing.T) Database { return openInMemory(t, LevelDBStore) },
		"memcache": func(t *testing.T) Database {
			db, err := Open(StoreConfig{Type: BadgerStore, InMemory: true, MemCacheSize: 1 << 20, Logger: quietLogger()}, true)
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return db
		},
	}
	if addr := os.Getenv("CACTUS_REDIS_ADDR"); addr != "" {
		b["redis"] = func(t *testing.T) Database {
			db, err := Open(StoreConfig{
				Type:           RedisStore,
				RedisAddr:      addr,
				RedisKeyPrefix: "cactus-test:" + t.Name() + ":",
				Logger:         quietLogger(),
			}, true)
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return db
		}
	}
	return b
}

func commit(t *testing.T, db Database, fn func(txn Transaction) error) {
	t.Helper()
	require.NoError(t, RunTransaction(db, fn, nil))
}

func TestBackends_RecordLifecycle(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			key := types.Name(42)

			commit(t, db, func(txn Transaction) error {
				exists, err := txn.ContainsRecord(key)
				require.NoError(t, err)
				assert.False(t, exists)

				value, err := txn.GetRecord(key)
				require.NoError(t, err)
				assert.Nil(t, value)

				return txn.InsertRecord(key, []byte("first"))
			})

			commit(t, db, func(txn Transaction) error {
				value, err := txn.GetRecord(key)
				require.NoError(t, err)
				assert.Equal(t, []byte("first"), value)

				assert.ErrorIs(t, txn.InsertRecord(key, []byte("again")), ErrRecordExists)
				return txn.UpdateRecord(key, []byte("second"))
			})

			commit(t, db, func(txn Transaction) error {
				value, err := txn.GetRecord(key)
				require.NoError(t, err)
				assert.Equal(t, []byte("second"), value)
				return txn.RemoveRecord(key)
			})

			commit(t, db, func(txn Transaction) error {
				exists, err := txn.ContainsRecord(key)
				require.NoError(t, err)
				assert.False(t, exists)

				assert.ErrorIs(t, txn.UpdateRecord(key, []byte("x")), ErrRecordNotFound)
				assert.ErrorIs(t, txn.RemoveRecord(key), ErrRecordNotFound)
				return nil
			})
		})
	}
}

func TestBackends_ReadOwnWrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := open(t)

			commit(t, db, func(txn Transaction) error {
				require.NoError(t, txn.InsertRecord(7, []byte("ACGT")))
				value, err := txn.GetRecord(7)
				require.NoError(t, err)
				assert.Equal(t, []byte("ACGT"), value)

				require.NoError(t, txn.RemoveRecord(7))
				exists, err := txn.ContainsRecord(7)
				require.NoError(t, err)
				assert.False(t, exists)
				return nil
			})
		})
	}
}

func TestBackends_AbortDiscardsWrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := open(t)

			txn, err := db.Begin()
			require.NoError(t, err)
			require.NoError(t, txn.InsertRecord(9, []byte("gone")))
			txn.Abort()

			commit(t, db, func(txn Transaction) error {
				value, err := txn.GetRecord(9)
				require.NoError(t, err)
				assert.Nil(t, value)
				return nil
			})
		})
	}
}

func TestBackends_PartialRecord(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			commit(t, db, func(txn Transaction) error {
				return txn.InsertRecord(3, []byte("ACGTACGT\x00"))
			})

			commit(t, db, func(txn Transaction) error {
				value, err := txn.GetPartialRecord(3, 2, 4)
				require.NoError(t, err)
				assert.Equal(t, []byte("GTAC"), value)

				value, err = txn.GetPartialRecord(3, 0, 9)
				require.NoError(t, err)
				assert.Equal(t, []byte("ACGTACGT\x00"), value)

				_, err = txn.GetPartialRecord(3, 6, 10)
				assert.ErrorIs(t, err, ErrOutOfRange)

				_, err = txn.GetPartialRecord(4, 0, 1)
				assert.ErrorIs(t, err, ErrRecordNotFound)
				return nil
			})
		})
	}
}

func TestBackends_NegativeKeys(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			commit(t, db, func(txn Transaction) error {
				require.NoError(t, txn.InsertRecord(-1, types.Name(100).Bytes()))
				return txn.InsertRecord(1, []byte("positive"))
			})
			commit(t, db, func(txn Transaction) error {
				value, err := txn.GetRecord(-1)
				require.NoError(t, err)
				assert.Equal(t, types.Name(100).Bytes(), value)

				value, err = txn.GetRecord(1)
				require.NoError(t, err)
				assert.Equal(t, []byte("positive"), value)
				return nil
			})
		})
	}
}

func TestBadger_ConflictIsRetryable(t *testing.T) {
	db := openInMemory(t, BadgerStore)
	commit(t, db, func(txn Transaction) error {
		return txn.InsertRecord(-5, []byte{1})
	})

	first, err := db.Begin()
	require.NoError(t, err)
	defer first.Abort()
	_, err = first.GetRecord(-5)
	require.NoError(t, err)

	commit(t, db, func(txn Transaction) error {
		return txn.UpdateRecord(-5, []byte{2})
	})

	require.NoError(t, first.UpdateRecord(-5, []byte{3}))
	err = first.Commit()
	assert.ErrorIs(t, err, ErrRetryTransaction)
}

func TestRunTransaction_RetriesConflicts(t *testing.T) {
	db := openInMemory(t, BadgerStore)

	attempts := 0
	conflicts := 0
	err := RunTransaction(db, func(txn Transaction) error {
		attempts++
		if attempts < 4 {
			return ErrRetryTransaction
		}
		return txn.InsertRecord(1, []byte("done"))
	}, func(err error) {
		conflicts++
	})
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 3, conflicts)

	commit(t, db, func(txn Transaction) error {
		value, err := txn.GetRecord(1)
		require.NoError(t, err)
		assert.Equal(t, []byte("done"), value)
		return nil
	})
}

func TestRunTransaction_OtherErrorsAbort(t *testing.T) {
	db := openInMemory(t, BadgerStore)
	boom := errors.New("boom")

	attempts := 0
	err := RunTransaction(db, func(txn Transaction) error {
		attempts++
		require.NoError(t, txn.InsertRecord(1, []byte("never committed")))
		return boom
	}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)

	commit(t, db, func(txn Transaction) error {
		exists, err := txn.ContainsRecord(1)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	})
}

func TestOpen_BadgerPersistsAcrossSessions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	config := StoreConfig{Type: BadgerStore, Paths: []string{dir}, Logger: quietLogger()}

	db, err := Open(config, true)
	require.NoError(t, err)
	commit(t, db, func(txn Transaction) error {
		return txn.InsertRecord(5, []byte("flower"))
	})
	require.NoError(t, db.Close())

	db, err = Open(config, false)
	require.NoError(t, err)
	commit(t, db, func(txn Transaction) error {
		value, err := txn.GetRecord(5)
		require.NoError(t, err)
		assert.Equal(t, []byte("flower"), value)
		return nil
	})
	require.NoError(t, db.Close())

	db, err = Open(config, true)
	require.NoError(t, err)
	defer db.Close()
	commit(t, db, func(txn Transaction) error {
		exists, err := txn.ContainsRecord(5)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	})
}

func TestOpen_LevelDBPersistsAcrossSessions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	config := StoreConfig{Type: LevelDBStore, Paths: []string{dir}, Logger: quietLogger()}

	db, err := Open(config, true)
	require.NoError(t, err)
	commit(t, db, func(txn Transaction) error {
		return txn.InsertRecord(5, []byte("flower"))
	})
	require.NoError(t, db.Close())

	db, err = Open(config, false)
	require.NoError(t, err)
	defer db.Close()
	commit(t, db, func(txn Transaction) error {
		value, err := txn.GetRecord(5)
		require.NoError(t, err)
		assert.Equal(t, []byte("flower"), value)
		return nil
	})
}

func TestOpen_ConfigErrors(t *testing.T) {
	_, err := Open(StoreConfig{Type: "cassandra", InMemory: true}, true)
	assert.ErrorIs(t, err, ErrUnknownStoreType)

	_, err = Open(StoreConfig{Type: BadgerStore}, true)
	assert.Error(t, err)

	_, err = Open(StoreConfig{Type: BadgerStore, Paths: []string{filepath.Join(t.TempDir(), "missing")}}, false)
	assert.Error(t, err)

	_, err = Open(StoreConfig{Type: RedisStore}, true)
	assert.Error(t, err)
}

func TestMemCache_SeesCommittedRemoval(t *testing.T) {
	inner := openInMemory(t, BadgerStore)
	db, err := NewMemCache(inner, 1<<20)
	require.NoError(t, err)

	commit(t, db, func(txn Transaction) error {
		return txn.InsertRecord(11, []byte("cached"))
	})
	commit(t, db, func(txn Transaction) error {
		value, err := txn.GetRecord(11)
		require.NoError(t, err)
		assert.Equal(t, []byte("cached"), value)
		return nil
	})
	commit(t, db, func(txn Transaction) error {
		return txn.RemoveRecord(11)
	})
	commit(t, db, func(txn Transaction) error {
		exists, err := txn.ContainsRecord(11)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	})
}

func TestMemCache_SeesRemovalBySharedSession(t *testing.T) {
	inner := openInMemory(t, BadgerStore)
	a, err := NewMemCache(inner, 1<<20)
	require.NoError(t, err)
	b, err := NewMemCache(inner, 1<<20)
	require.NoError(t, err)

	commit(t, a, func(txn Transaction) error {
		return txn.InsertRecord(11, []byte("cached\x00"))
	})
	commit(t, a, func(txn Transaction) error {
		value, err := txn.GetRecord(11)
		require.NoError(t, err)
		assert.Equal(t, []byte("cached\x00"), value)
		return nil
	})

	commit(t, b, func(txn Transaction) error {
		return txn.RemoveRecord(11)
	})

	commit(t, a, func(txn Transaction) error {
		exists, err := txn.ContainsRecord(11)
		require.NoError(t, err)
		assert.False(t, exists)

		value, err := txn.GetRecord(11)
		require.NoError(t, err)
		assert.Nil(t, value)

		_, err = txn.GetPartialRecord(11, 0, 2)
		assert.ErrorIs(t, err, ErrRecordNotFound)

		return txn.InsertRecord(11, []byte("again"))
	})
}

func TestMemCache_CachedReadsDetectConflicts(t *testing.T) {
	inner := openInMemory(t, BadgerStore)
	a, err := NewMemCache(inner, 1<<20)
	require.NoError(t, err)

	commit(t, a, func(txn Transaction) error {
		return txn.InsertRecord(12, []byte{1})
	})
	commit(t, a, func(txn Transaction) error {
		_, err := txn.GetRecord(12)
		return err
	})

	first, err := a.Begin()
	require.NoError(t, err)
	defer first.Abort()
	value, err := first.GetRecord(12)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)

	commit(t, inner, func(txn Transaction) error {
		return txn.UpdateRecord(12, []byte{2})
	})

	require.NoError(t, first.UpdateRecord(12, []byte{3}))
	assert.ErrorIs(t, first.Commit(), ErrRetryTransaction)
}

func TestBadger_TransactionTooBig(t *testing.T) {
	db, err := Open(StoreConfig{InMemory: true, MemTableSize: 8 << 20, Logger: quietLogger()}, true)
	require.NoError(t, err)
	defer db.Close()

	err = RunTransaction(db, func(txn Transaction) error {
		for i := 1; i <= 100000; i++ {
			if err := txn.InsertRecord(types.Name(i), []byte("0123456789abcdef")); err != nil {
				return err
			}
		}
		return nil
	}, nil)
	assert.ErrorIs(t, err, ErrTransactionTooBig)
}

func TestBadger_DefaultHoldsLargeTransaction(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large transaction in short mode")
	}

	db := openInMemory(t, BadgerStore)
	const records = 150000

	commit(t, db, func(txn Transaction) error {
		for i := 1; i <= records; i++ {
			if err := txn.InsertRecord(types.Name(i), []byte("0123456789abcdef")); err != nil {
				return err
			}
		}
		return nil
	})
	commit(t, db, func(txn Transaction) error {
		exists, err := txn.ContainsRecord(records)
		require.NoError(t, err)
		assert.True(t, exists)
		return nil
	})
}
