// Package cactusDisk is the persistence layer for cactus flowers and meta
// sequences. A CactusDisk keeps registries of live objects in memory, loads
// missing ones lazily from a transactional key value store and writes them
// back in a single transaction.
package cactusDisk

import (
	"math/rand"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/i5heu/cactusdisk/internal/compression"
	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/internal/metrics"
	"github.com/i5heu/cactusdisk/internal/uniqueID"
	"github.com/i5heu/cactusdisk/pkg/model"
	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const registryDegree = 32

// CactusDisk is not safe for concurrent use. Several sessions, in one or more
// processes, may share a backend.
type CactusDisk struct {
	log        *logrus.Entry
	config     Config
	db         keyValStore.Database
	compressor *compression.Compressor
	ids        *uniqueID.Allocator

	flowers                      *btree.BTreeG[*model.Flower]
	metaSequences                *btree.BTreeG[*model.MetaSequence]
	flowerNamesMarkedForDeletion *btree.BTreeG[string]

	closed bool
}

// New opens the backend described by config.Store and starts a session on it.
// With create set the backend is created or emptied.
func New(config Config, create bool) (*CactusDisk, error) {
	if err := config.setDefaults(); err != nil {
		return nil, err
	}

	db, err := keyValStore.Open(config.Store, create)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open the %s database of the cactus disk", config.Store.Type)
	}

	cd, err := NewWithDatabase(db, config)
	if err != nil {
		db.Close()
		return nil, err
	}

	cd.log.WithFields(logrus.Fields{
		"create":      create,
		"compression": cd.compressor.Codec().String(),
	}).Info("Opened cactus disk")
	return cd, nil
}

// NewWithDatabase starts a session on an already opened backend. The disk
// owns db and closes it on Close.
func NewWithDatabase(db keyValStore.Database, config Config) (*CactusDisk, error) {
	if err := config.setDefaults(); err != nil {
		return nil, err
	}

	codec, err := compression.ParseCodec(config.Compression)
	if err != nil {
		return nil, err
	}

	compressor, err := compression.New(codec)
	if err != nil {
		return nil, errors.Wrap(err, "could not create the record compressor")
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cd := &CactusDisk{
		log: config.Logger.WithFields(logrus.Fields{
			"session": uuid.New().String(),
			"backend": string(config.Store.Type),
		}),
		config:     config,
		db:         db,
		compressor: compressor,
		ids: uniqueID.NewAllocator(uniqueID.Config{
			BlockSize:    config.BlockSize,
			BucketNumber: config.BucketNumber,
		}, rand.New(rand.NewSource(seed))),
		flowers: btree.NewG[*model.Flower](registryDegree, func(a, b *model.Flower) bool {
			return a.Name < b.Name
		}),
		metaSequences: btree.NewG[*model.MetaSequence](registryDegree, func(a, b *model.MetaSequence) bool {
			return a.Name() < b.Name()
		}),
		flowerNamesMarkedForDeletion: btree.NewOrderedG[string](registryDegree),
	}

	return cd, nil
}

// Close drops the registries without writing them back and closes the
// backend. Unwritten changes are lost.
func (cd *CactusDisk) Close() error {
	if cd.closed {
		return ErrClosed
	}
	cd.closed = true

	cd.log.WithFields(logrus.Fields{
		"flowers":       cd.flowers.Len(),
		"metaSequences": cd.metaSequences.Len(),
	}).Info("Closing cactus disk")

	cd.flowers.Clear(false)
	cd.metaSequences.Clear(false)
	cd.flowerNamesMarkedForDeletion.Clear(false)
	cd.compressor.Close()

	return errors.Wrap(cd.db.Close(), "error closing the cactus disk database")
}

// conflictHandler is passed to keyValStore.RunTransaction for op.
func (cd *CactusDisk) conflictHandler(op string) func(err error) {
	return func(err error) {
		cd.log.WithError(err).WithField("operation", op).Debug("Caught a retry transaction conflict")
		metrics.Conflicts.WithValues(op).Inc(1)
	}
}

func (cd *CactusDisk) runTransaction(op string, fn func(txn keyValStore.Transaction) error) error {
	err := keyValStore.RunTransaction(cd.db, fn, cd.conflictHandler(op))
	if err == nil {
		metrics.Transactions.WithValues(op).Inc(1)
	}
	return err
}

// getRecord reads and decompresses the record stored under name. It returns
// nil, nil when there is no such record.
func (cd *CactusDisk) getRecord(name types.Name, kind string) ([]byte, error) {
	var data []byte
	err := cd.runTransaction("get"+kind, func(txn keyValStore.Transaction) error {
		var err error
		data, err = txn.GetRecord(name)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "an unknown database error occurred when getting a %s", kind)
	}
	if data == nil {
		return nil, nil
	}

	data, err = cd.compressor.Decompress(data)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decompress %s %s", kind, name)
	}
	return data, nil
}

// compressedRecord compresses a serialized object for storage.
func (cd *CactusDisk) compressedRecord(data []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return cd.compressor.Compress(data)
}
