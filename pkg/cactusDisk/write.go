package cactusDisk

import (
	"github.com/i5heu/cactusdisk/internal/binaryCoder"
	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/pkg/model"
	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Write stores every live flower and meta sequence and removes every flower
// marked for deletion, all in one transaction. Flowers are inserted or
// updated. Meta sequences are only inserted, a stored one is never rewritten.
func (cd *CactusDisk) Write() error {
	if cd.closed {
		return ErrClosed
	}

	err := cd.runTransaction("write", cd.writeTransaction)
	if err != nil {
		return errors.Wrap(err, "an unknown database error occurred when updating flowers and meta sequences on the cactus disk")
	}

	cd.log.WithFields(logrus.Fields{
		"flowers":       cd.flowers.Len(),
		"metaSequences": cd.metaSequences.Len(),
		"deleted":       cd.flowerNamesMarkedForDeletion.Len(),
	}).Debug("Wrote cactus disk")
	return nil
}

func (cd *CactusDisk) writeTransaction(txn keyValStore.Transaction) error {
	var err error

	cd.flowers.Ascend(func(f *model.Flower) bool {
		err = cd.writeFlower(txn, f)
		return err == nil
	})
	if err != nil {
		return err
	}

	cd.metaSequences.Ascend(func(m *model.MetaSequence) bool {
		err = cd.writeMetaSequence(txn, m)
		return err == nil
	})
	if err != nil {
		return err
	}

	cd.flowerNamesMarkedForDeletion.Ascend(func(nameString string) bool {
		err = cd.removeMarkedFlower(txn, nameString)
		return err == nil
	})
	return err
}

func (cd *CactusDisk) writeFlower(txn keyValStore.Transaction, f *model.Flower) error {
	record, err := cd.compressedRecord(binaryCoder.FlowerToByte(f))
	if err != nil {
		return errors.Wrapf(err, "could not encode flower %s", f.Name)
	}

	exists, err := txn.ContainsRecord(f.Name)
	if err != nil {
		return err
	}
	if exists {
		return txn.UpdateRecord(f.Name, record)
	}
	return txn.InsertRecord(f.Name, record)
}

func (cd *CactusDisk) writeMetaSequence(txn keyValStore.Transaction, m *model.MetaSequence) error {
	exists, err := txn.ContainsRecord(m.Name())
	if err != nil || exists {
		return err
	}

	record, err := cd.compressedRecord(binaryCoder.MetaSequenceToByte(m))
	if err != nil {
		return errors.Wrapf(err, "could not encode meta sequence %s", m.Name())
	}
	return txn.InsertRecord(m.Name(), record)
}

func (cd *CactusDisk) removeMarkedFlower(txn keyValStore.Transaction, nameString string) error {
	name, err := types.StringToName(nameString)
	if err != nil {
		return err
	}

	exists, err := txn.ContainsRecord(name)
	if err != nil || !exists {
		return err
	}

	err = txn.RemoveRecord(name)
	if errors.Is(err, keyValStore.ErrRecordNotFound) {
		return nil
	}
	return err
}

// DeleteFlowerFromDisk marks f for removal from the backend at the next
// Write. Marking the same flower again has no further effect. The flower
// should not stay registered as live.
func (cd *CactusDisk) DeleteFlowerFromDisk(f *model.Flower) {
	cd.flowerNamesMarkedForDeletion.ReplaceOrInsert(f.Name.String())
}

// MarkedForDeletion returns the number of flower names waiting for removal.
func (cd *CactusDisk) MarkedForDeletion() int {
	return cd.flowerNamesMarkedForDeletion.Len()
}
