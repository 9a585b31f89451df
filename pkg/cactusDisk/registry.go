package cactusDisk

import (
	"bytes"

	"github.com/i5heu/cactusdisk/internal/binaryCoder"
	"github.com/i5heu/cactusdisk/internal/metrics"
	"github.com/i5heu/cactusdisk/pkg/model"
	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/pkg/errors"
)

func flowerKey(name types.Name) *model.Flower {
	return &model.Flower{Name: name}
}

func metaSequenceKey(name types.Name) *model.MetaSequence {
	return model.NewMetaSequence(name, 0, 0, types.NullName, types.NullName, "")
}

// GetFlower returns the live flower called name, loading it from the backend
// if it is not registered yet. It returns nil, nil if no such flower exists.
func (cd *CactusDisk) GetFlower(name types.Name) (*model.Flower, error) {
	if cd.closed {
		return nil, ErrClosed
	}
	if f, ok := cd.flowers.Get(flowerKey(name)); ok {
		metrics.Registry.WithValues("flower", "hit").Inc(1)
		return f, nil
	}
	metrics.Registry.WithValues("flower", "miss").Inc(1)

	data, err := cd.getRecord(name, "flower")
	if err != nil || data == nil {
		return nil, err
	}

	f, err := binaryCoder.LoadFlower(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load flower %s", name)
	}
	if f.Name != name {
		return nil, errors.Wrapf(ErrNameMismatch, "record %s holds flower %s", name, f.Name)
	}

	cd.flowers.ReplaceOrInsert(f)
	cd.log.WithField("flower", name).Trace("Loaded flower from disk")
	return f, nil
}

// GetMetaSequence returns the live meta sequence called name, loading it from
// the backend if it is not registered yet. It returns nil, nil if no such
// meta sequence exists.
func (cd *CactusDisk) GetMetaSequence(name types.Name) (*model.MetaSequence, error) {
	if cd.closed {
		return nil, ErrClosed
	}
	if m, ok := cd.metaSequences.Get(metaSequenceKey(name)); ok {
		metrics.Registry.WithValues("metaSequence", "hit").Inc(1)
		return m, nil
	}
	metrics.Registry.WithValues("metaSequence", "miss").Inc(1)

	data, err := cd.getRecord(name, "metaSequence")
	if err != nil || data == nil {
		return nil, err
	}

	m, err := binaryCoder.LoadMetaSequence(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load meta sequence %s", name)
	}
	if m.Name() != name {
		return nil, errors.Wrapf(ErrNameMismatch, "record %s holds meta sequence %s", name, m.Name())
	}

	cd.metaSequences.ReplaceOrInsert(m)
	cd.log.WithField("metaSequence", name).Trace("Loaded meta sequence from disk")
	return m, nil
}

// AddFlower registers f as live. No other flower with the same name may be
// registered.
func (cd *CactusDisk) AddFlower(f *model.Flower) error {
	if cd.closed {
		return ErrClosed
	}
	if cd.flowers.Has(f) {
		return errors.Wrapf(ErrAlreadyRegistered, "flower %s", f.Name)
	}
	cd.flowers.ReplaceOrInsert(f)
	return nil
}

// RemoveFlower unregisters f. It does not touch the backend.
func (cd *CactusDisk) RemoveFlower(f *model.Flower) error {
	if _, ok := cd.flowers.Delete(f); !ok {
		return errors.Wrapf(ErrNotRegistered, "flower %s", f.Name)
	}
	return nil
}

// AddMetaSequence registers m as live.
func (cd *CactusDisk) AddMetaSequence(m *model.MetaSequence) error {
	if cd.closed {
		return ErrClosed
	}
	if cd.metaSequences.Has(m) {
		return errors.Wrapf(ErrAlreadyRegistered, "meta sequence %s", m.Name())
	}
	cd.metaSequences.ReplaceOrInsert(m)
	return nil
}

// RemoveMetaSequence unregisters m. It does not touch the backend.
func (cd *CactusDisk) RemoveMetaSequence(m *model.MetaSequence) error {
	if _, ok := cd.metaSequences.Delete(m); !ok {
		return errors.Wrapf(ErrNotRegistered, "meta sequence %s", m.Name())
	}
	return nil
}

// Flowers calls fn for every live flower in name order until fn returns false.
func (cd *CactusDisk) Flowers(fn func(f *model.Flower) bool) {
	cd.flowers.Ascend(fn)
}

// MetaSequences calls fn for every live meta sequence in name order until fn
// returns false.
func (cd *CactusDisk) MetaSequences(fn func(m *model.MetaSequence) bool) {
	cd.metaSequences.Ascend(fn)
}

// FlowerCount returns the number of live flowers.
func (cd *CactusDisk) FlowerCount() int {
	return cd.flowers.Len()
}

// MetaSequenceCount returns the number of live meta sequences.
func (cd *CactusDisk) MetaSequenceCount() int {
	return cd.metaSequences.Len()
}
