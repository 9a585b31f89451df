package cactusDisk

import (
	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/pkg/model"
	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/pkg/errors"
)

// AddString stores s as a new blob under a freshly allocated name and
// returns that name. Blobs are never updated.
func (cd *CactusDisk) AddString(s string) (types.Name, error) {
	if cd.closed {
		return types.NullName, ErrClosed
	}
	name, err := cd.GetUniqueID()
	if err != nil {
		return types.NullName, err
	}

	record := append([]byte(s), 0)
	err = cd.runTransaction("addString", func(txn keyValStore.Transaction) error {
		return txn.InsertRecord(name, record)
	})
	if err != nil {
		return types.NullName, errors.Wrap(err, "an unknown database error occurred when we tried to add a string to the cactus disk")
	}
	return name, nil
}

// GetString returns length characters of the blob called name, starting at
// start. On the reverse strand the reverse complement is returned.
func (cd *CactusDisk) GetString(name types.Name, start, length int64, strand types.Strand) (string, error) {
	if cd.closed {
		return "", ErrClosed
	}
	if start < 0 || length < 0 {
		return "", errors.Wrapf(keyValStore.ErrOutOfRange, "start %d length %d", start, length)
	}

	var data []byte
	err := cd.runTransaction("getString", func(txn keyValStore.Transaction) error {
		var err error
		// the stored terminator keeps start+length+1 inside the record
		data, err = txn.GetPartialRecord(name, start, length+1)
		return err
	})
	if err != nil {
		return "", errors.Wrapf(err, "an unknown database error occurred when we tried to get a substring of string %s from the cactus disk", name)
	}

	s := string(data[:length])
	if strand == types.ReverseStrand {
		s = types.ReverseComplement(s)
	}
	return s, nil
}

// MetaSequenceString returns the bases of m between start and start+length,
// with start given in the coordinates of m.
func (cd *CactusDisk) MetaSequenceString(m *model.MetaSequence, start, length int64, strand types.Strand) (string, error) {
	if !m.Contains(start, length) {
		return "", errors.Wrapf(ErrOutOfSequence, "start %d length %d in meta sequence %s", start, length, m.Name())
	}
	return cd.GetString(m.StringName(), start-m.Start(), length, strand)
}
