package cactusDisk

import (
	"github.com/i5heu/cactusdisk/internal/metrics"
	"github.com/i5heu/cactusdisk/internal/uniqueID"
	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// GetUniqueID returns a name that no session sharing this backend has
// returned or will return. Exhausting a bucket is fatal.
func (cd *CactusDisk) GetUniqueID() (types.Name, error) {
	if cd.closed {
		return types.NullName, ErrClosed
	}
	blocks := cd.ids.Blocks()

	name, err := cd.ids.Next(cd.db, cd.conflictHandler("uniqueID"))
	if errors.Is(err, uniqueID.ErrBucketExhausted) {
		cd.log.WithError(err).Fatal("We have exhausted a bucket, which seems really unlikely")
		return types.NullName, err
	}
	if err != nil {
		return types.NullName, errors.Wrap(err, "an unknown database error occurred when we tried to get a unique ID")
	}

	if cd.ids.Blocks() != blocks {
		metrics.IDBlocks.Inc(1)
		cd.log.WithFields(logrus.Fields{
			"first":     name,
			"remaining": cd.ids.Remaining(),
		}).Info("Acquired block of unique ids")
	}
	return name, nil
}
