package cactusDisk

import "github.com/pkg/errors"

var (
	// ErrAlreadyRegistered is returned when an object with the same name is already live.
	ErrAlreadyRegistered = errors.New("cactusDisk: object already registered")
	// ErrNotRegistered is returned when removing an object that is not live.
	ErrNotRegistered = errors.New("cactusDisk: object not registered")
	// ErrNameMismatch is returned when a loaded record names another object than its key.
	ErrNameMismatch = errors.New("cactusDisk: record holds a different name")
	// ErrOutOfSequence is returned when a range does not lie inside its meta sequence.
	ErrOutOfSequence = errors.New("cactusDisk: range outside of meta sequence")
	// ErrClosed is returned by every operation on a disk after Close.
	ErrClosed = errors.New("cactusDisk: disk closed")
)
