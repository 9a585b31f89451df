package types

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// Name identifies every object persisted by a cactus disk. 0 is never
// allocated and negative names belong to the unique id allocator.
type Name int64

// NullName is the reserved name that no object ever carries.
const NullName Name = 0

func (n Name) String() string {
	return strconv.FormatInt(int64(n), 10)
}

func (n Name) Bytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(n))
	return b
}

func (n *Name) FromBytes(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("invalid byte length for Name: %d", len(b))
	}
	*n = Name(binary.LittleEndian.Uint64(b))
	return nil
}

// IsObjectName reports whether n may name a flower, meta sequence or string.
func (n Name) IsObjectName() bool {
	return n > 0
}

func StringToName(s string) (Name, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NullName, fmt.Errorf("invalid name string %q: %w", s, err)
	}
	return Name(v), nil
}

// Strand selects the orientation a stored sequence string is read in.
type Strand int32

const (
	ForwardStrand Strand = 0
	ReverseStrand Strand = 1
)

func (s Strand) String() string {
	switch s {
	case ForwardStrand:
		return "+"
	case ReverseStrand:
		return "-"
	}
	return "Unknown"
}
