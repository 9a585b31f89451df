package binaryCoder

import (
	"errors"
	"fmt"

	"github.com/i5heu/cactusdisk/pkg/model"
	"github.com/i5heu/cactusdisk/pkg/types"
	"google.golang.org/protobuf/encoding/protowire"
)

// recordKind is the first field of every record. Its value tells flowers
// and meta sequences apart, they share one field number space.
const recordKind protowire.Number = 15

const (
	kindFlower       uint64 = 1
	kindMetaSequence uint64 = 2
)

// field numbers of the flower record
const (
	flowerName            protowire.Number = 1
	flowerParentGroupName protowire.Number = 2
	flowerGroupName       protowire.Number = 3
	flowerEndName         protowire.Number = 4
	flowerBuiltBlocks     protowire.Number = 5
	flowerBuiltTrees      protowire.Number = 6
	flowerBuiltFaces      protowire.Number = 7
)

// field numbers of the meta sequence record
const (
	metaSequenceName       protowire.Number = 1
	metaSequenceStart      protowire.Number = 2
	metaSequenceLength     protowire.Number = 3
	metaSequenceStringName protowire.Number = 4
	metaSequenceEventName  protowire.Number = 5
	metaSequenceHeader     protowire.Number = 6
)

var (
	ErrMissingName = errors.New("record has no name")
	// ErrWrongKind is returned when a record holds another kind of object
	// than the one asked for.
	ErrWrongKind = errors.New("record holds another kind of object")
)

func appendKind(b []byte, kind uint64) []byte {
	b = protowire.AppendTag(b, recordKind, protowire.VarintType)
	return protowire.AppendVarint(b, kind)
}

// checkKind verifies that b starts with the kind field set to kind.
func checkKind(b []byte, kind uint64) ([]byte, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 || num != recordKind || typ != protowire.VarintType {
		return nil, ErrWrongKind
	}
	b = b[n:]

	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	if v != kind {
		return nil, fmt.Errorf("%w: kind %d, want %d", ErrWrongKind, v, kind)
	}
	return b[n:], nil
}

func appendName(b []byte, num protowire.Number, name types.Name) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(name))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendFlower(b []byte, f *model.Flower) []byte {
	b = appendKind(b, kindFlower)
	b = appendName(b, flowerName, f.Name)
	if f.ParentGroupName != types.NullName {
		b = appendName(b, flowerParentGroupName, f.ParentGroupName)
	}
	for _, name := range f.GroupNames {
		b = appendName(b, flowerGroupName, name)
	}
	for _, name := range f.EndNames {
		b = appendName(b, flowerEndName, name)
	}
	b = appendBool(b, flowerBuiltBlocks, f.BuiltBlocks)
	b = appendBool(b, flowerBuiltTrees, f.BuiltTrees)
	b = appendBool(b, flowerBuiltFaces, f.BuiltFaces)
	return b
}

func appendMetaSequence(b []byte, m *model.MetaSequence) []byte {
	b = appendKind(b, kindMetaSequence)
	b = appendName(b, metaSequenceName, m.Name())
	b = protowire.AppendTag(b, metaSequenceStart, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Start()))
	b = protowire.AppendTag(b, metaSequenceLength, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Length()))
	b = appendName(b, metaSequenceStringName, m.StringName())
	b = appendName(b, metaSequenceEventName, m.EventName())
	b = protowire.AppendTag(b, metaSequenceHeader, protowire.BytesType)
	b = protowire.AppendString(b, m.Header())
	return b
}

// field is one decoded tag/value pair. Only varint and bytes values are
// kept, everything else is skipped.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func forEachField(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		fd := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			fd.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			fd.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(fd); err != nil {
			return err
		}
	}
	return nil
}

func decodeFlower(b []byte) (*model.Flower, error) {
	b, err := checkKind(b, kindFlower)
	if err != nil {
		return nil, err
	}

	f := &model.Flower{}
	seenName := false

	err = forEachField(b, func(fd field) error {
		if fd.typ != protowire.VarintType {
			return nil
		}
		switch fd.num {
		case flowerName:
			f.Name = types.Name(fd.varint)
			seenName = true
		case flowerParentGroupName:
			f.ParentGroupName = types.Name(fd.varint)
		case flowerGroupName:
			f.GroupNames = append(f.GroupNames, types.Name(fd.varint))
		case flowerEndName:
			f.EndNames = append(f.EndNames, types.Name(fd.varint))
		case flowerBuiltBlocks:
			f.BuiltBlocks = protowire.DecodeBool(fd.varint)
		case flowerBuiltTrees:
			f.BuiltTrees = protowire.DecodeBool(fd.varint)
		case flowerBuiltFaces:
			f.BuiltFaces = protowire.DecodeBool(fd.varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !seenName {
		return nil, ErrMissingName
	}
	return f, nil
}

func decodeMetaSequence(b []byte) (*model.MetaSequence, error) {
	var (
		name, stringName, eventName types.Name
		start, length               int64
		header                      string
		seenName                    bool
	)

	b, err := checkKind(b, kindMetaSequence)
	if err != nil {
		return nil, err
	}

	err = forEachField(b, func(fd field) error {
		switch {
		case fd.num == metaSequenceHeader && fd.typ == protowire.BytesType:
			header = string(fd.bytes)
		case fd.typ != protowire.VarintType:
		case fd.num == metaSequenceName:
			name = types.Name(fd.varint)
			seenName = true
		case fd.num == metaSequenceStart:
			start = protowire.DecodeZigZag(fd.varint)
		case fd.num == metaSequenceLength:
			length = protowire.DecodeZigZag(fd.varint)
		case fd.num == metaSequenceStringName:
			stringName = types.Name(fd.varint)
		case fd.num == metaSequenceEventName:
			eventName = types.Name(fd.varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !seenName {
		return nil, ErrMissingName
	}
	return model.NewMetaSequence(name, start, length, stringName, eventName, header), nil
}
