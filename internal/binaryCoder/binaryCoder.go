package binaryCoder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/i5heu/cactusdisk/pkg/model"
)

// WriteFlower writes the binary representation of f to w.
func WriteFlower(f *model.Flower, w io.Writer) error {
	_, err := w.Write(appendFlower(nil, f))
	return err
}

// LoadFlower consumes the rest of r and builds the flower it describes.
func LoadFlower(r *bytes.Reader) (*model.Flower, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ByteToFlower(data)
}

// WriteMetaSequence writes the binary representation of m to w.
func WriteMetaSequence(m *model.MetaSequence, w io.Writer) error {
	_, err := w.Write(appendMetaSequence(nil, m))
	return err
}

// LoadMetaSequence consumes the rest of r and builds the meta sequence it describes.
func LoadMetaSequence(r *bytes.Reader) (*model.MetaSequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ByteToMetaSequence(data)
}

func FlowerToByte(f *model.Flower) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFlower(f, &buf); err != nil {
		return nil, fmt.Errorf("Error encoding Flower %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

func ByteToFlower(data []byte) (*model.Flower, error) {
	f, err := decodeFlower(data)
	if err != nil {
		return nil, fmt.Errorf("Error decoding Flower: %w", err)
	}
	return f, nil
}

func MetaSequenceToByte(m *model.MetaSequence) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMetaSequence(m, &buf); err != nil {
		return nil, fmt.Errorf("Error encoding MetaSequence %s: %w", m.Name(), err)
	}
	return buf.Bytes(), nil
}

func ByteToMetaSequence(data []byte) (*model.MetaSequence, error) {
	m, err := decodeMetaSequence(data)
	if err != nil {
		return nil, fmt.Errorf("Error decoding MetaSequence: %w", err)
	}
	return m, nil
}
