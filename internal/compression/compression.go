// Package compression implements the compress/decompress stage applied to
// every flower and meta sequence record. Each compressed record starts with
// a one byte codec tag, so a disk can read records written with any codec.
package compression

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

type Codec byte

const (
	None Codec = iota
	Lzma
	Zstd
	Snappy
)

var (
	ErrUnknownCodec = errors.New("unknown compression codec")
	ErrEmptyRecord  = errors.New("compressed record is empty")
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Lzma:
		return "lzma"
	case Zstd:
		return "zstd"
	case Snappy:
		return "snappy"
	}
	return "unknown"
}

// ParseCodec maps a configuration value to a codec. The empty string selects lzma.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "lzma":
		return Lzma, nil
	case "none":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "snappy":
		return Snappy, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// Compressor compresses with one codec and decompresses any of them.
type Compressor struct {
	codec       Codec
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
}

func New(codec Codec) (*Compressor, error) {
	if codec > Snappy {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("error creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("error creating zstd decoder: %w", err)
	}

	return &Compressor{
		codec:       codec,
		zstdEncoder: enc,
		zstdDecoder: dec,
	}, nil
}

func (c *Compressor) Codec() Codec {
	return c.codec
}

func (c *Compressor) Compress(data []byte) ([]byte, error) {
	var body []byte
	switch c.codec {
	case None:
		body = data
	case Lzma:
		var err error
		body, err = compressWithLzma(data)
		if err != nil {
			return nil, fmt.Errorf("error compressing with lzma: %w", err)
		}
	case Zstd:
		body = c.zstdEncoder.EncodeAll(data, nil)
	case Snappy:
		body = snappy.Encode(nil, data)
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(c.codec))
	return append(out, body...), nil
}

func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyRecord
	}

	body := data[1:]
	switch Codec(data[0]) {
	case None:
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	case Lzma:
		out, err := decompressWithLzma(body)
		if err != nil {
			return nil, fmt.Errorf("error decompressing with lzma: %w", err)
		}
		return out, nil
	case Zstd:
		out, err := c.zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("error decompressing with zstd: %w", err)
		}
		return out, nil
	case Snappy:
		out, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("error decompressing with snappy: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: tag %d", ErrUnknownCodec, data[0])
}

func (c *Compressor) Close() {
	c.zstdEncoder.Close()
	c.zstdDecoder.Close()
}

func compressWithLzma(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	_, err = w.Write(data)
	if err != nil {
		return nil, err
	}

	err = w.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompressWithLzma(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
