package codec

import (
	"fmt"

	"github.com/golang/snappy"
)

type snappyCodec[T any] struct {
	inner Codec[T]
}

// Snappy wraps an inner codec with snappy block compression. Stored bytes
// are the compressed form of whatever the inner codec produced; decode
// decompresses first and hands the result to the inner codec. Corrupted
// compressed data decodes to an error like any other undecodable document.
func Snappy[T any](inner Codec[T]) Codec[T] {
	return snappyCodec[T]{inner: inner}
}

func (c snappyCodec[T]) Encode(value T) ([]byte, error) {
	data, err := c.inner.Encode(value)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func (c snappyCodec[T]) Decode(data []byte) (T, error) {
	var zero T
	decoded, err := snappy.Decode(nil, data)
	if err != nil {
		return zero, fmt.Errorf("snappy decompress: %w", err)
	}
	return c.inner.Decode(decoded)
}
