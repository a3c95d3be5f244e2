// Package codec defines how typed values become stored bytes and back.
//
// A Codec is a capability attached to a collection: exactly one encode and
// one decode operation, no registration or reflection framework around it.
// The store invokes the codec but never interprets the bytes itself.
package codec

import (
	"encoding/json"
	"fmt"
)

// Codec converts values of type T to and from their stored byte form.
// Implementations must be safe for concurrent use; the same codec instance
// is shared by every operation on a collection.
type Codec[T any] interface {
	// Encode serializes a value to the bytes that will be stored.
	Encode(value T) ([]byte, error)

	// Decode parses stored bytes back into a value. The returned error is
	// surfaced by the store as a corrupt-document failure, so it should
	// carry the decoder's own diagnostic.
	Decode(data []byte) (T, error)
}

type jsonCodec[T any] struct {
	indent bool
}

// JSON returns a codec that stores values as compact JSON documents.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

// JSONIndent returns a codec that stores values as indented JSON documents,
// for stores whose files are meant to be read and edited by hand.
func JSONIndent[T any]() Codec[T] {
	return jsonCodec[T]{indent: true}
}

func (c jsonCodec[T]) Encode(value T) ([]byte, error) {
	if c.indent {
		return json.MarshalIndent(value, "", "  ")
	}
	return json.Marshal(value)
}

func (c jsonCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return value, err
	}
	return value, nil
}

type rawCodec struct{}

// Raw returns a pass-through codec for documents that are already JSON.
// Both directions validate that the bytes are a well-formed document, so a
// stored file that was corrupted still decodes to an error rather than
// propagating garbage.
func Raw() Codec[json.RawMessage] {
	return rawCodec{}
}

func (rawCodec) Encode(value json.RawMessage) ([]byte, error) {
	if !json.Valid(value) {
		return nil, fmt.Errorf("raw document is not valid JSON")
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (rawCodec) Decode(data []byte) (json.RawMessage, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("stored document is not valid JSON")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return json.RawMessage(out), nil
}
