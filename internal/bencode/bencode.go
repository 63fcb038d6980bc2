// Package bencode implements the serialization format used by .torrent
// files: integers, byte strings, lists and dictionaries.
//
// Decoding is permissive about dictionary key order since real-world
// torrents vary; encoding is canonical and always emits dictionary keys
// in ascending raw byte order.
package bencode

import "fmt"

// Value is a single bencoded term. It is a closed set: Integer, String,
// List and Dict are the only implementations.
type Value interface {
	value()
}

// Integer is a signed 64-bit bencode integer.
type Integer int64

// String is a bencode byte string. It carries arbitrary bytes and is not
// necessarily valid UTF-8 (piece hashes are stored in one).
type String []byte

// List is an ordered sequence of values.
type List []Value

// Dict maps byte-string keys to values. Construction must not introduce
// duplicate keys; Encode emits the keys sorted.
type Dict map[string]Value

func (Integer) value() {}
func (String) value()  {}
func (List) value()    {}
func (Dict) value()    {}

// DecodeError reports malformed input and the byte offset it was found at.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bencode: %s at offset %d", e.Msg, e.Offset)
}
