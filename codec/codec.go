// Package codec supplies the encode/decode/ordering contract the engine
// needs for user-defined key and value types (spec.md §4.3). The codecs
// below emit unframed bytes; the node codec prefixes every variable-length
// field with a 4-byte little-endian length. No composite codec is provided.
// The binary layouts are grounded on
// ShubhamNegi4-DaemonDB/bplustree/node_codec.go's length-prefixed key/value
// encoding, generalized from a 2-byte to a 4-byte length prefix (the 2-byte
// prefix there caps entries at 64KB, which spec.md's page-size-only cap
// doesn't require) and from []byte to arbitrary Go types via generics.
package codec

// Codec encodes/decodes values of type T to/from their on-disk byte
// representation and defines whether T has a fixed width.
type Codec[T any] interface {
	// Encode returns the byte representation of v (without any length
	// prefix framing — that's the caller's job for variable-length fields).
	Encode(v T) ([]byte, error)
	// Decode parses T back out of b, which holds exactly Size(zero) bytes
	// for fixed-size codecs or exactly the bytes written by Encode for
	// variable-size ones.
	Decode(b []byte) (T, error)
	// Size returns the encoded length of v. For a fixed-size codec this is
	// constant regardless of v.
	Size(v T) int
	// FixedSize reports the codec's constant size and true, or (0, false)
	// if entries vary in length and therefore need a length prefix.
	FixedSize() (size int, fixed bool)
	// Tag is a short ASCII identifier stored in the file header
	// (key_codec_tag / value_codec_tag) so re-opening a store can check the
	// caller supplied a compatible codec (spec.md §4.4, §9 "Codec
	// registration").
	Tag() string
}

// Comparator is a total order over T. No codec in this package supplies an
// order of its own, and the tree rejects a nil Comparator.
type Comparator[T any] func(a, b T) int
