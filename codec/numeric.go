package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"btreestore/errs"
)

// Int64 encodes int64 as 8-byte little-endian, per spec.md §4.3's
// "32-bit signed little-endian for integers" rule generalized to the common
// 64-bit case (the node codec's length-prefix framing is skipped entirely
// for fixed-size codecs like this one).
type Int64 struct{}

func (Int64) Encode(v int64) ([]byte, error) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b, nil
}

func (Int64) Decode(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, errs.New(errs.Codec, "Int64.Decode", fmt.Sprintf("want 8 bytes, got %d", len(b)))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (Int64) Size(int64) int         { return 8 }
func (Int64) FixedSize() (int, bool) { return 8, true }
func (Int64) Tag() string            { return "int64" }

// Int32 encodes int32 as 4-byte little-endian (spec.md §4.3's literal
// "32-bit signed little-endian for integers").
type Int32 struct{}

func (Int32) Encode(v int32) ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b, nil
}

func (Int32) Decode(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, errs.New(errs.Codec, "Int32.Decode", fmt.Sprintf("want 4 bytes, got %d", len(b)))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (Int32) Size(int32) int         { return 4 }
func (Int32) FixedSize() (int, bool) { return 4, true }
func (Int32) Tag() string            { return "int32" }

// Float64 encodes float64 as IEEE-754 64-bit little-endian (spec.md §4.3).
type Float64 struct{}

func (Float64) Encode(v float64) ([]byte, error) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b, nil
}

func (Float64) Decode(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, errs.New(errs.Codec, "Float64.Decode", fmt.Sprintf("want 8 bytes, got %d", len(b)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (Float64) Size(float64) int       { return 8 }
func (Float64) FixedSize() (int, bool) { return 8, true }
func (Float64) Tag() string            { return "float64" }
