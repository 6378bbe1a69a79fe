package codec

import (
	"fmt"

	"btreestore/errs"
)

// Bool encodes a boolean as a single byte (spec.md §4.3).
type Bool struct{}

func (Bool) Encode(v bool) ([]byte, error) {
	if v {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (Bool) Decode(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, errs.New(errs.Codec, "Bool.Decode", fmt.Sprintf("want 1 byte, got %d", len(b)))
	}
	return b[0] != 0, nil
}

func (Bool) Size(bool) int          { return 1 }
func (Bool) FixedSize() (int, bool) { return 1, true }
func (Bool) Tag() string            { return "bool" }
