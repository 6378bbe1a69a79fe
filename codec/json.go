package codec

import (
	"encoding/json"
	"fmt"

	"btreestore/errs"
)

// JSON encodes arbitrary structured values as length-prefixed UTF-8 JSON
// (spec.md §4.3), the same marshal-to-bytes approach
// ShubhamNegi4-DaemonDB/types/operations.go's Operation.Encode uses for its
// WAL record payloads.
type JSON[T any] struct{}

func (JSON[T]) Encode(v T) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.Codec, "JSON.Encode", "marshal failed", err)
	}
	return b, nil
}

func (JSON[T]) Decode(b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, errs.Wrap(errs.Codec, "JSON.Decode", fmt.Sprintf("unmarshal %d bytes failed", len(b)), err)
	}
	return v, nil
}

func (c JSON[T]) Size(v T) int {
	b, err := c.Encode(v)
	if err != nil {
		return 0
	}
	return len(b)
}

func (JSON[T]) FixedSize() (int, bool) { return 0, false }
func (JSON[T]) Tag() string            { return "json" }
