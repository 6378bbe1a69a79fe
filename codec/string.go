package codec

// String encodes UTF-8 text. Its Encode output carries no length prefix of
// its own — FixedSize reports (0, false) so the node codec frames it with
// the standard 4-byte length prefix, per spec.md §4.3.
type String struct{}

func (String) Encode(v string) ([]byte, error) { return []byte(v), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
func (String) Size(v string) int               { return len(v) }
func (String) FixedSize() (int, bool)           { return 0, false }
func (String) Tag() string                      { return "string" }

// Bytes is the identity codec for raw []byte values, also length-prefixed.
type Bytes struct{}

func (Bytes) Encode(v []byte) ([]byte, error) { return v, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }
func (Bytes) Size(v []byte) int               { return len(v) }
func (Bytes) FixedSize() (int, bool)           { return 0, false }
func (Bytes) Tag() string                      { return "bytes" }
