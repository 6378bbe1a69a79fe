package codec

import (
	"math/big"
)

// BigInt encodes arbitrary-precision integers as a sign byte (0 = zero or
// positive, 1 = negative) followed by the big-endian magnitude bytes, per
// spec.md §4.3. The magnitude carries no length prefix of its own; since
// BigInt reports FixedSize (0, false), the node codec frames the whole
// encoding (sign byte plus magnitude) with its 4-byte length prefix.
type BigInt struct{}

func (BigInt) Encode(v *big.Int) ([]byte, error) {
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	mag := v.Bytes()
	out := make([]byte, 1+len(mag))
	out[0] = sign
	copy(out[1:], mag)
	return out, nil
}

func (BigInt) Decode(b []byte) (*big.Int, error) {
	if len(b) == 0 {
		return big.NewInt(0), nil
	}
	n := new(big.Int).SetBytes(b[1:])
	if b[0] == 1 {
		n.Neg(n)
	}
	return n, nil
}

func (BigInt) Size(v *big.Int) int {
	mag := v.Bytes()
	return 1 + len(mag)
}

func (BigInt) FixedSize() (int, bool) { return 0, false }
func (BigInt) Tag() string            { return "bigint" }
