package checksum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"btreestore/checksum"
)

func TestOfKnownVector(t *testing.T) {
	// "123456789" is the standard CRC-32/ISO-HDLC check vector; expected value
	// is well known (0xCBF43926).
	got := checksum.Of([]byte("123456789"))
	assert.Equal(t, uint32(0xCBF43926), got)
}

func TestVerifyDetectsBitFlip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	sum := checksum.Of(data)
	assert.True(t, checksum.Verify(data, sum))

	corrupt := append([]byte(nil), data...)
	corrupt[0] ^= 0x01
	assert.False(t, checksum.Verify(corrupt, sum))
}
