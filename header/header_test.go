package header_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btreestore/blockdevice"
	"btreestore/header"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := header.New(32, 8, 0, 4096, "int64", "string", time.Now().UnixNano())
	h.RootOffset = header.Size
	h.NodeCount = 1
	h.Height = 1
	h.KeyCount = 7

	buf := h.Encode()
	require.Len(t, buf, header.Size)

	got, err := header.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, h.Order, got.Order)
	assert.Equal(t, h.RootOffset, got.RootOffset)
	assert.Equal(t, h.NodeCount, got.NodeCount)
	assert.Equal(t, h.Height, got.Height)
	assert.Equal(t, h.KeyCount, got.KeyCount)
	assert.Equal(t, "int64", got.KeyCodecTag)
	assert.Equal(t, "string", got.ValueCodecTag)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	h := header.New(32, 8, 0, 4096, "int64", "string", 0)
	buf := h.Encode()
	buf[0] ^= 0xFF

	_, err := header.Decode(buf)
	assert.Error(t, err)
}

func TestDecodeRejectsCorruptChecksum(t *testing.T) {
	h := header.New(32, 8, 0, 4096, "int64", "string", 0)
	buf := h.Encode()
	buf[200] ^= 0xFF

	_, err := header.Decode(buf)
	assert.Error(t, err)
}

func TestWriteReadThroughDevice(t *testing.T) {
	dev, err := blockdevice.NewMemOpener().Open("store.db", true)
	require.NoError(t, err)

	h := header.New(64, 0, 0, 4096, "string", "json", 42)
	h.RootOffset = header.Size
	require.NoError(t, h.Write(dev))

	got, err := header.Read(dev)
	require.NoError(t, err)
	assert.Equal(t, h.RootOffset, got.RootOffset)
	assert.Equal(t, uint32(64), got.Order)
}
