package blockdevice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btreestore/blockdevice"
)

func testDevicePair(t *testing.T) []blockdevice.Device {
	t.Helper()

	dir := t.TempDir()
	osDev, err := (blockdevice.OSOpener{Dir: dir}).Open("file.db", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = osDev.Close() })

	memDev, err := blockdevice.NewMemOpener().Open("file.db", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = memDev.Close() })

	return []blockdevice.Device{osDev, memDev}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, dev := range testDevicePair(t) {
		want := []byte("hello, block device")
		require.NoError(t, dev.WriteAt(want, 100))

		got := make([]byte, len(want))
		require.NoError(t, dev.ReadAt(got, 100))
		assert.Equal(t, want, got)

		size, err := dev.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(100+len(want)), size)
	}
}

func TestReadPastEndFails(t *testing.T) {
	for _, dev := range testDevicePair(t) {
		require.NoError(t, dev.WriteAt([]byte("x"), 0))
		buf := make([]byte, 10)
		assert.Error(t, dev.ReadAt(buf, 0))
	}
}

func TestTruncate(t *testing.T) {
	for _, dev := range testDevicePair(t) {
		require.NoError(t, dev.WriteAt([]byte("0123456789"), 0))
		require.NoError(t, dev.Truncate(4))
		size, err := dev.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(4), size)

		got := make([]byte, 4)
		require.NoError(t, dev.ReadAt(got, 0))
		assert.Equal(t, []byte("0123"), got)
	}
}
