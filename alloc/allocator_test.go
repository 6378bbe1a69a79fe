package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btreestore/alloc"
	"btreestore/blockdevice"
	"btreestore/header"
)

func newTestAllocator(t *testing.T) (*alloc.Allocator, *header.Header) {
	t.Helper()
	dev, err := blockdevice.NewMemOpener().Open("store.db", true)
	require.NoError(t, err)
	h := header.New(32, 8, 8, 4096, "int64", "int64", 0)
	require.NoError(t, dev.Truncate(int64(h.TotalFileSize)))
	return alloc.New(dev, h, 4096), h
}

func TestAllocateAppendsPages(t *testing.T) {
	a, h := newTestAllocator(t)

	first, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, int64(header.Size), first)

	second, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, int64(header.Size)+4096, second)
	assert.Equal(t, uint64(2), h.NodeCount)
}

func TestFreeThenAllocateReuses(t *testing.T) {
	a, h := newTestAllocator(t)

	p1, err := a.Allocate()
	require.NoError(t, err)
	p2, err := a.Allocate()
	require.NoError(t, err)

	require.NoError(t, a.Free(p1))
	assert.Equal(t, uint64(p1), h.FreeListHead)

	reused, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, p1, reused)
	assert.NotEqual(t, p2, reused)
}

func TestNoReuseAlwaysAppends(t *testing.T) {
	a, _ := newTestAllocator(t)
	a.NoReuse = true

	p1, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Free(p1))

	p2, err := a.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}
