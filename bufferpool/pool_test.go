package bufferpool_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btreestore/bufferpool"
	"btreestore/node"
)

func newTestPool(t *testing.T, capacity int, mode bufferpool.Mode) (*bufferpool.Pool[int64, string], map[int64]*node.Node[int64, string]) {
	t.Helper()
	backing := make(map[int64]*node.Node[int64, string])
	writes := 0

	load := func(offset int64) (*node.Node[int64, string], error) {
		n, ok := backing[offset]
		if !ok {
			return nil, fmt.Errorf("no page at %d", offset)
		}
		return n, nil
	}
	write := func(n *node.Node[int64, string]) error {
		writes++
		cp := *n
		backing[n.Offset] = &cp
		return nil
	}

	return bufferpool.New[int64, string](capacity, mode, load, write), backing
}

func TestGetAfterPutNeedsNoIO(t *testing.T) {
	pool, _ := newTestPool(t, 10, bufferpool.WriteBack)

	n := &node.Node[int64, string]{Offset: 100, Keys: []int64{1}}
	require.NoError(t, pool.Put(n, true))

	got, err := pool.Get(100)
	require.NoError(t, err)
	assert.Same(t, n, got)
	assert.Equal(t, uint64(1), pool.Stats().Hits)
	assert.Equal(t, uint64(0), pool.Stats().Misses)
}

func TestEvictionWritesDirtyEntries(t *testing.T) {
	pool, backing := newTestPool(t, 1, bufferpool.WriteBack)

	n1 := &node.Node[int64, string]{Offset: 1, Keys: []int64{1}}
	n2 := &node.Node[int64, string]{Offset: 2, Keys: []int64{2}}

	require.NoError(t, pool.Put(n1, true))
	require.NoError(t, pool.Put(n2, true)) // evicts n1, which is dirty

	_, stillCached := backing[1]
	assert.True(t, stillCached, "evicted dirty node must have been written out")
	assert.Equal(t, uint64(1), pool.Stats().Evictions)
	assert.Equal(t, 1, pool.Size())
}

func TestPinPreventsEviction(t *testing.T) {
	pool, _ := newTestPool(t, 1, bufferpool.WriteBack)

	n1 := &node.Node[int64, string]{Offset: 1, Keys: []int64{1}}
	n2 := &node.Node[int64, string]{Offset: 2, Keys: []int64{2}}

	require.NoError(t, pool.Put(n1, false))
	pool.Pin(1)
	require.NoError(t, pool.Put(n2, false))

	// n1 is pinned, so the pool must exceed capacity rather than evict it.
	assert.Equal(t, 2, pool.Size())

	pool.Unpin(1)
	require.NoError(t, pool.Put(&node.Node[int64, string]{Offset: 3, Keys: []int64{3}}, false))
	assert.LessOrEqual(t, pool.Size(), 2)
}

func TestFlushClearsDirtyFlags(t *testing.T) {
	pool, backing := newTestPool(t, 10, bufferpool.WriteBack)

	n := &node.Node[int64, string]{Offset: 5, Keys: []int64{5}}
	require.NoError(t, pool.Put(n, true))
	require.NoError(t, pool.Flush())

	_, ok := backing[5]
	assert.True(t, ok)

	// A flushed entry is clean, so a second Flush does not write it again.
	delete(backing, 5)
	require.NoError(t, pool.Flush())
	_, rewritten := backing[5]
	assert.False(t, rewritten)
}

func TestWriteThroughWritesImmediately(t *testing.T) {
	pool, backing := newTestPool(t, 10, bufferpool.WriteThrough)

	n := &node.Node[int64, string]{Offset: 7, Keys: []int64{7}}
	require.NoError(t, pool.Put(n, true))

	_, ok := backing[7]
	assert.True(t, ok, "write-through must persist before returning")
}

func TestHitRate(t *testing.T) {
	pool, _ := newTestPool(t, 10, bufferpool.WriteBack)
	n := &node.Node[int64, string]{Offset: 1}
	require.NoError(t, pool.Put(n, false))

	_, err := pool.Get(1)
	require.NoError(t, err)
	_, err = pool.Get(1)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, pool.Stats().HitRate(), 0.0001)
}
