package bplustree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btreestore/blockdevice"
	"btreestore/bplustree"
	"btreestore/bufferpool"
	"btreestore/codec"
)

func intCmp(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func newTestTree(t *testing.T, order uint32) *bplustree.Tree[int64, string] {
	t.Helper()
	dev, err := blockdevice.NewMemOpener().Open("store.db", true)
	require.NoError(t, err)

	opts := bplustree.Options[int64, string]{
		Order:         order,
		PageSize:      4096,
		CacheCapacity: 64,
		WriteMode:     bufferpool.WriteBack,
		KeyCodec:      codec.Int64{},
		ValueCodec:    codec.String{},
		Compare:       intCmp,
	}
	tree, err := bplustree.Create[int64, string](dev, opts, 1000)
	require.NoError(t, err)
	return tree
}

func TestInsertAndSearch(t *testing.T) {
	tree := newTestTree(t, 4)

	require.NoError(t, tree.Insert(1, "a", 1001))
	require.NoError(t, tree.Insert(2, "b", 1002))

	v, ok, err := tree.Search(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok, err = tree.Search(99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	tree := newTestTree(t, 4)
	require.NoError(t, tree.Insert(1, "a", 1000))
	require.NoError(t, tree.Insert(1, "a-updated", 1001))

	v, ok, err := tree.Search(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a-updated", v)
	assert.EqualValues(t, 1, tree.GetStats().KeyCount)
}

// Mirrors the worked example: order=4, insert (1,a)..(5,e); expect height 2
// and entries() in key order.
func TestWorkedExampleHeightAndEntries(t *testing.T) {
	tree := newTestTree(t, 4)
	data := []struct {
		k int64
		v string
	}{
		{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}, {5, "e"},
	}
	for _, d := range data {
		require.NoError(t, tree.Insert(d.k, d.v, 1000))
	}

	stats := tree.GetStats()
	assert.Equal(t, uint32(2), stats.Height)

	entries, err := tree.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, data[i].k, e.Key)
		assert.Equal(t, data[i].v, e.Value)
	}

	result, err := tree.Verify()
	require.NoError(t, err)
	assert.True(t, result.OK, "%v", result.Violations)
}

func TestSplitCascadeMonotonicHeight(t *testing.T) {
	tree := newTestTree(t, 4)
	const order = 4
	n := order*order + 1

	lastHeight := uint32(0)
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert(int64(i), "v", 1000))
		result, err := tree.Verify()
		require.NoError(t, err)
		require.True(t, result.OK, "violations after inserting %d: %v", i, result.Violations)

		h := tree.GetStats().Height
		assert.GreaterOrEqual(t, h, lastHeight)
		lastHeight = h
	}

	entries, err := tree.Entries()
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, e := range entries {
		assert.Equal(t, int64(i), e.Key)
	}
}

func TestMergeCascadeDescendingDelete(t *testing.T) {
	tree := newTestTree(t, 4)
	const n = 30
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert(int64(i), "v", 1000))
	}

	for i := n - 1; i >= 0; i-- {
		deleted, err := tree.Delete(int64(i), 1000)
		require.NoError(t, err)
		require.True(t, deleted)

		result, err := tree.Verify()
		require.NoError(t, err)
		require.True(t, result.OK, "violations after deleting %d: %v", i, result.Violations)
	}

	stats := tree.GetStats()
	assert.Equal(t, uint32(0), stats.Height)
	assert.Equal(t, uint64(0), stats.RootOffset)

	entries, err := tree.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteMissingKeyReturnsFalse(t *testing.T) {
	tree := newTestTree(t, 4)
	require.NoError(t, tree.Insert(1, "a", 1000))

	deleted, err := tree.Delete(42, 1000)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRangeInclusiveExclusiveBounds(t *testing.T) {
	tree := newTestTree(t, 4)
	for i := int64(0); i < 10; i++ {
		require.NoError(t, tree.Insert(i, "v", 1000))
	}

	inclusive, err := tree.Range(bplustree.RangeOptions[int64]{
		HasStart: true, Start: 3, IncludeStart: true,
		HasEnd: true, End: 6, IncludeEnd: true,
	})
	require.NoError(t, err)
	require.Len(t, inclusive, 4)
	assert.Equal(t, []int64{3, 4, 5, 6}, keysOf(inclusive))

	exclusive, err := tree.Range(bplustree.RangeOptions[int64]{
		HasStart: true, Start: 3, IncludeStart: false,
		HasEnd: true, End: 6, IncludeEnd: false,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, keysOf(exclusive))
}

func TestRangeReverseAndLimit(t *testing.T) {
	tree := newTestTree(t, 4)
	for i := int64(0); i < 10; i++ {
		require.NoError(t, tree.Insert(i, "v", 1000))
	}

	rev, err := tree.Range(bplustree.RangeOptions[int64]{Reverse: true, Limit: 3})
	require.NoError(t, err)
	// Limit applies during the forward walk, so a reversed+limited scan
	// returns the first 3 keys in descending order, not the last 3.
	assert.Equal(t, []int64{2, 1, 0}, keysOf(rev))
}

func TestBulkLoadUnsortedInput(t *testing.T) {
	tree := newTestTree(t, 8)
	entries := []bplustree.Entry[int64, string]{
		{Key: 5, Value: "e"}, {Key: 1, Value: "a"}, {Key: 3, Value: "c"},
		{Key: 2, Value: "b"}, {Key: 4, Value: "d"},
	}
	var progressCalls int
	err := tree.BulkLoad(entries, bplustree.BulkLoadOptions{
		Sorted:    false,
		BatchSize: 2,
		Progress:  func(loaded, total int) { progressCalls++ },
	}, 1000)
	require.NoError(t, err)
	assert.Positive(t, progressCalls)

	got, err := tree.Entries()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, keysOf(got))
}

func TestBulkLoadClearsExistingData(t *testing.T) {
	tree := newTestTree(t, 8)
	require.NoError(t, tree.Insert(100, "stale", 1000))
	require.NoError(t, tree.Insert(200, "stale", 1000))

	entries := []bplustree.Entry[int64, string]{
		{Key: 1, Value: "a"}, {Key: 2, Value: "b"},
	}
	require.NoError(t, tree.BulkLoad(entries, bplustree.BulkLoadOptions{Sorted: true}, 1000))

	got, err := tree.Entries()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, keysOf(got))

	stats := tree.GetStats()
	assert.EqualValues(t, 2, stats.KeyCount)
}

func keysOf(entries []bplustree.Entry[int64, string]) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}
