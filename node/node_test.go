package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btreestore/codec"
	"btreestore/node"
)

func intStringCodec() node.Codec[int64, string] {
	return node.Codec[int64, string]{
		KeyCodec:   codec.Int64{},
		ValueCodec: codec.String{},
		PageSize:   4096,
	}
}

func TestLeafEncodeDecodeRoundTrip(t *testing.T) {
	c := intStringCodec()
	n := &node.Node[int64, string]{
		Offset:       4096,
		Type:         node.Leaf,
		NodeID:       1,
		LeftSibling:  0,
		RightSibling: 8192,
		Keys:         []int64{1, 2, 3},
		Values:       []string{"a", "b", "c"},
	}

	page, err := c.Encode(n)
	require.NoError(t, err)
	assert.Len(t, page, 4096)

	got, err := c.Decode(page, 4096)
	require.NoError(t, err)
	assert.Equal(t, n.Keys, got.Keys)
	assert.Equal(t, n.Values, got.Values)
	assert.Equal(t, n.RightSibling, got.RightSibling)
	assert.True(t, got.IsLeaf())
}

func TestInternalEncodeDecodeRoundTrip(t *testing.T) {
	c := intStringCodec()
	n := &node.Node[int64, string]{
		Offset:   4096,
		Type:     node.Internal,
		NodeID:   2,
		Keys:     []int64{10, 20},
		Children: []int64{100, 200, 300},
	}

	page, err := c.Encode(n)
	require.NoError(t, err)

	got, err := c.Decode(page, 4096)
	require.NoError(t, err)
	assert.Equal(t, n.Keys, got.Keys)
	assert.Equal(t, n.Children, got.Children)
	assert.False(t, got.IsLeaf())
}

func TestDecodeDetectsChecksumCorruption(t *testing.T) {
	c := intStringCodec()
	n := &node.Node[int64, string]{
		Type:   node.Leaf,
		Keys:   []int64{1},
		Values: []string{"value"},
	}
	page, err := c.Encode(n)
	require.NoError(t, err)

	page[node.HeaderSize] ^= 0xFF

	_, err = c.Decode(page, 0)
	assert.Error(t, err)
}

func TestEncodeRejectsOversizedNode(t *testing.T) {
	c := node.Codec[int64, string]{
		KeyCodec:   codec.Int64{},
		ValueCodec: codec.String{},
		PageSize:   node.HeaderSize + 16,
	}
	n := &node.Node[int64, string]{
		Type:   node.Leaf,
		Keys:   []int64{1, 2, 3, 4, 5},
		Values: []string{"aaaaaa", "bbbbbb", "cccccc", "dddddd", "eeeeee"},
	}
	_, err := c.Encode(n)
	assert.Error(t, err)
}
