// Package node implements a B-tree node (spec.md §3 "Node", C5 "Node
// Codec"): the 64-byte node header plus a leaf or internal payload, encoded
// and decoded with a per-node CRC-32 over the payload. Grounded on
// ShubhamNegi4-DaemonDB/bplustree/node_codec.go's encodeNode/decodeNode,
// generalized from fixed []byte keys/values to the caller-supplied
// codec.Codec[K]/codec.Codec[V], from a 2-byte to a 4-byte length prefix
// (spec.md §4.3 always frames variable fields with a 4-byte prefix), and
// with the addition of the per-payload checksum, left/right sibling
// pointers, and parent offset spec.md §3's node header requires.
package node

import (
	"encoding/binary"
	"fmt"

	"btreestore/checksum"
	"btreestore/codec"
	"btreestore/errs"
)

type Type uint8

const (
	Leaf     Type = 1
	Internal Type = 2
)

// HeaderSize is the fixed 64-byte node header (spec.md §3).
const HeaderSize = 64

const (
	offType          = 0
	offDeleted       = 1
	offKeyCount      = 2
	offChecksum      = 4
	offNodeID        = 8
	offParentOffset  = 16
	offLeftSibling   = 24
	offRightSibling  = 32
	offCreatedAt     = 40
	offModifiedAt    = 48
)

// Node is a single B-tree page, decoded into memory. Leaves carry Values
// (parallel to Keys); internal nodes carry Children (one more than Keys).
// Offset is this node's own byte offset in the file — its stable identity
// for the buffer pool and for sibling/parent pointers (spec.md §9 "Cyclic
// pointers": store offsets, not in-memory references).
type Node[K, V any] struct {
	Offset        int64
	Type          Type
	Deleted       bool
	NodeID        uint64
	ParentOffset  int64 // 0 = none (root)
	LeftSibling   int64 // leaves only, 0 = none
	RightSibling  int64 // leaves only, 0 = none
	CreatedAt     int64
	ModifiedAt    int64

	Keys     []K
	Values   []V     // leaf only, len(Values) == len(Keys)
	Children []int64 // internal only, len(Children) == len(Keys)+1

	Dirty bool // not persisted; the buffer pool keeps its own dirty flags and does not read this
}

// IsLeaf reports whether n is a leaf node.
func (n *Node[K, V]) IsLeaf() bool { return n.Type == Leaf }

// KeyCount returns the number of keys currently stored in n.
func (n *Node[K, V]) KeyCount() int { return len(n.Keys) }

// Codec encodes/decodes Node[K,V] pages using the caller-supplied key and
// value codecs and a fixed page size.
type Codec[K, V any] struct {
	KeyCodec   codec.Codec[K]
	ValueCodec codec.Codec[V]
	PageSize   int
}

func readVarField(buf []byte, offset int, fixed bool, fixedSize int) (field []byte, next int, err error) {
	n := fixedSize
	if !fixed {
		if offset+4 > len(buf) {
			return nil, 0, fmt.Errorf("page overflow reading length prefix at %d", offset)
		}
		n = int(binary.LittleEndian.Uint32(buf[offset:]))
		offset += 4
	}
	if offset+n > len(buf) {
		return nil, 0, fmt.Errorf("page overflow reading %d bytes at %d", n, offset)
	}
	return buf[offset : offset+n], offset + n, nil
}

// Encode serializes n into a PageSize-byte page with a fresh payload
// checksum. It fails with errs.Capacity if the encoded node would not fit.
func (c Codec[K, V]) Encode(n *Node[K, V]) ([]byte, error) {
	page := make([]byte, c.PageSize)

	payload, err := c.encodePayload(n)
	if err != nil {
		return nil, err
	}
	if HeaderSize+len(payload) > c.PageSize {
		return nil, errs.New(errs.Capacity, "node.Encode", fmt.Sprintf("node needs %d bytes, page is %d", HeaderSize+len(payload), c.PageSize))
	}
	copy(page[HeaderSize:], payload)

	page[offType] = byte(n.Type)
	if n.Deleted {
		page[offDeleted] = 1
	}
	binary.LittleEndian.PutUint16(page[offKeyCount:], uint16(len(n.Keys)))
	binary.LittleEndian.PutUint64(page[offNodeID:], n.NodeID)
	binary.LittleEndian.PutUint64(page[offParentOffset:], uint64(n.ParentOffset))
	binary.LittleEndian.PutUint64(page[offLeftSibling:], uint64(n.LeftSibling))
	binary.LittleEndian.PutUint64(page[offRightSibling:], uint64(n.RightSibling))
	binary.LittleEndian.PutUint64(page[offCreatedAt:], uint64(n.CreatedAt))
	binary.LittleEndian.PutUint64(page[offModifiedAt:], uint64(n.ModifiedAt))

	sum := checksum.Of(page[HeaderSize : HeaderSize+len(payload)])
	binary.LittleEndian.PutUint32(page[offChecksum:], sum)

	return page, nil
}

func (c Codec[K, V]) encodePayload(n *Node[K, V]) ([]byte, error) {
	_, keyFixed := c.KeyCodec.FixedSize()
	buf := make([]byte, 0, c.PageSize-HeaderSize)

	if n.IsLeaf() {
		_, valFixed := c.ValueCodec.FixedSize()
		for i, k := range n.Keys {
			kb, err := c.KeyCodec.Encode(k)
			if err != nil {
				return nil, errs.Wrap(errs.Codec, "node.encodePayload", "encode key", err)
			}
			vb, err := c.ValueCodec.Encode(n.Values[i])
			if err != nil {
				return nil, errs.Wrap(errs.Codec, "node.encodePayload", "encode value", err)
			}
			buf = appendField(buf, kb, keyFixed)
			buf = appendField(buf, vb, valFixed)
		}
		return buf, nil
	}

	var childBuf [8]byte
	binary.LittleEndian.PutUint64(childBuf[:], uint64(n.Children[0]))
	buf = append(buf, childBuf[:]...)
	for i, k := range n.Keys {
		kb, err := c.KeyCodec.Encode(k)
		if err != nil {
			return nil, errs.Wrap(errs.Codec, "node.encodePayload", "encode key", err)
		}
		buf = appendField(buf, kb, keyFixed)
		binary.LittleEndian.PutUint64(childBuf[:], uint64(n.Children[i+1]))
		buf = append(buf, childBuf[:]...)
	}
	return buf, nil
}

func appendField(buf, field []byte, fixed bool) []byte {
	if !fixed {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(field)))
		buf = append(buf, lenBuf[:]...)
	}
	return append(buf, field...)
}

// Decode parses a PageSize-byte page into a Node, recomputing and checking
// the payload checksum (spec.md §4.5, I5).
func (c Codec[K, V]) Decode(page []byte, offset int64) (*Node[K, V], error) {
	if len(page) != c.PageSize {
		return nil, errs.New(errs.Corruption, "node.Decode", fmt.Sprintf("page size mismatch: want %d got %d", c.PageSize, len(page)))
	}

	n := &Node[K, V]{
		Offset:       offset,
		Type:         Type(page[offType]),
		Deleted:      page[offDeleted] != 0,
		NodeID:       binary.LittleEndian.Uint64(page[offNodeID:]),
		ParentOffset: int64(binary.LittleEndian.Uint64(page[offParentOffset:])),
		LeftSibling:  int64(binary.LittleEndian.Uint64(page[offLeftSibling:])),
		RightSibling: int64(binary.LittleEndian.Uint64(page[offRightSibling:])),
		CreatedAt:    int64(binary.LittleEndian.Uint64(page[offCreatedAt:])),
		ModifiedAt:   int64(binary.LittleEndian.Uint64(page[offModifiedAt:])),
	}
	if n.Type != Leaf && n.Type != Internal {
		return nil, errs.New(errs.Corruption, "node.Decode", fmt.Sprintf("invalid node type %d at offset %d", n.Type, offset))
	}
	keyCount := int(binary.LittleEndian.Uint16(page[offKeyCount:]))
	if keyCount < 0 || HeaderSize+keyCount > len(page) {
		return nil, errs.New(errs.Corruption, "node.Decode", fmt.Sprintf("impossible key_count %d at offset %d", keyCount, offset))
	}

	wantSum := binary.LittleEndian.Uint32(page[offChecksum:])
	payloadLen, err := c.payloadLength(page[HeaderSize:], keyCount, n.Type)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "node.Decode", "measuring payload", err)
	}
	if !checksum.Verify(page[HeaderSize:HeaderSize+payloadLen], wantSum) {
		return nil, errs.New(errs.Corruption, "node.Decode", fmt.Sprintf("payload checksum mismatch at offset %d", offset))
	}

	if err := c.decodePayload(n, page[HeaderSize:HeaderSize+payloadLen], keyCount); err != nil {
		return nil, err
	}
	return n, nil
}

// payloadLength scans just enough of the payload to find its total byte
// length without fully decoding entries, so the checksum can be verified
// over exactly the bytes that were written.
func (c Codec[K, V]) payloadLength(buf []byte, keyCount int, typ Type) (int, error) {
	keyFixedSize, keyFixed := c.KeyCodec.FixedSize()
	off := 0

	if typ == Leaf {
		valFixedSize, valFixed := c.ValueCodec.FixedSize()
		for i := 0; i < keyCount; i++ {
			_, next, err := readVarField(buf, off, keyFixed, keyFixedSize)
			if err != nil {
				return 0, err
			}
			off = next
			_, next, err = readVarField(buf, off, valFixed, valFixedSize)
			if err != nil {
				return 0, err
			}
			off = next
		}
		return off, nil
	}

	if off+8 > len(buf) {
		return 0, fmt.Errorf("page overflow reading child 0")
	}
	off += 8
	for i := 0; i < keyCount; i++ {
		_, next, err := readVarField(buf, off, keyFixed, keyFixedSize)
		if err != nil {
			return 0, err
		}
		off = next
		if off+8 > len(buf) {
			return 0, fmt.Errorf("page overflow reading child %d", i+1)
		}
		off += 8
	}
	return off, nil
}

func (c Codec[K, V]) decodePayload(n *Node[K, V], buf []byte, keyCount int) error {
	keyFixedSize, keyFixed := c.KeyCodec.FixedSize()
	off := 0

	n.Keys = make([]K, 0, keyCount)
	if n.Type == Leaf {
		valFixedSize, valFixed := c.ValueCodec.FixedSize()
		n.Values = make([]V, 0, keyCount)
		for i := 0; i < keyCount; i++ {
			kb, next, err := readVarField(buf, off, keyFixed, keyFixedSize)
			if err != nil {
				return errs.Wrap(errs.Corruption, "node.decodePayload", "reading key", err)
			}
			off = next
			k, err := c.KeyCodec.Decode(kb)
			if err != nil {
				return errs.Wrap(errs.Codec, "node.decodePayload", "decode key", err)
			}

			vb, next, err := readVarField(buf, off, valFixed, valFixedSize)
			if err != nil {
				return errs.Wrap(errs.Corruption, "node.decodePayload", "reading value", err)
			}
			off = next
			v, err := c.ValueCodec.Decode(vb)
			if err != nil {
				return errs.Wrap(errs.Codec, "node.decodePayload", "decode value", err)
			}

			n.Keys = append(n.Keys, k)
			n.Values = append(n.Values, v)
		}
		return nil
	}

	n.Children = make([]int64, 0, keyCount+1)
	child0 := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	n.Children = append(n.Children, int64(child0))
	for i := 0; i < keyCount; i++ {
		kb, next, err := readVarField(buf, off, keyFixed, keyFixedSize)
		if err != nil {
			return errs.Wrap(errs.Corruption, "node.decodePayload", "reading separator key", err)
		}
		off = next
		k, err := c.KeyCodec.Decode(kb)
		if err != nil {
			return errs.Wrap(errs.Codec, "node.decodePayload", "decode separator key", err)
		}
		n.Keys = append(n.Keys, k)

		child := binary.LittleEndian.Uint64(buf[off:])
		off += 8
		n.Children = append(n.Children, int64(child))
	}
	return nil
}
