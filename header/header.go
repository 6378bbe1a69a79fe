// Package header implements the 512-byte file header (spec.md §3, §4.4):
// magic/version/checksum, tree-wide counters (root_offset, node_count,
// height, free_list_head, total_file_size, key_count), timestamps, the
// reserved transaction_id, and codec tags. Layout is documented in
// SPEC_FULL.md §6.1.
//
// Grounded on ShubhamNegi4-DaemonDB/bplustree/inspect.go's ad hoc "page 0 is
// the meta page, first 8 bytes are the root id" convention, formalized into
// a fixed, checksummed, versioned header the way
// Govetachun-Go-DB/concurrent-reader-writer's "master page" comment
// describes (sig | btree_root | page_used | free_list | version).
package header

import (
	"encoding/binary"
	"fmt"

	"btreestore/blockdevice"
	"btreestore/checksum"
	"btreestore/errs"
)

const (
	Size = 512

	Magic   uint32 = 0x42545245 // "BTRE" (actually 'B','T','R','E' reversed by LE)
	Version uint32 = 1

	checksumStart = 12 // header_checksum covers bytes [12, Size)
)

const (
	offMagic          = 0
	offVersion        = 4
	offChecksum       = 8
	offOrder          = 12
	offKeyFixedSize   = 16
	offValueFixedSize = 20
	offNodeSize       = 24
	offRootOffset     = 28
	offNodeCount      = 36
	offHeight         = 44
	offFreeListHead   = 48
	offTotalFileSize  = 56
	offCreatedAt      = 64
	offModifiedAt     = 72
	offTransactionID  = 80
	offFlags          = 88
	offKeyCodecTag    = 92
	offValueCodecTag  = 108
	tagLen            = 16
	offKeyCount       = 124
)

// Header mirrors every field of the on-disk 512-byte header, kept in memory
// by the engine and rewritten on every structural change (spec.md §4.4).
type Header struct {
	Order          uint32
	KeyFixedSize   uint32
	ValueFixedSize uint32
	NodeSize       uint32
	RootOffset     uint64
	NodeCount      uint64
	Height         uint32
	FreeListHead   uint64
	TotalFileSize  uint64
	CreatedAt      int64
	ModifiedAt     int64
	TransactionID  uint64
	Flags          uint32
	KeyCodecTag    string
	ValueCodecTag  string
	KeyCount       uint64
}

// New populates a fresh header for file creation.
func New(order, keyFixedSize, valueFixedSize, nodeSize uint32, keyTag, valueTag string, now int64) *Header {
	return &Header{
		Order:          order,
		KeyFixedSize:   keyFixedSize,
		ValueFixedSize: valueFixedSize,
		NodeSize:       nodeSize,
		RootOffset:     0,
		NodeCount:      0,
		Height:         0,
		FreeListHead:   0,
		TotalFileSize:  Size,
		CreatedAt:      now,
		ModifiedAt:     now,
		TransactionID:  0,
		Flags:          0,
		KeyCodecTag:    keyTag,
		ValueCodecTag:  valueTag,
		KeyCount:       0,
	}
}

// Encode serializes h into a fresh 512-byte page, computing the checksum
// over bytes [12, 512).
func (h *Header) Encode() []byte {
	buf := make([]byte, Size)

	binary.LittleEndian.PutUint32(buf[offMagic:], Magic)
	binary.LittleEndian.PutUint32(buf[offVersion:], Version)
	binary.LittleEndian.PutUint32(buf[offOrder:], h.Order)
	binary.LittleEndian.PutUint32(buf[offKeyFixedSize:], h.KeyFixedSize)
	binary.LittleEndian.PutUint32(buf[offValueFixedSize:], h.ValueFixedSize)
	binary.LittleEndian.PutUint32(buf[offNodeSize:], h.NodeSize)
	binary.LittleEndian.PutUint64(buf[offRootOffset:], h.RootOffset)
	binary.LittleEndian.PutUint64(buf[offNodeCount:], h.NodeCount)
	binary.LittleEndian.PutUint32(buf[offHeight:], h.Height)
	binary.LittleEndian.PutUint64(buf[offFreeListHead:], h.FreeListHead)
	binary.LittleEndian.PutUint64(buf[offTotalFileSize:], h.TotalFileSize)
	binary.LittleEndian.PutUint64(buf[offCreatedAt:], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[offModifiedAt:], uint64(h.ModifiedAt))
	binary.LittleEndian.PutUint64(buf[offTransactionID:], h.TransactionID)
	binary.LittleEndian.PutUint32(buf[offFlags:], h.Flags)
	putTag(buf[offKeyCodecTag:offKeyCodecTag+tagLen], h.KeyCodecTag)
	putTag(buf[offValueCodecTag:offValueCodecTag+tagLen], h.ValueCodecTag)
	binary.LittleEndian.PutUint64(buf[offKeyCount:], h.KeyCount)

	sum := checksum.Of(buf[checksumStart:Size])
	binary.LittleEndian.PutUint32(buf[offChecksum:], sum)

	return buf
}

func putTag(dst []byte, tag string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, tag)
}

func getTag(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}

// Decode parses a 512-byte page into a Header, validating magic, version,
// and checksum (spec.md §4.4).
func Decode(buf []byte) (*Header, error) {
	if len(buf) != Size {
		return nil, errs.New(errs.Corruption, "header.Decode", fmt.Sprintf("expected %d bytes, got %d", Size, len(buf)))
	}
	if magic := binary.LittleEndian.Uint32(buf[offMagic:]); magic != Magic {
		return nil, errs.New(errs.Corruption, "header.Decode", fmt.Sprintf("bad magic 0x%X", magic))
	}
	if version := binary.LittleEndian.Uint32(buf[offVersion:]); version != Version {
		return nil, errs.New(errs.Corruption, "header.Decode", fmt.Sprintf("unsupported version %d", version))
	}

	wantSum := binary.LittleEndian.Uint32(buf[offChecksum:])
	if !checksum.Verify(buf[checksumStart:Size], wantSum) {
		return nil, errs.New(errs.Corruption, "header.Decode", "header checksum mismatch")
	}

	h := &Header{
		Order:          binary.LittleEndian.Uint32(buf[offOrder:]),
		KeyFixedSize:   binary.LittleEndian.Uint32(buf[offKeyFixedSize:]),
		ValueFixedSize: binary.LittleEndian.Uint32(buf[offValueFixedSize:]),
		NodeSize:       binary.LittleEndian.Uint32(buf[offNodeSize:]),
		RootOffset:     binary.LittleEndian.Uint64(buf[offRootOffset:]),
		NodeCount:      binary.LittleEndian.Uint64(buf[offNodeCount:]),
		Height:         binary.LittleEndian.Uint32(buf[offHeight:]),
		FreeListHead:   binary.LittleEndian.Uint64(buf[offFreeListHead:]),
		TotalFileSize:  binary.LittleEndian.Uint64(buf[offTotalFileSize:]),
		CreatedAt:      int64(binary.LittleEndian.Uint64(buf[offCreatedAt:])),
		ModifiedAt:     int64(binary.LittleEndian.Uint64(buf[offModifiedAt:])),
		TransactionID:  binary.LittleEndian.Uint64(buf[offTransactionID:]),
		Flags:          binary.LittleEndian.Uint32(buf[offFlags:]),
		KeyCodecTag:    getTag(buf[offKeyCodecTag : offKeyCodecTag+tagLen]),
		ValueCodecTag:  getTag(buf[offValueCodecTag : offValueCodecTag+tagLen]),
		KeyCount:       binary.LittleEndian.Uint64(buf[offKeyCount:]),
	}
	return h, nil
}

// Write persists h to dev at offset 0. It does not flush the device; callers
// that need the header durable (Create, Close) call dev.Flush afterwards.
func (h *Header) Write(dev blockdevice.Device) error {
	if err := dev.WriteAt(h.Encode(), 0); err != nil {
		return errs.Wrap(errs.IO, "header.Write", "writing header", err)
	}
	return nil
}

// Read loads and validates the header from dev.
func Read(dev blockdevice.Device) (*Header, error) {
	buf := make([]byte, Size)
	if err := dev.ReadAt(buf, 0); err != nil {
		return nil, errs.Wrap(errs.IO, "header.Read", "reading header", err)
	}
	return Decode(buf)
}
