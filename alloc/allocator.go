// Package alloc implements the space allocator (spec.md §4.7, C7): pop a
// free page of the right size if one exists, otherwise bump-allocate at the
// end of the file. Freed pages are chained through an 8-byte
// next_free_offset written into the start of the page itself, the same
// technique spec.md §9 and other_examples/Govetachun-Go-DB's kv-store
// FreeList use (there: "type | size | total | next | pointer-version-pairs"
// laid directly into freed pages rather than a side structure).
package alloc

import (
	"encoding/binary"

	"btreestore/blockdevice"
	"btreestore/errs"
	"btreestore/header"
)

// Allocator hands out and reclaims fixed-size node pages, keeping the
// header's free_list_head/total_file_size/node_count fields in sync. It does
// not persist the header itself — the caller (the B-tree engine) decides
// when to flush header changes, per spec.md §4.4.
type Allocator struct {
	dev      blockdevice.Device
	hdr      *header.Header
	pageSize uint32
	// NoReuse disables the free list and always bump-allocates, the
	// "degrade to append-only" option spec.md §9 calls out as legal
	// provided §3's invariants still hold.
	NoReuse bool
}

func New(dev blockdevice.Device, hdr *header.Header, pageSize uint32) *Allocator {
	return &Allocator{dev: dev, hdr: hdr, pageSize: pageSize}
}

// Allocate returns the offset of a page sized for one node, reusing a freed
// page when the free list has one and NoReuse is false.
func (a *Allocator) Allocate() (int64, error) {
	if !a.NoReuse && a.hdr.FreeListHead != 0 {
		offset := int64(a.hdr.FreeListHead)
		next := make([]byte, 8)
		if err := a.dev.ReadAt(next, offset); err != nil {
			return 0, errs.Wrap(errs.IO, "alloc.Allocate", "reading free list link", err)
		}
		a.hdr.FreeListHead = binary.LittleEndian.Uint64(next)
		a.hdr.NodeCount++
		return offset, nil
	}

	offset := int64(a.hdr.TotalFileSize)
	a.hdr.TotalFileSize += uint64(a.pageSize)
	a.hdr.NodeCount++
	if err := a.dev.Truncate(int64(a.hdr.TotalFileSize)); err != nil {
		return 0, errs.Wrap(errs.IO, "alloc.Allocate", "growing file", err)
	}
	return offset, nil
}

// Free returns offset's page to the free list, threading it onto the
// existing head.
func (a *Allocator) Free(offset int64) error {
	link := make([]byte, a.pageSize)
	binary.LittleEndian.PutUint64(link, a.hdr.FreeListHead)
	if err := a.dev.WriteAt(link[:8], offset); err != nil {
		return errs.Wrap(errs.IO, "alloc.Free", "writing free list link", err)
	}
	a.hdr.FreeListHead = uint64(offset)
	if a.hdr.NodeCount > 0 {
		a.hdr.NodeCount--
	}
	return nil
}
