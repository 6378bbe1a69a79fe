// Package blockdevice abstracts the host file primitives the engine needs
// (spec.md §4.1, §6): fixed-offset byte read/write/truncate/flush on a named
// file, plus directory-level existence/removal. It is grounded on
// ShubhamNegi4-DaemonDB/bplustree/disk_pager.go's OnDiskPager, generalized
// from fixed 4KB pages to arbitrary offset/length ranges so the engine's own
// offset arithmetic (not the device) decides page boundaries.
package blockdevice

// Device is the contract the B-tree engine uses for all durable I/O. All
// operations are synchronous from the caller's perspective (spec.md §4.1);
// whether a concrete Device blocks the calling goroutine is its own choice.
type Device interface {
	// ReadAt reads exactly len(p) bytes starting at off. Reads past end of
	// file fail.
	ReadAt(p []byte, off int64) error
	// WriteAt writes p at off, growing the file if off+len(p) exceeds the
	// current size.
	WriteAt(p []byte, off int64) error
	// Truncate resizes the file to exactly size bytes.
	Truncate(size int64) error
	// Flush makes previously written bytes durable.
	Flush() error
	// Size returns the current file size in bytes.
	Size() (int64, error)
	// Close releases the underlying file handle.
	Close() error
}

// Opener creates or opens named Devices and performs directory-level
// existence checks, mirroring the "store name" half of the request surface
// in spec.md §6 (initialize/exists/destroy operate on a store name, not an
// open handle).
type Opener interface {
	Exists(name string) (bool, error)
	Remove(name string) error
	Open(name string, create bool) (Device, error)
}
