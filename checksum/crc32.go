// Package checksum computes the CRC-32 used to protect the file header and
// every node payload (spec.md §4.2): polynomial 0xEDB88320 (reflected),
// initial value 0xFFFFFFFF, final XOR 0xFFFFFFFF, byte-at-a-time
// table-driven. That is exactly the classic CRC-32 (IEEE 802.3) variant, so
// this wraps the standard library's hash/crc32 rather than re-implementing
// the table — the same call other_examples/aergoio-kv_log__db.go makes
// (crc32.ChecksumIEEE) for identical page-checksum purposes.
package checksum

import "hash/crc32"

// Of returns the CRC-32 (IEEE) of b.
func Of(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// Verify reports whether b's stored checksum matches its recomputed value.
func Verify(b []byte, want uint32) bool {
	return Of(b) == want
}
