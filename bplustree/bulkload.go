package bplustree

import "sort"

// ProgressFunc is invoked after each batch during BulkLoad.
type ProgressFunc func(loaded, total int)

// BulkLoadOptions configures a bulk load (spec.md §4.8 "Bulk load").
type BulkLoadOptions struct {
	Sorted    bool
	BatchSize int
	Progress  ProgressFunc
}

// BulkLoad replaces the tree's entire contents with entries, sorting first
// if the caller doesn't promise the input already is (spec.md §6's
// operation table: bulk_load "clears existing data first"; §4.8: "If
// sorted = false, the input is stably sorted by key. The data is then
// inserted one entry at a time"). This takes that one-entry-at-a-time
// option rather than the permitted bottom-up bulk-build optimization, since
// it already reuses Insert's preemptive split logic instead of duplicating
// it in a second code path.
//
// ShubhamNegi4-DaemonDB has no bulk-load analogue; its Bplus() demo in
// bplus.go calls Insertion in a loop one record at a time with no batching,
// clearing, or progress reporting, which this generalizes with
// BulkLoadOptions.
func (t *Tree[K, V]) BulkLoad(entries []Entry[K, V], opts BulkLoadOptions, now int64) error {
	if err := t.Clear(now); err != nil {
		return err
	}

	if !opts.Sorted {
		sorted := make([]Entry[K, V], len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool {
			return t.cmp(sorted[i].Key, sorted[j].Key) < 0
		})
		entries = sorted
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(entries)
		if batchSize == 0 {
			batchSize = 1
		}
	}

	for i, e := range entries {
		if err := t.Insert(e.Key, e.Value, now); err != nil {
			return err
		}
		if opts.Progress != nil && (i+1)%batchSize == 0 {
			opts.Progress(i+1, len(entries))
		}
	}
	if opts.Progress != nil && len(entries)%batchSize != 0 {
		opts.Progress(len(entries), len(entries))
	}
	return nil
}
