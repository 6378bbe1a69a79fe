package bplustree

// Entry is a single (key, value) pair returned by Range and Entries.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// RangeOptions bounds a range scan (spec.md §4.8 "Range"). Limit is applied
// during the forward walk before Reverse flips the result, so Reverse+Limit
// yields the smallest Limit keys in descending order, not the largest: a
// scan over {0..9} with Reverse=true, Limit=3 returns [2 1 0], not [9 8 7].
type RangeOptions[K any] struct {
	Start, End               K
	HasStart, HasEnd         bool
	IncludeStart, IncludeEnd bool
	Limit                    int // 0 = unlimited
	Reverse                  bool
}

// Range returns the entries whose keys fall within opts' bounds, in
// increasing key order (or decreasing, if Reverse is set), per spec.md
// §4.8: "descends the tree to the leaf containing start and then walks
// leaf siblings forward until the key exceeds end or limit is reached."
//
// Grounded on ShubhamNegi4-DaemonDB/bplustree/iterator.go's
// SeekGE/Next sibling walk, generalized from an unbounded forward-only
// cursor to a bounded, optionally reversed one.
func (t *Tree[K, V]) Range(opts RangeOptions[K]) ([]Entry[K, V], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hdr.RootOffset == 0 {
		return nil, nil
	}

	var leaf *nodePage[K, V]
	var err error
	if opts.HasStart {
		leaf, err = t.descendToLeaf(int64(t.hdr.RootOffset), opts.Start)
	} else {
		leaf, err = t.descendToLeftmostLeaf(int64(t.hdr.RootOffset))
	}
	if err != nil {
		return nil, err
	}

	idx := 0
	if opts.HasStart {
		idx = childIndexForLeaf(leaf.Keys, opts.Start, t.cmp, opts.IncludeStart)
	}

	var out []Entry[K, V]
	for leaf != nil {
		for idx < len(leaf.Keys) {
			k := leaf.Keys[idx]
			if opts.HasEnd {
				cmp := t.cmp(k, opts.End)
				if cmp > 0 || (cmp == 0 && !opts.IncludeEnd) {
					leaf = nil
					break
				}
			}
			out = append(out, Entry[K, V]{Key: k, Value: leaf.Values[idx]})
			idx++
			if opts.Limit > 0 && len(out) >= opts.Limit {
				leaf = nil
				break
			}
		}
		if leaf == nil || leaf.RightSibling == 0 {
			break
		}
		next, err := t.pool.Get(leaf.RightSibling)
		if err != nil {
			return nil, err
		}
		leaf = next
		idx = 0
	}

	if opts.Reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// childIndexForLeaf returns the first index in a leaf's keys satisfying the
// start bound.
func childIndexForLeaf[K any](keys []K, start K, cmp func(a, b K) int, includeStart bool) int {
	idx, found := findKey(keys, start, cmp)
	if found && !includeStart {
		idx++
	}
	return idx
}

// Entries returns every (key, value) pair in increasing key order (spec.md
// §4.8 "Entries"). It is equivalent to an unbounded Range.
func (t *Tree[K, V]) Entries() ([]Entry[K, V], error) {
	return t.Range(RangeOptions[K]{})
}
