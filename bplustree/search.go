package bplustree

// Search descends from the root to the leaf that would contain key and
// reports its value, or (zero, false) if key is absent (spec.md §4.8
// "Search"). A lookup miss is a normal result, not an error.
//
// Grounded on ShubhamNegi4-DaemonDB/bplustree/find_leaf.go's FindLeaf, minus
// its pin/unpin dance: this package's bufferpool tracks recency on every
// Get, so a plain descent already keeps hot nodes resident.
func (t *Tree[K, V]) Search(key K) (V, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero V
	if t.hdr.RootOffset == 0 {
		return zero, false, nil
	}

	leaf, err := t.descendToLeaf(int64(t.hdr.RootOffset), key)
	if err != nil {
		return zero, false, err
	}

	idx, found := findKey(leaf.Keys, key, t.cmp)
	if !found {
		return zero, false, nil
	}
	return leaf.Values[idx], true, nil
}

// Exists reports whether key is present, without incurring the cost of
// copying its value.
func (t *Tree[K, V]) Exists(key K) (bool, error) {
	_, ok, err := t.Search(key)
	return ok, err
}

func (t *Tree[K, V]) descendToLeaf(offset int64, key K) (*nodePage[K, V], error) {
	for {
		n, err := t.pool.Get(offset)
		if err != nil {
			return nil, err
		}
		if n.IsLeaf() {
			return n, nil
		}
		idx := childIndexFor(n.Keys, key, t.cmp)
		offset = n.Children[idx]
	}
}

// descendToLeftmostLeaf walks child index 0 at every level, for range
// scans and enumeration with no lower bound.
func (t *Tree[K, V]) descendToLeftmostLeaf(offset int64) (*nodePage[K, V], error) {
	for {
		n, err := t.pool.Get(offset)
		if err != nil {
			return nil, err
		}
		if n.IsLeaf() {
			return n, nil
		}
		offset = n.Children[0]
	}
}
