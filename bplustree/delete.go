package bplustree

// Delete removes key if present and reports whether it existed (spec.md
// §4.8 "Delete"). Before descending into any child, the tree first ensures
// that child has more than the minimum number of keys — by rotating a key
// in from a sibling, or merging with one — so the recursive delete never
// has to climb back up to fix an underflow it just created.
//
// Because values live only in leaves and internal separators are copies
// rather than authoritative entries (see splitChild), a key that matches a
// separator is never "in" the internal node itself: childIndexFor always
// routes it into the right subtree, so deletion needs no predecessor/
// successor swap step the way a classic (non-B+) tree's delete would.
//
// Grounded on ShubhamNegi4-DaemonDB/bplustree/deletion.go's rotate-through-
// parent borrow and merge-with-sibling logic, restructured to run before
// the recursive descent instead of after it returns.
func (t *Tree[K, V]) Delete(key K, now int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hdr.RootOffset == 0 {
		return false, nil
	}

	deleted, err := t.deleteFrom(int64(t.hdr.RootOffset), key, now)
	if err != nil {
		return false, err
	}

	// A proactive rotate/merge while descending toward key can shrink the
	// root even when key itself turns out to be absent, so the collapse
	// check and header rewrite always run, not just on a successful delete.
	if err := t.collapseRootIfNeeded(now); err != nil {
		return false, err
	}
	return deleted, t.touchHeader(now)
}

func (t *Tree[K, V]) collapseRootIfNeeded(now int64) error {
	root, err := t.pool.Get(int64(t.hdr.RootOffset))
	if err != nil {
		return err
	}
	if root.IsLeaf() {
		if len(root.Keys) == 0 {
			t.hdr.RootOffset = 0
			t.hdr.Height = 0
		}
		return nil
	}
	if len(root.Keys) == 0 {
		newRootOff := root.Children[0]
		newRoot, err := t.pool.Get(newRootOff)
		if err != nil {
			return err
		}
		newRoot.ParentOffset = 0
		if err := t.pool.Put(newRoot, true); err != nil {
			return err
		}
		t.hdr.RootOffset = uint64(newRootOff)
		if t.hdr.Height > 0 {
			t.hdr.Height--
		}
		t.pool.Invalidate(root.Offset)
		return t.alloc.Free(root.Offset)
	}
	_ = now
	return nil
}

func (t *Tree[K, V]) deleteFrom(nodeOff int64, key K, now int64) (bool, error) {
	n, err := t.pool.Get(nodeOff)
	if err != nil {
		return false, err
	}

	if n.IsLeaf() {
		idx, found := findKey(n.Keys, key, t.cmp)
		if !found {
			return false, nil
		}
		n.Keys = removeAt(n.Keys, idx)
		n.Values = removeAt(n.Values, idx)
		n.ModifiedAt = now
		t.hdr.KeyCount--
		return true, t.pool.Put(n, true)
	}

	idx := childIndexFor(n.Keys, key, t.cmp)
	child, err := t.pool.Get(n.Children[idx])
	if err != nil {
		return false, err
	}

	fixed := false
	if len(child.Keys) <= t.t-1 {
		idx, err = t.fixDeficientChild(n, idx, now)
		if err != nil {
			return false, err
		}
		fixed = true
	}

	deleted, err := t.deleteFrom(n.Children[idx], key, now)
	if err != nil {
		return false, err
	}
	// A rotate or merge mutates n's keys/children even when the key
	// ultimately isn't found below it, so n must be persisted whenever
	// fixDeficientChild ran, not only when the delete itself succeeded.
	if deleted || fixed {
		n.ModifiedAt = now
		if putErr := t.pool.Put(n, true); putErr != nil {
			return deleted, putErr
		}
	}
	return deleted, nil
}

// fixDeficientChild ensures parent.Children[idx] holds more than t-1 keys
// before the caller descends into it, rotating a key in from a sibling that
// can spare one or merging with a sibling otherwise (spec.md §4.8 "fix
// before descent"). Returns the (possibly shifted, after a merge) index to
// descend into.
func (t *Tree[K, V]) fixDeficientChild(parent *nodePage[K, V], idx int, now int64) (int, error) {
	child, err := t.pool.Get(parent.Children[idx])
	if err != nil {
		return 0, err
	}

	if idx > 0 {
		left, err := t.pool.Get(parent.Children[idx-1])
		if err != nil {
			return 0, err
		}
		if len(left.Keys) > t.t-1 {
			return idx, t.borrowFromLeft(parent, idx, left, child, now)
		}
	}
	if idx < len(parent.Children)-1 {
		right, err := t.pool.Get(parent.Children[idx+1])
		if err != nil {
			return 0, err
		}
		if len(right.Keys) > t.t-1 {
			return idx, t.borrowFromRight(parent, idx, child, right, now)
		}
	}

	if idx > 0 {
		left, err := t.pool.Get(parent.Children[idx-1])
		if err != nil {
			return 0, err
		}
		if err := t.mergeChildren(parent, idx-1, left, child, now); err != nil {
			return 0, err
		}
		return idx - 1, nil
	}

	right, err := t.pool.Get(parent.Children[idx+1])
	if err != nil {
		return 0, err
	}
	if err := t.mergeChildren(parent, idx, child, right, now); err != nil {
		return 0, err
	}
	return idx, nil
}

func (t *Tree[K, V]) borrowFromLeft(parent *nodePage[K, V], idx int, left, child *nodePage[K, V], now int64) error {
	if child.IsLeaf() {
		last := len(left.Keys) - 1
		k, v := left.Keys[last], left.Values[last]
		left.Keys = left.Keys[:last]
		left.Values = left.Values[:last]

		child.Keys = insertAt(child.Keys, 0, k)
		child.Values = insertAt(child.Values, 0, v)
		parent.Keys[idx-1] = child.Keys[0]
	} else {
		lastKey := left.Keys[len(left.Keys)-1]
		lastChild := left.Children[len(left.Children)-1]
		left.Keys = left.Keys[:len(left.Keys)-1]
		left.Children = left.Children[:len(left.Children)-1]

		child.Keys = insertAt(child.Keys, 0, parent.Keys[idx-1])
		child.Children = insertAt(child.Children, 0, lastChild)
		parent.Keys[idx-1] = lastKey

		moved, err := t.pool.Get(lastChild)
		if err != nil {
			return err
		}
		moved.ParentOffset = child.Offset
		if err := t.pool.Put(moved, true); err != nil {
			return err
		}
	}
	left.ModifiedAt, child.ModifiedAt, parent.ModifiedAt = now, now, now
	if err := t.pool.Put(left, true); err != nil {
		return err
	}
	return t.pool.Put(child, true)
}

func (t *Tree[K, V]) borrowFromRight(parent *nodePage[K, V], idx int, child, right *nodePage[K, V], now int64) error {
	if child.IsLeaf() {
		k, v := right.Keys[0], right.Values[0]
		right.Keys = removeAt(right.Keys, 0)
		right.Values = removeAt(right.Values, 0)

		child.Keys = append(child.Keys, k)
		child.Values = append(child.Values, v)
		parent.Keys[idx] = right.Keys[0]
	} else {
		firstKey := right.Keys[0]
		firstChild := right.Children[0]
		right.Keys = removeAt(right.Keys, 0)
		right.Children = removeAt(right.Children, 0)

		child.Keys = append(child.Keys, parent.Keys[idx])
		child.Children = append(child.Children, firstChild)
		parent.Keys[idx] = firstKey

		moved, err := t.pool.Get(firstChild)
		if err != nil {
			return err
		}
		moved.ParentOffset = child.Offset
		if err := t.pool.Put(moved, true); err != nil {
			return err
		}
	}
	right.ModifiedAt, child.ModifiedAt, parent.ModifiedAt = now, now, now
	if err := t.pool.Put(right, true); err != nil {
		return err
	}
	return t.pool.Put(child, true)
}

// mergeChildren absorbs parent.Children[leftIdx+1] into parent.Children[leftIdx],
// removing the separator between them and the now-empty right node's
// offset from parent.
func (t *Tree[K, V]) mergeChildren(parent *nodePage[K, V], leftIdx int, left, right *nodePage[K, V], now int64) error {
	if left.IsLeaf() {
		left.Keys = append(left.Keys, right.Keys...)
		left.Values = append(left.Values, right.Values...)
		left.RightSibling = right.RightSibling
		if right.RightSibling != 0 {
			farRight, err := t.pool.Get(right.RightSibling)
			if err != nil {
				return err
			}
			farRight.LeftSibling = left.Offset
			if err := t.pool.Put(farRight, true); err != nil {
				return err
			}
		}
	} else {
		left.Keys = append(left.Keys, parent.Keys[leftIdx])
		left.Keys = append(left.Keys, right.Keys...)
		left.Children = append(left.Children, right.Children...)
		for _, c := range right.Children {
			cn, err := t.pool.Get(c)
			if err != nil {
				return err
			}
			cn.ParentOffset = left.Offset
			if err := t.pool.Put(cn, true); err != nil {
				return err
			}
		}
	}
	left.ModifiedAt = now

	parent.Keys = removeAt(parent.Keys, leftIdx)
	parent.Children = removeAt(parent.Children, leftIdx+1)
	parent.ModifiedAt = now

	t.pool.Invalidate(right.Offset)
	if err := t.alloc.Free(right.Offset); err != nil {
		return err
	}
	return t.pool.Put(left, true)
}
