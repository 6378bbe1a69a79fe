package bplustree

import "btreestore/node"

// Insert upserts key/value: if key is already present, its value is
// overwritten; otherwise a new entry is added (spec.md §4.8 "Insert
// (preemptive top-down split)"). The tree splits any full node it is about
// to descend into on the way down, so the insert itself never has to climb
// back up to propagate a split.
//
// Grounded on ShubhamNegi4-DaemonDB/bplustree/insertion.go's empty-tree and
// leaf-insert handling, but reordered from reactive (split only after an
// overflow is detected post-insert) to preemptive (split any full node
// before entering it), per spec.md §4.8.
func (t *Tree[K, V]) Insert(key K, value V, now int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hdr.RootOffset == 0 {
		leaf, err := t.allocNode(node.Leaf)
		if err != nil {
			return err
		}
		leaf.Keys = []K{key}
		leaf.Values = []V{value}
		leaf.CreatedAt, leaf.ModifiedAt = now, now
		if err := t.pool.Put(leaf, true); err != nil {
			return err
		}
		t.hdr.RootOffset = uint64(leaf.Offset)
		t.hdr.Height = 1
		t.hdr.KeyCount = 1
		return t.touchHeader(now)
	}

	rootOff := int64(t.hdr.RootOffset)
	root, err := t.pool.Get(rootOff)
	if err != nil {
		return err
	}

	if len(root.Keys) == t.maxKeys {
		newRoot, err := t.allocNode(node.Internal)
		if err != nil {
			return err
		}
		newRoot.Children = []int64{rootOff}
		newRoot.CreatedAt, newRoot.ModifiedAt = now, now
		root.ParentOffset = newRoot.Offset
		if err := t.pool.Put(root, true); err != nil {
			return err
		}
		if err := t.pool.Put(newRoot, true); err != nil {
			return err
		}
		t.hdr.RootOffset = uint64(newRoot.Offset)
		t.hdr.Height++
		if err := t.splitChild(newRoot, 0, now); err != nil {
			return err
		}
		rootOff = newRoot.Offset
	}

	if err := t.insertNonFull(rootOff, key, value, now); err != nil {
		return err
	}
	return t.touchHeader(now)
}

// insertNonFull inserts into the subtree rooted at nodeOff, which the
// caller guarantees is not full.
func (t *Tree[K, V]) insertNonFull(nodeOff int64, key K, value V, now int64) error {
	n, err := t.pool.Get(nodeOff)
	if err != nil {
		return err
	}

	if n.IsLeaf() {
		idx, found := findKey(n.Keys, key, t.cmp)
		if found {
			n.Values[idx] = value
		} else {
			n.Keys = insertAt(n.Keys, idx, key)
			n.Values = insertAt(n.Values, idx, value)
			t.hdr.KeyCount++
		}
		n.ModifiedAt = now
		return t.pool.Put(n, true)
	}

	idx := childIndexFor(n.Keys, key, t.cmp)
	child, err := t.pool.Get(n.Children[idx])
	if err != nil {
		return err
	}

	if len(child.Keys) == t.maxKeys {
		if err := t.splitChild(n, idx, now); err != nil {
			return err
		}
		// n gained a key and a child; recompute which side key now falls on.
		idx = childIndexFor(n.Keys, key, t.cmp)
	}

	return t.insertNonFull(n.Children[idx], key, value, now)
}

// splitChild splits the full node at parent.Children[idx] into two nodes,
// inserting a separator and the new sibling's offset into parent (spec.md
// §4.8 "Split of a node with M keys").
//
// Leaves copy their dividing key up as the separator and keep both halves
// intact (the right half's minimum becomes the separator, satisfying the
// strict less-than invariant I2 without discarding either half's own
// entries); internal nodes remove the median key entirely, since it carries
// no value and both halves would otherwise disagree about which side owns
// it.
func (t *Tree[K, V]) splitChild(parent *nodePage[K, V], idx int, now int64) error {
	child, err := t.pool.Get(parent.Children[idx])
	if err != nil {
		return err
	}

	sibling, err := t.allocNode(child.Type)
	if err != nil {
		return err
	}
	sibling.ParentOffset = parent.Offset
	sibling.CreatedAt, sibling.ModifiedAt = now, now

	ti := t.t
	var promote K

	if child.IsLeaf() {
		sibling.Keys = append([]K(nil), child.Keys[ti:]...)
		sibling.Values = append([]V(nil), child.Values[ti:]...)
		child.Keys = child.Keys[:ti]
		child.Values = child.Values[:ti]

		sibling.RightSibling = child.RightSibling
		sibling.LeftSibling = child.Offset
		child.RightSibling = sibling.Offset
		if sibling.RightSibling != 0 {
			rightNeighbor, err := t.pool.Get(sibling.RightSibling)
			if err != nil {
				return err
			}
			rightNeighbor.LeftSibling = sibling.Offset
			if err := t.pool.Put(rightNeighbor, true); err != nil {
				return err
			}
		}
		promote = sibling.Keys[0]
	} else {
		promote = child.Keys[ti-1]
		sibling.Keys = append([]K(nil), child.Keys[ti:]...)
		sibling.Children = append([]int64(nil), child.Children[ti:]...)
		child.Keys = child.Keys[:ti-1]
		child.Children = child.Children[:ti]

		for _, c := range sibling.Children {
			cn, err := t.pool.Get(c)
			if err != nil {
				return err
			}
			cn.ParentOffset = sibling.Offset
			if err := t.pool.Put(cn, true); err != nil {
				return err
			}
		}
	}

	child.ModifiedAt = now
	parent.Keys = insertAt(parent.Keys, idx, promote)
	parent.Children = insertAt(parent.Children, idx+1, sibling.Offset)
	parent.ModifiedAt = now

	if err := t.pool.Put(child, true); err != nil {
		return err
	}
	if err := t.pool.Put(sibling, true); err != nil {
		return err
	}
	return t.pool.Put(parent, true)
}
