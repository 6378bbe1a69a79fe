package bplustree

import "fmt"

// VerifyResult reports the outcome of a structural audit (spec.md §4.8
// "Verify").
type VerifyResult struct {
	OK         bool
	Violations []string
	NodesSeen  uint64
}

// Verify walks the whole tree and checks every invariant spec.md §3 names:
// strictly increasing keys per node (I1), separator ordering (I2),
// occupancy bounds (I3), uniform leaf depth, and that the number of nodes
// reachable from the root matches the header's node_count. Per-node
// checksums are already verified on every decode by node.Codec, so a
// corrupt node surfaces as an error from the walk itself rather than as a
// violation string.
//
// ShubhamNegi4-DaemonDB has no direct analogue: its inspect.go prints a
// structure dump rather than auditing it, so this is grounded on the
// invariants spec.md §3 and §4.8 state directly rather than adapted code.
func (t *Tree[K, V]) Verify() (VerifyResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := VerifyResult{OK: true}
	if t.hdr.RootOffset == 0 {
		return result, nil
	}

	leafDepth := -1
	var walk func(offset int64, depth int, isRoot bool) error
	walk = func(offset int64, depth int, isRoot bool) error {
		n, err := t.pool.Get(offset)
		if err != nil {
			return err
		}
		result.NodesSeen++

		for i := 1; i < len(n.Keys); i++ {
			if t.cmp(n.Keys[i-1], n.Keys[i]) >= 0 {
				result.OK = false
				result.Violations = append(result.Violations,
					fmt.Sprintf("node at offset %d: keys not strictly increasing at index %d (I1)", offset, i))
			}
		}

		if !isRoot {
			if len(n.Keys) > t.maxKeys {
				result.OK = false
				result.Violations = append(result.Violations,
					fmt.Sprintf("node at offset %d: %d keys exceeds max %d (I3)", offset, len(n.Keys), t.maxKeys))
			}
			if len(n.Keys) < t.t-1 {
				result.OK = false
				result.Violations = append(result.Violations,
					fmt.Sprintf("node at offset %d: %d keys below minimum %d (I3)", offset, len(n.Keys), t.t-1))
			}
		}

		if n.IsLeaf() {
			if len(n.Values) != len(n.Keys) {
				result.OK = false
				result.Violations = append(result.Violations,
					fmt.Sprintf("leaf at offset %d: %d values for %d keys", offset, len(n.Values), len(n.Keys)))
			}
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				result.OK = false
				result.Violations = append(result.Violations,
					fmt.Sprintf("leaf at offset %d: depth %d, expected %d (uniform leaf depth)", offset, depth, leafDepth))
			}
			return nil
		}

		if len(n.Children) != len(n.Keys)+1 {
			result.OK = false
			result.Violations = append(result.Violations,
				fmt.Sprintf("internal node at offset %d: %d children for %d keys (I2)", offset, len(n.Children), len(n.Keys)))
		}

		for i, childOff := range n.Children {
			child, err := t.pool.Get(childOff)
			if err != nil {
				return err
			}
			if len(child.Keys) > 0 {
				if i < len(n.Keys) && t.cmp(child.Keys[len(child.Keys)-1], n.Keys[i]) >= 0 {
					result.OK = false
					result.Violations = append(result.Violations,
						fmt.Sprintf("child %d of node at offset %d: max key not < separator %v (I2)", i, offset, n.Keys[i]))
				}
				// Leaf separators are copies of their right child's own
				// minimum key (see splitChild), so equality there is
				// expected; only a strictly-internal child's minimum must
				// exceed the separator.
				minViolatesSeparator := false
				if i > 0 {
					minViolatesSeparator = t.cmp(child.Keys[0], n.Keys[i-1]) < 0
					if !child.IsLeaf() {
						minViolatesSeparator = t.cmp(child.Keys[0], n.Keys[i-1]) <= 0
					}
				}
				if minViolatesSeparator {
					result.OK = false
					result.Violations = append(result.Violations,
						fmt.Sprintf("child %d of node at offset %d: min key not >= separator %v (I2)", i, offset, n.Keys[i-1]))
				}
			}
			if child.ParentOffset != offset {
				result.OK = false
				result.Violations = append(result.Violations,
					fmt.Sprintf("child at offset %d: parent_offset %d does not match actual parent %d", childOff, child.ParentOffset, offset))
			}
			if err := walk(childOff, depth+1, false); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(int64(t.hdr.RootOffset), 0, true); err != nil {
		return result, err
	}

	if result.NodesSeen != t.hdr.NodeCount {
		result.OK = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("reachable node count %d does not match header node_count %d", result.NodesSeen, t.hdr.NodeCount))
	}

	return result, nil
}
