package pst

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/wyrdstore/wyrd/internal/codec"
)

// Commit applies a sorted batch of operations and returns the new root,
// without mutating any existing node.
//
// This reference implementation takes the insertion algorithm's six steps
// (walk to a minimal leaf cover, merge, re-split at the boundary rule,
// propagate upward) and specializes them to rebuild the affected tree from
// its full, current entry set rather than patching only the touched
// leaves: Scan gathers the tree's existing entries, the batch is merged in,
// and buildFromEntries re-derives segments and branches purely from the
// boundary rule over that merged set. The boundary rule is a pure function
// of each entry's own key (or each child's own digest) with no dependence
// on neighboring entries, so this produces byte-identical results to a
// minimal-cover patch — the same node content yields the same digest
// either way — at the cost of not reusing unaffected subtrees' bytes
// on the wire. That trade keeps the implementation's correctness easy to
// see and test; it is recorded as a deliberate simplification, not an
// oversight, in the project's design notes.
func (s *Store) Commit(ctx context.Context, tree Tree, ops []Op) (Tree, error) {
	if err := validateSorted(ops); err != nil {
		return Tree{}, err
	}

	cur, err := s.Scan(ctx, tree, nil, nil)
	if err != nil {
		return Tree{}, err
	}
	existing, err := cur.Collect(ctx)
	if err != nil {
		return Tree{}, err
	}

	merged := mergeEntries(existing, ops)
	return s.buildFromEntries(ctx, merged)
}

func validateSorted(ops []Op) error {
	for i := 1; i < len(ops); i++ {
		c := bytes.Compare(ops[i-1].Key, ops[i].Key)
		if c == 0 {
			return fmt.Errorf("pst: out-of-order batch: duplicate key %x", ops[i].Key)
		}
		if c > 0 {
			return fmt.Errorf("pst: out-of-order batch: key %x precedes %x", ops[i].Key, ops[i-1].Key)
		}
	}
	return nil
}

// mergeEntries folds a sorted op batch into a sorted entry slice, applying
// inserts/updates/deletes, and returns the new sorted entry slice.
func mergeEntries(existing []codec.Entry, ops []Op) []codec.Entry {
	out := make([]codec.Entry, 0, len(existing)+len(ops))
	i, j := 0, 0
	for i < len(existing) || j < len(ops) {
		switch {
		case j >= len(ops):
			out = append(out, existing[i])
			i++
		case i >= len(existing):
			if !ops[j].Delete {
				out = append(out, codec.Entry{Key: ops[j].Key, Value: ops[j].Value})
			}
			j++
		default:
			c := bytes.Compare(existing[i].Key, ops[j].Key)
			switch {
			case c < 0:
				out = append(out, existing[i])
				i++
			case c > 0:
				if !ops[j].Delete {
					out = append(out, codec.Entry{Key: ops[j].Key, Value: ops[j].Value})
				}
				j++
			default: // equal keys: op overwrites or deletes the existing entry
				if !ops[j].Delete {
					out = append(out, codec.Entry{Key: ops[j].Key, Value: ops[j].Value})
				}
				i++
				j++
			}
		}
	}
	return out
}

// splitSegmentEntries groups a sorted entry slice into one or more segment
// groups, cutting after every entry whose key passes the boundary test.
// An empty input yields zero groups.
func splitSegmentEntries(entries []codec.Entry) [][]codec.Entry {
	var groups [][]codec.Entry
	var cur []codec.Entry
	for _, e := range entries {
		cur = append(cur, e)
		if boundaryKey(e.Key) {
			groups = append(groups, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// splitBranchRefs groups a sorted ref slice into one or more branch
// groups, cutting after every ref whose child digest passes the boundary
// test.
func splitBranchRefs(refs []codec.Ref) [][]codec.Ref {
	var groups [][]codec.Ref
	var cur []codec.Ref
	for _, r := range refs {
		cur = append(cur, r)
		if boundaryDigest(r.Digest) {
			groups = append(groups, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

type built struct {
	node   *codec.Node
	digest [32]byte
}

// buildFromEntries deterministically constructs a tree from a flat sorted
// entry slice, growing levels until a single root remains (or collapsing
// straight to the genesis tree if the slice is empty).
func (s *Store) buildFromEntries(ctx context.Context, entries []codec.Entry) (Tree, error) {
	segGroups := splitSegmentEntries(entries)
	if len(segGroups) == 0 {
		return s.Genesis(ctx)
	}

	level := uint32(0)
	nodes := make([]built, 0, len(segGroups))
	for _, g := range segGroups {
		n := &codec.Node{Level: level, Kind: codec.KindSegment, Entries: g}
		d, err := s.putNode(ctx, n)
		if err != nil {
			return Tree{}, err
		}
		nodes = append(nodes, built{node: n, digest: d})
	}

	for len(nodes) > 1 {
		level++
		refs := make([]codec.Ref, len(nodes))
		for i, b := range nodes {
			refs[i] = codec.Ref{Upper: b.node.UpperBound(), Digest: b.digest}
		}
		refGroups := splitBranchRefs(refs)
		next := make([]built, 0, len(refGroups))
		for _, g := range refGroups {
			n := &codec.Node{Level: level, Kind: codec.KindBranch, Refs: g}
			d, err := s.putNode(ctx, n)
			if err != nil {
				return Tree{}, err
			}
			next = append(next, built{node: n, digest: d})
		}
		nodes = next
	}

	return Tree{Root: nodes[0].digest, Level: level}, nil
}

// sortOps is a convenience for callers assembling an unsorted Op
// batch before calling Commit (the commit pipeline in internal/fact
// produces pre-sorted batches; tests may not).
func sortOps(ops []Op) {
	sort.Slice(ops, func(i, j int) bool { return bytes.Compare(ops[i].Key, ops[j].Key) < 0 })
}
