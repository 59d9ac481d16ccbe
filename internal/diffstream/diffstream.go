// Package diffstream implements the differential engine: a lazy
// stream of changes between two PST roots, computed by the sparse-tree
// prune/expand/stream algorithm
//
// Identical subtrees are pruned before descending. New runs the
// prune/expand phase eagerly, down to the leaf segments of both sides;
// Stream.Next then walks the surviving entries lazily, one change per
// call.
package diffstream

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wyrdstore/wyrd/internal/codec"
	"github.com/wyrdstore/wyrd/internal/pst"
	"github.com/wyrdstore/wyrd/internal/wyrderr"
)

// ChangeKind discriminates the two emission forms the stream loop
// produces.
type ChangeKind uint8

const (
	Add ChangeKind = iota
	Remove
)

func (k ChangeKind) String() string {
	if k == Add {
		return "add"
	}
	return "remove"
}

// Change is one emitted difference: an entry present only on one side, or
// an entry whose value changed between sides (emitted as Remove-then-Add).
type Change struct {
	Kind  ChangeKind
	Entry codec.Entry
}

type nodeRef struct {
	digest [32]byte
	node   *codec.Node
}

// Stream walks the entries surviving the prune/expand phase in key order,
// emitting Add/Remove changes ("Stream" step). Next
// honors cancellation at every call.
type Stream struct {
	before  []codec.Entry
	after   []codec.Entry
	bi, ai  int
	pending []Change
	done    bool
}

// New runs the prune/expand phase for (before, after) and returns a
// Stream ready to walk the surviving leaf entries. Subtrees shared by
// both roots are pruned by digest equality before either side is ever
// expanded, so no block reachable only through a matching digest is
// ever loaded.
func New(ctx context.Context, store *pst.Store, before, after [32]byte) (*Stream, error) {
	beforeNode, err := store.Node(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("diffstream: load before root: %w", err)
	}
	afterNode, err := store.Node(ctx, after)
	if err != nil {
		return nil, fmt.Errorf("diffstream: load after root: %w", err)
	}

	beforeFront := []nodeRef{{digest: before, node: beforeNode}}
	afterFront := []nodeRef{{digest: after, node: afterNode}}

	for {
		select {
		case <-ctx.Done():
			return nil, wyrderr.New(wyrderr.Cancelled, "diff prune/expand cancelled", ctx.Err())
		default:
		}

		beforeFront, afterFront = prune(beforeFront, afterFront)

		if allSegments(beforeFront) && allSegments(afterFront) {
			break
		}

		var err error
		beforeFront, err = expand(ctx, store, beforeFront)
		if err != nil {
			return nil, fmt.Errorf("diffstream: expand before: %w", err)
		}
		afterFront, err = expand(ctx, store, afterFront)
		if err != nil {
			return nil, fmt.Errorf("diffstream: expand after: %w", err)
		}
	}

	// A final prune after the last expansion catches subtrees that only
	// became identical once both sides reached the same level.
	beforeFront, afterFront = prune(beforeFront, afterFront)

	return &Stream{
		before: collectEntries(beforeFront),
		after:  collectEntries(afterFront),
	}, nil
}

// prune removes, from both frontiers, every pair of nodes sharing a
// digest: identical subtrees need no further comparison. Matching is by
// multiset of digests, not positional index, since content addressing
// means the same digest anywhere denotes the same subtree.
func prune(before, after []nodeRef) ([]nodeRef, []nodeRef) {
	beforeIdx := make(map[[32]byte][]int, len(before))
	for i, n := range before {
		beforeIdx[n.digest] = append(beforeIdx[n.digest], i)
	}
	afterIdx := make(map[[32]byte][]int, len(after))
	for i, n := range after {
		afterIdx[n.digest] = append(afterIdx[n.digest], i)
	}

	dropBefore := make(map[int]bool)
	dropAfter := make(map[int]bool)
	for digest, bIdxs := range beforeIdx {
		aIdxs, ok := afterIdx[digest]
		if !ok {
			continue
		}
		n := len(bIdxs)
		if len(aIdxs) < n {
			n = len(aIdxs)
		}
		for k := 0; k < n; k++ {
			dropBefore[bIdxs[k]] = true
			dropAfter[aIdxs[k]] = true
		}
	}

	outBefore := make([]nodeRef, 0, len(before))
	for i, n := range before {
		if !dropBefore[i] {
			outBefore = append(outBefore, n)
		}
	}
	outAfter := make([]nodeRef, 0, len(after))
	for i, n := range after {
		if !dropAfter[i] {
			outAfter = append(outAfter, n)
		}
	}
	return outBefore, outAfter
}

func allSegments(nodes []nodeRef) bool {
	for _, n := range nodes {
		if n.node.Kind != codec.KindSegment {
			return false
		}
	}
	return true
}

// expand replaces every branch node with its children, in order, leaving
// segment nodes untouched.
func expand(ctx context.Context, store *pst.Store, in []nodeRef) ([]nodeRef, error) {
	out := make([]nodeRef, 0, len(in))
	for _, nr := range in {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if nr.node.Kind == codec.KindSegment {
			out = append(out, nr)
			continue
		}
		for _, ref := range nr.node.Refs {
			child, err := store.Node(ctx, ref.Digest)
			if err != nil {
				return nil, err
			}
			out = append(out, nodeRef{digest: ref.Digest, node: child})
		}
	}
	return out, nil
}

// collectEntries flattens a frontier of segment nodes into its entries.
// Frontier order is preserved by prune and expand, and each segment's own
// entries are internally sorted with non-overlapping key ranges across
// segments, so the result is globally sorted.
func collectEntries(nodes []nodeRef) []codec.Entry {
	var out []codec.Entry
	for _, n := range nodes {
		out = append(out, n.node.Entries...)
	}
	return out
}

// Next returns the next change in key order, or ok=false once both sides
// are exhausted.
func (s *Stream) Next(ctx context.Context) (Change, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return Change{}, false, wyrderr.New(wyrderr.Cancelled, "diff stream cancelled", ctx.Err())
		default:
		}

		if len(s.pending) > 0 {
			c := s.pending[0]
			s.pending = s.pending[1:]
			return c, true, nil
		}
		if s.done {
			return Change{}, false, nil
		}

		switch {
		case s.bi >= len(s.before) && s.ai >= len(s.after):
			s.done = true
		case s.bi >= len(s.before):
			s.pending = append(s.pending, Change{Kind: Add, Entry: s.after[s.ai]})
			s.ai++
		case s.ai >= len(s.after):
			s.pending = append(s.pending, Change{Kind: Remove, Entry: s.before[s.bi]})
			s.bi++
		default:
			c := bytes.Compare(s.before[s.bi].Key, s.after[s.ai].Key)
			switch {
			case c < 0:
				s.pending = append(s.pending, Change{Kind: Remove, Entry: s.before[s.bi]})
				s.bi++
			case c > 0:
				s.pending = append(s.pending, Change{Kind: Add, Entry: s.after[s.ai]})
				s.ai++
			default:
				if !bytes.Equal(s.before[s.bi].Value, s.after[s.ai].Value) {
					s.pending = append(s.pending, Change{Kind: Remove, Entry: s.before[s.bi]})
					s.pending = append(s.pending, Change{Kind: Add, Entry: s.after[s.ai]})
				}
				s.bi++
				s.ai++
			}
		}
	}
}

// Collect drains the stream into a slice; meant for tests and small diffs.
func (s *Stream) Collect(ctx context.Context) ([]Change, error) {
	var out []Change
	for {
		c, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, c)
	}
}
