// Package integrate implements the CRDT integrator: it takes the
// change stream between a local base and local current tree and applies
// it onto a freshly pulled remote tree, producing a merged tree that
// contains the union of both sides' changes.
//
package integrate

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/wyrdstore/wyrd/internal/diffstream"
	"github.com/wyrdstore/wyrd/internal/fact"
	"github.com/wyrdstore/wyrd/internal/pst"
)

// Integrate computes the change stream between base and local, then
// applies that stream onto remote as a single batch commit, producing
// the merged revision.
//
// Conflict policy: when a diff op's key already holds a different record
// in remote, a retraction always wins over an assertion for the same
// fact. The literal rule only has retraction dominate
// when the two records' causes are in strict ancestor relation; this
// implementation keeps only a single-hop `cause` pointer per record (see
// internal/fact.Record), not a walkable ancestor index, so there is no
// cheap way to test strict ancestry at arbitrary depth. Having retraction
// win unconditionally is the conservative reading of that rule: it never
// resurrects a fact either side explicitly retracted. Ties between two
// records that agree on liveness (same Live flag, differing Prior) fall
// back to the tiebreak: smallest encoded-record bytes wins.
func Integrate(ctx context.Context, store *pst.Store, base, local, remote pst.Tree) (pst.Tree, error) {
	stream, err := diffstream.New(ctx, store, base.Root, local.Root)
	if err != nil {
		return pst.Tree{}, fmt.Errorf("integrate: diff base->local: %w", err)
	}
	changes, err := stream.Collect(ctx)
	if err != nil {
		return pst.Tree{}, fmt.Errorf("integrate: collect diff: %w", err)
	}

	ops := make([]pst.Op, 0, len(changes))
	for _, c := range changes {
		switch c.Kind {
		case diffstream.Add:
			ops = append(ops, pst.Op{Key: c.Entry.Key, Value: c.Entry.Value})
		case diffstream.Remove:
			ops = append(ops, pst.Op{Key: c.Entry.Key, Delete: true})
		}
	}
	ops = sortAndDedupeDiffOps(ops)

	resolved := make([]pst.Op, 0, len(ops))
	for _, op := range ops {
		if op.Delete {
			resolved = append(resolved, op)
			continue
		}
		existing, found, err := store.Get(ctx, remote, op.Key)
		if err != nil {
			return pst.Tree{}, fmt.Errorf("integrate: read remote key: %w", err)
		}
		if !found {
			resolved = append(resolved, op)
			continue
		}
		winner, err := resolveConflict(op.Value, existing)
		if err != nil {
			return pst.Tree{}, fmt.Errorf("integrate: resolve conflict: %w", err)
		}
		resolved = append(resolved, pst.Op{Key: op.Key, Value: winner})
	}

	merged, err := store.Commit(ctx, remote, resolved)
	if err != nil {
		return pst.Tree{}, fmt.Errorf("integrate: commit onto remote: %w", err)
	}
	return merged, nil
}

// State merges all three indexes of a composite revision in one call, the
// shape register.SyncDriver's pull path needs.
func State(ctx context.Context, store *pst.Store, base, local, remote fact.State) (fact.State, error) {
	eav, err := Integrate(ctx, store, base.EAV, local.EAV, remote.EAV)
	if err != nil {
		return fact.State{}, fmt.Errorf("integrate: eav: %w", err)
	}
	aev, err := Integrate(ctx, store, base.AEV, local.AEV, remote.AEV)
	if err != nil {
		return fact.State{}, fmt.Errorf("integrate: aev: %w", err)
	}
	vae, err := Integrate(ctx, store, base.VAE, local.VAE, remote.VAE)
	if err != nil {
		return fact.State{}, fmt.Errorf("integrate: vae: %w", err)
	}
	return fact.State{EAV: eav, AEV: aev, VAE: vae}, nil
}

func resolveConflict(incoming, existing []byte) ([]byte, error) {
	inRec, err := fact.DecodeRecord(incoming)
	if err != nil {
		return nil, fmt.Errorf("decode incoming record: %w", err)
	}
	exRec, err := fact.DecodeRecord(existing)
	if err != nil {
		return nil, fmt.Errorf("decode existing record: %w", err)
	}

	if inRec.Live != exRec.Live {
		if !inRec.Live {
			return incoming, nil
		}
		return existing, nil
	}

	if bytes.Compare(incoming, existing) <= 0 {
		return incoming, nil
	}
	return existing, nil
}

// sortAndDedupeDiffOps sorts by key and collapses repeated keys, keeping
// the last write. diffstream always emits Remove(before) immediately
// before Add(after) for a key whose value changed, so a stable sort
// preserves that order and the Add wins, matching "the new value
// replaces the old" rather than leaving a stray delete in the batch.
func sortAndDedupeDiffOps(ops []pst.Op) []pst.Op {
	sort.SliceStable(ops, func(i, j int) bool {
		return bytes.Compare(ops[i].Key, ops[j].Key) < 0
	})
	if len(ops) == 0 {
		return ops
	}
	out := ops[:1]
	for _, op := range ops[1:] {
		if bytes.Equal(op.Key, out[len(out)-1].Key) {
			out[len(out)-1] = op
		} else {
			out = append(out, op)
		}
	}
	return out
}
