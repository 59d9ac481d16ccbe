package fact

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/wyrdstore/wyrd/internal/pst"
	"github.com/wyrdstore/wyrd/internal/scalar"
)

// State is the three index roots a commit advances together.
type State struct {
	EAV pst.Tree
	AEV pst.Tree
	VAE pst.Tree
}

// Indexer runs the commit pipeline described in: normalize
// a transaction, resolve cardinality-one supersession, build one sorted
// batch per index ordering, and commit all three atomically.
type Indexer struct {
	store  *pst.Store
	schema *Schema
}

func NewIndexer(store *pst.Store, schema *Schema) *Indexer {
	return &Indexer{store: store, schema: schema}
}

// Genesis materializes three empty indexes and returns the initial state
// and its revision.
func (ix *Indexer) Genesis(ctx context.Context) (State, Revision, error) {
	eav, err := ix.store.Genesis(ctx)
	if err != nil {
		return State{}, Revision{}, fmt.Errorf("fact: genesis eav: %w", err)
	}
	aev, err := ix.store.Genesis(ctx)
	if err != nil {
		return State{}, Revision{}, fmt.Errorf("fact: genesis aev: %w", err)
	}
	vae, err := ix.store.Genesis(ctx)
	if err != nil {
		return State{}, Revision{}, fmt.Errorf("fact: genesis vae: %w", err)
	}
	state := State{EAV: eav, AEV: aev, VAE: vae}
	return state, Revision{EAV: eav.Root, AEV: aev.Root, VAE: vae.Root}, nil
}

type attrEntity struct {
	the scalar.Attribute
	of  scalar.Entity
}

// Commit applies a transaction to state, returning the new state and its
// revision. Cardinality-one attributes synthesize an implicit retraction
// of any prior live value for the same (the, of) pair before the new
// assertion lands, first against facts already asserted earlier in this
// same transaction, then against the committed state. The never-auto-
// retract rule for cardinality-many is recorded in the project's design
// notes.
func (ix *Indexer) Commit(ctx context.Context, state State, txn []scalar.Instruction) (State, Revision, error) {
	pending := make(map[attrEntity]scalar.Fact)
	effective := make([]scalar.Instruction, 0, len(txn)+len(txn)/2)

	for _, in := range txn {
		f := in.Fact
		if in.Kind == scalar.Assert && ix.schema.CardinalityOf(f.The) == scalar.CardinalityOne {
			key := attrEntity{the: f.The, of: f.Of}
			prior, hasPrior := pending[key]
			if !hasPrior {
				p, err := ix.lookupLive(ctx, state, f.The, f.Of)
				if err != nil {
					return State{}, Revision{}, err
				}
				if p != nil {
					prior, hasPrior = *p, true
				}
			}
			if hasPrior && prior.ContentHash() != f.ContentHash() {
				effective = append(effective, scalar.Instruction{Kind: scalar.Retract, Fact: prior})
			}
			pending[key] = f
		}
		effective = append(effective, in)
	}

	scalar.SortInstructions(effective)

	eavOps := make([]pst.Op, 0, len(effective))
	aevOps := make([]pst.Op, 0, len(effective))
	vaeOps := make([]pst.Op, 0, len(effective))

	for _, in := range effective {
		rec := Record{Live: in.Kind == scalar.Assert, Self: in.Fact.ContentHash(), Prior: in.Fact.Cause}
		val := EncodeRecord(rec)
		eavOps = append(eavOps, pst.Op{Key: EAVKey(in.Fact), Value: val})
		aevOps = append(aevOps, pst.Op{Key: AEVKey(in.Fact), Value: val})
		vaeOps = append(vaeOps, pst.Op{Key: VAEKey(in.Fact), Value: val})
	}

	eavOps = sortAndDedupeOps(eavOps)
	aevOps = sortAndDedupeOps(aevOps)
	vaeOps = sortAndDedupeOps(vaeOps)

	newEAV, err := ix.store.Commit(ctx, state.EAV, eavOps)
	if err != nil {
		return State{}, Revision{}, fmt.Errorf("fact: commit eav: %w", err)
	}
	newAEV, err := ix.store.Commit(ctx, state.AEV, aevOps)
	if err != nil {
		return State{}, Revision{}, fmt.Errorf("fact: commit aev: %w", err)
	}
	newVAE, err := ix.store.Commit(ctx, state.VAE, vaeOps)
	if err != nil {
		return State{}, Revision{}, fmt.Errorf("fact: commit vae: %w", err)
	}

	newState := State{EAV: newEAV, AEV: newAEV, VAE: newVAE}
	return newState, Revision{EAV: newEAV.Root, AEV: newAEV.Root, VAE: newVAE.Root}, nil
}

// lookupLive finds the current live fact for (the, of) in the committed
// EAV index, or nil if there is none. Cardinality-one is only ever
// expected to have at most one live value at a time, but the scan walks
// every entry under the prefix defensively.
func (ix *Indexer) lookupLive(ctx context.Context, state State, the scalar.Attribute, of scalar.Entity) (*scalar.Fact, error) {
	prefix := EAVPrefix(of, the)
	hi := prefixUpperBound(prefix)
	cur, err := ix.store.Scan(ctx, state.EAV, prefix, hi)
	if err != nil {
		return nil, fmt.Errorf("fact: scan eav prefix: %w", err)
	}
	entries, err := cur.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("fact: collect eav prefix: %w", err)
	}
	for _, e := range entries {
		rec, err := DecodeRecord(e.Value)
		if err != nil {
			return nil, fmt.Errorf("fact: decode record: %w", err)
		}
		if !rec.Live {
			continue
		}
		decOf, decThe, decIs, err := DecodeEAVKey(e.Key)
		if err != nil {
			return nil, fmt.Errorf("fact: decode eav key: %w", err)
		}
		f := scalar.Fact{The: decThe, Of: decOf, Is: decIs}
		return &f, nil
	}
	return nil, nil
}

// sortAndDedupeOps sorts a batch into index-key order and collapses
// repeated keys, keeping the last write: SortInstructions already placed
// assert before retract for the same content hash, and since the/of/is
// determine both a fact's content hash and its key in every index, a
// stable sort by key preserves that ordering so the retraction wins.
func sortAndDedupeOps(ops []pst.Op) []pst.Op {
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
