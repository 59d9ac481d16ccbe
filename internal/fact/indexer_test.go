package fact

import (
	"context"
	"testing"

	"github.com/wyrdstore/wyrd/internal/archive"
	"github.com/wyrdstore/wyrd/internal/pst"
	"github.com/wyrdstore/wyrd/internal/scalar"
)

func newTestIndexer(t *testing.T) (*Indexer, *Schema) {
	t.Helper()
	arc := archive.NewMemoryArchive()
	store := pst.NewStore(arc, 128)
	schema := NewSchema()
	return NewIndexer(store, schema), schema
}

func assertFact(the, of string, is scalar.Scalar) scalar.Instruction {
	return scalar.Instruction{
		Kind: scalar.Assert,
		Fact: scalar.Fact{
			The: scalar.NewAttribute("t", the),
			Of:  scalar.NewEntityFromURI(of),
			Is:  is,
		},
	}
}

func TestGenesisProducesEmptyIndexesWithMatchingRevision(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	state, rev, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if rev.EAV != state.EAV.Root || rev.AEV != state.AEV.Root || rev.VAE != state.VAE.Root {
		t.Fatalf("revision does not mirror genesis roots")
	}
	if rev == GenesisRevision() {
		t.Fatalf("materialized genesis revision must differ from the all-zero sentinel")
	}
}

func TestCommitAssertThenSelectByOf(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	in := assertFact("name", "urn:e:1", scalar.FromString("Ada"))
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{in})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	of := in.Fact.Of
	facts, err := Select(ctx, ix.store, state, Pattern{Of: &of})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 1 || !scalarEqual(facts[0].Is, in.Fact.Is) {
		t.Fatalf("expected one fact matching %v, got %+v", in.Fact, facts)
	}
}

func TestRetractRemovesFactFromSelection(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	in := assertFact("name", "urn:e:1", scalar.FromString("Ada"))
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{in})
	if err != nil {
		t.Fatalf("commit assert: %v", err)
	}

	retract := scalar.Instruction{Kind: scalar.Retract, Fact: in.Fact}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{retract})
	if err != nil {
		t.Fatalf("commit retract: %v", err)
	}

	of := in.Fact.Of
	facts, err := Select(ctx, ix.store, state, Pattern{Of: &of})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected no live facts after retraction, got %+v", facts)
	}
}

func TestCardinalityOneSupersedesPriorValueAcrossCommits(t *testing.T) {
	ix, schema := newTestIndexer(t)
	ctx := context.Background()

	attr := scalar.NewAttribute("t", "email")
	schema.Declare(attr, scalar.CardinalityOne)

	of := scalar.NewEntityFromURI("urn:e:1")
	first := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: of, Is: scalar.FromString("a@example.com")}}
	second := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: of, Is: scalar.FromString("b@example.com")}}

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{first})
	if err != nil {
		t.Fatalf("commit first: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{second})
	if err != nil {
		t.Fatalf("commit second: %v", err)
	}

	facts, err := Select(ctx, ix.store, state, Pattern{Of: &of, The: &attr})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected exactly one live value for cardinality-one attribute, got %d: %+v", len(facts), facts)
	}
	if !scalarEqual(facts[0].Is, second.Fact.Is) {
		t.Fatalf("expected the newest value to win, got %+v", facts[0].Is)
	}
}

func TestCardinalityOneSupersedesWithinSingleCommit(t *testing.T) {
	ix, schema := newTestIndexer(t)
	ctx := context.Background()

	attr := scalar.NewAttribute("t", "email")
	schema.Declare(attr, scalar.CardinalityOne)
	of := scalar.NewEntityFromURI("urn:e:1")

	first := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: of, Is: scalar.FromString("a@example.com")}}
	second := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: of, Is: scalar.FromString("b@example.com")}}

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{first, second})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	facts, err := Select(ctx, ix.store, state, Pattern{Of: &of, The: &attr})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 1 || !scalarEqual(facts[0].Is, second.Fact.Is) {
		t.Fatalf("expected single superseding value, got %+v", facts)
	}
}

func TestCardinalityManyNeverAutoRetracts(t *testing.T) {
	ix, schema := newTestIndexer(t)
	ctx := context.Background()

	attr := scalar.NewAttribute("t", "tag")
	schema.Declare(attr, scalar.CardinalityMany)
	of := scalar.NewEntityFromURI("urn:e:1")

	first := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: of, Is: scalar.FromString("x")}}
	second := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: of, Is: scalar.FromString("y")}}

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{first})
	if err != nil {
		t.Fatalf("commit first: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{second})
	if err != nil {
		t.Fatalf("commit second: %v", err)
	}

	facts, err := Select(ctx, ix.store, state, Pattern{Of: &of, The: &attr})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected both cardinality-many values to remain live, got %d: %+v", len(facts), facts)
	}
}
