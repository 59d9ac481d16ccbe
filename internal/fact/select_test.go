package fact

import (
	"context"
	"testing"

	"github.com/wyrdstore/wyrd/internal/scalar"
)

func TestSelectByAttributeUsesAEV(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	attr := scalar.NewAttribute("t", "color")
	other := scalar.NewAttribute("t", "size")
	a := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: scalar.NewEntityFromURI("urn:e:1"), Is: scalar.FromString("red")}}
	b := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: scalar.NewEntityFromURI("urn:e:2"), Is: scalar.FromString("blue")}}
	c := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: other, Of: scalar.NewEntityFromURI("urn:e:1"), Is: scalar.FromString("large")}}

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{a, b, c})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	facts, err := Select(ctx, ix.store, state, Pattern{The: &attr})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts for attribute %v, got %d: %+v", attr, len(facts), facts)
	}
}

func TestSelectByValueUsesVAE(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	attr := scalar.NewAttribute("t", "status")
	val := scalar.FromString("active")
	a := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: scalar.NewEntityFromURI("urn:e:1"), Is: val}}
	b := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: scalar.NewEntityFromURI("urn:e:2"), Is: scalar.FromString("inactive")}}

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{a, b})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	facts, err := Select(ctx, ix.store, state, Pattern{Is: &val})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 1 || facts[0].Of != a.Fact.Of {
		t.Fatalf("expected the single matching fact, got %+v", facts)
	}
}

func TestSelectWithNoConstraintsScansEverything(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	a := assertFact("n", "urn:e:1", scalar.FromString("x"))
	b := assertFact("n", "urn:e:2", scalar.FromString("y"))

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{a, b})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	facts, err := Select(ctx, ix.store, state, Pattern{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected both facts with an unconstrained pattern, got %d: %+v", len(facts), facts)
	}
}

func TestSelectByAttributeAndValueHonorsHint(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	attr := scalar.NewAttribute("t", "status")
	val := scalar.FromString("active")
	a := scalar.Instruction{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: scalar.NewEntityFromURI("urn:e:1"), Is: val}}

	state, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	state, _, err = ix.Commit(ctx, state, []scalar.Instruction{a})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	viaAEV, err := Select(ctx, ix.store, state, Pattern{The: &attr, Is: &val, Hint: AEV})
	if err != nil {
		t.Fatalf("select via aev: %v", err)
	}
	viaVAE, err := Select(ctx, ix.store, state, Pattern{The: &attr, Is: &val, Hint: VAE})
	if err != nil {
		t.Fatalf("select via vae: %v", err)
	}
	if len(viaAEV) != 1 || len(viaVAE) != 1 {
		t.Fatalf("expected exactly one match from either index: aev=%d vae=%d", len(viaAEV), len(viaVAE))
	}
}
