package integrate

import (
	"context"
	"testing"

	"github.com/wyrdstore/wyrd/internal/archive"
	"github.com/wyrdstore/wyrd/internal/fact"
	"github.com/wyrdstore/wyrd/internal/pst"
	"github.com/wyrdstore/wyrd/internal/scalar"
)

func TestIntegrateMergesDisjointEntityAssertions(t *testing.T) {
	ctx := context.Background()
	store := pst.NewStore(archive.NewMemoryArchive(), 128)
	ix := fact.NewIndexer(store, fact.NewSchema())

	base, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	attr := scalar.NewAttribute("p", "n")
	e1 := scalar.NewEntityFromURI("urn:e:1")
	e2 := scalar.NewEntityFromURI("urn:e:2")

	localA, _, err := ix.Commit(ctx, base, []scalar.Instruction{
		{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: e1, Is: scalar.FromString("Alice")}},
	})
	if err != nil {
		t.Fatalf("commit A: %v", err)
	}

	remoteB, _, err := ix.Commit(ctx, base, []scalar.Instruction{
		{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: e2, Is: scalar.FromString("Bob")}},
	})
	if err != nil {
		t.Fatalf("commit B: %v", err)
	}

	merged, err := State(ctx, store, base, localA, remoteB)
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}

	facts, err := fact.Select(ctx, store, merged, fact.Pattern{The: &attr})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected both replicas' facts to survive the merge, got %d: %+v", len(facts), facts)
	}
}

func TestIntegrateIsIdempotentWhenLocalEqualsBase(t *testing.T) {
	ctx := context.Background()
	store := pst.NewStore(archive.NewMemoryArchive(), 128)
	ix := fact.NewIndexer(store, fact.NewSchema())

	base, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	attr := scalar.NewAttribute("p", "n")
	e1 := scalar.NewEntityFromURI("urn:e:1")
	remote, _, err := ix.Commit(ctx, base, []scalar.Instruction{
		{Kind: scalar.Assert, Fact: scalar.Fact{The: attr, Of: e1, Is: scalar.FromString("Alice")}},
	})
	if err != nil {
		t.Fatalf("commit remote: %v", err)
	}

	merged, err := State(ctx, store, base, base, remote)
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if merged.EAV.Root != remote.EAV.Root {
		t.Fatalf("integrating an empty local diff onto remote must reproduce remote exactly")
	}
}

func TestRetractionDominatesConflictingAssertion(t *testing.T) {
	ctx := context.Background()
	store := pst.NewStore(archive.NewMemoryArchive(), 128)
	ix := fact.NewIndexer(store, fact.NewSchema())

	base, _, err := ix.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	attr := scalar.NewAttribute("p", "n")
	e1 := scalar.NewEntityFromURI("urn:e:1")
	f := scalar.Fact{The: attr, Of: e1, Is: scalar.FromString("Alice")}

	base, _, err = ix.Commit(ctx, base, []scalar.Instruction{{Kind: scalar.Assert, Fact: f}})
	if err != nil {
		t.Fatalf("seed assert: %v", err)
	}

	// local retracts the fact; remote still independently asserts it
	// live (simulating a replica that never saw the retraction).
	local, _, err := ix.Commit(ctx, base, []scalar.Instruction{{Kind: scalar.Retract, Fact: f}})
	if err != nil {
		t.Fatalf("commit retract: %v", err)
	}
	remote := base

	merged, err := State(ctx, store, base, local, remote)
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}

	facts, err := fact.Select(ctx, store, merged, fact.Pattern{Of: &e1, The: &attr})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected the retraction to dominate, got live facts %+v", facts)
	}
}
