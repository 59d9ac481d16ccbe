package pst

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/wyrdstore/wyrd/internal/archive"
)

func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	arc := archive.NewMemoryArchive()
	return NewStore(arc, 128), context.Background()
}

func TestGenesisTreeIsEmpty(t *testing.T) {
	s, ctx := newTestStore(t)
	tree, err := s.Genesis(ctx)
	if err != nil {
		t.Fatalf("Genesis: %v", err)
	}
	if tree.Level != 0 {
		t.Fatalf("expected genesis level 0, got %d", tree.Level)
	}

	_, ok, err := s.Get(ctx, tree, []byte("anything"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected Get on empty tree to miss")
	}
}

func TestCommitInsertThenGet(t *testing.T) {
	s, ctx := newTestStore(t)
	tree, _ := s.Genesis(ctx)

	ops := []Op{{Key: []byte("alpha"), Value: []byte("1")}}
	tree, err := s.Commit(ctx, tree, ops)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	val, ok, err := s.Get(ctx, tree, []byte("alpha"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(val) != "1" {
		t.Fatalf("expected alpha=1, got ok=%v val=%q", ok, val)
	}
}

func TestInsertManyThenScanIsSorted(t *testing.T) {
	s, ctx := newTestStore(t)
	tree, _ := s.Genesis(ctx)

	keys := []string{"delta", "alpha", "charlie", "bravo", "echo"}
	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, Op{Key: []byte(k), Value: []byte(k)})
	}
	sortOps(ops)

	tree, err := s.Commit(ctx, tree, ops)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cur, err := s.Scan(ctx, tree, nil, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	entries, err := cur.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(entries) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if bytes.Compare(entries[i-1].Key, entries[i].Key) >= 0 {
			t.Fatalf("entries not strictly sorted at index %d: %q >= %q", i, entries[i-1].Key, entries[i].Key)
		}
	}
}

func TestDeterministicRootRegardlessOfInsertionOrder(t *testing.T) {
	keys := []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

	buildInOrder := func(order []string) [32]byte {
		s, ctx := newTestStore(t)
		tree, _ := s.Genesis(ctx)
		for _, k := range order {
			tree2, err := s.Commit(ctx, tree, []Op{{Key: []byte(k), Value: []byte(k)}})
			if err != nil {
				t.Fatalf("Commit: %v", err)
			}
			tree = tree2
		}
		return tree.Root
	}

	forward := append([]string(nil), keys...)
	reversed := make([]string, len(keys))
	for i, k := range keys {
		reversed[len(keys)-1-i] = k
	}

	r1 := buildInOrder(forward)
	r2 := buildInOrder(reversed)
	if r1 != r2 {
		t.Fatalf("expected insertion-order independence: %x != %x", r1, r2)
	}
}

func TestInsertThenRemoveRestoresPriorRoot(t *testing.T) {
	s, ctx := newTestStore(t)
	tree, _ := s.Genesis(ctx)

	tree, err := s.Commit(ctx, tree, []Op{{Key: []byte("k1"), Value: []byte("v1")}})
	if err != nil {
		t.Fatalf("Commit insert base: %v", err)
	}
	priorRoot := tree.Root
	priorLevel := tree.Level

	tree2, err := s.Commit(ctx, tree, []Op{{Key: []byte("k2"), Value: []byte("v2")}})
	if err != nil {
		t.Fatalf("Commit insert k2: %v", err)
	}

	tree3, err := s.Commit(ctx, tree2, []Op{{Key: []byte("k2"), Delete: true}})
	if err != nil {
		t.Fatalf("Commit delete k2: %v", err)
	}

	if tree3.Root != priorRoot || tree3.Level != priorLevel {
		t.Fatalf("expected root to return to %x (level %d), got %x (level %d)", priorRoot, priorLevel, tree3.Root, tree3.Level)
	}
}

func TestManyEntriesSplitAndShrinkBackToSingleSegment(t *testing.T) {
	s, ctx := newTestStore(t)
	tree, _ := s.Genesis(ctx)

	// Enough entries that at least one is virtually certain to cross the
	// boundary threshold (B=32, ~1/32 chance per key), forcing the tree
	// to grow a branch level; removing them all must shrink it back to
	// the genesis segment.
	var ops []Op
	for i := 0; i < 200; i++ {
		k := []byte(fmt.Sprintf("key-%04d", i))
		ops = append(ops, Op{Key: k, Value: k})
	}
	sortOps(ops)

	tree, err := s.Commit(ctx, tree, ops)
	if err != nil {
		t.Fatalf("Commit insert batch: %v", err)
	}
	if tree.Level == 0 {
		t.Fatalf("expected tree to have grown beyond a single segment with 200 entries")
	}

	var delOps []Op
	for _, op := range ops {
		delOps = append(delOps, Op{Key: op.Key, Delete: true})
	}
	sortOps(delOps)

	tree, err = s.Commit(ctx, tree, delOps)
	if err != nil {
		t.Fatalf("Commit delete batch: %v", err)
	}
	if tree.Root != GenesisDigest() || tree.Level != 0 {
		t.Fatalf("expected tree to shrink back to genesis, got root=%x level=%d", tree.Root, tree.Level)
	}
}

func TestCommitRejectsOutOfOrderBatch(t *testing.T) {
	s, ctx := newTestStore(t)
	tree, _ := s.Genesis(ctx)

	ops := []Op{
		{Key: []byte("b"), Value: []byte("1")},
		{Key: []byte("a"), Value: []byte("2")},
	}
	if _, err := s.Commit(ctx, tree, ops); err == nil {
		t.Fatalf("expected out-of-order batch to be rejected")
	}
}

func TestCommitRejectsDuplicateKeyInBatch(t *testing.T) {
	s, ctx := newTestStore(t)
	tree, _ := s.Genesis(ctx)

	ops := []Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("a"), Value: []byte("2")},
	}
	if _, err := s.Commit(ctx, tree, ops); err == nil {
		t.Fatalf("expected duplicate key in batch to be rejected")
	}
}

func TestMissingBlockErrorOnDescent(t *testing.T) {
	s, ctx := newTestStore(t)
	tree := Tree{Root: [32]byte{0xff}, Level: 0}
	if _, _, err := s.Get(ctx, tree, []byte("k")); err == nil {
		t.Fatalf("expected missing block error for an unknown root digest")
	}
}
