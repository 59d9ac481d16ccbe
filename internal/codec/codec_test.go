package codec

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeSegmentRoundTrip(t *testing.T) {
	n := &Node{
		Level: 0,
		Kind:  KindSegment,
		Entries: []Entry{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("b"), Value: []byte("2")},
		},
	}

	wire, _, err := n.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Level != n.Level || got.Kind != n.Kind {
		t.Fatalf("level/kind mismatch: got %+v", got)
	}
	if len(got.Entries) != len(n.Entries) {
		t.Fatalf("entry count mismatch: got %d want %d", len(got.Entries), len(n.Entries))
	}
	for i := range n.Entries {
		if !bytes.Equal(got.Entries[i].Key, n.Entries[i].Key) || !bytes.Equal(got.Entries[i].Value, n.Entries[i].Value) {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got.Entries[i], n.Entries[i])
		}
	}
	if !bytes.Equal(got.UpperBound(), []byte("b")) {
		t.Fatalf("expected upper bound %q, got %q", "b", got.UpperBound())
	}
}

func TestEncodeDecodeBranchRoundTrip(t *testing.T) {
	n := &Node{
		Level: 3,
		Kind:  KindBranch,
		Refs: []Ref{
			{Upper: []byte("m"), Digest: [32]byte{1, 2, 3}},
			{Upper: []byte("z"), Digest: [32]byte{4, 5, 6}},
		},
	}

	wire, _, err := n.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(got.Refs))
	}
	if got.Refs[0].Digest != n.Refs[0].Digest {
		t.Fatalf("digest mismatch on ref 0")
	}
	if !bytes.Equal(got.UpperBound(), []byte("z")) {
		t.Fatalf("expected upper bound %q, got %q", "z", got.UpperBound())
	}
}

func TestDigestStableAcrossEncodeCycles(t *testing.T) {
	n := &Node{Level: 0, Kind: KindSegment, Entries: []Entry{{Key: []byte("x"), Value: []byte("y")}}}
	_, d1, err := n.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, d2, err := n.Encode()
	if err != nil {
		t.Fatalf("Encode (again): %v", err)
	}

	if d1 != d2 {
		t.Fatalf("expected digest to be stable across repeated encodes of the same node")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not brotli")); err == nil {
		t.Fatalf("expected an error decoding non-brotli input")
	}
}
