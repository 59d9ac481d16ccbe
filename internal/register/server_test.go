package register

import (
	"context"
	"crypto/ed25519"
	"net/http/httptest"
	"testing"

	"github.com/wyrdstore/wyrd/internal/wyrderr"
)

func newTestServer(t *testing.T) (*httptest.Server, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	srv := NewServer(store, OpenAuthorizer{})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func TestHeadReturns404ForUnknownDID(t *testing.T) {
	ts, _ := newTestServer(t)
	client := NewClient(ts.URL, "")

	_, ok, err := client.Head(context.Background(), "did:key:nobody")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for an unknown DID")
	}
}

func TestPutThenHeadRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	client := NewClient(ts.URL, "")
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	did := "did:key:alice"
	env := Envelope{Cmd: CmdStateAssert, Iss: did, Sub: did, Args: map[string]interface{}{"revision": "ab"}}
	sig, err := Sign(priv, env)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := client.Put(context.Background(), did, "", env, sig); err != nil {
		t.Fatalf("put: %v", err)
	}

	rev, ok, err := client.Head(context.Background(), did)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if !ok || rev != "ab" {
		t.Fatalf("expected revision ab, got %q (ok=%v)", rev, ok)
	}
}

func TestPutWithStaleIfMatchFailsWithRevisionMismatch(t *testing.T) {
	ts, _ := newTestServer(t)
	client := NewClient(ts.URL, "")
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	did := "did:key:bob"
	first := Envelope{Cmd: CmdStateAssert, Iss: did, Sub: did, Args: map[string]interface{}{"revision": "r1"}}
	sig1, _ := Sign(priv, first)
	if _, err := client.Put(context.Background(), did, "", first, sig1); err != nil {
		t.Fatalf("first put: %v", err)
	}

	second := Envelope{Cmd: CmdStateAssert, Iss: did, Sub: did, Args: map[string]interface{}{"revision": "r2"}}
	sig2, _ := Sign(priv, second)
	_, err = client.Put(context.Background(), did, "", second, sig2)
	if !wyrderr.Is(err, wyrderr.RevisionMismatch) {
		t.Fatalf("expected RevisionMismatch, got %v", err)
	}
}
