package register

import (
	"crypto/ed25519"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	env := Envelope{
		Cmd:  CmdStateAssert,
		Iss:  "did:key:abc",
		Sub:  "did:key:abc",
		Args: map[string]interface{}{"revision": "deadbeef"},
	}
	sig, err := Sign(priv, env)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !Verify(pub, env, sig) {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedEnvelope(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	env := Envelope{Cmd: CmdStateAssert, Iss: "did:key:abc", Sub: "did:key:abc", Args: map[string]interface{}{"revision": "a"}}
	sig, err := Sign(priv, env)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tampered := env
	tampered.Args = map[string]interface{}{"revision": "b"}
	if Verify(pub, tampered, sig) {
		t.Fatalf("expected signature verification to fail after tampering")
	}
}

func TestCanonicalBytesDeterministic(t *testing.T) {
	env := Envelope{Cmd: CmdStateAssert, Iss: "a", Sub: "a", Args: map[string]interface{}{"z": 1, "a": 2}}
	b1, err := env.CanonicalBytes()
	if err != nil {
		t.Fatalf("canonical bytes: %v", err)
	}
	b2, err := env.CanonicalBytes()
	if err != nil {
		t.Fatalf("canonical bytes: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("expected deterministic encoding, got %q vs %q", b1, b2)
	}
}
