// Package register implements the mutable-pointer sync protocol: the
// signed envelope format, the REST client and server for the
// compare-and-swap register, and the pull/merge/push sync driver.
//
package register

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"
)

// Envelope is the signed command payload exchanged with a register. Args
// is marshaled with encoding/json, which already sorts map keys, giving a
// deterministic canonical form without a bespoke JSON writer.
type Envelope struct {
	Cmd  string                 `json:"cmd"`
	Iss  string                 `json:"iss"`
	Sub  string                 `json:"sub"`
	Args map[string]interface{} `json:"args"`
}

const (
	CmdStateAssert = "/state/assert"
	CmdStateQuery  = "/state/query"
)

// CanonicalBytes returns the deterministic JSON encoding signatures are
// computed over.
func (e Envelope) CanonicalBytes() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("register: marshal envelope: %w", err)
	}
	return b, nil
}

// Sign produces an Ed25519 signature over blake3(canonical payload).
func Sign(priv ed25519.PrivateKey, env Envelope) ([]byte, error) {
	payload, err := env.CanonicalBytes()
	if err != nil {
		return nil, err
	}
	h := blake3.Sum256(payload)
	return ed25519.Sign(priv, h[:]), nil
}

// Verify checks an Ed25519 signature over blake3(canonical payload). The
// core only requires iss == sub == did, checked by the caller; Verify
// handles the cryptographic half of that pluggable authorizer.
func Verify(pub ed25519.PublicKey, env Envelope, sig []byte) bool {
	payload, err := env.CanonicalBytes()
	if err != nil {
		return false
	}
	h := blake3.Sum256(payload)
	return ed25519.Verify(pub, h[:], sig)
}
