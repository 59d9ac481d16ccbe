package fact

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/wyrdstore/wyrd/internal/pst"
)

// revisionHeader is the wire identifier prefix calls a
// "well-known v1/raw/identity header" for the 96-byte revision value.
const revisionHeader = "wyrdrev1:"

// Revision bundles the three index roots into one content-addressed
// value.
type Revision struct {
	EAV [32]byte
	AEV [32]byte
	VAE [32]byte
}

// GenesisRevision is the all-zero sentinel used before any state has ever
// been committed or pulled — distinct from the revision produced by
// committing three genuinely-empty (but materialized) PST trees, whose
// root digests are the non-zero genesis segment digest.
func GenesisRevision() Revision { return Revision{} }

// Bytes returns the fixed 96-byte wire form.
func (r Revision) Bytes() []byte {
	out := make([]byte, 0, 96)
	out = append(out, r.EAV[:]...)
	out = append(out, r.AEV[:]...)
	out = append(out, r.VAE[:]...)
	return out
}

// String returns the revision's wire identifier.
func (r Revision) String() string {
	return revisionHeader + hex.EncodeToString(r.Bytes())
}

// HexString returns the bare hex encoding used as the register's ETag
// and If-Match values.
func (r Revision) HexString() string {
	return hex.EncodeToString(r.Bytes())
}

// ParseHexString parses the bare hex form HexString produces.
func ParseHexString(s string) (Revision, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Revision{}, fmt.Errorf("fact: revision hex decode: %w", err)
	}
	if len(raw) != 96 {
		return Revision{}, fmt.Errorf("fact: revision must be 96 bytes, got %d", len(raw))
	}
	var r Revision
	copy(r.EAV[:], raw[0:32])
	copy(r.AEV[:], raw[32:64])
	copy(r.VAE[:], raw[64:96])
	return r, nil
}

// ParseRevision parses a revision previously produced by String.
func ParseRevision(s string) (Revision, error) {
	if len(s) < len(revisionHeader) || s[:len(revisionHeader)] != revisionHeader {
		return Revision{}, fmt.Errorf("fact: revision missing %q header", revisionHeader)
	}
	raw, err := hex.DecodeString(s[len(revisionHeader):])
	if err != nil {
		return Revision{}, fmt.Errorf("fact: revision hex decode: %w", err)
	}
	if len(raw) != 96 {
		return Revision{}, fmt.Errorf("fact: revision must be 96 bytes, got %d", len(raw))
	}
	var r Revision
	copy(r.EAV[:], raw[0:32])
	copy(r.AEV[:], raw[32:64])
	copy(r.VAE[:], raw[64:96])
	return r, nil
}

// RevisionOf reads the three index roots out of a committed State.
func RevisionOf(state State) Revision {
	return Revision{EAV: state.EAV.Root, AEV: state.AEV.Root, VAE: state.VAE.Root}
}

// StateFromRevision reconstructs a State handle from a revision pulled
// over the wire, which carries only the three root digests — each tree's
// level is recovered by loading its root node.
func StateFromRevision(ctx context.Context, store *pst.Store, rev Revision) (State, error) {
	eav, err := store.TreeFromRoot(ctx, rev.EAV)
	if err != nil {
		return State{}, fmt.Errorf("fact: load eav root: %w", err)
	}
	aev, err := store.TreeFromRoot(ctx, rev.AEV)
	if err != nil {
		return State{}, fmt.Errorf("fact: load aev root: %w", err)
	}
	vae, err := store.TreeFromRoot(ctx, rev.VAE)
	if err != nil {
		return State{}, fmt.Errorf("fact: load vae root: %w", err)
	}
	return State{EAV: eav, AEV: aev, VAE: vae}, nil
}
