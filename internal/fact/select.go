package fact

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/wyrdstore/wyrd/internal/pst"
	"github.com/wyrdstore/wyrd/internal/scalar"
)

// Pattern constrains zero or more of a fact's three fields; a nil field is
// unconstrained. Hint disambiguates the (the constrained, is
// constrained) case, where either AEV or VAE could serve the scan.
type Pattern struct {
	The  *scalar.Attribute
	Of   *scalar.Entity
	Is   *scalar.Scalar
	Hint Index
}

// Select chooses the index best matching pattern and returns every live
// fact it selects (selection rules: of -> EAV, the ->
// AEV, is -> VAE, (the, of) -> EAV, (the, is) dispatches on Hint).
func Select(ctx context.Context, store *pst.Store, state State, pattern Pattern) ([]scalar.Fact, error) {
	ix, lo, hi := planScan(pattern)

	var tree pst.Tree
	var decode func([]byte) (scalar.Fact, error)
	switch ix {
	case EAV:
		tree, decode = state.EAV, decodeEAVFact
	case AEV:
		tree, decode = state.AEV, decodeAEVFact
	case VAE:
		tree, decode = state.VAE, decodeVAEFact
	default:
		return nil, fmt.Errorf("fact: select: unknown index %v", ix)
	}

	cur, err := store.Scan(ctx, tree, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("fact: select scan: %w", err)
	}

	var out []scalar.Fact
	for {
		e, ok, err := cur.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("fact: select next: %w", err)
		}
		if !ok {
			return out, nil
		}
		rec, err := DecodeRecord(e.Value)
		if err != nil {
			return nil, fmt.Errorf("fact: select decode record: %w", err)
		}
		if !rec.Live {
			continue
		}
		f, err := decode(e.Key)
		if err != nil {
			return nil, fmt.Errorf("fact: select decode key: %w", err)
		}
		if !matches(pattern, f) {
			continue
		}
		out = append(out, f)
	}
}

// planScan picks an index and a [lo, hi) range bounding every entry the
// pattern could match. The range may overselect (e.g. an Of-and-Is
// pattern scans the full Of prefix in EAV); matches() filters the
// overselection out.
func planScan(pattern Pattern) (Index, []byte, []byte) {
	switch {
	case pattern.Of != nil && pattern.The != nil:
		prefix := EAVPrefix(*pattern.Of, *pattern.The)
		return EAV, prefix, prefixUpperBound(prefix)

	case pattern.Of != nil:
		prefix := append([]byte(nil), pattern.Of[:]...)
		return EAV, prefix, prefixUpperBound(prefix)

	case pattern.The != nil && pattern.Is != nil:
		if pattern.Hint == VAE {
			prefix := lenPrefixedBytes(pattern.Is.CanonicalBytes())
			return VAE, prefix, prefixUpperBound(prefix)
		}
		prefix := lenPrefixedBytes(pattern.The.CanonicalBytes())
		return AEV, prefix, prefixUpperBound(prefix)

	case pattern.The != nil:
		prefix := lenPrefixedBytes(pattern.The.CanonicalBytes())
		return AEV, prefix, prefixUpperBound(prefix)

	case pattern.Is != nil:
		prefix := lenPrefixedBytes(pattern.Is.CanonicalBytes())
		return VAE, prefix, prefixUpperBound(prefix)

	default:
		return EAV, nil, nil
	}
}

// lenPrefixedBytes wraps a raw canonical payload in the uvarint length
// prefix used by AEV/VAE keys, so it can serve as a literal scan prefix.
func lenPrefixedBytes(payload []byte) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	out := make([]byte, 0, n+len(payload))
	out = append(out, lenBuf[:n]...)
	out = append(out, payload...)
	return out
}

func matches(pattern Pattern, f scalar.Fact) bool {
	if pattern.The != nil && *pattern.The != f.The {
		return false
	}
	if pattern.Of != nil && *pattern.Of != f.Of {
		return false
	}
	if pattern.Is != nil && !scalarEqual(*pattern.Is, f.Is) {
		return false
	}
	return true
}

func scalarEqual(a, b scalar.Scalar) bool {
	ab, bb := a.CanonicalBytes(), b.CanonicalBytes()
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}

func decodeEAVFact(key []byte) (scalar.Fact, error) {
	of, the, is, err := DecodeEAVKey(key)
	if err != nil {
		return scalar.Fact{}, err
	}
	return scalar.Fact{The: the, Of: of, Is: is}, nil
}

func decodeAEVFact(key []byte) (scalar.Fact, error) {
	the, of, is, err := DecodeAEVKey(key)
	if err != nil {
		return scalar.Fact{}, err
	}
	return scalar.Fact{The: the, Of: of, Is: is}, nil
}

func decodeVAEFact(key []byte) (scalar.Fact, error) {
	is, the, of, err := DecodeVAEKey(key)
	if err != nil {
		return scalar.Fact{}, err
	}
	return scalar.Fact{The: the, Of: of, Is: is}, nil
}
