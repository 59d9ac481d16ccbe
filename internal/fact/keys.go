// Package fact implements the artifact indexer: three simultaneous
// PST indexes (EAV, AEV, VAE) over the same fact set, the transaction
// commit pipeline that advances all three atomically, and selection
// queries against whichever index best matches a query pattern.
//
// The same builder/loader pairing covers all three key orderings, and
// each holds to a canonical-key-ordering discipline: byte-wise comparison
// equals logical comparison.
package fact

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/wyrdstore/wyrd/internal/scalar"
)

// Index names the three simultaneous orderings a fact is stored under.
type Index uint8

const (
	EAV Index = iota
	AEV
	VAE
)

func (ix Index) String() string {
	switch ix {
	case EAV:
		return "eav"
	case AEV:
		return "aev"
	case VAE:
		return "vae"
	default:
		return "unknown"
	}
}

func putLenPrefixed(buf *bytes.Buffer, data []byte) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], uint64(len(data)))
	buf.Write(b[:n])
	buf.Write(data)
}

// EAVKey builds `(of, the, is_bytes)`: of is fixed-length so needs no
// prefix, the and is_bytes are length-prefixed so that byte-wise
// lexicographic order equals logical order.
func EAVKey(f scalar.Fact) []byte {
	var buf bytes.Buffer
	buf.Write(f.Of[:])
	putLenPrefixed(&buf, f.The.CanonicalBytes())
	putLenPrefixed(&buf, f.Is.CanonicalBytes())
	return buf.Bytes()
}

// AEVKey builds `(the, of, is_bytes)`.
func AEVKey(f scalar.Fact) []byte {
	var buf bytes.Buffer
	putLenPrefixed(&buf, f.The.CanonicalBytes())
	buf.Write(f.Of[:])
	putLenPrefixed(&buf, f.Is.CanonicalBytes())
	return buf.Bytes()
}

// VAEKey builds `(is_bytes, the, of)`.
func VAEKey(f scalar.Fact) []byte {
	var buf bytes.Buffer
	putLenPrefixed(&buf, f.Is.CanonicalBytes())
	putLenPrefixed(&buf, f.The.CanonicalBytes())
	buf.Write(f.Of[:])
	return buf.Bytes()
}

// KeyFor returns the key a fact occupies in the named index.
func KeyFor(ix Index, f scalar.Fact) []byte {
	switch ix {
	case EAV:
		return EAVKey(f)
	case AEV:
		return AEVKey(f)
	case VAE:
		return VAEKey(f)
	default:
		panic("fact: unknown index")
	}
}

// DecodeEAVKey reverses EAVKey, recovering the (of, the, is) triple.
func DecodeEAVKey(key []byte) (of scalar.Entity, the scalar.Attribute, is scalar.Scalar, err error) {
	if len(key) < 32 {
		return of, the, is, fmt.Errorf("fact: eav key too short")
	}
	copy(of[:], key[:32])
	rest := key[32:]

	attrBytes, n1, err := readLenPrefixedRaw(rest)
	if err != nil {
		return of, the, is, fmt.Errorf("fact: eav key attribute: %w", err)
	}
	the, _, err = scalar.DecodeAttribute(attrBytes)
	if err != nil {
		return of, the, is, fmt.Errorf("fact: eav key attribute: %w", err)
	}

	valBytes, _, err := readLenPrefixedRaw(rest[n1:])
	if err != nil {
		return of, the, is, fmt.Errorf("fact: eav key value: %w", err)
	}
	is, _, err = scalar.DecodeScalar(valBytes)
	if err != nil {
		return of, the, is, fmt.Errorf("fact: eav key value: %w", err)
	}
	return of, the, is, nil
}

// DecodeAEVKey reverses AEVKey.
func DecodeAEVKey(key []byte) (the scalar.Attribute, of scalar.Entity, is scalar.Scalar, err error) {
	attrBytes, n1, err := readLenPrefixedRaw(key)
	if err != nil {
		return the, of, is, fmt.Errorf("fact: aev key attribute: %w", err)
	}
	the, _, err = scalar.DecodeAttribute(attrBytes)
	if err != nil {
		return the, of, is, fmt.Errorf("fact: aev key attribute: %w", err)
	}

	rest := key[n1:]
	if len(rest) < 32 {
		return the, of, is, fmt.Errorf("fact: aev key too short")
	}
	copy(of[:], rest[:32])

	valBytes, _, err := readLenPrefixedRaw(rest[32:])
	if err != nil {
		return the, of, is, fmt.Errorf("fact: aev key value: %w", err)
	}
	is, _, err = scalar.DecodeScalar(valBytes)
	if err != nil {
		return the, of, is, fmt.Errorf("fact: aev key value: %w", err)
	}
	return the, of, is, nil
}

// DecodeVAEKey reverses VAEKey.
func DecodeVAEKey(key []byte) (is scalar.Scalar, the scalar.Attribute, of scalar.Entity, err error) {
	valBytes, n1, err := readLenPrefixedRaw(key)
	if err != nil {
		return is, the, of, fmt.Errorf("fact: vae key value: %w", err)
	}
	is, _, err = scalar.DecodeScalar(valBytes)
	if err != nil {
		return is, the, of, fmt.Errorf("fact: vae key value: %w", err)
	}

	rest := key[n1:]
	attrBytes, n2, err := readLenPrefixedRaw(rest)
	if err != nil {
		return is, the, of, fmt.Errorf("fact: vae key attribute: %w", err)
	}
	the, _, err = scalar.DecodeAttribute(attrBytes)
	if err != nil {
		return is, the, of, fmt.Errorf("fact: vae key attribute: %w", err)
	}

	rest = rest[n2:]
	if len(rest) < 32 {
		return is, the, of, fmt.Errorf("fact: vae key too short")
	}
	copy(of[:], rest[:32])
	return is, the, of, nil
}

func readLenPrefixedRaw(data []byte) (payload []byte, consumed int, err error) {
	n, nn := binary.Uvarint(data)
	if nn <= 0 {
		return nil, 0, fmt.Errorf("fact: malformed length prefix")
	}
	if uint64(nn)+n > uint64(len(data)) {
		return nil, 0, fmt.Errorf("fact: length prefix overruns buffer")
	}
	return data[nn : nn+int(n)], nn + int(n), nil
}

// EAVPrefix builds the key prefix that bounds every entry for a given
// entity and attribute, used to scope a point lookup during cardinality resolution
// (step 2) without needing the asserted value in hand.
func EAVPrefix(of scalar.Entity, the scalar.Attribute) []byte {
	var buf bytes.Buffer
	buf.Write(of[:])
	putLenPrefixed(&buf, the.CanonicalBytes())
	return buf.Bytes()
}

// prefixUpperBound returns the smallest byte slice that sorts strictly
// after every slice with the given prefix, for use as an exclusive scan
// upper bound.
func prefixUpperBound(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil // prefix is all 0xff bytes; unbounded above
}
