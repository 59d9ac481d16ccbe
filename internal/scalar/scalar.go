// Package scalar implements the tagged-union value type, entity and
// attribute identifiers, and the Fact/Instruction quad
//
// Canonical encodings here feed directly into the index keys built by
// internal/fact. The encodings are deterministic; byte-wise comparison
// of them does not follow numeric order for i64 and f64 values, which
// are written little-endian.
package scalar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"lukechampine.com/blake3"
)

// Kind discriminates a Scalar's variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI64
	KindF64
	KindString
	KindBytes
	KindAttribute
	KindEntity
)

// Scalar is the tagged-union value carried by a Fact's `is` field.
type Scalar struct {
	Kind  Kind
	Bool  bool
	I64   int64
	F64   float64
	Str   string
	Bytes []byte
	Attr  Attribute
	Ent   Entity
}

func Null() Scalar                { return Scalar{Kind: KindNull} }
func FromBool(b bool) Scalar      { return Scalar{Kind: KindBool, Bool: b} }
func FromI64(i int64) Scalar      { return Scalar{Kind: KindI64, I64: i} }
func FromF64(f float64) Scalar    { return Scalar{Kind: KindF64, F64: f} }
func FromString(s string) Scalar  { return Scalar{Kind: KindString, Str: s} }
func FromBytes(b []byte) Scalar   { return Scalar{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }
func FromAttribute(a Attribute) Scalar { return Scalar{Kind: KindAttribute, Attr: a} }
func FromEntity(e Entity) Scalar  { return Scalar{Kind: KindEntity, Ent: e} }

// canonicalizeFloat folds every NaN bit pattern to a single canonical NaN,
// per ("IEEE-754 floats with NaN canonicalized").
func canonicalizeFloat(f float64) uint64 {
	if math.IsNaN(f) {
		return math.Float64bits(math.NaN())
	}
	return math.Float64bits(f)
}

// CanonicalBytes returns the deterministic byte encoding of a Scalar: a
// one-byte discriminant followed by a variant-specific payload (none for
// null, one byte for bool, 8 little-endian bytes for i64 and f64, the raw
// 32 bytes for an entity, a uvarint-length-prefixed body for string,
// bytes and attribute).
func (s Scalar) CanonicalBytes() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(s.Kind))

	switch s.Kind {
	case KindNull:
		// no payload
	case KindBool:
		if s.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindI64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(s.I64))
		buf.Write(b[:])
	case KindF64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], canonicalizeFloat(s.F64))
		buf.Write(b[:])
	case KindString:
		writeLenPrefixed(&buf, []byte(s.Str))
	case KindBytes:
		writeLenPrefixed(&buf, s.Bytes)
	case KindAttribute:
		writeLenPrefixed(&buf, s.Attr.CanonicalBytes())
	case KindEntity:
		buf.Write(s.Ent[:])
	}

	return buf.Bytes()
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(data)))
	buf.Write(lenBuf[:n])
	buf.Write(data)
}

func readLenPrefixed(data []byte) (payload []byte, consumed int, err error) {
	n, nn := binary.Uvarint(data)
	if nn <= 0 {
		return nil, 0, fmt.Errorf("scalar: malformed length prefix")
	}
	if uint64(nn)+n > uint64(len(data)) {
		return nil, 0, fmt.Errorf("scalar: length prefix overruns buffer")
	}
	return data[nn : nn+int(n)], nn + int(n), nil
}

// DecodeScalar parses the canonical encoding of a Scalar from the front of
// data, returning the value and the number of bytes consumed.
func DecodeScalar(data []byte) (Scalar, int, error) {
	if len(data) < 1 {
		return Scalar{}, 0, fmt.Errorf("scalar: empty input")
	}
	kind := Kind(data[0])
	rest := data[1:]

	switch kind {
	case KindNull:
		return Scalar{Kind: KindNull}, 1, nil
	case KindBool:
		if len(rest) < 1 {
			return Scalar{}, 0, fmt.Errorf("scalar: truncated bool")
		}
		return Scalar{Kind: KindBool, Bool: rest[0] != 0}, 2, nil
	case KindI64:
		if len(rest) < 8 {
			return Scalar{}, 0, fmt.Errorf("scalar: truncated i64")
		}
		v := int64(binary.LittleEndian.Uint64(rest[:8]))
		return Scalar{Kind: KindI64, I64: v}, 9, nil
	case KindF64:
		if len(rest) < 8 {
			return Scalar{}, 0, fmt.Errorf("scalar: truncated f64")
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(rest[:8]))
		return Scalar{Kind: KindF64, F64: v}, 9, nil
	case KindString:
		payload, n, err := readLenPrefixed(rest)
		if err != nil {
			return Scalar{}, 0, fmt.Errorf("scalar: string: %w", err)
		}
		return Scalar{Kind: KindString, Str: string(payload)}, 1 + n, nil
	case KindBytes:
		payload, n, err := readLenPrefixed(rest)
		if err != nil {
			return Scalar{}, 0, fmt.Errorf("scalar: bytes: %w", err)
		}
		return Scalar{Kind: KindBytes, Bytes: append([]byte(nil), payload...)}, 1 + n, nil
	case KindAttribute:
		payload, n, err := readLenPrefixed(rest)
		if err != nil {
			return Scalar{}, 0, fmt.Errorf("scalar: attribute: %w", err)
		}
		attr, _, err := DecodeAttribute(payload)
		if err != nil {
			return Scalar{}, 0, fmt.Errorf("scalar: attribute: %w", err)
		}
		return Scalar{Kind: KindAttribute, Attr: attr}, 1 + n, nil
	case KindEntity:
		if len(rest) < 32 {
			return Scalar{}, 0, fmt.Errorf("scalar: truncated entity")
		}
		var e Entity
		copy(e[:], rest[:32])
		return Scalar{Kind: KindEntity, Ent: e}, 1 + 32, nil
	default:
		return Scalar{}, 0, fmt.Errorf("scalar: unknown kind %d", kind)
	}
}

// Entity is a 32-byte identifier: the blake3 hash of a URI, or a freshly
// generated random value.
type Entity [32]byte

// NewEntityFromURI derives a stable Entity from a URI string.
func NewEntityFromURI(uri string) Entity {
	return Entity(blake3.Sum256([]byte("entity:" + uri)))
}

func (e Entity) Less(o Entity) bool { return bytes.Compare(e[:], o[:]) < 0 }

// Attribute is a namespace/name predicate identifier, ordered
// lexicographically by its canonical concatenation.
type Attribute struct {
	Namespace string
	Name      string
}

func NewAttribute(namespace, name string) Attribute {
	return Attribute{Namespace: namespace, Name: name}
}

// CanonicalBytes writes namespace and then name, each prefixed with its
// uvarint length, so the pair decodes unambiguously.
func (a Attribute) CanonicalBytes() []byte {
	var buf bytes.Buffer
	writeLenPrefixed(&buf, []byte(a.Namespace))
	writeLenPrefixed(&buf, []byte(a.Name))
	return buf.Bytes()
}

// DecodeAttribute parses the canonical encoding of an Attribute from the
// front of data, returning the value and the number of bytes consumed.
func DecodeAttribute(data []byte) (Attribute, int, error) {
	ns, n1, err := readLenPrefixed(data)
	if err != nil {
		return Attribute{}, 0, fmt.Errorf("attribute: namespace: %w", err)
	}
	name, n2, err := readLenPrefixed(data[n1:])
	if err != nil {
		return Attribute{}, 0, fmt.Errorf("attribute: name: %w", err)
	}
	return Attribute{Namespace: string(ns), Name: string(name)}, n1 + n2, nil
}

func (a Attribute) String() string { return a.Namespace + "/" + a.Name }

func (a Attribute) Less(o Attribute) bool {
	return bytes.Compare(a.CanonicalBytes(), o.CanonicalBytes()) < 0
}

// Cardinality describes how many live facts an attribute permits per
// (the, of) pair. Only "one" auto-retracts; the choice to never
// auto-retract cardinality-many is recorded in DESIGN.md.
type Cardinality uint8

const (
	CardinalityMany Cardinality = iota
	CardinalityOne
)

// Digest is the content hash of a Fact or a PST node.
type Digest [32]byte

func (d Digest) String() string { return fmt.Sprintf("%x", d[:]) }

// Fact is the immutable {the, of, is, cause} quad.
type Fact struct {
	The   Attribute
	Of    Entity
	Is    Scalar
	Cause *Digest // content-addressed predecessor reference, or nil
}

// ContentHash computes the Fact's cause-worthy content digest: blake3 over
// the canonical encoding of {the, of, is}, deliberately excluding Cause so
// that the hash can serve as the next fact's own Cause without circularity.
func (f Fact) ContentHash() Digest {
	var buf bytes.Buffer
	writeLenPrefixed(&buf, f.The.CanonicalBytes())
	buf.Write(f.Of[:])
	writeLenPrefixed(&buf, f.Is.CanonicalBytes())
	return Digest(blake3.Sum256(buf.Bytes()))
}

// InstructionKind discriminates Assert vs Retract.
type InstructionKind uint8

const (
	Assert InstructionKind = iota
	Retract
)

// Instruction is one line of a transaction: Assert(Fact) or Retract(Fact).
type Instruction struct {
	Kind InstructionKind
	Fact Fact
}

// SortInstructions orders a batch for deterministic processing; ties break
// on instruction kind so retractions of the same fact commit after
// assertions, matching the "retraction ordering" invariant of
func SortInstructions(ins []Instruction) {
	sort.SliceStable(ins, func(i, j int) bool {
		hi := ins[i].Fact.ContentHash()
		hj := ins[j].Fact.ContentHash()
		c := bytes.Compare(hi[:], hj[:])
		if c != 0 {
			return c < 0
		}
		return ins[i].Kind < ins[j].Kind
	})
}
