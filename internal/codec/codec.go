// Package codec implements the node wire format:
// level(uvarint) || kind(u8) || count(uvarint) || body, brotli-compressed
// on the wire, with the digest taken over the compressed bytes.
//
// A single Encode/Decode pair covers the two node kinds a PST needs:
// segment (leaf) and branch, both written as uvarint-prefixed fields in
// a flat byte buffer.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"lukechampine.com/blake3"
)

// Kind discriminates a PST node's two shapes.
type Kind uint8

const (
	KindSegment Kind = iota
	KindBranch
)

// Entry is one key/value pair stored at a segment (leaf) node.
type Entry struct {
	Key   []byte
	Value []byte
}

// Ref is one (upper_bound, child digest) reference stored at a branch node.
type Ref struct {
	Upper  []byte
	Digest [32]byte
}

// Node is the decoded, in-memory form of a PST node at any level.
type Node struct {
	Level   uint32
	Kind    Kind
	Entries []Entry // KindSegment
	Refs    []Ref   // KindBranch
}

// UpperBound is the node's own upper bound: the last entry's key for a
// segment, or the last ref's upper bound for a branch. It is derived, not
// stored in the wire encoding.
func (n *Node) UpperBound() []byte {
	switch n.Kind {
	case KindSegment:
		if len(n.Entries) == 0 {
			return nil
		}
		return n.Entries[len(n.Entries)-1].Key
	case KindBranch:
		if len(n.Refs) == 0 {
			return nil
		}
		return n.Refs[len(n.Refs)-1].Upper
	}
	return nil
}

func (n *Node) canonicalBytes() []byte {
	var buf bytes.Buffer
	putUvarint(&buf, uint64(n.Level))
	buf.WriteByte(byte(n.Kind))

	switch n.Kind {
	case KindSegment:
		putUvarint(&buf, uint64(len(n.Entries)))
		for _, e := range n.Entries {
			putLenPrefixed(&buf, e.Key)
			putLenPrefixed(&buf, e.Value)
		}
	case KindBranch:
		putUvarint(&buf, uint64(len(n.Refs)))
		for _, r := range n.Refs {
			putLenPrefixed(&buf, r.Upper)
			buf.Write(r.Digest[:])
		}
	}

	return buf.Bytes()
}

// brotliQuality is fast enough for per-commit re-encoding while still
// giving a meaningful reduction over the uncompressed canonical bytes.
const brotliQuality = 5

// Encode produces the brotli-compressed wire bytes for the node, and the
// digest (blake3-256 over those compressed bytes) that names it.
func (n *Node) Encode() (wire []byte, digest [32]byte, err error) {
	raw := n.canonicalBytes()

	var out bytes.Buffer
	w := brotli.NewWriterLevel(&out, brotliQuality)
	if _, err := w.Write(raw); err != nil {
		return nil, digest, fmt.Errorf("codec: brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, digest, fmt.Errorf("codec: brotli close: %w", err)
	}

	wire = out.Bytes()
	digest = blake3.Sum256(wire)
	return wire, digest, nil
}

// Decode parses brotli-compressed wire bytes back into a Node. It does not
// verify the digest; callers that fetched wire by digest should verify it
// themselves (see internal/archive: every backend verifies on Put; the
// file and S3 backends also verify on Get, the memory backend does not).
func Decode(wire []byte) (*Node, error) {
	r := brotli.NewReader(bytes.NewReader(wire))
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: brotli decompress: %w", err)
	}
	return decodeCanonical(raw)
}

func decodeCanonical(raw []byte) (*Node, error) {
	buf := bytes.NewReader(raw)

	level, err := binary.ReadUvarint(buf)
	if err != nil {
		return nil, fmt.Errorf("codec: read level: %w", err)
	}
	kindByte, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("codec: read kind: %w", err)
	}
	kind := Kind(kindByte)

	count, err := binary.ReadUvarint(buf)
	if err != nil {
		return nil, fmt.Errorf("codec: read count: %w", err)
	}

	n := &Node{Level: uint32(level), Kind: kind}

	switch kind {
	case KindSegment:
		n.Entries = make([]Entry, 0, count)
		for i := uint64(0); i < count; i++ {
			key, err := readLenPrefixed(buf)
			if err != nil {
				return nil, fmt.Errorf("codec: read entry %d key: %w", i, err)
			}
			val, err := readLenPrefixed(buf)
			if err != nil {
				return nil, fmt.Errorf("codec: read entry %d value: %w", i, err)
			}
			n.Entries = append(n.Entries, Entry{Key: key, Value: val})
		}
	case KindBranch:
		n.Refs = make([]Ref, 0, count)
		for i := uint64(0); i < count; i++ {
			upper, err := readLenPrefixed(buf)
			if err != nil {
				return nil, fmt.Errorf("codec: read ref %d upper bound: %w", i, err)
			}
			var digest [32]byte
			if _, err := io.ReadFull(buf, digest[:]); err != nil {
				return nil, fmt.Errorf("codec: read ref %d digest: %w", i, err)
			}
			n.Refs = append(n.Refs, Ref{Upper: upper, Digest: digest})
		}
	default:
		return nil, fmt.Errorf("codec: unknown node kind %d", kindByte)
	}

	return n, nil
}

func putUvarint(buf *bytes.Buffer, v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	buf.Write(b[:n])
}

func putLenPrefixed(buf *bytes.Buffer, data []byte) {
	putUvarint(buf, uint64(len(data)))
	buf.Write(data)
}

func readLenPrefixed(buf *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}
