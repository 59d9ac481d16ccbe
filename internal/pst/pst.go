// Package pst implements the Probabilistic Search Tree: a
// content-addressed, insertion-order-independent sorted key/value map that
// is the sole on-disk/on-wire representation for every index the fact
// store maintains.
//
// Node shape and the wire format come from internal/codec; this package
// adds the boundary rule, descent, scanning, and the commit algorithm on
// top, pairing a builder and a reader around a shared node shape.
package pst

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"lukechampine.com/blake3"

	"github.com/wyrdstore/wyrd/internal/archive"
	"github.com/wyrdstore/wyrd/internal/codec"
	"github.com/wyrdstore/wyrd/internal/wyrderr"
)

// BranchFactor is B fixed for this implementation
// (the open question on configurability is resolved in DESIGN.md: fixed
// at 32, not a runtime parameter).
const BranchFactor = 32

// Tree identifies a PST by its root digest and the root's level.
type Tree struct {
	Root  [32]byte
	Level uint32
}

// Op is one structural operation in a commit batch: an upsert (Delete
// false) or a removal (Delete true) of a key.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Store wraps an archive with node encode/decode and a bounded decoded-node
// cache, evictable at any time.
type Store struct {
	arc   archive.Archive
	cache *lru.Cache[[32]byte, *codec.Node]
}

// NewStore builds a Store over arc with a decoded-node cache of the given
// size. cacheSize <= 0 disables caching.
func NewStore(arc archive.Archive, cacheSize int) *Store {
	s := &Store{arc: arc}
	if cacheSize > 0 {
		c, err := lru.New[[32]byte, *codec.Node](cacheSize)
		if err == nil {
			s.cache = c
		}
	}
	return s
}

func (s *Store) getNode(ctx context.Context, digest [32]byte) (*codec.Node, error) {
	if s.cache != nil {
		if n, ok := s.cache.Get(digest); ok {
			return n, nil
		}
	}

	wire, err := s.arc.Get(ctx, archive.Digest(digest))
	if err != nil {
		if wyrderr.Is(err, wyrderr.MissingBlock) {
			return nil, err
		}
		return nil, wyrderr.Missingf(fmt.Sprintf("%x", digest))
	}

	n, err := codec.Decode(wire)
	if err != nil {
		return nil, wyrderr.Corruptf(fmt.Sprintf("%x", digest), err)
	}

	if s.cache != nil {
		s.cache.Add(digest, n)
	}
	return n, nil
}

// TreeFromRoot reconstructs a Tree handle from just a root digest by
// loading the node to recover its level — the form a revision pulled
// over the wire arrives in, carrying only the three root digests.
func (s *Store) TreeFromRoot(ctx context.Context, root [32]byte) (Tree, error) {
	n, err := s.getNode(ctx, root)
	if err != nil {
		return Tree{}, err
	}
	return Tree{Root: root, Level: n.Level}, nil
}

// Node fetches and decodes the node named by digest, through the same
// cache Get and Scan use. Exported for the differential engine, which
// needs to inspect branch/segment shape directly rather than through a
// key-range scan.
func (s *Store) Node(ctx context.Context, digest [32]byte) (*codec.Node, error) {
	return s.getNode(ctx, digest)
}

func (s *Store) putNode(ctx context.Context, n *codec.Node) ([32]byte, error) {
	wire, digest, err := n.Encode()
	if err != nil {
		return digest, fmt.Errorf("pst: encode node: %w", err)
	}
	if err := s.arc.Put(ctx, archive.Digest(digest), wire); err != nil {
		return digest, fmt.Errorf("pst: store node: %w", err)
	}
	if s.cache != nil {
		s.cache.Add(digest, n)
	}
	return digest, nil
}

var genesisDigest [32]byte
var genesisComputed bool

func genesisSegment() *codec.Node {
	return &codec.Node{Level: 0, Kind: codec.KindSegment}
}

// GenesisDigest is the well-known digest of the empty level-0 segment,
// "distinguished genesis digest."
func GenesisDigest() [32]byte {
	if !genesisComputed {
		_, d, err := genesisSegment().Encode()
		if err != nil {
			panic(fmt.Sprintf("pst: encode genesis segment: %v", err))
		}
		genesisDigest = d
		genesisComputed = true
	}
	return genesisDigest
}

// GenesisTree returns the (unmaterialized) empty tree.
func GenesisTree() Tree {
	return Tree{Root: GenesisDigest(), Level: 0}
}

// Genesis ensures the empty segment node exists in the store's archive and
// returns the empty tree. Callers that construct a new index from scratch
// call this once before committing into it.
func (s *Store) Genesis(ctx context.Context) (Tree, error) {
	if _, err := s.putNode(ctx, genesisSegment()); err != nil {
		return Tree{}, err
	}
	return GenesisTree(), nil
}

func boundaryHash(h []byte) bool {
	v := binary.BigEndian.Uint32(h[:4])
	return v < math.MaxUint32/BranchFactor
}

func boundaryKey(key []byte) bool {
	h := blake3.Sum256(key)
	return boundaryHash(h[:])
}

func boundaryDigest(d [32]byte) bool {
	return boundaryHash(d[:])
}

// Get implements get(key): descend by binary-searching
// refs for the smallest upper_bound >= key.
func (s *Store) Get(ctx context.Context, tree Tree, key []byte) ([]byte, bool, error) {
	digest := tree.Root
	for {
		select {
		case <-ctx.Done():
			return nil, false, wyrderr.New(wyrderr.Cancelled, "get cancelled", ctx.Err())
		default:
		}

		node, err := s.getNode(ctx, digest)
		if err != nil {
			return nil, false, err
		}

		if node.Kind == codec.KindSegment {
			i := sort.Search(len(node.Entries), func(i int) bool {
				return bytes.Compare(node.Entries[i].Key, key) >= 0
			})
			if i < len(node.Entries) && bytes.Equal(node.Entries[i].Key, key) {
				return node.Entries[i].Value, true, nil
			}
			return nil, false, nil
		}

		if len(node.Refs) == 0 {
			return nil, false, nil
		}
		i := sort.Search(len(node.Refs), func(i int) bool {
			return bytes.Compare(node.Refs[i].Upper, key) >= 0
		})
		if i == len(node.Refs) {
			i = len(node.Refs) - 1
		}
		digest = node.Refs[i].Digest
	}
}

// Cursor walks a range of entries in key order, fetching subtrees lazily:
// a restartable, finite sequence of entries in key order.
type Cursor struct {
	store *Store
	lo    []byte
	hi    []byte
	stack []cursorFrame
	done  bool
}

type cursorFrame struct {
	node *codec.Node
	idx  int
}

// Scan opens a Cursor over [lo, hi) (nil lo/hi means unbounded on that
// side).
func (s *Store) Scan(ctx context.Context, tree Tree, lo, hi []byte) (*Cursor, error) {
	c := &Cursor{store: s, lo: lo, hi: hi}
	if err := c.pushDescend(ctx, tree.Root); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cursor) pushDescend(ctx context.Context, digest [32]byte) error {
	node, err := c.store.getNode(ctx, digest)
	if err != nil {
		return err
	}
	idx := 0
	if c.lo != nil {
		if node.Kind == codec.KindSegment {
			idx = sort.Search(len(node.Entries), func(i int) bool {
				return bytes.Compare(node.Entries[i].Key, c.lo) >= 0
			})
		} else {
			idx = sort.Search(len(node.Refs), func(i int) bool {
				return bytes.Compare(node.Refs[i].Upper, c.lo) >= 0
			})
			if idx == len(node.Refs) && len(node.Refs) > 0 {
				idx = len(node.Refs) - 1
			}
		}
	}
	c.stack = append(c.stack, cursorFrame{node: node, idx: idx})
	return nil
}

// Next returns the next entry in range, or ok=false once the range is
// exhausted.
func (c *Cursor) Next(ctx context.Context) (codec.Entry, bool, error) {
	if c.done {
		return codec.Entry{}, false, nil
	}
	for {
		select {
		case <-ctx.Done():
			return codec.Entry{}, false, wyrderr.New(wyrderr.Cancelled, "scan cancelled", ctx.Err())
		default:
		}

		if len(c.stack) == 0 {
			c.done = true
			return codec.Entry{}, false, nil
		}
		top := &c.stack[len(c.stack)-1]

		if top.node.Kind == codec.KindSegment {
			if top.idx >= len(top.node.Entries) {
				c.stack = c.stack[:len(c.stack)-1]
				continue
			}
			e := top.node.Entries[top.idx]
			top.idx++
			if c.hi != nil && bytes.Compare(e.Key, c.hi) >= 0 {
				c.done = true
				return codec.Entry{}, false, nil
			}
			return e, true, nil
		}

		if top.idx >= len(top.node.Refs) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		ref := top.node.Refs[top.idx]
		top.idx++
		if err := c.pushDescend(ctx, ref.Digest); err != nil {
			return codec.Entry{}, false, err
		}
	}
}

// Collect drains the cursor into a slice; meant for tests and small scans.
func (c *Cursor) Collect(ctx context.Context) ([]codec.Entry, error) {
	var out []codec.Entry
	for {
		e, ok, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, e)
	}
}
