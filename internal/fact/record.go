package fact

import (
	"fmt"

	"github.com/wyrdstore/wyrd/internal/scalar"
)

// Record is the value stored at an index entry: either a live assertion
// or a retraction marker for the same (the, of, is) key, stored as a
// distinct entry with a different value tag. Self is the fact's own
// content hash; Prior carries the fact's `cause` predecessor pointer,
// when present, so the integrator's ancestor-relation conflict check has
// something to walk.
type Record struct {
	Live  bool
	Self  scalar.Digest
	Prior *scalar.Digest
}

// EncodeRecord produces the canonical entry value bytes: liveness tag,
// self digest, then an optional-presence tag and prior digest.
func EncodeRecord(r Record) []byte {
	out := make([]byte, 0, 66)
	if r.Live {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, r.Self[:]...)
	if r.Prior != nil {
		out = append(out, 1)
		out = append(out, r.Prior[:]...)
	} else {
		out = append(out, 0)
	}
	return out
}

// DecodeRecord parses entry value bytes back into a Record.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) < 34 {
		return Record{}, fmt.Errorf("fact: malformed record: want at least 34 bytes, got %d", len(data))
	}
	var r Record
	r.Live = data[0] == 1
	copy(r.Self[:], data[1:33])
	hasPrior := data[33] != 0
	if hasPrior {
		if len(data) < 66 {
			return Record{}, fmt.Errorf("fact: malformed record: missing prior cause bytes")
		}
		var d scalar.Digest
		copy(d[:], data[34:66])
		r.Prior = &d
	}
	return r, nil
}
