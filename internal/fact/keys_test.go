package fact

import (
	"testing"

	"github.com/wyrdstore/wyrd/internal/scalar"
)

func sampleFact() scalar.Fact {
	return scalar.Fact{
		The: scalar.NewAttribute("person", "name"),
		Of:  scalar.NewEntityFromURI("urn:person:1"),
		Is:  scalar.FromString("Ada"),
	}
}

func TestEAVKeyRoundTrip(t *testing.T) {
	f := sampleFact()
	of, the, is, err := DecodeEAVKey(EAVKey(f))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if of != f.Of || the != f.The || !scalarEqual(is, f.Is) {
		t.Fatalf("eav round trip mismatch: of=%v the=%v is=%v", of, the, is)
	}
}

func TestAEVKeyRoundTrip(t *testing.T) {
	f := sampleFact()
	the, of, is, err := DecodeAEVKey(AEVKey(f))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if of != f.Of || the != f.The || !scalarEqual(is, f.Is) {
		t.Fatalf("aev round trip mismatch: of=%v the=%v is=%v", of, the, is)
	}
}

func TestVAEKeyRoundTrip(t *testing.T) {
	f := sampleFact()
	is, the, of, err := DecodeVAEKey(VAEKey(f))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if of != f.Of || the != f.The || !scalarEqual(is, f.Is) {
		t.Fatalf("vae round trip mismatch: of=%v the=%v is=%v", of, the, is)
	}
}

func TestEAVPrefixBoundsEntityAttribute(t *testing.T) {
	f := sampleFact()
	prefix := EAVPrefix(f.Of, f.The)
	key := EAVKey(f)
	if len(key) < len(prefix) {
		t.Fatalf("key shorter than its own prefix")
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			t.Fatalf("key does not start with its own EAVPrefix at byte %d", i)
		}
	}
}

func TestPrefixUpperBoundExcludesKeysPastThePrefix(t *testing.T) {
	f := sampleFact()
	prefix := EAVPrefix(f.Of, f.The)
	upper := prefixUpperBound(prefix)
	if upper == nil {
		t.Fatalf("expected bounded upper for non-0xff prefix")
	}

	withinPrefix := append(append([]byte(nil), prefix...), 0x00)
	if bytesCompare(withinPrefix, upper) >= 0 {
		t.Fatalf("key within prefix must sort before the upper bound")
	}

	pastPrefix := append([]byte(nil), prefix...)
	pastPrefix[len(pastPrefix)-1]++
	if bytesCompare(pastPrefix, upper) < 0 {
		t.Fatalf("key past the prefix must not sort before the upper bound")
	}
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func TestKeyForDispatchesByIndex(t *testing.T) {
	f := sampleFact()
	if string(KeyFor(EAV, f)) != string(EAVKey(f)) {
		t.Fatalf("KeyFor(EAV) mismatch")
	}
	if string(KeyFor(AEV, f)) != string(AEVKey(f)) {
		t.Fatalf("KeyFor(AEV) mismatch")
	}
	if string(KeyFor(VAE, f)) != string(VAEKey(f)) {
		t.Fatalf("KeyFor(VAE) mismatch")
	}
}
