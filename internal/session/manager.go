package session

import (
	"fmt"

	"github.com/wyrdstore/wyrd/internal/fact"
	"github.com/wyrdstore/wyrd/internal/register"
	"github.com/wyrdstore/wyrd/internal/store"
)

// Handle is a reference-counted lease on the shared session database
// living in one wyrd directory, obtained from store.GetSharedDB.
type Handle struct {
	shared *store.SharedDB
}

// Open acquires a Handle onto wyrdDir's session database.
func Open(wyrdDir string) (*Handle, error) {
	shared, err := store.GetSharedDB(wyrdDir)
	if err != nil {
		return nil, err
	}
	return &Handle{shared: shared}, nil
}

// Close releases this handle's reference, closing the underlying
// database once no handle remains.
func (h *Handle) Close() error {
	return h.shared.Close()
}

// Load retrieves the persisted session for did, or the genesis session if
// did has never synced before.
func (h *Handle) Load(did string) (register.Session, error) {
	baseHex, currentHex, ok, err := h.shared.GetSession(did)
	if err != nil {
		return register.Session{}, fmt.Errorf("session: load %s: %w", did, err)
	}
	if !ok {
		g := fact.GenesisRevision()
		return register.Session{LocalBase: g, LocalCurrent: g}, nil
	}
	base, err := fact.ParseHexString(baseHex)
	if err != nil {
		return register.Session{}, fmt.Errorf("session: parse base: %w", err)
	}
	current, err := fact.ParseHexString(currentHex)
	if err != nil {
		return register.Session{}, fmt.Errorf("session: parse current: %w", err)
	}
	return register.Session{LocalBase: base, LocalCurrent: current}, nil
}

// Save persists sess for did. When broker is non-nil it publishes the new
// current revision so any goroutine watching this did wakes up.
func (h *Handle) Save(did string, sess register.Session, broker *Broker) error {
	if err := h.shared.PutSession(did, sess.LocalBase.HexString(), sess.LocalCurrent.HexString()); err != nil {
		return fmt.Errorf("session: save %s: %w", did, err)
	}
	if broker != nil {
		broker.Publish(did, sess.LocalCurrent.HexString())
	}
	return nil
}

// ListDIDs returns every DID with a persisted session.
func (h *Handle) ListDIDs() ([]string, error) {
	return h.shared.ListDIDs()
}
