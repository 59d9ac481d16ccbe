package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wyrdstore/wyrd/internal/archive"
	wyrdconfig "github.com/wyrdstore/wyrd/internal/config"
	"github.com/wyrdstore/wyrd/internal/fact"
	"github.com/wyrdstore/wyrd/internal/pst"
	"github.com/wyrdstore/wyrd/internal/register"
	"github.com/wyrdstore/wyrd/internal/session"
)

// wyrdDir is the per-repository state directory.
const wyrdDir = ".wyrd"

// nodeCacheSize bounds the decoded-node LRU cache.
const nodeCacheSize = 4096

// repo bundles every handle a command needs: archive, PST store, indexer,
// session handle and broker, plus the loaded config.
type repo struct {
	cfg     *wyrdconfig.Config
	arc     archive.Archive
	store   *pst.Store
	indexer *fact.Indexer
	sess    *session.Handle
	broker  *session.Broker
}

// openRepo requires an initialized .wyrd directory (wyrdctl init) and
// opens every handle a transaction/sync/select command needs.
func openRepo(ctx context.Context) (*repo, error) {
	if _, err := os.Stat(wyrdDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("not a wyrd repository (no %s directory found, run `wyrdctl init`)", wyrdDir)
	}

	cfg, err := wyrdconfig.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	arc, err := archive.Open(ctx, archiveOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open archive backend %q: %w", cfg.Archive.Backend, err)
	}

	store := pst.NewStore(arc, nodeCacheSize)

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	indexer := fact.NewIndexer(store, schema)

	sess, err := session.Open(wyrdDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	return &repo{cfg: cfg, arc: arc, store: store, indexer: indexer, sess: sess, broker: session.NewBroker()}, nil
}

func (r *repo) Close() error {
	return r.sess.Close()
}

func archiveOptions(cfg *wyrdconfig.Config) archive.Options {
	return archive.Options{
		Backend: cfg.Archive.Backend,
		Path:    cfg.Archive.Path,
		S3: archive.S3Config{
			Bucket: cfg.Archive.Bucket,
			Prefix: cfg.Archive.Prefix,
			Region: cfg.Archive.Region,
		},
	}
}

// loadState resolves a session's current revision into a fact.State,
// special-casing the all-zero genesis sentinel, which
// names no materialized node, rather than asking the archive for it.
func loadState(ctx context.Context, ix *fact.Indexer, store *pst.Store, rev fact.Revision) (fact.State, error) {
	if rev == fact.GenesisRevision() {
		state, _, err := ix.Genesis(ctx)
		return state, err
	}
	return fact.StateFromRevision(ctx, store, rev)
}

// loadSession loads the persisted session for the active --did, defaulting
// to the genesis revision pair when this DID has never committed or synced.
func (r *repo) loadSession() (register.Session, error) {
	return r.sess.Load(did)
}

func (r *repo) saveSession(sess register.Session) error {
	return r.sess.Save(did, sess, r.broker)
}

func identityPath() string {
	return filepath.Join(wyrdDir, "identity")
}

// loadOrCreateIdentity loads the ed25519 signing key wyrdctl init created,
// generating one on first use if it is somehow missing.
func loadOrCreateIdentity() (ed25519.PrivateKey, error) {
	path := identityPath()
	data, err := os.ReadFile(path)
	if err == nil && len(data) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(data), nil
	}
	return generateIdentity()
}

func generateIdentity() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	if err := os.MkdirAll(wyrdDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", wyrdDir, err)
	}
	if err := os.WriteFile(identityPath(), priv, 0600); err != nil {
		return nil, fmt.Errorf("write identity: %w", err)
	}
	return priv, nil
}
