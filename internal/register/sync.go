package register

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/wyrdstore/wyrd/internal/fact"
	"github.com/wyrdstore/wyrd/internal/integrate"
	"github.com/wyrdstore/wyrd/internal/pst"
	"github.com/wyrdstore/wyrd/internal/wyrderr"
)

const defaultMaxPushRetries = 8

// Session is the per-DID persisted pointer pair names.
type Session struct {
	LocalBase    fact.Revision
	LocalCurrent fact.Revision
}

// SyncDriver drives the pull/merge/push reconciliation loop for one DID.
type SyncDriver struct {
	Client         *Client
	Store          *pst.Store
	DID            string
	Signer         ed25519.PrivateKey
	MaxPushRetries int
}

func NewSyncDriver(client *Client, store *pst.Store, did string, signer ed25519.PrivateKey) *SyncDriver {
	return &SyncDriver{Client: client, Store: store, DID: did, Signer: signer, MaxPushRetries: defaultMaxPushRetries}
}

func (d *SyncDriver) maxRetries() int {
	if d.MaxPushRetries > 0 {
		return d.MaxPushRetries
	}
	return defaultMaxPushRetries
}

// Pull fetches the register's current revision, integrates the local
// base->current diff onto it, and returns the new session. If the
// register has never seen this DID, or already agrees with the local
// base, the session is returned unchanged.
func (d *SyncDriver) Pull(ctx context.Context, sess Session) (Session, error) {
	remoteHex, ok, err := d.Client.Head(ctx, d.DID)
	if err != nil {
		return sess, err
	}
	if !ok {
		return sess, nil
	}
	remoteRev, err := fact.ParseHexString(remoteHex)
	if err != nil {
		return sess, fmt.Errorf("register: parse remote revision: %w", err)
	}
	if remoteRev == sess.LocalBase {
		return sess, nil
	}

	baseState, err := fact.StateFromRevision(ctx, d.Store, sess.LocalBase)
	if err != nil {
		return sess, err
	}
	localState, err := fact.StateFromRevision(ctx, d.Store, sess.LocalCurrent)
	if err != nil {
		return sess, err
	}
	remoteState, err := fact.StateFromRevision(ctx, d.Store, remoteRev)
	if err != nil {
		return sess, err
	}

	merged, err := integrate.State(ctx, d.Store, baseState, localState, remoteState)
	if err != nil {
		return sess, err
	}

	return Session{LocalBase: remoteRev, LocalCurrent: fact.RevisionOf(merged)}, nil
}

// Push ensures every node reachable from local_current is already in the
// archive (true by construction here: every commit writes through the
// store before returning), then attempts the CAS update. On 412 it pulls,
// integrates, and retries, up to MaxPushRetries attempts. If every attempt
// is exhausted it returns a Transport-kind error ("push failed after N
// attempts"); wyrderr has no separate kind for this case.
func (d *SyncDriver) Push(ctx context.Context, sess Session) (Session, error) {
	ifMatch := sess.LocalBase.HexString()
	for attempt := 0; attempt < d.maxRetries(); attempt++ {
		env := Envelope{
			Cmd: CmdStateAssert,
			Iss: d.DID,
			Sub: d.DID,
			Args: map[string]interface{}{
				"revision": sess.LocalCurrent.HexString(),
			},
		}
		sig, err := Sign(d.Signer, env)
		if err != nil {
			return sess, fmt.Errorf("register: sign envelope: %w", err)
		}

		_, err = d.Client.Put(ctx, d.DID, ifMatch, env, sig)
		if err == nil {
			sess.LocalBase = sess.LocalCurrent
			return sess, nil
		}
		if !wyrderr.Is(err, wyrderr.RevisionMismatch) {
			return sess, err
		}

		// A register that has never seen this DID only accepts an empty If-Match.
		_, known, herr := d.Client.Head(ctx, d.DID)
		if herr != nil {
			return sess, herr
		}
		if !known {
			ifMatch = ""
			continue
		}

		sess, err = d.Pull(ctx, sess)
		if err != nil {
			return sess, err
		}
		ifMatch = sess.LocalBase.HexString()
	}
	return sess, wyrderr.New(wyrderr.Transport, fmt.Sprintf("push failed after %d attempts", d.maxRetries()), nil)
}

// Sync runs a Pull immediately followed by a Push, the `wyrdctl sync`
// convenience path.
func (d *SyncDriver) Sync(ctx context.Context, sess Session) (Session, error) {
	sess, err := d.Pull(ctx, sess)
	if err != nil {
		return sess, err
	}
	return d.Push(ctx, sess)
}

// RetryTransport wraps a Transport-classified operation with the bounded
// exponential backoff calls for ("Retried with exponential
// backoff up to a bounded count"). Used by callers that want retry
// semantics around a single Head/Put call rather than the full
// pull/merge/push loop.
func RetryTransport(ctx context.Context, maxRetries int, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !wyrderr.Is(err, wyrderr.Transport) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
