package store

import (
	"errors"
	"strings"

	"go.etcd.io/bbolt"
)

// BucketSessions holds one record per DID: the persisted local_base and
// local_current revision pair calls out.
var BucketSessions = []byte("sessions")

type DB struct{ *bbolt.DB }

func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0666, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(BucketSessions)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func (db *DB) Close() error { return db.DB.Close() }

// PutSession persists the local_base/local_current hex pair for did.
func (db *DB) PutSession(did, baseHex, currentHex string) error {
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketSessions).Put([]byte(did), []byte(baseHex+"|"+currentHex))
	})
}

// GetSession retrieves the persisted pair for did. ok is false if did has
// never been saved.
func (db *DB) GetSession(did string) (baseHex, currentHex string, ok bool, err error) {
	err = db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketSessions).Get([]byte(did))
		if v == nil {
			return nil
		}
		parts := strings.SplitN(string(v), "|", 2)
		if len(parts) != 2 {
			return errors.New("store: malformed session record")
		}
		baseHex, currentHex, ok = parts[0], parts[1], true
		return nil
	})
	return
}

// DeleteSession removes did's persisted session.
func (db *DB) DeleteSession(did string) error {
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketSessions).Delete([]byte(did))
	})
}

// ListDIDs returns every DID with a persisted session.
func (db *DB) ListDIDs() ([]string, error) {
	var dids []string
	err := db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketSessions).ForEach(func(k, _ []byte) error {
			dids = append(dids, string(k))
			return nil
		})
	})
	return dids, err
}
