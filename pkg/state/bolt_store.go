package state

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

const bucketPageState = "pagestate"

// BoltStore keeps page state in a bbolt database, one JSON record per key in
// the pagestate bucket.
type BoltStore struct {
	Now func() time.Time

	db *bolt.DB
}

type boltRecord struct {
	Blob string `json:"blob"`
	Meta Meta   `json:"meta"`
}

// OpenBoltStore opens (creating when needed) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("state: open bolt %q: %w", path, err)
	}
	store, err := NewBoltStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewBoltStore wraps an open database and ensures the bucket exists.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPageState))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("state: initialize bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.db.Path()
}

func (s *BoltStore) Load(_ context.Context, ref Ref) (string, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", Meta{}, false, err
	}
	var record boltRecord
	found := false
	err = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketPageState)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &record)
	})
	if err != nil {
		return "", Meta{}, false, fmt.Errorf("state: load %q: %w", key, err)
	}
	if !found {
		return "", Meta{}, false, nil
	}
	return record.Blob, record.Meta, true, nil
}

func (s *BoltStore) Save(_ context.Context, ref Ref, blob string, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	stamped, err := stamp(meta, blob, s.now())
	if err != nil {
		return Meta{}, err
	}
	raw, err := json.Marshal(boltRecord{Blob: blob, Meta: stamped})
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %q: %w", key, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPageState)).Put([]byte(key), raw)
	})
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q: %w", key, err)
	}
	return cloneMeta(stamped), nil
}

func (s *BoltStore) Delete(_ context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPageState)).Delete([]byte(key))
	})
}

func (s *BoltStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
