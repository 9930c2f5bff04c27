package session

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var credentialsBucket = []byte("credentials")

// BoltBackend persists sealed credentials in a local bbolt file.
type BoltBackend struct {
	db     *bbolt.DB
	sealer *sealer
}

// OpenBolt opens (or creates) the database at path. key must be 32 bytes.
func OpenBolt(path, key string) (*BoltBackend, error) {
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session db %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create credentials bucket: %w", err)
	}
	return &BoltBackend{db: db, sealer: s}, nil
}

func (b *BoltBackend) Get(ctx context.Context, key string) (string, error) {
	var sealed []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(credentialsBucket)
		if bucket == nil {
			return fmt.Errorf("credentials bucket not found")
		}
		// bbolt values are only valid for the life of the transaction
		sealed = append([]byte(nil), bucket.Get([]byte(key))...)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.sealer.open(ctx, sealed)
}

func (b *BoltBackend) Set(ctx context.Context, key, value string) error {
	sealed, err := b.sealer.seal(ctx, value)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(credentialsBucket)
		if bucket == nil {
			return fmt.Errorf("credentials bucket not found")
		}
		return bucket.Put([]byte(key), sealed)
	})
}

func (b *BoltBackend) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(credentialsBucket)
		if bucket == nil {
			return fmt.Errorf("credentials bucket not found")
		}
		return bucket.Delete([]byte(key))
	})
}

func (b *BoltBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
