package keystore

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	boltBucket = []byte("eeprom")
	boltKey    = []byte("image")
)

// BoltRegion keeps the image in a bbolt database. Every Store is a single
// transaction, which gives the atomic write a flat file cannot promise.
type BoltRegion struct {
	db *bolt.DB
}

// OpenBoltRegion opens (or creates) the database at path
func OpenBoltRegion(path string) (*BoltRegion, error) {
	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltRegion{db: db}, nil
}

// Load returns a copy of the stored image
func (b *BoltRegion) Load() ([]byte, error) {
	var image []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return ErrBlank
		}
		v := bucket.Get(boltKey)
		if v == nil {
			return ErrBlank
		}
		// v is only valid inside the transaction.
		image = make([]byte, len(v))
		copy(image, v)
		return nil
	})
	if err != nil && !errors.Is(err, ErrBlank) {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return image, err
}

// Store writes image in one transaction
func (b *BoltRegion) Store(image []byte) error {
	if len(image) > Capacity {
		return fmt.Errorf("image of %d bytes exceeds region capacity %d", len(image), Capacity)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put(boltKey, image)
	})
}

// Erase deletes the image. Freed pages are not zeroed by bbolt.
func (b *BoltRegion) Erase() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(boltKey)
	})
}

// Close closes the database
func (b *BoltRegion) Close() error {
	return b.db.Close()
}
