// Package bolt persists resolved values in a bolt database on disk.
//
// Values are stored as json together with their type, so any config
// value round-trips. The database is not encrypted; do not point it at
// secrets without an encrypting layer in front.
package bolt

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("values")

// Cache stores resolved values in bolt db.
type Cache struct {
	db *bolt.DB
}

// DefaultFile returns the default file to use for the database on disk.
func DefaultFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get home dir")
	}
	return filepath.Join(home, ".confgraph", "cache.db"), nil
}

// New creates and opens a database at the given file.
// If the file or directory does not exist, it is created.
func New(file string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, errors.Wrapf(err, "ensure dir exists: %s", filepath.Dir(file))
	}
	db, err := bolt.Open(file, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt db")
	}
	return &Cache{db: db}, nil
}

// Close closes the database and releases all resources.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the value stored under key. The second return value is
// false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (cty.Value, bool, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			data = append(data, v...)
		}
		return nil
	})
	if err != nil {
		return cty.NilVal, false, err
	}
	if data == nil {
		return cty.NilVal, false, nil
	}
	v, err := ctyjson.Unmarshal(data, cty.DynamicPseudoType)
	if err != nil {
		return cty.NilVal, false, errors.Wrap(err, "unmarshal cached value")
	}
	return v, true, nil
}

// Put stores a value under key.
func (c *Cache) Put(ctx context.Context, key string, value cty.Value) error {
	data, err := ctyjson.Marshal(value, cty.DynamicPseudoType)
	if err != nil {
		return errors.Wrap(err, "marshal value")
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return errors.Wrap(err, "ensure bucket")
		}
		return bucket.Put([]byte(key), data)
	})
}
