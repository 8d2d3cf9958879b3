package datasets

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/scigo/workflows/pkg/errors"
)

const (
	blobsBucket = "blobs" // raw dataset files keyed by file name
	metaBucket  = "meta"  // CacheEntry JSON keyed by file name

	cacheFileName = "scigo-datasets.db"
)

// CacheEntry describes a cached file.
type CacheEntry struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Size      int       `json:"size"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache stores downloaded dataset files in a BoltDB file under the data
// home directory.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens (creating if needed) the cache database in dataHome.
func OpenCache(dataHome string) (*Cache, error) {
	if err := os.MkdirAll(dataHome, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data home %s", dataHome)
	}
	db, err := bbolt.Open(filepath.Join(dataHome, cacheFileName), 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open dataset cache")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{blobsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return errors.Wrapf(err, "create %s bucket", name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// OpenCacheReadOnly opens the cache database in dataHome without writing
// to disk. A missing database yields an empty cache.
func OpenCacheReadOnly(dataHome string) (*Cache, error) {
	path := filepath.Join(dataHome, cacheFileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &Cache{}, nil
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "open dataset cache")
	}
	return &Cache{db: db}, nil
}

// Close releases the database file lock.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns a copy of the cached file, or ok=false if it is absent.
func (c *Cache) Get(name string) (data []byte, ok bool, err error) {
	if c.db == nil {
		return nil, false, nil
	}
	err = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(blobsBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(name))
		if v == nil {
			return nil
		}
		// bbolt values are only valid inside the transaction.
		data = append([]byte(nil), v...)
		ok = true
		return nil
	})
	return data, ok, err
}

// Put stores data under name and records where it came from.
func (c *Cache) Put(name, source string, data []byte) error {
	if c.db == nil || c.db.IsReadOnly() {
		return errors.Newf("store %s: dataset cache is read-only", name)
	}
	meta, err := json.Marshal(CacheEntry{
		Name:      name,
		Source:    source,
		Size:      len(data),
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(blobsBucket)).Put([]byte(name), data); err != nil {
			return errors.Wrapf(err, "store %s", name)
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(name), meta)
	})
}

// Entries lists the metadata of every cached file.
func (c *Cache) Entries() ([]CacheEntry, error) {
	var entries []CacheEntry
	if c.db == nil {
		return nil, nil
	}
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var e CacheEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.Wrap(err, "decode cache entry")
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}
