package recordcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/multierr"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

// SnapshotVersion is the on-disk layout written by BoltPersister.
const SnapshotVersion uint32 = 1

var (
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")
	keyVersion    = []byte("version")
)

// ErrUnsupportedVersion is returned by Load for a snapshot written in an
// unknown layout.
var ErrUnsupportedVersion = errors.New("unsupported cache snapshot version")

// BoltPersister stores snapshots in a bbolt file.
//
//	meta/version      uint32 big endian
//	entries/<domain>  8-byte big endian unix-nano expiration, then the value
//
// The file is opened per operation so other processes can read it between
// writes.
type BoltPersister struct {
	path string
}

// NewBoltPersister returns a persister for the file at path.
func NewBoltPersister(path string) *BoltPersister {
	return &BoltPersister{path: path}
}

// Path returns the snapshot file path.
func (p *BoltPersister) Path() string {
	return p.path
}

func (p *BoltPersister) open(readOnly bool) (*bbolt.DB, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(p.path), 0o750); err != nil {
			return nil, err
		}
	}
	return bbolt.Open(p.path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: readOnly})
}

// Save replaces the stored snapshot with entries in one transaction.
func (p *BoltPersister) Save(entries []domain.CacheEntry) error {
	db, err := p.open(false)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		version := make([]byte, 4)
		binary.BigEndian.PutUint32(version, SnapshotVersion)
		if err := meta.Put(keyVersion, version); err != nil {
			return err
		}

		if tx.Bucket(bucketEntries) != nil {
			if err := tx.DeleteBucket(bucketEntries); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Domain == "" {
				continue
			}
			if err := b.Put([]byte(e.Domain), encodeEntry(e)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads the stored snapshot. A missing file is an empty snapshot.
// Undecodable entries are skipped and reported together in the error.
func (p *BoltPersister) Load() ([]domain.CacheEntry, error) {
	if _, err := os.Stat(p.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	db, err := p.open(true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var (
		entries []domain.CacheEntry
		errs    error
	)
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		b := tx.Bucket(bucketEntries)
		if meta == nil && b == nil {
			return nil
		}
		if meta == nil {
			return fmt.Errorf("%w: missing meta bucket", ErrUnsupportedVersion)
		}
		v := meta.Get(keyVersion)
		if len(v) != 4 {
			return fmt.Errorf("%w: malformed version", ErrUnsupportedVersion)
		}
		if version := binary.BigEndian.Uint32(v); version != SnapshotVersion {
			return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			e, err := decodeEntry(k, v)
			if err != nil {
				errs = multierr.Append(errs, err)
				return nil
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, errs
}

func encodeEntry(e domain.CacheEntry) []byte {
	buf := make([]byte, 8, 8+len(e.Value))
	binary.BigEndian.PutUint64(buf, uint64(e.Expiration.UnixNano()))
	return append(buf, e.Value...)
}

func decodeEntry(k, v []byte) (domain.CacheEntry, error) {
	if len(v) < 8 {
		return domain.CacheEntry{}, fmt.Errorf("entry %q: %d bytes is too short", k, len(v))
	}
	value := string(v[8:])
	if _, err := domain.ParseDottedQuad(value); err != nil {
		return domain.CacheEntry{}, fmt.Errorf("entry %q: %w", k, err)
	}
	return domain.CacheEntry{
		Domain:     string(k),
		Expiration: time.Unix(0, int64(binary.BigEndian.Uint64(v[:8]))),
		Value:      value,
	}, nil
}
