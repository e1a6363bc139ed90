package recordcache

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/domain"
)

func TestBoltPersister_RoundTrip(t *testing.T) {
	p := NewBoltPersister(filepath.Join(t.TempDir(), "cache.db"))
	entries := []domain.CacheEntry{
		{Domain: "a.test", Value: "1.1.1.1", Expiration: time.Unix(0, 1_700_000_000_123_456_789)},
		{Domain: "example.com", Value: "93.184.216.34", Expiration: epoch.Add(300 * time.Second)},
	}
	require.NoError(t, p.Save(entries))

	got, err := p.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range entries {
		assert.Equal(t, entries[i].Domain, got[i].Domain)
		assert.Equal(t, entries[i].Value, got[i].Value)
		assert.True(t, entries[i].Expiration.Equal(got[i].Expiration))
	}

	// a second save replaces rather than merges
	require.NoError(t, p.Save(entries[:1]))
	got, err = p.Load()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBoltPersister_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	got, err := NewBoltPersister(path).Load()
	assert.NoError(t, err)
	assert.Empty(t, got)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "load does not create the file")
}

func TestBoltPersister_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a bolt file, just some bytes"), 0o600))
	_, err := NewBoltPersister(path).Load()
	assert.Error(t, err)
}

func TestBoltPersister_UnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	p := NewBoltPersister(path)
	require.NoError(t, p.Save([]domain.CacheEntry{{Domain: "a.test", Value: "1.1.1.1", Expiration: epoch}}))

	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		v := make([]byte, 4)
		binary.BigEndian.PutUint32(v, 99)
		return tx.Bucket(bucketMeta).Put(keyVersion, v)
	}))
	require.NoError(t, db.Close())

	_, err = p.Load()
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestBoltPersister_BadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	p := NewBoltPersister(path)
	require.NoError(t, p.Save([]domain.CacheEntry{{Domain: "good.test", Value: "1.1.1.1", Expiration: epoch}}))

	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if err := b.Put([]byte("short.test"), []byte{1, 2, 3}); err != nil {
			return err
		}
		return b.Put([]byte("notip.test"), append(make([]byte, 8), "nope"...))
	}))
	require.NoError(t, db.Close())

	got, err := p.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "short.test")
	assert.Contains(t, err.Error(), "notip.test")
	require.Len(t, got, 1)
	assert.Equal(t, "good.test", got[0].Domain)
}

func TestCache_BoltPersistRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, clk := newTestCache(t, 10, NewBoltPersister(path))
	c.Put("example.com", "93.184.216.34", 300)
	clk.Advance(time.Second)
	c.Put("example.org", "192.0.2.1", 60)
	require.NoError(t, c.Persist())

	fresh, err := New(10, clk, NewBoltPersister(path), log.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, fresh.Restore())

	want := c.Snapshot()
	got := fresh.Snapshot()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Domain, got[i].Domain)
		assert.Equal(t, want[i].Value, got[i].Value)
		assert.True(t, want[i].Expiration.Equal(got[i].Expiration))
	}
}
