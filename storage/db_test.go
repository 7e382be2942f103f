package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	level, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	bolt, err := Open(BackendBolt, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
}

func TestDatabaseBatchSemantics(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("a"), []byte("1")))
			require.NoError(t, db.Put([]byte("b"), []byte("2")))

			batch := NewBatch()
			batch.Put([]byte("c"), []byte("3"))
			batch.Delete([]byte("a"))
			batch.Put([]byte("b"), []byte("22"))
			require.NoError(t, db.Write(batch))

			_, err := db.Get([]byte("a"))
			require.True(t, errors.Is(err, ErrNotFound))
			got, err := db.Get([]byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("22"), got)
			ok, err := db.Has([]byte("c"))
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, db.Delete([]byte("c")))
			ok, err = db.Has([]byte("c"))
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("key"), []byte("value")))
	db.Close()

	reopened, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestBatchOpsSortedByKey(t *testing.T) {
	batch := NewBatch()
	batch.Put([]byte("z"), []byte("1"))
	batch.Delete([]byte("a"))
	ops := batch.Ops()
	require.Len(t, ops, 2)
	require.Equal(t, []byte("a"), ops[0].Key)
	require.True(t, ops[0].Deleted())
	require.False(t, ops[1].Deleted())
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open("rocks", t.TempDir())
	require.Error(t, err)
}
