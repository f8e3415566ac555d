// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database_test

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/mmrengine/database"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

var storeDrivers = []string{"badger", "leveldb", "memdb", "pebble"}

func openStore(t *testing.T, dbType string) (database.Store, string) {
	path := filepath.Join(t.TempDir(), "db")
	if dbType == "memdb" {
		path = t.Name()
	}
	store, err := database.Create(dbType, path)
	require.NoError(t, err)
	return store, path
}

func forEachDriver(t *testing.T, fn func(t *testing.T, dbType string, store database.Store)) {
	for _, dbType := range storeDrivers {
		dbType := dbType
		t.Run(dbType, func(t *testing.T) {
			store, _ := openStore(t, dbType)
			defer store.Close()
			fn(t, dbType, store)
		})
	}
}

func testLeaf(i int) mmr.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	return mmr.DefaultHasher().HashLeaf(buf[:])
}

func TestStoreBasics(t *testing.T) {
	forEachDriver(t, func(t *testing.T, _ string, store database.Store) {
		value, err := store.Get([]byte("missing"))
		require.NoError(t, err)
		assert.Nil(t, value)

		require.NoError(t, store.Put([]byte("a"), []byte("1")))
		require.NoError(t, store.Put([]byte("b"), []byte("2")))
		require.NoError(t, store.Put([]byte("c"), []byte("3")))

		value, err = store.Get([]byte("b"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), value)

		require.NoError(t, store.Delete([]byte("b")))
		value, err = store.Get([]byte("b"))
		require.NoError(t, err)
		assert.Nil(t, value)

		require.NoError(t, store.Put([]byte("b"), []byte("2")))
		require.NoError(t, store.DeleteRange([]byte("a"), []byte("c")))
		for key, want := range map[string][]byte{"a": nil, "b": nil, "c": []byte("3")} {
			value, err = store.Get([]byte(key))
			require.NoError(t, err)
			assert.Equal(t, want, value, key)
		}
	})
}

func TestCreateExisting(t *testing.T) {
	for _, dbType := range storeDrivers {
		store, path := openStore(t, dbType)
		require.NoError(t, store.Close())

		_, err := database.Create(dbType, path)
		checkDBError(t, dbType+" create existing", err, database.ErrDBExists)
	}
}

func TestReopenKeepsData(t *testing.T) {
	for _, dbType := range storeDrivers {
		store, path := openStore(t, dbType)
		require.NoError(t, store.Put([]byte("key"), []byte("value")))
		require.NoError(t, store.Close())

		store, err := database.OpenOrCreate(dbType, path)
		require.NoError(t, err, dbType)
		value, err := store.Get([]byte("key"))
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), value, dbType)
		require.NoError(t, store.Close())
	}
}

func TestBucketIsolation(t *testing.T) {
	forEachDriver(t, func(t *testing.T, _ string, store database.Store) {
		utxo := database.NewBucket(store, "utxo")
		nested := utxo.Sub("base")
		kernel := database.NewBucket(store, "kernel")
		assert.Equal(t, "utxo/base", nested.Name())

		for i := uint64(0); i < 5; i++ {
			require.NoError(t, utxo.PutEntry(i, []byte{byte(i)}))
			require.NoError(t, nested.PutEntry(i, []byte{byte(i + 10)}))
			require.NoError(t, kernel.PutEntry(i, []byte{byte(i + 20)}))
		}
		require.NoError(t, utxo.PutUint64("length", 5))
		require.NoError(t, utxo.DeleteEntriesFrom(2))

		for i := uint64(0); i < 5; i++ {
			value, err := utxo.GetEntry(i)
			require.NoError(t, err)
			if i < 2 {
				assert.Equal(t, []byte{byte(i)}, value)
			} else {
				assert.Nil(t, value)
			}

			value, err = nested.GetEntry(i)
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(i + 10)}, value)

			value, err = kernel.GetEntry(i)
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(i + 20)}, value)
		}

		length, err := utxo.Uint64("length")
		require.NoError(t, err)
		assert.EqualValues(t, 5, length)

		length, err = kernel.Uint64("length")
		require.NoError(t, err)
		assert.Zero(t, length)

		require.NoError(t, kernel.PutMeta("length", []byte{1, 2}))
		_, err = kernel.Uint64("length")
		assert.True(t, database.IsErrorCode(err, database.ErrCorruption))
	})
}

func TestHashBackend(t *testing.T) {
	forEachDriver(t, func(t *testing.T, _ string, store database.Store) {
		bucket := database.NewBucket(store, "nodes")
		backend := database.NewHashBackend(bucket)

		for i := 0; i < 10; i++ {
			index, err := backend.Push(testLeaf(i))
			require.NoError(t, err)
			assert.EqualValues(t, i, index)
		}
		require.NoError(t, backend.Forget(3))
		require.NoError(t, backend.Truncate(6))

		// a fresh backend reads everything back from the store
		reopened := database.NewHashBackend(bucket)
		length, err := reopened.Len()
		require.NoError(t, err)
		assert.EqualValues(t, 6, length)

		var seen []uint64
		err = reopened.ForEach(func(index uint64, hash *mmr.Hash) error {
			seen = append(seen, index)
			if index == 3 {
				assert.Nil(t, hash)
			} else {
				require.NotNil(t, hash)
				assert.Equal(t, testLeaf(int(index)), *hash)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, seen)

		hash, err := reopened.Get(7)
		require.NoError(t, err)
		assert.Nil(t, hash)

		require.NoError(t, bucket.PutEntry(2, []byte{1, 2, 3}))
		_, err = reopened.Get(2)
		assert.True(t, database.IsErrorCode(err, database.ErrCorruption))
	})
}

func TestCheckpointStore(t *testing.T) {
	forEachDriver(t, func(t *testing.T, _ string, store database.Store) {
		bucket := database.NewBucket(store, "checkpoints")
		cps := database.NewCheckpointStore(bucket)

		var want []*mmr.Checkpoint
		for i := 0; i < 4; i++ {
			cp := mmr.NewCheckpoint([]mmr.Hash{testLeaf(i), testLeaf(i + 100)}, roaring.BitmapOf(uint32(i)))
			require.NoError(t, cps.Push(cp))
			want = append(want, cp)
		}

		length, err := cps.Len()
		require.NoError(t, err)
		assert.EqualValues(t, 4, length)
		for i, cp := range want {
			got, err := cps.Get(uint64(i))
			require.NoError(t, err)
			assert.True(t, cp.Equal(got), "checkpoint %d", i)
		}

		require.NoError(t, cps.Truncate(1))
		got, err := cps.Get(1)
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, bucket.PutUint64("length", 2))
		require.NoError(t, bucket.PutEntry(1, []byte{0xff}))
		_, err = cps.Get(1)
		assert.True(t, database.IsErrorCode(err, database.ErrCorruption))
	})
}

// TestTrackerOnStores runs the same history against every driver and the
// in-memory backend and expects identical roots.
func TestTrackerOnStores(t *testing.T) {
	hasher := mmr.DefaultHasher()
	history := func(tracker *mmr.MerkleChangeTracker) []mmr.Hash {
		var roots []mmr.Hash
		leafID := 0
		for block := 0; block < 6; block++ {
			for i := 0; i < 3; i++ {
				_, err := tracker.Push(testLeaf(leafID))
				require.NoError(t, err)
				leafID++
			}
			_, err := tracker.DeleteAndCompress(uint32(block*2), true)
			require.NoError(t, err)
			_, err = tracker.Commit()
			require.NoError(t, err)

			root, err := tracker.GetStateRoot()
			require.NoError(t, err)
			roots = append(roots, root)
		}
		require.NoError(t, tracker.Rewind(2))
		root, err := tracker.GetStateRoot()
		require.NoError(t, err)
		return append(roots, root)
	}

	base, err := mmr.NewMutableMmr(hasher, mmr.NewMemBackend())
	require.NoError(t, err)
	memTracker, err := mmr.NewMerkleChangeTracker(base, mmr.NewMemBackend(), mmr.NewMemCheckpointLog())
	require.NoError(t, err)
	want := history(memTracker)
	assert.Equal(t, want[3], want[len(want)-1])

	forEachDriver(t, func(t *testing.T, _ string, store database.Store) {
		base, err := mmr.NewMutableMmr(hasher, database.NewHashBackend(database.NewBucket(store, "base")))
		require.NoError(t, err)
		tracker, err := mmr.NewMerkleChangeTracker(base,
			database.NewHashBackend(database.NewBucket(store, "live")),
			database.NewCheckpointStore(database.NewBucket(store, "checkpoints")))
		require.NoError(t, err)
		assert.Equal(t, want, history(tracker))

		// reopening rebuilds the same live state from base and checkpoints
		reopened, err := mmr.NewMerkleChangeTracker(base,
			database.NewHashBackend(database.NewBucket(store, "live")),
			database.NewCheckpointStore(database.NewBucket(store, "checkpoints")))
		require.NoError(t, err)
		root, err := reopened.GetStateRoot()
		require.NoError(t, err)
		assert.Equal(t, want[len(want)-1], root)
	})
}
