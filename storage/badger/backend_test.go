package badger

import (
	"context"
	"testing"

	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir+"/nested/db", false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	catalog, err := NewCatalog(backend)
	require.NoError(t, err)
	_, err = catalog.Count(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestConstructors_RequireBackend(t *testing.T) {
	_, err := NewVectorStore(nil, 3)
	assert.ErrorIs(t, err, storage.ErrBackendRequired)

	_, err = NewFullTextIndex(nil)
	assert.ErrorIs(t, err, storage.ErrBackendRequired)

	_, err = NewCatalog(nil)
	assert.ErrorIs(t, err, storage.ErrBackendRequired)

	_, err = NewMeetingRepository(nil)
	assert.ErrorIs(t, err, storage.ErrBackendRequired)
}

func TestKeys(t *testing.T) {
	t.Run("id keys sort by id", func(t *testing.T) {
		a := makeVectorKey(2)
		b := makeVectorKey(256)
		assert.Less(t, string(a), string(b))
		assert.Equal(t, core.ID(256), idFromKey(b))
	})

	t.Run("term prefixes do not overlap", func(t *testing.T) {
		short := makeTermPrefix("bu")
		long := makePostingKey("budget", 1)
		assert.NotEqual(t, string(short), string(long[:len(short)]))
	})

	t.Run("short key", func(t *testing.T) {
		assert.Equal(t, core.ID(0), idFromKey([]byte("x")))
	})
}

func TestStripedLock(t *testing.T) {
	var locks stripedLock
	unlock := locks.lock(1)
	// A different stripe must not block.
	unlockOther := locks.lock(2)
	unlockOther()
	unlock()

	// The same stripe is reusable after unlock.
	locks.lock(1 + lockStripes)()
}
