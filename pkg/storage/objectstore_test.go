package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStoreSaveOpenDelete(t *testing.T) {
	store, err := NewObjectStore(t.TempDir())
	require.NoError(t, err)

	obj, err := store.Save(BucketContentFiles, "video/lesson-1.mp4", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), obj.Size)
	assert.Equal(t, "video/lesson-1.mp4", obj.Path)

	file, err := store.Open(BucketContentFiles, "video/lesson-1.mp4")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, store.Delete(BucketContentFiles, "video/lesson-1.mp4"))
	// deleting again is a no-op
	require.NoError(t, store.Delete(BucketContentFiles, "video/lesson-1.mp4"))

	_, err = store.Open(BucketContentFiles, "video/lesson-1.mp4")
	assert.Error(t, err)
}

func TestObjectStoreRejectsUnknownBucket(t *testing.T) {
	store, err := NewObjectStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("not-a-bucket", "x.bin", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestObjectStoreCleanupPrefixOlderThan(t *testing.T) {
	base := t.TempDir()
	store, err := NewObjectStore(base)
	require.NoError(t, err)

	for _, relPath := range []string{"video/temp-123-a.mp4", "video/keep-1.mp4", "pdf/temp-456-b.pdf"} {
		_, err = store.Save(BucketContentFiles, relPath, strings.NewReader("old"))
		require.NoError(t, err)
	}
	_, err = store.Save(BucketContentFiles, "video/temp-789-c.mp4", strings.NewReader("fresh"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	for _, relPath := range []string{"video/temp-123-a.mp4", "video/keep-1.mp4", "pdf/temp-456-b.pdf"} {
		full := filepath.Join(base, BucketContentFiles, filepath.FromSlash(relPath))
		require.NoError(t, os.Chtimes(full, stale, stale))
	}

	// prefix is matched against the bucket-relative path, so the sweep is
	// scoped to one kind directory at a time
	deleted, err := store.CleanupPrefixOlderThan(BucketContentFiles, "video/temp-", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "video/temp-123-a.mp4", deleted[0])

	for _, relPath := range []string{"video/keep-1.mp4", "video/temp-789-c.mp4", "pdf/temp-456-b.pdf"} {
		_, err = store.Open(BucketContentFiles, relPath)
		assert.NoError(t, err, relPath)
	}
}
