package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LocalBaseDir = t.TempDir()
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return store
}

func TestPutLocalNestsBooksAndCoversUnderExpectedDirs(t *testing.T) {
	store := newLocalStore(t)

	bookPath, err := store.Put(context.Background(), "books/test.pdf", []byte("pdf-bytes"), "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, bookPath, "/books/test.pdf")

	coverPath, err := store.Put(context.Background(), "covers/sess1_cover.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Contains(t, coverPath, "/sessions/sess1_cover.png")
}

func TestGetLocalRoundTripsAbsolutePath(t *testing.T) {
	store := newLocalStore(t)
	path, err := store.Put(context.Background(), "books/roundtrip.pdf", []byte("hello"), "application/pdf")
	require.NoError(t, err)

	data, err := store.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestGetLocalFindsCoverUnderSessionsDirFromRelativePath(t *testing.T) {
	store := newLocalStore(t)
	_, err := store.Put(context.Background(), "covers/relative.png", []byte("png"), "image/png")
	require.NoError(t, err)

	data, err := store.Get(context.Background(), "covers/relative.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestDeleteLocalReportsAbsenceWithoutError(t *testing.T) {
	store := newLocalStore(t)
	existed, err := store.Delete(context.Background(), "books/missing.pdf")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestAddressForUserPrefixesOnlyWhenGCSEnabled(t *testing.T) {
	uid := "user-1"
	assert.Equal(t, "covers/x.png", AddressForUser("covers/x.png", &uid, false))
	assert.Equal(t, "users/user-1/covers/x.png", AddressForUser("covers/x.png", &uid, true))
	assert.Equal(t, "users/user-1/books/x.pdf", AddressForUser("books/x.pdf", &uid, true))
	assert.Equal(t, "books/x.pdf", AddressForUser("books/x.pdf", nil, true))
}

func TestSignedURLFallsBackToAPIRelativePathWithoutSigningConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GCSEnabled = true
	cfg.BucketName = "test-bucket"
	store := &Store{cfg: cfg}

	url, err := store.SignedURL(context.Background(), "gs://test-bucket/covers/x.png")
	require.NoError(t, err)
	assert.Equal(t, "/api/files/covers/x.png", url)
}
