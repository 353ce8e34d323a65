package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"price-pipeline/core/storage"
	"price-pipeline/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestObjectStore_Hash(t *testing.T) {
	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "prices", "pending/acme/a.json", mock.Anything).
		Return(io.NopCloser(strings.NewReader("hello")), nil)

	store := storage.NewObjectStore(client, "prices")
	sum, err := store.Hash(context.Background(), "pending/acme/a.json")
	require.NoError(t, err)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}

func TestObjectStore_Move(t *testing.T) {
	t.Run("CopyThenRemove", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("CopyObject", mock.Anything,
			minio.CopyDestOptions{Bucket: "prices", Object: "processed/acme/a.json"},
			minio.CopySrcOptions{Bucket: "prices", Object: "pending/acme/a.json"},
		).Return(minio.UploadInfo{}, nil)
		client.On("RemoveObject", mock.Anything, "prices", "pending/acme/a.json", mock.Anything).Return(nil)

		store := storage.NewObjectStore(client, "prices")
		err := store.Move(context.Background(), "pending/acme/a.json", "processed/acme/a.json")
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("CopyFailureKeepsSource", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("CopyObject", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, errors.New("denied"))

		store := storage.NewObjectStore(client, "prices")
		err := store.Move(context.Background(), "pending/acme/a.json", "processed/acme/a.json")
		assert.Error(t, err)
		client.AssertNotCalled(t, "RemoveObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestObjectStore_EnsureBucket(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "prices").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "prices", mock.Anything).Return(nil)

	store := storage.NewObjectStore(client, "prices")
	require.NoError(t, store.EnsureBucket(context.Background()))
	client.AssertCalled(t, "MakeBucket", mock.Anything, "prices", mock.Anything)
}

func TestRelocate(t *testing.T) {
	assert.Equal(t, "processed/acme/a.json", storage.Relocate("pending/acme/a.json", "pending", "processed"))
	assert.Equal(t, "unprocessed/acme/a.json", storage.Relocate("pending/acme/a.json", "pending/", "unprocessed"))
	assert.Equal(t, "processed/other/a.json", storage.Relocate("other/a.json", "pending", "processed"))
}

func TestFolderOf(t *testing.T) {
	assert.Equal(t, "acme", storage.FolderOf("pending/acme/a.json", "pending"))
	assert.Equal(t, "ACME", storage.FolderOf("pending/ACME/sub/a.json", "pending"))
	assert.Equal(t, "", storage.FolderOf("pending/a.json", "pending"))
	assert.Equal(t, "", storage.FolderOf("processed/acme/a.json", "pending"))
	assert.Equal(t, "acme", storage.FolderOf("acme/a.json", ""))
}
