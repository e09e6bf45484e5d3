package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sigea-go-api/internal/config"
	"github.com/noah-isme/sigea-go-api/pkg/storage"
)

func TestNewObjectStorageLocal(t *testing.T) {
	store, err := newObjectStorage(config.Config{StorageDriver: config.StorageLocal, StorageLocalRoot: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &storage.Filesystem{}, store)
}

func TestNewObjectStorageRejectsMissingCredentials(t *testing.T) {
	_, err := newObjectStorage(config.Config{StorageDriver: config.StorageCloudinary}, zerolog.Nop())
	require.Error(t, err)

	_, err = newObjectStorage(config.Config{StorageDriver: config.StorageOSS}, zerolog.Nop())
	require.Error(t, err)
}
