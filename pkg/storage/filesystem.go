package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Filesystem keeps objects as files below a root directory.
type Filesystem struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewFilesystem roots an object store at dir on the OS filesystem.
func NewFilesystem(dir string, logger zerolog.Logger) (*Filesystem, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage root must be provided")
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return NewFilesystemFromFs(afero.NewBasePathFs(osFs, dir), logger), nil
}

// NewFilesystemFromFs wraps an existing afero filesystem, typically afero.NewMemMapFs in tests.
func NewFilesystemFromFs(fsys afero.Fs, logger zerolog.Logger) *Filesystem {
	return &Filesystem{
		fs:     fsys,
		logger: logger.With().Str("component", "storage_fs").Logger(),
	}
}

func (s *Filesystem) Put(ctx context.Context, key, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}

	s.logger.Debug().Str("key", name).Int("bytes", len(data)).Msg("object stored")
	return nil
}

func (s *Filesystem) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *Filesystem) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func cleanKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("object key must not be empty")
	}

	name := path.Clean("/" + trimmed)
	if name == "/" || strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return name, nil
}
