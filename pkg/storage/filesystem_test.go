package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFilesystemPutGetOverwrite(t *testing.T) {
	store := NewFilesystemFromFs(afero.NewMemMapFs(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "issued/ev/user/SIGEA-ABCD-25.pdf", "application/pdf", []byte("one")))
	require.NoError(t, store.Put(ctx, "issued/ev/user/SIGEA-ABCD-25.pdf", "application/pdf", []byte("two")))

	data, err := store.Get(ctx, "issued/ev/user/SIGEA-ABCD-25.pdf")
	require.NoError(t, err)
	require.Equal(t, []byte("two"), data)
}

func TestFilesystemMissingAndDelete(t *testing.T) {
	store := NewFilesystemFromFs(afero.NewMemMapFs(), zerolog.Nop())
	ctx := context.Background()

	_, err := store.Get(ctx, "templates/none.png")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "templates/ev.png", "image/png", []byte("x")))
	require.NoError(t, store.Delete(ctx, "templates/ev.png"))
	require.NoError(t, store.Delete(ctx, "templates/ev.png"))

	_, err = store.Get(ctx, "templates/ev.png")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	store := NewFilesystemFromFs(afero.NewMemMapFs(), zerolog.Nop())

	err := store.Put(context.Background(), "../etc/passwd", "text/plain", []byte("x"))
	require.Error(t, err)

	err = store.Put(context.Background(), "  ", "text/plain", []byte("x"))
	require.Error(t, err)
}
