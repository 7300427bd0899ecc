package simplemunki_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-munki/pkg/simplemunki"
)

func setupFileStore(t *testing.T, options ...simplemunki.Option) (*simplemunki.FileStore, string) {
	t.Helper()
	root := t.TempDir()
	options = append([]simplemunki.Option{simplemunki.WithRoot(root)}, options...)
	store, err := simplemunki.NewFileStore(options...)
	require.NoError(t, err)
	require.NotNil(t, store)
	return store, root
}

func TestFileStoreCreation(t *testing.T) {
	store, err := simplemunki.NewFileStore()
	assert.Error(t, err)
	assert.Nil(t, store)

	store, err = simplemunki.NewFileStore(simplemunki.WithRoot(t.TempDir()))
	assert.NoError(t, err)
	assert.NotNil(t, store)
}

func TestFileStoreFullPath(t *testing.T) {
	store, root := setupFileStore(t)

	got := store.FullPath("icons", "apps/Firefox.png")
	assert.Equal(t, filepath.Join(root, "icons", "apps", "Firefox.png"), got)
	assert.True(t, filepath.IsAbs(got))
}

func TestFileStoreNew(t *testing.T) {
	store, root := setupFileStore(t)
	ctx := context.Background()

	t.Run("creates file and parents from upload", func(t *testing.T) {
		payload := strings.Repeat("png bytes ", 100)
		err := store.New(ctx, "icons", strings.NewReader(payload), "apps/Firefox.png", "")
		require.NoError(t, err)

		onDisk, err := os.ReadFile(filepath.Join(root, "icons", "apps", "Firefox.png"))
		require.NoError(t, err)
		assert.Equal(t, payload, string(onDisk))
	})

	t.Run("existing file is left alone", func(t *testing.T) {
		err := store.New(ctx, "icons", strings.NewReader("other bytes"), "apps/Firefox.png", "")
		assert.ErrorIs(t, err, simplemunki.ErrFileAlreadyExists)

		onDisk, err := os.ReadFile(filepath.Join(root, "icons", "apps", "Firefox.png"))
		require.NoError(t, err)
		assert.NotEqual(t, "other bytes", string(onDisk))
	})
}

func TestFileStoreWrite(t *testing.T) {
	store, root := setupFileStore(t)
	ctx := context.Background()

	t.Run("overwrites in place", func(t *testing.T) {
		require.NoError(t, store.New(ctx, "pkgs", bytes.NewReader([]byte("v1")), "apps/Thing-1.0.pkg", ""))
		require.NoError(t, store.Write(ctx, "pkgs", bytes.NewReader([]byte("v2")), "apps/Thing-1.0.pkg", ""))

		onDisk, err := os.ReadFile(filepath.Join(root, "pkgs", "apps", "Thing-1.0.pkg"))
		require.NoError(t, err)
		assert.Equal(t, "v2", string(onDisk))
	})

	t.Run("does not create parent directories", func(t *testing.T) {
		err := store.Write(ctx, "pkgs", bytes.NewReader([]byte("x")), "missing/parent.pkg", "")
		assert.ErrorIs(t, err, simplemunki.ErrFileWrite)
	})
}

func TestFileStoreDelete(t *testing.T) {
	store, root := setupFileStore(t)
	ctx := context.Background()

	t.Run("removes the file", func(t *testing.T) {
		require.NoError(t, store.New(ctx, "icons", strings.NewReader("x"), "Short.png", ""))
		require.NoError(t, store.Delete(ctx, "icons", "Short.png", ""))
		assert.NoFileExists(t, filepath.Join(root, "icons", "Short.png"))
	})

	t.Run("missing file", func(t *testing.T) {
		err := store.Delete(ctx, "icons", "never-existed.png", "")
		assert.ErrorIs(t, err, simplemunki.ErrFileDoesNotExist)

		var fileErr *simplemunki.FileError
		require.ErrorAs(t, err, &fileErr)
		assert.Equal(t, "icons", fileErr.Kind)
		assert.Equal(t, "never-existed.png", fileErr.Pathname)
	})

	t.Run("directory at the path is left alone", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "pkgs", "apps"), 0755))

		err := store.Delete(ctx, "pkgs", "apps", "")
		assert.ErrorIs(t, err, simplemunki.ErrFileDelete)
		assert.DirExists(t, filepath.Join(root, "pkgs", "apps"))
	})
}

func TestFileStoreList(t *testing.T) {
	store, root := setupFileStore(t)
	ctx := context.Background()

	writeTestFile(t, filepath.Join(root, "icons", "Firefox.png"), "x")
	writeTestFile(t, filepath.Join(root, "icons", "apps", "GoogleChrome.png"), "x")
	writeTestFile(t, filepath.Join(root, "icons", ".DS_Store"), "x")
	writeTestFile(t, filepath.Join(root, "icons", ".git", "config"), "x")
	writeTestFile(t, filepath.Join(root, "icons", ".svn", "entries"), "x")
	writeTestFile(t, filepath.Join(root, "icons", ".AppleDouble", "Firefox.png"), "x")
	writeTestFile(t, filepath.Join(root, "icons", ".hidden", "visible.png"), "x")

	t.Run("prunes control directories, skips dotfiles", func(t *testing.T) {
		names, err := store.List(ctx, "icons")
		require.NoError(t, err)
		// Only .svn, .git and .AppleDouble are pruned; the walk descends
		// into other dot directories such as .hidden.
		assert.Equal(t, []string{".hidden/visible.png", "Firefox.png", "apps/GoogleChrome.png"}, names)
	})

	t.Run("missing kind directory lists nothing", func(t *testing.T) {
		names, err := store.List(ctx, "client_resources")
		require.NoError(t, err)
		assert.NotNil(t, names)
		assert.Empty(t, names)
	})

	t.Run("kind path that is a regular file lists nothing", func(t *testing.T) {
		writeTestFile(t, filepath.Join(root, "catalogs"), "stray")

		names, err := store.List(ctx, "catalogs")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
