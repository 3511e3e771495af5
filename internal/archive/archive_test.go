package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storagekit/internal/errors"
	"storagekit/internal/storage"
)

func buildZip(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "bundle.zip")
	out, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	_, err = zw.Create("docs/")
	require.NoError(t, err)
	w, err := zw.Create("docs/readme.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "inside the archive")
	require.NoError(t, err)
	w, err = zw.Create("top.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "top")
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return p
}

func childByName(t *testing.T, items []storage.Item, name string) storage.Item {
	t.Helper()
	for _, it := range items {
		if it.Name() == name {
			return it
		}
	}
	t.Fatalf("no item named %q", name)
	return nil
}

func TestIdentify(t *testing.T) {
	dir := t.TempDir()
	zipPath := buildZip(t, dir)
	plain := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("just text"), 0o644))

	_, ok := Identify(context.Background(), zipPath)
	assert.True(t, ok)
	_, ok = Identify(context.Background(), plain)
	assert.False(t, ok)
	_, ok = Identify(context.Background(), filepath.Join(dir, "missing.zip"))
	assert.False(t, ok)

	_, err := Open(context.Background(), plain)
	assert.Error(t, err)
}

func TestBrowseZip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	zipPath := buildZip(t, dir)

	root, err := Open(ctx, zipPath)
	require.NoError(t, err)
	assert.Equal(t, "bundle.zip", root.Name())
	_, ok := root.FullPath()
	assert.False(t, ok)

	items, err := root.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	docs, ok := childByName(t, items, "docs").(storage.Folder)
	require.True(t, ok)
	top, ok := childByName(t, items, "top.txt").(storage.File)
	require.True(t, ok)
	assert.True(t, top.CanOpenRead())
	assert.False(t, top.CanOpenWrite())

	inner, err := docs.Items(ctx)
	require.NoError(t, err)
	require.Len(t, inner, 1)
	readme, ok := inner[0].(storage.File)
	require.True(t, ok)
	assert.Equal(t, "readme.txt", readme.Name())

	r, err := readme.OpenRead(ctx)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "inside the archive", string(data))

	props, err := readme.BasicProperties(ctx)
	require.NoError(t, err)
	require.NotNil(t, props.Size)
	assert.Equal(t, uint64(len("inside the archive")), *props.Size)

	parent, err := readme.Parent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "docs", parent.Name())
}

func TestEntriesAreEphemeral(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root, err := Open(ctx, buildZip(t, dir))
	require.NoError(t, err)

	items, err := root.Items(ctx)
	require.NoError(t, err)
	top := childByName(t, items, "top.txt").(storage.File)

	assert.False(t, top.CanBookmark())
	token, ok := top.SaveBookmark(ctx)
	assert.False(t, ok)
	assert.Empty(t, token)
	_, ok = top.FullPath()
	assert.False(t, ok)

	_, err = top.OpenWrite(ctx)
	assert.True(t, apperrors.IsUnsupported(err))

	_, ok = root.SaveBookmark(ctx)
	assert.False(t, ok)
}

func TestRootParentIsHostFolder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root, err := Open(ctx, buildZip(t, dir))
	require.NoError(t, err)

	parent, err := root.Parent(ctx)
	require.NoError(t, err)
	require.NotNil(t, parent)
	p, ok := parent.FullPath()
	require.True(t, ok)
	want, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, want, p)
}
