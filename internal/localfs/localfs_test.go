package localfs

import (
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

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// stubChooser returns fixed items and records the last request.
type stubChooser struct {
	items []storage.Item
	err   error
	calls int
	last  Request
}

func (c *stubChooser) Choose(_ context.Context, req Request) ([]storage.Item, error) {
	c.calls++
	c.last = req
	return c.items, c.err
}

func TestNewFileAndFolderValidateKind(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	writeFile(t, p, "hello")

	_, err := NewFile(dir)
	assert.Error(t, err)
	_, err = NewFolder(p)
	assert.Error(t, err)
	_, err = NewFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	f, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", f.Name())
	path, ok := f.FullPath()
	assert.True(t, ok)
	assert.Equal(t, p, path)
	assert.True(t, f.CanOpenRead())
	assert.True(t, f.CanOpenWrite())
	assert.True(t, f.CanBookmark())
}

func TestNewItemPicksKind(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "b")

	it, err := NewItem(filepath.Join(dir, "sub"))
	require.NoError(t, err)
	assert.IsType(t, &Folder{}, it)

	it, err = NewItem(filepath.Join(dir, "sub", "b.txt"))
	require.NoError(t, err)
	assert.IsType(t, &File{}, it)
}

func TestSaveTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "new.txt")

	f, err := NewSaveTarget(target)
	require.NoError(t, err)

	w, err := f.OpenWrite(context.Background())
	require.NoError(t, err)
	_, err = io.WriteString(w, "saved")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := f.OpenRead(context.Background())
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "saved", string(data))

	_, err = NewSaveTarget(filepath.Join(dir, "nope", "x.txt"))
	assert.Error(t, err)
	_, err = NewSaveTarget(dir)
	assert.Error(t, err)
}

func TestOpenWriteTruncates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "t.txt")
	writeFile(t, p, "a much longer original body")
	f, err := NewFile(p)
	require.NoError(t, err)

	w, err := f.OpenWrite(context.Background())
	require.NoError(t, err)
	_, err = io.WriteString(w, "short")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestBasicPropertiesIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	writeFile(t, p, "hello")
	ctx := context.Background()

	f, err := NewFile(p)
	require.NoError(t, err)
	first, err := f.BasicProperties(ctx)
	require.NoError(t, err)
	second, err := f.BasicProperties(ctx)
	require.NoError(t, err)

	require.NotNil(t, first.Size)
	assert.Equal(t, uint64(5), *first.Size)
	assert.Equal(t, first, second)

	d, err := NewFolder(dir)
	require.NoError(t, err)
	props, err := d.BasicProperties(ctx)
	require.NoError(t, err)
	assert.Nil(t, props.Size)
	assert.NotNil(t, props.DateModified)
}

func TestBasicPropertiesAfterRemoval(t *testing.T) {
	p := filepath.Join(t.TempDir(), "gone.txt")
	writeFile(t, p, "x")
	f, err := NewFile(p)
	require.NoError(t, err)
	require.NoError(t, os.Remove(p))

	// The path was valid at construction; it is stale now.
	path, ok := f.FullPath()
	assert.True(t, ok)
	assert.Equal(t, p, path)
	_, err = f.BasicProperties(context.Background())
	assert.Error(t, err)
}

func TestParentTraversal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sub", "c.txt")
	writeFile(t, p, "c")
	ctx := context.Background()

	f, err := NewFile(p)
	require.NoError(t, err)
	parent, err := f.Parent(ctx)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "sub", parent.Name())

	root, err := NewFolder(string(filepath.Separator))
	require.NoError(t, err)
	up, err := root.Parent(ctx)
	require.NoError(t, err)
	assert.Nil(t, up)
}

func TestFolderItems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "b")

	d, err := NewFolder(dir)
	require.NoError(t, err)
	items, err := d.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	kinds := map[string]bool{}
	for _, it := range items {
		_, isFolder := it.(storage.Folder)
		kinds[it.Name()] = isFolder
	}
	assert.Equal(t, map[string]bool{"a.txt": false, "sub": true}, kinds)
}

func TestBookmarkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	writeFile(t, p, "hello")
	ctx := context.Background()
	prov := NewProvider(nil, nil)

	f, err := NewFile(p)
	require.NoError(t, err)
	token, ok := f.SaveBookmark(ctx)
	require.True(t, ok)

	got, err := prov.ResolveFileBookmark(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, f.Name(), got.Name())
	gotPath, _ := got.FullPath()
	assert.Equal(t, p, gotPath)

	d, err := NewFolder(dir)
	require.NoError(t, err)
	folderToken, ok := d.SaveBookmark(ctx)
	require.True(t, ok)
	gotFolder, err := prov.ResolveFolderBookmark(ctx, folderToken)
	require.NoError(t, err)
	assert.Equal(t, d.Name(), gotFolder.Name())
}

func TestResolveBookmarkUnreachable(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	writeFile(t, p, "hello")
	ctx := context.Background()
	prov := NewProvider(nil, nil)

	// wrong kind
	_, err := prov.ResolveFileBookmark(ctx, dir)
	assert.True(t, apperrors.IsUnreachable(err))
	_, err = prov.ResolveFolderBookmark(ctx, p)
	assert.True(t, apperrors.IsUnreachable(err))

	// removed
	require.NoError(t, os.Remove(p))
	f, err := prov.ResolveFileBookmark(ctx, p)
	assert.Nil(t, f)
	assert.True(t, apperrors.IsUnreachable(err))

	// malformed
	_, err = prov.ResolveFileBookmark(ctx, "not/absolute")
	assert.True(t, apperrors.IsUnreachable(err))
}

func TestProviderWithoutChooserIsUnsupported(t *testing.T) {
	ctx := context.Background()
	prov := NewProvider(nil, nil)

	assert.Equal(t, storage.Capabilities{}, prov.Capabilities())

	_, err := prov.OpenFilePicker(ctx, storage.FilePickerOpenOptions{})
	assert.True(t, apperrors.IsUnsupported(err))
	_, err = prov.SaveFilePicker(ctx, storage.FilePickerSaveOptions{})
	assert.True(t, apperrors.IsUnsupported(err))
	_, err = prov.OpenFolderPicker(ctx, storage.FolderPickerOpenOptions{})
	assert.True(t, apperrors.IsUnsupported(err))
}

func TestOpenFilePickerSingleSelection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	a, _ := NewFile(filepath.Join(dir, "a.txt"))
	b, _ := NewFile(filepath.Join(dir, "b.txt"))
	sub, _ := NewFolder(dir)

	ch := &stubChooser{items: []storage.Item{sub, a, b}}
	prov := NewProvider(ch, nil)

	files, err := prov.OpenFilePicker(context.Background(), storage.FilePickerOpenOptions{Title: "Open"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name())
	assert.True(t, files[0].CanOpenRead())
	assert.Equal(t, ModeOpen, ch.last.Mode)
	assert.Equal(t, "Open", ch.last.Title)

	files, err = prov.OpenFilePicker(context.Background(), storage.FilePickerOpenOptions{AllowMultiple: true})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestOpenFilePickerCancelled(t *testing.T) {
	prov := NewProvider(&stubChooser{}, nil)
	files, err := prov.OpenFilePicker(context.Background(), storage.FilePickerOpenOptions{})
	require.NoError(t, err)
	assert.Empty(t, files)

	f, err := prov.SaveFilePicker(context.Background(), storage.FilePickerSaveOptions{})
	require.NoError(t, err)
	assert.Nil(t, f)

	d, err := prov.OpenFolderPicker(context.Background(), storage.FolderPickerOpenOptions{})
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSaveFilePickerDefaultExtension(t *testing.T) {
	dir := t.TempDir()
	target, err := NewSaveTarget(filepath.Join(dir, "report"))
	require.NoError(t, err)
	ch := &stubChooser{items: []storage.Item{target}}
	prov := NewProvider(ch, nil)

	f, err := prov.SaveFilePicker(context.Background(), storage.FilePickerSaveOptions{
		SuggestedFileName: "report",
		DefaultExtension:  ".txt",
	})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "report.txt", f.Name())
	assert.Equal(t, ModeSave, ch.last.Mode)
	assert.Equal(t, "report", ch.last.SuggestedName)
}

func TestContentType(t *testing.T) {
	p := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, p, "<!DOCTYPE html><html><body>hi</body></html>")
	f, err := NewFile(p)
	require.NoError(t, err)

	ct, err := f.ContentType()
	require.NoError(t, err)
	assert.Contains(t, ct, "text/html")
}
