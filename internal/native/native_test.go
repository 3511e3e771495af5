package native

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storagekit/internal/errors"
	"storagekit/internal/localfs"
	"storagekit/internal/storage"
)

type dialogCall struct {
	kind          string
	allowMultiple bool
	title         string
	dir           string
	name          string
	extensions    string
}

// fakeDialogs answers every dialog from another goroutine, the way a
// native layer calls back after the dialog closes.
type fakeDialogs struct {
	result   []string
	showErr  error
	byHandle *Registry
	silent   bool

	mu    sync.Mutex
	calls []dialogCall
}

func (d *fakeDialogs) record(events Events, c dialogCall) error {
	d.mu.Lock()
	d.calls = append(d.calls, c)
	d.mu.Unlock()
	if d.showErr != nil {
		return d.showErr
	}
	if d.silent {
		return nil
	}
	go func() {
		if d.byHandle != nil {
			d.byHandle.Complete(events.(*Completion).Handle(), d.result)
			return
		}
		events.OnCompleted(d.result)
	}()
	return nil
}

func (d *fakeDialogs) OpenFileDialog(events Events, allowMultiple bool, title, dir, extensions string) error {
	return d.record(events, dialogCall{kind: "open", allowMultiple: allowMultiple, title: title, dir: dir, extensions: extensions})
}

func (d *fakeDialogs) SaveFileDialog(events Events, title, dir, name, extensions string) error {
	return d.record(events, dialogCall{kind: "save", title: title, dir: dir, name: name, extensions: extensions})
}

func (d *fakeDialogs) SelectFolderDialog(events Events, title, dir string) error {
	return d.record(events, dialogCall{kind: "folder", title: title, dir: dir})
}

func (d *fakeDialogs) last() dialogCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[len(d.calls)-1]
}

func TestCompletionFiresOnce(t *testing.T) {
	r := NewRegistry()
	c := r.New()
	c.OnCompleted([]string{"/a", ""})
	c.OnCompleted([]string{"/b"})

	paths, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, paths)

	c.Close()
	c.Close()
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Complete(c.Handle(), nil))
}

func TestCompletionCloseWithoutCallback(t *testing.T) {
	r := NewRegistry()
	c := r.New()
	assert.Equal(t, 1, r.Len())
	c.Close()
	assert.Equal(t, 0, r.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistryHandlesAreDistinct(t *testing.T) {
	r := NewRegistry()
	a, b := r.New(), r.New()
	assert.NotEqual(t, a.Handle(), b.Handle())

	assert.True(t, r.Complete(b.Handle(), []string{"/b"}))
	paths, err := b.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/b"}, paths)
	a.Close()
	b.Close()
}

func TestOpenFileThroughNativeDialog(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	start, err := localfs.NewFolder(dir)
	require.NoError(t, err)

	reg := NewRegistry()
	dialogs := &fakeDialogs{result: []string{a}, byHandle: reg}
	p := NewProvider(dialogs, reg, nil)

	files, err := p.OpenFilePicker(context.Background(), storage.FilePickerOpenOptions{
		Title:                  "Open",
		FileTypeFilter:         []storage.FileType{storage.FileTypeTextPlain, storage.FileTypeImageJpg},
		SuggestedStartLocation: start,
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name())
	assert.True(t, files[0].CanOpenRead())

	call := dialogs.last()
	assert.Equal(t, "open", call.kind)
	assert.Equal(t, dir, call.dir)
	assert.Equal(t, "txt;jpg;jpeg", call.extensions)
	assert.False(t, call.allowMultiple)
	assert.Equal(t, 0, reg.Len(), "completion released after use")
}

func TestCancelledDialogs(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(&fakeDialogs{result: nil}, NewRegistry(), nil)

	files, err := p.OpenFilePicker(ctx, storage.FilePickerOpenOptions{AllowMultiple: true})
	require.NoError(t, err)
	assert.Empty(t, files)

	f, err := p.SaveFilePicker(ctx, storage.FilePickerSaveOptions{})
	require.NoError(t, err)
	assert.Nil(t, f)

	d, err := p.OpenFolderPicker(ctx, storage.FolderPickerOpenOptions{})
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSaveAndFolderDialogs(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	dialogs := &fakeDialogs{result: []string{filepath.Join(dir, "out")}}
	p := NewProvider(dialogs, NewRegistry(), nil)
	f, err := p.SaveFilePicker(ctx, storage.FilePickerSaveOptions{SuggestedFileName: "out", DefaultExtension: "csv"})
	require.NoError(t, err)
	require.NotNil(t, f)
	got, _ := f.FullPath()
	assert.Equal(t, filepath.Join(dir, "out.csv"), got)
	assert.Equal(t, "out", dialogs.last().name)

	dialogs = &fakeDialogs{result: []string{dir}}
	p = NewProvider(dialogs, NewRegistry(), nil)
	folder, err := p.OpenFolderPicker(ctx, storage.FolderPickerOpenOptions{Title: "Folder"})
	require.NoError(t, err)
	require.NotNil(t, folder)
	got, _ = folder.FullPath()
	assert.Equal(t, dir, got)
	assert.Equal(t, "folder", dialogs.last().kind)
}

func TestDialogShowError(t *testing.T) {
	reg := NewRegistry()
	p := NewProvider(&fakeDialogs{showErr: errors.New("no activity")}, reg, nil)

	_, err := p.OpenFilePicker(context.Background(), storage.FilePickerOpenOptions{})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypePlatform, appErr.Type)
	assert.Equal(t, 0, reg.Len())
}

func TestCallerContextReleasesWait(t *testing.T) {
	reg := NewRegistry()
	p := NewProvider(&fakeDialogs{silent: true}, reg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := p.OpenFilePicker(ctx, storage.FilePickerOpenOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, reg.Len())
}

func TestNoDialogsMeansNoCapabilities(t *testing.T) {
	p := NewProvider(nil, nil, nil)
	assert.Equal(t, storage.Capabilities{}, p.Capabilities())
	_, err := p.OpenFilePicker(context.Background(), storage.FilePickerOpenOptions{})
	assert.True(t, apperrors.IsUnsupported(err))
}
