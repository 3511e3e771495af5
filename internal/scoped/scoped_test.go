package scoped

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storagekit/internal/bookmark"
	apperrors "storagekit/internal/errors"
	"storagekit/internal/localfs"
	"storagekit/internal/storage"
)

type fakeStream struct {
	buf    *bytes.Buffer
	closed int
}

func (s *fakeStream) Read(p []byte) (int, error)  { return s.buf.Read(p) }
func (s *fakeStream) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *fakeStream) Close() error {
	s.closed++
	return nil
}

type fakeResource struct {
	name     string
	path     string
	dir      bool
	data     []byte
	attrs    Attributes
	content  *bytes.Buffer
	children []Resource
	parent   Resource

	startErr    error
	bookmarkErr error
	attrErr     error
	openErr     error

	starts int
	stops  int
	active int
	stream *fakeStream
}

func (r *fakeResource) Name() string { return r.name }
func (r *fakeResource) Path() string { return r.path }
func (r *fakeResource) IsDir() bool  { return r.dir }

func (r *fakeResource) StartAccessing() error {
	r.starts++
	if r.startErr != nil {
		return r.startErr
	}
	r.active++
	return nil
}

func (r *fakeResource) StopAccessing() {
	r.stops++
	r.active--
}

func (r *fakeResource) requireAccess() error {
	if r.active <= 0 {
		return &OSError{Code: 1, Reason: "access not held"}
	}
	return nil
}

func (r *fakeResource) BookmarkData() ([]byte, error) {
	if err := r.requireAccess(); err != nil {
		return nil, err
	}
	if r.bookmarkErr != nil {
		return nil, r.bookmarkErr
	}
	return r.data, nil
}

func (r *fakeResource) Attributes() (Attributes, error) {
	if err := r.requireAccess(); err != nil {
		return Attributes{}, err
	}
	if r.attrErr != nil {
		return Attributes{}, r.attrErr
	}
	return r.attrs, nil
}

func (r *fakeResource) Open(flag int) (io.ReadWriteCloser, error) {
	if err := r.requireAccess(); err != nil {
		return nil, err
	}
	if r.openErr != nil {
		return nil, r.openErr
	}
	if r.content == nil {
		r.content = &bytes.Buffer{}
	}
	r.stream = &fakeStream{buf: r.content}
	return r.stream, nil
}

func (r *fakeResource) List() ([]Resource, error) {
	if err := r.requireAccess(); err != nil {
		return nil, err
	}
	return r.children, nil
}

func (r *fakeResource) Parent() Resource { return r.parent }

type mapResolver map[string]Resource

func (m mapResolver) Resolve(ctx context.Context, data []byte) (Resource, error) {
	if r, ok := m[string(data)]; ok {
		return r, nil
	}
	return nil, &OSError{Code: 4, Reason: "bookmark is stale"}
}

type fakePicker struct {
	result []Resource
	calls  int
	last   localfs.Request
}

func (p *fakePicker) Pick(ctx context.Context, req localfs.Request) ([]Resource, error) {
	p.calls++
	p.last = req
	return p.result, nil
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestGuardReleasesOnEveryPath(t *testing.T) {
	res := &fakeResource{name: "doc.txt"}
	g := NewGuard(res)

	require.NoError(t, g.Do("ok", func() error { return nil }))
	assert.Error(t, g.Do("fail", func() error { return errors.New("boom") }))
	assert.Panics(t, func() {
		_ = g.Do("panic", func() error { panic("boom") })
	})

	assert.Equal(t, 3, res.starts)
	assert.Equal(t, 3, res.stops)
	assert.Equal(t, 0, res.active)
}

func TestGuardSkipsWorkWhenAccessDenied(t *testing.T) {
	res := &fakeResource{name: "doc.txt", startErr: &OSError{Code: 257, Reason: "not permitted"}}
	ran := false

	err := NewGuard(res).Do("read", func() error {
		ran = true
		return nil
	})
	assert.False(t, ran)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 257, appErr.Code)
	assert.Equal(t, 0, res.stops)
}

func TestSaveBookmarkWhenAccessFails(t *testing.T) {
	logger, logs := observed()
	res := &fakeResource{name: "doc.txt", data: []byte("blob"), startErr: &OSError{Code: 257, Reason: "not permitted"}}
	f := NewFile(res, logger)

	token, ok := f.SaveBookmark(context.Background())
	assert.False(t, ok)
	assert.Empty(t, token)

	entries := logs.FilterMessage("save bookmark failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.EqualValues(t, 257, entries[0].ContextMap()["code"])
}

func TestSaveBookmarkBracketsCreation(t *testing.T) {
	res := &fakeResource{name: "doc.txt", data: []byte("blob")}
	f := NewFile(res, nil)

	token, ok := f.SaveBookmark(context.Background())
	require.True(t, ok)
	want, err := bookmark.EncodeScoped([]byte("blob"))
	require.NoError(t, err)
	assert.Equal(t, want, token)
	assert.Equal(t, 1, res.starts)
	assert.Equal(t, 1, res.stops)

	res.bookmarkErr = &OSError{Code: 260, Reason: "no such file"}
	_, ok = f.SaveBookmark(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 0, res.active)
	assert.Equal(t, res.starts, res.stops)
}

func TestBasicPropertiesDegradeOnError(t *testing.T) {
	logger, logs := observed()
	res := &fakeResource{name: "doc.txt", attrErr: &OSError{Code: 3, Reason: "io"}}
	f := NewFile(res, logger)

	props, err := f.BasicProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.Properties{}, props)
	assert.Equal(t, 1, logs.FilterMessage("reading scoped properties failed").Len())
	assert.Equal(t, 0, res.active)
}

func TestBasicPropertiesIdempotent(t *testing.T) {
	mod := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	res := &fakeResource{name: "doc.txt", attrs: Attributes{Size: 42, Modified: mod}}
	f := NewFile(res, nil)

	first, err := f.BasicProperties(context.Background())
	require.NoError(t, err)
	second, err := f.BasicProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.NotNil(t, first.Size)
	assert.Equal(t, uint64(42), *first.Size)
	assert.Nil(t, first.DateCreated)
	assert.True(t, mod.Equal(*first.DateModified))

	dir := NewFolder(&fakeResource{name: "docs", dir: true, attrs: Attributes{Size: 4096}}, nil)
	props, err := dir.BasicProperties(context.Background())
	require.NoError(t, err)
	assert.Nil(t, props.Size)
}

func TestStreamHoldsScopeUntilClose(t *testing.T) {
	res := &fakeResource{name: "doc.txt", content: bytes.NewBufferString("hello")}
	f := NewFile(res, nil)

	r, err := f.OpenRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.active)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, res.active)
	assert.Equal(t, 1, res.stops)
	assert.Equal(t, 1, res.stream.closed)

	w, err := f.OpenWrite(context.Background())
	require.NoError(t, err)
	_, err = io.WriteString(w, " world")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 0, res.active)
}

func TestOpenFailureReleasesScope(t *testing.T) {
	res := &fakeResource{name: "doc.txt", openErr: &OSError{Code: 13, Reason: "denied"}}
	f := NewFile(res, nil)

	r, err := f.OpenRead(context.Background())
	assert.Nil(t, r)
	assert.Error(t, err)
	assert.Equal(t, 0, res.active)
	assert.Equal(t, 1, res.stops)

	res.openErr = nil
	res.startErr = &OSError{Code: 257, Reason: "not permitted"}
	w, err := f.OpenWrite(context.Background())
	assert.Nil(t, w)
	assert.Error(t, err)
}

func TestFullPathAndParent(t *testing.T) {
	root := &fakeResource{name: "Documents", dir: true, path: "/private/var/mobile/Documents"}
	child := &fakeResource{name: "a.txt", parent: root, path: "/private/var/mobile/Documents/a.txt"}
	remote := &fakeResource{name: "b.txt"}

	p, ok := NewFile(child, nil).FullPath()
	assert.True(t, ok)
	assert.Equal(t, child.path, p)
	_, ok = NewFile(remote, nil).FullPath()
	assert.False(t, ok)

	parent, err := NewFile(child, nil).Parent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Documents", parent.Name())
	up, err := parent.Parent(context.Background())
	require.NoError(t, err)
	assert.Nil(t, up)
}

func TestFolderItems(t *testing.T) {
	sub := &fakeResource{name: "sub", dir: true}
	file := &fakeResource{name: "a.txt"}
	root := &fakeResource{name: "root", dir: true, children: []Resource{sub, file}}

	items, err := NewFolder(root, nil).Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.IsType(t, &Folder{}, items[0])
	assert.IsType(t, &File{}, items[1])
	assert.Equal(t, 0, root.active)
}

func TestFolderHoldNestsBrackets(t *testing.T) {
	root := &fakeResource{name: "root", dir: true}
	folder := NewFolder(root, nil)

	release, err := folder.Hold()
	require.NoError(t, err)
	assert.Equal(t, 1, root.active)

	_, err = folder.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, root.active)

	release()
	release()
	assert.Equal(t, 0, root.active)
	assert.Equal(t, root.starts, root.stops)
}

func TestFolderHoldDenied(t *testing.T) {
	root := &fakeResource{name: "root", dir: true, startErr: &OSError{Code: 13, Reason: "denied"}}

	release, err := NewFolder(root, nil).Hold()
	require.Error(t, err)
	assert.Nil(t, release)
	assert.Equal(t, 13, ErrorCode(err))
	assert.Equal(t, 0, root.stops)
}

func TestProviderResolveBookmarks(t *testing.T) {
	file := &fakeResource{name: "doc.txt", data: []byte("file-blob")}
	folder := &fakeResource{name: "docs", dir: true, data: []byte("folder-blob")}
	p := NewProvider(mapResolver{"file-blob": file, "folder-blob": folder}, nil, nil)
	ctx := context.Background()

	token, ok := NewFile(file, nil).SaveBookmark(ctx)
	require.True(t, ok)
	got, err := p.ResolveFileBookmark(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", got.Name())

	_, err = p.ResolveFolderBookmark(ctx, token)
	assert.True(t, apperrors.IsUnreachable(err))

	folderToken, ok := NewFolder(folder, nil).SaveBookmark(ctx)
	require.True(t, ok)
	d, err := p.ResolveFolderBookmark(ctx, folderToken)
	require.NoError(t, err)
	assert.Equal(t, "docs", d.Name())

	stale, err := bookmark.EncodeScoped([]byte("gone"))
	require.NoError(t, err)
	_, err = p.ResolveFileBookmark(ctx, stale)
	assert.True(t, apperrors.IsUnreachable(err))

	_, err = p.ResolveFileBookmark(ctx, "%%%")
	assert.True(t, apperrors.IsUnreachable(err))
}

func TestProviderPickerCapabilities(t *testing.T) {
	ctx := context.Background()
	none := NewProvider(nil, nil, nil)
	assert.Equal(t, storage.Capabilities{}, none.Capabilities())
	_, err := none.OpenFilePicker(ctx, storage.FilePickerOpenOptions{})
	assert.True(t, apperrors.IsUnsupported(err))

	picker := &fakePicker{result: []Resource{
		&fakeResource{name: "docs", dir: true},
		&fakeResource{name: "a.txt"},
		&fakeResource{name: "b.txt"},
	}}
	p := NewProvider(nil, picker, nil)
	assert.Equal(t, storage.Capabilities{CanOpen: true, CanSave: true, CanPickFolder: true}, p.Capabilities())

	files, err := p.OpenFilePicker(ctx, storage.FilePickerOpenOptions{Title: "Open"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name())
	assert.Equal(t, "Open", picker.last.Title)

	files, err = p.OpenFilePicker(ctx, storage.FilePickerOpenOptions{AllowMultiple: true})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	d, err := p.OpenFolderPicker(ctx, storage.FolderPickerOpenOptions{})
	require.NoError(t, err)
	assert.Equal(t, "docs", d.Name())
	assert.Equal(t, localfs.ModeFolder, picker.last.Mode)

	f, err := p.SaveFilePicker(ctx, storage.FilePickerSaveOptions{SuggestedFileName: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "a.txt", f.Name())
	assert.Equal(t, "a.txt", picker.last.SuggestedName)
}
