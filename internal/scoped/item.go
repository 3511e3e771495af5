package scoped

import (
	"context"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"storagekit/internal/bookmark"
	apperrors "storagekit/internal/errors"
	"storagekit/internal/logging"
	"storagekit/internal/storage"
)

type item struct {
	res    Resource
	logger *zap.Logger
}

// File is a scoped file.
type File struct{ item }

// Folder is a scoped folder.
type Folder struct{ item }

var (
	_ storage.File   = (*File)(nil)
	_ storage.Folder = (*Folder)(nil)
)

// NewFile wraps res as a file item.
func NewFile(res Resource, logger *zap.Logger) *File {
	return &File{item{res: res, logger: logging.OrNop(logger)}}
}

// NewFolder wraps res as a folder item.
func NewFolder(res Resource, logger *zap.Logger) *Folder {
	return &Folder{item{res: res, logger: logging.OrNop(logger)}}
}

// Wrap returns a File or Folder depending on res.
func Wrap(res Resource, logger *zap.Logger) storage.Item {
	if res.IsDir() {
		return NewFolder(res, logger)
	}
	return NewFile(res, logger)
}

// Resource returns the wrapped resource.
func (i *item) Resource() Resource { return i.res }

func (i *item) Name() string { return i.res.Name() }

// FullPath reports the resource path. It may only be usable while access is held.
func (i *item) FullPath() (string, bool) {
	p := i.res.Path()
	return p, p != ""
}

// BasicProperties reads attributes under a short bracket. Failures are
// logged and yield empty properties instead of an error.
func (i *item) BasicProperties(ctx context.Context) (storage.Properties, error) {
	var attrs Attributes
	err := NewGuard(i.res).Do("basic_properties", func() error {
		var err error
		attrs, err = i.res.Attributes()
		return err
	})
	if err != nil {
		i.logger.Error("reading scoped properties failed",
			zap.String("name", i.res.Name()),
			zap.Int("code", ErrorCode(err)),
			zap.Error(err))
		return storage.Properties{}, nil
	}
	props := storage.Properties{
		DateCreated:  storage.TimePtr(attrs.Created),
		DateModified: storage.TimePtr(attrs.Modified),
		DateAccessed: storage.TimePtr(attrs.Accessed),
	}
	if !i.res.IsDir() {
		props.Size = storage.SizePtr(attrs.Size)
	}
	return props, nil
}

func (i *item) CanBookmark() bool { return true }

// SaveBookmark creates bookmark data under a short bracket. The token is the
// base64 form of the data.
func (i *item) SaveBookmark(ctx context.Context) (string, bool) {
	var data []byte
	err := NewGuard(i.res).Do("save_bookmark", func() error {
		var err error
		data, err = i.res.BookmarkData()
		return err
	})
	if err != nil {
		i.logger.Error("save bookmark failed",
			zap.String("name", i.res.Name()),
			zap.Int("code", ErrorCode(err)),
			zap.Error(err))
		return "", false
	}
	token, err := bookmark.EncodeScoped(data)
	if err != nil {
		i.logger.Error("save bookmark failed", zap.String("name", i.res.Name()), zap.Error(err))
		return "", false
	}
	return token, true
}

func (i *item) Parent(ctx context.Context) (storage.Folder, error) {
	parent := i.res.Parent()
	if parent == nil {
		return nil, nil
	}
	return NewFolder(parent, i.logger), nil
}

func (f *File) CanOpenRead() bool  { return true }
func (f *File) CanOpenWrite() bool { return true }

// OpenRead returns a stream that keeps access until it is closed.
func (f *File) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	s, err := openStream("open_read", f.res, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenWrite returns a truncating stream that keeps access until it is closed.
func (f *File) OpenWrite(ctx context.Context) (io.WriteCloser, error) {
	s, err := openStream("open_write", f.res, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Items lists the folder under a short bracket.
func (d *Folder) Items(ctx context.Context) ([]storage.Item, error) {
	var children []Resource
	err := NewGuard(d.res).Do("list_folder", func() error {
		var err error
		children, err = d.res.List()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]storage.Item, 0, len(children))
	for _, c := range children {
		out = append(out, Wrap(c, d.logger))
	}
	return out, nil
}

// Hold acquires the folder's scope until release is called. Brackets taken
// by its items meanwhile nest inside it, so a share is mounted once for a
// whole listing.
func (d *Folder) Hold() (release func(), err error) {
	if err := d.res.StartAccessing(); err != nil {
		return nil, apperrors.NewPlatformError("hold_folder", d.res.Path(), ErrorCode(err), "cannot access "+d.res.Name(), err)
	}
	var once sync.Once
	return func() { once.Do(d.res.StopAccessing) }, nil
}
