// Package archive exposes the entries of an archive file (zip, tar, 7z and
// the other formats mholt/archives understands) as storage items.
//
// Entries are ephemeral: they have no local path, cannot be bookmarked and
// are read-only.
package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/mholt/archives"

	apperrors "storagekit/internal/errors"
	"storagekit/internal/localfs"
	"storagekit/internal/storage"
)

// Identify reports whether the file at p is an archive that can be browsed.
func Identify(ctx context.Context, p string) (archives.Extractor, bool) {
	f, err := os.Open(p)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, filepath.Base(p), f)
	if err != nil {
		return nil, false
	}
	ex, ok := format.(archives.Extractor)
	return ex, ok
}

// Open returns the root folder of the archive at p.
func Open(ctx context.Context, p string) (storage.Folder, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, apperrors.NewFileSystemError("open_archive", p, "cannot make path absolute", err)
	}
	ex, ok := Identify(ctx, abs)
	if !ok {
		return nil, apperrors.NewFileSystemError("open_archive", abs, "not a supported archive", nil)
	}
	a := &handle{
		path: abs,
		fsys: &archives.ArchiveFS{Path: abs, Format: ex},
	}
	return &Folder{arc: a, name: "."}, nil
}

type handle struct {
	path string
	fsys fs.FS
}

// Folder is a directory inside an archive. The root folder has name ".".
type Folder struct {
	arc  *handle
	name string
}

// File is a regular entry inside an archive.
type File struct {
	arc  *handle
	name string
}

var (
	_ storage.Folder = (*Folder)(nil)
	_ storage.File   = (*File)(nil)
)

func (d *Folder) Name() string {
	if d.name == "." {
		return filepath.Base(d.arc.path)
	}
	return path.Base(d.name)
}

func (d *Folder) FullPath() (string, bool) { return "", false }

func (d *Folder) BasicProperties(ctx context.Context) (storage.Properties, error) {
	if d.name == "." {
		fi, err := os.Stat(d.arc.path)
		if err != nil {
			return storage.Properties{}, apperrors.NewFileSystemError("basic_properties", d.arc.path, "cannot stat archive", err)
		}
		return storage.Properties{DateModified: storage.TimePtr(fi.ModTime())}, nil
	}
	return entryProperties(d.arc, d.name, false)
}

func (d *Folder) CanBookmark() bool { return false }

func (d *Folder) SaveBookmark(ctx context.Context) (string, bool) { return "", false }

// Parent of the root folder is the directory holding the archive file.
func (d *Folder) Parent(ctx context.Context) (storage.Folder, error) {
	if d.name == "." {
		host, err := localfs.NewFolder(filepath.Dir(d.arc.path))
		if err != nil {
			return nil, err
		}
		return host, nil
	}
	return &Folder{arc: d.arc, name: path.Dir(d.name)}, nil
}

func (d *Folder) Items(ctx context.Context) ([]storage.Item, error) {
	entries, err := fs.ReadDir(d.arc.fsys, d.name)
	if err != nil {
		return nil, apperrors.NewFileSystemError("list_archive", d.arc.path, "cannot read archive directory "+d.name, err)
	}
	out := make([]storage.Item, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child := path.Join(d.name, e.Name())
		if e.IsDir() {
			out = append(out, &Folder{arc: d.arc, name: child})
		} else {
			out = append(out, &File{arc: d.arc, name: child})
		}
	}
	return out, nil
}

// ArchivePath returns the host path of the archive this folder belongs to.
func (d *Folder) ArchivePath() string { return d.arc.path }

func (f *File) Name() string { return path.Base(f.name) }

func (f *File) FullPath() (string, bool) { return "", false }

func (f *File) BasicProperties(ctx context.Context) (storage.Properties, error) {
	return entryProperties(f.arc, f.name, true)
}

func (f *File) CanBookmark() bool { return false }

func (f *File) SaveBookmark(ctx context.Context) (string, bool) { return "", false }

func (f *File) Parent(ctx context.Context) (storage.Folder, error) {
	return &Folder{arc: f.arc, name: path.Dir(f.name)}, nil
}

func (f *File) CanOpenRead() bool  { return true }
func (f *File) CanOpenWrite() bool { return false }

func (f *File) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	r, err := f.arc.fsys.Open(f.name)
	if err != nil {
		return nil, apperrors.NewFileSystemError("open_read", f.arc.path, "cannot open archive entry "+f.name, err)
	}
	return r, nil
}

func (f *File) OpenWrite(ctx context.Context) (io.WriteCloser, error) {
	return nil, apperrors.NewUnsupportedError("open_write", "archive entries are read-only")
}

// EntryPath is the slash-separated path of the entry inside the archive.
func (f *File) EntryPath() string { return f.name }

func entryProperties(a *handle, name string, withSize bool) (storage.Properties, error) {
	fi, err := fs.Stat(a.fsys, name)
	if err != nil {
		return storage.Properties{}, apperrors.NewFileSystemError("basic_properties", a.path, "cannot stat archive entry "+name, err)
	}
	props := storage.Properties{DateModified: storage.TimePtr(fi.ModTime())}
	if withSize {
		props.Size = storage.SizePtr(fi.Size())
	}
	return props, nil
}
