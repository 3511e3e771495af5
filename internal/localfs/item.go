// Package localfs implements storage items and the storage provider on top of
// the host filesystem. Other providers that only swap the dialog mechanism
// reuse its items and bookmark resolution.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"storagekit/internal/bookmark"
	apperrors "storagekit/internal/errors"
	"storagekit/internal/storage"
)

// File is a file on the host filesystem.
type File struct {
	path string
}

// Folder is a directory on the host filesystem.
type Folder struct {
	path string
}

var (
	_ storage.File   = (*File)(nil)
	_ storage.Folder = (*Folder)(nil)
)

// NewFile wraps an existing regular file (or symlink to one).
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, apperrors.NewFileSystemError("new_file", path, "cannot make path absolute", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, apperrors.NewFileSystemError("new_file", abs, "file must exist", err)
	}
	if fi.IsDir() {
		return nil, apperrors.NewFileSystemError("new_file", abs, "path is a directory", nil)
	}
	return &File{path: abs}, nil
}

// NewSaveTarget wraps a path chosen for saving. The file itself may not exist
// yet, but its parent must be an existing directory.
func NewSaveTarget(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, apperrors.NewFileSystemError("new_save_target", path, "cannot make path absolute", err)
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return nil, apperrors.NewFileSystemError("new_save_target", abs, "path is a directory", nil)
	}
	parent, err := os.Stat(filepath.Dir(abs))
	if err != nil || !parent.IsDir() {
		return nil, apperrors.NewFileSystemError("new_save_target", abs, "parent directory must exist", err)
	}
	return &File{path: abs}, nil
}

// NewFolder wraps an existing directory.
func NewFolder(path string) (*Folder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, apperrors.NewFileSystemError("new_folder", path, "cannot make path absolute", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, apperrors.NewFileSystemError("new_folder", abs, "directory must exist", err)
	}
	if !fi.IsDir() {
		return nil, apperrors.NewFileSystemError("new_folder", abs, "path is not a directory", nil)
	}
	return &Folder{path: abs}, nil
}

// NewItem wraps path as a File or Folder depending on what it currently is.
func NewItem(path string) (storage.Item, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewFileSystemError("new_item", path, "path must exist", err)
	}
	if fi.IsDir() {
		d, err := NewFolder(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	f, err := NewFile(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Name() string { return filepath.Base(f.path) }

func (f *File) FullPath() (string, bool) { return f.path, true }

func (f *File) BasicProperties(ctx context.Context) (storage.Properties, error) {
	return statProperties(f.path, true)
}

func (f *File) CanBookmark() bool { return true }

func (f *File) SaveBookmark(ctx context.Context) (string, bool) {
	token, err := bookmark.EncodePath(f.path)
	if err != nil {
		return "", false
	}
	return token, true
}

func (f *File) Parent(ctx context.Context) (storage.Folder, error) {
	return parentOf(f.path)
}

func (f *File) CanOpenRead() bool  { return true }
func (f *File) CanOpenWrite() bool { return true }

func (f *File) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	r, err := os.Open(f.path)
	if err != nil {
		return nil, apperrors.NewFileSystemError("open_read", f.path, "cannot open file", err)
	}
	return r, nil
}

// OpenWrite creates the file when missing and truncates existing content.
func (f *File) OpenWrite(ctx context.Context) (io.WriteCloser, error) {
	w, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, apperrors.NewFileSystemError("open_write", f.path, "cannot open file for writing", err)
	}
	return w, nil
}

// ContentType sniffs the MIME type of the file content.
func (f *File) ContentType() (string, error) {
	mt, err := mimetype.DetectFile(f.path)
	if err != nil {
		return "", apperrors.NewFileSystemError("content_type", f.path, "cannot detect content type", err)
	}
	return mt.String(), nil
}

func (d *Folder) Name() string {
	name := filepath.Base(d.path)
	if name == string(filepath.Separator) || name == "." {
		return d.path
	}
	return name
}

func (d *Folder) FullPath() (string, bool) { return d.path, true }

func (d *Folder) BasicProperties(ctx context.Context) (storage.Properties, error) {
	return statProperties(d.path, false)
}

func (d *Folder) CanBookmark() bool { return true }

func (d *Folder) SaveBookmark(ctx context.Context) (string, bool) {
	token, err := bookmark.EncodePath(d.path)
	if err != nil {
		return "", false
	}
	return token, true
}

func (d *Folder) Parent(ctx context.Context) (storage.Folder, error) {
	return parentOf(d.path)
}

// Items lists the folder. Entries that vanish or cannot be stat'ed while
// listing are skipped.
func (d *Folder) Items(ctx context.Context) ([]storage.Item, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, apperrors.NewFileSystemError("list_folder", d.path, "cannot read directory", err)
	}
	out := make([]storage.Item, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child := filepath.Join(d.path, e.Name())
		fi, err := os.Stat(child)
		if err != nil {
			continue
		}
		if fi.IsDir() {
			out = append(out, &Folder{path: child})
		} else {
			out = append(out, &File{path: child})
		}
	}
	return out, nil
}

func parentOf(p string) (storage.Folder, error) {
	dir := filepath.Dir(p)
	if dir == p {
		return nil, nil
	}
	d, err := NewFolder(dir)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func statProperties(p string, withSize bool) (storage.Properties, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return storage.Properties{}, apperrors.NewFileSystemError("basic_properties", p, "cannot stat", err)
	}
	created, accessed := fileTimes(p, fi)
	props := storage.Properties{
		DateCreated:  storage.TimePtr(created),
		DateModified: storage.TimePtr(fi.ModTime()),
		DateAccessed: storage.TimePtr(accessed),
	}
	if withSize {
		props.Size = storage.SizePtr(fi.Size())
	}
	return props, nil
}

func (f *File) String() string   { return fmt.Sprintf("file %s", f.path) }
func (d *Folder) String() string { return fmt.Sprintf("folder %s", d.path) }
