// Package storage defines the provider-neutral model for files and folders
// obtained through pickers, and the contract every storage provider satisfies.
//
// Items are values created fresh for each operation result. They hold no
// provider registration; only streams returned by File.OpenRead and
// File.OpenWrite must be closed by the caller.
package storage

import (
	"context"
	"io"
	"time"
)

// Item is a file or folder obtained from a provider.
type Item interface {
	// Name is the display name, including the extension if there is one.
	Name() string

	// FullPath reports the local filesystem path of the item, if the
	// mechanism that produced it exposes one. A true result only means the
	// path was valid when the item was constructed.
	FullPath() (string, bool)

	// BasicProperties fetches size and timestamps. Values are read on every
	// call and never cached. Fields the platform could not report are nil.
	BasicProperties(ctx context.Context) (Properties, error)

	// CanBookmark reports whether SaveBookmark can produce a durable token.
	CanBookmark() bool

	// SaveBookmark returns an opaque token that the matching provider can
	// resolve later. ok is false when no token could be produced; that is
	// never a fatal condition for the caller.
	SaveBookmark(ctx context.Context) (token string, ok bool)

	// Parent returns the containing folder, or nil at a root.
	Parent(ctx context.Context) (Folder, error)
}

// File is an Item with byte content.
type File interface {
	Item
	CanOpenRead() bool
	CanOpenWrite() bool
	OpenRead(ctx context.Context) (io.ReadCloser, error)
	OpenWrite(ctx context.Context) (io.WriteCloser, error)
}

// Folder is an Item that contains other items.
type Folder interface {
	Item
	Items(ctx context.Context) ([]Item, error)
}

// Properties holds basic metadata of an item.
type Properties struct {
	Size         *uint64 // nil for folders
	DateCreated  *time.Time
	DateModified *time.Time
	DateAccessed *time.Time
}

// DisplayPath returns the full path of item when it has one and its name otherwise.
func DisplayPath(item Item) string {
	if p, ok := item.FullPath(); ok {
		return p
	}
	return item.Name()
}

// TimePtr returns a pointer to t, or nil for the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// SizePtr returns a pointer to n.
func SizePtr(n int64) *uint64 {
	if n < 0 {
		return nil
	}
	v := uint64(n)
	return &v
}
