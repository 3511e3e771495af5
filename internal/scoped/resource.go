// Package scoped wraps resources whose access is only granted between an
// explicit start and stop call, such as security-scoped URLs or mounted
// network shares.
//
// Metadata and bookmark operations hold the scope for the duration of a
// single call. Streams hold it until they are closed.
package scoped

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Resource is one scoped location.
type Resource interface {
	Name() string
	// Path is the local path of the resource while access is held, or "".
	Path() string
	IsDir() bool

	// StartAccessing acquires the scope. Every successful call must be
	// paired with StopAccessing.
	StartAccessing() error
	StopAccessing()

	// The following require an active scope.
	BookmarkData() ([]byte, error)
	Attributes() (Attributes, error)
	Open(flag int) (io.ReadWriteCloser, error)
	List() ([]Resource, error)

	// Parent returns the containing resource, or nil at a root.
	Parent() Resource
}

// Resolver turns bookmark data back into a resource.
type Resolver interface {
	Resolve(ctx context.Context, data []byte) (Resource, error)
}

// Attributes is the metadata a resource reports. Size is negative when
// unknown; zero times are unknown.
type Attributes struct {
	Size     int64
	Created  time.Time
	Modified time.Time
	Accessed time.Time
}

// OSError is an error reported by the platform with a numeric code.
type OSError struct {
	Code   int
	Reason string
}

func (e *OSError) Error() string {
	return fmt.Sprintf("os error %d: %s", e.Code, e.Reason)
}

// ErrorCode extracts the platform code from err, or -1.
func ErrorCode(err error) int {
	var osErr *OSError
	if errors.As(err, &osErr) {
		return osErr.Code
	}
	return -1
}
