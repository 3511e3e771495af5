package scoped

import (
	"io"
	"sync"

	apperrors "storagekit/internal/errors"
)

// Guard brackets calls on a resource with start and stop accessing.
type Guard struct {
	res Resource
}

// NewGuard creates a guard for res.
func NewGuard(res Resource) Guard { return Guard{res: res} }

// Do runs fn while access is held. Access is released on every exit path,
// including a panic in fn. fn does not run if access cannot be acquired.
func (g Guard) Do(op string, fn func() error) error {
	if err := g.res.StartAccessing(); err != nil {
		return apperrors.NewPlatformError(op, g.res.Path(), ErrorCode(err), "cannot access "+g.res.Name(), err)
	}
	defer g.res.StopAccessing()
	return fn()
}

// Stream is a data stream that holds the scope of its resource until Close.
type Stream struct {
	rw   io.ReadWriteCloser
	res  Resource
	once sync.Once
	err  error
}

// openStream acquires access and opens res. Access is released again if
// the open fails.
func openStream(op string, res Resource, flag int) (*Stream, error) {
	if err := res.StartAccessing(); err != nil {
		return nil, apperrors.NewPlatformError(op, res.Path(), ErrorCode(err), "cannot access "+res.Name(), err)
	}
	rw, err := res.Open(flag)
	if err != nil {
		res.StopAccessing()
		return nil, apperrors.NewPlatformError(op, res.Path(), ErrorCode(err), "cannot open "+res.Name(), err)
	}
	return &Stream{rw: rw, res: res}, nil
}

func (s *Stream) Read(p []byte) (int, error)  { return s.rw.Read(p) }
func (s *Stream) Write(p []byte) (int, error) { return s.rw.Write(p) }

// Close closes the underlying stream and releases the scope. Later calls
// return the first result.
func (s *Stream) Close() error {
	s.once.Do(func() {
		defer s.res.StopAccessing()
		s.err = s.rw.Close()
	})
	return s.err
}
