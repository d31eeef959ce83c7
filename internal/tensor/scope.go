package tensor

import (
	"errors"
	"sync"
)

// Releaser is a buffer that must be freed explicitly, eg. a gocv.Mat.
type Releaser interface {
	Close() error
}

// Scope collects buffers allocated during one inference and frees them all
// at once. Close is safe to call more than once.
type Scope struct {
	mu       sync.Mutex
	tracked  []Releaser
	closed   bool
	released int
}

// NewScope opens an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Track registers r for release when the scope closes. Tracking on a closed
// scope releases r immediately.
func (s *Scope) Track(r Releaser) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.Close()
		return
	}
	s.tracked = append(s.tracked, r)
	s.mu.Unlock()
}

// Keep removes r from the scope so it survives Close. The caller owns it.
func (s *Scope) Keep(r Releaser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tracked {
		if t == r {
			s.tracked = append(s.tracked[:i], s.tracked[i+1:]...)
			return
		}
	}
}

// Len returns the number of buffers still tracked.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}

// Released returns the number of buffers freed by Close.
func (s *Scope) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Close releases every tracked buffer in reverse allocation order.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.tracked) - 1; i >= 0; i-- {
		if err := s.tracked[i].Close(); err != nil {
			errs = append(errs, err)
		}
		s.released++
	}
	s.tracked = nil
	return errors.Join(errs...)
}
