package stream

import (
	"io"
	"sync"
)

// Store keeps every chunk written to it so that any number of readers,
// opened at any time, each see the complete output from the start.
type Store struct {
	mu     sync.Mutex
	cond   *sync.Cond
	chunks [][]byte
	closed bool
	err    error
}

func NewStore() *Store {
	s := &Store{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Store) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if len(p) == 0 {
		return 0, nil
	}
	s.chunks = append(s.chunks, append([]byte(nil), p...))
	s.cond.Broadcast()
	return len(p), nil
}

// Close ends the output. Readers get io.EOF once drained.
func (s *Store) Close() error {
	return s.CloseWithError(nil)
}

// CloseWithError ends the output; readers get err once drained.
func (s *Store) CloseWithError(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.err = err
	s.cond.Broadcast()
	return nil
}

// Bytes returns everything written so far.
func (s *Store) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// NewReader returns a reader positioned at the first chunk.
func (s *Store) NewReader() io.ReadCloser {
	return &storeReader{store: s}
}

type storeReader struct {
	store  *Store
	idx    int
	off    int
	closed bool
}

func (r *storeReader) Read(p []byte) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if r.closed {
			return 0, io.ErrClosedPipe
		}
		if r.idx < len(s.chunks) {
			n := copy(p, s.chunks[r.idx][r.off:])
			r.off += n
			if r.off == len(s.chunks[r.idx]) {
				r.idx++
				r.off = 0
			}
			return n, nil
		}
		if s.closed {
			if s.err != nil {
				return 0, s.err
			}
			return 0, io.EOF
		}
		s.cond.Wait()
	}
}

func (r *storeReader) Close() error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.closed = true
	r.store.cond.Broadcast()
	return nil
}
