package file

import (
	"io"
	"sync"
)

// tee duplicates a single-consumption reader into two independently
// paced branches. Each branch buffers only the bytes its counterpart
// has read ahead of it, so a branch that keeps pace costs nothing.
//
// Reads are pull-based: the underlying source is read at most once per
// byte, by whichever branch gets there first.
type tee struct {
	mu      sync.Mutex
	src     io.Reader
	err     error
	pending [2][]byte
}

// Branch is one side of a fan-out tee.
type Branch struct {
	t   *tee
	idx int
}

// NewTee splits src into two branches. Reading from one branch never
// consumes bytes from the other's point of view.
func NewTee(src io.Reader) (*Branch, *Branch) {
	t := &tee{src: src}
	return &Branch{t: t, idx: 0}, &Branch{t: t, idx: 1}
}

// Read implements io.Reader.
func (b *Branch) Read(p []byte) (int, error) {
	t := b.t
	t.mu.Lock()
	defer t.mu.Unlock()

	if pending := t.pending[b.idx]; len(pending) > 0 {
		n := copy(p, pending)
		t.pending[b.idx] = pending[n:]
		return n, nil
	}
	if t.err != nil {
		return 0, t.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := t.src.Read(p)
	if n > 0 {
		other := 1 - b.idx
		t.pending[other] = append(t.pending[other], p[:n]...)
	}
	if err != nil {
		t.err = err
	}
	return n, err
}
