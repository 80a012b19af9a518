// Package parse implements the streaming tar parse engine: a state
// machine that consumes an archive byte stream in arbitrary chunk
// sizes and dispatches entries to a sink.
//
// Memory use is bounded by the chunk size: the parser retains only the
// unconsumed remainder between feeds, never a whole entry body.
package parse

import (
	"fmt"
	"io"

	"github.com/meigma/ustar/internal/header"
)

// EntrySink receives entries as the parser discovers them.
//
// Directory is called once per directory entry. File is called for
// every other entry kind and must return a sink for the entry's body;
// the returned sink is closed when the body is complete. Entries with
// no body (symlinks, links, zero-length files) still get a File call
// followed by an immediate Close. The raw slice is the entry's
// 512-byte header record; the sink owns it.
type EntrySink interface {
	Directory(hdr header.Fields, raw []byte) error
	File(hdr header.Fields, raw []byte) (io.WriteCloser, error)
}

type state uint8

const (
	stateHeader state = iota
	stateBody
	statePadding
	stateDone
	stateFailed
)

// Parser is the streaming state machine. Feed it chunks of any size;
// call Close once the input is exhausted.
type Parser struct {
	sink EntrySink

	buf []byte
	off int

	state     state
	body      io.WriteCloser
	remaining int64
	padding   int64
	err       error
}

// New returns a Parser dispatching to sink.
func New(sink EntrySink) *Parser {
	return &Parser{sink: sink}
}

// Done reports whether the end-of-archive sentinel has been seen.
func (p *Parser) Done() bool {
	return p.state == stateDone
}

// Feed consumes the next chunk of archive bytes. A returned error is
// terminal: the parser fails and all subsequent calls return the same
// error.
func (p *Parser) Feed(chunk []byte) error {
	if p.err != nil {
		return p.err
	}
	p.buf = append(p.buf, chunk...)
	if err := p.run(); err != nil {
		p.fail(err)
		return p.err
	}
	p.compact()
	return nil
}

// Close signals end of input. It returns ErrCorruptedArchive when the
// stream stopped mid-header, mid-body, or mid-padding. A stream that
// ends cleanly on a block boundary without an end-of-archive sentinel
// is accepted.
func (p *Parser) Close() error {
	if p.err != nil {
		return p.err
	}
	switch {
	case p.state == stateDone:
		return nil
	case p.state == stateHeader && p.off >= len(p.buf):
		return nil
	default:
		p.fail(fmt.Errorf("%w: truncated archive", header.ErrCorruptedArchive))
		return p.err
	}
}

// run steps the state machine until it needs more input.
func (p *Parser) run() error {
	for {
		switch p.state {
		case stateHeader:
			if p.avail() < header.BlockSize {
				return nil
			}
			if err := p.stepHeader(); err != nil {
				return err
			}

		case stateBody:
			if p.avail() == 0 {
				return nil
			}
			if err := p.stepBody(); err != nil {
				return err
			}

		case statePadding:
			if p.avail() == 0 {
				return nil
			}
			n := int64(p.avail())
			if n > p.padding {
				n = p.padding
			}
			p.off += int(n)
			p.padding -= n
			if p.padding == 0 {
				p.state = stateHeader
			}

		case stateDone:
			// Anything after the sentinel must be zero filler.
			if !header.IsZeroBlock(p.buf[p.off:]) {
				return fmt.Errorf("%w: data after end-of-archive marker", header.ErrCorruptedArchive)
			}
			p.off = len(p.buf)
			return nil
		}
	}
}

// stepHeader decodes the next header record and opens the entry.
func (p *Parser) stepHeader() error {
	block := p.buf[p.off : p.off+header.BlockSize]
	hdr, err := header.Decode(block)
	if err == io.EOF {
		p.off += header.BlockSize
		p.state = stateDone
		return nil
	}
	if err != nil {
		return err
	}

	raw := make([]byte, header.BlockSize)
	copy(raw, block)
	p.off += header.BlockSize

	if hdr.Typeflag == header.TypeDir {
		return p.sink.Directory(hdr, raw)
	}

	w, err := p.sink.File(hdr, raw)
	if err != nil {
		return err
	}
	if hdr.Size == 0 {
		return w.Close()
	}
	p.body = w
	p.remaining = hdr.Size
	p.padding = (header.BlockSize - hdr.Size%header.BlockSize) % header.BlockSize
	p.state = stateBody
	return nil
}

// stepBody moves buffered bytes into the current body sink.
func (p *Parser) stepBody() error {
	n := int64(p.avail())
	if n > p.remaining {
		n = p.remaining
	}
	if _, err := p.body.Write(p.buf[p.off : p.off+int(n)]); err != nil {
		return err
	}
	p.off += int(n)
	p.remaining -= n
	if p.remaining == 0 {
		err := p.body.Close()
		p.body = nil
		if err != nil {
			return err
		}
		if p.padding == 0 {
			p.state = stateHeader
		} else {
			p.state = statePadding
		}
	}
	return nil
}

func (p *Parser) avail() int {
	return len(p.buf) - p.off
}

// compact moves the unconsumed remainder to the front of the buffer so
// retained memory stays proportional to the chunk size.
func (p *Parser) compact() {
	if p.off == 0 {
		return
	}
	n := copy(p.buf, p.buf[p.off:])
	p.buf = p.buf[:n]
	p.off = 0
}

// fail moves the parser to its terminal failed state, closing any open
// body sink.
func (p *Parser) fail(err error) {
	if p.body != nil {
		p.body.Close() //nolint:errcheck // already failing
		p.body = nil
	}
	p.state = stateFailed
	p.err = err
}
