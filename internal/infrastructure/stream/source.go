// Package stream provides the line sources feeding the message runner.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// Source yields newline-delimited messages. Next returns io.EOF when the
// input is exhausted.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// ReaderSource reads lines from an io.Reader such as stdin. Reads run on
// a background goroutine so that Next returns as soon as ctx is done, even
// while the reader is blocked.
type ReaderSource struct {
	r      *bufio.Reader
	closer io.Closer

	start sync.Once
	lines chan readResult
	done  chan struct{}
	stop  sync.Once
	err   error
}

type readResult struct {
	line []byte
	err  error
}

// NewReaderSource creates a source over r. Lines have no length limit.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		r:     bufio.NewReaderSize(r, 64*1024),
		lines: make(chan readResult),
		done:  make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next returns the next non-blank line without its line ending
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.start.Do(func() { go s.read() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-s.lines:
		if res.err != nil {
			s.err = res.err
			return nil, res.err
		}
		return res.line, nil
	}
}

func (s *ReaderSource) read() {
	for {
		line, err := s.r.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) > 0 {
			// A final line without newline is still a message
			if !s.send(readResult{line: line}) {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.EOF
			}
			s.send(readResult{err: err})
			return
		}
	}
}

func (s *ReaderSource) send(res readResult) bool {
	select {
	case s.lines <- res:
		return true
	case <-s.done:
		return false
	}
}

// Close closes the underlying reader when it is closable
func (s *ReaderSource) Close() error {
	s.stop.Do(func() { close(s.done) })
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
