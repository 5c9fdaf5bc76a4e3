package inference

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/rs/zerolog"
)

const streamReadSize = 4096

// ErrStreamConsumed is yielded when All is called on a stream that has
// already been iterated or closed.
var ErrStreamConsumed = errors.New("stream already consumed")

// Stream is a single-use lazy sequence of values decoded from an NDJSON
// body. Stopping the iteration early, or calling Close, releases the body.
type Stream[T any] struct {
	body    io.ReadCloser
	decoder *Decoder[T]

	mu       sync.Mutex
	consumed bool
	closed   bool
}

func newStream[T any](body io.ReadCloser, logger zerolog.Logger) *Stream[T] {
	return &Stream[T]{body: body, decoder: NewDecoder[T](logger)}
}

// All yields decoded values in arrival order. A read error is yielded once
// as the final element.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		s.mu.Lock()
		if s.consumed || s.closed {
			s.mu.Unlock()
			yield(zero, ErrStreamConsumed)
			return
		}
		s.consumed = true
		s.mu.Unlock()

		defer s.Close()

		buf := make([]byte, streamReadSize)
		for {
			n, err := s.body.Read(buf)
			if n > 0 {
				for _, v := range s.decoder.Feed(buf[:n]) {
					if !yield(v, nil) {
						return
					}
				}
			}
			if err == io.EOF {
				if v, ok := s.decoder.Flush(); ok {
					yield(v, nil)
				}
				return
			}
			if err != nil {
				yield(zero, fmt.Errorf("stream read error: %w", err))
				return
			}
		}
	}
}

// Close releases the underlying body. It is safe to call more than once.
func (s *Stream[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
