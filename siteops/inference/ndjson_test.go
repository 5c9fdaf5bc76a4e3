package inference

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A int `json:"a"`
}

func decodeAll(d *Decoder[sample], chunks ...string) []sample {
	var out []sample
	for _, c := range chunks {
		out = append(out, d.Feed([]byte(c))...)
	}
	if v, ok := d.Flush(); ok {
		out = append(out, v)
	}
	return out
}

func TestDecoder_SplitAtEveryOffset(t *testing.T) {
	input := "{\"a\":1}\n{\"a\":2}\n"
	for i := 0; i <= len(input); i++ {
		d := NewDecoder[sample](zerolog.Nop())
		got := decodeAll(d, input[:i], input[i:])
		assert.Equal(t, []sample{{A: 1}, {A: 2}}, got, "split at offset %d", i)
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	input := "{\"a\":1}\n\n{\"a\":2}\n{\"a\":3}"
	d := NewDecoder[sample](zerolog.Nop())
	var chunks []string
	for _, b := range []byte(input) {
		chunks = append(chunks, string(b))
	}
	assert.Equal(t, []sample{{A: 1}, {A: 2}, {A: 3}}, decodeAll(d, chunks...))
}

func TestDecoder_ManyObjectsInOneChunk(t *testing.T) {
	d := NewDecoder[sample](zerolog.Nop())
	got := d.Feed([]byte("{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n{\"a\":"))
	assert.Equal(t, []sample{{A: 1}, {A: 2}, {A: 3}}, got)
	assert.Equal(t, len("{\"a\":"), d.Buffered())

	got = d.Feed([]byte("4}\n"))
	assert.Equal(t, []sample{{A: 4}}, got)
	assert.Zero(t, d.Buffered())
}

func TestDecoder_MalformedLineDropped(t *testing.T) {
	d := NewDecoder[sample](zerolog.Nop())
	got := decodeAll(d, "{\"a\":1}\nnot json\n{\"a\":2}\n")
	assert.Equal(t, []sample{{A: 1}, {A: 2}}, got)
}

func TestDecoder_TrailingFragment(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d := NewDecoder[sample](zerolog.Nop())
		assert.Equal(t, []sample{{A: 1}, {A: 9}}, decodeAll(d, "{\"a\":1}\n{\"a\":9}"))
	})

	t.Run("invalid", func(t *testing.T) {
		d := NewDecoder[sample](zerolog.Nop())
		assert.Equal(t, []sample{{A: 1}}, decodeAll(d, "{\"a\":1}\n{\"a\":"))
	})

	t.Run("whitespace only", func(t *testing.T) {
		d := NewDecoder[sample](zerolog.Nop())
		_, ok := d.Flush()
		assert.False(t, ok)
		d.Feed([]byte("  "))
		_, ok = d.Flush()
		assert.False(t, ok)
	})
}

// chunkedReader returns its chunks one Read at a time.
type chunkedReader struct {
	chunks []string
	closed bool
	err    error
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkedReader) Close() error {
	r.closed = true
	return nil
}

func TestStream_YieldsAcrossChunks(t *testing.T) {
	body := &chunkedReader{chunks: []string{"{\"a\":1}\n{\"a", "\":2}\n", "{\"a\":3}"}}
	s := newStream[sample](body, zerolog.Nop())

	var got []sample
	for v, err := range s.All() {
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []sample{{A: 1}, {A: 2}, {A: 3}}, got)
	assert.True(t, body.closed)
}

func TestStream_EarlyStopReleasesBody(t *testing.T) {
	body := &chunkedReader{chunks: []string{strings.Repeat("{\"a\":1}\n", 50)}}
	s := newStream[sample](body, zerolog.Nop())

	for range s.All() {
		break
	}
	assert.True(t, body.closed)

	// single use
	for _, err := range s.All() {
		assert.ErrorIs(t, err, ErrStreamConsumed)
	}
}

func TestStream_ReadErrorSurfaces(t *testing.T) {
	body := &chunkedReader{chunks: []string{"{\"a\":1}\n"}, err: errors.New("connection reset")}
	s := newStream[sample](body, zerolog.Nop())

	var values []sample
	var lastErr error
	for v, err := range s.All() {
		if err != nil {
			lastErr = err
			continue
		}
		values = append(values, v)
	}
	assert.Equal(t, []sample{{A: 1}}, values)
	assert.ErrorContains(t, lastErr, "connection reset")
	assert.True(t, body.closed)
}
