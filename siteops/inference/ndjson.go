package inference

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Decoder incrementally decodes newline-delimited JSON from arbitrarily
// chunked input. A single buffer carries the unterminated tail of the
// previous chunk into the next one.
//
// A Decoder is not safe for concurrent use.
type Decoder[T any] struct {
	buf    []byte
	logger zerolog.Logger
}

func NewDecoder[T any](logger zerolog.Logger) *Decoder[T] {
	return &Decoder[T]{logger: logger}
}

// Feed appends chunk to the buffer and returns every complete line that
// parsed. Blank lines are skipped; lines that fail to parse are logged and
// dropped. The fragment after the last newline stays buffered.
func (d *Decoder[T]) Feed(chunk []byte) []T {
	d.buf = append(d.buf, chunk...)

	idx := bytes.LastIndexByte(d.buf, '\n')
	if idx < 0 {
		return nil
	}

	complete := d.buf[:idx]
	var out []T
	for line := range bytes.SplitSeq(complete, []byte{'\n'}) {
		if v, ok := d.parse(line); ok {
			out = append(out, v)
		}
	}

	rest := d.buf[idx+1:]
	d.buf = append(d.buf[:0:0], rest...)
	return out
}

// Flush attempts a final parse of whatever is left in the buffer at stream
// end. It reports false when the buffer is empty or does not hold valid JSON.
func (d *Decoder[T]) Flush() (T, bool) {
	line := d.buf
	d.buf = nil
	return d.parse(line)
}

// Buffered returns the number of bytes held back waiting for a newline.
func (d *Decoder[T]) Buffered() int {
	return len(d.buf)
}

func (d *Decoder[T]) parse(line []byte) (T, bool) {
	var v T
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return v, false
	}
	if err := json.Unmarshal(line, &v); err != nil {
		d.logger.Warn().Err(err).Int("bytes", len(line)).Msg("Dropping malformed NDJSON line")
		return v, false
	}
	return v, true
}
