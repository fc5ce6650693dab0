package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/ShayCichocki/sprintforge/internal/protocol"
)

// Reader decodes envelopes from an NDJSON stream. Partial lines are buffered
// until a newline arrives; blank lines are skipped. Used by the watch client
// and by handler tests.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next returns the next envelope on the stream. It returns io.EOF once the
// stream is exhausted, and a *protocol.ParseError for malformed lines.
func (r *Reader) Next() (*protocol.ChatResponse, error) {
	for {
		line, err := r.br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}

		// A stream may end without a trailing newline; decode the remnant.
		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				return nil, io.EOF
			}
			continue // blank keep-alive line
		}

		resp, derr := protocol.DecodeLine(line)
		if derr != nil {
			return nil, derr
		}
		return resp, nil
	}
}

// Collect drains the stream and returns every envelope in order. It stops at
// EOF or the first decode failure.
func (r *Reader) Collect() ([]*protocol.ChatResponse, error) {
	var out []*protocol.ChatResponse
	for {
		resp, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
}
