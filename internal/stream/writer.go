// Package stream frames protocol envelopes over NDJSON connections. The
// Writer guarantees one envelope reaches the transport before the caller
// proceeds; the Reader reassembles envelopes from arbitrarily chunked input.
package stream

import (
	"io"
	"net/http"
	"sync"

	"github.com/ShayCichocki/sprintforge/internal/protocol"
)

// Flusher is the subset of http.Flusher the Writer needs. Transports without
// buffering can leave it nil.
type Flusher interface {
	Flush()
}

// Writer emits one envelope per line and flushes after every write. It never
// batches: the orchestrator relies on each event being delivered before the
// next step starts. A Writer is owned by exactly one run; the mutex protects
// the underlying connection, not concurrent producers.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	flush Flusher
	err   error
}

// NewWriter wraps w. If w implements http.Flusher the response is flushed
// after every envelope.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flush = f
	}
	return sw
}

// NewWriterFlusher wraps w with an explicit flusher.
func NewWriterFlusher(w io.Writer, f Flusher) *Writer {
	return &Writer{w: w, flush: f}
}

// Send encodes resp and writes it as one line, flushing before returning.
// After the first write failure (typically a client disconnect) the error is
// sticky and all further sends fail fast without touching the connection.
func (sw *Writer) Send(resp *protocol.ChatResponse) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.err != nil {
		return sw.err
	}

	line, err := protocol.EncodeLine(resp)
	if err != nil {
		return err
	}
	if _, err := sw.w.Write(line); err != nil {
		sw.err = err
		return err
	}
	if sw.flush != nil {
		sw.flush.Flush()
	}
	return nil
}

// Err returns the sticky write error, if any.
func (sw *Writer) Err() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.err
}
