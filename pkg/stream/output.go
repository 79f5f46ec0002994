package stream

import (
	"fmt"
	"iter"
)

// WriteChunkSize is the maximum number of bytes handed to a Writer per call.
const WriteChunkSize = 4096

// Writer is a blocking output stream. BlockingWriteAndFlush suspends until p
// has been accepted and flushed by the transport.
type Writer interface {
	BlockingWriteAndFlush(p []byte) error
}

// StreamWriteError reports the chunk whose write failed. Chunks before it
// were written; chunks after it were not attempted.
type StreamWriteError struct {
	Chunk   int
	Written int64
	Err     error
}

func (e *StreamWriteError) Error() string {
	return fmt.Sprintf("writing chunk %d (after %d bytes): %v", e.Chunk, e.Written, e.Err)
}

func (e *StreamWriteError) Unwrap() error {
	return e.Err
}

// Split returns the consecutive chunks of p, each at most size bytes. A
// non-positive size selects WriteChunkSize. An empty payload yields no chunks.
// The chunks alias p.
func Split(p []byte, size int) iter.Seq[[]byte] {
	if size <= 0 {
		size = WriteChunkSize
	}
	return func(yield func([]byte) bool) {
		for len(p) > 0 {
			n := min(size, len(p))
			if !yield(p[:n:n]) {
				return
			}
			p = p[n:]
		}
	}
}

// WriteChunked writes p to w in order, in chunks of at most WriteChunkSize
// bytes. It stops at the first failed write and returns the number of chunks
// written successfully.
func WriteChunked(w Writer, p []byte) (int, error) {
	return WriteChunkedSize(w, p, WriteChunkSize)
}

// WriteChunkedSize is WriteChunked with an explicit chunk size, capped at
// WriteChunkSize.
func WriteChunkedSize(w Writer, p []byte, size int) (int, error) {
	if size <= 0 || size > WriteChunkSize {
		size = WriteChunkSize
	}

	var (
		chunks  int
		written int64
	)
	for chunk := range Split(p, size) {
		if err := w.BlockingWriteAndFlush(chunk); err != nil {
			return chunks, &StreamWriteError{Chunk: chunks, Written: written, Err: err}
		}
		chunks++
		written += int64(len(chunk))
	}
	return chunks, nil
}
