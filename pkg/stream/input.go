package stream

import (
	"errors"
	"io"
	"iter"
)

// ReadChunkSize is the maximum number of bytes requested per inbound read.
const ReadChunkSize = 8192

// ErrClosed signals that the source was closed. Readers treat it exactly like
// an empty read: the end of input, not a failure.
var ErrClosed = errors.New("stream closed")

// Source is a blocking byte source. BlockingRead suspends until data, end of
// stream or an error is available and returns at most max bytes. An empty
// chunk or ErrClosed marks the end of the stream, so implementations must
// not return an empty chunk for any other reason.
type Source interface {
	BlockingRead(max int) ([]byte, error)
}

// StreamReadError reports a read failure other than end of stream.
type StreamReadError struct {
	Err error
}

func (e *StreamReadError) Error() string {
	return "stream read error: " + e.Err.Error()
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}

// maxEmptyReads bounds consecutive (0, nil) reads from an io.Reader before
// the source gives up with io.ErrNoProgress.
const maxEmptyReads = 100

// readerSource adapts an io.Reader to Source. io.EOF becomes ErrClosed, and
// an error returned together with data is held back until the next read so
// that no bytes are lost. A (0, nil) read means nothing happened and is
// retried; it never ends the stream.
type readerSource struct {
	r       io.Reader
	pending error
}

// FromReader returns a Source reading from r.
func FromReader(r io.Reader) Source {
	return &readerSource{r: r}
}

func (s *readerSource) BlockingRead(max int) ([]byte, error) {
	if s.pending != nil {
		return nil, s.pending
	}
	if max <= 0 {
		max = ReadChunkSize
	}

	buf := make([]byte, max)
	var (
		n   int
		err error
	)
	for tries := 0; ; tries++ {
		if tries == maxEmptyReads {
			return nil, io.ErrNoProgress
		}
		n, err = s.r.Read(buf)
		if n > 0 || err != nil {
			break
		}
	}
	if errors.Is(err, io.EOF) {
		err = ErrClosed
	}
	if n > 0 {
		s.pending = err
		return buf[:n], nil
	}
	return nil, err
}

// Reader drains a Source in bounded reads. It is single use: once the
// terminal state is reached, further iteration yields nothing.
type Reader struct {
	src   Source
	size  int
	done  bool
	total int64
	reads int
}

// NewReader returns a Reader over src using ReadChunkSize reads.
func NewReader(src Source) *Reader {
	return &Reader{src: src, size: ReadChunkSize}
}

// Chunks returns the lazy sequence of chunks read from the source, in arrival
// order. The sequence ends after an empty read or ErrClosed. Any other error
// is yielded once, wrapped in a *StreamReadError, and also ends the sequence.
// Breaking out of the loop early leaves the remaining input unread, and a
// later call to Chunks resumes from there.
func (r *Reader) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for !r.done {
			chunk, err := r.src.BlockingRead(r.size)
			r.reads++
			if err != nil || len(chunk) == 0 {
				r.done = true
			}
			if len(chunk) > 0 {
				r.total += int64(len(chunk))
				if !yield(chunk, nil) {
					return
				}
			}
			if err != nil && !errors.Is(err, ErrClosed) {
				yield(nil, &StreamReadError{Err: err})
				return
			}
		}
	}
}

// Done reports whether the terminal state has been reached.
func (r *Reader) Done() bool {
	return r.done
}

// Total returns the number of bytes read so far.
func (r *Reader) Total() int64 {
	return r.total
}

// Reads returns the number of read attempts made so far, including the one
// that observed the end of the stream.
func (r *Reader) Reads() int {
	return r.reads
}

// ReadAll drains the remaining chunks into a single buffer. An empty stream
// yields an empty, non-nil buffer.
func (r *Reader) ReadAll() ([]byte, error) {
	buf := []byte{}
	for chunk, err := range r.Chunks() {
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

// ReadAll drains src into memory using ReadChunkSize reads.
func ReadAll(src Source) ([]byte, error) {
	return NewReader(src).ReadAll()
}
