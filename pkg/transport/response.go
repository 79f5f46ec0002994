package transport

import (
	"errors"
	"net/http"
	"sync"
)

var (
	// ErrAlreadyCommitted is returned by a second Commit.
	ErrAlreadyCommitted = errors.New("response already committed")

	// ErrBodyFinished is returned by writes after Finish.
	ErrBodyFinished = errors.New("response body finished")

	// ErrResponseAborted is returned by body operations after Abort.
	ErrResponseAborted = errors.New("response aborted")
)

// responseState tracks the lifecycle of an OutgoingResponse.
type responseState int

const (
	responsePending   responseState = iota // Nothing sent yet
	responseCommitted                      // Status and headers sent, body open
	responseFinished                       // Body completed
	responseAborted                        // Failed after commit, must not end cleanly
)

// OutgoingResponse is the response for one dispatch. Status and headers are
// sent by a single Commit and cannot be amended afterwards; only the body
// can still be written.
type OutgoingResponse struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu     sync.Mutex
	state  responseState
	status int
	body   *OutgoingBody
}

// NewOutgoingResponse creates an OutgoingResponse writing to w.
func NewOutgoingResponse(w http.ResponseWriter) *OutgoingResponse {
	return &OutgoingResponse{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// Commit sends status and header to the client and returns the body handle.
func (o *OutgoingResponse) Commit(status int, header http.Header) (*OutgoingBody, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != responsePending {
		return nil, ErrAlreadyCommitted
	}

	dst := o.w.Header()
	for k, vv := range header {
		dst[k] = append([]string(nil), vv...)
	}
	o.w.WriteHeader(status)

	o.state = responseCommitted
	o.status = status
	o.body = &OutgoingBody{resp: o}
	return o.body, nil
}

// Committed reports whether status and headers have been sent.
func (o *OutgoingResponse) Committed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state != responsePending
}

// Status returns the committed status code, or 0 before Commit.
func (o *OutgoingResponse) Status() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Abort marks a committed response as failed. The status can no longer
// change, so the caller must tear down the transport instead of ending the
// body; Aborted reports whether that is required. Abort before Commit is a
// no-op.
func (o *OutgoingResponse) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != responsePending {
		o.state = responseAborted
	}
}

// Aborted reports whether Abort was called on a committed response.
func (o *OutgoingResponse) Aborted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == responseAborted
}

// Written returns the number of body bytes written so far.
func (o *OutgoingResponse) Written() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.body == nil {
		return 0
	}
	return o.body.written
}

// OutgoingBody is the writable body of a committed response.
type OutgoingBody struct {
	resp    *OutgoingResponse
	written int64
}

// Write writes p to the response body without flushing.
func (b *OutgoingBody) Write(p []byte) (int, error) {
	o := b.resp
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.bodyOpen(); err != nil {
		return 0, err
	}
	n, err := o.w.Write(p)
	b.written += int64(n)
	return n, err
}

// Flush pushes buffered body bytes to the client. Writers that cannot flush
// are treated as always flushed.
func (b *OutgoingBody) Flush() error {
	o := b.resp
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.bodyOpen(); err != nil {
		return err
	}
	return o.flush()
}

// BlockingWriteAndFlush writes p and flushes it before returning.
func (b *OutgoingBody) BlockingWriteAndFlush(p []byte) error {
	if _, err := b.Write(p); err != nil {
		return err
	}
	return b.Flush()
}

// Finish completes the body. No trailers are sent. Finish is idempotent;
// an aborted body cannot be finished.
func (b *OutgoingBody) Finish() error {
	o := b.resp
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case responseFinished:
		return nil
	case responseAborted:
		return ErrResponseAborted
	}
	o.state = responseFinished
	if b.written == 0 {
		return nil
	}
	return o.flush()
}

// bodyOpen must be called with o.mu held.
func (o *OutgoingResponse) bodyOpen() error {
	switch o.state {
	case responseFinished:
		return ErrBodyFinished
	case responseAborted:
		return ErrResponseAborted
	}
	return nil
}

// flush must be called with o.mu held.
func (o *OutgoingResponse) flush() error {
	if err := o.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
