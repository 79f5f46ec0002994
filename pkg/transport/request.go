package transport

import (
	"io"
	"net/http"

	"github.com/rhuss/promptgate/pkg/stream"
)

// IncomingRequest is one inbound request as seen by the dispatcher. Its body
// can be consumed at most once.
type IncomingRequest struct {
	Method    string
	Authority string
	Header    http.Header

	path     string
	pathOK   bool
	body     io.Reader
	consumed bool
}

// NewIncomingRequest wraps r.
func NewIncomingRequest(r *http.Request) *IncomingRequest {
	path, ok := PathWithQuery(r)
	return &IncomingRequest{
		Method:    r.Method,
		Authority: r.Host,
		Header:    r.Header,
		path:      path,
		pathOK:    ok,
		body:      r.Body,
	}
}

// PathWithQuery returns the request target. ok is false when the request
// had no usable path.
func (r *IncomingRequest) PathWithQuery() (string, bool) {
	return r.path, r.pathOK
}

// Consume takes ownership of the body stream. It fails with an error
// wrapping ErrBodyConsume if the body is absent or was already taken.
func (r *IncomingRequest) Consume() (stream.Source, error) {
	if r.consumed {
		return nil, errBodyConsumed
	}
	r.consumed = true
	if r.body == nil {
		return nil, errBodyAbsent
	}
	return stream.FromReader(r.body), nil
}
