package transport

import (
	"context"
	"net/http"

	"github.com/rhuss/promptgate/pkg/backend"
	"github.com/rhuss/promptgate/pkg/debug"
	"github.com/rhuss/promptgate/pkg/observability"
	"github.com/rhuss/promptgate/pkg/stream"
)

// Body is the response production result handed to Emit. It is either
// Buffered or Streamed.
type Body interface {
	isBody()
}

// Buffered is a fully materialized answer.
type Buffered struct {
	Text string
}

// Streamed is an answer produced directly into the committed response body.
// Produce owns all writes to sink.
type Streamed struct {
	Produce func(ctx context.Context, sink backend.Sink) error
}

func (Buffered) isBody() {}
func (Streamed) isBody() {}

// Emit writes body as a 200 response.
func Emit(ctx context.Context, out *OutgoingResponse, body Body) error {
	switch b := body.(type) {
	case Buffered:
		return EmitText(ctx, out, http.StatusOK, b.Text)
	case Streamed:
		return EmitStream(ctx, out, b.Produce)
	default:
		panic("transport: unknown response body variant")
	}
}

// EmitText commits status with a text/plain content type and writes text in
// chunks of at most stream.WriteChunkSize bytes, flushing each one. The first
// failed write stops the response and is returned with the body left open.
func EmitText(ctx context.Context, out *OutgoingResponse, status int, text string) error {
	header := http.Header{}
	header.Set("Content-Type", "text/plain")

	body, err := out.Commit(status, header)
	if err != nil {
		return err
	}

	chunks, err := stream.WriteChunked(body, []byte(text))
	observability.ResponseChunksTotal.Add(float64(chunks))
	observability.ResponseBytesTotal.WithLabelValues(string(ModeBuffered)).Add(float64(out.Written()))
	if err != nil {
		return err
	}

	debug.Log(ctx, "stream", "buffered response written", "chunks", chunks, "bytes", out.Written())
	return body.Finish()
}

// EmitEmpty commits status with no headers and finishes the body at once.
func EmitEmpty(ctx context.Context, out *OutgoingResponse, status int) error {
	body, err := out.Commit(status, nil)
	if err != nil {
		return err
	}
	return body.Finish()
}

// EmitStream commits a 200 response and hands the body to produce. It does no
// chunking of its own. The body is finished only if produce succeeds;
// otherwise produce's error is returned with the body left open so the
// caller can abort it.
func EmitStream(ctx context.Context, out *OutgoingResponse, produce func(ctx context.Context, sink backend.Sink) error) error {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache")

	body, err := out.Commit(http.StatusOK, header)
	if err != nil {
		return err
	}

	observability.StreamingResponses.Inc()
	defer observability.StreamingResponses.Dec()

	produceErr := produce(ctx, body)
	observability.ResponseBytesTotal.WithLabelValues(string(ModeStreaming)).Add(float64(out.Written()))
	debug.Log(ctx, "stream", "streamed response ended", "bytes", out.Written())

	if produceErr != nil {
		return produceErr
	}
	return body.Finish()
}
