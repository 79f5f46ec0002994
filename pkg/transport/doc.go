// Package transport implements the dispatch pipeline of promptgate: the
// routing decision, blocking body ingestion, prompt extraction, the backend
// call and response emission.
//
// # Request and response model
//
// IncomingRequest wraps an inbound http.Request and hands out its body at
// most once. OutgoingResponse commits status and headers in one irreversible
// step and then exposes an OutgoingBody that writes with an explicit flush
// and is finished without trailers.
//
// # Response production
//
// A Dispatcher is built around one backend and one Mode. The mode selects
// the response production strategy at construction time: buffered mode asks
// the backend for the full answer and emits it as a Buffered body in chunks
// of at most stream.WriteChunkSize bytes; streaming mode emits a Streamed
// body whose producer writes straight into the committed response.
//
// # Errors
//
// Failures before commit are answered with an empty body and the status
// chosen by StatusFromError (405 for route mismatches, 400 for unreadable or
// non-UTF-8 bodies, 502 for backend failures). Failures after commit cannot
// change the status and are only logged.
//
// # Middleware
//
// Middleware wraps http.Handler with request ids, access logging and panic
// recovery. Diagnostics flow through the logger carried by the request
// context (see debug.ContextWithLogger).
package transport
