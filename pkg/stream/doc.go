// Package stream provides the blocking byte-stream primitives used by the
// dispatcher.
//
// Inbound, a Source is drained in reads of at most ReadChunkSize bytes. The
// chunks form a single-use lazy sequence (Reader.Chunks) whose only terminal
// state is reached either by an empty read or by ErrClosed; both mean clean
// end of input. Any other read failure surfaces as a *StreamReadError.
//
// Outbound, a payload is split into chunks of at most WriteChunkSize bytes
// and handed to a Writer one chunk at a time, each write blocking until the
// chunk has been flushed. Chunk boundaries carry no meaning: concatenating
// the chunks in order always yields the original bytes.
package stream
