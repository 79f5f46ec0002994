// Package backend defines the boundary between the dispatcher and the
// prompt-generation capability it calls.
//
// A backend answers a prompt in one of two ways, chosen once when the
// dispatcher is built:
//
//   - Generate blocks until the whole answer is available (buffered mode).
//   - GenerateStream writes the answer into a Sink as it is produced
//     (streaming mode). The response status has already been committed when
//     GenerateStream is called, so the backend owns the body from then on.
//
// Adapters live in sub-packages: openaicompat talks to a Chat Completions
// server, mcp calls a tool on an MCP server. Echo, in this package, returns
// the prompt unchanged.
package backend
