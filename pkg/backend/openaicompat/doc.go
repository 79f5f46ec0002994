// Package openaicompat is a generation backend for any OpenAI-compatible
// Chat Completions server (vLLM, LiteLLM, OpenAI, the bundled mock backend).
//
// The prompt becomes a single user message, optionally preceded by a
// configured system message. Generate uses a non-streaming completion and
// returns the first choice's content. GenerateStream requests an SSE stream
// and writes every content delta to the sink as it arrives.
package openaicompat
