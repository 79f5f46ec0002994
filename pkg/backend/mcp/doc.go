// Package mcp is a generation backend that answers a prompt by calling a
// single tool on a Model Context Protocol server.
//
// The prompt is passed as one string argument (named by Config.Argument,
// "prompt" by default). The text content items of the tool result form the
// answer: joined with newlines in buffered mode, written one item per flushed
// chunk in streaming mode. A result flagged IsError is returned as an error
// carrying its text.
package mcp
