// Command mock-backend runs a deterministic Chat Completions server for
// local runs and integration tests. Every completion echoes the last user
// message; streamed completions send it word by word.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rhuss/promptgate/pkg/backend/openaicompat"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{Addr: ":" + port, Handler: newMux()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	answer := lastUserMessage(req.Messages)

	if req.Stream {
		handleStreaming(w, model, answer)
		return
	}

	resp := openaicompat.ChatCompletionResponse{
		ID:     "chatcmpl-mock",
		Object: "chat.completion",
		Model:  model,
		Choices: []openaicompat.ChatChoice{{
			Index:        0,
			Message:      openaicompat.ChatMessage{Role: "assistant", Content: answer},
			FinishReason: "stop",
		}},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func handleStreaming(w http.ResponseWriter, model, answer string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSEChunk(w, model, map[string]any{"role": "assistant"}, nil)
	flusher.Flush()

	for _, token := range tokens(answer) {
		writeSSEChunk(w, model, map[string]any{"content": token}, nil)
		flusher.Flush()
	}

	stop := "stop"
	writeSSEChunk(w, model, map[string]any{}, &stop)
	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSSEChunk(w http.ResponseWriter, model string, delta map[string]any, finishReason *string) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []map[string]any{{
			"index":         0,
			"delta":         delta,
			"finish_reason": finishReason,
		}},
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// tokens splits s into words, each keeping its trailing whitespace, so that
// the concatenation of all tokens is s.
func tokens(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexAny(s, " \n\t")
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

func lastUserMessage(msgs []openaicompat.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(openaicompat.ChatErrorResponse{
		Error: openaicompat.ChatErrorDetail{Message: message, Type: "invalid_request_error"},
	})
}
