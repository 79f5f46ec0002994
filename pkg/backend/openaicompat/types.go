package openaicompat

// Chat Completions request/response types. Only the fields promptgate sends
// or reads are declared.

// ChatCompletionRequest is the request body for /v1/chat/completions.
type ChatCompletionRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
	N        int           `json:"n"`
	Stream   bool          `json:"stream"`
}

// ChatMessage represents a message in the Chat Completions format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the non-streaming response from /v1/chat/completions.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// ChatChoice represents one completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatErrorResponse is the error envelope returned by OpenAI-compatible servers.
type ChatErrorResponse struct {
	Error ChatErrorDetail `json:"error"`
}

// ChatErrorDetail holds the error message and type.
type ChatErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code,omitempty"`
}
