package mcp

// Config describes the MCP server and tool used as a backend.
type Config struct {
	// Name is the logical name for this server, used in logs.
	Name string `json:"name" yaml:"name"`

	// Transport is the transport type to use: "sse" or "streamable-http".
	// If empty, defaults to "streamable-http".
	Transport string `json:"transport" yaml:"transport"`

	// URL is the MCP server endpoint URL.
	URL string `json:"url" yaml:"url"`

	// Tool is the name of the tool to call for every prompt.
	Tool string `json:"tool" yaml:"tool"`

	// Argument is the tool argument that receives the prompt. Defaults to
	// "prompt".
	Argument string `json:"argument,omitempty" yaml:"argument,omitempty"`

	// Headers contains additional HTTP headers to send with requests,
	// typically used for authentication (API keys, bearer tokens, etc.).
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}
