package integration

import (
	"net/http"
	"testing"
)

func TestRouteMismatch(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"wrong method", http.MethodGet, "/openai-proxy"},
		{"wrong path", http.MethodPost, "/other"},
		{"query string", http.MethodPost, "/openai-proxy?x=1"},
		{"trailing slash", http.MethodPost, "/openai-proxy/"},
		{"root", http.MethodPut, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, testEnv.Echo.URL+tt.path, "hello")
			body := readBody(t, resp)

			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", resp.StatusCode)
			}
			if body != "" {
				t.Errorf("body = %q, want empty", body)
			}
		})
	}
}

func TestInvalidUTF8(t *testing.T) {
	resp := do(t, http.MethodPost, testEnv.Echo.URL+"/openai-proxy", "ok\xff\xfe")
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body != "" {
		t.Errorf("body = %q, want empty", body)
	}
}

func TestUnreachableBackend(t *testing.T) {
	resp := do(t, http.MethodPost, testEnv.Unreachable.URL+"/openai-proxy", "hello")
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if body != "" {
		t.Errorf("body = %q, want empty", body)
	}
}

func TestUnreachableBackendInband(t *testing.T) {
	resp := do(t, http.MethodPost, testEnv.Inband.URL+"/openai-proxy", "hello")
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body == "" {
		t.Error("expected the backend error text as body")
	}
}
