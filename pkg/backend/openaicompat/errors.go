package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPError is returned when the backend answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Message)
}

// MapHTTPError converts a non-2xx response into an *HTTPError. It attempts to
// parse the body as a ChatErrorResponse to extract a descriptive message.
func MapHTTPError(resp *http.Response) *HTTPError {
	message := ExtractErrorMessage(resp.Body)

	if message == "" {
		switch {
		case resp.StatusCode == http.StatusBadRequest:
			message = "invalid request to backend"
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			message = "backend authentication failed"
		case resp.StatusCode == http.StatusNotFound:
			message = "backend resource not found"
		case resp.StatusCode == http.StatusTooManyRequests:
			message = "backend rate limit exceeded"
		case resp.StatusCode >= http.StatusInternalServerError:
			message = "backend server error"
		default:
			message = "unexpected backend error"
		}
	}

	return &HTTPError{StatusCode: resp.StatusCode, Message: message}
}

// MapNetworkError wraps a network-level error (connection refused, timeout,
// DNS resolution failure).
func MapNetworkError(err error) error {
	return fmt.Errorf("backend connection error: %w", err)
}

// ExtractErrorMessage tries to parse the response body as a ChatErrorResponse
// and returns the error message if found.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return ""
}
