package transport

import (
	"net/http"
	"net/url"
)

// Decision is the outcome of routing one request.
type Decision int

const (
	// Unmatched is any method and path other than the recognized route.
	Unmatched Decision = iota
	// Matched is the single recognized route.
	Matched
	// Malformed means the request path is missing or unusable.
	Malformed
)

func (d Decision) String() string {
	switch d {
	case Matched:
		return "matched"
	case Malformed:
		return "malformed"
	default:
		return "unmatched"
	}
}

// DefaultPath is the route served when no path is configured.
const DefaultPath = "/openai-proxy"

// Router recognizes exactly one method and path. Matching is exact: there is
// no prefix or wildcard matching, and a query string makes the request
// unmatched.
type Router struct {
	Method string
	// Path is the configured, unescaped route path.
	Path string

	// target is Path in the escaped form PathWithQuery produces.
	target string
}

// NewRouter returns a Router for POST to path. path is taken literally, so
// "/über" matches a request for "/%C3%BCber". An empty path selects
// DefaultPath.
func NewRouter(path string) *Router {
	if path == "" {
		path = DefaultPath
	}
	return &Router{
		Method: http.MethodPost,
		Path:   path,
		target: (&url.URL{Path: path}).EscapedPath(),
	}
}

// Decide routes a request given its method and its path with query. ok is
// false when the request had no usable path.
func (rt *Router) Decide(method, pathWithQuery string, ok bool) Decision {
	if !ok {
		return Malformed
	}
	if method == rt.Method && pathWithQuery == rt.target {
		return Matched
	}
	return Unmatched
}

// PathWithQuery returns the origin-form target of r: the escaped path
// followed by "?" and the raw query when one is present. ok is false for
// targets that are not origin-form, such as "*", authority-form CONNECT
// targets or opaque URLs.
func PathWithQuery(r *http.Request) (string, bool) {
	u := r.URL
	if u == nil || u.Opaque != "" {
		return "", false
	}
	p := u.EscapedPath()
	if len(p) == 0 || p[0] != '/' {
		return "", false
	}
	if u.RawQuery != "" || u.ForceQuery {
		p += "?" + u.RawQuery
	}
	return p, true
}
