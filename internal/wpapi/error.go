package wpapi

import (
	"fmt"
	"net/http"
)

// Kind partitions request failures into the classes the rest of the engine
// reacts to. The mapping to user-facing error codes happens in the root
// package; wpapi only reports what the wire said.
type Kind string

const (
	// KindTimeout: the request hit the configured deadline.
	KindTimeout Kind = "timeout"
	// KindNetwork: transport-level failure before a response arrived.
	KindNetwork Kind = "network"
	// KindRouteNotFound: the backend answered rest_no_route for the route.
	KindRouteNotFound Kind = "route_not_found"
	// KindInvalidCredentials: the backend rejected the supplied credentials.
	KindInvalidCredentials Kind = "invalid_credentials"
	// KindUnauthorized: 401/403 on an authenticated route.
	KindUnauthorized Kind = "unauthorized"
	// KindServerFault: 5xx, including HTML-wrapped fatal error pages.
	KindServerFault Kind = "server_fault"
	// KindMalformed: a 2xx whose body could not be decoded.
	KindMalformed Kind = "malformed"
	// KindHTTP: any other non-2xx status.
	KindHTTP Kind = "http"
)

// RequestError carries the classification plus enough request metadata for
// the diagnostics screen: URL, status, and response headers.
type RequestError struct {
	Kind       Kind
	Message    string
	URL        string
	StatusCode int
	Headers    http.Header
	WPCode     string
	err        error
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %s -> %d", e.Kind, e.URL, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.err
}
