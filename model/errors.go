// Package model defines core data structures and error types for the feed fusion service.
package model

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrorType categorizes a FeedError for boundary mapping (HTTP status,
// suggestion text) and for tests that assert on failure modes.
type ErrorType string

const (
	// ErrorTypeNetwork covers network failures with no finer category.
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout marks a request that hit its deadline.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnectionFailed marks refused or reset connections.
	ErrorTypeConnectionFailed ErrorType = "connection_failed"
	// ErrorTypeDNSResolution marks hostname lookup failures.
	ErrorTypeDNSResolution ErrorType = "dns_resolution"

	// ErrorTypeHTTP covers HTTP failures with no finer category.
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeHTTPClientError marks 4xx upstream responses.
	ErrorTypeHTTPClientError ErrorType = "http_client_error"
	// ErrorTypeHTTPServerError marks 5xx upstream responses.
	ErrorTypeHTTPServerError ErrorType = "http_server_error"
	// ErrorTypeHTTPRedirect marks 3xx responses that reached the fetcher.
	ErrorTypeHTTPRedirect ErrorType = "http_redirect"

	// ErrorTypeParsing covers feed parse failures with no finer category.
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeInvalidFormat marks bodies that are not a feed at all.
	ErrorTypeInvalidFormat ErrorType = "invalid_format"
	// ErrorTypeEmptyFeed marks 2xx responses with an empty body.
	ErrorTypeEmptyFeed ErrorType = "empty_feed"
	// ErrorTypeMalformedXML marks XML that does not parse.
	ErrorTypeMalformedXML ErrorType = "malformed_xml"
	// ErrorTypeMalformedJSON marks JSON feeds that do not parse.
	ErrorTypeMalformedJSON ErrorType = "malformed_json"
	// ErrorTypeNotModified marks a 304 arriving without a cached body to reparse.
	ErrorTypeNotModified ErrorType = "not_modified_without_cache"

	// ErrorTypeSpecNotFound marks a fused feed id with no spec file.
	ErrorTypeSpecNotFound ErrorType = "spec_not_found"
	// ErrorTypeSpecInvalid marks an unreadable or unparseable fused feed spec.
	ErrorTypeSpecInvalid ErrorType = "spec_invalid"

	// ErrorTypeValidation covers URL validation failures with no finer category.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInvalidURL marks URLs that do not parse or lack a host.
	ErrorTypeInvalidURL ErrorType = "invalid_url"
	// ErrorTypeUnsupportedScheme marks non-http(s) source URLs.
	ErrorTypeUnsupportedScheme ErrorType = "unsupported_scheme"
	// ErrorTypePrivateIP marks sources resolving to blocked private addresses.
	ErrorTypePrivateIP ErrorType = "private_ip_blocked"

	// ErrorTypeConfiguration marks bad service configuration.
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeTransport marks bad MCP transport configuration.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeCircuitBreaker marks fetches skipped by an open breaker.
	ErrorTypeCircuitBreaker ErrorType = "circuit_breaker"

	// ErrorTypeInternal marks failures that are bugs on our side.
	ErrorTypeInternal ErrorType = "internal"
)

// errorSuggestions maps each error type to an actionable next step,
// surfaced in logs alongside the error itself.
var errorSuggestions = map[ErrorType]string{
	ErrorTypeTimeout:           "Check network connectivity or increase the fetch timeout",
	ErrorTypeConnectionFailed:  "Verify the source URL is accessible and the server is running",
	ErrorTypeDNSResolution:     "Check DNS settings and verify the domain name is correct",
	ErrorTypeHTTPClientError:   "Verify the source URL is correct and accessible",
	ErrorTypeHTTPServerError:   "The upstream server is experiencing issues, try again later",
	ErrorTypeHTTPRedirect:      "The upstream redirected instead of serving the feed, update the source URL",
	ErrorTypeInvalidFormat:     "Ensure the source URL returns valid RSS, Atom, or JSON feed content",
	ErrorTypeEmptyFeed:         "The upstream response body was empty, check if the feed serves any content",
	ErrorTypeMalformedXML:      "The feed contains invalid XML, contact the feed provider",
	ErrorTypeMalformedJSON:     "The feed contains invalid JSON, contact the feed provider",
	ErrorTypeNotModified:       "Upstream answered 304 but no cached body exists, drop the stale cache metadata",
	ErrorTypeSpecNotFound:      "No spec file exists for this feed id, check the feeds directory under the config root",
	ErrorTypeSpecInvalid:       "The fused feed spec is not valid JSON, fix the spec file",
	ErrorTypeInvalidURL:        "Check the URL format and ensure it's a valid HTTP/HTTPS URL",
	ErrorTypeUnsupportedScheme: "Only HTTP and HTTPS URLs are supported",
	ErrorTypePrivateIP:         "Private IP addresses are blocked for security, use --allow-private-ips if needed",
	ErrorTypeCircuitBreaker:    "Source is temporarily skipped due to repeated failures",
	ErrorTypeTransport:         "Check transport configuration (stdio, http-with-sse)",
	ErrorTypeConfiguration:     "Review configuration parameters for correctness",
	ErrorTypeInternal:          "Internal server error occurred, check logs for details",
}

// suggestionFor returns the next-step text for an error type.
func suggestionFor(errorType ErrorType) string {
	if suggestion, ok := errorSuggestions[errorType]; ok {
		return suggestion
	}
	return "Check the error details and try again"
}

// FeedError is the error currency of the service: a categorized failure
// with a correlation id and enough context (source URL, fused feed id,
// operation, component) to diagnose it from a single log line.
type FeedError struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ErrorType  ErrorType `json:"error_type"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`

	URL       string `json:"url,omitempty"`
	FeedID    string `json:"feed_id,omitempty"`
	Operation string `json:"operation,omitempty"`
	Component string `json:"component,omitempty"`

	HTTPStatus  int               `json:"http_status,omitempty"`
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`

	ParseContext *ParseContext `json:"parse_context,omitempty"`

	// Cause is the wrapped original error, reachable through Unwrap.
	Cause error `json:"-"`
}

// ParseContext locates a parse failure within the fetched document.
type ParseContext struct {
	LineNumber     int    `json:"line_number,omitempty"`
	ColumnNumber   int    `json:"column_number,omitempty"`
	ContentSnippet string `json:"content_snippet,omitempty"`
	FeedFormat     string `json:"feed_format,omitempty"`
}

// Error renders the message with whatever context is set, ending with the
// type and correlation id.
func (fe *FeedError) Error() string {
	var parts []string

	if fe.Message != "" {
		parts = append(parts, fe.Message)
	}
	if fe.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", fe.URL))
	}
	if fe.FeedID != "" {
		parts = append(parts, fmt.Sprintf("Feed: %s", fe.FeedID))
	}
	if fe.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation: %s", fe.Operation))
	}
	if fe.HTTPStatus != 0 {
		parts = append(parts, fmt.Sprintf("HTTP Status: %d", fe.HTTPStatus))
	}

	parts = append(parts, fmt.Sprintf("Type: %s", fe.ErrorType), fmt.Sprintf("ID: %s", fe.ID))

	return strings.Join(parts, " | ")
}

// Unwrap returns the wrapped cause.
func (fe *FeedError) Unwrap() error {
	return fe.Cause
}

// IsErrorType reports whether err is a *FeedError of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	fe, ok := err.(*FeedError)
	return ok && fe.ErrorType == errorType
}

// NewFeedError creates a FeedError with a fresh correlation id and the
// suggestion matching its type.
func NewFeedError(errorType ErrorType, message string) *FeedError {
	id, _ := gonanoid.New()

	return &FeedError{
		ID:         id,
		Timestamp:  time.Now().UTC(),
		ErrorType:  errorType,
		Message:    message,
		Suggestion: suggestionFor(errorType),
	}
}

// NewFeedErrorWithCause creates a FeedError wrapping an existing error.
func NewFeedErrorWithCause(errorType ErrorType, message string, cause error) *FeedError {
	fe := NewFeedError(errorType, message)
	fe.Cause = cause
	return fe
}

// WithURL records the source URL involved in the failure.
func (fe *FeedError) WithURL(url string) *FeedError {
	fe.URL = url
	return fe
}

// WithFeedID records the fused feed being served.
func (fe *FeedError) WithFeedID(feedID string) *FeedError {
	fe.FeedID = feedID
	return fe
}

// WithOperation records what was being done when the failure happened.
func (fe *FeedError) WithOperation(operation string) *FeedError {
	fe.Operation = operation
	return fe
}

// WithComponent records which component produced the failure.
func (fe *FeedError) WithComponent(component string) *FeedError {
	fe.Component = component
	return fe
}

// debugHeaders are the upstream response headers worth keeping on an error.
var debugHeaders = []string{
	"Content-Type", "Content-Length", "Server", "Cache-Control",
	"Etag", "Last-Modified", "Retry-After",
}

// WithHTTP records the response status and the diagnostic subset of its
// headers.
func (fe *FeedError) WithHTTP(status int, headers http.Header) *FeedError {
	fe.HTTPStatus = status

	if headers != nil {
		fe.HTTPHeaders = make(map[string]string)
		for _, name := range debugHeaders {
			if value := headers.Get(name); value != "" {
				fe.HTTPHeaders[name] = value
			}
		}
	}

	return fe
}

// WithParseContext records where in the document parsing failed.
func (fe *FeedError) WithParseContext(ctx *ParseContext) *FeedError {
	fe.ParseContext = ctx
	return fe
}
