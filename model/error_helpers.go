package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
)

// CreateNetworkError builds the FeedError for a failed fetch, picking the
// closest category the underlying error reveals.
func CreateNetworkError(err error, sourceURL string) *FeedError {
	errorType := ErrorTypeNetwork
	message := "Network error occurred"

	switch {
	case isTimeoutError(err):
		errorType = ErrorTypeTimeout
		message = "Request timed out"
	case isDNSError(err):
		errorType = ErrorTypeDNSResolution
		message = "DNS resolution failed"
	case isConnectionError(err):
		errorType = ErrorTypeConnectionFailed
		message = "Connection failed"
	}

	return NewFeedErrorWithCause(errorType, message, err).
		WithURL(sourceURL).
		WithOperation("fetch_source").
		WithComponent("source_fetcher")
}

// CreateHTTPError builds the FeedError for a non-2xx upstream response.
func CreateHTTPError(resp *http.Response, sourceURL string) *FeedError {
	var errorType ErrorType
	var message string

	status := resp.StatusCode
	switch {
	case status >= 400 && status < 500:
		errorType = ErrorTypeHTTPClientError
		message = fmt.Sprintf("Client error: %s", resp.Status)
	case status >= 500:
		errorType = ErrorTypeHTTPServerError
		message = fmt.Sprintf("Server error: %s", resp.Status)
	case status >= 300 && status < 400:
		errorType = ErrorTypeHTTPRedirect
		message = fmt.Sprintf("Redirect error: %s", resp.Status)
	default:
		errorType = ErrorTypeHTTP
		message = fmt.Sprintf("HTTP error: %s", resp.Status)
	}

	return NewFeedError(errorType, message).
		WithURL(sourceURL).
		WithOperation("fetch_source").
		WithComponent("source_fetcher").
		WithHTTP(status, resp.Header)
}

// CreateParsingError builds the FeedError for a body that did not parse as
// a feed, with the failure located in the document where possible.
func CreateParsingError(err error, sourceURL, content string) *FeedError {
	errorType := ErrorTypeParsing
	message := "Failed to parse feed"

	if err != nil {
		errStr := strings.ToLower(err.Error())
		switch {
		case strings.Contains(errStr, "xml"):
			errorType = ErrorTypeMalformedXML
			message = "Feed contains malformed XML"
		case strings.Contains(errStr, "json"):
			errorType = ErrorTypeMalformedJSON
			message = "Feed contains malformed JSON"
		case strings.Contains(errStr, "empty"), strings.Contains(errStr, "no content"):
			errorType = ErrorTypeEmptyFeed
			message = "Feed is empty or contains no content"
		}
	}

	fe := NewFeedErrorWithCause(errorType, message, err).
		WithURL(sourceURL).
		WithOperation("parse_feed").
		WithComponent("source_fetcher")

	if parseCtx := extractParseContext(err, content); parseCtx != nil {
		fe.WithParseContext(parseCtx)
	}

	return fe
}

// CreateValidationError builds the FeedError for a source URL rejected by
// validation, mapping the validation sentinels to their error types.
func CreateValidationError(err error, sourceURL string) *FeedError {
	errorType := ErrorTypeValidation
	message := "URL validation failed"

	switch {
	case errors.Is(err, ErrInvalidURL):
		errorType = ErrorTypeInvalidURL
		message = "Invalid URL format"
	case errors.Is(err, ErrUnsupportedScheme):
		errorType = ErrorTypeUnsupportedScheme
		message = "Unsupported URL scheme"
	case errors.Is(err, ErrPrivateIPBlocked):
		errorType = ErrorTypePrivateIP
		message = "Private IP address blocked"
	case errors.Is(err, ErrMissingHost):
		errorType = ErrorTypeInvalidURL
		message = "URL missing host"
	case errors.Is(err, ErrEmptyURL):
		errorType = ErrorTypeInvalidURL
		message = "URL cannot be empty"
	}

	return NewFeedErrorWithCause(errorType, message, err).
		WithURL(sourceURL).
		WithOperation("validate_url").
		WithComponent("url_validator")
}

// CreateCircuitBreakerError builds the FeedError for a fetch skipped by an
// open or saturated breaker.
func CreateCircuitBreakerError(sourceURL, state string) *FeedError {
	return NewFeedError(ErrorTypeCircuitBreaker, fmt.Sprintf("Circuit breaker is %s", state)).
		WithURL(sourceURL).
		WithOperation("fetch_source").
		WithComponent("circuit_breaker")
}

// CreateNotModifiedError builds the FeedError for a 304 that arrived with
// no cached body. Sending conditional headers without holding the previous
// body is a protocol violation on our side; the source is dropped for this
// cycle.
func CreateNotModifiedError(sourceURL string) *FeedError {
	return NewFeedError(ErrorTypeNotModified, "304 Not Modified received but no cached body is available").
		WithURL(sourceURL).
		WithOperation("fetch_source").
		WithComponent("source_fetcher")
}

// CreateSpecNotFoundError builds the FeedError for a fused feed id with no
// spec file.
func CreateSpecNotFoundError(feedID, path string) *FeedError {
	return NewFeedError(ErrorTypeSpecNotFound, fmt.Sprintf("no fused feed spec at %s", path)).
		WithFeedID(feedID).
		WithOperation("load_feed_spec").
		WithComponent("spec_loader")
}

// CreateSpecInvalidError builds the FeedError for an unreadable or
// unparseable spec file.
func CreateSpecInvalidError(err error, feedID, path string) *FeedError {
	return NewFeedErrorWithCause(ErrorTypeSpecInvalid, fmt.Sprintf("invalid fused feed spec at %s", path), err).
		WithFeedID(feedID).
		WithOperation("load_feed_spec").
		WithComponent("spec_loader")
}

var timeoutKeywords = []string{"timeout", "deadline exceeded", "timed out"}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return containsAny(strings.ToLower(err.Error()), timeoutKeywords)
}

var dnsKeywords = []string{
	"no such host", "dns", "name resolution", "hostname",
	"name or service not known", "nodename nor servname provided",
}

func isDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return containsAny(strings.ToLower(err.Error()), dnsKeywords)
}

var connectionErrnos = []error{
	syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED,
	syscall.EHOSTUNREACH, syscall.ENETUNREACH,
}

var connectionKeywords = []string{
	"connection refused", "connection reset", "connection aborted",
	"host unreachable", "network unreachable", "no route to host",
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	for _, errno := range connectionErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	return containsAny(strings.ToLower(err.Error()), connectionKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

// extractParseContext recovers whatever location detail a parse error
// message carries: the line number gofeed-style errors embed, the document
// format guessed from the content, and the lines around the failure.
func extractParseContext(err error, content string) *ParseContext {
	if err == nil {
		return nil
	}

	ctx := &ParseContext{}

	// encoding/xml errors read "XML syntax error on line N: ...".
	errStr := err.Error()
	if strings.Contains(errStr, "line") {
		parts := strings.Split(errStr, " ")
		for i, part := range parts {
			if part == "line" && i+1 < len(parts) {
				if lineNum, parseErr := strconv.Atoi(strings.TrimSuffix(parts[i+1], ":")); parseErr == nil {
					ctx.LineNumber = lineNum
					break
				}
			}
		}
	}

	switch trimmed := strings.TrimSpace(strings.ToLower(content)); {
	case strings.HasPrefix(trimmed, "{"):
		ctx.FeedFormat = "JSON"
	case strings.HasPrefix(trimmed, "<"):
		switch {
		case strings.Contains(trimmed, "<rss"):
			ctx.FeedFormat = "RSS"
		case strings.Contains(trimmed, "<feed"):
			ctx.FeedFormat = "Atom"
		default:
			ctx.FeedFormat = "XML"
		}
	}

	if ctx.LineNumber > 0 && content != "" {
		lines := strings.Split(content, "\n")
		if ctx.LineNumber <= len(lines) {
			start := max(0, ctx.LineNumber-3)
			end := min(len(lines), ctx.LineNumber+2)
			ctx.ContentSnippet = strings.Join(lines[start:end], "\n")
		}
	}

	if ctx.LineNumber > 0 || ctx.FeedFormat != "" || ctx.ContentSnippet != "" {
		return ctx
	}

	return nil
}
