package fusion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/feedfuser/feedfuser/model"
	"github.com/feedfuser/feedfuser/version"
)

// DefaultMaxBodyBytes caps how much of an upstream response body the
// fetcher will read (10MB).
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// FetcherConfig holds the configuration for creating a Fetcher.
type FetcherConfig struct {
	// Timeout is the per-request deadline, connect through body read.
	Timeout time.Duration
	// UserAgent is the default User-Agent header, overridable per source.
	UserAgent string
	// MaxBodyBytes caps the upstream response body size.
	MaxBodyBytes int64
	// HTTPClient overrides the rate-limited default client.
	HTTPClient *http.Client
	// RequestsPerSecond limits the upstream request rate (default: 2.0)
	RequestsPerSecond float64
	// BurstCapacity allows temporary bursts above the rate limit (default: 5)
	BurstCapacity int
	// AllowPrivateIPs permits sources resolving to private or loopback
	// addresses, for internal feeds and tests.
	AllowPrivateIPs bool

	// Circuit breaker settings. Breakers are per source URL and trip on
	// consecutive failures so a flapping upstream stops consuming cycles.
	CircuitBreakerEnabled          *bool
	CircuitBreakerMaxRequests      uint32
	CircuitBreakerInterval         time.Duration
	CircuitBreakerTimeout          time.Duration
	CircuitBreakerFailureThreshold uint32
}

// RateLimitedTransport wraps an http.RoundTripper with rate limiting
type RateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

// RoundTrip implements the http.RoundTripper interface with rate limiting
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting
func NewRateLimitedHTTPClient(requestsPerSecond float64, burstCapacity int) *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &RateLimitedTransport{
			transport: http.DefaultTransport,
			limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), burstCapacity),
		},
	}
}

// Fetcher performs conditional GETs against upstream sources and turns
// their responses into normalized, filtered entries on the source. Safe
// for concurrent use; circuit breakers persist across fetch cycles.
type Fetcher struct {
	client          *http.Client
	timeout         time.Duration
	userAgent       string
	maxBodyBytes    int64
	allowPrivateIPs bool

	breakerMaxRequests      uint32
	breakerInterval         time.Duration
	breakerTimeout          time.Duration
	breakerFailureThreshold uint32

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher, applying defaults for any zero config
// values.
func NewFetcher(config FetcherConfig) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.UserAgent == "" {
		config.UserAgent = "feedfuser/" + version.GetVersion()
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 2.0
	}
	if config.BurstCapacity <= 0 {
		config.BurstCapacity = 5
	}
	if config.HTTPClient == nil {
		config.HTTPClient = NewRateLimitedHTTPClient(config.RequestsPerSecond, config.BurstCapacity)
	}

	f := &Fetcher{
		client:          config.HTTPClient,
		timeout:         config.Timeout,
		userAgent:       config.UserAgent,
		maxBodyBytes:    config.MaxBodyBytes,
		allowPrivateIPs: config.AllowPrivateIPs,
	}

	if config.CircuitBreakerEnabled == nil || *config.CircuitBreakerEnabled {
		f.breakerMaxRequests = config.CircuitBreakerMaxRequests
		if f.breakerMaxRequests == 0 {
			f.breakerMaxRequests = 3
		}
		f.breakerInterval = config.CircuitBreakerInterval
		if f.breakerInterval <= 0 {
			f.breakerInterval = 60 * time.Second
		}
		f.breakerTimeout = config.CircuitBreakerTimeout
		if f.breakerTimeout <= 0 {
			f.breakerTimeout = 30 * time.Second
		}
		f.breakerFailureThreshold = config.CircuitBreakerFailureThreshold
		if f.breakerFailureThreshold == 0 {
			f.breakerFailureThreshold = 3
		}
		f.breakers = make(map[string]*gobreaker.CircuitBreaker)
	}

	return f
}

// Fetch performs one conditional GET for the source, parses and normalizes
// the body, applies the source's filter chain, and marks the source
// fetched. Cache metadata (etag, last-modified, raw body) advances only on
// a 2xx response that parses cleanly; a 304 reparses the cached body and
// leaves metadata untouched. Any failure returns a *model.FeedError and
// leaves the source unfetched for this cycle.
func (f *Fetcher) Fetch(ctx context.Context, src *model.Source) error {
	if err := model.ValidateSourceURL(src.URI, f.allowPrivateIPs); err != nil {
		return model.CreateValidationError(err, src.URI)
	}

	cb := f.breakerFor(src.URI)
	if cb == nil {
		return f.fetch(ctx, src)
	}

	_, err := cb.Execute(func() (interface{}, error) {
		return nil, f.fetch(ctx, src)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return model.CreateCircuitBreakerError(src.URI, cb.State().String())
	}
	return err
}

// breakerFor returns the source's circuit breaker, creating it on first
// use. Returns nil when circuit breaking is disabled.
func (f *Fetcher) breakerFor(uri string) *gobreaker.CircuitBreaker {
	if f.breakers == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[uri]
	if !ok {
		threshold := f.breakerFailureThreshold
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        fmt.Sprintf("source-%s", uri),
			MaxRequests: f.breakerMaxRequests,
			Interval:    f.breakerInterval,
			Timeout:     f.breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
		f.breakers[uri] = cb
	}
	return cb
}

func (f *Fetcher) fetch(ctx context.Context, src *model.Source) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := f.buildRequest(ctx, src)
	if err != nil {
		return model.NewFeedErrorWithCause(model.ErrorTypeInternal, "failed to build request", err).
			WithURL(src.URI).
			WithOperation("fetch_source").
			WithComponent("source_fetcher")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return model.CreateNetworkError(err, src.URI)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return f.reparseCached(src)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return f.consume(src, resp)
	default:
		return model.CreateHTTPError(resp, src.URI)
	}
}

// buildRequest assembles the upstream GET. Header precedence, last writer
// wins: default User-Agent, then custom headers, then conditional headers
// from cache metadata, then the per-source User-Agent override.
func (f *Fetcher) buildRequest(ctx context.Context, src *model.Source) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URI, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	for name, value := range src.Headers {
		req.Header.Set(name, value)
	}
	if src.ETag != "" {
		req.Header.Set("If-None-Match", src.ETag)
	}
	if src.LastModified != "" {
		req.Header.Set("If-Modified-Since", src.LastModified)
	}
	if src.UserAgent != "" {
		req.Header.Set("User-Agent", src.UserAgent)
	}
	if src.Username != "" && src.Password != "" {
		req.SetBasicAuth(src.Username, src.Password)
	}

	return req, nil
}

// consume handles a 2xx response: parse first, and only then replace cache
// metadata, so a body that fails to parse leaves the previous state intact
// for the next cycle's conditional GET.
func (f *Fetcher) consume(src *model.Source, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return model.CreateNetworkError(err, src.URI)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return model.NewFeedError(model.ErrorTypeNetwork, fmt.Sprintf("response body exceeds %d bytes", f.maxBodyBytes)).
			WithURL(src.URI).
			WithOperation("fetch_source").
			WithComponent("source_fetcher")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return model.NewFeedError(model.ErrorTypeEmptyFeed, "upstream returned an empty body").
			WithURL(src.URI).
			WithOperation("fetch_source").
			WithComponent("source_fetcher")
	}

	if err := f.parseInto(src, body); err != nil {
		return err
	}

	src.Raw = body
	src.ETag = resp.Header.Get("ETag")
	src.LastModified = resp.Header.Get("Last-Modified")
	src.Fetched = true
	return nil
}

// reparseCached handles a 304: the upstream body is unchanged, so the
// cached raw body is reparsed and the conditional-GET metadata stays as it
// was. A 304 with no cached body means our conditional headers were sent
// without holding the previous state; the source fails for this cycle.
func (f *Fetcher) reparseCached(src *model.Source) error {
	if len(src.Raw) == 0 {
		return model.CreateNotModifiedError(src.URI)
	}
	if err := f.parseInto(src, src.Raw); err != nil {
		return err
	}
	src.Fetched = true
	return nil
}

// parseInto parses a feed document and replaces the source's entries with
// the normalized, filtered result. The source's site link is learned from
// the feed's own link on the first clean parse.
func (f *Fetcher) parseInto(src *model.Source, body []byte) error {
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return model.CreateParsingError(err, src.URI, string(body))
	}

	if src.HTMLURI == "" {
		src.HTMLURI = parsed.Link
	}

	now := time.Now().UTC()
	entries := make([]*model.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entry, err := NormalizeItem(item, now)
		if err != nil {
			model.DebugLogWithContext("discarding entry without identity material", "source_fetcher", "normalize_entry", src.URI, nil)
			continue
		}
		entries = append(entries, entry)
	}

	src.Entries = ApplyFilters(entries, src.Filters)
	return nil
}
