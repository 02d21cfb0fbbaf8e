package model

import (
	"bytes"
	"encoding/json"
)

// CacheState is the conditional-GET metadata extracted per source URI,
// the documented hand-off point to the process-wide source cache.
type CacheState struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// Source is one upstream feed inside a fused feed. The configuration
// fields come from the spec file; cache metadata and entries are written
// by the fetcher during a cycle. Cache metadata advances only on a 2xx
// response that parses cleanly.
type Source struct {
	URI       string            `json:"uri"`
	HTMLURI   string            `json:"html_uri,omitempty"`
	Username  string            `json:"username,omitempty"`
	Password  string            `json:"password,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Filters   []Filter          `json:"filters,omitempty"`

	// Cache metadata, opaque strings taken from upstream response headers,
	// plus the last cleanly-parsed body for 304 reparsing.
	ETag         string `json:"-"`
	LastModified string `json:"-"`
	Raw          []byte `json:"-"`

	// Result of the most recent fetch cycle. Fetched marks success; a
	// failed source keeps its position and cache metadata but contributes
	// no entries.
	Entries []*Entry `json:"-"`
	Fetched bool     `json:"-"`
}

// UnmarshalJSON accepts both spec forms for a source: a bare URL string,
// or an object with uri, credentials, headers, and filters.
func (s *Source) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var uri string
		if err := json.Unmarshal(trimmed, &uri); err != nil {
			return err
		}
		*s = Source{URI: uri}
		return nil
	}

	var raw struct {
		URI       string            `json:"uri"`
		HTMLURI   string            `json:"html_uri"`
		Username  string            `json:"username"`
		Password  string            `json:"password"`
		Headers   map[string]string `json:"headers"`
		UserAgent string            `json:"user_agent"`
		Filters   []Filter          `json:"filters"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*s = Source{
		URI:       raw.URI,
		HTMLURI:   raw.HTMLURI,
		Username:  raw.Username,
		Password:  raw.Password,
		Headers:   raw.Headers,
		UserAgent: raw.UserAgent,
		Filters:   raw.Filters,
	}
	return nil
}

// CacheInfo returns the source's conditional-GET metadata.
func (s *Source) CacheInfo() CacheState {
	return CacheState{ETag: s.ETag, LastModified: s.LastModified}
}
