// Package model provides fused feed spec loading for the feed fusion service.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FusedFeed is a named aggregation of upstream sources, built per request
// from its spec file and discarded after one fetch cycle. Cross-request
// cache state lives in the store, not here.
type FusedFeed struct {
	Name    string    `json:"name"`
	Sources []*Source `json:"sources,omitempty"`

	// Fused-level filters are parsed for forward compatibility but never
	// applied; only per-source filters run.
	Filters []Filter `json:"filters,omitempty"`
}

// ParseFeedSpec parses a fused feed spec document. A spec without sources
// is legal and fetches nothing; source URIs must be present and unique.
func ParseFeedSpec(content []byte) (*FusedFeed, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("spec is empty")
	}

	var feed FusedFeed
	if err := json.Unmarshal(content, &feed); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(feed.Sources))
	for i, src := range feed.Sources {
		if src == nil || src.URI == "" {
			return nil, fmt.Errorf("source %d has no uri", i)
		}
		if _, dup := seen[src.URI]; dup {
			return nil, fmt.Errorf("duplicate source uri: %s", src.URI)
		}
		seen[src.URI] = struct{}{}
	}

	return &feed, nil
}

// SpecPath returns the on-disk location of a fused feed spec. The id must
// already be sanitized (SanitizeFeedID).
func SpecPath(configRoot, feedID string) string {
	return filepath.Join(configRoot, "feeds", feedID+".json")
}

// LoadFeedSpec reads and parses the spec file for feedID under configRoot.
// A missing file maps to ErrorTypeSpecNotFound (404 at the HTTP boundary);
// an unreadable or unparseable file maps to ErrorTypeSpecInvalid (400).
func LoadFeedSpec(configRoot, feedID string) (*FusedFeed, error) {
	path := SpecPath(configRoot, feedID)

	content, err := os.ReadFile(path) // #nosec G304 -- path is rooted at the operator-provided config root and the id is sanitized
	if err != nil {
		if os.IsNotExist(err) {
			return nil, CreateSpecNotFoundError(feedID, path)
		}
		return nil, CreateSpecInvalidError(err, feedID, path)
	}

	feed, err := ParseFeedSpec(content)
	if err != nil {
		return nil, CreateSpecInvalidError(err, feedID, path)
	}

	return feed, nil
}

// ListFeedIDs returns the ids of all fused feed specs under configRoot,
// sorted for stable output.
func ListFeedIDs(configRoot string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(configRoot, "feeds", "*.json"))
	if err != nil {
		return nil, NewFeedErrorWithCause(ErrorTypeConfiguration, "failed to list fused feed specs", err).
			WithOperation("list_feed_ids").
			WithComponent("spec_loader")
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(match), ".json"))
	}
	sort.Strings(ids)

	return ids, nil
}

// WriteFeedSpec persists a fused feed definition as the spec file for
// feedID under configRoot, creating the feeds directory if needed. The id
// must already be sanitized. Returns the path written.
func WriteFeedSpec(configRoot, feedID string, feed *FusedFeed, overwrite bool) (string, error) {
	path := SpecPath(configRoot, feedID)

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", NewFeedError(ErrorTypeConfiguration, fmt.Sprintf("fused feed spec already exists at %s", path)).
				WithFeedID(feedID).
				WithOperation("write_feed_spec").
				WithComponent("spec_loader")
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", NewFeedErrorWithCause(ErrorTypeConfiguration, "failed to create feeds directory", err).
			WithFeedID(feedID).
			WithOperation("write_feed_spec").
			WithComponent("spec_loader")
	}

	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", NewFeedErrorWithCause(ErrorTypeInternal, "failed to encode fused feed spec", err).
			WithFeedID(feedID).
			WithOperation("write_feed_spec").
			WithComponent("spec_loader")
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", NewFeedErrorWithCause(ErrorTypeConfiguration, fmt.Sprintf("failed to write fused feed spec to %s", path), err).
			WithFeedID(feedID).
			WithOperation("write_feed_spec").
			WithComponent("spec_loader")
	}

	return path, nil
}

// MergedEntries returns the fused view across all successfully fetched
// sources: update_date descending, ties broken by source order then by
// upstream order within a source. The sort is stable, so collecting in
// declared source order makes the tie-break fall out of the collection
// order.
func (f *FusedFeed) MergedEntries() []*Entry {
	var merged []*Entry
	for _, src := range f.Sources {
		if !src.Fetched {
			continue
		}
		merged = append(merged, src.Entries...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UpdateDate.After(merged[j].UpdateDate)
	})

	return merged
}

// CacheInfo extracts the conditional-GET metadata of every source, keyed
// by source URI, for hand-off to the process-wide cache.
func (f *FusedFeed) CacheInfo() map[string]CacheState {
	info := make(map[string]CacheState, len(f.Sources))
	for _, src := range f.Sources {
		info[src.URI] = src.CacheInfo()
	}
	return info
}

// FetchedSources returns the sources that succeeded in the last cycle, in
// declared order.
func (f *FusedFeed) FetchedSources() []*Source {
	fetched := make([]*Source, 0, len(f.Sources))
	for _, src := range f.Sources {
		if src.Fetched {
			fetched = append(fetched, src)
		}
	}
	return fetched
}
