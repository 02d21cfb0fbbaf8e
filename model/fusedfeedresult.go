package model

// SourceResult reports one source's outcome within a fused fetch cycle.
type SourceResult struct {
	URI        string `json:"uri"`
	HTMLURI    string `json:"html_uri,omitempty"`
	Fetched    bool   `json:"fetched"`
	EntryCount int    `json:"entry_count"`
}

// FusedFeedResult is the wire shape of one fused fetch cycle as consumed
// by MCP clients: the merged entry stream plus per-source outcomes.
type FusedFeedResult struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Sources []*SourceResult `json:"sources,omitempty"`
	Entries []*Entry        `json:"entries,omitempty"`
}

// NewFusedFeedResult flattens a fetched fused feed into its wire shape.
func NewFusedFeedResult(id string, feed *FusedFeed) *FusedFeedResult {
	if feed == nil {
		return nil
	}

	result := &FusedFeedResult{
		ID:      id,
		Name:    feed.Name,
		Entries: feed.MergedEntries(),
	}

	for _, src := range feed.Sources {
		result.Sources = append(result.Sources, &SourceResult{
			URI:        src.URI,
			HTMLURI:    src.HTMLURI,
			Fetched:    src.Fetched,
			EntryCount: len(src.Entries),
		})
	}

	return result
}
