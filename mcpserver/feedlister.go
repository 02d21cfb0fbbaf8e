package mcpserver

// FeedLister lists the ids of the fused feeds available to serve.
type FeedLister interface {
	ListFeedIDs() ([]string, error)
}
