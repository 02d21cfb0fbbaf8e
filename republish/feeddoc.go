// Package republish renders fused feeds as Atom 1.0 and RSS 2.0 documents.
// A FeedDoc is the serializer-neutral view of one fused feed at one request
// URL; Atom and RSS render it without looking back at the model.
package republish

import (
	"time"

	"github.com/feedfuser/feedfuser/model"
)

// Generator names this service in feed metadata.
const Generator = "FeedFuser"

// DocEntry is one entry of a rendered feed, with republish fallbacks
// already applied.
type DocEntry struct {
	ID          string
	Title       string
	Author      string
	Link        string
	Summary     string
	SummaryType model.MediaType
	Content     string
	ContentType model.MediaType
	PubDate     *time.Time
	UpdateDate  time.Time
	Enclosures  []model.Enclosure
}

// FeedDoc is the rendered view of a fused feed. SelfURL is the URL the
// feed was requested at; AlternateURL points at the human-readable
// counterpart.
type FeedDoc struct {
	Name         string
	SelfURL      string
	AlternateURL string
	Updated      time.Time
	Entries      []DocEntry
}

// NewFeedDoc builds the rendered view of a fused feed. The alternate link
// is the single source's site when the feed has exactly one source with a
// known site, otherwise the service root. The feed's updated stamp is the
// newest entry's update date, or the render time for an empty feed.
func NewFeedDoc(feed *model.FusedFeed, selfURL, rootURL string) *FeedDoc {
	doc := &FeedDoc{
		Name:         feed.Name,
		SelfURL:      selfURL,
		AlternateURL: rootURL,
	}

	if len(feed.Sources) == 1 && feed.Sources[0].HTMLURI != "" {
		doc.AlternateURL = feed.Sources[0].HTMLURI
	}

	merged := feed.MergedEntries()
	if len(merged) > 0 {
		doc.Updated = merged[0].UpdateDate
	} else {
		doc.Updated = time.Now().UTC()
	}

	doc.Entries = make([]DocEntry, 0, len(merged))
	for _, entry := range merged {
		title := entry.Title
		if title == "" {
			title = entry.Link
		}
		doc.Entries = append(doc.Entries, DocEntry{
			ID:          entry.GUID,
			Title:       title,
			Author:      entry.Author,
			Link:        entry.Link,
			Summary:     entry.Summary,
			SummaryType: entry.SummaryType,
			Content:     entry.Content,
			ContentType: entry.ContentType,
			PubDate:     entry.PubDate,
			UpdateDate:  entry.UpdateDate,
			Enclosures:  entry.Enclosures,
		})
	}

	return doc
}

// mediaTypeName maps a model media type to the Atom type attribute value.
func mediaTypeName(mt model.MediaType) string {
	if mt == model.MediaTypeText {
		return "text"
	}
	return "html"
}
