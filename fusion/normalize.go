// Package fusion implements the core of the feed fusion service: fetching
// upstream sources concurrently, normalizing their entries into one
// canonical shape, applying per-source filter chains, and handing the
// result to the merge and republish layers.
package fusion

import (
	"crypto/md5" // #nosec G501 -- md5 fingerprints entry identity, it is not a security boundary
	"encoding/hex"
	"errors"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedfuser/feedfuser/model"
)

// ErrNoIdentity signals that an upstream entry carries no guid and no
// material (title, content, summary) to synthesize one from. Such entries
// are dropped during normalization.
var ErrNoIdentity = errors.New("entry has no identity material")

// NormalizeItem converts one parsed upstream item into the canonical entry
// shape. An upstream guid is kept verbatim; otherwise a stable guid is
// synthesized from the entry's textual material. The update date falls
// back from updated to published to now, so every entry is orderable.
func NormalizeItem(item *gofeed.Item, now time.Time) (*model.Entry, error) {
	entry := &model.Entry{
		Title: item.Title,
		Link:  item.Link,
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = item.Authors[0].Name
	} else if item.Author != nil {
		entry.Author = item.Author.Name
	}

	// gofeed collapses typed text constructs to plain strings, so summary
	// and content default to HTML, the common case on the wire.
	if item.Description != "" {
		entry.Summary = item.Description
		entry.SummaryType = model.MediaTypeHTML
	}
	if item.Content != "" {
		entry.Content = item.Content
		entry.ContentType = model.MediaTypeHTML
	}

	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		entry.PubDate = &published
	}

	switch {
	case item.UpdatedParsed != nil:
		entry.UpdateDate = *item.UpdatedParsed
	case entry.PubDate != nil:
		entry.UpdateDate = *entry.PubDate
	default:
		entry.UpdateDate = now
	}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		entry.Enclosures = append(entry.Enclosures, model.Enclosure{
			Href:   enclosure.URL,
			Type:   enclosure.Type,
			Length: enclosure.Length,
		})
	}

	entry.GUID = item.GUID
	if entry.GUID == "" {
		guid, err := synthesizeGUID(entry)
		if err != nil {
			return nil, err
		}
		entry.GUID = guid
	}

	return entry, nil
}

// synthesizeGUID derives a guid from the entry's textual material so the
// same upstream entry hashes to the same identity on every fetch.
func synthesizeGUID(entry *model.Entry) (string, error) {
	if entry.Title == "" && entry.Content == "" && entry.Summary == "" {
		return "", ErrNoIdentity
	}
	sum := md5.Sum([]byte(entry.Title + entry.Content + entry.Summary)) // #nosec G401 -- identity fingerprint, not a security boundary
	return hex.EncodeToString(sum[:]), nil
}
