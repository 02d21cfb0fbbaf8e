package model

import "time"

// MediaType declares how a textual entry field should be interpreted downstream.
type MediaType string

const (
	// MediaTypeText marks plain text content
	MediaTypeText MediaType = "text/plain"
	// MediaTypeHTML marks HTML content
	MediaTypeHTML MediaType = "text/html"
)

// Enclosure is a media attachment carried by an entry (podcast audio, images).
// Type and Length are optional and kept opaque, exactly as the upstream
// declared them.
type Enclosure struct {
	Href   string `json:"href"`
	Type   string `json:"type,omitempty"`
	Length string `json:"length,omitempty"`
}

// Entry is one normalized feed item, the unit of merge, filter, and
// republish. Entries are treated as immutable after normalization.
type Entry struct {
	GUID        string      `json:"guid"`
	Title       string      `json:"title,omitempty"`
	Author      string      `json:"author,omitempty"`
	Link        string      `json:"link,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	SummaryType MediaType   `json:"summary_type,omitempty"`
	Content     string      `json:"content,omitempty"`
	ContentType MediaType   `json:"content_type,omitempty"`
	PubDate     *time.Time  `json:"pub_date,omitempty"`
	UpdateDate  time.Time   `json:"update_date"`
	Enclosures  []Enclosure `json:"enclosures,omitempty"`
}

// Field returns the value of a named string field for rule evaluation.
// Only the string-valued fields are addressable; an unknown name reports
// ok=false, which rule operators treat as a non-match.
func (e *Entry) Field(name string) (value string, ok bool) {
	switch name {
	case "guid":
		return e.GUID, true
	case "title":
		return e.Title, true
	case "author":
		return e.Author, true
	case "link":
		return e.Link, true
	case "summary":
		return e.Summary, true
	case "content":
		return e.Content, true
	default:
		return "", false
	}
}
