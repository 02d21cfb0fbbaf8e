package republish

import (
	"encoding/xml"
	"time"
)

// Atom namespace
const atomNS = "http://www.w3.org/2005/Atom"

// Atom renders a FeedDoc as an Atom 1.0 document.
func Atom(doc *FeedDoc) (string, error) {
	feed := atomFeed{
		NS:        atomNS,
		ID:        doc.SelfURL,
		Title:     doc.Name,
		Subtitle:  doc.Name,
		Updated:   doc.Updated.Format(time.RFC3339),
		Generator: &atomGenerator{Value: Generator},
		Author:    &atomPerson{Name: Generator},
		Links: []atomLink{
			{Href: doc.SelfURL, Rel: "self"},
			{Href: doc.AlternateURL, Rel: "alternate", Type: "text/html"},
		},
	}

	for _, entry := range doc.Entries {
		ae := atomEntry{
			ID:      entry.ID,
			Title:   entry.Title,
			Updated: entry.UpdateDate.Format(time.RFC3339),
		}

		if entry.PubDate != nil {
			ae.Published = entry.PubDate.Format(time.RFC3339)
		}
		if entry.Author != "" {
			ae.Authors = append(ae.Authors, atomPerson{Name: entry.Author})
		}
		if entry.Link != "" {
			ae.Links = append(ae.Links, atomLink{Href: entry.Link, Rel: "alternate", Type: "text/html"})
		}
		for _, enc := range entry.Enclosures {
			ae.Links = append(ae.Links, atomLink{
				Href:   enc.Href,
				Rel:    "enclosure",
				Type:   enc.Type,
				Length: enc.Length,
			})
		}
		if entry.Summary != "" {
			ae.Summary = &atomText{Type: mediaTypeName(entry.SummaryType), Value: entry.Summary}
		}
		if entry.Content != "" {
			ae.Content = &atomText{Type: mediaTypeName(entry.ContentType), Value: entry.Content}
		}

		feed.Entries = append(feed.Entries, ae)
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", err
	}

	return xml.Header + string(output), nil
}

// --- XML structs for Atom 1.0 output ---

type atomFeed struct {
	XMLName   xml.Name       `xml:"feed"`
	NS        string         `xml:"xmlns,attr"`
	ID        string         `xml:"id"`
	Title     string         `xml:"title"`
	Subtitle  string         `xml:"subtitle,omitempty"`
	Links     []atomLink     `xml:"link"`
	Updated   string         `xml:"updated"`
	Generator *atomGenerator `xml:"generator,omitempty"`
	Author    *atomPerson    `xml:"author,omitempty"`
	Entries   []atomEntry    `xml:"entry"`
}

type atomLink struct {
	XMLName xml.Name `xml:"link"`
	Href    string   `xml:"href,attr"`
	Rel     string   `xml:"rel,attr,omitempty"`
	Type    string   `xml:"type,attr,omitempty"`
	Length  string   `xml:"length,attr,omitempty"`
}

type atomEntry struct {
	Title     string       `xml:"title"`
	Links     []atomLink   `xml:"link"`
	ID        string       `xml:"id"`
	Published string       `xml:"published,omitempty"`
	Updated   string       `xml:"updated"`
	Summary   *atomText    `xml:"summary,omitempty"`
	Content   *atomText    `xml:"content,omitempty"`
	Authors   []atomPerson `xml:"author,omitempty"`
}

type atomText struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomGenerator struct {
	Value string `xml:",chardata"`
}
