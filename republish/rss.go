package republish

import (
	"encoding/xml"
	"time"
)

// content module namespace for full-content item bodies
const contentNS = "http://purl.org/rss/1.0/modules/content/"

// RSS renders a FeedDoc as an RSS 2.0 document. Full entry content goes
// into content:encoded as CDATA; the plain description carries the summary.
func RSS(doc *FeedDoc) (string, error) {
	out := rssDoc{
		Version:   "2.0",
		ContentNS: contentNS,
		AtomNS:    atomNS,
	}

	ch := &out.Channel
	ch.Title = doc.Name
	ch.Link = doc.AlternateURL
	ch.Description = doc.Name
	ch.Generator = Generator
	ch.LastBuild = doc.Updated.Format(time.RFC1123Z)
	ch.SelfLink = &rssAtomLink{Href: doc.SelfURL, Rel: "self", Type: "application/rss+xml"}

	for _, entry := range doc.Entries {
		item := rssItem{
			Title:       entry.Title,
			Link:        entry.Link,
			Description: entry.Summary,
			GUID:        &rssGUID{Value: entry.ID, IsPermaLink: "false"},
		}

		pubDate := entry.UpdateDate
		if entry.PubDate != nil {
			pubDate = *entry.PubDate
		}
		item.PubDate = pubDate.Format(time.RFC1123Z)

		if entry.Content != "" {
			item.Content = &rssCDATA{Value: entry.Content}
		}
		for _, enc := range entry.Enclosures {
			item.Enclosures = append(item.Enclosures, rssEnclosure{
				URL:    enc.Href,
				Type:   enc.Type,
				Length: enc.Length,
			})
		}

		ch.Items = append(ch.Items, item)
	}

	output, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	return xml.Header + string(output), nil
}

// --- XML structs for RSS 2.0 output ---

type rssDoc struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	ContentNS string     `xml:"xmlns:content,attr"`
	AtomNS    string     `xml:"xmlns:atom,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	Description string       `xml:"description"`
	Generator   string       `xml:"generator,omitempty"`
	LastBuild   string       `xml:"lastBuildDate,omitempty"`
	SelfLink    *rssAtomLink `xml:"atom:link,omitempty"`
	Items       []rssItem    `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr,omitempty"`
}

type rssItem struct {
	Title       string         `xml:"title"`
	Link        string         `xml:"link,omitempty"`
	Description string         `xml:"description,omitempty"`
	Content     *rssCDATA      `xml:"content:encoded,omitempty"`
	PubDate     string         `xml:"pubDate,omitempty"`
	GUID        *rssGUID       `xml:"guid,omitempty"`
	Enclosures  []rssEnclosure `xml:"enclosure,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

type rssCDATA struct {
	Value string `xml:",cdata"`
}

type rssEnclosure struct {
	XMLName xml.Name `xml:"enclosure"`
	URL     string   `xml:"url,attr"`
	Type    string   `xml:"type,attr,omitempty"`
	Length  string   `xml:"length,attr,omitempty"`
}
