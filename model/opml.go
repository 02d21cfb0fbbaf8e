package model

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/feedfuser/feedfuser/version"
)

// OPMLOutline is one node of an OPML outline tree. Subscription nodes carry
// an xmlUrl; folder nodes carry none and only contribute their children.
type OPMLOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr,omitempty"`
	Type     string        `xml:"type,attr,omitempty"`
	XMLURL   string        `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string        `xml:"htmlUrl,attr,omitempty"`
	Outlines []OPMLOutline `xml:"outline,omitempty"`
}

// OPMLBody holds the top-level outlines.
type OPMLBody struct {
	Outlines []OPMLOutline `xml:"outline"`
}

// OPMLHead carries document metadata. Title seeds the fused feed name when
// the importer is not given one explicitly.
type OPMLHead struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
	OwnerName   string `xml:"ownerName,omitempty"`
	OwnerEmail  string `xml:"ownerEmail,omitempty"`
}

// OPML is a parsed OPML subscription list. Only the parts the importer
// reads are mapped.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    OPMLHead `xml:"head"`
	Body    OPMLBody `xml:"body"`
}

// OPMLFeed is one subscription found in an OPML document.
type OPMLFeed struct {
	XMLURL  string
	HTMLURL string
	Title   string
}

// ParseOPML decodes an OPML document.
func ParseOPML(content []byte) (*OPML, error) {
	var opml OPML
	if err := xml.Unmarshal(content, &opml); err != nil {
		return nil, NewFeedErrorWithCause(ErrorTypeParsing, "failed to parse OPML content", err).
			WithOperation("parse_opml").
			WithComponent("opml_parser")
	}
	return &opml, nil
}

// Feeds walks the outline tree and collects every subscription that carries
// an xmlUrl. Duplicate feed URLs are collapsed, first occurrence wins.
func (o *OPML) Feeds() []OPMLFeed {
	var feeds []OPMLFeed
	seen := make(map[string]bool)
	collectFeeds(o.Body.Outlines, seen, &feeds)
	return feeds
}

// FeedURLs returns just the subscription URLs, in document order.
func (o *OPML) FeedURLs() []string {
	feeds := o.Feeds()
	urls := make([]string, 0, len(feeds))
	for _, feed := range feeds {
		urls = append(urls, feed.XMLURL)
	}
	return urls
}

func collectFeeds(outlines []OPMLOutline, seen map[string]bool, feeds *[]OPMLFeed) {
	for _, outline := range outlines {
		if outline.XMLURL != "" && !seen[outline.XMLURL] {
			seen[outline.XMLURL] = true
			title := outline.Title
			if title == "" {
				title = outline.Text
			}
			*feeds = append(*feeds, OPMLFeed{
				XMLURL:  outline.XMLURL,
				HTMLURL: outline.HTMLURL,
				Title:   title,
			})
		}
		if len(outline.Outlines) > 0 {
			collectFeeds(outline.Outlines, seen, feeds)
		}
	}
}

// LoadOPMLFromFile reads and parses an OPML document from the local
// filesystem.
func LoadOPMLFromFile(path string) (*OPML, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- the path comes straight from the import-opml CLI argument
	if err != nil {
		return nil, NewFeedErrorWithCause(ErrorTypeConfiguration, fmt.Sprintf("failed to read OPML file: %s", path), err).
			WithOperation("load_opml_file").
			WithComponent("opml_loader")
	}
	return ParseOPML(content)
}

// OPML imports run once per CLI invocation, so the loader keeps its own
// client instead of borrowing the fetcher pool.
var opmlHTTPClient = &http.Client{Timeout: 30 * time.Second}

// LoadOPMLFromURL fetches and parses an OPML document from a remote URL.
func LoadOPMLFromURL(url string) (*OPML, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, NewFeedErrorWithCause(ErrorTypeInvalidURL, fmt.Sprintf("invalid OPML URL: %s", url), err).
			WithOperation("load_opml_url").
			WithComponent("opml_loader")
	}
	req.Header.Set("User-Agent", "feedfuser/"+version.GetVersion())

	resp, err := opmlHTTPClient.Do(req)
	if err != nil {
		return nil, NewFeedErrorWithCause(ErrorTypeNetwork, fmt.Sprintf("failed to fetch OPML from URL: %s", url), err).
			WithOperation("load_opml_url").
			WithComponent("opml_loader")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewFeedError(ErrorTypeHTTP, fmt.Sprintf("HTTP %d when fetching OPML from: %s", resp.StatusCode, url)).
			WithOperation("load_opml_url").
			WithComponent("opml_loader").
			WithHTTP(resp.StatusCode, resp.Header)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewFeedErrorWithCause(ErrorTypeNetwork, fmt.Sprintf("failed to read OPML response from: %s", url), err).
			WithOperation("load_opml_url").
			WithComponent("opml_loader")
	}

	return ParseOPML(content)
}

// LoadOPML reads an OPML document from a local path or an http(s) URL,
// dispatching on the source prefix.
func LoadOPML(source string) (*OPML, error) {
	if source == "" {
		return nil, NewFeedError(ErrorTypeConfiguration, "OPML source cannot be empty").
			WithOperation("load_opml").
			WithComponent("opml_loader")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return LoadOPMLFromURL(source)
	}

	return LoadOPMLFromFile(source)
}
