package model

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseOPML(t *testing.T) {
	tests := []struct {
		name    string
		opml    string
		want    []string
		wantErr bool
	}{
		{
			name: "flat subscription list",
			opml: `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<head>
		<title>Reading List</title>
	</head>
	<body>
		<outline text="Go Blog" title="Go Blog" xmlUrl="https://blog.golang.org/feed.atom" />
		<outline text="LWN" title="LWN" xmlUrl="https://lwn.net/headlines/rss" />
	</body>
</opml>`,
			want: []string{
				"https://blog.golang.org/feed.atom",
				"https://lwn.net/headlines/rss",
			},
		},
		{
			name: "nested folders flatten in document order",
			opml: `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<head>
		<title>Sorted Subscriptions</title>
	</head>
	<body>
		<outline text="Infrastructure" title="Infrastructure">
			<outline text="Kubernetes" xmlUrl="https://kubernetes.io/feed.xml" />
			<outline text="Cloudflare" xmlUrl="https://blog.cloudflare.com/rss/" />
		</outline>
		<outline text="Databases" title="Databases">
			<outline text="PostgreSQL" xmlUrl="https://www.postgresql.org/news.rss" />
		</outline>
	</body>
</opml>`,
			want: []string{
				"https://kubernetes.io/feed.xml",
				"https://blog.cloudflare.com/rss/",
				"https://www.postgresql.org/news.rss",
			},
		},
		{
			name: "subscriptions mixed with folders",
			opml: `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<body>
		<outline text="Top Level" xmlUrl="https://status.example.net/feed.atom" />
		<outline text="Releases">
			<outline text="Git" xmlUrl="https://github.com/git/git/releases.atom" />
			<outline text="Drafts">
				<!-- folder without subscriptions -->
			</outline>
		</outline>
		<outline text="Trailing" xmlUrl="https://weekly.example.net/rss" />
	</body>
</opml>`,
			want: []string{
				"https://status.example.net/feed.atom",
				"https://github.com/git/git/releases.atom",
				"https://weekly.example.net/rss",
			},
		},
		{
			name: "duplicate subscriptions collapse",
			opml: `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<body>
		<outline text="Primary" xmlUrl="https://status.example.net/feed.atom" />
		<outline text="Same Feed Again" xmlUrl="https://status.example.net/feed.atom" />
	</body>
</opml>`,
			want: []string{"https://status.example.net/feed.atom"},
		},
		{
			name: "truncated document",
			opml: `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<head>
		<title>Broken</title>
	<body>
		<outline text="Missing head close" xmlUrl="https://status.example.net/feed.atom" />
	</body>
</opml>`,
			wantErr: true,
		},
		{
			name: "folders only, no subscriptions",
			opml: `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<head>
		<title>Just Folders</title>
	</head>
	<body>
		<outline text="Empty">
			<outline text="Still Empty" />
		</outline>
	</body>
</opml>`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opml, err := ParseOPML([]byte(tt.opml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOPML() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !IsErrorType(err, ErrorTypeParsing) {
					t.Errorf("ParseOPML() error type = %v, want parsing", err)
				}
				return
			}
			if urls := opml.FeedURLs(); !reflect.DeepEqual(urls, tt.want) {
				t.Errorf("FeedURLs() = %v, want %v", urls, tt.want)
			}
		})
	}
}

func TestOPMLFeeds(t *testing.T) {
	opml, err := ParseOPML([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<head>
		<title>My Subscriptions</title>
	</head>
	<body>
		<outline text="Ops Weekly" title="Ops Weekly Digest" xmlUrl="https://ops.example.net/feed" htmlUrl="https://ops.example.net/" />
		<outline text="Text Only" xmlUrl="https://text.example.net/feed" />
	</body>
</opml>`))
	if err != nil {
		t.Fatalf("ParseOPML() error = %v", err)
	}

	if opml.Head.Title != "My Subscriptions" {
		t.Errorf("Head.Title = %q, want %q", opml.Head.Title, "My Subscriptions")
	}

	feeds := opml.Feeds()
	if len(feeds) != 2 {
		t.Fatalf("Feeds() returned %d feeds, want 2", len(feeds))
	}

	if feeds[0].Title != "Ops Weekly Digest" {
		t.Errorf("feeds[0].Title = %q, want title attribute", feeds[0].Title)
	}
	if feeds[0].HTMLURL != "https://ops.example.net/" {
		t.Errorf("feeds[0].HTMLURL = %q, want htmlUrl attribute", feeds[0].HTMLURL)
	}
	if feeds[1].Title != "Text Only" {
		t.Errorf("feeds[1].Title = %q, want fallback to text attribute", feeds[1].Title)
	}
	if feeds[1].HTMLURL != "" {
		t.Errorf("feeds[1].HTMLURL = %q, want empty", feeds[1].HTMLURL)
	}
}

func writeOPMLFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscriptions.opml")
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<body>` + body + `
	</body>
</opml>`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing OPML fixture: %v", err)
	}
	return path
}

func TestLoadOPMLFromFile(t *testing.T) {
	path := writeOPMLFixture(t, `
		<outline text="First" xmlUrl="https://one.example.net/feed.xml" />
		<outline text="Second" xmlUrl="https://two.example.net/feed.xml" />`)

	opml, err := LoadOPMLFromFile(path)
	if err != nil {
		t.Fatalf("LoadOPMLFromFile() error = %v", err)
	}

	want := []string{
		"https://one.example.net/feed.xml",
		"https://two.example.net/feed.xml",
	}
	if urls := opml.FeedURLs(); !reflect.DeepEqual(urls, want) {
		t.Errorf("LoadOPMLFromFile() feeds = %v, want %v", urls, want)
	}
}

func TestLoadOPMLFromFileNonExistent(t *testing.T) {
	_, err := LoadOPMLFromFile(filepath.Join(t.TempDir(), "missing.opml"))
	if err == nil {
		t.Fatal("LoadOPMLFromFile() should return error for non-existent file")
	}
	if !IsErrorType(err, ErrorTypeConfiguration) {
		t.Errorf("error type = %v, want configuration", err)
	}
	if !strings.Contains(err.Error(), "failed to read OPML file") {
		t.Errorf("expected file error, got: %v", err)
	}
}

func TestLoadOPMLFromURL(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<body>
		<outline text="Remote One" xmlUrl="https://one.example.net/feed.xml" />
		<outline text="Remote Two" xmlUrl="https://two.example.net/feed.xml" />
	</body>
</opml>`)
	}))
	defer server.Close()

	opml, err := LoadOPMLFromURL(server.URL)
	if err != nil {
		t.Fatalf("LoadOPMLFromURL() error = %v", err)
	}

	want := []string{
		"https://one.example.net/feed.xml",
		"https://two.example.net/feed.xml",
	}
	if urls := opml.FeedURLs(); !reflect.DeepEqual(urls, want) {
		t.Errorf("LoadOPMLFromURL() feeds = %v, want %v", urls, want)
	}
	if !strings.HasPrefix(gotUserAgent, "feedfuser/") {
		t.Errorf("User-Agent = %q, want feedfuser prefix", gotUserAgent)
	}
}

func TestLoadOPMLFromURLHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := LoadOPMLFromURL(server.URL)
	if err == nil {
		t.Fatal("LoadOPMLFromURL() should return error for HTTP 404")
	}
	if !IsErrorType(err, ErrorTypeHTTP) {
		t.Errorf("error type = %v, want http", err)
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected HTTP error, got: %v", err)
	}
}

func TestLoadOPMLFromURLUnreachable(t *testing.T) {
	_, err := LoadOPMLFromURL("not-a-valid-url")
	if err == nil {
		t.Fatal("LoadOPMLFromURL() should return error for a schemeless URL")
	}
}

func TestLoadOPML(t *testing.T) {
	t.Run("empty source", func(t *testing.T) {
		_, err := LoadOPML("")
		if !IsErrorType(err, ErrorTypeConfiguration) {
			t.Errorf("LoadOPML(\"\") error = %v, want configuration error", err)
		}
	})

	t.Run("file path", func(t *testing.T) {
		path := writeOPMLFixture(t, `
		<outline text="Local" xmlUrl="https://local.example.net/feed.xml" />`)
		opml, err := LoadOPML(path)
		if err != nil {
			t.Fatalf("LoadOPML() error = %v", err)
		}
		want := []string{"https://local.example.net/feed.xml"}
		if urls := opml.FeedURLs(); !reflect.DeepEqual(urls, want) {
			t.Errorf("LoadOPML() feeds = %v, want %v", urls, want)
		}
	})

	t.Run("http url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<body>
		<outline text="Remote" xmlUrl="https://remote.example.net/feed.xml" />
	</body>
</opml>`)
		}))
		defer server.Close()

		opml, err := LoadOPML(server.URL)
		if err != nil {
			t.Fatalf("LoadOPML() error = %v", err)
		}
		want := []string{"https://remote.example.net/feed.xml"}
		if urls := opml.FeedURLs(); !reflect.DeepEqual(urls, want) {
			t.Errorf("LoadOPML() feeds = %v, want %v", urls, want)
		}
	})
}

func BenchmarkParseOPML(b *testing.B) {
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
	<head>
		<title>Large Subscription List</title>
	</head>
	<body>`)
	for folder := 0; folder < 10; folder++ {
		fmt.Fprintf(&doc, `
		<outline text="Folder %d">`, folder)
		for feed := 0; feed < 10; feed++ {
			fmt.Fprintf(&doc, `
			<outline text="Feed %d-%d" xmlUrl="https://f%d-%d.example.net/feed.xml" />`, folder, feed, folder, feed)
		}
		doc.WriteString(`
		</outline>`)
	}
	doc.WriteString(`
	</body>
</opml>`)

	opmlBytes := []byte(doc.String())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		opml, err := ParseOPML(opmlBytes)
		if err != nil {
			b.Fatalf("ParseOPML() error = %v", err)
		}
		if len(opml.FeedURLs()) != 100 {
			b.Fatalf("FeedURLs() = %d subscriptions, want 100", len(opml.FeedURLs()))
		}
	}
}
