package fusion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feedfuser/feedfuser/model"
)

func rssDoc(feedTitle string, items ...string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel>` +
		`<title>` + feedTitle + `</title>` +
		`<link>https://` + feedTitle + `.example.com/</link>` +
		`<description>test</description>`
	for _, item := range items {
		doc += item
	}
	return doc + `</channel></rss>`
}

func rssEntry(guid string, day int) string {
	pubDate := time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC).Format(time.RFC1123)
	return `<item><guid isPermaLink="false">` + guid + `</guid>` +
		`<title>` + guid + `</title>` +
		`<pubDate>` + pubDate + `</pubDate></item>`
}

func serveBody(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func testCoordinator(t *testing.T, config CoordinatorConfig) *Coordinator {
	t.Helper()
	if config.Fetcher == nil {
		config.Fetcher = testFetcher(t, FetcherConfig{})
	}
	return NewCoordinator(config)
}

func TestCoordinatorMergesAcrossSources(t *testing.T) {
	sourceA := serveBody(t, rssDoc("alpha", rssEntry("A1", 3), rssEntry("A2", 1)))
	sourceB := serveBody(t, rssDoc("beta", rssEntry("B1", 2), rssEntry("B2", 4)))

	feed := &model.FusedFeed{
		Name: "merge",
		Sources: []*model.Source{
			{URI: sourceA.URL},
			{URI: sourceB.URL},
		},
	}

	testCoordinator(t, CoordinatorConfig{}).Fetch(context.Background(), feed)

	got := make([]string, 0, 4)
	for _, entry := range feed.MergedEntries() {
		got = append(got, entry.GUID)
	}
	want := []string{"B2", "A1", "B1", "A2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged order = %v, want %v", got, want)
	}
}

func TestCoordinatorIsolatesSlowSource(t *testing.T) {
	fast1 := serveBody(t, rssDoc("fast1", rssEntry("F1", 1)))
	fast2 := serveBody(t, rssDoc("fast2", rssEntry("F2", 2)))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(rssDoc("slow", rssEntry("S1", 3))))
	}))
	t.Cleanup(slow.Close)

	feed := &model.FusedFeed{
		Sources: []*model.Source{
			{URI: fast1.URL},
			{URI: slow.URL},
			{URI: fast2.URL},
		},
	}

	coordinator := testCoordinator(t, CoordinatorConfig{WaitTimeout: 150 * time.Millisecond})

	start := time.Now()
	coordinator.Fetch(context.Background(), feed)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("cycle took %v, a slow source must not block the others", elapsed)
	}
	if !feed.Sources[0].Fetched || !feed.Sources[2].Fetched {
		t.Error("healthy sources should have fetched")
	}
	if feed.Sources[1].Fetched {
		t.Error("slow source should have timed out")
	}
	if got := len(feed.MergedEntries()); got != 2 {
		t.Errorf("merged entries = %d, want the two healthy sources", got)
	}
}

func TestCoordinatorKeepsFailedSourceState(t *testing.T) {
	healthy := serveBody(t, rssDoc("healthy", rssEntry("H1", 1)))
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	feed := &model.FusedFeed{
		Sources: []*model.Source{
			{URI: broken.URL, ETag: `"kept"`, Raw: []byte("cached body")},
			{URI: healthy.URL},
		},
	}

	testCoordinator(t, CoordinatorConfig{}).Fetch(context.Background(), feed)

	// Failed sources keep their declared position and cache metadata.
	if feed.Sources[0].URI != broken.URL {
		t.Error("source order must not change across a cycle")
	}
	if feed.Sources[0].Fetched {
		t.Error("broken source must not be marked fetched")
	}
	if feed.Sources[0].ETag != `"kept"` || string(feed.Sources[0].Raw) != "cached body" {
		t.Error("failure must not clear cache metadata")
	}
	if !feed.Sources[1].Fetched {
		t.Error("healthy source should be fetched despite its neighbor failing")
	}
}

func TestCoordinatorFetchesEachSourceOnce(t *testing.T) {
	var hits [3]int64
	servers := make([]*httptest.Server, 3)
	for i := range servers {
		i := i
		servers[i] = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&hits[i], 1)
			_, _ = w.Write([]byte(rssDoc(fmt.Sprintf("s%d", i), rssEntry(fmt.Sprintf("E%d", i), i+1))))
		}))
		t.Cleanup(servers[i].Close)
	}

	feed := &model.FusedFeed{
		Sources: []*model.Source{
			{URI: servers[0].URL},
			{URI: servers[1].URL},
			{URI: servers[2].URL},
		},
	}

	testCoordinator(t, CoordinatorConfig{}).Fetch(context.Background(), feed)

	for i := range hits {
		if got := atomic.LoadInt64(&hits[i]); got != 1 {
			t.Errorf("source %d fetched %d times, want exactly once", i, got)
		}
	}
}

func TestCoordinatorResetsPreviousCycleResults(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(broken.Close)

	src := &model.Source{
		URI:     broken.URL,
		Fetched: true,
		Entries: []*model.Entry{{GUID: "from-last-cycle"}},
	}
	feed := &model.FusedFeed{Sources: []*model.Source{src}}

	testCoordinator(t, CoordinatorConfig{}).Fetch(context.Background(), feed)

	if src.Fetched {
		t.Error("failed fetch must clear the fetched mark")
	}
	if len(src.Entries) != 0 {
		t.Errorf("failed fetch must not leak last cycle's entries, got %d", len(src.Entries))
	}
}

func TestCoordinatorBoundsParallelism(t *testing.T) {
	var inflight, peak int64
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt64(&inflight, 1)
		mu.Lock()
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt64(&inflight, -1)
		_, _ = w.Write([]byte(rssDoc("bounded", rssEntry("X", 1))))
	}))
	t.Cleanup(server.Close)

	// Distinct query strings make distinct source URIs against one server.
	sources := make([]*model.Source, 6)
	for i := range sources {
		sources[i] = &model.Source{URI: fmt.Sprintf("%s/?src=%d", server.URL, i)}
	}
	feed := &model.FusedFeed{Sources: sources}

	fetcher := testFetcher(t, FetcherConfig{RequestsPerSecond: 1000, BurstCapacity: 1000})
	testCoordinator(t, CoordinatorConfig{Fetcher: fetcher, MaxWorkers: 2}).Fetch(context.Background(), feed)

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
	for i, src := range feed.Sources {
		if !src.Fetched {
			t.Errorf("source %d should have fetched", i)
		}
	}
}

func TestNewCoordinatorDefaults(t *testing.T) {
	coordinator := NewCoordinator(CoordinatorConfig{})

	if coordinator.maxWorkers != 5 {
		t.Errorf("maxWorkers = %d, want 5", coordinator.maxWorkers)
	}
	if coordinator.waitTimeout != 10*time.Second {
		t.Errorf("waitTimeout = %v, want 10s", coordinator.waitTimeout)
	}
	if coordinator.fetcher == nil {
		t.Error("fetcher should be defaulted")
	}
}
