// Package performance provides utilities and benchmarks for feed fusion performance testing
package performance

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/feedfuser/feedfuser/fusion"
	"github.com/feedfuser/feedfuser/model"
	"github.com/feedfuser/feedfuser/republish"
)

// Render targets for the republishing benchmarks. The URLs only appear in
// the generated documents, nothing is fetched.
const (
	benchmarkSelfURL = "https://feeds.example.com/feeds/perf"
	benchmarkRootURL = "https://feeds.example.com/"
)

// BenchmarkConfig holds configuration for performance benchmarks
type BenchmarkConfig struct {
	SourceCount      int           // Number of sources in the synthetic fused feed
	EntriesPerSource int           // Number of entries per source
	ConcurrentUsers  int           // Number of concurrent users to simulate
	Duration         time.Duration // How long to run the benchmark
}

// DefaultBenchmarkConfig returns a default benchmark configuration
func DefaultBenchmarkConfig() *BenchmarkConfig {
	return &BenchmarkConfig{
		SourceCount:      20,
		EntriesPerSource: 50,
		ConcurrentUsers:  10,
		Duration:         30 * time.Second,
	}
}

// Metrics holds performance measurement results
type Metrics struct {
	TotalOperations  int64
	AverageLatency   time.Duration
	P95Latency       time.Duration
	P99Latency       time.Duration
	ThroughputPerSec float64
	ErrorRate        float64
	MemoryUsageMB    float64
	GoroutineCount   int
}

// FusionPerformanceTester measures the in-process fusion pipeline: merge
// ordering, filter chains, and feed rendering over a synthetic fused feed.
// Fetching is excluded, so the numbers isolate CPU cost from network cost.
type FusionPerformanceTester struct {
	feed    *model.FusedFeed
	filters []model.Filter
	config  *BenchmarkConfig
}

// NewFusionPerformanceTester creates a new performance tester
func NewFusionPerformanceTester(config *BenchmarkConfig) *FusionPerformanceTester {
	if config == nil {
		config = DefaultBenchmarkConfig()
	}

	return &FusionPerformanceTester{
		feed:    buildSyntheticFeed(config.SourceCount, config.EntriesPerSource),
		filters: benchmarkFilters(),
		config:  config,
	}
}

// BenchmarkMergeOrdering measures merged-view construction across all sources
func (fpt *FusionPerformanceTester) BenchmarkMergeOrdering(ctx context.Context) (*Metrics, error) {
	expected := fpt.config.SourceCount * fpt.config.EntriesPerSource
	return fpt.runBenchmark(ctx, "MergedEntries", func(_ context.Context) error {
		merged := fpt.feed.MergedEntries()
		if len(merged) != expected {
			return fmt.Errorf("merged %d entries, expected %d", len(merged), expected)
		}
		return nil
	})
}

// BenchmarkFilterChain measures filter evaluation over one source's entries
func (fpt *FusionPerformanceTester) BenchmarkFilterChain(ctx context.Context) (*Metrics, error) {
	if len(fpt.feed.Sources) == 0 {
		return nil, fmt.Errorf("no sources to filter")
	}

	entries := fpt.feed.Sources[0].Entries
	return fpt.runBenchmark(ctx, "ApplyFilters", func(_ context.Context) error {
		kept := fusion.ApplyFilters(entries, fpt.filters)
		if len(kept) > len(entries) {
			return fmt.Errorf("filter chain grew the entry set from %d to %d", len(entries), len(kept))
		}
		return nil
	})
}

// BenchmarkRepublishing measures the merge-and-render path for Atom output
func (fpt *FusionPerformanceTester) BenchmarkRepublishing(ctx context.Context) (*Metrics, error) {
	return fpt.runBenchmark(ctx, "RenderAtom", func(_ context.Context) error {
		doc := republish.NewFeedDoc(fpt.feed, benchmarkSelfURL, benchmarkRootURL)
		_, err := republish.Atom(doc)
		return err
	})
}

// BenchmarkConcurrentAccess measures performance under concurrent load
func (fpt *FusionPerformanceTester) BenchmarkConcurrentAccess(ctx context.Context) (*Metrics, error) {
	return fpt.runConcurrentBenchmark(ctx, "ConcurrentAccess", func(_ context.Context, workerID int) error {
		// Mix of operations
		switch workerID % 4 {
		case 0:
			fpt.feed.MergedEntries()
			return nil
		case 1:
			src := fpt.feed.Sources[workerID%len(fpt.feed.Sources)]
			fusion.ApplyFilters(src.Entries, fpt.filters)
			return nil
		case 2:
			doc := republish.NewFeedDoc(fpt.feed, benchmarkSelfURL, benchmarkRootURL)
			_, err := republish.Atom(doc)
			return err
		case 3:
			doc := republish.NewFeedDoc(fpt.feed, benchmarkSelfURL, benchmarkRootURL)
			_, err := republish.RSS(doc)
			return err
		}
		return nil
	})
}

// BenchmarkMemoryUsage measures memory usage patterns
func (fpt *FusionPerformanceTester) BenchmarkMemoryUsage(ctx context.Context) (*Metrics, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	initialMemory := memStats.Alloc

	metrics, err := fpt.BenchmarkMergeOrdering(ctx)
	if err != nil {
		return nil, err
	}

	runtime.ReadMemStats(&memStats)
	finalMemory := memStats.Alloc

	metrics.MemoryUsageMB = float64(finalMemory-initialMemory) / (1024 * 1024)
	return metrics, nil
}

// runBenchmark executes a single-threaded benchmark
func (fpt *FusionPerformanceTester) runBenchmark(ctx context.Context, name string, operation func(context.Context) error) (*Metrics, error) {
	var operations int64
	var totalLatency time.Duration
	var errors int64
	latencies := make([]time.Duration, 0, 1000)

	timeout := time.After(fpt.config.Duration)
	startTime := time.Now()

	for {
		select {
		case <-timeout:
			goto done
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			opStart := time.Now()
			err := operation(ctx)
			latency := time.Since(opStart)

			operations++
			totalLatency += latency
			latencies = append(latencies, latency)

			if err != nil {
				errors++
			}

			// Limit latency slice size to prevent memory issues
			if len(latencies) > 10000 {
				latencies = latencies[1000:]
			}
		}
	}

done:
	duration := time.Since(startTime)

	if operations == 0 {
		return &Metrics{}, nil
	}

	p95, p99 := calculatePercentiles(latencies)

	return &Metrics{
		TotalOperations:  operations,
		AverageLatency:   totalLatency / time.Duration(operations),
		P95Latency:       p95,
		P99Latency:       p99,
		ThroughputPerSec: float64(operations) / duration.Seconds(),
		ErrorRate:        float64(errors) / float64(operations),
		GoroutineCount:   runtime.NumGoroutine(),
	}, nil
}

// runConcurrentBenchmark executes a multi-threaded benchmark
func (fpt *FusionPerformanceTester) runConcurrentBenchmark(ctx context.Context, name string, operation func(context.Context, int) error) (*Metrics, error) {
	var totalOperations int64
	var totalErrors int64
	var totalLatency time.Duration
	var mu sync.Mutex
	latencies := make([]time.Duration, 0, 1000)

	var wg sync.WaitGroup
	timeout := time.After(fpt.config.Duration)
	startTime := time.Now()

	for i := 0; i < fpt.config.ConcurrentUsers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			var operations int64
			var errors int64
			var workerLatency time.Duration
			workerLatencies := make([]time.Duration, 0, 100)

			for {
				select {
				case <-timeout:
					// Aggregate worker results
					mu.Lock()
					totalOperations += operations
					totalErrors += errors
					totalLatency += workerLatency
					latencies = append(latencies, workerLatencies...)
					mu.Unlock()
					return
				case <-ctx.Done():
					return
				default:
					opStart := time.Now()
					err := operation(ctx, workerID)
					latency := time.Since(opStart)

					operations++
					workerLatency += latency
					workerLatencies = append(workerLatencies, latency)

					if err != nil {
						errors++
					}

					// Limit latency slice size
					if len(workerLatencies) > 1000 {
						workerLatencies = workerLatencies[100:]
					}
				}
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(startTime)

	if totalOperations == 0 {
		return &Metrics{}, nil
	}

	p95, p99 := calculatePercentiles(latencies)

	return &Metrics{
		TotalOperations:  totalOperations,
		AverageLatency:   totalLatency / time.Duration(totalOperations),
		P95Latency:       p95,
		P99Latency:       p99,
		ThroughputPerSec: float64(totalOperations) / duration.Seconds(),
		ErrorRate:        float64(totalErrors) / float64(totalOperations),
		GoroutineCount:   runtime.NumGoroutine(),
	}, nil
}

// calculatePercentiles gives a rough P95/P99 estimate from the average
// rather than sorting the full latency slice.
func calculatePercentiles(latencies []time.Duration) (p95, p99 time.Duration) {
	if len(latencies) == 0 {
		return 0, 0
	}

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))

	p95 = time.Duration(float64(avg) * 1.5)
	p99 = time.Duration(float64(avg) * 2.0)

	return p95, p99
}

// buildSyntheticFeed assembles a fused feed that looks like the output of a
// successful fetch cycle: every source fetched, entries normalized, update
// dates interleaved across sources so the merge sort has real work to do.
func buildSyntheticFeed(sourceCount, entriesPerSource int) *model.FusedFeed {
	base := time.Now().UTC()

	sources := make([]*model.Source, sourceCount)
	for i := 0; i < sourceCount; i++ {
		sources[i] = &model.Source{
			URI:     fmt.Sprintf("https://example.com/perf-source%d.xml", i),
			HTMLURI: fmt.Sprintf("https://example.com/perf-source%d", i),
			Fetched: true,
			Entries: buildEntries(base, i, sourceCount, entriesPerSource),
		}
	}

	return &model.FusedFeed{
		Name:    "Performance Fused Feed",
		Sources: sources,
	}
}

func buildEntries(base time.Time, sourceIdx, sourceCount, count int) []*model.Entry {
	entries := make([]*model.Entry, count)
	for j := 0; j < count; j++ {
		title := fmt.Sprintf("Performance Entry %d-%d", sourceIdx, j)
		if j%10 == 0 {
			title += " (sponsored)"
		}

		// Offset by source index plus stride so neighbors in merge order
		// come from different sources.
		updated := base.Add(-time.Duration(sourceIdx+j*sourceCount) * time.Minute)
		published := updated.Add(-time.Hour)

		entries[j] = &model.Entry{
			GUID:        fmt.Sprintf("urn:perf:%d-%d", sourceIdx, j),
			Title:       title,
			Author:      fmt.Sprintf("Author %d", j%5),
			Link:        fmt.Sprintf("https://example.com/perf-source%d/entry%d", sourceIdx, j),
			Summary:     fmt.Sprintf("<p>Synthetic summary for entry %d of source %d.</p>", j, sourceIdx),
			SummaryType: model.MediaTypeHTML,
			Content:     fmt.Sprintf("<article><h1>%s</h1><p>Synthetic body text for entry %d of source %d.</p></article>", title, j, sourceIdx),
			ContentType: model.MediaTypeHTML,
			PubDate:     &published,
			UpdateDate:  updated,
		}
	}
	return entries
}

// benchmarkFilters returns a chain exercising both rule operators: a block
// filter dropping sponsored titles, then an allow filter keeping entries
// whose summary parses to markup with a paragraph.
func benchmarkFilters() []model.Filter {
	return []model.Filter{
		{
			Type:    model.FilterTypeBlock,
			RawType: "block",
			Mode:    model.FilterModeOr,
			RawMode: "or",
			Rules: []model.Rule{
				{Op: model.RuleOpContains, RawOp: "contains", Field: "title", Value: "sponsored"},
			},
		},
		{
			Type:    model.FilterTypeAllow,
			RawType: "allow",
			Mode:    model.FilterModeOr,
			RawMode: "or",
			Rules: []model.Rule{
				{Op: model.RuleOpXPath, RawOp: "xpath", Field: "summary", Value: "//p"},
			},
		},
	}
}
