package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/feedfuser/feedfuser/model"
)

// Helper function to build n sources carrying fetch state worth storing
func benchSources(n int) []*model.Source {
	sources := make([]*model.Source, n)
	for i := range sources {
		sources[i] = &model.Source{
			URI:          fmt.Sprintf("https://example.com/feed-%d", i),
			ETag:         fmt.Sprintf(`"etag-%d"`, i),
			LastModified: "Mon, 01 Jan 2024 10:00:00 GMT",
			Raw:          []byte("<rss version=\"2.0\"><channel><title>bench</title></channel></rss>"),
			Fetched:      true,
		}
	}
	return sources
}

// BenchmarkStore_Update measures storing a full cycle's state at varying
// source counts
func BenchmarkStore_Update(b *testing.B) {
	sourceCounts := []int{1, 5, 10, 25, 50}

	for _, sourceCount := range sourceCounts {
		b.Run(fmt.Sprintf("Sources_%d", sourceCount), func(b *testing.B) {
			s, err := NewStore(Config{})
			if err != nil {
				b.Fatal(err)
			}
			sources := benchSources(sourceCount)

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				s.Update(context.Background(), "bench", sources)
			}
		})
	}
}

// BenchmarkStore_Hydrate measures copying stored state back onto fresh
// sources, the hot path of every conditional fetch cycle
func BenchmarkStore_Hydrate(b *testing.B) {
	sourceCounts := []int{1, 5, 10, 25, 50}

	for _, sourceCount := range sourceCounts {
		b.Run(fmt.Sprintf("Sources_%d", sourceCount), func(b *testing.B) {
			s, err := NewStore(Config{})
			if err != nil {
				b.Fatal(err)
			}
			s.Update(context.Background(), "bench", benchSources(sourceCount))

			fresh := make([]*model.Source, sourceCount)
			for i := range fresh {
				fresh[i] = &model.Source{URI: fmt.Sprintf("https://example.com/feed-%d", i)}
			}

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				s.Hydrate(context.Background(), "bench", fresh)
			}
		})
	}
}

// BenchmarkStore_UpdateHydrateCycle measures a full store round trip as a
// fetch cycle would drive it
func BenchmarkStore_UpdateHydrateCycle(b *testing.B) {
	s, err := NewStore(Config{})
	if err != nil {
		b.Fatal(err)
	}
	sources := benchSources(10)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Update(context.Background(), "bench", sources)
		fresh := make([]*model.Source, len(sources))
		for j := range fresh {
			fresh[j] = &model.Source{URI: sources[j].URI}
		}
		s.Hydrate(context.Background(), "bench", fresh)
	}
}

// BenchmarkStore_ConcurrentHydrate measures concurrent read access, as
// parallel feed requests hydrate against the same store
func BenchmarkStore_ConcurrentHydrate(b *testing.B) {
	s, err := NewStore(Config{})
	if err != nil {
		b.Fatal(err)
	}
	s.Update(context.Background(), "bench", benchSources(10))

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			fresh := make([]*model.Source, 10)
			for i := range fresh {
				fresh[i] = &model.Source{URI: fmt.Sprintf("https://example.com/feed-%d", i)}
			}
			s.Hydrate(context.Background(), "bench", fresh)
		}
	})
}
