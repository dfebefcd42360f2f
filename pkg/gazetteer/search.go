package gazetteer

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/maypok86/otter/v2"
)

// Searcher answers autocomplete queries against a Table, memoizing rankings.
// The dataset never changes while the process runs, so a cached ranking is
// only evicted to bound memory.
type Searcher struct {
	table  *Table
	cache  *otter.Cache[string, []City]
	logger *slog.Logger
}

// NewSearcher creates a Searcher holding up to 10k rankings for ttl each.
func NewSearcher(table *Table, ttl time.Duration, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		table: table,
		cache: otter.Must(&otter.Options[string, []City]{
			MaximumSize:      10_000,
			InitialCapacity:  1_000,
			ExpiryCalculator: otter.ExpiryWriting[string, []City](ttl),
		}),
		logger: logger,
	}
}

// Search ranks the dataset for query. The only error source is loading the
// dataset; an unmatched query returns an empty slice and no error.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]City, error) {
	q := NewQuery(query)
	if q.Normalized == "" || limit <= 0 {
		return []City{}, nil
	}

	key := strconv.Itoa(limit) + ":" + q.Normalized
	if hit, found := s.cache.GetIfPresent(key); found {
		s.logger.Debug("search cache hit", "query", q.Normalized, "limit", limit)
		return slices.Clone(hit), nil
	}

	cities, err := s.table.Cities(ctx)
	if err != nil {
		return nil, err
	}

	ranked := Rank(cities, q.Normalized, limit)
	s.cache.Set(key, ranked)
	s.logger.Debug("search cache set", "query", q.Normalized, "limit", limit, "results", len(ranked))
	return slices.Clone(ranked), nil
}

// CachedQueries reports how many rankings are currently memoized.
func (s *Searcher) CachedQueries() int {
	return s.cache.EstimatedSize()
}
