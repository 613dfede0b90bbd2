package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"phrasedex/internal/adapter/cache"
	"phrasedex/internal/adapter/fs"
	"phrasedex/internal/adapter/searcher"
	"phrasedex/internal/domain"
	"phrasedex/internal/metrics"
	"phrasedex/internal/port"
)

const (
	ModeWord   = "word"
	ModePhrase = "phrase"
	ModeExact  = "exact"
)

// SearchOptions configures a SearchUseCase. Cache and Metrics are optional.
type SearchOptions struct {
	Distance int
	Cache    *cache.QueryCache
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// SearchUseCase answers word, phrase and exact queries against the index of
// an IndexBuilder. Queries always see the most recent successful build.
type SearchUseCase struct {
	builder *IndexBuilder
	words   *searcher.WordExecutor
	phrase  *searcher.PhraseExecutor
	exact   *searcher.ExactExecutor

	phraseSearch port.Searcher
	exactSearch  port.Searcher

	cache   *cache.QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSearchUseCase wires the executors over builder. The cache and metrics
// in opts are optional.
func NewSearchUseCase(builder *IndexBuilder, opts SearchOptions) (*SearchUseCase, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "search")
	}

	idx := liveIndex{builder: builder}
	words := searcher.NewWordExecutor(idx)
	phrase, err := searcher.NewPhraseExecutor(words, builder.tokenizer, opts.Distance)
	if err != nil {
		return nil, err
	}
	exact := searcher.NewExactExecutor(phrase, fs.LineReader{}, logger)

	u := &SearchUseCase{
		builder:      builder,
		words:        words,
		phrase:       phrase,
		exact:        exact,
		phraseSearch: phrase,
		exactSearch:  exact,
		cache:        opts.Cache,
		metrics:      opts.Metrics,
		logger:       logger,
	}
	if opts.Cache != nil {
		var rec cache.Recorder
		if opts.Metrics != nil {
			rec = opts.Metrics
		}
		u.phraseSearch = cache.NewCachedSearcher(ModePhrase, opts.Distance, phrase, opts.Cache, rec)
		u.exactSearch = cache.NewCachedSearcher(ModeExact, opts.Distance, exact, opts.Cache, rec)
	}
	return u, nil
}

// Build rebuilds the index and drops every cached result.
func (u *SearchUseCase) Build(ctx context.Context, opts BuildOptions, progress ProgressFunc) error {
	if err := u.builder.BuildIndex(ctx, opts, progress); err != nil {
		return err
	}
	if u.cache != nil {
		u.cache.Invalidate()
	}
	return nil
}

// Words returns every occurrence of term per file.
func (u *SearchUseCase) Words(term string) domain.WordPostings {
	start := time.Now()
	postings := u.words.Query(term)
	u.observe(ModeWord, term, start, len(postings))
	return postings
}

// Phrase runs a phrase query at the configured distance.
func (u *SearchUseCase) Phrase(text string) []domain.Result {
	start := time.Now()
	results := u.phraseSearch.Query(text)
	u.observe(ModePhrase, text, start, len(results))
	return results
}

// PhraseWithDistance runs a phrase query with a one-off distance. Only the
// configured distance is served from the cache.
func (u *SearchUseCase) PhraseWithDistance(text string, distance int) ([]domain.Result, error) {
	if distance < 0 {
		return nil, fmt.Errorf("word distance must not be negative, got %d", distance)
	}
	if distance == u.phrase.Distance() {
		return u.Phrase(text), nil
	}
	start := time.Now()
	results := u.phrase.QueryWithDistance(text, distance)
	u.observe(ModePhrase, text, start, len(results))
	return results, nil
}

// Exact returns phrase matches whose source line holds text verbatim.
func (u *SearchUseCase) Exact(text string) []domain.Result {
	start := time.Now()
	results := u.exactSearch.Query(text)
	u.observe(ModeExact, text, start, len(results))
	return results
}

func (u *SearchUseCase) observe(mode, query string, start time.Time, files int) {
	elapsed := time.Since(start)
	u.metrics.QueryFinished(mode, elapsed, files)
	u.logger.Debug("query executed", "mode", mode, "query", query, "files", files, "elapsed", elapsed)
}

var _ port.IndexReader = liveIndex{}

// liveIndex resolves the builder's current index on every call, so executors
// created once keep working across rebuilds. It is read-only; published
// indexes are never written to.
type liveIndex struct {
	builder *IndexBuilder
}

func (l liveIndex) Get(term string) (domain.WordPostings, bool) {
	return l.builder.Index().Get(term)
}
