package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"phrasedex/internal/adapter/analyzer"
	"phrasedex/internal/adapter/chunker"
	"phrasedex/internal/adapter/fs"
	"phrasedex/internal/adapter/index"
	"phrasedex/internal/domain"
	"phrasedex/internal/metrics"
	"phrasedex/internal/port"
)

var ErrInvalidOptions = errors.New("invalid build options")

// BuildOptions sizes the indexing pipeline. Every field must be at least 1.
type BuildOptions struct {
	IOWorkers       int
	ComputeWorkers  int
	ChannelCapacity int
	LineChunkSize   int
}

// Validate rejects any count below one with ErrInvalidOptions.
func (o BuildOptions) Validate() error {
	switch {
	case o.IOWorkers < 1:
		return fmt.Errorf("%w: io workers must be at least 1, got %d", ErrInvalidOptions, o.IOWorkers)
	case o.ComputeWorkers < 1:
		return fmt.Errorf("%w: compute workers must be at least 1, got %d", ErrInvalidOptions, o.ComputeWorkers)
	case o.ChannelCapacity < 1:
		return fmt.Errorf("%w: channel capacity must be at least 1, got %d", ErrInvalidOptions, o.ChannelCapacity)
	case o.LineChunkSize < 1:
		return fmt.Errorf("%w: line chunk size must be at least 1, got %d", ErrInvalidOptions, o.LineChunkSize)
	}
	return nil
}

// ProgressFunc receives pipeline events. It may be called from several
// goroutines at once.
type ProgressFunc func(domain.Progress)

type chunkJob struct {
	file  string
	chunk domain.TextChunk
}

// IndexBuilder builds an in-memory inverted index of every eligible file
// below a root directory.
type IndexBuilder struct {
	root      string
	collector port.FileCollector
	open      OpenFunc
	tokenizer port.Tokenizer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	index     atomic.Pointer[index.InvertedIndex]
}

// OpenFunc opens a chunked reader over one file.
type OpenFunc func(path string, maxLines int) (port.ChunkReader, error)

func openLineChunks(path string, maxLines int) (port.ChunkReader, error) {
	r, err := chunker.NewLineChunkReader(path, maxLines)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type BuilderOption func(*IndexBuilder)

// WithLogger sets the logger for build events.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *IndexBuilder) { b.logger = logger }
}

// WithMetrics records build counters in m.
func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *IndexBuilder) { b.metrics = m }
}

// WithTokenizer replaces the default tokenizer.
func WithTokenizer(t port.Tokenizer) BuilderOption {
	return func(b *IndexBuilder) { b.tokenizer = t }
}

// WithCollector replaces the directory walk; the predicate passed to
// NewIndexBuilder is then ignored.
func WithCollector(c port.FileCollector) BuilderOption {
	return func(b *IndexBuilder) { b.collector = c }
}

// WithChunkReader replaces how files are opened for chunked reading.
func WithChunkReader(open OpenFunc) BuilderOption {
	return func(b *IndexBuilder) { b.open = open }
}

// NewIndexBuilder returns a builder over the files below root accepted by
// predicate. Index returns an empty index until the first build succeeds.
func NewIndexBuilder(root string, predicate fs.Predicate, opts ...BuilderOption) *IndexBuilder {
	b := &IndexBuilder{
		root:      root,
		collector: fs.NewCollector(predicate),
		open:      openLineChunks,
		tokenizer: analyzer.NewTokenizer(),
		logger:    slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.index.Store(index.NewInvertedIndex())
	return b
}

// Index returns the index produced by the last successful build, or an empty
// index before the first one.
func (b *IndexBuilder) Index() *index.InvertedIndex {
	return b.index.Load()
}

// BuildIndex runs the pipeline to completion. On success the new index
// replaces the one returned by Index; on failure the previous index is kept.
func (b *IndexBuilder) BuildIndex(ctx context.Context, opts BuildOptions, progress ProgressFunc) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if progress == nil {
		progress = func(domain.Progress) {}
	}

	start := time.Now()
	logger := b.logger.With("build_id", uuid.NewString())
	logger.Info("index build started",
		"root", b.root,
		"io_workers", opts.IOWorkers,
		"compute_workers", opts.ComputeWorkers,
		"channel_capacity", opts.ChannelCapacity,
		"line_chunk_size", opts.LineChunkSize,
	)

	idx, stats, err := b.run(ctx, opts, progress, logger)
	b.metrics.BuildFinished(time.Since(start), err)
	if err != nil {
		logger.Error("index build failed", "error", err, "elapsed", time.Since(start))
		return err
	}

	b.index.Store(idx)
	logger.Info("index build finished",
		"files", stats.files.Load(),
		"words", stats.words.Load(),
		"files_with_words", len(idx.Files()),
		"terms", idx.Terms(),
		"elapsed", time.Since(start),
	)
	return nil
}

type buildStats struct {
	files atomic.Int64
	words atomic.Int64
}

func (b *IndexBuilder) run(ctx context.Context, opts BuildOptions, progress ProgressFunc, logger *slog.Logger) (*index.InvertedIndex, *buildStats, error) {
	progress(domain.StartIndexing{})

	files, err := b.collector.Collect(ctx, b.root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to collect files under %s: %w", b.root, err)
	}
	totalFiles := int64(len(files))
	logger.Debug("files collected", "total", totalFiles)

	paths := make(chan string, len(files))
	for _, f := range files {
		paths <- f
	}
	close(paths)

	idx := index.NewInvertedIndex()
	stats := &buildStats{}
	chunks := make(chan chunkJob, opts.ChannelCapacity)

	g, ctx := errgroup.WithContext(ctx)

	var (
		finished atomic.Int64
		failed   atomic.Bool
	)
	for i := 0; i < opts.IOWorkers; i++ {
		g.Go(func() error {
			err := b.readFiles(ctx, paths, chunks, opts.LineChunkSize, totalFiles, progress, stats)
			if err != nil {
				failed.Store(true)
			}
			// the last reader to leave ends the stream
			if finished.Add(1) == int64(opts.IOWorkers) {
				if !failed.Load() && ctx.Err() == nil {
					progress(domain.StopIndexing{})
				}
				close(chunks)
			}
			return err
		})
	}

	for i := 0; i < opts.ComputeWorkers; i++ {
		g.Go(func() error {
			return b.indexChunks(ctx, chunks, idx, stats)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return idx, stats, nil
}

// readFiles claims paths until the queue is drained and pushes every chunk of
// each file, its final chunk last.
func (b *IndexBuilder) readFiles(ctx context.Context, paths <-chan string, chunks chan<- chunkJob, lineChunkSize int, totalFiles int64, progress ProgressFunc, stats *buildStats) error {
	for path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := b.readFile(ctx, path, lineChunkSize, chunks); err != nil {
			return err
		}

		stats.files.Add(1)
		b.metrics.FileIndexed()
		progress(domain.IndexingProgressStep{File: path, TotalFiles: totalFiles})
	}
	return nil
}

func (b *IndexBuilder) readFile(ctx context.Context, path string, lineChunkSize int, chunks chan<- chunkJob) error {
	r, err := b.open(path, lineChunkSize)
	if err != nil {
		return err
	}
	defer r.Close()

	return chunker.Drain(r, func(chunk domain.TextChunk) error {
		select {
		case chunks <- chunkJob{file: path, chunk: chunk}:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !chunk.Final {
			b.metrics.ChunkRead()
		}
		return nil
	})
}

// indexChunks fills a worker-local index and merges it into idx once the
// chunk stream ends.
func (b *IndexBuilder) indexChunks(ctx context.Context, chunks <-chan chunkJob, idx *index.InvertedIndex, stats *buildStats) error {
	local := index.NewInvertedIndex()
	for job := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		words := 0
		for _, line := range job.chunk.Lines {
			for _, w := range analyzer.LineToWords(b.tokenizer, line) {
				local.Put(w)
				words++
			}
		}
		stats.words.Add(int64(words))
		b.metrics.WordsIndexed(words)
	}
	idx.Merge(local)
	return nil
}
