package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"phrasedex/config"
	"phrasedex/internal/adapter/cache"
	"phrasedex/internal/adapter/fs"
	"phrasedex/internal/domain"
	"phrasedex/internal/logger"
	"phrasedex/internal/usecase"
)

var (
	noProgress bool
	extensions string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "do not render the indexing progress bar")
	rootCmd.PersistentFlags().StringVar(&extensions, "ext", "", "comma separated file suffixes to index, replacing the configured globs")
}

// predicate returns the file filter for --ext, or for the configured includes
// and excludes when the flag is not set.
func predicate() fs.Predicate {
	var exts []string
	for _, e := range strings.Split(extensions, ",") {
		if e = strings.TrimSpace(e); e != "" {
			exts = append(exts, e)
		}
	}
	if len(exts) > 0 {
		return fs.ExtensionPredicate(exts...)
	}
	return fs.GlobPredicate(GetRootDir(), cfg.Index.Includes, cfg.Index.Excludes)
}

// buildOptions maps the configured pipeline sizing onto an index build.
func buildOptions(c config.IndexConfig) usecase.BuildOptions {
	return usecase.BuildOptions{
		IOWorkers:       c.IOWorkers,
		ComputeWorkers:  c.ComputeWorkers,
		ChannelCapacity: c.ChannelCapacity,
		LineChunkSize:   c.LineChunkSize,
	}
}

// buildSearch indexes the root directory and returns a search use case over
// the fresh index, using distance for phrase queries.
func buildSearch(cmd *cobra.Command, distance int) (*usecase.SearchUseCase, error) {
	root := GetRootDir()
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	builder := usecase.NewIndexBuilder(root, predicate(),
		usecase.WithLogger(logger.WithComponent("index-builder")),
		usecase.WithMetrics(appMetrics),
	)

	opts := usecase.SearchOptions{
		Distance: distance,
		Metrics:  appMetrics,
		Logger:   logger.WithComponent("search"),
	}
	if cfg.Cache.Enabled {
		opts.Cache = cache.NewQueryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	search, err := usecase.NewSearchUseCase(builder, opts)
	if err != nil {
		return nil, err
	}

	progress := func(domain.Progress) {}
	if !noProgress {
		progress = newProgressSink(cmd.ErrOrStderr()).Report
	}
	if err := search.Build(cmd.Context(), buildOptions(cfg.Index), progress); err != nil {
		return nil, fmt.Errorf("indexing failed: %w", err)
	}
	return search, nil
}
