package fs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Predicate decides whether a regular file should be indexed.
type Predicate func(path string) bool

// All accepts every file.
func All(string) bool { return true }

// GlobPredicate matches paths relative to root against doublestar patterns.
// A file is accepted when it matches an include and no exclude. An empty
// include list accepts everything.
func GlobPredicate(root string, includes, excludes []string) Predicate {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		rel = filepath.ToSlash(rel)
		return matchAny(includes, rel) && !matchAny(excludes, rel)
	}
}

// ExtensionPredicate accepts files whose name ends with one of exts.
func ExtensionPredicate(exts ...string) Predicate {
	return func(path string) bool {
		name := filepath.Base(path)
		for _, ext := range exts {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
		return false
	}
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// Collector enumerates eligible files below a root directory. Each
// subdirectory is listed in its own goroutine; directories whose name starts
// with a dot are skipped.
type Collector struct {
	predicate Predicate
}

// NewCollector returns a collector keeping the files accepted by predicate,
// or every file when predicate is nil.
func NewCollector(predicate Predicate) *Collector {
	if predicate == nil {
		predicate = All
	}
	return &Collector{predicate: predicate}
}

// Collect returns all accepted files under root sorted by path. The first
// listing error cancels the remaining work and is returned.
func (c *Collector) Collect(ctx context.Context, root string) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)

	g, ctx := errgroup.WithContext(ctx)

	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}

		var found []string
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if strings.HasPrefix(entry.Name(), ".") {
					continue
				}
				g.Go(func() error { return walk(path) })
				continue
			}
			if !isFileLike(entry) || isSymlinkToDir(entry, path) {
				continue
			}
			if c.predicate(path) {
				found = append(found, path)
			}
		}

		if len(found) > 0 {
			mu.Lock()
			files = append(files, found...)
			mu.Unlock()
		}
		return nil
	}

	g.Go(func() error { return walk(root) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// isFileLike reports whether entry is a regular file or a symlink. Pipes,
// sockets and devices are never offered to the predicate.
func isFileLike(entry fs.DirEntry) bool {
	t := entry.Type()
	return t.IsRegular() || t&fs.ModeSymlink != 0
}

func isSymlinkToDir(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CollectFiles is a shorthand for NewCollector(predicate).Collect.
func CollectFiles(ctx context.Context, root string, predicate Predicate) ([]string, error) {
	return NewCollector(predicate).Collect(ctx, root)
}

// LineReader re-reads individual lines from files on disk.
type LineReader struct{}

func (LineReader) ReadLines(path string, lines []int) (map[int]string, error) {
	return ReadLines(path, lines)
}

// ReadLines returns the text of the requested 1-based line numbers. Lines past
// the end of the file are absent from the result.
func ReadLines(path string, lines []int) (map[int]string, error) {
	result := make(map[int]string, len(lines))
	if len(lines) == 0 {
		return result, nil
	}

	wanted := make(map[int]struct{}, len(lines))
	last := 0
	for _, l := range lines {
		wanted[l] = struct{}{}
		last = max(last, l)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for lineNo := 1; lineNo <= last; lineNo++ {
		text, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if errors.Is(err, io.EOF) && text == "" {
			break
		}
		if _, ok := wanted[lineNo]; ok {
			text = strings.TrimSuffix(text, "\n")
			result[lineNo] = strings.TrimSuffix(text, "\r")
		}
		if err != nil {
			break
		}
	}
	return result, nil
}
