package chunker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"phrasedex/internal/domain"
	"phrasedex/internal/port"
)

// LineChunkReader reads a file sequentially in chunks of at most maxLines
// lines. Once the file is exhausted it returns one empty chunk marked Final.
type LineChunkReader struct {
	path     string
	file     *os.File
	reader   *bufio.Reader
	maxLines int
	lineNo   int
	done     bool
}

// NewLineChunkReader opens path for reading at most maxLines lines per chunk.
func NewLineChunkReader(path string, maxLines int) (*LineChunkReader, error) {
	if maxLines < 1 {
		return nil, fmt.Errorf("line limit must be positive, got %d", maxLines)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &LineChunkReader{
		path:     path,
		file:     f,
		reader:   bufio.NewReader(f),
		maxLines: maxLines,
	}, nil
}

// Next returns the next chunk. After the last line it returns an empty
// chunk marked Final.
func (r *LineChunkReader) Next() (domain.TextChunk, error) {
	if r.done {
		return domain.TextChunk{Final: true}, nil
	}

	lines := make([]domain.FileLine, 0, min(r.maxLines, 1024))
	for len(lines) < r.maxLines {
		text, ok, err := r.readLine()
		if err != nil {
			return domain.TextChunk{}, fmt.Errorf("failed to read %s: %w", r.path, err)
		}
		if !ok {
			break
		}
		r.lineNo++
		lines = append(lines, domain.FileLine{Text: text, File: r.path, Line: r.lineNo})
	}

	if len(lines) == 0 {
		r.done = true
		return domain.TextChunk{Final: true}, nil
	}
	return domain.TextChunk{Lines: lines}, nil
}

// readLine returns the next line without its terminator. A trailing line
// without a newline still counts as a line.
func (r *LineChunkReader) readLine() (string, bool, error) {
	text, err := r.reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		if text == "" {
			return "", false, nil
		}
	}
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return text, true, nil
}

func (r *LineChunkReader) Close() error {
	return r.file.Close()
}

// Drain consumes r up to and including its final chunk. It does not close r.
func Drain(r port.ChunkReader, fn func(domain.TextChunk) error) error {
	for {
		chunk, err := r.Next()
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
		if chunk.Final {
			return nil
		}
	}
}
