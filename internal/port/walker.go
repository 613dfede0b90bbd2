package port

import "context"

type FileCollector interface {
	Collect(ctx context.Context, root string) ([]string, error)
}

type LineReader interface {
	ReadLines(path string, lines []int) (map[int]string, error)
}
