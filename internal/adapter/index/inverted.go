package index

import (
	"sort"
	"sync"

	"phrasedex/internal/domain"
	"phrasedex/internal/port"
)

var _ port.Index = (*InvertedIndex)(nil)

// InvertedIndex maps term -> file -> postings. Terms and files are created on
// first use with LoadOrStore, postings are appended under a per-file lock, so
// writers on different terms or files never contend.
type InvertedIndex struct {
	terms sync.Map // string -> *fileMap
}

type fileMap struct {
	files sync.Map // string -> *bucket
}

type bucket struct {
	mu       sync.Mutex
	postings []domain.Posting
}

// NewInvertedIndex returns an empty index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{}
}

// Put records one occurrence. Identical words put twice are stored twice.
func (idx *InvertedIndex) Put(word domain.Word) {
	b := idx.bucket(domain.NormalizeTerm(word.Token.Text), word.File)
	b.mu.Lock()
	b.postings = append(b.postings, domain.Posting{Line: word.Line, Column: word.Token.Column})
	b.mu.Unlock()
}

func (idx *InvertedIndex) bucket(term, file string) *bucket {
	fm, ok := idx.terms.Load(term)
	if !ok {
		fm, _ = idx.terms.LoadOrStore(term, &fileMap{})
	}
	files := fm.(*fileMap)

	b, ok := files.files.Load(file)
	if !ok {
		b, _ = files.files.LoadOrStore(file, &bucket{})
	}
	return b.(*bucket)
}

// Get returns a copy of the postings of term. Postings inserted concurrently
// with the call may or may not be included.
func (idx *InvertedIndex) Get(term string) (domain.WordPostings, bool) {
	fm, ok := idx.terms.Load(domain.NormalizeTerm(term))
	if !ok {
		return nil, false
	}

	result := make(domain.WordPostings)
	fm.(*fileMap).files.Range(func(k, v any) bool {
		if postings := v.(*bucket).snapshot(); len(postings) > 0 {
			result[k.(string)] = postings
		}
		return true
	})
	return result, true
}

func (b *bucket) snapshot() []domain.Posting {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Posting, len(b.postings))
	copy(out, b.postings)
	return out
}

// Merge appends every posting of other into idx. Both indexes are expected
// to hold distinct occurrences; shared postings end up counted twice.
func (idx *InvertedIndex) Merge(other *InvertedIndex) {
	if other == nil || other == idx {
		return
	}
	other.terms.Range(func(term, fm any) bool {
		fm.(*fileMap).files.Range(func(file, b any) bool {
			postings := b.(*bucket).snapshot()
			if len(postings) == 0 {
				return true
			}
			dst := idx.bucket(term.(string), file.(string))
			dst.mu.Lock()
			dst.postings = append(dst.postings, postings...)
			dst.mu.Unlock()
			return true
		})
		return true
	})
}

// Terms returns the number of distinct terms.
func (idx *InvertedIndex) Terms() int {
	n := 0
	idx.terms.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Files returns every file holding at least one posting, sorted.
func (idx *InvertedIndex) Files() []string {
	seen := make(map[string]struct{})
	idx.terms.Range(func(_, fm any) bool {
		fm.(*fileMap).files.Range(func(file, _ any) bool {
			seen[file.(string)] = struct{}{}
			return true
		})
		return true
	})

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
