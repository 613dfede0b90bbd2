package searcher

import (
	"phrasedex/internal/domain"
	"phrasedex/internal/port"
)

// WordExecutor looks up single terms in an index.
type WordExecutor struct {
	index port.IndexReader
}

// NewWordExecutor returns an executor reading from index.
func NewWordExecutor(index port.IndexReader) *WordExecutor {
	return &WordExecutor{index: index}
}

// Query returns the postings of word per file. Unknown words yield an empty,
// non-nil map.
func (e *WordExecutor) Query(word string) domain.WordPostings {
	postings, ok := e.index.Get(domain.NormalizeTerm(word))
	if !ok || postings == nil {
		return domain.WordPostings{}
	}
	return postings
}
