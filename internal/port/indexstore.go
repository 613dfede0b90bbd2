package port

import "phrasedex/internal/domain"

// IndexReader is the read side of an index, used by the query executors.
type IndexReader interface {
	// Get returns a snapshot of the postings for term, false if the term
	// was never inserted.
	Get(term string) (domain.WordPostings, bool)
}

// Index is a word-level inverted index. Implementations must accept
// concurrent Put calls without external locking.
type Index interface {
	IndexReader
	Put(word domain.Word)
}
