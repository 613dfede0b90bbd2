package port

import "phrasedex/internal/domain"

// Searcher answers a text query with per-file phrase matches.
type Searcher interface {
	Query(text string) []domain.Result
}
