package searcher

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"phrasedex/internal/adapter/analyzer"
	"phrasedex/internal/domain"
	"phrasedex/internal/port"
)

// PhraseExecutor finds consecutive occurrences of the query terms. Terms may
// be separated by punctuation and by at most one line break; the allowed
// word distance is fixed at construction.
type PhraseExecutor struct {
	words     *WordExecutor
	tokenizer port.Tokenizer
	distance  int
}

// NewPhraseExecutor returns an executor accepting consecutive terms up to
// distance apart. A negative distance is an error.
func NewPhraseExecutor(words *WordExecutor, tokenizer port.Tokenizer, distance int) (*PhraseExecutor, error) {
	if distance < 0 {
		return nil, fmt.Errorf("word distance must not be negative, got %d", distance)
	}
	return &PhraseExecutor{
		words:     words,
		tokenizer: tokenizer,
		distance:  distance,
	}, nil
}

// Distance returns the configured word distance.
func (e *PhraseExecutor) Distance() int {
	return e.distance
}

// Query runs text at the configured distance.
func (e *PhraseExecutor) Query(text string) []domain.Result {
	return e.QueryWithDistance(text, e.distance)
}

// QueryWithDistance returns, per file, every phrase occurrence of text whose
// consecutive terms are within distance of each other. Results are sorted by
// file path.
func (e *PhraseExecutor) QueryWithDistance(text string, distance int) []domain.Result {
	// apostrophes split contractions into separately indexed words
	terms := analyzer.Terms(e.tokenizer, strings.ReplaceAll(text, "'", " "))
	if len(terms) == 0 {
		return []domain.Result{}
	}

	files, partial := e.narrow(terms)

	results := make([]domain.Result, 0, len(files))
	for _, file := range files {
		matches := reconstruct(terms, partial, file, distance)
		if len(matches) > 0 {
			results = append(results, domain.Result{File: file, Matches: matches})
		}
	}
	return results
}

// narrow returns the files containing every term together with the postings of
// each term restricted to those files.
func (e *PhraseExecutor) narrow(terms []string) ([]string, map[string]domain.WordPostings) {
	partial := make(map[string]domain.WordPostings, len(terms))

	first := e.words.Query(terms[0])
	partial[terms[0]] = first
	candidates := make(map[string]struct{}, len(first))
	for file := range first {
		candidates[file] = struct{}{}
	}

	for _, term := range terms[1:] {
		if len(candidates) == 0 {
			break
		}
		entries := e.words.Query(term)
		filtered := make(domain.WordPostings, len(candidates))
		for file, postings := range entries {
			if _, ok := candidates[file]; ok {
				filtered[file] = postings
			}
		}
		partial[term] = filtered

		for file := range candidates {
			if _, ok := filtered[file]; !ok {
				delete(candidates, file)
			}
		}
	}

	files := make([]string, 0, len(candidates))
	for file := range candidates {
		files = append(files, file)
	}
	sort.Strings(files)
	return files, partial
}

// reconstruct rebuilds the positional order of all query terms in file and
// walks it from every occurrence of the first term.
func reconstruct(terms []string, partial map[string]domain.WordPostings, file string, distance int) []domain.Match {
	ordered := orderedPostings(terms, partial, file)

	starts := termPostings(terms[0], partial[terms[0]][file])
	sort.Slice(starts, func(i, j int) bool { return starts[i].Compare(starts[j]) < 0 })

	var matches []domain.Match
	for _, current := range starts {
		chain := make([]domain.TermPosting, 1, len(terms))
		chain[0] = current

		for _, next := range terms[1:] {
			succ, ok := successor(ordered, current)
			if !ok || succ.Term != next || wordDistance(current, succ) > distance {
				break
			}
			chain = append(chain, succ)
			current = succ
		}

		if len(chain) == len(terms) {
			matches = append(matches, domain.Match{Terms: chain})
		}
	}
	return matches
}

// orderedPostings collects the postings of all terms in file sorted by
// (line, column). Entries at an identical position collapse into the one
// inserted first, terms being inserted in query order.
func orderedPostings(terms []string, partial map[string]domain.WordPostings, file string) []domain.TermPosting {
	var all []domain.TermPosting
	for _, term := range terms {
		all = append(all, termPostings(term, partial[term][file])...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Compare(all[j]) < 0 })

	out := all[:0]
	for _, p := range all {
		if len(out) > 0 && out[len(out)-1].Compare(p) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

func termPostings(term string, postings []domain.Posting) []domain.TermPosting {
	out := make([]domain.TermPosting, len(postings))
	for i, p := range postings {
		out[i] = domain.TermPosting{Term: term, Line: p.Line, Column: p.Column}
	}
	return out
}

// successor returns the smallest entry strictly greater than p.
func successor(ordered []domain.TermPosting, p domain.TermPosting) (domain.TermPosting, bool) {
	i := sort.Search(len(ordered), func(i int) bool { return ordered[i].Compare(p) > 0 })
	if i == len(ordered) {
		return domain.TermPosting{}, false
	}
	return ordered[i], true
}

// wordDistance measures how far next starts relative to the end of current.
// A term on the following line is measured as if both lines were joined.
func wordDistance(current, next domain.TermPosting) int {
	end := current.Column + len(current.Term)
	switch next.Line - current.Line {
	case 0:
		return end - next.Column
	case 1:
		return end - (end + next.Column)
	default:
		return math.MaxInt
	}
}
