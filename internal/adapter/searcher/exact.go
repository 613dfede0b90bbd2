package searcher

import (
	"log/slog"
	"strings"

	"phrasedex/internal/domain"
	"phrasedex/internal/port"
)

// ExactExecutor keeps only the phrase matches whose source line contains the
// query verbatim, punctuation and case included. Matches spanning several
// lines are never exact.
type ExactExecutor struct {
	phrase *PhraseExecutor
	lines  port.LineReader
	logger *slog.Logger
}

// NewExactExecutor verifies the matches of phrase against lines read back
// through lines.
func NewExactExecutor(phrase *PhraseExecutor, lines port.LineReader, logger *slog.Logger) *ExactExecutor {
	if logger == nil {
		logger = slog.Default().With("component", "exact-match")
	}
	return &ExactExecutor{
		phrase: phrase,
		lines:  lines,
		logger: logger,
	}
}

// Query returns the phrase matches of text that appear verbatim on a single
// source line. Files that can no longer be read are dropped.
func (e *ExactExecutor) Query(text string) []domain.Result {
	results := e.phrase.Query(text)

	exact := make([]domain.Result, 0, len(results))
	for _, r := range results {
		var kept []domain.Match
		for _, m := range r.Matches {
			if e.isExact(text, r.File, m) {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			exact = append(exact, domain.Result{File: r.File, Matches: kept})
		}
	}
	return exact
}

func (e *ExactExecutor) isExact(text, file string, m domain.Match) bool {
	if len(m.Terms) == 0 {
		return false
	}
	line := m.Terms[0].Line
	for _, t := range m.Terms[1:] {
		if t.Line != line {
			return false
		}
	}

	lines, err := e.lines.ReadLines(file, []int{line})
	if err != nil {
		e.logger.Debug("line re-read failed", "file", file, "line", line, "error", err)
		return false
	}
	actual, ok := lines[line]
	return ok && strings.Contains(actual, text)
}
