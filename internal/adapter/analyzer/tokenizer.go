package analyzer

import (
	"regexp"
	"strings"

	"phrasedex/internal/domain"
	"phrasedex/internal/port"
)

var wordPattern = regexp.MustCompile(`\w+`)

// Tokenizer splits a line into lower-cased \w+ tokens.
type Tokenizer struct {
	pattern *regexp.Regexp
}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{pattern: wordPattern}
}

// Tokenize returns the tokens of text in order. Columns are 1-based byte
// offsets of the token start within text.
func (t *Tokenizer) Tokenize(text string) []domain.Token {
	locs := t.pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	tokens := make([]domain.Token, 0, len(locs))
	for _, loc := range locs {
		tokens = append(tokens, domain.Token{
			Text:   strings.ToLower(text[loc[0]:loc[1]]),
			Column: loc[0] + 1,
		})
	}
	return tokens
}

// Terms returns only the token texts of text.
func Terms(t port.Tokenizer, text string) []string {
	tokens := t.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Text
	}
	return terms
}

// LineToWords converts a file line into the words to insert into the index.
func LineToWords(t port.Tokenizer, line domain.FileLine) []domain.Word {
	tokens := t.Tokenize(line.Text)
	words := make([]domain.Word, len(tokens))
	for i, tok := range tokens {
		words[i] = domain.Word{File: line.File, Line: line.Line, Token: tok}
	}
	return words
}
