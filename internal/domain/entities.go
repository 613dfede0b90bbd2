package domain

import (
	"fmt"
	"strings"
)

// Token is a single lower-cased word with its 1-based column in the line.
type Token struct {
	Text   string
	Column int
}

// Word is one token occurrence in a file, the unit stored in the index.
type Word struct {
	File  string
	Line  int
	Token Token
}

// Posting is an occurrence of a term inside a file.
type Posting struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// WordPostings maps a file path to the postings of one term in that file.
type WordPostings map[string][]Posting

// TermPosting is a posting annotated with the term it belongs to.
//
// Ordering and equality only look at (Line, Column). Two entries of different
// terms at the same position compare equal, so when they are collected into an
// ordered set the second one is dropped. The regex tokenizer never produces
// overlapping tokens; a tokenizer that does would make this a real collision.
type TermPosting struct {
	Term   string `json:"term"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Compare orders term postings by line, then column.
func (p TermPosting) Compare(other TermPosting) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

// Match is one phrase occurrence, one entry per query term.
type Match struct {
	Terms []TermPosting `json:"terms"`
}

// Result groups the matches found in one file.
type Result struct {
	File    string  `json:"file"`
	Matches []Match `json:"matches"`
}

// FileLine is a line of text read from a file, numbered from 1.
type FileLine struct {
	Text string
	File string
	Line int
}

// TextChunk is a batch of consecutive lines. The last chunk of a file is empty
// and has Final set.
type TextChunk struct {
	Final bool
	Lines []FileLine
}

// NormalizeTerm canonicalizes a term for both insertion and lookup.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Progress is reported by the indexing pipeline. The set of implementations is
// closed: StartIndexing, IndexingProgressStep and StopIndexing.
type Progress interface {
	progress()
}

// StartIndexing is emitted once before any file is read.
type StartIndexing struct{}

// StopIndexing is emitted once after the last file has been read.
type StopIndexing struct{}

// IndexingProgressStep is emitted once per fully read file.
type IndexingProgressStep struct {
	File       string
	TotalFiles int64
}

func (StartIndexing) progress()        {}
func (StopIndexing) progress()         {}
func (IndexingProgressStep) progress() {}

func (StartIndexing) String() string { return "StartIndexing" }
func (StopIndexing) String() string  { return "StopIndexing" }

func (s IndexingProgressStep) String() string {
	return fmt.Sprintf("IndexingProgressStep(currentFile=%s, totalFiles=%d)", s.File, s.TotalFiles)
}
