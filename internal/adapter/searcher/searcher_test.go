package searcher

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasedex/internal/adapter/analyzer"
	"phrasedex/internal/adapter/fs"
	"phrasedex/internal/adapter/index"
	"phrasedex/internal/domain"
)

type fixture struct {
	idx    *index.InvertedIndex
	words  *WordExecutor
	phrase *PhraseExecutor
	exact  *ExactExecutor
	dir    string
}

func newFixture(t *testing.T, distance int, files map[string]string) *fixture {
	t.Helper()
	tok := analyzer.NewTokenizer()
	idx := index.NewInvertedIndex()
	dir := t.TempDir()

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		for i, text := range strings.Split(content, "\n") {
			for _, w := range analyzer.LineToWords(tok, domain.FileLine{Text: text, File: path, Line: i + 1}) {
				idx.Put(w)
			}
		}
	}

	words := NewWordExecutor(idx)
	phrase, err := NewPhraseExecutor(words, tok, distance)
	require.NoError(t, err)

	return &fixture{
		idx:    idx,
		words:  words,
		phrase: phrase,
		exact:  NewExactExecutor(phrase, fs.LineReader{}, nil),
		dir:    dir,
	}
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func TestWordExecutor(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"a.txt": "the cat sat\non the cat"})

	postings := f.words.Query("  CAT ")
	assert.ElementsMatch(t, []domain.Posting{{Line: 1, Column: 5}, {Line: 2, Column: 8}}, postings[f.path("a.txt")])

	unknown := f.words.Query("dog")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
}

func TestPhraseAdjacentTerms(t *testing.T) {
	f := newFixture(t, 0, map[string]string{"fox.txt": "quick brown fox"})

	results := f.phrase.Query("quick brown")
	require.Len(t, results, 1)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, []domain.TermPosting{
		{Term: "quick", Line: 1, Column: 1},
		{Term: "brown", Line: 1, Column: 7},
	}, results[0].Matches[0].Terms)
}

func TestPhraseSuccessorMustBeNextTerm(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"fox.txt": "quick quick fox"})

	// the first quick is followed by another quick, so only the second chains
	results := f.phrase.Query("quick fox")
	require.Len(t, results, 1)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, 7, results[0].Matches[0].Terms[0].Column)
}

func TestPhraseOrderMatters(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"fox.txt": "quick brown fox"})

	assert.Empty(t, f.phrase.Query("brown quick"))
	assert.Empty(t, f.phrase.Query("fox quick"))
}

func TestPhraseMultiLine(t *testing.T) {
	f := newFixture(t, 4, map[string]string{
		"lorem.txt": "Nulla facilisi hendrerit ante lectus sollicitudin.\n" +
			"Donec efficitur hendrerit\n" +
			"ante lectus sollicitudin",
	})

	results := f.phrase.Query("hendrerit ante lectus")
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 2)

	spanning := results[0].Matches[1].Terms
	assert.Equal(t, 2, spanning[0].Line)
	assert.Equal(t, 3, spanning[1].Line)
}

func TestPhraseTwoLinesApartNeverMatches(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"gap.txt": "alpha\n\nbeta"})

	assert.Empty(t, f.phrase.Query("alpha beta"))
	assert.Empty(t, f.phrase.QueryWithDistance("alpha beta", math.MaxInt-1))
}

func TestPhrasePunctuationBetweenTerms(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"p.txt": "exact match,. please"})

	results := f.phrase.Query("exact match please")
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 1)
}

func TestPhraseApostrophe(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"bat.txt": "Who are you? I'm Batman."})

	results := f.phrase.Query("I'm Batman")
	require.Len(t, results, 1)
	assert.Equal(t, []string{"i", "m", "batman"}, terms(results[0].Matches[0]))
}

func TestPhraseRepeatedOccurrences(t *testing.T) {
	f := newFixture(t, 4, map[string]string{
		"a.txt": "to be or not to be",
		"b.txt": "be to",
		"c.txt": "nothing here",
	})

	results := f.phrase.Query("to be")
	require.Len(t, results, 1)
	assert.Equal(t, f.path("a.txt"), results[0].File)
	assert.Len(t, results[0].Matches, 2)
}

func TestPhraseCandidateWithoutMatchIsDropped(t *testing.T) {
	f := newFixture(t, 4, map[string]string{
		"a.txt": "brown dog and a quick fox",
		"b.txt": "the quick brown dog",
	})

	results := f.phrase.Query("quick brown")
	require.Len(t, results, 1)
	assert.Equal(t, f.path("b.txt"), results[0].File)
}

func TestPhraseResultsSortedByFile(t *testing.T) {
	f := newFixture(t, 4, map[string]string{
		"c.txt": "lorem ipsum",
		"a.txt": "lorem ipsum",
		"b.txt": "lorem ipsum",
	})

	results := f.phrase.Query("Lorem Ipsum")
	require.Len(t, results, 3)
	assert.Equal(t, f.path("a.txt"), results[0].File)
	assert.Equal(t, f.path("b.txt"), results[1].File)
	assert.Equal(t, f.path("c.txt"), results[2].File)
}

func TestPhraseSingleTerm(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"a.txt": "cat cat\ncat"})

	results := f.phrase.Query("cat")
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 3)
}

func TestPhraseEmptyQuery(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"a.txt": "anything"})

	for _, q := range []string{"", "   ", ",.!", "'"} {
		results := f.phrase.Query(q)
		assert.NotNil(t, results, q)
		assert.Empty(t, results, q)
	}
}

func TestPhraseUnknownTerm(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"a.txt": "quick brown fox"})

	assert.Empty(t, f.phrase.Query("quick zebra"))
	assert.Empty(t, f.phrase.Query("zebra quick"))
}

func TestNegativeDistance(t *testing.T) {
	_, err := NewPhraseExecutor(NewWordExecutor(index.NewInvertedIndex()), analyzer.NewTokenizer(), -1)
	assert.Error(t, err)
}

func TestWordDistance(t *testing.T) {
	quick := domain.TermPosting{Term: "quick", Line: 1, Column: 1}

	assert.Equal(t, -1, wordDistance(quick, domain.TermPosting{Term: "brown", Line: 1, Column: 7}))
	assert.Equal(t, -3, wordDistance(quick, domain.TermPosting{Term: "brown", Line: 2, Column: 3}))
	assert.Equal(t, math.MaxInt, wordDistance(quick, domain.TermPosting{Term: "brown", Line: 3, Column: 1}))
}

func TestOrderedPostingsCollapseEqualPositions(t *testing.T) {
	partial := map[string]domain.WordPostings{
		"first":  {"f": {{Line: 1, Column: 1}, {Line: 2, Column: 4}}},
		"second": {"f": {{Line: 1, Column: 1}, {Line: 1, Column: 9}}},
	}

	ordered := orderedPostings([]string{"first", "second"}, partial, "f")
	assert.Equal(t, []domain.TermPosting{
		{Term: "first", Line: 1, Column: 1},
		{Term: "second", Line: 1, Column: 9},
		{Term: "first", Line: 2, Column: 4},
	}, ordered)

	succ, ok := successor(ordered, domain.TermPosting{Line: 1, Column: 9})
	require.True(t, ok)
	assert.Equal(t, "first", succ.Term)

	_, ok = successor(ordered, domain.TermPosting{Line: 2, Column: 4})
	assert.False(t, ok)
}

func TestExactMatchPunctuation(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"exact.txt": "Please give me an exact match,. please"})

	assert.NotEmpty(t, f.phrase.Query("exact match,. please"))
	assert.NotEmpty(t, f.phrase.Query("exact match,.! please"))

	results := f.exact.Query("exact match,. please")
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 1)

	assert.Empty(t, f.exact.Query("exact match,.! please"))
}

func TestExactMatchIsCaseSensitive(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"exact.txt": "an exact match here"})

	assert.NotEmpty(t, f.exact.Query("exact match"))
	assert.Empty(t, f.exact.Query("Exact Match"))
}

func TestExactMatchKeepsOnlyVerifiedMatches(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"mixed.txt": "red, fish\nred fish\nred  fish"})

	assert.Len(t, f.phrase.Query("red fish")[0].Matches, 3)

	results := f.exact.Query("red fish")
	require.Len(t, results, 1)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, 2, results[0].Matches[0].Terms[0].Line)
}

func TestExactMatchRejectsMultiLine(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"split.txt": "hendrerit\nante"})

	require.NotEmpty(t, f.phrase.Query("hendrerit ante"))
	assert.Empty(t, f.exact.Query("hendrerit ante"))
}

func TestExactMatchFileGone(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"gone.txt": "exact match"})
	require.NoError(t, os.Remove(f.path("gone.txt")))

	assert.NotEmpty(t, f.phrase.Query("exact match"))
	assert.Empty(t, f.exact.Query("exact match"))
}

func TestExactMatchTruncatedFile(t *testing.T) {
	f := newFixture(t, 4, map[string]string{"trunc.txt": "first line\nexact match"})
	require.NoError(t, os.WriteFile(f.path("trunc.txt"), []byte("first line\n"), 0644))

	assert.Empty(t, f.exact.Query("exact match"))
}

func terms(m domain.Match) []string {
	out := make([]string, len(m.Terms))
	for i, t := range m.Terms {
		out[i] = t.Term
	}
	return out
}
