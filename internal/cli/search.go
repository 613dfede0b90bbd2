package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"phrasedex/internal/domain"
)

var (
	searchText     string
	searchExact    bool
	searchDistance int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for a phrase",
	Long: `Index the root directory and search for consecutive occurrences of the
query terms. Terms may be separated by punctuation and by a single line break.
With --exact only matches whose line contains the query verbatim are kept.

Examples:
  phrasedex search -q "hendrerit ante lectus"
  phrasedex search -q "exact match,. please" --exact
  phrasedex search -q "lorem ipsum" --distance 0 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "phrase to search for (required)")
	searchCmd.Flags().BoolVar(&searchExact, "exact", false, "keep only verbatim matches")
	searchCmd.Flags().IntVar(&searchDistance, "distance", -1, "word distance tolerance (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	distance := cfg.Query.WordDistance
	if cmd.Flags().Changed("distance") {
		if searchDistance < 0 {
			return fmt.Errorf("distance must not be negative, got %d", searchDistance)
		}
		distance = searchDistance
	}

	search, err := buildSearch(cmd, distance)
	if err != nil {
		return err
	}

	var results []domain.Result
	if searchExact {
		results = search.Exact(searchText)
	} else {
		results = search.Phrase(searchText)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No matches found.")
		return nil
	}
	matches := 0
	for _, r := range results {
		for _, m := range r.Matches {
			first := m.Terms[0]
			fmt.Fprintf(out, "%s:%d:%d\n", r.File, first.Line, first.Column)
			matches++
		}
	}
	fmt.Fprintf(out, "\n%d matches in %d files\n", matches, len(results))
	return nil
}
