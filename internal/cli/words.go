package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	wordsTerm string
	wordsJSON bool
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Find every occurrence of a single word",
	Long: `Index the root directory and list every occurrence of one word.
Lookup is case-insensitive.

Examples:
  phrasedex words -w lorem
  phrasedex words -w Lorem --json`,
	RunE: runWords,
}

func init() {
	rootCmd.AddCommand(wordsCmd)
	wordsCmd.Flags().StringVarP(&wordsTerm, "word", "w", "", "word to look up (required)")
	wordsCmd.Flags().BoolVar(&wordsJSON, "json", false, "output as JSON")
	wordsCmd.MarkFlagRequired("word")
}

func runWords(cmd *cobra.Command, args []string) error {
	search, err := buildSearch(cmd, cfg.Query.WordDistance)
	if err != nil {
		return err
	}
	postings := search.Words(wordsTerm)

	out := cmd.OutOrStdout()
	if wordsJSON {
		output, err := json.MarshalIndent(postings, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode postings: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(postings) == 0 {
		fmt.Fprintln(out, "No occurrences found.")
		return nil
	}

	files := make([]string, 0, len(postings))
	for file := range postings {
		files = append(files, file)
	}
	sort.Strings(files)

	total := 0
	for _, file := range files {
		list := postings[file]
		sort.Slice(list, func(i, j int) bool {
			if list[i].Line != list[j].Line {
				return list[i].Line < list[j].Line
			}
			return list[i].Column < list[j].Column
		})
		for _, p := range list {
			fmt.Fprintf(out, "%s:%d:%d\n", file, p.Line, p.Column)
		}
		total += len(list)
	}
	fmt.Fprintf(out, "\n%d occurrences in %d files\n", total, len(files))
	return nil
}
