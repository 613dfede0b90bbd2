package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"phrasedex/internal/adapter/fs"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files that would be indexed",
	Long: `Walk the root directory with the configured include and exclude patterns
and print every eligible file. Directories starting with a dot are skipped.`,
	Args: cobra.NoArgs,
	RunE: runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) error {
	files, err := fs.CollectFiles(cmd.Context(), GetRootDir(), predicate())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		fmt.Fprintln(out, f)
	}
	fmt.Fprintf(out, "\n%d files\n", len(files))
	return nil
}
