package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasedex/config"
	"phrasedex/internal/domain"
	"phrasedex/internal/usecase"
)

// resetFlags restores every flag to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--no-progress"))
	err := rootCmd.Execute()
	return out.String(), err
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"lorem.txt":          "Lorem ipsum dolor sit amet,\nhendrerit ante lectus.\nexact match,. please",
		"sub/notes.md":       "lorem again",
		"skip.bin":           "lorem",
		".hidden/secret.txt": "lorem",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestFilesCommand(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "files", "--dir", root)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "lorem.txt"))
	assert.Contains(t, out, filepath.Join(root, "sub", "notes.md"))
	assert.NotContains(t, out, "skip.bin")
	assert.NotContains(t, out, "secret.txt")
	assert.Contains(t, out, "2 files")
}

func TestWordsCommand(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "words", "--dir", root, "-w", "LOREM")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "lorem.txt")+":1:1")
	assert.Contains(t, out, filepath.Join(root, "sub", "notes.md")+":1:1")
	assert.Contains(t, out, "2 occurrences in 2 files")
}

func TestWordsCommandJSON(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "words", "--dir", root, "-w", "amet", "--json")
	require.NoError(t, err)

	var postings domain.WordPostings
	require.NoError(t, json.Unmarshal([]byte(out), &postings))
	assert.Equal(t, []domain.Posting{{Line: 1, Column: 23}}, postings[filepath.Join(root, "lorem.txt")])
}

func TestSearchCommand(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "search", "--dir", root, "-q", "amet hendrerit ante")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "lorem.txt")+":1:23")
	assert.Contains(t, out, "1 matches in 1 files")
}

func TestSearchCommandExact(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "search", "--dir", root, "-q", "exact match,.! please")
	require.NoError(t, err)
	assert.Contains(t, out, "1 matches")

	out, err = execute(t, "search", "--dir", root, "-q", "exact match,.! please", "--exact")
	require.NoError(t, err)
	assert.Contains(t, out, "No matches found.")
}

func TestSearchCommandJSON(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "search", "--dir", root, "-q", "lorem ipsum", "--json", "--io-workers", "1", "--chunk-lines", "1")
	require.NoError(t, err)

	var results []domain.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, []string{"lorem", "ipsum"}, []string{results[0].Matches[0].Terms[0].Term, results[0].Matches[0].Terms[1].Term})
}

func TestSearchCommandRejectsInvalidFlags(t *testing.T) {
	root := fixture(t)

	_, err := execute(t, "search", "--dir", root, "-q", "lorem", "--distance", "-2")
	assert.Error(t, err)

	_, err = execute(t, "search", "--dir", root, "-q", "lorem", "--io-workers", "0")
	assert.Error(t, err)

	_, err = execute(t, "search", "--dir", root)
	assert.Error(t, err)
}

func TestFilesCommandExtensions(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "files", "--dir", root, "--ext", ".bin, .md")
	require.NoError(t, err)
	assert.Contains(t, out, "skip.bin")
	assert.Contains(t, out, "notes.md")
	assert.NotContains(t, out, "lorem.txt")
	assert.Contains(t, out, "2 files")
}

func TestConfigFileIsHonoured(t *testing.T) {
	root := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "phrasedex.yaml"), []byte("index:\n  includes: [\"**/*.md\"]\n"), 0644))

	out, err := execute(t, "files", "--dir", root)
	require.NoError(t, err)
	assert.NotContains(t, out, "lorem.txt")
	assert.Contains(t, out, "notes.md")
}

func TestMetricsOutput(t *testing.T) {
	root := fixture(t)
	path := filepath.Join(t.TempDir(), "metrics.prom")

	_, err := execute(t, "search", "--dir", root, "-q", "lorem", "--metrics-out", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "phrasedex_files_indexed_total 2"), string(data))
	assert.Contains(t, string(data), `phrasedex_queries_total{mode="phrase"} 1`)
}

func TestBuildOptionsFromConfig(t *testing.T) {
	opts := buildOptions(config.DefaultConfig().Index)
	assert.Equal(t, usecase.BuildOptions{IOWorkers: 20, ComputeWorkers: 4, ChannelCapacity: 256, LineChunkSize: 1000}, opts)
	assert.NoError(t, opts.Validate())
}
