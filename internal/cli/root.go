package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"phrasedex/config"
	"phrasedex/internal/logger"
	"phrasedex/internal/metrics"
)

var (
	cfgFile    string
	cfg        *config.Config
	rootDir    string
	metricsOut string
	registry   *prometheus.Registry
	appMetrics *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "phrasedex",
	Short: "Phrasedex - In-memory word and phrase search over local files",
	Long: `Phrasedex builds an in-memory inverted index of the text files below a
directory with a concurrent pipeline, then answers single word, phrase and
exact match queries against it.

Example usage:
  phrasedex files                          # List the files that would be indexed
  phrasedex words -w lorem                 # Find every occurrence of a word
  phrasedex search -q "hendrerit ante"     # Phrase search, tolerant to punctuation
  phrasedex search -q "a, b" --exact       # Only verbatim matches`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}
		rootDir, err = filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("invalid root directory: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
		if err := applyPipelineFlags(cmd, cfg); err != nil {
			return err
		}
		if metricsOut != "" {
			cfg.Metrics.Output = metricsOut
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
		registry = prometheus.NewRegistry()
		appMetrics = metrics.New(registry)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil || cfg.Metrics.Output == "" {
			return nil
		}
		f, err := os.Create(cfg.Metrics.Output)
		if err != nil {
			return fmt.Errorf("failed to create metrics output: %w", err)
		}
		defer f.Close()
		return metrics.WriteText(f, registry)
	},
}

// Execute runs the root command under a context cancelled by SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./phrasedex.yaml)")
	flags.StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	flags.StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics to this file after the command")
	flags.Int("io-workers", 0, "file reading workers (default from config)")
	flags.Int("compute-workers", 0, "tokenizing workers (default from config)")
	flags.Int("channel-capacity", 0, "max chunks in flight between readers and tokenizers (default from config)")
	flags.Int("chunk-lines", 0, "max lines per read batch (default from config)")
}

// applyPipelineFlags overrides the pipeline sizing with flags set explicitly
// on the command line.
func applyPipelineFlags(cmd *cobra.Command, cfg *config.Config) error {
	overrides := []struct {
		name string
		dst  *int
	}{
		{"io-workers", &cfg.Index.IOWorkers},
		{"compute-workers", &cfg.Index.ComputeWorkers},
		{"channel-capacity", &cfg.Index.ChannelCapacity},
		{"chunk-lines", &cfg.Index.LineChunkSize},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.name) {
			continue
		}
		v, err := cmd.Flags().GetInt(o.name)
		if err != nil {
			return err
		}
		*o.dst = v
	}
	return nil
}

func GetRootDir() string {
	return rootDir
}
