package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for phrasedex.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Query   QueryConfig   `yaml:"query"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// IndexConfig selects the files to index and sizes the build pipeline.
type IndexConfig struct {
	Includes        []string `yaml:"includes"`
	Excludes        []string `yaml:"excludes"`
	IOWorkers       int      `yaml:"io_workers"`
	ComputeWorkers  int      `yaml:"compute_workers"`
	ChannelCapacity int      `yaml:"channel_capacity"`
	LineChunkSize   int      `yaml:"line_chunk_size"`
}

type QueryConfig struct {
	// WordDistance is the tolerance, in characters, between consecutive
	// phrase terms.
	WordDistance int `yaml:"word_distance"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

type MetricsConfig struct {
	// Output, when set, receives the collected metrics in Prometheus text
	// format after each command.
	Output string `yaml:"output"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:        []string{"**/*.txt", "**/*.java", "**/*.go", "**/*.md"},
			Excludes:        []string{"**/node_modules/**", "**/vendor/**"},
			IOWorkers:       20,
			ComputeWorkers:  4,
			ChannelCapacity: 256,
			LineChunkSize:   1000,
		},
		Query: QueryConfig{
			WordDistance: 4,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 128,
			TTL:        5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir looks for phrasedex.yaml, then .phrasedex/config.yaml, in dir.
func LoadFromDir(dir string) (*Config, error) {
	for _, path := range []string{
		filepath.Join(dir, "phrasedex.yaml"),
		filepath.Join(dir, ".phrasedex", "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields from PHRASEDEX_* environment variables.
// Malformed numbers are reported rather than ignored.
func (c *Config) ApplyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"PHRASEDEX_IO_WORKERS", &c.Index.IOWorkers},
		{"PHRASEDEX_COMPUTE_WORKERS", &c.Index.ComputeWorkers},
		{"PHRASEDEX_CHANNEL_CAPACITY", &c.Index.ChannelCapacity},
		{"PHRASEDEX_LINE_CHUNK_SIZE", &c.Index.LineChunkSize},
		{"PHRASEDEX_WORD_DISTANCE", &c.Query.WordDistance},
		{"PHRASEDEX_CACHE_MAX_ENTRIES", &c.Cache.MaxEntries},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, e.key, v)
		}
		*e.dst = n
	}

	if v := os.Getenv("PHRASEDEX_INCLUDES"); v != "" {
		c.Index.Includes = splitList(v)
	}
	if v := os.Getenv("PHRASEDEX_EXCLUDES"); v != "" {
		c.Index.Excludes = splitList(v)
	}
	if v := os.Getenv("PHRASEDEX_CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: PHRASEDEX_CACHE_ENABLED=%q is not a boolean", ErrInvalidConfig, v)
		}
		c.Cache.Enabled = b
	}
	if v := os.Getenv("PHRASEDEX_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: PHRASEDEX_CACHE_TTL=%q is not a duration", ErrInvalidConfig, v)
		}
		c.Cache.TTL = d
	}
	if v := os.Getenv("PHRASEDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PHRASEDEX_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PHRASEDEX_METRICS_OUTPUT"); v != "" {
		c.Metrics.Output = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every out-of-range setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string
	positive := []struct {
		name  string
		value int
	}{
		{"index.io_workers", c.Index.IOWorkers},
		{"index.compute_workers", c.Index.ComputeWorkers},
		{"index.channel_capacity", c.Index.ChannelCapacity},
		{"index.line_chunk_size", c.Index.LineChunkSize},
	}
	for _, p := range positive {
		if p.value < 1 {
			problems = append(problems, fmt.Sprintf("%s must be at least 1, got %d", p.name, p.value))
		}
	}
	if c.Query.WordDistance < 0 {
		problems = append(problems, fmt.Sprintf("query.word_distance must not be negative, got %d", c.Query.WordDistance))
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 1 {
		problems = append(problems, fmt.Sprintf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries))
	}
	for _, pattern := range append(append([]string(nil), c.Index.Includes...), c.Index.Excludes...) {
		if strings.TrimSpace(pattern) == "" {
			problems = append(problems, "index patterns must not be empty")
			break
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
