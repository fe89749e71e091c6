package relgraph

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Paging method names accepted by Config.Paging.
const (
	PagingLimitOffset = "limit_offset"
	PagingOffsetFetch = "offset_fetch"
	PagingTwoQueries  = "two_queries"
)

// Select strategy names accepted by Config.Strategy.
const (
	StrategyExists     = "exists"
	StrategyIn         = "in"
	StrategyTwoQueries = "two_queries"
)

// DefaultSeparator joins the segments of a context path.
const DefaultSeparator = "_"

// DefaultSequenceFormat names the sequence of a table whose identifier uses
// a sequence without an explicit name.
const DefaultSequenceFormat = "%s_seq"

// Config holds the compiler options. Zero values mean "use the dialect
// default", so the zero Config is valid.
type Config struct {
	// Separator joins the segments of a context path.
	Separator string `yaml:"separator"`
	// MaxIdentifierLength overrides the dialect's identifier length limit.
	MaxIdentifierLength int `yaml:"max_identifier_length"`
	// BatchInserts disables batched inserts when set to false. It cannot
	// enable them on a dialect that does not support them.
	BatchInserts *bool `yaml:"batch_inserts"`
	// MaxParameters overrides the maximum number of parameters per statement.
	MaxParameters int `yaml:"max_parameters"`
	// SequenceFormat is a fmt format receiving the table name.
	SequenceFormat string `yaml:"sequence_format"`
	// Paging overrides the dialect's paging method.
	Paging string `yaml:"paging"`
	// Strategy overrides the dialect's default select strategy.
	Strategy string `yaml:"strategy"`
	// LogSQL logs every statement before it is executed.
	LogSQL bool `yaml:"log_sql"`
}

// ParseConfig parses a YAML document into a Config.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("relgraph: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relgraph: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate reports invalid option values.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Separator, ".\"`'[] ") {
		return fmt.Errorf("relgraph: invalid separator %q", c.Separator)
	}
	if c.MaxIdentifierLength < 0 || c.MaxIdentifierLength > 0 && c.MaxIdentifierLength < 12 {
		return fmt.Errorf("relgraph: max_identifier_length %d is too small", c.MaxIdentifierLength)
	}
	if c.MaxParameters < 0 {
		return fmt.Errorf("relgraph: negative max_parameters %d", c.MaxParameters)
	}
	if c.SequenceFormat != "" && strings.Count(c.SequenceFormat, "%s") != 1 {
		return fmt.Errorf("relgraph: sequence_format %q must contain exactly one %%s", c.SequenceFormat)
	}
	switch c.Paging {
	case "", PagingLimitOffset, PagingOffsetFetch, PagingTwoQueries:
	default:
		return fmt.Errorf("relgraph: unknown paging method %q", c.Paging)
	}
	switch c.Strategy {
	case "", StrategyExists, StrategyIn, StrategyTwoQueries:
	default:
		return fmt.Errorf("relgraph: unknown select strategy %q", c.Strategy)
	}
	return nil
}

// PathSeparator returns the configured separator or DefaultSeparator.
func (c *Config) PathSeparator() string {
	if c == nil || c.Separator == "" {
		return DefaultSeparator
	}
	return c.Separator
}

// SequenceName returns the default sequence name for table.
func (c *Config) SequenceName(table string) string {
	format := DefaultSequenceFormat
	if c != nil && c.SequenceFormat != "" {
		format = c.SequenceFormat
	}
	return fmt.Sprintf(format, table)
}
