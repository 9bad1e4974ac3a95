// Package config loads jmm.yaml, the per-project compiler settings.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "jmm.yaml"

// Config holds the settings shared by jmmc and jmm. Command-line flags
// override the values read from the file.
type Config struct {
	Output           string    `yaml:"output"`
	WarningsAsErrors bool      `yaml:"warnings_as_errors"`
	Suppress         []string  `yaml:"suppress,omitempty"`
	Trace            bool      `yaml:"trace"`
	SourcePath       []string  `yaml:"source_path,omitempty"`
	Run              RunConfig `yaml:"run"`

	filters []*regexp2.Regexp
}

// RunConfig controls program execution.
type RunConfig struct {
	Main      string `yaml:"main"`
	StepLimit int    `yaml:"step_limit"`
	MaxDepth  int    `yaml:"max_depth"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Output: "build",
		Run: RunConfig{
			Main:     "Main",
			MaxDepth: 1024,
		},
	}
}

// Parse reads a configuration document. Keys absent from the document
// keep their defaults; unknown keys are errors.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// compile validates the settings and prepares the warning filters.
func (c *Config) compile() error {
	if c.Run.StepLimit < 0 {
		return fmt.Errorf("config: run.step_limit must not be negative")
	}
	if c.Run.MaxDepth < 0 {
		return fmt.Errorf("config: run.max_depth must not be negative")
	}
	c.filters = c.filters[:0]
	for _, pattern := range c.Suppress {
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return fmt.Errorf("config: suppress pattern %q: %w", pattern, err)
		}
		re.MatchTimeout = 100 * time.Millisecond
		c.filters = append(c.filters, re)
	}
	return nil
}

// AddSuppress appends a warning filter pattern.
func (c *Config) AddSuppress(pattern string) error {
	c.Suppress = append(c.Suppress, pattern)
	return c.compile()
}

// Suppressed reports whether a warning message matches a suppress
// pattern. A pattern that times out does not match.
func (c *Config) Suppressed(msg string) bool {
	for _, re := range c.filters {
		if ok, err := re.MatchString(msg); err == nil && ok {
			return true
		}
	}
	return false
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
