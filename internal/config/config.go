/*
 *
 * Copyright 2026 Aeron authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package config holds the file-based configuration for the aeronlog
// tools. Values unset in the file keep their defaults.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/paulexy/Aeron/cleaner"
	"github.com/paulexy/Aeron/logbuffer"
	"github.com/paulexy/Aeron/shm"
)

// Duration wraps time.Duration so YAML accepts values like "100ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Cleaner configures the cleaner agent.
type Cleaner struct {
	// Interval is the idle delay between scans.
	Interval Duration `yaml:"interval"`

	// ChunkLength is how many bytes are zeroed per step.
	ChunkLength int `yaml:"chunk_length"`

	// MaxRate caps zeroing bandwidth in bytes per second. Zero means
	// unlimited.
	MaxRate int64 `yaml:"max_rate"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Config is the aeronlog tool configuration.
type Config struct {
	// Dir is the directory holding log backing files.
	Dir string `yaml:"dir"`

	// TermLength is the term length in bytes for newly created logs.
	TermLength int64 `yaml:"term_length"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`

	Cleaner Cleaner `yaml:"cleaner"`
	Metrics Metrics `yaml:"metrics"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Dir:        shm.DefaultDir(),
		TermLength: 4 * 1024 * 1024,
		LogLevel:   "info",
		Cleaner: Cleaner{
			Interval:    Duration(cleaner.DefaultInterval),
			ChunkLength: cleaner.DefaultChunkLength,
		},
		Metrics: Metrics{
			Listen: "localhost:9090",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for values the tools cannot run
// with.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("config: dir must not be empty")
	}
	if c.TermLength <= 0 || c.TermLength > math.MaxInt32 {
		return fmt.Errorf("config: term_length %d out of range", c.TermLength)
	}
	if err := logbuffer.CheckTermLength(int32(c.TermLength)); err != nil {
		return fmt.Errorf("config: term_length: %w", err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if c.Cleaner.Interval <= 0 {
		return fmt.Errorf("config: cleaner.interval must be positive")
	}
	if c.Cleaner.ChunkLength <= 0 {
		return fmt.Errorf("config: cleaner.chunk_length must be positive")
	}
	if c.Cleaner.MaxRate < 0 {
		return fmt.Errorf("config: cleaner.max_rate must not be negative")
	}
	if c.Cleaner.MaxRate > 0 && c.Cleaner.MaxRate < int64(c.Cleaner.ChunkLength) {
		return fmt.Errorf("config: cleaner.max_rate %d below chunk_length %d", c.Cleaner.MaxRate, c.Cleaner.ChunkLength)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("config: metrics.listen must be set when metrics are enabled")
	}
	return nil
}

// Level returns the parsed logrus level. Validate must have passed.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
