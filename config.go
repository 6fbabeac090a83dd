// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protoschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config holds loader settings, usually read from a YAML file:
//
//	roots:
//	  - squareup/**/*.proto
//	max_parallelism: 4
//	standard_imports: false
//	warn_unused_imports: true
type Config struct {
	// Roots are doublestar patterns selecting the root files.
	Roots          []string `yaml:"roots"`
	MaxParallelism int      `yaml:"max_parallelism"`
	// StandardImports makes the files included with protoc available as
	// imports. It defaults to true.
	StandardImports   *bool `yaml:"standard_imports"`
	WarnUnusedImports bool  `yaml:"warn_unused_imports"`
}

// ParseConfig parses a YAML config. Unknown keys are rejected. Empty
// input yields the zero Config.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// LoadConfig reads and parses the config file at path in fsys.
func LoadConfig(fsys afero.Fs, path string) (Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Config{}, err
	}
	config, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Validate checks that every root is a valid pattern and that the
// parallelism is not negative.
func (c Config) Validate() error {
	for _, pattern := range c.Roots {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid root %q: %w", pattern, doublestar.ErrBadPattern)
		}
	}
	if c.MaxParallelism < 0 {
		return fmt.Errorf("invalid max_parallelism %d: must not be negative", c.MaxParallelism)
	}
	return nil
}

// Apply copies the settings of c to l.
func (c Config) Apply(l *Loader) {
	l.Roots = append([]string(nil), c.Roots...)
	l.MaxParallelism = c.MaxParallelism
	l.NoStandardImports = c.StandardImports != nil && !*c.StandardImports
	l.WarnUnusedImports = c.WarnUnusedImports
}
