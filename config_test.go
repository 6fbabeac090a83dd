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
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()
	config, err := ParseConfig([]byte(`
roots:
  - squareup/**/*.proto
  - google/type/*.proto
max_parallelism: 4
standard_imports: false
warn_unused_imports: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"squareup/**/*.proto", "google/type/*.proto"}, config.Roots)
	assert.Equal(t, 4, config.MaxParallelism)
	require.NotNil(t, config.StandardImports)
	assert.False(t, *config.StandardImports)
	assert.True(t, config.WarnUnusedImports)

	l := NewLoader()
	config.Apply(l)
	assert.Equal(t, config.Roots, l.Roots)
	assert.Equal(t, 4, l.MaxParallelism)
	assert.True(t, l.NoStandardImports)
	assert.True(t, l.WarnUnusedImports)
}

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()
	config, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{}, config)

	l := NewLoader()
	config.Apply(l)
	assert.Empty(t, l.Roots)
	assert.False(t, l.NoStandardImports)
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()
	testCases := map[string]struct {
		source string
		errMsg string
	}{
		"unknown key": {
			source: "rootz: [a.proto]",
			errMsg: "field rootz not found in type protoschema.Config",
		},
		"wrong type": {
			source: "max_parallelism: lots",
			errMsg: "parsing config",
		},
		"bad pattern": {
			source: "roots: ['squareup/[.proto']",
			errMsg: `invalid root "squareup/[.proto"`,
		},
		"negative parallelism": {
			source: "max_parallelism: -1",
			errMsg: "invalid max_parallelism -1: must not be negative",
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig([]byte(tc.source))
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}

	_, err := ParseConfig([]byte("roots: ['squareup/[.proto']"))
	assert.ErrorIs(t, err, doublestar.ErrBadPattern)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "protoschema.yaml", []byte("roots: [a.proto]\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "bad.yaml", []byte("max_parallelism: -2\n"), 0o644))

	config, err := LoadConfig(fsys, "protoschema.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.proto"}, config.Roots)

	_, err = LoadConfig(fsys, "bad.yaml")
	assert.EqualError(t, err, "bad.yaml: invalid max_parallelism -2: must not be negative")

	_, err = LoadConfig(fsys, "missing.yaml")
	assert.Error(t, err)
}
