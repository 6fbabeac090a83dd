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
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bufbuild/protoschema/internal/corpora"
)

// goldenTest is a test case in testdata/golden. The schema it loads
// is compared to the ".schema" file, and the load error to ".stderr".
type goldenTest struct {
	Files []goldenFile `yaml:"files"`
	Roots []string     `yaml:"roots"`
}

type goldenFile struct {
	Path string `yaml:"path"`
	Text string `yaml:"text"`
}

func TestGolden(t *testing.T) {
	t.Parallel()
	corpora.Corpus{
		Root:       "testdata/golden",
		Refresh:    "PROTOSCHEMA_REFRESH",
		Extensions: []string{"yaml"},
		Outputs: []corpora.Output{
			{Extension: "schema"},
			{Extension: "stderr"},
		},
		Test: func(t *testing.T, path, text string) []string {
			var test goldenTest
			require.NoError(t, yaml.Unmarshal([]byte(text), &test))
			l := NewLoader()
			l.Roots = test.Roots
			for _, file := range test.Files {
				require.NoError(t, l.Register(file.Path, file.Text))
			}
			schema, err := l.Load(context.Background())
			if err != nil {
				return []string{"", err.Error() + "\n"}
			}
			return []string{schema.Serialize(), ""}
		},
	}.Run(t)
}
