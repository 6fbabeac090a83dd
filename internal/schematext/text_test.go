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

package schematext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendDocumentation(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	AppendDocumentation(&b, "")
	assert.Empty(t, b.String())

	AppendDocumentation(&b, "first line\n\n  indented")
	assert.Equal(t, "// first line\n//\n//   indented\n", b.String())
}

func TestAppendIndented(t *testing.T) {
	t.Parallel()
	testCases := map[string]struct {
		in, out string
	}{
		"single line":        {in: "int32 x = 1;\n", out: "  int32 x = 1;\n"},
		"no trailing":        {in: "int32 x = 1;", out: "  int32 x = 1;\n"},
		"nested":             {in: "message A {\n  int32 x = 1;\n}\n", out: "  message A {\n    int32 x = 1;\n  }\n"},
		"blank line kept":    {in: "a\n\nb\n", out: "  a\n\n  b\n"},
		"empty becomes line": {in: "", out: "\n"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.out, Indented(tc.in))
		})
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"abc"`, Quote("abc"))
	assert.Equal(t, `"a\"b\\c"`, Quote(`a"b\c`))
	assert.Equal(t, `"line\nnext\ttab"`, Quote("line\nnext\ttab"))
	assert.Equal(t, `"\000\177"`, Quote("\x00\x7f"))
	assert.Equal(t, `"\377"`, Quote("\xff"))
	assert.Equal(t, `"héllo 世界"`, Quote("héllo 世界"))
}
