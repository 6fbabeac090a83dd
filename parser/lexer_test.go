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

package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lexedToken struct {
	kind tokenKind
	text string
	line int
	col  int
}

func lexAll(t *testing.T, input string) []token {
	t.Helper()
	l, err := newLexer(strings.NewReader(input), "test.proto")
	require.NoError(t, err)
	var toks []token
	for {
		tok, err := l.next()
		require.NoError(t, err)
		if tok.kind == tokenEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexer(t *testing.T) {
	t.Parallel()
	input := "\ufeffsyntax = \"proto3\";\n" +
		"message Foo {\n" +
		"\tint32 x = 0x1F;\n" +
		"  double d = 1.5e3; float f = .5;\n" +
		"  string s = 3 [default = 'a\\tb' \"\\x41\\101\\u00e9\"];\n" +
		"}\n"
	expected := []lexedToken{
		{tokenIdent, "syntax", 1, 1},
		{tokenSymbol, "=", 1, 8},
		{tokenString, "proto3", 1, 10},
		{tokenSymbol, ";", 1, 18},
		{tokenIdent, "message", 2, 1},
		{tokenIdent, "Foo", 2, 9},
		{tokenSymbol, "{", 2, 13},
		{tokenIdent, "int32", 3, 9},
		{tokenIdent, "x", 3, 15},
		{tokenSymbol, "=", 3, 17},
		{tokenInt, "0x1F", 3, 19},
		{tokenSymbol, ";", 3, 23},
		{tokenIdent, "double", 4, 3},
		{tokenIdent, "d", 4, 10},
		{tokenSymbol, "=", 4, 12},
		{tokenFloat, "1.5e3", 4, 14},
		{tokenSymbol, ";", 4, 19},
		{tokenIdent, "float", 4, 21},
		{tokenIdent, "f", 4, 27},
		{tokenSymbol, "=", 4, 29},
		{tokenFloat, ".5", 4, 31},
		{tokenSymbol, ";", 4, 33},
		{tokenIdent, "string", 5, 3},
		{tokenIdent, "s", 5, 10},
		{tokenSymbol, "=", 5, 12},
		{tokenInt, "3", 5, 14},
		{tokenSymbol, "[", 5, 16},
		{tokenIdent, "default", 5, 17},
		{tokenSymbol, "=", 5, 25},
		{tokenString, "a\tb", 5, 27},
		{tokenString, "AAé", 5, 34},
		{tokenSymbol, "]", 5, 50},
		{tokenSymbol, ";", 5, 51},
		{tokenSymbol, "}", 6, 1},
	}
	toks := lexAll(t, input)
	actual := make([]lexedToken, len(toks))
	for i, tok := range toks {
		actual[i] = lexedToken{tok.kind, tok.text, tok.pos.Line, tok.pos.Col}
	}
	assert.Equal(t, expected, actual)
}

func TestLexerDocComments(t *testing.T) {
	t.Parallel()
	input := `// Leading one.
// Leading two.
message A {} // trailing

// detached

message B {}
/* block
 * comment */
message C {}
/**
 * Javadoc style.
 *
 * Second paragraph.
 */
message D {} /* trailing block */
message E {}
`
	docs := map[string]string{}
	toks := lexAll(t, input)
	for i, tok := range toks {
		if tok.is(tokenIdent, "message") {
			docs[toks[i+1].text] = tok.doc
		} else if tok.kind != tokenIdent || i == 0 || !toks[i-1].is(tokenIdent, "message") {
			assert.Empty(t, tok.doc, "token %q at %v", tok.text, tok.pos)
		}
	}
	assert.Equal(t, map[string]string{
		"A": "Leading one.\nLeading two.",
		"B": "",
		"C": "block\ncomment",
		"D": "Javadoc style.\n\nSecond paragraph.",
		"E": "",
	}, docs)
}

func TestClassifyNumber(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		text   string
		kind   tokenKind
		errMsg string
	}{
		{text: "123", kind: tokenInt},
		{text: "0", kind: tokenInt},
		{text: "0755", kind: tokenInt},
		{text: "0X1f", kind: tokenInt},
		{text: "1.5e3", kind: tokenFloat},
		{text: "1e-10", kind: tokenFloat},
		{text: "99999999999999999999", kind: tokenFloat},
		{text: "1_000", errMsg: "invalid syntax in numeric value: 1_000"},
		{text: "08", errMsg: "invalid syntax in integer value: 08"},
		{text: "0xZZ", errMsg: "invalid syntax in hexadecimal integer value: ZZ"},
		{text: "1.2.3", errMsg: "invalid syntax in float value: 1.2.3"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			kind, err := classifyNumber(tc.text)
			if tc.errMsg != "" {
				assert.EqualError(t, err, tc.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestLexerErrors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		str    string
		errMsg string
	}{
		{str: `0xffffffffffffffffffff`, errMsg: "value out of range"},
		{str: `"foobar`, errMsg: "unexpected EOF"},
		{str: `"foobar\J"`, errMsg: "invalid escape sequence"},
		{str: `"foobar\xgfoo"`, errMsg: "invalid hex escape"},
		{str: `"foobar\u09gafoo"`, errMsg: "invalid unicode escape"},
		{str: `"foobar\U0010005zfoo"`, errMsg: "invalid unicode escape"},
		{str: `"foobar\U00110000foo"`, errMsg: "unicode escape is out of range"},
		{str: "'foobar\nbaz'", errMsg: "encountered end-of-line"},
		{str: "'foobar\000baz'", errMsg: "null character ('\\0') not allowed"},
		{str: `1.543g12`, errMsg: "invalid syntax"},
		{str: `0.1234.5678.`, errMsg: "invalid syntax"},
		{str: `0x987.345aaf`, errMsg: "invalid syntax"},
		{str: `0.987e34e-20`, errMsg: "invalid syntax"},
		{str: `.987to123`, errMsg: "invalid syntax"},
		{str: `/* foobar`, errMsg: "block comment never terminates"},
		{str: "é", errMsg: "invalid character"},
	}
	for i, tc := range testCases {
		l, err := newLexer(strings.NewReader(tc.str), "test.proto")
		require.NoError(t, err)
		_, err = l.next()
		var lexErr *lexError
		if assert.ErrorAs(t, err, &lexErr, "case %d", i) {
			assert.Contains(t, lexErr.Error(), tc.errMsg, "case %d", i)
			assert.Equal(t, 1, lexErr.pos.Line, "case %d", i)
			assert.Equal(t, 1, lexErr.pos.Col, "case %d", i)
		}
	}
}
