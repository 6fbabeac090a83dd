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

package linker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/linker"
	"github.com/bufbuild/protoschema/parser"
	"github.com/bufbuild/protoschema/reporter"
)

const symbolsProto = `syntax = "proto2";
package p;
message M {
  optional int32 a = 1;
  oneof o { string s = 2; }
  optional group G = 3 { optional int32 x = 1; }
  enum E { ZERO = 0; }
  extensions 100 to 200;
}
extend M {
  optional int32 ext = 100;
  optional group Extra = 101 { optional int32 y = 1; }
}
service S { rpc R(M) returns (M); }
`

func parseFile(t *testing.T, path, source string) ast.ProtoFile {
	t.Helper()
	file, err := parser.Parse(path, strings.NewReader(source), reporter.NewHandler(nil))
	require.NoError(t, err)
	return file
}

func parseProfile(t *testing.T, path, source string) ast.ProfileFile {
	t.Helper()
	profile, err := parser.ParseProfile(path, strings.NewReader(source), reporter.NewHandler(nil))
	require.NoError(t, err)
	return profile
}

func TestSymbolsImport(t *testing.T) {
	t.Parallel()

	var s linker.Symbols
	h := reporter.NewHandler(nil)
	require.NoError(t, s.Import(parseFile(t, "p.proto", symbolsProto), h))

	type entry struct {
		name string
		kind linker.SymbolKind
	}
	var got []entry
	for _, sym := range s.All() {
		assert.Equal(t, "p.proto", sym.File)
		got = append(got, entry{sym.Name, sym.Kind})
	}
	assert.Equal(t, []entry{
		{"p.Extra", linker.KindMessage},
		{"p.Extra.y", linker.KindField},
		{"p.M", linker.KindMessage},
		{"p.M.E", linker.KindEnum},
		{"p.M.G", linker.KindMessage},
		{"p.M.G.x", linker.KindField},
		{"p.M.ZERO", linker.KindEnumValue},
		{"p.M.a", linker.KindField},
		{"p.M.g", linker.KindField},
		{"p.M.o", linker.KindOneOf},
		{"p.M.s", linker.KindField},
		{"p.S", linker.KindService},
		{"p.S.R", linker.KindRPC},
		{"p.ext", linker.KindExtension},
		{"p.extra", linker.KindExtension},
	}, got)

	var types []string
	for _, sym := range s.Types() {
		types = append(types, sym.Name)
	}
	assert.Equal(t, []string{"p.Extra", "p.M", "p.M.E", "p.M.G"}, types)

	var nested []string
	for _, sym := range s.Descendants("p.M") {
		nested = append(nested, sym.Name)
	}
	assert.Equal(t, []string{"p.M.E", "p.M.G", "p.M.G.x", "p.M.ZERO", "p.M.a", "p.M.g", "p.M.o", "p.M.s"}, nested)
	assert.Len(t, s.Descendants(""), 15)
	assert.Empty(t, s.Descendants("p.M.a"))

	sym, ok := s.Lookup(".p.M")
	require.True(t, ok)
	assert.Equal(t, "p.proto:3:1", sym.Pos.String())
	msg, ok := sym.Element.(ast.Message)
	require.True(t, ok)
	assert.Equal(t, "M", msg.Name)

	sym, ok = s.Lookup("p.M.g")
	require.True(t, ok)
	group, ok := sym.Element.(ast.Group)
	require.True(t, ok)
	assert.Equal(t, "G", group.Name)

	assert.True(t, s.IsPackage("p"))
	assert.False(t, s.IsPackage("p.M"))
	assert.Equal(t, []string{"p.proto"}, s.Files())

	// importing the same path again is a no-op
	require.NoError(t, s.Import(parseFile(t, "p.proto", symbolsProto), h))
	assert.Len(t, s.All(), 15)
}

func TestSymbolsDuplicates(t *testing.T) {
	t.Parallel()

	var s linker.Symbols
	var errs []error
	h := reporter.NewHandler(reporter.NewReporter(func(err reporter.ErrorWithPos) error {
		errs = append(errs, err)
		return nil
	}, nil))
	require.NoError(t, s.Import(parseFile(t, "a.proto", "syntax = \"proto3\";\npackage p;\nmessage M {}\nenum E { A = 0; }\n"), h))
	require.NoError(t, s.Import(parseFile(t, "b.proto", "syntax = \"proto3\";\npackage p;\nmessage M {}\nmessage A {}\nmessage N {}\n"), h))
	require.NoError(t, s.Import(parseFile(t, "c.proto", "syntax = \"proto3\";\nmessage p {}\n"), h))

	require.Len(t, errs, 3)
	var dupErr *reporter.DuplicateTypeError
	require.ErrorAs(t, errs[0], &dupErr)
	assert.Equal(t, "p.M", dupErr.Name)
	assert.Equal(t, `b.proto:3:1: symbol "p.M" already defined at a.proto:3:1`, errs[0].Error())
	assert.Equal(t, `b.proto:4:1: symbol "p.A" already defined at a.proto:4:10`, errs[1].Error())
	assert.Equal(t, `c.proto:2:1: symbol "p" already defined at a.proto`, errs[2].Error())
	assert.ErrorIs(t, errs[2], reporter.ErrDuplicateSymbol)

	// the first declaration wins; others are still added
	sym, ok := s.Lookup("p.M")
	require.True(t, ok)
	assert.Equal(t, "a.proto", sym.File)
	sym, ok = s.Lookup("p.N")
	require.True(t, ok)
	assert.Equal(t, "b.proto", sym.File)
	assert.ErrorIs(t, h.Error(), reporter.ErrInvalidSource)
}

func TestSymbolsResolve(t *testing.T) {
	t.Parallel()

	var s linker.Symbols
	require.NoError(t, s.Import(parseFile(t, "p.proto", symbolsProto), reporter.NewHandler(nil)))
	require.NoError(t, s.Import(parseFile(t, "q.proto", `syntax = "proto3";
package q;
message Outer {
  int32 M = 1;
  message Inner {}
}
`), reporter.NewHandler(nil)))

	testCases := map[string]struct {
		scope, name string
		typesOnly   bool
		found       string
		resolved    string
	}{
		"fully-qualified":       {scope: "q", name: ".p.M", found: "p.M"},
		"fully-qualified miss":  {scope: "q", name: ".M", resolved: "M"},
		"sibling":               {scope: "p.M", name: "G", found: "p.M.G"},
		"enclosing scope":       {scope: "p.M.G", name: "E", found: "p.M.E"},
		"package":               {scope: "", name: "p.M", found: "p.M"},
		"compound":              {scope: "p.S", name: "M.E", found: "p.M.E"},
		"compound miss":         {scope: "p.S", name: "M.Nope", resolved: "p.M.Nope"},
		"non-type":              {scope: "p.M.G", name: "a", found: "p.M.a"},
		"non-type skipped":      {scope: "p.M.G", name: "a", typesOnly: true},
		"field shadows nothing": {scope: "q.Outer.Inner", name: "M", typesOnly: true},
		"field is found":        {scope: "q.Outer.Inner", name: "M", found: "q.Outer.M"},
		"package not a symbol":  {scope: "", name: "q"},
		"unknown":               {scope: "p.M", name: "Nope"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			sym, resolved, ok := s.Resolve(tc.scope, tc.name, tc.typesOnly)
			if tc.found == "" {
				assert.False(t, ok)
				assert.Equal(t, tc.resolved, resolved)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.found, sym.Name)
			assert.Equal(t, tc.found, resolved)
		})
	}
}

func TestSymbolKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "enum value", linker.KindEnumValue.String())
	assert.True(t, linker.KindEnum.IsType())
	assert.False(t, linker.KindExtension.IsType())
}
