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
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/reporter"
)

var ignorePositions = []cmp.Option{
	cmpopts.IgnoreTypes(ast.SourcePos{}),
	cmpopts.EquateEmpty(),
}

func parseForTest(t *testing.T, filename, source string) ast.ProtoFile {
	t.Helper()
	file, err := Parse(filename, strings.NewReader(source), reporter.NewHandler(nil))
	require.NoError(t, err)
	return file
}

// requireSameText fails with a unified diff when the texts differ.
func requireSameText(t *testing.T, expected, actual string) {
	t.Helper()
	if expected == actual {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	require.NoError(t, err)
	t.Fatalf("texts differ:\n%s", diff)
}

func TestEmptyParse(t *testing.T) {
	t.Parallel()
	var warnings []reporter.ErrorWithPos
	rep := reporter.NewReporter(nil, func(err reporter.ErrorWithPos) {
		warnings = append(warnings, err)
	})
	file, err := Parse("foo.proto", strings.NewReader(""), reporter.NewHandler(rep))
	require.NoError(t, err)
	assert.Equal(t, "foo.proto", file.Path)
	assert.Empty(t, file.Types)
	assert.Empty(t, file.Services)
	assert.Empty(t, file.Serialize())
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrNoSyntax)
	assert.Equal(t, "foo.proto", warnings[0].GetPosition().Filename)
}

func TestJunkParse(t *testing.T) {
	t.Parallel()
	// inputs that must fail without panicking
	inputs := map[string]string{
		"quotes":        `'';`,
		"dot":           `.`,
		"open":          `message M {`,
		"option":        `option = 1;`,
		"literal":       `option (a) = { b: `,
		"rpc":           `service S { rpc Foo( }`,
		"map":           `message M { map<string int32> m = 1; }`,
		"reserved":      `message M { reserved 1 to; }`,
		"enum value":    `enum E { A; }`,
		"number":        `message M { optional int32 a = 1.5; }`,
		"bad character": "message M { optional int32 a = 1; } \x00",
	}
	for name, input := range inputs {
		_, err := Parse(name+".proto", strings.NewReader(input), reporter.NewHandler(nil))
		assert.Error(t, err, "junk input %q should have returned error", name)
		var parseErr *reporter.ParseError
		assert.ErrorAs(t, err, &parseErr, "junk input %q", name)
	}
}

func TestParseOneOfMessage(t *testing.T) {
	t.Parallel()
	file := parseForTest(t, "a.proto", `message A { oneof choice { int32 x = 1; string y = 2; } }`)
	expected := ast.ProtoFile{
		Path: "a.proto",
		Types: []ast.TypeElement{
			ast.Message{
				Name: "A",
				OneOfs: []ast.OneOf{{
					Name: "choice",
					Fields: []ast.Field{
						{Type: "int32", Name: "x", Tag: 1},
						{Type: "string", Name: "y", Tag: 2},
					},
				}},
			},
		},
	}
	if diff := cmp.Diff(expected, file, ignorePositions...); diff != "" {
		t.Errorf("unexpected file (-want +got):\n%s", diff)
	}
	requireSameText(t, `message A {
  oneof choice {
    int32 x = 1;
    string y = 2;
  }
}
`, file.Serialize())
}

const fullSource = `// File doc.
//
// Second paragraph.
syntax = "proto2";

package foo.bar;

import "other.proto";
import public "pub.proto";
import weak "weak.proto";

option java_package = "com.foo.bar";
// Custom.
option (custom.opt).sub = { a: 1 b: "two" c < d: [1, 2] > [ext.x]: inf e: -inf };

// A message.
message Outer {
  option deprecated = true;
  reserved 5, 10 to 12, 1000 to max;
  reserved "old";
  extensions 100 to 199 [(declared) = true];
  // The id.
  required int64 id = 1 [default = -5];
  repeated string tags = 2 [packed = false, (my.opt) = FOO];
  map<string, Inner> inners = 3;
  oneof choice {
    option (oneof_opt) = 'x';
    string s = 4;
    group Grp = 6 {
      optional int32 v = 1;
    }
  }
  optional group Result = 7 {
    optional string url = 1;
  }
  message Inner {
    optional .foo.bar.Outer parent = 1;
  }
  enum Kind {
    KIND_UNKNOWN = 0;
    KIND_BIG = 1 [deprecated = true];
  }
  extend Other {
    optional int32 ext_field = 150;
  }
}

enum Status {
  option allow_alias = true;
  reserved 3 to 5, 20 to max;
  reserved "GONE";
  OK = 0;
  FINE = 0;
  BAD = -1;
}

service Svc {
  option deprecated = false;
  rpc Get (Outer) returns (stream Outer);
  rpc Put (stream Outer) returns (Outer) {
    option idempotency_level = IDEMPOTENT;
  }
}

extend Outer {
  optional string note = 100;
}
`

func TestParseFull(t *testing.T) {
	t.Parallel()
	file := parseForTest(t, "foo/bar/full.proto", fullSource)

	assert.Equal(t, "File doc.\n\nSecond paragraph.", file.Documentation)
	assert.Equal(t, ast.SyntaxProto2, file.Syntax)
	assert.Equal(t, "foo.bar", file.Package)
	assert.Equal(t, []string{"other.proto"}, file.Imports)
	assert.Equal(t, []string{"pub.proto"}, file.PublicImports)
	assert.Equal(t, []string{"weak.proto"}, file.WeakImports)
	javaPackage, ok := file.JavaPackage()
	assert.True(t, ok)
	assert.Equal(t, "com.foo.bar", javaPackage)
	importPos := file.ImportPosition("pub.proto")
	assert.Equal(t, "foo/bar/full.proto:9:1", importPos.String())

	require.Len(t, file.Options, 2)
	custom := file.Options[1]
	assert.Equal(t, "Custom.", custom.Documentation)
	assert.Equal(t, ast.OptionName{{Name: "custom.opt", Extension: true}, {Name: "sub"}}, custom.Name)
	expectedValue := ast.MapValue(
		ast.OptionField{Name: "a", Value: ast.NumberValue("1")},
		ast.OptionField{Name: "b", Value: ast.StringValue("two")},
		ast.OptionField{Name: "c", Value: ast.MapValue(
			ast.OptionField{Name: "d", Value: ast.ListValue(ast.NumberValue("1"), ast.NumberValue("2"))},
		)},
		ast.OptionField{Name: "ext.x", Extension: true, Value: ast.EnumValue("inf")},
		ast.OptionField{Name: "e", Value: ast.NumberValue("-inf")},
	)
	if diff := cmp.Diff(expectedValue, custom.Value, ignorePositions...); diff != "" {
		t.Errorf("unexpected option value (-want +got):\n%s", diff)
	}

	typ, ok := file.Type("Outer")
	require.True(t, ok)
	outer, ok := typ.(ast.Message)
	require.True(t, ok)
	assert.Equal(t, "A message.", outer.Documentation)
	assert.Equal(t, 17, outer.Location.Line)
	assert.Equal(t, []ast.TagRange{{Start: 5, End: 5}, {Start: 10, End: 12}, {Start: 1000, End: ast.MaxTag, Max: true}}, outer.Reserved[0].Ranges)
	assert.Equal(t, []string{"old"}, outer.Reserved[1].Names)
	id, ok := outer.Field("id")
	require.True(t, ok)
	assert.Equal(t, "The id.", id.Documentation)
	assert.Equal(t, ast.LabelRequired, id.Label)
	assert.Equal(t, "-5", id.Options[0].Value.Scalar)
	inners, ok := outer.Field("inners")
	require.True(t, ok)
	assert.True(t, inners.IsMap())
	assert.Equal(t, "map<string, Inner>", inners.Type)
	grp, ok := outer.Field("grp")
	require.True(t, ok)
	assert.Equal(t, "Grp", grp.Type)
	assert.Equal(t, []string{"id", "tags", "inners", "s", "grp", "result"}, fieldNames(outer.AllFields()))
	require.Len(t, outer.Types, 2)
	assert.Equal(t, "Inner", outer.Types[0].TypeName())
	assert.Equal(t, "Kind", outer.Types[1].TypeName())
	assert.Equal(t, "Other", outer.Extends[0].Name)

	typ, ok = file.Type("Status")
	require.True(t, ok)
	status, ok := typ.(ast.Enum)
	require.True(t, ok)
	assert.Equal(t, []ast.TagRange{{Start: 3, End: 5}, {Start: 20, End: ast.MaxEnumValue, Max: true}}, status.Reserved[0].Ranges)
	bad, ok := status.Constant("BAD")
	require.True(t, ok)
	assert.Equal(t, int32(-1), bad.Tag)

	svc, ok := file.Service("Svc")
	require.True(t, ok)
	get, ok := svc.RPC("Get")
	require.True(t, ok)
	assert.False(t, get.RequestStreaming)
	assert.True(t, get.ResponseStreaming)
	put, ok := svc.RPC("Put")
	require.True(t, ok)
	assert.True(t, put.RequestStreaming)
	assert.Equal(t, "idempotency_level", put.Options[0].Name.String())

	require.Len(t, file.Extends, 1)
	assert.Equal(t, "note", file.Extends[0].Fields[0].Name)
}

func fieldNames(fields []ast.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	sources := map[string]string{
		"full.proto": fullSource,
		"proto3.proto": `syntax = "proto3";
package p3;
import "google/protobuf/any.proto";
message M {
  optional string name = 1;
  repeated M children = 2;
  map<int64, string> labels = 3 [deprecated = true, json_name = "lbls"];
  oneof o {}
  google.protobuf.Any any = 4;
  enum E {
    E_UNSPECIFIED = 0;
  }
}
service S {
  rpc Call (M) returns (M) {
    option (a.b) = { list: ["x", "y"] nested { x: 1.5e3 } };
    option (empty_list) = [];
    option (empty_msg) = {};
  }
}
`,
		"comments.proto": `/*
 * Block doc.
 */
syntax = "proto2";
message M {
  // first line
  //
  // third line
  optional string a = 1; // trailing, dropped
  /* detached */

  optional string b = 2;
}
`,
	}
	for name, source := range sources {
		name, source := name, source
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			file := parseForTest(t, name, source)
			text := file.Serialize()
			reparsed := parseForTest(t, name, text)
			if diff := cmp.Diff(file, reparsed, ignorePositions...); diff != "" {
				t.Errorf("reparsed file differs (-orig +reparsed):\n%s", diff)
			}
			requireSameText(t, text, reparsed.Serialize())
		})
	}
}

func TestSerializeCanonical(t *testing.T) {
	t.Parallel()
	// declarations are written back grouped by category
	file := parseForTest(t, "order.proto", `syntax = "proto3";
message M {
  message Nested {}
  int32 a = 1;
  reserved 9;
  option deprecated = true;
  enum E { E_ZERO = 0; }
  string b = 2;
  oneof o { bool c = 3; }
}
package order;
import "x.proto";
`)
	requireSameText(t, `syntax = "proto3";
package order;

import "x.proto";

message M {
  option deprecated = true;

  reserved 9;

  int32 a = 1;
  string b = 2;

  oneof o {
    bool c = 3;
  }

  message Nested {}
  enum E {
    E_ZERO = 0;
  }
}
`, file.Serialize())
}

func TestParseProfile(t *testing.T) {
	t.Parallel()
	source := `// Android profile.
syntax = "wire2";
package squareup.android;
import "money.proto";

// Money maps to a platform type.
type squareup.Money {
  target java.math.BigDecimal using com.squareup.MoneyAdapter#ADAPTER;
  option (precision) = 2;
}
type squareup.Empty {}
`
	profile, err := ParseProfile("android.wire", strings.NewReader(source), reporter.NewHandler(nil))
	require.NoError(t, err)
	expected := ast.ProfileFile{
		Path:            "android.wire",
		Documentation:   "Android profile.",
		Syntax:          ast.SyntaxWire2,
		Package:         "squareup.android",
		Imports:         []string{"money.proto"},
		ImportLocations: map[string]ast.SourcePos{"money.proto": {}},
		TypeConfigs: []ast.TypeConfig{
			{
				Type:          "squareup.Money",
				Target:        "java.math.BigDecimal",
				Adapter:       "com.squareup.MoneyAdapter#ADAPTER",
				Options:       []ast.Option{{Name: ast.OptionName{{Name: "precision", Extension: true}}, Value: ast.NumberValue("2")}},
				Documentation: "Money maps to a platform type.",
			},
			{Type: "squareup.Empty"},
		},
	}
	if diff := cmp.Diff(expected, profile, ignorePositions...); diff != "" {
		t.Errorf("unexpected profile (-want +got):\n%s", diff)
	}

	reparsed, err := ParseProfile("android.wire", strings.NewReader(profile.Serialize()), reporter.NewHandler(nil))
	require.NoError(t, err)
	requireSameText(t, profile.Serialize(), reparsed.Serialize())
}

func TestParseProfileErrors(t *testing.T) {
	t.Parallel()
	testCases := map[string]struct {
		source string
		errMsg string
	}{
		"wrong syntax": {
			source: `syntax = "proto2"; type a.B {}`,
			errMsg: `profile files must declare syntax = "wire2"`,
		},
		"declares message": {
			source: `syntax = "wire2"; message M {}`,
			errMsg: `syntax error: unexpected "message"`,
		},
		"public import": {
			source: `syntax = "wire2"; import public "a.proto";`,
			errMsg: "profiles only support plain imports",
		},
		"two targets": {
			source: `syntax = "wire2"; type a.B { target X using Y#Z; target X using Y#Z; }`,
			errMsg: "type a.B: target already set",
		},
		"missing adapter field": {
			source: `syntax = "wire2"; type a.B { target X using Y; }`,
			errMsg: `expecting "#"`,
		},
		"configured twice": {
			source: `syntax = "wire2"; type a.B {} type a.B {}`,
			errMsg: "type a.B is already configured at test.wire:1:19",
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseProfile("test.wire", strings.NewReader(tc.source), reporter.NewHandler(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	testCases := map[string]struct {
		source string
		errMsg string
	}{
		"bad syntax": {
			source: `syntax = "proto4";`,
			errMsg: `test.proto:1:1: syntax value must be "proto2" or "proto3"`,
		},
		"editions": {
			source: `edition = "2023";`,
			errMsg: "test.proto:1:1: editions are not supported",
		},
		"syntax not first": {
			source: `package a; syntax = "proto2";`,
			errMsg: "test.proto:1:12: syntax error: syntax statement must be the first statement in the file",
		},
		"two packages": {
			source: `package a; package b;`,
			errMsg: "multiple package declarations",
		},
		"missing semicolon": {
			source: `message M { optional int32 a = 1 }`,
			errMsg: `test.proto:1:34: syntax error: unexpected "}", expecting ";"`,
		},
		"unterminated message": {
			source: `message M { optional int32 a = 1;`,
			errMsg: `syntax error: unexpected end of file, expecting "}"`,
		},
		"nested group": {
			source: `message M { optional group G = 1 { optional group H = 2 {} } }`,
			errMsg: "group G: only fields may be declared in a group",
		},
		"tag too large": {
			source: `message M { optional int32 a = 99999999999; }`,
			errMsg: "value 99999999999 is out of range",
		},
		"duplicate import": {
			source: `import "a.proto"; import "a.proto";`,
			errMsg: `test.proto:1:19: "a.proto" was already imported`,
		},
		"proto3 required": {
			source: `syntax = "proto3"; message M { required int32 a = 1; }`,
			errMsg: "field M.a: label 'required' is not allowed in proto3",
		},
		"proto3 group": {
			source: `syntax = "proto3"; message M { group G = 1 {} }`,
			errMsg: "group M.G: groups are not allowed in proto3",
		},
		"proto3 default": {
			source: `syntax = "proto3"; message M { int32 a = 1 [default = 2]; }`,
			errMsg: "field M.a: default values are not allowed in proto3",
		},
		"proto3 extensions": {
			source: `syntax = "proto3"; message M { extensions 1 to 10; }`,
			errMsg: "message M: extension ranges are not allowed in proto3",
		},
		"proto3 enum zero": {
			source: `syntax = "proto3"; enum E { A = 1; }`,
			errMsg: "enum E: proto3 requires that first value in enum have numeric value of 0",
		},
		"proto2 label": {
			source: `syntax = "proto2"; message M { int32 a = 1; }`,
			errMsg: "field M.a: field has no label; proto2 requires explicit 'optional' label",
		},
		"oneof label": {
			source: `message M { oneof o { optional int32 a = 1; } }`,
			errMsg: "field M.a: fields in oneof o must not have labels",
		},
		"tag zero": {
			source: "package p;\nmessage M {\n  optional int32 a = 0;\n}",
			errMsg: "test.proto:3:3: field p.M.a: tag number 0 must be in range 1 to 536870911",
		},
		"implementation range": {
			source: `message M { optional int32 a = 19000; }`,
			errMsg: "tag number 19000 is in disallowed reserved range 19000 to 19999",
		},
		"duplicate tag": {
			source: `message M { optional int32 a = 1; optional int32 b = 1; }`,
			errMsg: "message M: fields a and b both have the same tag 1",
		},
		"duplicate field name": {
			source: `package p; message M { optional int32 a = 1; optional string a = 2; }`,
			errMsg: `test.proto:1:46: symbol "p.M.a" already defined at test.proto:1:24`,
		},
		"field shadows oneof": {
			source: `message M { optional int32 o = 1; oneof o { int32 b = 2; } }`,
			errMsg: `symbol "M.o" already defined`,
		},
		"duplicate type": {
			source: `message M {} enum M { A = 0; }`,
			errMsg: `symbol "M" already defined`,
		},
		"enum constants share scope": {
			source: `package p; enum A { X = 0; } enum B { X = 0; }`,
			errMsg: `symbol "p.X" already defined`,
		},
		"duplicate rpc": {
			source: `message M {} service S { rpc A (M) returns (M); rpc A (M) returns (M); }`,
			errMsg: `symbol "S.A" already defined`,
		},
		"reserved tag": {
			source: `message M { reserved 2; optional int32 a = 2; }`,
			errMsg: "message M: field a is using tag 2 which is in reserved range 2",
		},
		"reserved name": {
			source: `message M { reserved "a"; optional int32 a = 1; }`,
			errMsg: "message M: field a is using a reserved name",
		},
		"extension range tag": {
			source: `message M { extensions 10 to 20; optional int32 a = 15; }`,
			errMsg: "field a is using tag 15 which is in extension range 10 to 20",
		},
		"overlapping reserved": {
			source: `message M { reserved 1 to 5, 3; }`,
			errMsg: "message M: reserved ranges overlap: 1 to 5 and 3",
		},
		"extension overlaps reserved": {
			source: `message M { reserved 10 to 20; extensions 15 to max; }`,
			errMsg: "message M: extension range 15 to max overlaps reserved range 10 to 20",
		},
		"inverted range": {
			source: `message M { reserved 5 to 1; }`,
			errMsg: "reserved range 5 to 1 is invalid: start must be <= end",
		},
		"map key": {
			source: `message M { map<double, string> m = 1; }`,
			errMsg: "key type of map must be an integral type, bool or string, not double",
		},
		"map in oneof": {
			source: `message M { oneof o { map<string, string> m = 1; } }`,
			errMsg: "map fields are not allowed in oneofs",
		},
		"map label": {
			source: `message M { repeated map<string, string> m = 1; }`,
			errMsg: "map fields cannot have labels",
		},
		"map entry": {
			source: `message M { option map_entry = true; }`,
			errMsg: "map_entry option should not be set explicitly",
		},
		"group name": {
			source: `message M { optional group g = 1 {} }`,
			errMsg: "group M.g: group names must start with a capital letter",
		},
		"enum alias": {
			source: `enum E { A = 0; B = 0; }`,
			errMsg: "enum E: values A and B both have the same numeric value 0; use allow_alias option if intentional",
		},
		"allow_alias type": {
			source: `enum E { option allow_alias = 1; A = 0; }`,
			errMsg: "enum E: expecting bool value for allow_alias option",
		},
		"empty enum": {
			source: `enum E {}`,
			errMsg: "enum E: enums must define at least one value",
		},
		"enum reserved value": {
			source: `enum E { reserved 1 to 3; A = 0; B = 2; }`,
			errMsg: "enum E: value B is using number 2 which is in reserved range 1 to 3",
		},
		"empty extend": {
			source: `extend M {}`,
			errMsg: "extend M: extend sections must define at least one extension",
		},
		"required extension": {
			source: `extend M { required int32 x = 1; }`,
			errMsg: "field x: extension fields cannot be 'required'",
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("test.proto", strings.NewReader(tc.source), reporter.NewHandler(nil))
			require.Error(t, err)
			var errWithPos reporter.ErrorWithPos
			require.ErrorAs(t, err, &errWithPos)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestParseCollectsErrors(t *testing.T) {
	t.Parallel()
	source := `syntax = "proto3";
message M {
  required int32 a = 1;
  int32 b = 1;
  int32 b = 2;
}
enum E { A = 1; }
`
	handler := reporter.NewHandler(reporter.NewCollectingReporter(nil))
	_, err := Parse("test.proto", strings.NewReader(source), handler)
	require.ErrorIs(t, err, reporter.ErrInvalidSource)

	var msgs []string
	for _, e := range handler.Errors() {
		msgs = append(msgs, e.Error())
	}
	assert.Equal(t, []string{
		`test.proto:5:3: symbol "M.b" already defined at test.proto:4:3`,
		"test.proto:4:3: message M: fields a and b both have the same tag 1",
		"test.proto:3:3: field M.a: label 'required' is not allowed in proto3",
		"test.proto:7:10: enum E: proto3 requires that first value in enum have numeric value of 0",
	}, msgs)

	var dupErr *reporter.DuplicateTypeError
	require.True(t, errors.As(handler.Errors()[0], &dupErr))
	assert.Equal(t, "M.b", dupErr.Name)
	assert.Equal(t, 4, dupErr.Previous.Line)
}

func TestParseSyntaxErrorStopsFile(t *testing.T) {
	t.Parallel()
	handler := reporter.NewHandler(reporter.NewCollectingReporter(nil))
	_, err := Parse("test.proto", strings.NewReader("message M {\n  optional int32 = 1;\n}\nmessage N { bad }"), handler)
	require.ErrorIs(t, err, reporter.ErrInvalidSource)
	errs := handler.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, `test.proto:2:18: syntax error: unexpected "=", expecting identifier`, errs[0].Error())
}
