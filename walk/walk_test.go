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

package walk_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/parser"
	"github.com/bufbuild/protoschema/reporter"
	"github.com/bufbuild/protoschema/walk"
)

const source = `syntax = "proto2";
package pkg;
message Outer {
  optional string a = 1;
  oneof choice {
    int32 b = 2;
    group Pick = 3 {
      optional int32 c = 1;
    }
  }
  optional group Result = 4 {
    optional string url = 1;
  }
  message Inner {}
  enum Kind { K_ZERO = 0; }
  extend Outer { optional int32 nested_ext = 100; }
  extensions 100 to 200;
}
enum Top { TOP_ZERO = 0; }
extend Outer { optional int32 top_ext = 101; }
service Svc {
  rpc Call (Outer) returns (Outer);
}
`

func parseFile(t *testing.T) ast.ProtoFile {
	t.Helper()
	file, err := parser.Parse("test.proto", strings.NewReader(source), reporter.NewHandler(nil))
	require.NoError(t, err)
	return file
}

func kindOf(el ast.Element) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", el), "ast.")
}

func TestElementsEnterAndExit(t *testing.T) {
	t.Parallel()
	file := parseFile(t)
	var events []string
	err := walk.ElementsEnterAndExit(file,
		func(name string, el ast.Element) error {
			events = append(events, "enter "+kindOf(el)+" "+name)
			return nil
		},
		func(name string, el ast.Element) error {
			switch el.(type) {
			case ast.Field, ast.EnumConstant, ast.RPC:
			default:
				events = append(events, "exit "+name)
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"enter Message pkg.Outer",
		"enter Field pkg.Outer.a",
		"enter OneOf pkg.Outer.choice",
		"enter Field pkg.Outer.b",
		"enter Group pkg.Outer.Pick",
		"enter Field pkg.Outer.Pick.c",
		"exit pkg.Outer.Pick",
		"exit pkg.Outer.choice",
		"enter Group pkg.Outer.Result",
		"enter Field pkg.Outer.Result.url",
		"exit pkg.Outer.Result",
		"enter Message pkg.Outer.Inner",
		"exit pkg.Outer.Inner",
		"enter Enum pkg.Outer.Kind",
		"enter EnumConstant pkg.Outer.K_ZERO",
		"exit pkg.Outer.Kind",
		"enter Extend pkg.Outer",
		"enter Field pkg.Outer.nested_ext",
		"exit pkg.Outer",
		"exit pkg.Outer",
		"enter Enum pkg.Top",
		"enter EnumConstant pkg.TOP_ZERO",
		"exit pkg.Top",
		"enter Extend pkg",
		"enter Field pkg.top_ext",
		"exit pkg",
		"enter Service pkg.Svc",
		"enter RPC pkg.Svc.Call",
		"exit pkg.Svc",
	}, events)
}

func TestElementsSkipChildren(t *testing.T) {
	t.Parallel()
	file := parseFile(t)
	var names []string
	err := walk.Elements(file, func(name string, el ast.Element) error {
		names = append(names, name)
		if _, ok := el.(ast.Message); ok {
			return walk.SkipChildren
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg.Outer", "pkg.Top", "pkg.TOP_ZERO", "pkg", "pkg.top_ext", "pkg.Svc", "pkg.Svc.Call"}, names)
}

func TestElementsStopsOnError(t *testing.T) {
	t.Parallel()
	file := parseFile(t)
	stop := errors.New("stop")
	var count int
	err := walk.Elements(file, func(name string, _ ast.Element) error {
		count++
		if name == "pkg.Outer.b" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 4, count)
}
