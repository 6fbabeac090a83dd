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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/protoschema/reporter"
)

func TestErrorReporting(t *testing.T) {
	t.Parallel()
	tooManyErrors := errors.New("too many errors")
	limitedErrReporter := func(limit int, count *int) reporter.ErrorReporter {
		return func(err reporter.ErrorWithPos) error {
			*count++
			if *count > limit {
				return tooManyErrors
			}
			return nil
		}
	}
	trackingReporter := func(errs *[]reporter.ErrorWithPos, count *int) reporter.ErrorReporter {
		return func(err reporter.ErrorWithPos) error {
			*count++
			*errs = append(*errs, err)
			return nil
		}
	}
	fail := errors.New("failure!")
	failFastReporter := func(count *int) reporter.ErrorReporter {
		return func(err reporter.ErrorWithPos) error {
			*count++
			return fail
		}
	}

	testCases := []struct {
		name         string
		files        map[string]string
		expectedErrs []string
	}{
		{
			name: "multiple validation errors",
			files: map[string]string{
				"test.proto": `syntax = "proto3";
message M {
  required int32 a = 1;
  int32 b = 1;
  int32 b = 2;
}
enum E { A = 1; }
`,
			},
			expectedErrs: []string{
				`test.proto:5:3: symbol "M.b" already defined at test.proto:4:3`,
				"test.proto:4:3: message M: fields a and b both have the same tag 1",
				"test.proto:3:3: field M.a: label 'required' is not allowed in proto3",
				"test.proto:7:10: enum E: proto3 requires that first value in enum have numeric value of 0",
			},
		},
		{
			name: "syntax error",
			files: map[string]string{
				"test.proto": "message M {\n  optional int32 = 1;\n}\nmessage N { bad }",
			},
			expectedErrs: []string{
				`test.proto:2:18: syntax error: unexpected "=", expecting identifier`,
			},
		},
		{
			name: "link errors",
			files: map[string]string{
				"test.proto": `syntax = "proto3";
message A {
  Nope n = 1;
  Nada m = 2;
}
`,
			},
			expectedErrs: []string{
				"test.proto:3:3: A.n: unknown type Nope",
				"test.proto:4:3: A.m: unknown type Nada",
			},
		},
		{
			name: "link errors across multiple files",
			files: map[string]string{
				"test1.proto": `syntax = "proto3";
import "test2.proto";
message A {
  Nope n = 1;
}
`,
				"test2.proto": `syntax = "proto3";
message B {
  Other n = 1;
  Nada m = 2;
}
message A {}
`,
			},
			expectedErrs: []string{
				`test2.proto:6:1: symbol "A" already defined at test1.proto:3:1`,
				"test1.proto:4:3: A.n: unknown type Nope",
				"test2.proto:3:3: B.n: unknown type Other",
				"test2.proto:4:3: B.m: unknown type Nada",
			},
		},
	}

	ctx := context.Background()
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var reported []reporter.ErrorWithPos
			count := 0
			l := newLoader(t, tc.files)
			l.MaxParallelism = 1
			l.Reporter = reporter.NewReporter(trackingReporter(&reported, &count), nil)
			_, err := l.Load(ctx)
			reportedMsgs := make([]string, len(reported))
			for j := range reported {
				reportedMsgs[j] = reported[j].Error()
			}
			t.Logf("got %d errors:\n\t%s", len(reported), strings.Join(reportedMsgs, "\n\t"))

			// every error is reported and returned
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Len(t, schemaErr.Errors, len(tc.expectedErrs))
			assert.Equal(t, len(tc.expectedErrs), count)
			assert.Equal(t, tc.expectedErrs, reportedMsgs)
			for _, e := range reported {
				assert.Equal(t, e.GetPosition().String(), strings.SplitN(e.Error(), ": ", 2)[0])
			}

			count = 0
			l = newLoader(t, tc.files)
			l.Reporter = reporter.NewReporter(failFastReporter(&count), nil)
			_, err = l.Load(ctx)
			assert.ErrorIs(t, err, fail)
			assert.Equal(t, 1, count)

			count = 0
			l = newLoader(t, tc.files)
			l.Reporter = reporter.NewReporter(limitedErrReporter(3, &count), nil)
			_, err = l.Load(ctx)
			if len(tc.expectedErrs) > 3 {
				assert.ErrorIs(t, err, tooManyErrors)
				assert.Equal(t, 4, count)
			} else {
				// less than threshold means reporter always returned nil
				assert.NotErrorIs(t, err, tooManyErrors)
				assert.Equal(t, len(tc.expectedErrs), count)
			}
		})
	}
}

func TestWarningReporting(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name            string
		sources         map[string]string
		roots           []string
		expectedNotices []string
	}{
		{
			name: "syntax proto2",
			sources: map[string]string{
				"test.proto": `syntax = "proto2"; message Foo {}`,
			},
		},
		{
			name: "syntax proto3",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; message Foo {}`,
			},
		},
		{
			name: "no syntax",
			sources: map[string]string{
				"test.proto": `message Foo {}`,
			},
			expectedNotices: []string{
				"test.proto:1:1: no syntax specified; defaulting to proto2 syntax",
			},
		},
		{
			name: "used import",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; import "foo.proto"; message Foo { Bar bar = 1; }`,
				"foo.proto":  `syntax = "proto3"; message Bar { string name = 1; }`,
			},
		},
		{
			name: "used public import",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; import "foo.proto"; message Foo { Bar bar = 1; }`,
				"foo.proto":  `syntax = "proto3"; import public "bar.proto"; import "baz.proto";`,
				"bar.proto":  `syntax = "proto3"; message Bar { string name = 1; }`,
				"baz.proto":  `syntax = "proto3"; message Baz { }`,
			},
			roots: []string{"test.proto"},
			// foo.proto is linked too, so its own unused import is reported
			expectedNotices: []string{
				`foo.proto:1:47: unused import "baz.proto"`,
			},
		},
		{
			name: "used nested public import",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; import "foo.proto"; message Foo { Bar bar = 1; }`,
				"foo.proto":  `syntax = "proto3"; import public "baz.proto";`,
				"baz.proto":  `syntax = "proto3"; import public "bar.proto";`,
				"bar.proto":  `syntax = "proto3"; message Bar { string name = 1; }`,
			},
		},
		{
			name: "unused import",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; import "foo.proto"; message Foo { string name = 1; }`,
				"foo.proto":  `syntax = "proto3"; message Bar { string name = 1; }`,
			},
			expectedNotices: []string{
				`test.proto:1:20: unused import "foo.proto"`,
			},
		},
		{
			name: "multiple unused imports",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; import "foo.proto"; import "bar.proto"; import "baz.proto"; message Test { Bar bar = 1; }`,
				"foo.proto":  `syntax = "proto3"; message Foo {}`,
				"bar.proto":  `syntax = "proto3"; message Bar {}`,
				"baz.proto":  `syntax = "proto3"; message Baz {}`,
			},
			expectedNotices: []string{
				`test.proto:1:20: unused import "foo.proto"`,
				`test.proto:1:60: unused import "baz.proto"`,
			},
		},
		{
			name: "unused public import is not reported",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; import public "foo.proto"; message Foo { }`,
				"foo.proto":  `syntax = "proto3"; message Bar { string name = 1; }`,
			},
		},
		{
			name: "import used by option",
			sources: map[string]string{
				"test.proto": `syntax = "proto3"; import "opts.proto"; message Foo { option (sealed) = true; }`,
				"opts.proto": `syntax = "proto3"; import "google/protobuf/descriptor.proto"; extend google.protobuf.MessageOptions { bool sealed = 50000; }`,
			},
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var msgs []string
			l := newLoader(t, tc.sources)
			l.Roots = tc.roots
			l.WarnUnusedImports = true
			l.Reporter = reporter.NewCollectingReporter(func(warn reporter.ErrorWithPos) {
				msgs = append(msgs, warn.Error())
			})
			_, err := l.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.expectedNotices, msgs)
		})
	}
}
