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
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bufbuild/protoschema/reporter"
)

// ErrInvalidPath is returned when registering a file whose path is empty
// or escapes the root of the source tree.
var ErrInvalidPath = errors.New("invalid path")

// ConflictError is returned when registering a file after the source tree
// was frozen by a load.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot register %q: source tree is frozen", e.Path)
}

// UnsupportedExtensionError is returned when registering a file whose
// extension is neither ".proto" nor ".wire".
type UnsupportedExtensionError struct {
	Path string
	// Ext is the extension of Path, including the dot. It is empty when
	// the path has none.
	Ext string
}

func (e *UnsupportedExtensionError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("cannot register %q: no file extension; expecting %s or %s", e.Path, ProtoExt, ProfileExt)
	}
	return fmt.Sprintf("cannot register %q: unsupported extension %q; expecting %s or %s", e.Path, e.Ext, ProtoExt, ProfileExt)
}

// SchemaError is returned by Load when the schema has errors. Errors are
// sorted by file, line and column; errors without a position come last.
//
// Use errors.As to find the individual errors:
//
//	var dup *reporter.DuplicateTypeError
//	if errors.As(err, &dup) {
//		...
//	}
type SchemaError struct {
	Errors []error
}

func (e *SchemaError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "schema has %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() []error {
	return e.Errors
}

// newSchemaError collects the errors handled by h. An error the reporter
// aborted with that is not one of the handled errors is included too.
func newSchemaError(h *reporter.Handler) *SchemaError {
	handled := h.Errors()
	errs := make([]error, 0, len(handled)+1)
	for _, err := range handled {
		errs = append(errs, err)
	}
	sortErrors(errs)
	if abort := h.ReporterError(); abort != nil && !containsError(errs, abort) {
		errs = append(errs, abort)
	}
	return &SchemaError{Errors: errs}
}

func containsError(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(target, err) {
			return true
		}
	}
	return false
}

func sortErrors(errs []error) {
	sort.SliceStable(errs, func(i, j int) bool {
		a, aok := errs[i].(reporter.ErrorWithPos)
		b, bok := errs[j].(reporter.ErrorWithPos)
		if !aok || !bok {
			return aok && !bok
		}
		pa, pb := a.GetPosition(), b.GetPosition()
		if pa.Filename != pb.Filename {
			return pa.Filename < pb.Filename
		}
		if pa.Line != pb.Line {
			return pa.Line < pb.Line
		}
		if pa.Col != pb.Col {
			return pa.Col < pb.Col
		}
		return a.Error() < b.Error()
	})
}
