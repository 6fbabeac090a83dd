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

package reporter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bufbuild/protoschema/ast"
)

// ErrInvalidSource is a sentinel error that is returned by the loader in
// the event that syntax or link errors are encountered, but the configured
// ErrorReporter always returns nil.
var ErrInvalidSource = errors.New("load failed: invalid proto source")

var (
	// ErrUnresolvedImport is wrapped by UnresolvedImportError.
	ErrUnresolvedImport = errors.New("import not found")
	// ErrDuplicateSymbol is wrapped by DuplicateTypeError.
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	// ErrImportCycle is wrapped by CyclicImportError.
	ErrImportCycle = errors.New("import cycle")
)

// ErrorWithPos is an error about a proto source file that includes information
// about the location in the file that caused the error.
//
// The value of Error() will contain both the SourcePos and Underlying error.
// The value of Unwrap() will only be the Underlying error.
type ErrorWithPos interface {
	error
	GetPosition() ast.SourcePos
	Unwrap() error
}

func Error(pos ast.SourcePos, err error) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: err}
}

func Errorf(pos ast.SourcePos, format string, args ...interface{}) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: fmt.Errorf(format, args...)}
}

// errorWithSourcePos is the generic ErrorWithPos used for warnings and for
// errors that do not belong to one of the kinds below.
type errorWithSourcePos struct {
	underlying error
	pos        ast.SourcePos
}

func (e errorWithSourcePos) Error() string {
	sourcePos := e.GetPosition()
	return fmt.Sprintf("%s: %v", sourcePos, e.underlying)
}

// GetPosition implements the ErrorWithPos interface, supplying a location in
// proto source that caused the error.
func (e errorWithSourcePos) GetPosition() ast.SourcePos {
	return e.pos
}

// Unwrap implements the ErrorWithPos interface, supplying the underlying
// error. This error will not include location information.
func (e errorWithSourcePos) Unwrap() error {
	return e.underlying
}

// ParseError reports malformed source: a syntax error, or a construct
// that is well-formed but not valid (a duplicate field name, a tag out
// of range, and so on).
type ParseError struct {
	Pos ast.SourcePos
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *ParseError) GetPosition() ast.SourcePos {
	return e.Pos
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnresolvedImportError reports an import of a file that is neither in
// the source tree nor one of the standard imports.
type UnresolvedImportError struct {
	// Pos is the position of the import statement.
	Pos      ast.SourcePos
	Importer string
	Path     string
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("%s: %s imports %q: %v", e.Pos, e.Importer, e.Path, ErrUnresolvedImport)
}

func (e *UnresolvedImportError) GetPosition() ast.SourcePos {
	return e.Pos
}

func (e *UnresolvedImportError) Unwrap() error {
	return ErrUnresolvedImport
}

// DuplicateTypeError reports a fully-qualified name that is declared
// twice. Pos is the later declaration and Previous the earlier one, in
// path order.
type DuplicateTypeError struct {
	Name     string
	Pos      ast.SourcePos
	Previous ast.SourcePos
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("%s: symbol %q already defined at %v", e.Pos, e.Name, e.Previous)
}

func (e *DuplicateTypeError) GetPosition() ast.SourcePos {
	return e.Pos
}

func (e *DuplicateTypeError) Unwrap() error {
	return ErrDuplicateSymbol
}

// LinkError reports a reference that could not be linked. Element is
// the fully-qualified name of the referencing element (a field, an rpc,
// an option's owner) and Name is the reference as written.
type LinkError struct {
	Pos     ast.SourcePos
	Element string
	Name    string
	Err     error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Pos, e.Element, e.Err)
}

func (e *LinkError) GetPosition() ast.SourcePos {
	return e.Pos
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// CyclicImportError reports files that transitively import themselves.
// Cycle starts and ends with the same path.
type CyclicImportError struct {
	Pos   ast.SourcePos
	Cycle []string
}

func (e *CyclicImportError) Error() string {
	quoted := make([]string, len(e.Cycle))
	for i, p := range e.Cycle {
		quoted[i] = strconv.Quote(p)
	}
	return fmt.Sprintf("%s: cycle found in imports: %s", e.Pos, strings.Join(quoted, " -> "))
}

func (e *CyclicImportError) GetPosition() ast.SourcePos {
	return e.Pos
}

func (e *CyclicImportError) Unwrap() error {
	return ErrImportCycle
}

var (
	_ ErrorWithPos = errorWithSourcePos{}
	_ ErrorWithPos = (*ParseError)(nil)
	_ ErrorWithPos = (*UnresolvedImportError)(nil)
	_ ErrorWithPos = (*DuplicateTypeError)(nil)
	_ ErrorWithPos = (*LinkError)(nil)
	_ ErrorWithPos = (*CyclicImportError)(nil)
)
