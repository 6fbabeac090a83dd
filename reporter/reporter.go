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
	"sync"

	"github.com/bufbuild/protoschema/ast"
)

// ErrorReporter is responsible for reporting the given error. If the reporter
// returns a non-nil error, loading will abort with that error. If the
// reporter returns nil, loading will continue, allowing the loader to try to
// report as many syntax and/or link errors as it can find.
type ErrorReporter func(err ErrorWithPos) error

// WarningReporter is responsible for reporting the given warning. This is used
// for indicating non-error messages to the calling program for things that do
// not cause the load to fail but are considered bad practice. Though they are
// just warnings, the details are supplied to the reporter via an error type.
type WarningReporter func(ErrorWithPos)

// Reporter is a type that handles reporting both errors and warnings.
type Reporter interface {
	// Error is called when the given error is encountered and will be
	// returned to the caller. If this returns a non-nil error, the load
	// will abort with that error.
	Error(ErrorWithPos) error
	// Warning is called when a warning is encountered.
	Warning(ErrorWithPos)
}

// NewReporter creates a new reporter that invokes the given functions on
// error or warning. A nil errs reports every error as fatal; a nil
// warnings ignores warnings.
func NewReporter(errs ErrorReporter, warnings WarningReporter) Reporter {
	return reporterFuncs{errs: errs, warnings: warnings}
}

// NewCollectingReporter returns a reporter that never aborts, so that
// every error is reported, and that forwards warnings to the given
// function.
func NewCollectingReporter(warnings WarningReporter) Reporter {
	return NewReporter(func(ErrorWithPos) error { return nil }, warnings)
}

type reporterFuncs struct {
	errs     ErrorReporter
	warnings WarningReporter
}

func (r reporterFuncs) Error(err ErrorWithPos) error {
	if r.errs == nil {
		return err
	}
	return r.errs(err)
}

func (r reporterFuncs) Warning(err ErrorWithPos) {
	if r.warnings != nil {
		r.warnings(err)
	}
}

// Handler is used by the parser, linker and loader to report errors and
// warnings. It remembers every error passed to it and the first error the
// reporter asked to abort with. It is safe for concurrent use.
type Handler struct {
	reporter Reporter

	mu           sync.Mutex
	errsReported bool
	err          error
	errs         []ErrorWithPos
}

// NewHandler creates a new Handler that reports errors and warnings
// using the given reporter.
func NewHandler(rep Reporter) *Handler {
	if rep == nil {
		rep = NewReporter(nil, nil)
	}
	return &Handler{reporter: rep}
}

// HandleErrorf handles an error with the given source position, creating
// the error using the given message format and arguments.
//
// If the handler has already aborted (by returning a non-nil error from
// a prior call) then that same error is returned and the given error is
// not reported.
func (h *Handler) HandleErrorf(pos ast.SourcePos, format string, args ...interface{}) error {
	return h.HandleError(Errorf(pos, format, args...))
}

// HandleErrorWithPos handles an error with a source position. See
// HandleError.
func (h *Handler) HandleErrorWithPos(err ErrorWithPos) error {
	return h.HandleError(err)
}

// HandleError handles the given error. If the given err is an ErrorWithPos,
// it is reported, and this function returns the error returned by the
// reporter. If the given err is NOT an ErrorWithPos, the current operation
// will abort immediately.
//
// If the handler has already aborted (by returning a non-nil error from
// a prior call) then that same error is returned and the given error is
// not reported.
func (h *Handler) HandleError(err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return h.err
	}
	if ewp, ok := err.(ErrorWithPos); ok {
		h.errsReported = true
		h.errs = append(h.errs, ewp)
		err = h.reporter.Error(ewp)
	}
	h.err = err
	return err
}

// HandleWarning handles a warning with the given source position. This will
// delegate to the handler's configured reporter.
func (h *Handler) HandleWarning(pos ast.SourcePos, err error) {
	// no need for lock; warnings don't interact with mutable fields
	h.reporter.Warning(errorWithSourcePos{pos: pos, underlying: err})
}

// HandleWarningf is like HandleWarning but builds the warning from a
// format and arguments.
func (h *Handler) HandleWarningf(pos ast.SourcePos, format string, args ...interface{}) {
	h.reporter.Warning(Errorf(pos, format, args...))
}

// Error returns the handler result. If any errors have been reported then
// this returns a non-nil error. If the reporter never returned a non-nil
// error then ErrInvalidSource is returned. Otherwise, this returns the
// error returned by the handler's reporter (the same value returned by
// ReporterError).
func (h *Handler) Error() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errsReported && h.err == nil {
		return ErrInvalidSource
	}
	return h.err
}

// ReporterError returns the error returned by the handler's reporter. If
// the reporter has either not been invoked (no errors handled) or has not
// returned any non-nil value, then this returns nil.
func (h *Handler) ReporterError() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}

// Errors returns every error handled so far, in the order they were
// reported.
func (h *Handler) Errors() []ErrorWithPos {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]ErrorWithPos(nil), h.errs...)
}

// ErrorCount returns the number of errors handled so far.
func (h *Handler) ErrorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.errs)
}
