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
	"fmt"
	"io"
	"io/fs"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/internal/toposort"
	"github.com/bufbuild/protoschema/linker"
	"github.com/bufbuild/protoschema/parser"
	"github.com/bufbuild/protoschema/reporter"
)

// Loader loads a Schema from the files registered in a source tree.
//
// The zero value is ready to use. A Loader loads at most once: the first
// call to Load freezes the source tree, and the result is returned again
// by every later call.
type Loader struct {
	// Sources holds the files to load. If nil, an empty tree is created
	// by the first call to Register or Load.
	Sources *SourceTree
	// Roots are doublestar patterns that select the .proto files whose
	// import closure makes up the schema. If empty, every registered
	// .proto file is a root. Profile files and their imports are always
	// loaded.
	Roots []string
	// Resolver finds imports that are not in Sources. It is consulted
	// before the standard imports.
	Resolver Resolver
	// The maximum number of files parsed in parallel. If unspecified or
	// set to a non-positive value, then min(runtime.NumCPU(),
	// runtime.GOMAXPROCS(-1)) will be used.
	MaxParallelism int
	// A custom error and warning reporter. If unspecified, every error is
	// collected and returned in a *SchemaError, and warnings are only
	// logged.
	Reporter reporter.Reporter
	// Logger receives a debug entry for every phase of the load and a
	// warn entry for every warning. If nil, nothing is logged.
	Logger logrus.FieldLogger
	// If true, the files included with protoc are not implicitly
	// available as imports.
	NoStandardImports bool
	// If true, non-public imports that a file never uses are reported as
	// warnings.
	WarnUnusedImports bool

	mu     sync.Mutex
	loaded bool
	schema *Schema
	err    error
}

// NewLoader returns a loader with an empty source tree.
func NewLoader() *Loader {
	return &Loader{Sources: NewSourceTree()}
}

// Register adds a file to the loader's source tree.
// Also see: SourceTree.Register
func (l *Loader) Register(path, content string) error {
	l.mu.Lock()
	tree := l.tree()
	l.mu.Unlock()
	return tree.Register(path, content)
}

// tree must be called with l.mu held.
func (l *Loader) tree() *SourceTree {
	if l.Sources == nil {
		l.Sources = NewSourceTree()
	}
	return l.Sources
}

// Load loads the schema. If the schema has errors, the returned error is
// a *SchemaError, unless the reporter aborted with an error of its own.
// Errors caused by ctx are not cached: a later call tries again.
func (l *Loader) Load(ctx context.Context) (*Schema, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.schema, l.err
	}
	schema, err := l.load(ctx, l.tree())
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	l.loaded, l.schema, l.err = true, schema, err
	return schema, err
}

func (l *Loader) load(ctx context.Context, tree *SourceTree) (*Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree.Freeze()
	log := l.logger()
	rep := l.Reporter
	if rep == nil {
		rep = reporter.NewCollectingReporter(nil)
	}
	h := reporter.NewHandler(loggingReporter{rep: rep, log: log})

	parsed, err := l.parseAll(ctx, tree, h, log)
	if err != nil {
		return nil, err
	}
	if h.Error() != nil {
		return nil, newSchemaError(h)
	}

	roots, err := l.rootPaths(tree)
	if err != nil {
		return nil, err
	}
	c := &closure{
		parsed:   parsed.protos,
		resolver: l.importResolver(),
		handler:  h,
		log:      log,
		files:    map[string]ast.ProtoFile{},
		states:   map[string]fileState{},
		imports:  map[string][]string{},
	}
	files := c.resolve(roots, parsed.profiles)
	if h.Error() != nil {
		// Still index what was found, so that duplicates are reported
		// along with the import errors.
		symbols := &linker.Symbols{}
		for _, file := range c.sortedFiles() {
			if symbols.Import(file, h) != nil {
				break
			}
		}
		return nil, newSchemaError(h)
	}
	log.WithFields(logrus.Fields{"roots": len(roots), "files": len(files)}).Debug("resolved imports")

	res, err := linker.Link(files, parsed.profiles, nil, h, linker.Options{WarnUnusedImports: l.WarnUnusedImports})
	if err != nil {
		return nil, newSchemaError(h)
	}
	log.WithFields(logrus.Fields{"files": len(files), "profiles": len(parsed.profiles)}).Debug("linked schema")
	return newSchema(files, parsed.profiles, res), nil
}

func (l *Loader) logger() logrus.FieldLogger {
	if l.Logger != nil {
		return l.Logger
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func (l *Loader) importResolver() Resolver {
	var r CompositeResolver
	if l.Resolver != nil {
		r = append(r, l.Resolver)
	}
	if l.NoStandardImports {
		return r
	}
	return WithStandardImports(r)
}

type parsedFiles struct {
	protos map[string]ast.ProtoFile
	// profiles is sorted by path.
	profiles []ast.ProfileFile
}

// parseAll parses every file of the tree. Results are merged in path
// order, regardless of the order in which the parses complete.
func (l *Loader) parseAll(ctx context.Context, tree *SourceTree, h *reporter.Handler, log logrus.FieldLogger) (*parsedFiles, error) {
	par := l.MaxParallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(-1)
		cpus := runtime.NumCPU()
		if par > cpus {
			par = cpus
		}
	}
	sem := semaphore.NewWeighted(int64(par))

	type result struct {
		proto   *ast.ProtoFile
		profile *ast.ProfileFile
	}
	paths := tree.Paths()
	results := make([]result, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			src, err := tree.Read(path)
			if err != nil {
				_ = h.HandleError(err)
				return
			}
			switch tree.Kind(path) {
			case FileKindProto:
				file, err := parser.Parse(path, strings.NewReader(src), h)
				if err != nil {
					return
				}
				results[i].proto = &file
			case FileKindProfile:
				profile, err := parser.ParseProfile(path, strings.NewReader(src), h)
				if err != nil {
					return
				}
				results[i].profile = &profile
			}
			log.WithField("path", path).Debug("parsed file")
		}()
	}
	wg.Wait()

	parsed := &parsedFiles{protos: map[string]ast.ProtoFile{}}
	for _, r := range results {
		switch {
		case r.proto != nil:
			parsed.protos[r.proto.Path] = *r.proto
		case r.profile != nil:
			parsed.profiles = append(parsed.profiles, *r.profile)
		}
	}
	return parsed, nil
}

func (l *Loader) rootPaths(tree *SourceTree) ([]string, error) {
	var roots []string
	if len(l.Roots) == 0 {
		for _, path := range tree.Paths() {
			if tree.Kind(path) == FileKindProto {
				roots = append(roots, path)
			}
		}
		return roots, nil
	}
	seen := map[string]struct{}{}
	for _, pattern := range l.Roots {
		matches, err := tree.Match(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid root: %w", err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok || kindOf(m) != FileKindProto {
				continue
			}
			seen[m] = struct{}{}
			roots = append(roots, m)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

type fileState int

const (
	stateUnknown fileState = iota
	stateFound
	stateMissing
	// stateBroken is a file that was found but failed to parse. Its
	// errors are reported already.
	stateBroken
)

// closure computes the files reachable from a set of roots.
type closure struct {
	parsed   map[string]ast.ProtoFile
	resolver Resolver
	handler  *reporter.Handler
	log      logrus.FieldLogger

	files   map[string]ast.ProtoFile
	states  map[string]fileState
	imports map[string][]string
}

// resolve returns the files reachable from roots and from the imports
// of profiles, each after the files it imports. Problems are reported
// to the handler.
func (c *closure) resolve(roots []string, profiles []ast.ProfileFile) []ast.ProtoFile {
	var start []string
	for _, root := range roots {
		if c.lookup(root) == stateFound {
			start = append(start, root)
		}
	}
	for _, profile := range profiles {
		for _, imp := range profile.Imports {
			pos, ok := profile.ImportLocations[imp]
			if !ok {
				pos = ast.UnknownPos(profile.Path)
			}
			if c.importFile(profile.Path, pos, imp) {
				start = append(start, imp)
			}
		}
	}

	order, err := toposort.Sort(
		start,
		func(path string) string { return path },
		c.deps,
	)
	var cycle *toposort.CycleError[string]
	if errors.As(err, &cycle) {
		n := len(cycle.Cycle)
		importer := c.files[cycle.Cycle[n-2]]
		_ = c.handler.HandleError(&reporter.CyclicImportError{
			Pos:   importer.ImportPosition(cycle.Cycle[n-1]),
			Cycle: cycle.Cycle,
		})
		// The sort stops at the first cycle; visit the rest of the
		// closure so that its unresolved imports are reported too.
		c.visit(start)
		return nil
	}

	files := make([]ast.ProtoFile, len(order))
	for i, path := range order {
		files[i] = c.files[path]
	}
	return files
}

// deps returns the resolvable imports of a file. Each file's imports
// are resolved, and reported, only once.
func (c *closure) deps(path string) []string {
	if deps, ok := c.imports[path]; ok {
		return deps
	}
	file := c.files[path]
	deps := []string{}
	for _, imp := range file.AllImports() {
		if c.importFile(path, file.ImportPosition(imp), imp) {
			deps = append(deps, imp)
		}
	}
	c.imports[path] = deps
	return deps
}

// visit resolves the imports of every file reachable from paths.
func (c *closure) visit(paths []string) {
	seen := map[string]bool{}
	for len(paths) > 0 {
		path := paths[len(paths)-1]
		paths = paths[:len(paths)-1]
		if seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, c.deps(path)...)
	}
}

// importFile resolves an import, reporting an UnresolvedImportError
// when the imported file cannot be found.
func (c *closure) importFile(importer string, pos ast.SourcePos, path string) bool {
	switch c.lookup(path) {
	case stateFound:
		return true
	case stateMissing:
		_ = c.handler.HandleError(&reporter.UnresolvedImportError{Pos: pos, Importer: importer, Path: path})
	}
	return false
}

func (c *closure) lookup(path string) fileState {
	if state := c.states[path]; state != stateUnknown {
		return state
	}
	state := stateFound
	file, ok := c.parsed[path]
	if !ok {
		file, state = c.find(path)
	}
	c.states[path] = state
	if state == stateFound {
		c.files[path] = file
	}
	return state
}

// find looks for a file that is not in the source tree.
func (c *closure) find(path string) (ast.ProtoFile, fileState) {
	res, err := c.resolver.FindFileByPath(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ast.ProtoFile{}, stateMissing
		}
		_ = c.handler.HandleError(fmt.Errorf("resolving %q: %w", path, err))
		return ast.ProtoFile{}, stateBroken
	}
	file, err := parseResult(path, res, c.handler)
	if err != nil {
		if !errors.Is(err, reporter.ErrInvalidSource) {
			_ = c.handler.HandleError(err)
		}
		return ast.ProtoFile{}, stateBroken
	}
	c.log.WithField("path", path).Debug("resolved file outside source tree")
	return file, stateFound
}

func (c *closure) sortedFiles() []ast.ProtoFile {
	paths := make([]string, 0, len(c.files))
	for path := range c.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	files := make([]ast.ProtoFile, len(paths))
	for i, path := range paths {
		files[i] = c.files[path]
	}
	return files
}

// loggingReporter logs every error and warning before passing it on.
type loggingReporter struct {
	rep reporter.Reporter
	log logrus.FieldLogger
}

func (r loggingReporter) Error(err reporter.ErrorWithPos) error {
	withPos(r.log, err.GetPosition()).WithError(err).Debug("schema error")
	return r.rep.Error(err)
}

func (r loggingReporter) Warning(err reporter.ErrorWithPos) {
	msg := err.Error()
	if underlying := err.Unwrap(); underlying != nil {
		msg = underlying.Error()
	}
	withPos(r.log, err.GetPosition()).Warn(msg)
	r.rep.Warning(err)
}

func withPos(log logrus.FieldLogger, pos ast.SourcePos) logrus.FieldLogger {
	return log.WithFields(logrus.Fields{
		"path": pos.Filename,
		"line": pos.Line,
		"col":  pos.Col,
	})
}
