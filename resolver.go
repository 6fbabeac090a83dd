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
	"io"
	"io/fs"
	"path"

	"github.com/spf13/afero"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/parser"
	"github.com/bufbuild/protoschema/reporter"
)

// Resolver finds files by path. A Loader consults its resolver for
// imports that are not in its source tree.
type Resolver interface {
	// FindFileByPath returns the file with the given path. The error
	// should wrap fs.ErrNotExist when there is no such file.
	FindFileByPath(path string) (SearchResult, error)
}

// SearchResult is a file found by a Resolver. Only one of the fields
// must be set; File is preferred when both are.
type SearchResult struct {
	// Source is the text of a .proto file. It is closed after reading
	// if it implements io.Closer.
	Source io.Reader
	// File is an already parsed file.
	File *ast.ProtoFile
}

// ResolverFunc is a function that implements Resolver.
type ResolverFunc func(string) (SearchResult, error)

var _ Resolver = ResolverFunc(nil)

func (f ResolverFunc) FindFileByPath(path string) (SearchResult, error) {
	return f(path)
}

// CompositeResolver is a list of resolvers that are consulted in order.
// The first one that finds the file wins.
type CompositeResolver []Resolver

var _ Resolver = CompositeResolver(nil)

func (f CompositeResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(f) == 0 {
		return SearchResult{}, notFound(path)
	}
	var firstErr error
	for _, res := range f {
		r, err := res.FindFileByPath(path)
		if err == nil {
			return r, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return SearchResult{}, firstErr
}

// SourceResolver reads .proto files from a file system. Paths are looked
// up relative to each of ImportPaths in turn, or relative to the root of
// Fs when there are none.
type SourceResolver struct {
	ImportPaths []string
	// Fs is the file system to read from. If nil, the operating system's
	// file system is used.
	Fs afero.Fs
}

var _ Resolver = (*SourceResolver)(nil)

func (r *SourceResolver) FindFileByPath(p string) (SearchResult, error) {
	fsys := r.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if len(r.ImportPaths) == 0 {
		f, err := fsys.Open(p)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Source: f}, nil
	}

	var e error
	for _, importPath := range r.ImportPaths {
		f, err := fsys.Open(path.Join(importPath, p))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				e = err
				continue
			}
			return SearchResult{}, err
		}
		return SearchResult{Source: f}, nil
	}
	return SearchResult{}, e
}

func notFound(path string) error {
	return &fs.PathError{Op: "resolve", Path: path, Err: fs.ErrNotExist}
}

// parseResult returns the file of a search result for path, parsing its
// source if needed.
func parseResult(path string, r SearchResult, h *reporter.Handler) (ast.ProtoFile, error) {
	if c, ok := r.Source.(io.Closer); ok {
		defer c.Close()
	}
	if r.File != nil {
		if r.File.Path != path {
			return ast.ProtoFile{}, fmt.Errorf("search result for %q returned file %q", path, r.File.Path)
		}
		return *r.File, nil
	}
	if r.Source == nil {
		return ast.ProtoFile{}, fmt.Errorf("search result for %q is empty", path)
	}
	return parser.Parse(path, r.Source, h)
}
