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
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/fdp"
	"github.com/bufbuild/protoschema/linker"
)

// Schema is a linked set of files: every file reachable from the roots of
// a load through imports, and every profile. A Schema is immutable.
type Schema struct {
	files    []ast.ProtoFile
	byPath   map[string]int
	profiles []ast.ProfileFile
	linked   *linker.Result
}

func newSchema(files []ast.ProtoFile, profiles []ast.ProfileFile, linked *linker.Result) *Schema {
	files = append([]ast.ProtoFile(nil), files...)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	byPath := make(map[string]int, len(files))
	for i, file := range files {
		byPath[file.Path] = i
	}
	return &Schema{
		files:    files,
		byPath:   byPath,
		profiles: append([]ast.ProfileFile(nil), profiles...),
		linked:   linked,
	}
}

// Files returns the files of the schema, sorted by path.
func (s *Schema) Files() []ast.ProtoFile {
	return append([]ast.ProtoFile(nil), s.files...)
}

// File returns the file with the given path.
func (s *Schema) File(path string) (ast.ProtoFile, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return ast.ProtoFile{}, false
	}
	return s.files[i], true
}

// Profiles returns the profile files of the schema, sorted by path.
func (s *Schema) Profiles() []ast.ProfileFile {
	return append([]ast.ProfileFile(nil), s.profiles...)
}

// Profile returns the profile file with the given path.
func (s *Schema) Profile(path string) (ast.ProfileFile, bool) {
	for _, p := range s.profiles {
		if p.Path == path {
			return p, true
		}
	}
	return ast.ProfileFile{}, false
}

// Lookup returns the element with the given fully-qualified name. A
// leading dot is allowed.
func (s *Schema) Lookup(name string) (linker.Symbol, bool) {
	return s.linked.Symbols.Lookup(name)
}

// Types returns every message and enum of the schema, ordered by name.
func (s *Schema) Types() []linker.Symbol {
	return s.linked.Symbols.Types()
}

// Reference returns the linked reference of the given kind made by the
// element with the given fully-qualified name in the given file.
func (s *Schema) Reference(file, element string, kind linker.RefKind) (linker.Reference, bool) {
	return s.linked.Reference(file, element, kind)
}

// References returns every linked reference of the schema.
func (s *Schema) References() []linker.Reference {
	return s.linked.References()
}

// TypeConfigs returns the profile type configurations that apply to the
// type with the given fully-qualified name.
func (s *Schema) TypeConfigs(name string) []ast.TypeConfig {
	return s.linked.TypeConfigs(strings.TrimPrefix(name, "."))
}

// Linked returns the result of linking the schema.
func (s *Schema) Linked() *linker.Result {
	return s.linked
}

// Serialize renders every file of the schema in path order. Each file is
// preceded by a "// <path>" line.
func (s *Schema) Serialize() string {
	var b strings.Builder
	for i, file := range s.files {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("// ")
		b.WriteString(file.Path)
		b.WriteByte('\n')
		b.WriteString(file.Serialize())
	}
	return b.String()
}

// FileDescriptorProto returns the descriptor of the file with the given
// path.
func (s *Schema) FileDescriptorProto(path string, options ...fdp.DescriptorOption) (*descriptorpb.FileDescriptorProto, error) {
	file, ok := s.File(path)
	if !ok {
		return nil, &fs.PathError{Op: "describe", Path: path, Err: fs.ErrNotExist}
	}
	return fdp.FileDescriptorProto(file, s.linked, options...)
}

// DescriptorSet returns the descriptors of the files with the given paths
// and of every file they import. If paths is empty, every file of the
// schema is included.
func (s *Schema) DescriptorSet(paths []string, options ...fdp.DescriptorOption) (*descriptorpb.FileDescriptorSet, error) {
	files := s.files
	if len(paths) > 0 {
		files = make([]ast.ProtoFile, len(paths))
		for i, path := range paths {
			file, ok := s.File(path)
			if !ok {
				return nil, fmt.Errorf("describe %q: %w", path, fs.ErrNotExist)
			}
			files[i] = file
		}
	}
	return fdp.DescriptorSet(files, s.linked, options...)
}
