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

package ast

import (
	"strings"

	"github.com/bufbuild/protoschema/internal/schematext"
)

const (
	SyntaxProto2 = "proto2"
	SyntaxProto3 = "proto3"
)

// ProtoFile is a parsed .proto file. Imports are held as paths; the
// files they name are owned by whoever loaded them.
type ProtoFile struct {
	// Path is the logical path of the file within its source tree.
	Path          string
	Documentation string
	// Syntax is "proto2", "proto3", or empty when the file has no
	// syntax statement (which implies proto2).
	Syntax        string
	Package       string
	Imports       []string
	PublicImports []string
	WeakImports   []string
	// ImportLocations holds the position of each import statement, keyed
	// by path. It is nil for files that were not parsed from source.
	ImportLocations map[string]SourcePos
	Options         []Option
	Types           []TypeElement
	Extends         []Extend
	Services        []Service
	Location        SourcePos
}

// Serialize renders the whole file. The header, the imports, the file
// options and each top-level declaration are separate blocks with a
// single blank line between them.
func (f ProtoFile) Serialize() string {
	var blocks []string

	var header strings.Builder
	schematext.AppendDocumentation(&header, f.Documentation)
	if f.Syntax != "" {
		header.WriteString("syntax = ")
		header.WriteString(schematext.Quote(f.Syntax))
		header.WriteString(";\n")
	}
	if f.Package != "" {
		header.WriteString("package ")
		header.WriteString(f.Package)
		header.WriteString(";\n")
	}
	if header.Len() > 0 {
		blocks = append(blocks, header.String())
	}

	if len(f.Imports)+len(f.PublicImports)+len(f.WeakImports) > 0 {
		var imports strings.Builder
		appendImports(&imports, "", f.Imports)
		appendImports(&imports, "public ", f.PublicImports)
		appendImports(&imports, "weak ", f.WeakImports)
		blocks = append(blocks, imports.String())
	}

	if len(f.Options) > 0 {
		var options strings.Builder
		for _, o := range f.Options {
			options.WriteString(o.Declaration())
		}
		blocks = append(blocks, options.String())
	}

	for _, t := range f.Types {
		blocks = append(blocks, t.Serialize())
	}
	for _, e := range f.Extends {
		blocks = append(blocks, e.Serialize())
	}
	for _, s := range f.Services {
		blocks = append(blocks, s.Serialize())
	}
	return strings.Join(blocks, "\n")
}

func appendImports(b *strings.Builder, modifier string, paths []string) {
	for _, p := range paths {
		b.WriteString("import ")
		b.WriteString(modifier)
		b.WriteString(schematext.Quote(p))
		b.WriteString(";\n")
	}
}

func (f ProtoFile) Position() SourcePos {
	if f.Location.Filename == "" {
		return UnknownPos(f.Path)
	}
	return f.Location
}

// ImportPosition returns the position of the statement that imports
// path, or the file's own position when it is unknown.
func (f ProtoFile) ImportPosition(path string) SourcePos {
	if pos, ok := f.ImportLocations[path]; ok {
		return pos
	}
	return f.Position()
}

// IsProto3 reports whether the file uses proto3 syntax.
func (f ProtoFile) IsProto3() bool {
	return f.Syntax == SyntaxProto3
}

// AllImports returns every imported path: plain, then public, then weak.
func (f ProtoFile) AllImports() []string {
	all := make([]string, 0, len(f.Imports)+len(f.PublicImports)+len(f.WeakImports))
	all = append(all, f.Imports...)
	all = append(all, f.PublicImports...)
	return append(all, f.WeakImports...)
}

// Type returns the top-level message or enum with the given simple name.
func (f ProtoFile) Type(name string) (TypeElement, bool) {
	for _, t := range f.Types {
		if t.TypeName() == name {
			return t, true
		}
	}
	return nil, false
}

// Service returns the service with the given simple name.
func (f ProtoFile) Service(name string) (Service, bool) {
	for _, s := range f.Services {
		if s.Name == name {
			return s, true
		}
	}
	return Service{}, false
}

// Name returns the base name of the file without its extension, e.g.
// "simple_message" for "squareup/protos/person/simple_message.proto".
func (f ProtoFile) Name() string {
	name := f.Path
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".proto")
}

// GoPackage returns the value of the go_package file option, if present.
func (f ProtoFile) GoPackage() (string, bool) {
	return f.stringOption("go_package")
}

// JavaPackage returns the value of the java_package file option, if present.
func (f ProtoFile) JavaPackage() (string, bool) {
	return f.stringOption("java_package")
}

func (f ProtoFile) stringOption(name string) (string, bool) {
	o, ok := FindOption(f.Options, name)
	if !ok || o.Value.Kind != KindString {
		return "", false
	}
	return o.Value.Scalar, true
}
