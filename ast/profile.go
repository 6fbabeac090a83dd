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

// SyntaxWire2 is the only syntax accepted in profile files.
const SyntaxWire2 = "wire2"

// TypeConfig decorates a type defined in a .proto file with the target
// type and adapter a code generator should use for it, plus extra
// options.
type TypeConfig struct {
	// Type is the qualified name of the decorated proto type.
	Type string
	// Target is the name of the type in the generated language. It is
	// empty when the config only carries options.
	Target string
	// Adapter names the adapter for Target, written "Class#FIELD".
	Adapter       string
	Options       []Option
	Documentation string
	Location      SourcePos
}

func (t TypeConfig) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, t.Documentation)
	b.WriteString("type ")
	b.WriteString(t.Type)
	b.WriteString(" {")
	if t.Target == "" && len(t.Options) == 0 {
		b.WriteString("}\n")
		return b.String()
	}
	b.WriteByte('\n')
	if t.Target != "" {
		schematext.AppendIndented(&b, "target "+t.Target+" using "+t.Adapter+";")
	}
	for _, o := range t.Options {
		schematext.AppendIndented(&b, o.Declaration())
	}
	b.WriteString("}\n")
	return b.String()
}

func (t TypeConfig) Position() SourcePos {
	return t.Location
}

// ProfileFile is a parsed .wire file. It never declares types; its
// type configs refer to types declared in the .proto files it imports.
type ProfileFile struct {
	Path          string
	Documentation string
	Syntax        string
	Package       string
	Imports       []string
	// ImportLocations holds the position of each import statement, keyed
	// by path.
	ImportLocations map[string]SourcePos
	TypeConfigs     []TypeConfig
	Location        SourcePos
}

func (p ProfileFile) Serialize() string {
	var blocks []string

	var header strings.Builder
	schematext.AppendDocumentation(&header, p.Documentation)
	if p.Syntax != "" {
		header.WriteString("syntax = ")
		header.WriteString(schematext.Quote(p.Syntax))
		header.WriteString(";\n")
	}
	if p.Package != "" {
		header.WriteString("package ")
		header.WriteString(p.Package)
		header.WriteString(";\n")
	}
	if header.Len() > 0 {
		blocks = append(blocks, header.String())
	}
	if len(p.Imports) > 0 {
		var imports strings.Builder
		appendImports(&imports, "", p.Imports)
		blocks = append(blocks, imports.String())
	}
	for _, t := range p.TypeConfigs {
		blocks = append(blocks, t.Serialize())
	}
	return strings.Join(blocks, "\n")
}

// ImportPosition returns the position of the statement that imports
// path, or the file's own position when it is unknown.
func (p ProfileFile) ImportPosition(path string) SourcePos {
	if pos, ok := p.ImportLocations[path]; ok {
		return pos
	}
	return p.Position()
}

func (p ProfileFile) Position() SourcePos {
	if p.Location.Filename == "" {
		return UnknownPos(p.Path)
	}
	return p.Location
}
