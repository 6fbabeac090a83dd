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
	"strconv"
	"strings"

	"github.com/bufbuild/protoschema/internal/schematext"
)

// Field is a field of a message, of a oneof, of a group, or of an
// extend block.
type Field struct {
	Label Label
	// Type is the type as written in source: a scalar name, a
	// (possibly qualified) message or enum name, or "map<K, V>".
	Type          string
	Name          string
	Tag           int32
	Options       []Option
	Documentation string
	Location      SourcePos
}

func (f Field) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, f.Documentation)
	if f.Label != LabelNone {
		b.WriteString(f.Label.String())
		b.WriteByte(' ')
	}
	b.WriteString(f.Type)
	b.WriteByte(' ')
	b.WriteString(f.Name)
	b.WriteString(" = ")
	b.WriteString(strconv.FormatInt(int64(f.Tag), 10))
	appendCompactOptions(&b, f.Options)
	b.WriteString(";\n")
	return b.String()
}

func (f Field) Position() SourcePos {
	return f.Location
}

// IsMap reports whether the field is declared with a map<K, V> type.
func (f Field) IsMap() bool {
	_, _, ok := ParseMapType(f.Type)
	return ok
}

// Group is the legacy proto2 construct that declares a field and its
// message type in one statement. The group's name is also the name of
// the nested message type; the field name is the lower-cased name.
type Group struct {
	Label         Label
	Name          string
	Tag           int32
	Options       []Option
	Fields        []Field
	Documentation string
	Location      SourcePos
}

func (g Group) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, g.Documentation)
	if g.Label != LabelNone {
		b.WriteString(g.Label.String())
		b.WriteByte(' ')
	}
	b.WriteString("group ")
	b.WriteString(g.Name)
	b.WriteString(" = ")
	b.WriteString(strconv.FormatInt(int64(g.Tag), 10))
	appendCompactOptions(&b, g.Options)
	b.WriteString(" {")
	appendSection(&b, g.Fields, serialize[Field])
	b.WriteString("}\n")
	return b.String()
}

func (g Group) Position() SourcePos {
	return g.Location
}

// FieldName returns the name of the field a group declares, which is
// the group name in lower case.
func (g Group) FieldName() string {
	return strings.ToLower(g.Name)
}

// OneOf declares a set of fields of which at most one is set at a time.
type OneOf struct {
	Name          string
	Options       []Option
	Fields        []Field
	Groups        []Group
	Documentation string
	Location      SourcePos
}

func (o OneOf) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, o.Documentation)
	b.WriteString("oneof ")
	b.WriteString(o.Name)
	b.WriteString(" {")
	appendSection(&b, o.Options, declaration)
	appendSection(&b, o.Fields, serialize[Field])
	appendSection(&b, o.Groups, serialize[Group])
	b.WriteString("}\n")
	return b.String()
}

func (o OneOf) Position() SourcePos {
	return o.Location
}
