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

// TagRange is an inclusive range of field numbers or enum values. When
// Max is set the range was written as "N to max" and End holds the
// maximum for its context (MaxTag or MaxEnumValue).
type TagRange struct {
	Start, End int32
	Max        bool
}

func (r TagRange) String() string {
	switch {
	case r.Max:
		return strconv.FormatInt(int64(r.Start), 10) + " to max"
	case r.Start == r.End:
		return strconv.FormatInt(int64(r.Start), 10)
	default:
		return strconv.FormatInt(int64(r.Start), 10) + " to " + strconv.FormatInt(int64(r.End), 10)
	}
}

// Contains reports whether tag falls within the range.
func (r TagRange) Contains(tag int32) bool {
	return tag >= r.Start && tag <= r.End
}

func joinRanges(ranges []TagRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// Reserved declares field numbers (or enum values) or names that may not
// be used. A single declaration holds either ranges or names.
type Reserved struct {
	Ranges        []TagRange
	Names         []string
	Documentation string
	Location      SourcePos
}

func (r Reserved) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, r.Documentation)
	b.WriteString("reserved ")
	if len(r.Names) > 0 {
		for i, name := range r.Names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(schematext.Quote(name))
		}
	} else {
		b.WriteString(joinRanges(r.Ranges))
	}
	b.WriteString(";\n")
	return b.String()
}

func (r Reserved) Position() SourcePos {
	return r.Location
}

// Extensions declares the field numbers of a message that extend
// blocks in other files may use.
type Extensions struct {
	Ranges        []TagRange
	Options       []Option
	Documentation string
	Location      SourcePos
}

func (e Extensions) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, e.Documentation)
	b.WriteString("extensions ")
	b.WriteString(joinRanges(e.Ranges))
	appendCompactOptions(&b, e.Options)
	b.WriteString(";\n")
	return b.String()
}

func (e Extensions) Position() SourcePos {
	return e.Location
}

// Extend adds extension fields to the message named by Name.
type Extend struct {
	// Name is the extended message type as written in source.
	Name          string
	Fields        []Field
	Groups        []Group
	Documentation string
	Location      SourcePos
}

func (e Extend) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, e.Documentation)
	b.WriteString("extend ")
	b.WriteString(e.Name)
	b.WriteString(" {")
	appendSection(&b, e.Fields, serialize[Field])
	appendSection(&b, e.Groups, serialize[Group])
	b.WriteString("}\n")
	return b.String()
}

func (e Extend) Position() SourcePos {
	return e.Location
}

// Message is a message type declaration.
type Message struct {
	Name       string
	Options    []Option
	Reserved   []Reserved
	Extensions []Extensions
	Fields     []Field
	OneOfs     []OneOf
	Groups     []Group
	// Types holds nested messages and enums in declaration order.
	Types         []TypeElement
	Extends       []Extend
	Documentation string
	Location      SourcePos
}

func (m Message) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, m.Documentation)
	b.WriteString("message ")
	b.WriteString(m.Name)
	b.WriteString(" {")
	appendSection(&b, m.Options, declaration)
	appendSection(&b, m.Reserved, serialize[Reserved])
	appendSection(&b, m.Extensions, serialize[Extensions])
	appendSection(&b, m.Fields, serialize[Field])
	appendSection(&b, m.OneOfs, serialize[OneOf])
	appendSection(&b, m.Groups, serialize[Group])
	appendSection(&b, m.Types, serialize[TypeElement])
	appendSection(&b, m.Extends, serialize[Extend])
	b.WriteString("}\n")
	return b.String()
}

func (m Message) Position() SourcePos {
	return m.Location
}

func (m Message) TypeName() string {
	return m.Name
}

func (Message) typeElement() {}

// Field returns the field with the given name, looking through plain
// fields, oneof members and group fields.
func (m Message) Field(name string) (Field, bool) {
	for _, f := range m.AllFields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AllFields returns every field of the message in canonical order:
// plain fields, then oneof members (with the fields of groups declared
// inside oneofs), then group fields. Group fields are reported with the
// lower-cased group name and the group name as type.
func (m Message) AllFields() []Field {
	fields := make([]Field, 0, len(m.Fields))
	fields = append(fields, m.Fields...)
	for _, o := range m.OneOfs {
		fields = append(fields, o.Fields...)
		for _, g := range o.Groups {
			fields = append(fields, g.asField())
		}
	}
	for _, g := range m.Groups {
		fields = append(fields, g.asField())
	}
	return fields
}

func (g Group) asField() Field {
	return Field{
		Label:         g.Label,
		Type:          g.Name,
		Name:          g.FieldName(),
		Tag:           g.Tag,
		Options:       g.Options,
		Documentation: g.Documentation,
		Location:      g.Location,
	}
}
