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

// OptionKind identifies the shape of an option value.
type OptionKind int

const (
	KindString OptionKind = iota
	KindBool
	KindNumber
	// KindEnum is an identifier value, usually the name of an enum
	// constant (also used for inf and nan).
	KindEnum
	// KindMap is a message literal: an ordered list of fields.
	KindMap
	KindList
)

func (k OptionKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindEnum:
		return "enum"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// OptionNamePart is one dot-separated component of an option name.
// Extension parts are written in parentheses and name an extension
// field, e.g. the "foo.bar" in "(foo.bar).baz".
type OptionNamePart struct {
	Name      string
	Extension bool
}

// OptionName is the full name of an option, e.g. "deprecated" or
// "(my.custom).sub_field".
type OptionName []OptionNamePart

// SimpleOptionName returns the name of a builtin option.
func SimpleOptionName(name string) OptionName {
	return OptionName{{Name: name}}
}

func (n OptionName) String() string {
	var b strings.Builder
	for i, part := range n {
		if i > 0 {
			b.WriteByte('.')
		}
		if part.Extension {
			b.WriteByte('(')
			b.WriteString(part.Name)
			b.WriteByte(')')
		} else {
			b.WriteString(part.Name)
		}
	}
	return b.String()
}

// IsSimple reports whether n is a single non-extension name such as
// "deprecated" or "java_package".
func (n OptionName) IsSimple() bool {
	return len(n) == 1 && !n[0].Extension
}

// OptionField is one field of a message literal option value.
type OptionField struct {
	Name string
	// Extension is true for keys written as [pkg.ext].
	Extension bool
	Value     OptionValue
}

// OptionValue is the value of an option. Scalar holds the value for
// strings (unquoted), bools, numbers (literal text, including a leading
// minus sign) and identifiers. Fields holds a message literal and List
// holds a list literal.
type OptionValue struct {
	Kind   OptionKind
	Scalar string
	Fields []OptionField
	List   []OptionValue
}

func StringValue(s string) OptionValue {
	return OptionValue{Kind: KindString, Scalar: s}
}

func BoolValue(v bool) OptionValue {
	if v {
		return OptionValue{Kind: KindBool, Scalar: "true"}
	}
	return OptionValue{Kind: KindBool, Scalar: "false"}
}

func NumberValue(text string) OptionValue {
	return OptionValue{Kind: KindNumber, Scalar: text}
}

func EnumValue(ident string) OptionValue {
	return OptionValue{Kind: KindEnum, Scalar: ident}
}

func MapValue(fields ...OptionField) OptionValue {
	return OptionValue{Kind: KindMap, Fields: fields}
}

func ListValue(values ...OptionValue) OptionValue {
	return OptionValue{Kind: KindList, List: values}
}

// String renders the value as it appears after the "=" of an option.
func (v OptionValue) String() string {
	switch v.Kind {
	case KindString:
		return schematext.Quote(v.Scalar)
	case KindMap:
		if len(v.Fields) == 0 {
			return "{}"
		}
		var b strings.Builder
		b.WriteString("{\n")
		for i, f := range v.Fields {
			entry := f.key() + ": " + f.Value.String()
			if i < len(v.Fields)-1 {
				entry += ","
			}
			schematext.AppendIndented(&b, entry)
		}
		b.WriteByte('}')
		return b.String()
	case KindList:
		if len(v.List) == 0 {
			return "[]"
		}
		var b strings.Builder
		b.WriteString("[\n")
		for i, item := range v.List {
			entry := item.String()
			if i < len(v.List)-1 {
				entry += ","
			}
			schematext.AppendIndented(&b, entry)
		}
		b.WriteByte(']')
		return b.String()
	default:
		return v.Scalar
	}
}

func (f OptionField) key() string {
	if f.Extension {
		return "[" + f.Name + "]"
	}
	return f.Name
}

// Option is a name/value pair attached to a file, type, field, or any
// other element that accepts options.
type Option struct {
	Name  OptionName
	Value OptionValue
	// Documentation is only rendered by Declaration, since compact
	// options inside brackets cannot carry comments.
	Documentation string
	Location      SourcePos
}

// Serialize renders the option in its compact form, "name = value",
// without a terminating semicolon.
func (o Option) Serialize() string {
	return o.Name.String() + " = " + o.Value.String()
}

// Declaration renders the option as a standalone statement,
// "option name = value;", preceded by its documentation.
func (o Option) Declaration() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, o.Documentation)
	b.WriteString("option ")
	b.WriteString(o.Serialize())
	b.WriteString(";\n")
	return b.String()
}

func (o Option) Position() SourcePos {
	return o.Location
}

// FindOption returns the first option in opts with the given simple
// (non-extension) name.
func FindOption(opts []Option, name string) (Option, bool) {
	for _, o := range opts {
		if o.Name.IsSimple() && o.Name[0].Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// appendCompactOptions writes " [a = 1]" for one option, and the
// bracketed list with one option per line for several.
func appendCompactOptions(b *strings.Builder, opts []Option) {
	switch len(opts) {
	case 0:
		return
	case 1:
		b.WriteString(" [")
		b.WriteString(opts[0].Serialize())
		b.WriteByte(']')
		return
	}
	b.WriteString(" [\n")
	for i, o := range opts {
		entry := o.Serialize()
		if i < len(opts)-1 {
			entry += ","
		}
		schematext.AppendIndented(b, entry)
	}
	b.WriteByte(']')
}
