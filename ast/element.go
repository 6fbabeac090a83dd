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

// Element is implemented by every node of the schema model.
type Element interface {
	// Serialize renders the element as canonical source text, including
	// its documentation and a trailing newline where the syntax has one.
	Serialize() string
	// Position returns where the element was declared.
	Position() SourcePos
}

// TypeElement is a named type declaration: a Message or an Enum. It is
// used wherever messages and enums are declared side by side and their
// relative order must be kept.
type TypeElement interface {
	Element
	TypeName() string
	typeElement()
}

var (
	_ Element = Option{}
	_ Element = Field{}
	_ Element = Group{}
	_ Element = OneOf{}
	_ Element = EnumConstant{}
	_ Element = Reserved{}
	_ Element = Extensions{}
	_ Element = Extend{}
	_ Element = RPC{}
	_ Element = Service{}
	_ Element = ProtoFile{}
	_ Element = TypeConfig{}
	_ Element = ProfileFile{}

	_ TypeElement = Message{}
	_ TypeElement = Enum{}
)

// Label is the cardinality label of a field.
type Label int

const (
	// LabelNone is used for proto3 singular fields, oneof members and
	// map fields.
	LabelNone Label = iota
	LabelOptional
	LabelRequired
	LabelRepeated
)

func (l Label) String() string {
	switch l {
	case LabelOptional:
		return "optional"
	case LabelRequired:
		return "required"
	case LabelRepeated:
		return "repeated"
	default:
		return ""
	}
}

// appendSection writes a newline followed by each rendered child,
// indented one level. Nothing is written when there are no children.
func appendSection[T any](b *strings.Builder, children []T, render func(T) string) {
	if len(children) == 0 {
		return
	}
	b.WriteByte('\n')
	for _, c := range children {
		schematext.AppendIndented(b, render(c))
	}
}

func serialize[T Element](e T) string {
	return e.Serialize()
}

func declaration(o Option) string {
	return o.Declaration()
}
