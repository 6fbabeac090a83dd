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

// EnumConstant is one named value of an enum.
type EnumConstant struct {
	Name          string
	Tag           int32
	Options       []Option
	Documentation string
	Location      SourcePos
}

func (c EnumConstant) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, c.Documentation)
	b.WriteString(c.Name)
	b.WriteString(" = ")
	b.WriteString(strconv.FormatInt(int64(c.Tag), 10))
	appendCompactOptions(&b, c.Options)
	b.WriteString(";\n")
	return b.String()
}

func (c EnumConstant) Position() SourcePos {
	return c.Location
}

// Enum is an enum type declaration.
type Enum struct {
	Name          string
	Options       []Option
	Reserved      []Reserved
	Constants     []EnumConstant
	Documentation string
	Location      SourcePos
}

func (e Enum) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, e.Documentation)
	b.WriteString("enum ")
	b.WriteString(e.Name)
	b.WriteString(" {")
	appendSection(&b, e.Options, declaration)
	appendSection(&b, e.Reserved, serialize[Reserved])
	appendSection(&b, e.Constants, serialize[EnumConstant])
	b.WriteString("}\n")
	return b.String()
}

func (e Enum) Position() SourcePos {
	return e.Location
}

func (e Enum) TypeName() string {
	return e.Name
}

func (Enum) typeElement() {}

// Constant returns the constant with the given name.
func (e Enum) Constant(name string) (EnumConstant, bool) {
	for _, c := range e.Constants {
		if c.Name == name {
			return c, true
		}
	}
	return EnumConstant{}, false
}
