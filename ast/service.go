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

// RPC is one method of a service.
type RPC struct {
	Name              string
	RequestType       string
	ResponseType      string
	RequestStreaming  bool
	ResponseStreaming bool
	Options           []Option
	Documentation     string
	Location          SourcePos
}

func (r RPC) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, r.Documentation)
	b.WriteString("rpc ")
	b.WriteString(r.Name)
	b.WriteString(" (")
	if r.RequestStreaming {
		b.WriteString("stream ")
	}
	b.WriteString(r.RequestType)
	b.WriteString(") returns (")
	if r.ResponseStreaming {
		b.WriteString("stream ")
	}
	b.WriteString(r.ResponseType)
	b.WriteByte(')')
	if len(r.Options) == 0 {
		b.WriteString(";\n")
		return b.String()
	}
	b.WriteString(" {\n")
	for _, o := range r.Options {
		schematext.AppendIndented(&b, o.Declaration())
	}
	b.WriteString("}\n")
	return b.String()
}

func (r RPC) Position() SourcePos {
	return r.Location
}

// Service is a service declaration.
type Service struct {
	Name          string
	Options       []Option
	RPCs          []RPC
	Documentation string
	Location      SourcePos
}

func (s Service) Serialize() string {
	var b strings.Builder
	schematext.AppendDocumentation(&b, s.Documentation)
	b.WriteString("service ")
	b.WriteString(s.Name)
	b.WriteString(" {")
	appendSection(&b, s.Options, declaration)
	appendSection(&b, s.RPCs, serialize[RPC])
	b.WriteString("}\n")
	return b.String()
}

func (s Service) Position() SourcePos {
	return s.Location
}

// RPC returns the method with the given name.
func (s Service) RPC(name string) (RPC, bool) {
	for _, r := range s.RPCs {
		if r.Name == name {
			return r, true
		}
	}
	return RPC{}, false
}
