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

import "strings"

const (
	// MinTag is the smallest valid field number.
	MinTag = 1
	// MaxTag is the largest valid field number.
	MaxTag = 536870911
	// ReservedTagStart and ReservedTagEnd bound the field numbers reserved
	// for the protobuf implementation.
	ReservedTagStart = 19000
	ReservedTagEnd   = 19999
	// MaxEnumValue is the largest value an enum constant may have, and
	// the value of "max" in enum reserved ranges.
	MaxEnumValue = 2147483647
	// MinEnumValue is the smallest value an enum constant may have.
	MinEnumValue = -2147483648
)

var scalarTypes = map[string]struct{}{
	"double":   {},
	"float":    {},
	"int32":    {},
	"int64":    {},
	"uint32":   {},
	"uint64":   {},
	"sint32":   {},
	"sint64":   {},
	"fixed32":  {},
	"fixed64":  {},
	"sfixed32": {},
	"sfixed64": {},
	"bool":     {},
	"string":   {},
	"bytes":    {},
}

// IsScalarType reports whether name is one of the builtin scalar types.
func IsScalarType(name string) bool {
	_, ok := scalarTypes[name]
	return ok
}

// IsValidMapKeyType reports whether name may be used as the key type of
// a map field: any integral scalar, bool or string.
func IsValidMapKeyType(name string) bool {
	switch name {
	case "double", "float", "bytes":
		return false
	}
	return IsScalarType(name)
}

// IsIdentifier reports whether s is a valid simple identifier: a letter
// or underscore followed by letters, digits and underscores.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// IsQualifiedName reports whether s is a dot-separated sequence of
// identifiers, optionally with a leading dot.
func IsQualifiedName(s string) bool {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !IsIdentifier(part) {
			return false
		}
	}
	return true
}

// ParseMapType splits a "map<K, V>" type into its key and value types.
func ParseMapType(typ string) (key, value string, ok bool) {
	if !strings.HasPrefix(typ, "map<") || !strings.HasSuffix(typ, ">") {
		return "", "", false
	}
	inner := typ[len("map<") : len(typ)-1]
	key, value, ok = strings.Cut(inner, ",")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

// MapType renders the canonical "map<K, V>" type name.
func MapType(key, value string) string {
	return "map<" + key + ", " + value + ">"
}

// Qualify joins a scope and a simple name into a fully-qualified name.
func Qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}
