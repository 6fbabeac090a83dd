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

// Package schematext contains the text building helpers shared by the
// serializers of every schema element.
package schematext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Indent is the text used for one level of indentation.
const Indent = "  "

// AppendDocumentation writes doc as a block of line comments. Each line
// of doc becomes one "// " line; empty lines become a bare "//". Nothing
// is written when doc is empty.
func AppendDocumentation(b *strings.Builder, doc string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		if line == "" {
			b.WriteString("//\n")
			continue
		}
		b.WriteString("// ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// AppendIndented writes value with each line indented one level. A
// trailing newline in value does not produce an extra empty line, and
// empty lines are written without indentation.
func AppendIndented(b *strings.Builder, value string) {
	lines := strings.Split(value, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for _, line := range lines {
		if line != "" {
			b.WriteString(Indent)
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
}

// Indented returns value as AppendIndented would write it.
func Indented(value string) string {
	var b strings.Builder
	AppendIndented(&b, value)
	return b.String()
}

// Quote renders s as a double-quoted protobuf string literal.
//
// Printable characters are kept as-is, including non-ASCII ones. Quotes,
// backslashes and the common control characters use their short escapes;
// any other control byte, and any byte that is not valid UTF-8, is written
// as a three digit octal escape.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
			writeOctal(&b, s[i])
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < utf8.RuneSelf && !unicode.IsPrint(r):
			writeOctal(&b, byte(r))
		case r >= utf8.RuneSelf && !unicode.IsPrint(r):
			for j := 0; j < size; j++ {
				writeOctal(&b, s[i+j])
			}
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
	return b.String()
}

func writeOctal(b *strings.Builder, c byte) {
	b.WriteByte('\\')
	b.WriteByte('0' + (c>>6)&7)
	b.WriteByte('0' + (c>>3)&7)
	b.WriteByte('0' + c&7)
}
