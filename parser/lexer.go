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

package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bufbuild/protoschema/ast"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenInt
	tokenFloat
	tokenString
	tokenSymbol
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of file"
	case tokenIdent:
		return "identifier"
	case tokenInt:
		return "int literal"
	case tokenFloat:
		return "float literal"
	case tokenString:
		return "string literal"
	default:
		return "symbol"
	}
}

// token is one lexical element. For string literals, text is the decoded
// value; for everything else it is the source text.
type token struct {
	kind tokenKind
	text string
	pos  ast.SourcePos
	// doc is the comment group that directly precedes the token.
	doc string
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) isSymbol(c byte) bool {
	return t.kind == tokenSymbol && len(t.text) == 1 && t.text[0] == c
}

func (t token) describe() string {
	switch t.kind {
	case tokenEOF:
		return "end of file"
	case tokenString:
		return "string literal"
	default:
		return strconv.Quote(t.text)
	}
}

type runeReader struct {
	data []byte
	pos  int
	err  error
	mark int
}

func (rr *runeReader) readRune() (r rune, size int, err error) {
	if rr.err != nil {
		return 0, 0, rr.err
	}
	if rr.pos == len(rr.data) {
		rr.err = io.EOF
		return 0, 0, rr.err
	}
	r, sz := utf8.DecodeRune(rr.data[rr.pos:])
	if r == utf8.RuneError && sz <= 1 {
		rr.err = fmt.Errorf("invalid UTF8 at offset %d: %x", rr.pos, rr.data[rr.pos])
		return 0, 0, rr.err
	}
	rr.pos += sz
	return r, sz, nil
}

func (rr *runeReader) offset() int {
	return rr.pos
}

func (rr *runeReader) unreadRune(sz int) {
	newPos := rr.pos - sz
	if newPos < rr.mark {
		panic("unread past mark")
	}
	rr.pos = newPos
}

func (rr *runeReader) setMark() {
	rr.mark = rr.pos
}

func (rr *runeReader) getMark() string {
	return string(rr.data[rr.mark:rr.pos])
}

// comment is one // or /* */ comment with its text cleaned of
// delimiters.
type comment struct {
	lines     []string
	startLine int
	endLine   int
}

type lexer struct {
	input *runeReader
	info  *ast.FileInfo

	// prevLine is the line on which the previous token ended.
	prevLine int
	comments []comment
}

var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

func newLexer(in io.Reader, filename string) (*lexer, error) {
	contents, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	// if file has UTF8 byte order marker preface, consume it
	contents = bytes.TrimPrefix(contents, utf8Bom)
	return &lexer{
		input: &runeReader{data: contents},
		info:  ast.NewFileInfo(filename, contents),
	}, nil
}

func (l *lexer) maybeNewLine(r rune) {
	if r == '\n' {
		l.info.AddLine(l.input.offset())
	}
}

func (l *lexer) pos(offset int) ast.SourcePos {
	return l.info.SourcePos(offset)
}

func (l *lexer) errorf(offset int, format string, args ...interface{}) error {
	return &lexError{pos: l.pos(offset), err: fmt.Errorf(format, args...)}
}

// lexError is converted into a ParseError by the parser.
type lexError struct {
	pos ast.SourcePos
	err error
}

func (e *lexError) Error() string {
	return e.err.Error()
}

// next returns the next token. Comments are accumulated and the group
// that directly precedes the token becomes its doc.
func (l *lexer) next() (token, error) {
	l.comments = l.comments[:0]
	for {
		l.input.setMark()
		start := l.input.offset()
		c, _, err := l.input.readRune()
		if err == io.EOF {
			return token{kind: tokenEOF, pos: l.pos(start)}, nil
		} else if err != nil {
			return token{}, l.errorf(start, "%v", err)
		}

		if strings.ContainsRune("\n\r\t\f\v ", c) {
			// skip whitespace
			l.maybeNewLine(c)
			continue
		}

		if c == '.' {
			// decimal literals could start with a dot
			cn, szn, err := l.input.readRune()
			if err == nil {
				if cn >= '0' && cn <= '9' {
					l.readNumber()
					return l.numberToken(start)
				}
				l.input.unreadRune(szn)
			}
			return l.token(tokenSymbol, ".", start), nil
		}

		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			l.readIdentifier()
			return l.token(tokenIdent, l.input.getMark(), start), nil
		}

		if c >= '0' && c <= '9' {
			l.readNumber()
			return l.numberToken(start)
		}

		if c == '\'' || c == '"' {
			str, err := l.readStringLiteral(c)
			if err != nil {
				return token{}, l.errorf(start, "%v", err)
			}
			return l.token(tokenString, str, start), nil
		}

		if c == '/' {
			cn, szn, err := l.input.readRune()
			if err == nil {
				if cn == '/' {
					line := l.pos(start).Line
					l.skipToEndOfLineComment()
					l.addComment(lineCommentText(l.input.getMark()), line, line)
					continue
				}
				if cn == '*' {
					line := l.pos(start).Line
					if ok := l.skipToEndOfBlockComment(); !ok {
						return token{}, l.errorf(start, "block comment never terminates, unexpected EOF")
					}
					text := l.input.getMark()
					l.addComment(blockCommentText(text), line, line+strings.Count(text, "\n"))
					continue
				}
				l.input.unreadRune(szn)
			}
		}

		if c > 127 {
			return token{}, l.errorf(start, "invalid character %q", c)
		}
		return l.token(tokenSymbol, string(c), start), nil
	}
}

func (l *lexer) token(kind tokenKind, text string, start int) token {
	pos := l.pos(start)
	tok := token{kind: kind, text: text, pos: pos, doc: l.doc(pos.Line)}
	l.prevLine = l.pos(l.input.offset()).Line
	return tok
}

func (l *lexer) numberToken(start int) (token, error) {
	text := l.input.getMark()
	kind, err := classifyNumber(text)
	if err != nil {
		return token{}, l.errorf(start, "%v", err)
	}
	return l.token(kind, text, start), nil
}

// classifyNumber checks that text is a valid int or float literal.
func classifyNumber(text string) (tokenKind, error) {
	if strings.ContainsRune(text, '_') {
		return 0, fmt.Errorf("invalid syntax in numeric value: %s", text)
	}
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		if _, err := parseIntLiteral(text); err != nil {
			return 0, numError(err, "hexadecimal integer", text[2:])
		}
		return tokenInt, nil
	}
	if strings.ContainsAny(text, ".eE") {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return 0, numError(err, "float", text)
		}
		return tokenFloat, nil
	}
	if _, err := parseIntLiteral(text); err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			// too big to be an int, so it is a float
			if _, err := strconv.ParseFloat(text, 64); err == nil {
				return tokenFloat, nil
			}
		}
		return 0, numError(err, "integer", text)
	}
	return tokenInt, nil
}

// parseIntLiteral parses a decimal, octal (leading zero) or hexadecimal
// integer literal.
func parseIntLiteral(text string) (uint64, error) {
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		return strconv.ParseUint(text[2:], 16, 64)
	case len(text) > 1 && text[0] == '0':
		return strconv.ParseUint(text[1:], 8, 64)
	default:
		return strconv.ParseUint(text, 10, 64)
	}
}

func (l *lexer) addComment(lines []string, startLine, endLine int) {
	l.comments = append(l.comments, comment{lines: lines, startLine: startLine, endLine: endLine})
}

// doc returns the text of the contiguous comment group that ends on the
// line before line (or on line itself). Comments that start on the line
// where the previous token ended are trailing comments and are dropped,
// as are groups separated from the token by a blank line.
func (l *lexer) doc(line int) string {
	end := len(l.comments)
	if end == 0 {
		return ""
	}
	last := l.comments[end-1]
	if last.endLine < line-1 {
		return ""
	}
	begin := end - 1
	for begin > 0 && l.comments[begin-1].endLine >= l.comments[begin].startLine-1 {
		begin--
	}
	for begin < end && l.prevLine > 0 && l.comments[begin].startLine <= l.prevLine {
		begin++
	}
	var lines []string
	for _, c := range l.comments[begin:end] {
		lines = append(lines, c.lines...)
	}
	return strings.Join(lines, "\n")
}

func lineCommentText(raw string) []string {
	text := strings.TrimPrefix(raw, "//")
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return []string{strings.TrimPrefix(text, " ")}
}

func blockCommentText(raw string) []string {
	text := strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "*") && i > 0 {
			line = strings.TrimPrefix(strings.TrimPrefix(trimmed, "*"), " ")
		} else if i > 0 {
			line = trimmed
		} else {
			line = strings.TrimPrefix(strings.TrimLeft(line, "*"), " ")
		}
		lines[i] = strings.TrimRight(line, " \t")
	}
	if len(lines) > 1 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (l *lexer) readNumber() {
	allowExpSign := false
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			break
		}
		if (c == '-' || c == '+') && !allowExpSign {
			l.input.unreadRune(sz)
			break
		}
		allowExpSign = false
		if c != '.' && c != '_' && (c < '0' || c > '9') &&
			(c < 'a' || c > 'z') && (c < 'A' || c > 'Z') &&
			c != '-' && c != '+' {
			// no more chars in the number token
			l.input.unreadRune(sz)
			break
		}
		if c == 'e' || c == 'E' {
			// scientific notation char can be followed by
			// an exponent sign
			allowExpSign = true
		}
	}
}

func numError(err error, kind, s string) error {
	var ne *strconv.NumError
	if !errors.As(err, &ne) {
		return err
	}
	if ne.Err == strconv.ErrRange {
		return fmt.Errorf("value out of range for %s: %s", kind, s)
	}
	// syntax error
	return fmt.Errorf("invalid syntax in %s value: %s", kind, s)
}

func (l *lexer) readIdentifier() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			break
		}
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			l.input.unreadRune(sz)
			break
		}
	}
}

func (l *lexer) readStringLiteral(quote rune) (string, error) {
	var buf bytes.Buffer
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if c == '\n' {
			return "", errors.New("encountered end-of-line before end of string literal")
		}
		if c == quote {
			break
		}
		if c == 0 {
			return "", errors.New("null character ('\\0') not allowed in string literal")
		}
		if c != '\\' {
			buf.WriteRune(c)
			continue
		}
		// escape sequence
		c, _, err = l.input.readRune()
		if err != nil {
			return "", err
		}
		switch {
		case c == 'x' || c == 'X':
			if err := l.readHexEscape(&buf); err != nil {
				return "", err
			}
		case c >= '0' && c <= '7':
			if err := l.readOctalEscape(&buf, c); err != nil {
				return "", err
			}
		case c == 'u':
			if err := l.readUnicodeEscape(&buf, 'u', 4); err != nil {
				return "", err
			}
		case c == 'U':
			if err := l.readUnicodeEscape(&buf, 'U', 8); err != nil {
				return "", err
			}
		default:
			b, ok := simpleEscapes[c]
			if !ok {
				return "", fmt.Errorf("invalid escape sequence: %q", "\\"+string(c))
			}
			buf.WriteByte(b)
		}
	}
	return buf.String(), nil
}

var simpleEscapes = map[rune]byte{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'?':  '?',
}

func (l *lexer) readHexEscape(buf *bytes.Buffer) error {
	c, _, err := l.input.readRune()
	if err != nil {
		return err
	}
	c2, sz2, err := l.input.readRune()
	if err != nil {
		return err
	}
	var hex string
	if (c2 < '0' || c2 > '9') && (c2 < 'a' || c2 > 'f') && (c2 < 'A' || c2 > 'F') {
		l.input.unreadRune(sz2)
		hex = string(c)
	} else {
		hex = string([]rune{c, c2})
	}
	i, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return fmt.Errorf("invalid hex escape: \\x%q", hex)
	}
	buf.WriteByte(byte(i))
	return nil
}

func (l *lexer) readOctalEscape(buf *bytes.Buffer, c rune) error {
	octal := string(c)
	for len(octal) < 3 {
		cn, sz, err := l.input.readRune()
		if err != nil {
			return err
		}
		if cn < '0' || cn > '7' {
			l.input.unreadRune(sz)
			break
		}
		octal += string(cn)
	}
	i, err := strconv.ParseInt(octal, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid octal escape: \\%q", octal)
	}
	if i > 0xff {
		return fmt.Errorf("octal escape is out range, must be between 0 and 377: \\%q", octal)
	}
	buf.WriteByte(byte(i))
	return nil
}

func (l *lexer) readUnicodeEscape(buf *bytes.Buffer, marker rune, digits int) error {
	u := make([]rune, digits)
	for i := range u {
		c, _, err := l.input.readRune()
		if err != nil {
			return err
		}
		u[i] = c
	}
	i, err := strconv.ParseInt(string(u), 16, 32)
	if err != nil {
		return fmt.Errorf("invalid unicode escape: \\%c%q", marker, string(u))
	}
	if i > 0x10ffff || i < 0 {
		return fmt.Errorf("unicode escape is out of range, must be between 0 and 0x10ffff: \\%c%q", marker, string(u))
	}
	buf.WriteRune(rune(i))
	return nil
}

func (l *lexer) skipToEndOfLineComment() {
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			return
		}
		if c == '\n' {
			l.info.AddLine(l.input.offset())
			return
		}
	}
}

func (l *lexer) skipToEndOfBlockComment() bool {
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			return false
		}
		l.maybeNewLine(c)
		if c == '*' {
			c, sz, err := l.input.readRune()
			if err != nil {
				return false
			}
			if c == '/' {
				return true
			}
			l.input.unreadRune(sz)
		}
	}
}
