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
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/reporter"
)

// Parse parses the given source code into a ProtoFile. The filename is
// recorded in the file's Path and in every position.
//
// A syntax error stops the parse and is reported to the handler as a
// *reporter.ParseError. When the file parses, it is validated and every
// problem found is reported. Parse returns a non-nil error whenever any
// error was reported for this file; the error is the one returned by the
// handler's reporter, or reporter.ErrInvalidSource if the reporter did not
// ask to abort.
func Parse(filename string, r io.Reader, handler *reporter.Handler) (ast.ProtoFile, error) {
	p, err := newParser(filename, r, handler)
	if err != nil {
		return ast.ProtoFile{}, err
	}
	file, err := p.parseFile()
	if err != nil {
		return ast.ProtoFile{}, p.abort(err)
	}
	if err := validateFile(p, file); err != nil {
		return ast.ProtoFile{}, err
	}
	if err := p.result(); err != nil {
		return ast.ProtoFile{}, err
	}
	return file, nil
}

type parser struct {
	lex      *lexer
	tok      token
	filename string
	handler  *reporter.Handler
	// failed is set once any error has been reported for the file.
	failed bool
}

func newParser(filename string, r io.Reader, handler *reporter.Handler) (*parser, error) {
	lex, err := newLexer(r, filename)
	if err != nil {
		return nil, err
	}
	p := &parser{lex: lex, filename: filename, handler: handler}
	if err := p.advance(); err != nil {
		return p, p.abort(err)
	}
	return p, nil
}

// abort reports a syntax error and returns the error the parse should
// fail with.
func (p *parser) abort(err error) error {
	var parseErr *reporter.ParseError
	if !errors.As(err, &parseErr) {
		return err
	}
	p.failed = true
	if herr := p.handler.HandleError(parseErr); herr != nil {
		return herr
	}
	return reporter.ErrInvalidSource
}

// errorf reports a validation error. A non-nil result means the
// reporter asked to abort.
func (p *parser) errorf(pos ast.SourcePos, format string, args ...interface{}) error {
	p.failed = true
	return p.handler.HandleError(&reporter.ParseError{Pos: pos, Err: fmt.Errorf(format, args...)})
}

func (p *parser) warnf(pos ast.SourcePos, err error) {
	p.handler.HandleWarning(pos, err)
}

func (p *parser) result() error {
	if !p.failed {
		return nil
	}
	if err := p.handler.ReporterError(); err != nil {
		return err
	}
	return reporter.ErrInvalidSource
}

func syntaxErrorf(pos ast.SourcePos, format string, args ...interface{}) error {
	return &reporter.ParseError{Pos: pos, Err: fmt.Errorf("syntax error: "+format, args...)}
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		var lexErr *lexError
		if errors.As(err, &lexErr) {
			return &reporter.ParseError{Pos: lexErr.pos, Err: lexErr.err}
		}
		return err
	}
	p.tok = tok
	return nil
}

// next returns the current token and moves past it.
func (p *parser) next() (token, error) {
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) unexpected(expected string) error {
	return syntaxErrorf(p.tok.pos, "unexpected %s, expecting %s", p.tok.describe(), expected)
}

func (p *parser) expectSymbol(c byte) (token, error) {
	if !p.tok.isSymbol(c) {
		return token{}, p.unexpected(strconv.Quote(string(c)))
	}
	return p.next()
}

func (p *parser) expectKeyword(word string) (token, error) {
	if !p.tok.is(tokenIdent, word) {
		return token{}, p.unexpected(strconv.Quote(word))
	}
	return p.next()
}

func (p *parser) expectIdent() (token, error) {
	if p.tok.kind != tokenIdent {
		return token{}, p.unexpected("identifier")
	}
	return p.next()
}

func (p *parser) isKeyword(word string) bool {
	return p.tok.is(tokenIdent, word)
}

// qualifiedName parses an identifier or a dot-separated sequence of
// identifiers, with an optional leading dot.
func (p *parser) qualifiedName() (string, error) {
	var name string
	if p.tok.isSymbol('.') {
		name = "."
		if err := p.advance(); err != nil {
			return "", err
		}
	}
	for {
		ident, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		name += ident.text
		if !p.tok.isSymbol('.') {
			return name, nil
		}
		name += "."
		if err := p.advance(); err != nil {
			return "", err
		}
	}
}

// stringLiteral parses one or more adjacent string literals.
func (p *parser) stringLiteral() (string, error) {
	if p.tok.kind != tokenString {
		return "", p.unexpected("string literal")
	}
	var value string
	for p.tok.kind == tokenString {
		value += p.tok.text
		if err := p.advance(); err != nil {
			return "", err
		}
	}
	return value, nil
}

// intValue parses an optionally negative integer literal that must fit
// in the range [lowest, highest].
func (p *parser) intValue(lowest, highest int64) (int64, ast.SourcePos, error) {
	pos := p.tok.pos
	negative := false
	if p.tok.isSymbol('-') {
		negative = true
		if err := p.advance(); err != nil {
			return 0, pos, err
		}
	}
	if p.tok.kind != tokenInt {
		return 0, pos, p.unexpected("int literal")
	}
	tok, err := p.next()
	if err != nil {
		return 0, pos, err
	}
	u, err := parseIntLiteral(tok.text)
	if err != nil {
		return 0, pos, &reporter.ParseError{Pos: tok.pos, Err: numError(err, "integer", tok.text)}
	}
	var v int64
	switch {
	case negative && u <= uint64(-lowest):
		v = -int64(u)
	case !negative && u <= uint64(highest):
		v = int64(u)
	default:
		text := tok.text
		if negative {
			text = "-" + text
		}
		return 0, pos, &reporter.ParseError{Pos: pos, Err: fmt.Errorf("value %s is out of range: should be between %d and %d", text, lowest, highest)}
	}
	return v, pos, nil
}

func (p *parser) parseFile() (ast.ProtoFile, error) {
	file := ast.ProtoFile{
		Path:     p.filename,
		Location: ast.SourcePos{Filename: p.filename, Line: 1, Col: 1},
	}
	first := true
	for p.tok.kind != tokenEOF {
		tok := p.tok
		var err error
		switch {
		case tok.isSymbol(';'):
			err = p.advance()
		case tok.is(tokenIdent, "syntax"):
			if !first {
				return file, syntaxErrorf(tok.pos, "syntax statement must be the first statement in the file")
			}
			file.Documentation = tok.doc
			file.Syntax, err = p.parseSyntax()
		case tok.is(tokenIdent, "edition"):
			return file, &reporter.ParseError{Pos: tok.pos, Err: ErrEditions}
		case tok.is(tokenIdent, "package"):
			if file.Package != "" {
				return file, syntaxErrorf(tok.pos, "multiple package declarations")
			}
			if first {
				file.Documentation = tok.doc
			}
			file.Package, err = p.parsePackage()
		case tok.is(tokenIdent, "import"):
			err = p.parseImport(&file)
		case tok.is(tokenIdent, "option"):
			var opt ast.Option
			opt, err = p.parseOptionDecl()
			file.Options = append(file.Options, opt)
		case tok.is(tokenIdent, "message"):
			var msg ast.Message
			msg, err = p.parseMessage()
			file.Types = append(file.Types, msg)
		case tok.is(tokenIdent, "enum"):
			var enum ast.Enum
			enum, err = p.parseEnum()
			file.Types = append(file.Types, enum)
		case tok.is(tokenIdent, "service"):
			var svc ast.Service
			svc, err = p.parseService()
			file.Services = append(file.Services, svc)
		case tok.is(tokenIdent, "extend"):
			var ext ast.Extend
			ext, err = p.parseExtend()
			file.Extends = append(file.Extends, ext)
		default:
			return file, p.unexpected(`"syntax", "package", "import", "option", "message", "enum", "service" or "extend"`)
		}
		if err != nil {
			return file, err
		}
		first = false
	}
	return file, nil
}

func (p *parser) parseSyntax() (string, error) {
	if _, err := p.expectKeyword("syntax"); err != nil {
		return "", err
	}
	if _, err := p.expectSymbol('='); err != nil {
		return "", err
	}
	value, err := p.stringLiteral()
	if err != nil {
		return "", err
	}
	if _, err := p.expectSymbol(';'); err != nil {
		return "", err
	}
	return value, nil
}

func (p *parser) parsePackage() (string, error) {
	if _, err := p.expectKeyword("package"); err != nil {
		return "", err
	}
	name, err := p.qualifiedName()
	if err != nil {
		return "", err
	}
	if _, err := p.expectSymbol(';'); err != nil {
		return "", err
	}
	return name, nil
}

func (p *parser) parseImport(file *ast.ProtoFile) error {
	modifier, path, pos, err := p.importStatement()
	if err != nil {
		return err
	}
	if _, ok := file.ImportLocations[path]; ok {
		return p.errorf(pos, "%q was already imported", path)
	}
	if file.ImportLocations == nil {
		file.ImportLocations = map[string]ast.SourcePos{}
	}
	file.ImportLocations[path] = pos
	switch modifier {
	case "public":
		file.PublicImports = append(file.PublicImports, path)
	case "weak":
		file.WeakImports = append(file.WeakImports, path)
	default:
		file.Imports = append(file.Imports, path)
	}
	return nil
}

// importStatement parses "import [public|weak] "path";".
func (p *parser) importStatement() (modifier, path string, pos ast.SourcePos, err error) {
	start, err := p.expectKeyword("import")
	if err != nil {
		return "", "", pos, err
	}
	if p.isKeyword("public") || p.isKeyword("weak") {
		modifier = p.tok.text
		if err := p.advance(); err != nil {
			return "", "", start.pos, err
		}
	}
	path, err = p.stringLiteral()
	if err != nil {
		return "", "", start.pos, err
	}
	_, err = p.expectSymbol(';')
	return modifier, path, start.pos, err
}
