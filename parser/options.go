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
	"github.com/bufbuild/protoschema/ast"
)

// parseOptionDecl parses "option name = value;".
func (p *parser) parseOptionDecl() (ast.Option, error) {
	start, err := p.expectKeyword("option")
	if err != nil {
		return ast.Option{}, err
	}
	opt, err := p.option()
	if err != nil {
		return opt, err
	}
	opt.Documentation = start.doc
	opt.Location = start.pos
	_, err = p.expectSymbol(';')
	return opt, err
}

// compactOptions parses an optional "[name = value, ...]" list.
func (p *parser) compactOptions() ([]ast.Option, error) {
	if !p.tok.isSymbol('[') {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var opts []ast.Option
	for {
		opt, err := p.option()
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
		if p.tok.isSymbol(']') {
			return opts, p.advance()
		}
		if _, err := p.expectSymbol(','); err != nil {
			return nil, err
		}
	}
}

// option parses "name = value".
func (p *parser) option() (ast.Option, error) {
	pos := p.tok.pos
	name, err := p.optionName()
	if err != nil {
		return ast.Option{}, err
	}
	if _, err := p.expectSymbol('='); err != nil {
		return ast.Option{}, err
	}
	value, err := p.optionValue()
	if err != nil {
		return ast.Option{}, err
	}
	return ast.Option{Name: name, Value: value, Location: pos}, nil
}

func (p *parser) optionName() (ast.OptionName, error) {
	var name ast.OptionName
	for {
		if p.tok.isSymbol('(') {
			if err := p.advance(); err != nil {
				return nil, err
			}
			ext, err := p.qualifiedName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectSymbol(')'); err != nil {
				return nil, err
			}
			name = append(name, ast.OptionNamePart{Name: ext, Extension: true})
		} else {
			ident, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			name = append(name, ast.OptionNamePart{Name: ident.text})
		}
		if !p.tok.isSymbol('.') {
			return name, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) optionValue() (ast.OptionValue, error) {
	tok := p.tok
	switch {
	case tok.kind == tokenString:
		s, err := p.stringLiteral()
		return ast.StringValue(s), err
	case tok.kind == tokenInt || tok.kind == tokenFloat:
		return ast.NumberValue(tok.text), p.advance()
	case tok.isSymbol('-') || tok.isSymbol('+'):
		if err := p.advance(); err != nil {
			return ast.OptionValue{}, err
		}
		switch {
		case p.tok.kind == tokenInt || p.tok.kind == tokenFloat:
		case p.tok.kind == tokenIdent && isSpecialFloat(p.tok.text):
		default:
			return ast.OptionValue{}, p.unexpected("numeric value")
		}
		text := p.tok.text
		if tok.text == "-" {
			text = "-" + text
		}
		return ast.NumberValue(text), p.advance()
	case tok.kind == tokenIdent:
		if tok.text == "true" || tok.text == "false" {
			return ast.BoolValue(tok.text == "true"), p.advance()
		}
		name, err := p.qualifiedName()
		return ast.EnumValue(name), err
	case tok.isSymbol('{') || tok.isSymbol('<'):
		return p.messageLiteral()
	case tok.isSymbol('['):
		return p.listLiteral()
	default:
		return ast.OptionValue{}, p.unexpected("option value")
	}
}

func isSpecialFloat(ident string) bool {
	switch ident {
	case "inf", "infinity", "nan":
		return true
	}
	return false
}

// messageLiteral parses a message value in text format, delimited by
// braces or angle brackets.
func (p *parser) messageLiteral() (ast.OptionValue, error) {
	closer := byte('}')
	if p.tok.isSymbol('<') {
		closer = '>'
	}
	if err := p.advance(); err != nil {
		return ast.OptionValue{}, err
	}
	var fields []ast.OptionField
	for !p.tok.isSymbol(closer) {
		if p.tok.kind == tokenEOF {
			return ast.OptionValue{}, p.unexpected(`"` + string(closer) + `"`)
		}
		var field ast.OptionField
		if p.tok.isSymbol('[') {
			if err := p.advance(); err != nil {
				return ast.OptionValue{}, err
			}
			name, err := p.extensionName()
			if err != nil {
				return ast.OptionValue{}, err
			}
			if _, err := p.expectSymbol(']'); err != nil {
				return ast.OptionValue{}, err
			}
			field.Name, field.Extension = name, true
		} else {
			ident, err := p.expectIdent()
			if err != nil {
				return ast.OptionValue{}, err
			}
			field.Name = ident.text
		}
		hasColon := p.tok.isSymbol(':')
		if hasColon {
			if err := p.advance(); err != nil {
				return ast.OptionValue{}, err
			}
		} else if !p.tok.isSymbol('{') && !p.tok.isSymbol('<') && !p.tok.isSymbol('[') {
			return ast.OptionValue{}, p.unexpected(`":"`)
		}
		value, err := p.optionValue()
		if err != nil {
			return ast.OptionValue{}, err
		}
		field.Value = value
		fields = append(fields, field)
		if p.tok.isSymbol(',') || p.tok.isSymbol(';') {
			if err := p.advance(); err != nil {
				return ast.OptionValue{}, err
			}
		}
	}
	return ast.MapValue(fields...), p.advance()
}

// extensionName parses the name inside "[...]" in a message literal: a
// qualified extension name, or a type URL such as
// "type.googleapis.com/pkg.Msg".
func (p *parser) extensionName() (string, error) {
	name, err := p.qualifiedName()
	if err != nil {
		return "", err
	}
	for p.tok.isSymbol('/') {
		if err := p.advance(); err != nil {
			return "", err
		}
		rest, err := p.qualifiedName()
		if err != nil {
			return "", err
		}
		name += "/" + rest
	}
	return name, nil
}

func (p *parser) listLiteral() (ast.OptionValue, error) {
	if _, err := p.expectSymbol('['); err != nil {
		return ast.OptionValue{}, err
	}
	var values []ast.OptionValue
	for !p.tok.isSymbol(']') {
		value, err := p.optionValue()
		if err != nil {
			return ast.OptionValue{}, err
		}
		values = append(values, value)
		if p.tok.isSymbol(']') {
			break
		}
		if _, err := p.expectSymbol(','); err != nil {
			return ast.OptionValue{}, err
		}
	}
	return ast.ListValue(values...), p.advance()
}
