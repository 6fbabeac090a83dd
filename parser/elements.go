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
	"math"

	"github.com/bufbuild/protoschema/ast"
)

func (p *parser) parseMessage() (ast.Message, error) {
	start, err := p.expectKeyword("message")
	if err != nil {
		return ast.Message{}, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.Message{}, err
	}
	msg := ast.Message{Name: name.text, Documentation: start.doc, Location: start.pos}
	if _, err := p.expectSymbol('{'); err != nil {
		return msg, err
	}
	for !p.tok.isSymbol('}') {
		if err := p.parseMessageElement(&msg); err != nil {
			return msg, err
		}
	}
	return msg, p.advance()
}

func (p *parser) parseMessageElement(msg *ast.Message) error {
	switch {
	case p.tok.kind == tokenEOF:
		return p.unexpected(`"}"`)
	case p.tok.isSymbol(';'):
		return p.advance()
	case p.isKeyword("option"):
		opt, err := p.parseOptionDecl()
		msg.Options = append(msg.Options, opt)
		return err
	case p.isKeyword("message"):
		nested, err := p.parseMessage()
		msg.Types = append(msg.Types, nested)
		return err
	case p.isKeyword("enum"):
		enum, err := p.parseEnum()
		msg.Types = append(msg.Types, enum)
		return err
	case p.isKeyword("extend"):
		ext, err := p.parseExtend()
		msg.Extends = append(msg.Extends, ext)
		return err
	case p.isKeyword("extensions"):
		ext, err := p.parseExtensions()
		msg.Extensions = append(msg.Extensions, ext)
		return err
	case p.isKeyword("reserved"):
		rsvd, err := p.parseReserved(false)
		msg.Reserved = append(msg.Reserved, rsvd)
		return err
	case p.isKeyword("oneof"):
		oneOf, err := p.parseOneOf()
		msg.OneOfs = append(msg.OneOfs, oneOf)
		return err
	default:
		field, group, err := p.parseMember()
		if err != nil {
			return err
		}
		if group != nil {
			msg.Groups = append(msg.Groups, *group)
		} else {
			msg.Fields = append(msg.Fields, field)
		}
		return nil
	}
}

// parseMember parses a field or a group. Exactly one of the results is
// meaningful: the group when it is non-nil, the field otherwise.
func (p *parser) parseMember() (ast.Field, *ast.Group, error) {
	start := p.tok
	label := ast.LabelNone
	switch {
	case p.isKeyword("optional"):
		label = ast.LabelOptional
	case p.isKeyword("required"):
		label = ast.LabelRequired
	case p.isKeyword("repeated"):
		label = ast.LabelRepeated
	}
	if label != ast.LabelNone {
		if err := p.advance(); err != nil {
			return ast.Field{}, nil, err
		}
	}

	if p.isKeyword("group") {
		group, err := p.parseGroup(start, label)
		return ast.Field{}, &group, err
	}

	typ, err := p.fieldType()
	if err != nil {
		return ast.Field{}, nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.Field{}, nil, err
	}
	if _, err := p.expectSymbol('='); err != nil {
		return ast.Field{}, nil, err
	}
	tag, err := p.tag()
	if err != nil {
		return ast.Field{}, nil, err
	}
	opts, err := p.compactOptions()
	if err != nil {
		return ast.Field{}, nil, err
	}
	if _, err := p.expectSymbol(';'); err != nil {
		return ast.Field{}, nil, err
	}
	return ast.Field{
		Label:         label,
		Type:          typ,
		Name:          name.text,
		Tag:           tag,
		Options:       opts,
		Documentation: start.doc,
		Location:      start.pos,
	}, nil, nil
}

// fieldType parses a message or scalar type name, or a map<K, V> type.
func (p *parser) fieldType() (string, error) {
	if !p.isKeyword("map") {
		return p.qualifiedName()
	}
	if err := p.advance(); err != nil {
		return "", err
	}
	if !p.tok.isSymbol('<') {
		// a type that happens to be named "map"
		if !p.tok.isSymbol('.') {
			return "map", nil
		}
		if err := p.advance(); err != nil {
			return "", err
		}
		rest, err := p.qualifiedName()
		return "map." + rest, err
	}
	if err := p.advance(); err != nil {
		return "", err
	}
	key, err := p.qualifiedName()
	if err != nil {
		return "", err
	}
	if _, err := p.expectSymbol(','); err != nil {
		return "", err
	}
	value, err := p.qualifiedName()
	if err != nil {
		return "", err
	}
	if _, err := p.expectSymbol('>'); err != nil {
		return "", err
	}
	return ast.MapType(key, value), nil
}

func (p *parser) tag() (int32, error) {
	v, _, err := p.intValue(math.MinInt32, math.MaxInt32)
	return int32(v), err
}

func (p *parser) parseGroup(start token, label ast.Label) (ast.Group, error) {
	if _, err := p.expectKeyword("group"); err != nil {
		return ast.Group{}, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.Group{}, err
	}
	if _, err := p.expectSymbol('='); err != nil {
		return ast.Group{}, err
	}
	tag, err := p.tag()
	if err != nil {
		return ast.Group{}, err
	}
	opts, err := p.compactOptions()
	if err != nil {
		return ast.Group{}, err
	}
	group := ast.Group{
		Label:         label,
		Name:          name.text,
		Tag:           tag,
		Options:       opts,
		Documentation: start.doc,
		Location:      start.pos,
	}
	if _, err := p.expectSymbol('{'); err != nil {
		return group, err
	}
	for !p.tok.isSymbol('}') {
		if p.tok.kind == tokenEOF {
			return group, p.unexpected(`"}"`)
		}
		if p.tok.isSymbol(';') {
			if err := p.advance(); err != nil {
				return group, err
			}
			continue
		}
		memberStart := p.tok
		field, nested, err := p.parseMember()
		if err != nil {
			return group, err
		}
		if nested != nil {
			return group, syntaxErrorf(memberStart.pos, "group %s: only fields may be declared in a group", group.Name)
		}
		group.Fields = append(group.Fields, field)
	}
	return group, p.advance()
}

func (p *parser) parseOneOf() (ast.OneOf, error) {
	start, err := p.expectKeyword("oneof")
	if err != nil {
		return ast.OneOf{}, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.OneOf{}, err
	}
	oneOf := ast.OneOf{Name: name.text, Documentation: start.doc, Location: start.pos}
	if _, err := p.expectSymbol('{'); err != nil {
		return oneOf, err
	}
	for !p.tok.isSymbol('}') {
		switch {
		case p.tok.kind == tokenEOF:
			return oneOf, p.unexpected(`"}"`)
		case p.tok.isSymbol(';'):
			if err := p.advance(); err != nil {
				return oneOf, err
			}
		case p.isKeyword("option"):
			opt, err := p.parseOptionDecl()
			if err != nil {
				return oneOf, err
			}
			oneOf.Options = append(oneOf.Options, opt)
		default:
			field, group, err := p.parseMember()
			if err != nil {
				return oneOf, err
			}
			if group != nil {
				oneOf.Groups = append(oneOf.Groups, *group)
			} else {
				oneOf.Fields = append(oneOf.Fields, field)
			}
		}
	}
	return oneOf, p.advance()
}

func (p *parser) parseExtend() (ast.Extend, error) {
	start, err := p.expectKeyword("extend")
	if err != nil {
		return ast.Extend{}, err
	}
	name, err := p.qualifiedName()
	if err != nil {
		return ast.Extend{}, err
	}
	ext := ast.Extend{Name: name, Documentation: start.doc, Location: start.pos}
	if _, err := p.expectSymbol('{'); err != nil {
		return ext, err
	}
	for !p.tok.isSymbol('}') {
		switch {
		case p.tok.kind == tokenEOF:
			return ext, p.unexpected(`"}"`)
		case p.tok.isSymbol(';'):
			if err := p.advance(); err != nil {
				return ext, err
			}
		default:
			field, group, err := p.parseMember()
			if err != nil {
				return ext, err
			}
			if group != nil {
				ext.Groups = append(ext.Groups, *group)
			} else {
				ext.Fields = append(ext.Fields, field)
			}
		}
	}
	return ext, p.advance()
}

func (p *parser) parseExtensions() (ast.Extensions, error) {
	start, err := p.expectKeyword("extensions")
	if err != nil {
		return ast.Extensions{}, err
	}
	ranges, err := p.tagRanges(false)
	if err != nil {
		return ast.Extensions{}, err
	}
	opts, err := p.compactOptions()
	if err != nil {
		return ast.Extensions{}, err
	}
	if _, err := p.expectSymbol(';'); err != nil {
		return ast.Extensions{}, err
	}
	return ast.Extensions{Ranges: ranges, Options: opts, Documentation: start.doc, Location: start.pos}, nil
}

// parseReserved parses a reserved statement of a message, or of an enum
// when forEnum is set.
func (p *parser) parseReserved(forEnum bool) (ast.Reserved, error) {
	start, err := p.expectKeyword("reserved")
	if err != nil {
		return ast.Reserved{}, err
	}
	rsvd := ast.Reserved{Documentation: start.doc, Location: start.pos}
	if p.tok.kind == tokenString {
		for {
			name, err := p.stringLiteral()
			if err != nil {
				return rsvd, err
			}
			rsvd.Names = append(rsvd.Names, name)
			if !p.tok.isSymbol(',') {
				break
			}
			if err := p.advance(); err != nil {
				return rsvd, err
			}
		}
	} else {
		rsvd.Ranges, err = p.tagRanges(forEnum)
		if err != nil {
			return rsvd, err
		}
	}
	_, err = p.expectSymbol(';')
	return rsvd, err
}

// tagRanges parses a comma-separated list of "N", "N to M" and "N to max"
// ranges. Enum ranges may be negative.
func (p *parser) tagRanges(forEnum bool) ([]ast.TagRange, error) {
	lowest, highest := int64(math.MinInt32), int64(math.MaxInt32)
	maxValue := int32(ast.MaxTag)
	if forEnum {
		maxValue = ast.MaxEnumValue
	}
	var ranges []ast.TagRange
	for {
		start, _, err := p.intValue(lowest, highest)
		if err != nil {
			return nil, err
		}
		r := ast.TagRange{Start: int32(start), End: int32(start)}
		if p.isKeyword("to") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.isKeyword("max") {
				r.End, r.Max = maxValue, true
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else {
				end, _, err := p.intValue(lowest, highest)
				if err != nil {
					return nil, err
				}
				r.End = int32(end)
			}
		}
		ranges = append(ranges, r)
		if !p.tok.isSymbol(',') {
			return ranges, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseEnum() (ast.Enum, error) {
	start, err := p.expectKeyword("enum")
	if err != nil {
		return ast.Enum{}, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.Enum{}, err
	}
	enum := ast.Enum{Name: name.text, Documentation: start.doc, Location: start.pos}
	if _, err := p.expectSymbol('{'); err != nil {
		return enum, err
	}
	for !p.tok.isSymbol('}') {
		switch {
		case p.tok.kind == tokenEOF:
			return enum, p.unexpected(`"}"`)
		case p.tok.isSymbol(';'):
			if err := p.advance(); err != nil {
				return enum, err
			}
		case p.isKeyword("option"):
			opt, err := p.parseOptionDecl()
			if err != nil {
				return enum, err
			}
			enum.Options = append(enum.Options, opt)
		case p.isKeyword("reserved"):
			rsvd, err := p.parseReserved(true)
			if err != nil {
				return enum, err
			}
			enum.Reserved = append(enum.Reserved, rsvd)
		default:
			constant, err := p.parseEnumConstant()
			if err != nil {
				return enum, err
			}
			enum.Constants = append(enum.Constants, constant)
		}
	}
	return enum, p.advance()
}

func (p *parser) parseEnumConstant() (ast.EnumConstant, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ast.EnumConstant{}, err
	}
	if _, err := p.expectSymbol('='); err != nil {
		return ast.EnumConstant{}, err
	}
	value, _, err := p.intValue(ast.MinEnumValue, ast.MaxEnumValue)
	if err != nil {
		return ast.EnumConstant{}, err
	}
	opts, err := p.compactOptions()
	if err != nil {
		return ast.EnumConstant{}, err
	}
	if _, err := p.expectSymbol(';'); err != nil {
		return ast.EnumConstant{}, err
	}
	return ast.EnumConstant{
		Name:          name.text,
		Tag:           int32(value),
		Options:       opts,
		Documentation: name.doc,
		Location:      name.pos,
	}, nil
}

func (p *parser) parseService() (ast.Service, error) {
	start, err := p.expectKeyword("service")
	if err != nil {
		return ast.Service{}, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.Service{}, err
	}
	svc := ast.Service{Name: name.text, Documentation: start.doc, Location: start.pos}
	if _, err := p.expectSymbol('{'); err != nil {
		return svc, err
	}
	for !p.tok.isSymbol('}') {
		switch {
		case p.tok.kind == tokenEOF:
			return svc, p.unexpected(`"}"`)
		case p.tok.isSymbol(';'):
			if err := p.advance(); err != nil {
				return svc, err
			}
		case p.isKeyword("option"):
			opt, err := p.parseOptionDecl()
			if err != nil {
				return svc, err
			}
			svc.Options = append(svc.Options, opt)
		case p.isKeyword("rpc"):
			rpc, err := p.parseRPC()
			if err != nil {
				return svc, err
			}
			svc.RPCs = append(svc.RPCs, rpc)
		default:
			return svc, p.unexpected(`"option", "rpc" or "}"`)
		}
	}
	return svc, p.advance()
}

func (p *parser) parseRPC() (ast.RPC, error) {
	start, err := p.expectKeyword("rpc")
	if err != nil {
		return ast.RPC{}, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return ast.RPC{}, err
	}
	rpc := ast.RPC{Name: name.text, Documentation: start.doc, Location: start.pos}
	if rpc.RequestStreaming, rpc.RequestType, err = p.rpcType(); err != nil {
		return rpc, err
	}
	if _, err := p.expectKeyword("returns"); err != nil {
		return rpc, err
	}
	if rpc.ResponseStreaming, rpc.ResponseType, err = p.rpcType(); err != nil {
		return rpc, err
	}
	if p.tok.isSymbol(';') {
		return rpc, p.advance()
	}
	if _, err := p.expectSymbol('{'); err != nil {
		return rpc, err
	}
	for !p.tok.isSymbol('}') {
		switch {
		case p.tok.kind == tokenEOF:
			return rpc, p.unexpected(`"}"`)
		case p.tok.isSymbol(';'):
			if err := p.advance(); err != nil {
				return rpc, err
			}
		case p.isKeyword("option"):
			opt, err := p.parseOptionDecl()
			if err != nil {
				return rpc, err
			}
			rpc.Options = append(rpc.Options, opt)
		default:
			return rpc, p.unexpected(`"option" or "}"`)
		}
	}
	return rpc, p.advance()
}

// rpcType parses "(Type)" or "(stream Type)".
func (p *parser) rpcType() (bool, string, error) {
	if _, err := p.expectSymbol('('); err != nil {
		return false, "", err
	}
	streaming := false
	if p.isKeyword("stream") {
		if err := p.advance(); err != nil {
			return false, "", err
		}
		if p.tok.isSymbol(')') {
			// a message named "stream"
			return false, "stream", p.advance()
		}
		streaming = true
	}
	typ, err := p.qualifiedName()
	if err != nil {
		return false, "", err
	}
	_, err = p.expectSymbol(')')
	return streaming, typ, err
}
