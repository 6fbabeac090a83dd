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
	"io"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/reporter"
)

// ParseProfile parses a .wire profile file. Profiles use the same lexical
// rules as .proto files; their statements are syntax (which must be
// "wire2"), package, import and type configs:
//
//	type pkg.Money {
//	  target java.math.BigDecimal using com.example.MoneyAdapter#ADAPTER;
//	  option (pkg.scale) = 2;
//	}
func ParseProfile(filename string, r io.Reader, handler *reporter.Handler) (ast.ProfileFile, error) {
	p, err := newParser(filename, r, handler)
	if err != nil {
		return ast.ProfileFile{}, err
	}
	profile, err := p.parseProfile()
	if err != nil {
		return ast.ProfileFile{}, p.abort(err)
	}
	if err := validateProfile(p, profile); err != nil {
		return ast.ProfileFile{}, err
	}
	if err := p.result(); err != nil {
		return ast.ProfileFile{}, err
	}
	return profile, nil
}

func (p *parser) parseProfile() (ast.ProfileFile, error) {
	profile := ast.ProfileFile{
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
				return profile, syntaxErrorf(tok.pos, "syntax statement must be the first statement in the file")
			}
			profile.Documentation = tok.doc
			profile.Syntax, err = p.parseSyntax()
		case tok.is(tokenIdent, "package"):
			if profile.Package != "" {
				return profile, syntaxErrorf(tok.pos, "multiple package declarations")
			}
			profile.Package, err = p.parsePackage()
		case tok.is(tokenIdent, "import"):
			err = p.parseProfileImport(&profile)
		case tok.is(tokenIdent, "type"):
			var config ast.TypeConfig
			config, err = p.parseTypeConfig()
			profile.TypeConfigs = append(profile.TypeConfigs, config)
		default:
			return profile, p.unexpected(`"syntax", "package", "import" or "type"`)
		}
		if err != nil {
			return profile, err
		}
		first = false
	}
	return profile, nil
}

func (p *parser) parseProfileImport(profile *ast.ProfileFile) error {
	modifier, path, pos, err := p.importStatement()
	if err != nil {
		return err
	}
	if modifier != "" {
		return syntaxErrorf(pos, "profiles only support plain imports")
	}
	if _, ok := profile.ImportLocations[path]; ok {
		return p.errorf(pos, "%q was already imported", path)
	}
	if profile.ImportLocations == nil {
		profile.ImportLocations = map[string]ast.SourcePos{}
	}
	profile.ImportLocations[path] = pos
	profile.Imports = append(profile.Imports, path)
	return nil
}

func (p *parser) parseTypeConfig() (ast.TypeConfig, error) {
	start, err := p.expectKeyword("type")
	if err != nil {
		return ast.TypeConfig{}, err
	}
	name, err := p.qualifiedName()
	if err != nil {
		return ast.TypeConfig{}, err
	}
	config := ast.TypeConfig{Type: name, Documentation: start.doc, Location: start.pos}
	if _, err := p.expectSymbol('{'); err != nil {
		return config, err
	}
	for !p.tok.isSymbol('}') {
		switch {
		case p.tok.kind == tokenEOF:
			return config, p.unexpected(`"}"`)
		case p.tok.isSymbol(';'):
			if err := p.advance(); err != nil {
				return config, err
			}
		case p.isKeyword("option"):
			opt, err := p.parseOptionDecl()
			if err != nil {
				return config, err
			}
			config.Options = append(config.Options, opt)
		case p.isKeyword("target"):
			if config.Target != "" {
				return config, syntaxErrorf(p.tok.pos, "type %s: target already set", config.Type)
			}
			if err := p.parseTarget(&config); err != nil {
				return config, err
			}
		default:
			return config, p.unexpected(`"target", "option" or "}"`)
		}
	}
	return config, p.advance()
}

// parseTarget parses "target Name using Adapter#FIELD;".
func (p *parser) parseTarget(config *ast.TypeConfig) error {
	if _, err := p.expectKeyword("target"); err != nil {
		return err
	}
	target, err := p.qualifiedName()
	if err != nil {
		return err
	}
	if _, err := p.expectKeyword("using"); err != nil {
		return err
	}
	adapter, err := p.qualifiedName()
	if err != nil {
		return err
	}
	if _, err := p.expectSymbol('#'); err != nil {
		return err
	}
	field, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectSymbol(';'); err != nil {
		return err
	}
	config.Target = target
	config.Adapter = adapter + "#" + field.text
	return nil
}
