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
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/reporter"
)

// nameScope detects names declared twice in one scope.
type nameScope struct {
	scope string
	names map[string]ast.SourcePos
}

func newNameScope(scope string) *nameScope {
	return &nameScope{scope: scope, names: map[string]ast.SourcePos{}}
}

func (s *nameScope) add(p *parser, name string, pos ast.SourcePos) error {
	if prev, ok := s.names[name]; ok {
		p.failed = true
		return p.handler.HandleError(&reporter.DuplicateTypeError{Name: ast.Qualify(s.scope, name), Pos: pos, Previous: prev})
	}
	s.names[name] = pos
	return nil
}

func validateFile(p *parser, file ast.ProtoFile) error {
	switch file.Syntax {
	case "":
		p.warnf(file.Position(), ErrNoSyntax)
	case ast.SyntaxProto2, ast.SyntaxProto3:
	default:
		if err := p.errorf(file.Position(), `syntax value must be %q or %q`, ast.SyntaxProto2, ast.SyntaxProto3); err != nil {
			return err
		}
	}
	isProto3 := file.IsProto3()

	names := newNameScope(file.Package)
	if err := addTypeNames(p, names, file.Types); err != nil {
		return err
	}
	for _, ext := range file.Extends {
		if err := addExtendNames(p, names, ext); err != nil {
			return err
		}
	}
	for _, svc := range file.Services {
		if err := names.add(p, svc.Name, svc.Location); err != nil {
			return err
		}
	}

	for _, t := range file.Types {
		if err := validateType(p, isProto3, file.Package, t); err != nil {
			return err
		}
	}
	for _, ext := range file.Extends {
		if err := validateExtend(p, isProto3, file.Package, ext); err != nil {
			return err
		}
	}
	for _, svc := range file.Services {
		if err := validateService(p, file.Package, svc); err != nil {
			return err
		}
	}
	return nil
}

// addTypeNames adds the names of types to their enclosing scope. Enum
// constants are siblings of their enum, not children.
func addTypeNames(p *parser, names *nameScope, types []ast.TypeElement) error {
	for _, t := range types {
		if err := names.add(p, t.TypeName(), t.Position()); err != nil {
			return err
		}
		if enum, ok := t.(ast.Enum); ok {
			for _, c := range enum.Constants {
				if err := names.add(p, c.Name, c.Location); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func addExtendNames(p *parser, names *nameScope, ext ast.Extend) error {
	for _, f := range ext.Fields {
		if err := names.add(p, f.Name, f.Location); err != nil {
			return err
		}
	}
	return addGroupNames(p, names, ext.Groups)
}

// addGroupNames adds both the field and the message type that each
// group declares.
func addGroupNames(p *parser, names *nameScope, groups []ast.Group) error {
	for _, g := range groups {
		if fieldName := g.FieldName(); fieldName != g.Name {
			if err := names.add(p, fieldName, g.Location); err != nil {
				return err
			}
		}
		if err := names.add(p, g.Name, g.Location); err != nil {
			return err
		}
	}
	return nil
}

func validateType(p *parser, isProto3 bool, scope string, t ast.TypeElement) error {
	switch t := t.(type) {
	case ast.Message:
		return validateMessage(p, isProto3, scope, t)
	case ast.Enum:
		return validateEnum(p, isProto3, scope, t)
	}
	return nil
}

func validateMessage(p *parser, isProto3 bool, scope string, msg ast.Message) error {
	fqn := ast.Qualify(scope, msg.Name)
	where := fmt.Sprintf("message %s", fqn)

	if isProto3 && len(msg.Extensions) > 0 {
		if err := p.errorf(msg.Extensions[0].Location, "%s: extension ranges are not allowed in proto3", where); err != nil {
			return err
		}
	}

	if opt, ok := ast.FindOption(msg.Options, "map_entry"); ok {
		if err := p.errorf(opt.Location, "%s: map_entry option should not be set explicitly; use map type instead", where); err != nil {
			return err
		}
	}

	// every member of the message shares one scope
	names := newNameScope(fqn)
	for _, f := range msg.Fields {
		if err := names.add(p, f.Name, f.Location); err != nil {
			return err
		}
	}
	for _, o := range msg.OneOfs {
		if err := names.add(p, o.Name, o.Location); err != nil {
			return err
		}
		for _, f := range o.Fields {
			if err := names.add(p, f.Name, f.Location); err != nil {
				return err
			}
		}
		if err := addGroupNames(p, names, o.Groups); err != nil {
			return err
		}
	}
	if err := addGroupNames(p, names, msg.Groups); err != nil {
		return err
	}
	if err := addTypeNames(p, names, msg.Types); err != nil {
		return err
	}
	for _, ext := range msg.Extends {
		if err := addExtendNames(p, names, ext); err != nil {
			return err
		}
	}

	rsvd, rsvdNames, err := validateReserved(p, where, msg.Reserved, ast.MinTag, ast.MaxTag)
	if err != nil {
		return err
	}
	var extRanges []ast.TagRange
	for _, e := range msg.Extensions {
		extRanges = append(extRanges, e.Ranges...)
	}
	exts, err := validateRanges(p, where, "extension", msg.Extensions, extRanges, ast.MinTag, ast.MaxTag)
	if err != nil {
		return err
	}

	// see if any extension range overlaps any reserved range
	for _, e := range exts {
		for _, r := range rsvd {
			if e.Start <= r.End && r.Start <= e.End {
				if err := p.errorf(msg.Location, "%s: extension range %s overlaps reserved range %s", where, e, r); err != nil {
					return err
				}
			}
		}
	}

	// now, check that fields don't re-use tags and don't try to use extension
	// or reserved ranges or reserved names
	fieldTags := map[int32]string{}
	for _, fld := range msg.AllFields() {
		if _, ok := rsvdNames[fld.Name]; ok {
			if err := p.errorf(fld.Location, "%s: field %s is using a reserved name", where, fld.Name); err != nil {
				return err
			}
		}
		if existing := fieldTags[fld.Tag]; existing != "" {
			if err := p.errorf(fld.Location, "%s: fields %s and %s both have the same tag %d", where, existing, fld.Name, fld.Tag); err != nil {
				return err
			}
		}
		fieldTags[fld.Tag] = fld.Name
		if r, ok := findRange(rsvd, fld.Tag); ok {
			if err := p.errorf(fld.Location, "%s: field %s is using tag %d which is in reserved range %s", where, fld.Name, fld.Tag, r); err != nil {
				return err
			}
		}
		if r, ok := findRange(exts, fld.Tag); ok {
			if err := p.errorf(fld.Location, "%s: field %s is using tag %d which is in extension range %s", where, fld.Name, fld.Tag, r); err != nil {
				return err
			}
		}
	}

	for _, f := range msg.Fields {
		if err := validateField(p, isProto3, fqn, f, fieldContext{}); err != nil {
			return err
		}
	}
	for _, o := range msg.OneOfs {
		if err := validateOneOf(p, isProto3, fqn, o); err != nil {
			return err
		}
	}
	for _, g := range msg.Groups {
		if err := validateGroup(p, isProto3, fqn, g, fieldContext{}); err != nil {
			return err
		}
	}
	for _, t := range msg.Types {
		if err := validateType(p, isProto3, fqn, t); err != nil {
			return err
		}
	}
	for _, ext := range msg.Extends {
		if err := validateExtend(p, isProto3, fqn, ext); err != nil {
			return err
		}
	}
	return nil
}

func validateOneOf(p *parser, isProto3 bool, scope string, o ast.OneOf) error {
	ctx := fieldContext{oneOf: o.Name}
	for _, f := range o.Fields {
		if err := validateField(p, isProto3, scope, f, ctx); err != nil {
			return err
		}
	}
	for _, g := range o.Groups {
		if err := validateGroup(p, isProto3, scope, g, ctx); err != nil {
			return err
		}
	}
	return nil
}

// fieldContext says where a field is declared.
type fieldContext struct {
	oneOf    string
	extendee string
}

func validateField(p *parser, isProto3 bool, scope string, fld ast.Field, ctx fieldContext) error {
	where := fmt.Sprintf("field %s", ast.Qualify(scope, fld.Name))

	if err := validateTag(p, where, fld.Location, fld.Tag); err != nil {
		return err
	}
	if err := validateLabel(p, isProto3, where, fld.Location, fld.Label, ctx); err != nil {
		return err
	}

	if key, _, ok := ast.ParseMapType(fld.Type); ok {
		switch {
		case fld.Label != ast.LabelNone:
			if err := p.errorf(fld.Location, "%s: map fields cannot have labels", where); err != nil {
				return err
			}
		case ctx.oneOf != "":
			if err := p.errorf(fld.Location, "%s: map fields are not allowed in oneofs", where); err != nil {
				return err
			}
		case ctx.extendee != "":
			if err := p.errorf(fld.Location, "%s: map fields are not allowed in extensions", where); err != nil {
				return err
			}
		}
		if !ast.IsValidMapKeyType(key) {
			if err := p.errorf(fld.Location, "%s: key type of map must be an integral type, bool or string, not %s", where, key); err != nil {
				return err
			}
		}
	} else if fld.Label == ast.LabelNone && !isProto3 && ctx.oneOf == "" {
		if err := p.errorf(fld.Location, "%s: field has no label; proto2 requires explicit 'optional' label", where); err != nil {
			return err
		}
	}

	if isProto3 {
		if opt, ok := ast.FindOption(fld.Options, "default"); ok {
			if err := p.errorf(opt.Location, "%s: default values are not allowed in proto3", where); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateLabel(p *parser, isProto3 bool, where string, pos ast.SourcePos, label ast.Label, ctx fieldContext) error {
	switch {
	case ctx.oneOf != "" && label != ast.LabelNone:
		return p.errorf(pos, "%s: fields in oneof %s must not have labels", where, ctx.oneOf)
	case isProto3 && label == ast.LabelRequired:
		return p.errorf(pos, "%s: label 'required' is not allowed in proto3", where)
	case ctx.extendee != "" && label == ast.LabelRequired:
		return p.errorf(pos, "%s: extension fields cannot be 'required'", where)
	}
	return nil
}

func validateTag(p *parser, where string, pos ast.SourcePos, tag int32) error {
	if tag < ast.MinTag || tag > ast.MaxTag {
		return p.errorf(pos, "%s: tag number %d must be in range %d to %d", where, tag, ast.MinTag, ast.MaxTag)
	}
	if tag >= ast.ReservedTagStart && tag <= ast.ReservedTagEnd {
		return p.errorf(pos, "%s: tag number %d is in disallowed reserved range %d to %d", where, tag, ast.ReservedTagStart, ast.ReservedTagEnd)
	}
	return nil
}

func validateGroup(p *parser, isProto3 bool, scope string, g ast.Group, ctx fieldContext) error {
	where := fmt.Sprintf("group %s", ast.Qualify(scope, g.Name))
	if isProto3 {
		if err := p.errorf(g.Location, "%s: groups are not allowed in proto3", where); err != nil {
			return err
		}
	}
	if r := []rune(g.Name); len(r) == 0 || !unicode.IsUpper(r[0]) {
		if err := p.errorf(g.Location, "%s: group names must start with a capital letter", where); err != nil {
			return err
		}
	}
	if err := validateTag(p, where, g.Location, g.Tag); err != nil {
		return err
	}
	if err := validateLabel(p, isProto3, where, g.Location, g.Label, ctx); err != nil {
		return err
	}
	if g.Label == ast.LabelNone && !isProto3 && ctx.oneOf == "" {
		if err := p.errorf(g.Location, "%s: group has no label; proto2 requires explicit 'optional' label", where); err != nil {
			return err
		}
	}

	fqn := ast.Qualify(scope, g.Name)
	names := newNameScope(fqn)
	tags := map[int32]string{}
	for _, f := range g.Fields {
		if err := names.add(p, f.Name, f.Location); err != nil {
			return err
		}
		if existing := tags[f.Tag]; existing != "" {
			if err := p.errorf(f.Location, "%s: fields %s and %s both have the same tag %d", where, existing, f.Name, f.Tag); err != nil {
				return err
			}
		}
		tags[f.Tag] = f.Name
		if err := validateField(p, isProto3, fqn, f, fieldContext{}); err != nil {
			return err
		}
	}
	return nil
}

func validateExtend(p *parser, isProto3 bool, scope string, ext ast.Extend) error {
	ctx := fieldContext{extendee: ext.Name}
	if len(ext.Fields) == 0 && len(ext.Groups) == 0 {
		if err := p.errorf(ext.Location, "extend %s: extend sections must define at least one extension", ext.Name); err != nil {
			return err
		}
	}
	for _, f := range ext.Fields {
		if err := validateField(p, isProto3, scope, f, ctx); err != nil {
			return err
		}
	}
	for _, g := range ext.Groups {
		if err := validateGroup(p, isProto3, scope, g, ctx); err != nil {
			return err
		}
	}
	return nil
}

func validateEnum(p *parser, isProto3 bool, scope string, enum ast.Enum) error {
	where := fmt.Sprintf("enum %s", ast.Qualify(scope, enum.Name))

	if len(enum.Constants) == 0 {
		if err := p.errorf(enum.Location, "%s: enums must define at least one value", where); err != nil {
			return err
		}
	}

	allowAlias := false
	if opt, ok := ast.FindOption(enum.Options, "allow_alias"); ok {
		if opt.Value.Kind != ast.KindBool {
			if err := p.errorf(opt.Location, "%s: expecting bool value for allow_alias option", where); err != nil {
				return err
			}
		}
		allowAlias = opt.Value.Kind == ast.KindBool && opt.Value.Scalar == "true"
	}

	if isProto3 && len(enum.Constants) > 0 && enum.Constants[0].Tag != 0 {
		if err := p.errorf(enum.Constants[0].Location, "%s: proto3 requires that first value in enum have numeric value of 0", where); err != nil {
			return err
		}
	}

	if !allowAlias {
		// make sure all value numbers are distinct
		vals := map[int32]string{}
		for _, c := range enum.Constants {
			if existing, ok := vals[c.Tag]; ok {
				if err := p.errorf(c.Location, "%s: values %s and %s both have the same numeric value %d; use allow_alias option if intentional", where, existing, c.Name, c.Tag); err != nil {
					return err
				}
			}
			vals[c.Tag] = c.Name
		}
	}

	rsvd, rsvdNames, err := validateReserved(p, where, enum.Reserved, ast.MinEnumValue, ast.MaxEnumValue)
	if err != nil {
		return err
	}
	for _, c := range enum.Constants {
		if _, ok := rsvdNames[c.Name]; ok {
			if err := p.errorf(c.Location, "%s: value %s is using a reserved name", where, c.Name); err != nil {
				return err
			}
		}
		if r, ok := findRange(rsvd, c.Tag); ok {
			if err := p.errorf(c.Location, "%s: value %s is using number %d which is in reserved range %s", where, c.Name, c.Tag, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateService(p *parser, scope string, svc ast.Service) error {
	fqn := ast.Qualify(scope, svc.Name)
	names := newNameScope(fqn)
	for _, rpc := range svc.RPCs {
		if err := names.add(p, rpc.Name, rpc.Location); err != nil {
			return err
		}
	}
	return nil
}

// validateReserved checks reserved ranges and names and returns the
// sorted ranges and the set of names.
func validateReserved(p *parser, where string, reserved []ast.Reserved, lowest, highest int32) ([]ast.TagRange, map[string]struct{}, error) {
	var ranges []ast.TagRange
	names := map[string]struct{}{}
	for _, r := range reserved {
		ranges = append(ranges, r.Ranges...)
		for _, name := range r.Names {
			if !ast.IsIdentifier(name) {
				if err := p.errorf(r.Location, "%s: reserved name %q is not a valid identifier", where, name); err != nil {
					return nil, nil, err
				}
			}
			if _, ok := names[name]; ok {
				if err := p.errorf(r.Location, "%s: name %q is reserved multiple times", where, name); err != nil {
					return nil, nil, err
				}
			}
			names[name] = struct{}{}
		}
	}
	sorted, err := validateRanges(p, where, "reserved", reserved, ranges, lowest, highest)
	return sorted, names, err
}

// validateRanges checks that ranges are well-formed and do not overlap,
// and returns them sorted. Errors are reported at the first declaration
// in decls.
func validateRanges[T ast.Element](p *parser, where, kind string, decls []T, ranges []ast.TagRange, lowest, highest int32) ([]ast.TagRange, error) {
	if len(ranges) == 0 {
		return nil, nil
	}
	pos := decls[0].Position()
	for _, r := range ranges {
		if r.Start > r.End {
			if err := p.errorf(pos, "%s: %s range %s is invalid: start must be <= end", where, kind, r); err != nil {
				return nil, err
			}
		}
		if r.Start < lowest || r.End > highest {
			if err := p.errorf(pos, "%s: %s range %s is out of range: should be between %d and %d", where, kind, r, lowest, highest); err != nil {
				return nil, err
			}
		}
	}
	sorted := make([]ast.TagRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start ||
			(sorted[i].Start == sorted[j].Start && sorted[i].End < sorted[j].End)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start <= sorted[i-1].End {
			if err := p.errorf(pos, "%s: %s ranges overlap: %s and %s", where, kind, sorted[i-1], sorted[i]); err != nil {
				return nil, err
			}
		}
	}
	return sorted, nil
}

// findRange returns the range in sorted that contains tag.
func findRange(sorted []ast.TagRange, tag int32) (ast.TagRange, bool) {
	i := sort.Search(len(sorted), func(index int) bool { return sorted[index].End >= tag })
	if i < len(sorted) && sorted[i].Start <= tag {
		return sorted[i], true
	}
	return ast.TagRange{}, false
}

func validateProfile(p *parser, profile ast.ProfileFile) error {
	if profile.Syntax != ast.SyntaxWire2 {
		if err := p.errorf(profile.Position(), "profile files must declare syntax = %q", ast.SyntaxWire2); err != nil {
			return err
		}
	}
	seen := map[string]ast.SourcePos{}
	for _, config := range profile.TypeConfigs {
		name := strings.TrimPrefix(config.Type, ".")
		if prev, ok := seen[name]; ok {
			if err := p.errorf(config.Location, "type %s is already configured at %v", name, prev); err != nil {
				return err
			}
		}
		seen[name] = config.Location
	}
	return nil
}
