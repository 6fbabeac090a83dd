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

package linker

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	_ "google.golang.org/protobuf/types/descriptorpb" // registers the options messages

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/reporter"
	"github.com/bufbuild/protoschema/walk"
)

const (
	fileOptions           = "google.protobuf.FileOptions"
	messageOptions        = "google.protobuf.MessageOptions"
	fieldOptions          = "google.protobuf.FieldOptions"
	oneofOptions          = "google.protobuf.OneofOptions"
	extensionRangeOptions = "google.protobuf.ExtensionRangeOptions"
	enumOptions           = "google.protobuf.EnumOptions"
	enumValueOptions      = "google.protobuf.EnumValueOptions"
	serviceOptions        = "google.protobuf.ServiceOptions"
	methodOptions         = "google.protobuf.MethodOptions"
)

func (l *fileLinker) linkOptions() error {
	ol := &optionLinker{res: l.res, handler: l.handler, visible: l.visible, used: l.used}
	if err := ol.checkOptions(l.path, l.file.Package, fileOptions, l.file.Options); err != nil {
		return err
	}
	return walk.Elements(l.file, func(name string, el ast.Element) error {
		scope := parentScope(name)
		switch el := el.(type) {
		case ast.Message:
			if err := ol.checkOptions(name, name, messageOptions, el.Options); err != nil {
				return err
			}
			for _, ext := range el.Extensions {
				if err := ol.checkOptions(name, name, extensionRangeOptions, ext.Options); err != nil {
					return err
				}
			}
		case ast.Field:
			return ol.checkFieldOptions(name, scope, el)
		case ast.Group:
			return ol.checkOptions(groupFieldName(name, el), scope, fieldOptions, el.Options)
		case ast.OneOf:
			return ol.checkOptions(name, scope, oneofOptions, el.Options)
		case ast.Enum:
			return ol.checkOptions(name, name, enumOptions, el.Options)
		case ast.EnumConstant:
			return ol.checkOptions(name, scope, enumValueOptions, el.Options)
		case ast.Service:
			return ol.checkOptions(name, name, serviceOptions, el.Options)
		case ast.RPC:
			return ol.checkOptions(name, scope, methodOptions, el.Options)
		}
		return nil
	})
}

// optionLinker checks option names and values. Extension names are
// resolved like type references, with the same visibility rules.
type optionLinker struct {
	res     *Result
	handler *reporter.Handler
	visible map[string]string
	used    map[string]struct{}
}

// optionMessage is a message whose fields options may set: one of the
// descriptor options messages (or a message they use), or a message
// declared in the schema.
type optionMessage interface {
	fullName() string
	field(name string) (optionField, bool)
}

// optionField describes the type of a field an option sets. At most one
// of scalar, enum and message is set; when none is set, the type is not
// known and values are not checked.
type optionField struct {
	repeated bool
	isMap    bool
	scalar   string
	enum     *optionEnum
	message  optionMessage
}

type optionEnum struct {
	name     string
	hasValue func(string) bool
}

func (f optionField) typeName() string {
	switch {
	case f.isMap:
		return "map"
	case f.enum != nil:
		return f.enum.name
	case f.message != nil:
		return f.message.fullName()
	default:
		return f.scalar
	}
}

type descriptorMessage struct {
	md protoreflect.MessageDescriptor
}

func builtinMessage(name string) optionMessage {
	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(protoreflect.FullName(name))
	if err != nil {
		panic(fmt.Sprintf("options message %s is not registered: %v", name, err))
	}
	return descriptorMessage{md: desc.(protoreflect.MessageDescriptor)}
}

func (m descriptorMessage) fullName() string {
	return string(m.md.FullName())
}

func (m descriptorMessage) field(name string) (optionField, bool) {
	fd := m.md.Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return optionField{}, false
	}
	f := optionField{repeated: fd.IsList(), isMap: fd.IsMap()}
	switch fd.Kind() {
	case protoreflect.EnumKind:
		ed := fd.Enum()
		f.enum = &optionEnum{
			name: string(ed.FullName()),
			hasValue: func(name string) bool {
				return ed.Values().ByName(protoreflect.Name(name)) != nil
			},
		}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		if !fd.IsMap() {
			f.message = descriptorMessage{md: fd.Message()}
		}
	default:
		f.scalar = fd.Kind().String()
	}
	return f, true
}

type schemaMessage struct {
	res *Result
	sym Symbol
}

func (m schemaMessage) fullName() string {
	return m.sym.Name
}

func (m schemaMessage) field(name string) (optionField, bool) {
	sym, ok := m.res.Symbols.Lookup(m.sym.Name + "." + name)
	if !ok || sym.Kind != KindField {
		return optionField{}, false
	}
	return m.res.schemaField(sym), true
}

// schemaField describes a field or extension declared in the schema.
func (r *Result) schemaField(sym Symbol) optionField {
	switch el := sym.Element.(type) {
	case ast.Group:
		f := optionField{repeated: el.Label == ast.LabelRepeated}
		if msg, ok := r.Symbols.Lookup(ast.Qualify(parentScope(sym.Name), el.Name)); ok {
			f.message = schemaMessage{res: r, sym: msg}
		}
		return f
	case ast.Field:
		f := optionField{repeated: el.Label == ast.LabelRepeated}
		if el.IsMap() {
			f.isMap, f.repeated = true, true
			return f
		}
		if ast.IsScalarType(el.Type) {
			f.scalar = el.Type
			return f
		}
		ref, ok := r.Reference(sym.File, sym.Name, RefFieldType)
		if !ok {
			return f
		}
		switch target := ref.Target.Element.(type) {
		case ast.Enum:
			f.enum = &optionEnum{
				name: ref.Target.Name,
				hasValue: func(name string) bool {
					_, ok := target.Constant(name)
					return ok
				},
			}
		default:
			f.message = schemaMessage{res: r, sym: ref.Target}
		}
		return f
	}
	return optionField{}
}

func (ol *optionLinker) checkOptions(element, scope, optionsName string, opts []ast.Option) error {
	if len(opts) == 0 {
		return nil
	}
	msg := builtinMessage(optionsName)
	for _, opt := range opts {
		if err := ol.checkOption(element, scope, msg, opt); err != nil {
			return err
		}
	}
	return nil
}

// checkFieldOptions checks the options of a field, including the default
// and json_name pseudo-options.
func (ol *optionLinker) checkFieldOptions(name, scope string, f ast.Field) error {
	var rest []ast.Option
	for _, opt := range f.Options {
		if len(opt.Name) != 1 || opt.Name[0].Extension {
			rest = append(rest, opt)
			continue
		}
		var err error
		switch opt.Name[0].Name {
		case "default":
			err = ol.checkDefault(name, opt)
		case "json_name":
			err = ol.checkJSONName(name, opt)
		default:
			rest = append(rest, opt)
			continue
		}
		if err != nil {
			return err
		}
	}
	return ol.checkOptions(name, scope, fieldOptions, rest)
}

func (ol *optionLinker) checkDefault(name string, opt ast.Option) error {
	sym, ok := ol.res.Symbols.Lookup(name)
	if !ok {
		return nil
	}
	field := ol.res.schemaField(sym)
	switch {
	case field.repeated:
		return ol.invalidValue(opt, name, errors.New("for default: repeated fields cannot have default values"))
	case field.message != nil:
		return ol.invalidValue(opt, name, errors.New("for default: message fields cannot have default values"))
	}
	return ol.checkValue(opt, name, "", field, opt.Value, "default")
}

func (ol *optionLinker) checkJSONName(name string, opt ast.Option) error {
	if sym, ok := ol.res.Symbols.Lookup(name); ok && sym.Kind == KindExtension {
		return ol.invalidValue(opt, name, errors.New("for json_name: not allowed on extensions"))
	}
	if opt.Value.Kind != ast.KindString {
		return ol.invalidValue(opt, name, fmt.Errorf("for json_name: expecting string, got %s", describeValue(opt.Value)))
	}
	return nil
}

func (ol *optionLinker) checkOption(element, scope string, msg optionMessage, opt ast.Option) error {
	cur := msg
	var field optionField
	for i, part := range opt.Name {
		if cur == nil {
			return ol.unknownOption(opt, element, fmt.Errorf("%s is not a message", opt.Name[:i]))
		}
		if part.Extension {
			f, ok, err := ol.extensionField(opt.Location, element, scope, part.Name, cur)
			if err != nil || !ok {
				return err
			}
			field = f
		} else {
			f, ok := cur.field(part.Name)
			if !ok {
				return ol.unknownOption(opt, element, fmt.Errorf("%s has no field named %s", cur.fullName(), part.Name))
			}
			field = f
		}
		cur = field.message
	}
	return ol.checkValue(opt, element, scope, field, opt.Value, opt.Name.String())
}

// extensionField resolves an extension name used in an option name or a
// message literal and checks that it extends msg. The returned bool is
// false when the extension could not be used; any such problem has been
// reported already.
func (ol *optionLinker) extensionField(pos ast.SourcePos, element, scope, name string, msg optionMessage) (optionField, bool, error) {
	sym, ok, err := resolveVisible(ol.res.Symbols, ol.visible, ol.used, ol.handler, pos, element, scope, name, false)
	if err != nil || !ok {
		return optionField{}, false, err
	}
	if sym.Kind != KindExtension {
		return optionField{}, false, ol.handler.HandleError(&reporter.LinkError{
			Pos: pos, Element: element, Name: name,
			Err: fmt.Errorf("%w (%s): %s is %s, not an extension", ErrUnknownOption, name, sym.Name, sym.Kind.withArticle()),
		})
	}
	extendee, ok := ol.res.extendees[sym.Name]
	if !ok {
		// extendee did not link; already reported
		return optionField{}, false, nil
	}
	if extendee != msg.fullName() {
		return optionField{}, false, ol.handler.HandleError(&reporter.LinkError{
			Pos: pos, Element: element, Name: name,
			Err: fmt.Errorf("%w (%s): extension %s extends %s, not %s", ErrUnknownOption, name, sym.Name, extendee, msg.fullName()),
		})
	}
	return ol.res.schemaField(sym), true, nil
}

func (ol *optionLinker) checkValue(opt ast.Option, element, scope string, field optionField, value ast.OptionValue, path string) error {
	if value.Kind == ast.KindList {
		if !field.repeated {
			return ol.invalidValue(opt, element, fmt.Errorf("for %s: list value given for a non-repeated field", path))
		}
		for _, item := range value.List {
			if err := ol.checkValue(opt, element, scope, field, item, path); err != nil {
				return err
			}
		}
		return nil
	}
	switch {
	case field.isMap:
		return nil
	case field.message != nil:
		if value.Kind != ast.KindMap {
			return ol.invalidValue(opt, element, fmt.Errorf("for %s: expecting message %s, got %s", path, field.message.fullName(), describeValue(value)))
		}
		for _, f := range value.Fields {
			var sub optionField
			if f.Extension {
				if strings.Contains(f.Name, "/") {
					// expanded Any
					continue
				}
				ext, ok, err := ol.extensionField(opt.Location, element, scope, f.Name, field.message)
				if err != nil || !ok {
					return err
				}
				sub = ext
			} else {
				fld, ok := field.message.field(f.Name)
				if !ok {
					return ol.unknownOption(opt, element, fmt.Errorf("%s has no field named %s", field.message.fullName(), f.Name))
				}
				sub = fld
			}
			if err := ol.checkValue(opt, element, scope, sub, f.Value, path+"."+f.Name); err != nil {
				return err
			}
		}
		return nil
	case field.enum != nil:
		if value.Kind != ast.KindEnum {
			return ol.invalidValue(opt, element, fmt.Errorf("for %s: expecting enum %s, got %s", path, field.enum.name, describeValue(value)))
		}
		if !field.enum.hasValue(value.Scalar) {
			return ol.invalidValue(opt, element, fmt.Errorf("for %s: enum %s has no value named %s", path, field.enum.name, value.Scalar))
		}
		return nil
	case field.scalar != "":
		if err := checkScalar(field.scalar, value); err != nil {
			return ol.invalidValue(opt, element, fmt.Errorf("for %s: %w", path, err))
		}
	}
	return nil
}

func (ol *optionLinker) unknownOption(opt ast.Option, element string, err error) error {
	return ol.handler.HandleError(&reporter.LinkError{
		Pos: opt.Location, Element: element, Name: opt.Name.String(),
		Err: fmt.Errorf("%w %s: %w", ErrUnknownOption, opt.Name, err),
	})
}

func (ol *optionLinker) invalidValue(opt ast.Option, element string, err error) error {
	return ol.handler.HandleError(&reporter.LinkError{
		Pos: opt.Location, Element: element, Name: opt.Name.String(),
		Err: fmt.Errorf("%w %w", ErrInvalidOptionValue, err),
	})
}

func checkScalar(typ string, v ast.OptionValue) error {
	switch typ {
	case "bool":
		if v.Kind == ast.KindBool {
			return nil
		}
	case "string", "bytes":
		if v.Kind == ast.KindString {
			return nil
		}
	case "float", "double":
		switch v.Kind {
		case ast.KindNumber:
			if _, err := strconv.ParseInt(v.Scalar, 0, 64); err == nil {
				return nil
			}
			if f, err := strconv.ParseFloat(v.Scalar, 64); err == nil {
				if typ == "float" && !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
					return fmt.Errorf("value %s is out of range for float", v.Scalar)
				}
				return nil
			}
		case ast.KindEnum:
			switch strings.ToLower(v.Scalar) {
			case "inf", "infinity", "nan":
				return nil
			}
		}
	case "int32", "sint32", "sfixed32", "int64", "sint64", "sfixed64":
		if v.Kind == ast.KindNumber {
			bits := 64
			if strings.HasSuffix(typ, "32") {
				bits = 32
			}
			_, err := strconv.ParseInt(v.Scalar, 0, bits)
			if err == nil {
				return nil
			}
			if errors.Is(err, strconv.ErrRange) {
				return fmt.Errorf("value %s is out of range for %s", v.Scalar, typ)
			}
		}
	case "uint32", "fixed32", "uint64", "fixed64":
		if v.Kind == ast.KindNumber {
			bits := 64
			if strings.HasSuffix(typ, "32") {
				bits = 32
			}
			_, err := strconv.ParseUint(v.Scalar, 0, bits)
			if err == nil {
				return nil
			}
			if errors.Is(err, strconv.ErrRange) || strings.HasPrefix(v.Scalar, "-") {
				return fmt.Errorf("value %s is out of range for %s", v.Scalar, typ)
			}
		}
	}
	return fmt.Errorf("expecting %s, got %s", typ, describeValue(v))
}

func describeValue(v ast.OptionValue) string {
	switch v.Kind {
	case ast.KindString:
		return "string"
	case ast.KindBool, ast.KindNumber:
		return v.Scalar
	case ast.KindEnum:
		return "identifier " + v.Scalar
	case ast.KindMap:
		return "message"
	default:
		return "list"
	}
}
