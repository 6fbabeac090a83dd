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

package fdp

import (
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/internal/schematext"
)

const (
	defaultOption  = "default"
	jsonNameOption = "json_name"
)

// fieldOptions sets the default value, JSON name and options of fd.
func (dg *descGenerator) fieldOptions(fd *descriptorpb.FieldDescriptorProto, opts []ast.Option) {
	var rest []ast.Option
	for _, opt := range opts {
		switch {
		case opt.Name.IsSimple() && opt.Name[0].Name == defaultOption:
			fd.DefaultValue = addr(defaultValue(fd.GetType(), opt.Value))
		case opt.Name.IsSimple() && opt.Name[0].Name == jsonNameOption:
			fd.JsonName = addr(opt.Value.Scalar)
		default:
			rest = append(rest, opt)
		}
	}
	if len(rest) > 0 {
		fd.Options = new(descriptorpb.FieldOptions)
		setOptions(fd.Options, rest)
	}
}

// defaultValue renders a default value the way descriptors hold it:
// numbers in canonical form, bytes C-escaped, and enum values by name.
func defaultValue(typ descriptorpb.FieldDescriptorProto_Type, v ast.OptionValue) string {
	switch typ {
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return cEscape(v.Scalar)
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		f, err := strconv.ParseFloat(v.Scalar, 64)
		if err != nil {
			return v.Scalar
		}
		switch {
		case math.IsInf(f, 1):
			return "inf"
		case math.IsInf(f, -1):
			return "-inf"
		case math.IsNaN(f):
			return "nan"
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32, descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		if i, err := strconv.ParseInt(v.Scalar, 0, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		if u, err := strconv.ParseUint(v.Scalar, 0, 64); err == nil {
			return strconv.FormatUint(u, 10)
		}
	}
	return v.Scalar
}

func cEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			if c < 0x20 || c >= 0x7f {
				b.WriteByte('\\')
				b.WriteByte('0' + c>>6)
				b.WriteByte('0' + (c>>3)&7)
				b.WriteByte('0' + c&7)
				continue
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// setOptions stores opts in msg, an options message such as
// *descriptorpb.FieldOptions. Options that name a scalar or enum field of
// msg are set on that field. All others, including custom options, are
// added as uninterpreted options.
func setOptions(msg proto.Message, opts []ast.Option) {
	m := msg.ProtoReflect()
	fields := m.Descriptor().Fields()
	uninterpreted := fields.ByName("uninterpreted_option")
	for _, opt := range opts {
		if opt.Name.IsSimple() {
			fd := fields.ByName(protoreflect.Name(opt.Name[0].Name))
			if fd != nil && setBuiltin(m, fd, opt.Value) {
				continue
			}
		}
		list := m.Mutable(uninterpreted).List()
		for _, u := range uninterpretedOptions(opt) {
			list.Append(protoreflect.ValueOfMessage(u.ProtoReflect()))
		}
	}
}

func setBuiltin(m protoreflect.Message, fd protoreflect.FieldDescriptor, v ast.OptionValue) bool {
	if fd.Message() != nil || fd.IsMap() {
		return false
	}
	if !fd.IsList() {
		val, ok := scalarValue(fd, v)
		if ok {
			m.Set(fd, val)
		}
		return ok
	}
	items := []ast.OptionValue{v}
	if v.Kind == ast.KindList {
		items = v.List
	}
	vals := make([]protoreflect.Value, len(items))
	for i, item := range items {
		val, ok := scalarValue(fd, item)
		if !ok {
			return false
		}
		vals[i] = val
	}
	list := m.Mutable(fd).List()
	for _, val := range vals {
		list.Append(val)
	}
	return true
}

func scalarValue(fd protoreflect.FieldDescriptor, v ast.OptionValue) (protoreflect.Value, bool) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		if v.Kind == ast.KindBool {
			return protoreflect.ValueOfBool(v.Scalar == "true"), true
		}
	case protoreflect.StringKind:
		if v.Kind == ast.KindString {
			return protoreflect.ValueOfString(v.Scalar), true
		}
	case protoreflect.BytesKind:
		if v.Kind == ast.KindString {
			return protoreflect.ValueOfBytes([]byte(v.Scalar)), true
		}
	case protoreflect.EnumKind:
		if v.Kind == ast.KindEnum {
			if ev := fd.Enum().Values().ByName(protoreflect.Name(v.Scalar)); ev != nil {
				return protoreflect.ValueOfEnum(ev.Number()), true
			}
		}
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		if i, err := strconv.ParseInt(v.Scalar, 0, 32); v.Kind == ast.KindNumber && err == nil {
			return protoreflect.ValueOfInt32(int32(i)), true
		}
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		if i, err := strconv.ParseInt(v.Scalar, 0, 64); v.Kind == ast.KindNumber && err == nil {
			return protoreflect.ValueOfInt64(i), true
		}
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		if u, err := strconv.ParseUint(v.Scalar, 0, 32); v.Kind == ast.KindNumber && err == nil {
			return protoreflect.ValueOfUint32(uint32(u)), true
		}
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		if u, err := strconv.ParseUint(v.Scalar, 0, 64); v.Kind == ast.KindNumber && err == nil {
			return protoreflect.ValueOfUint64(u), true
		}
	case protoreflect.FloatKind:
		if f, err := strconv.ParseFloat(v.Scalar, 32); (v.Kind == ast.KindNumber || v.Kind == ast.KindEnum) && err == nil {
			return protoreflect.ValueOfFloat32(float32(f)), true
		}
	case protoreflect.DoubleKind:
		if f, err := strconv.ParseFloat(v.Scalar, 64); (v.Kind == ast.KindNumber || v.Kind == ast.KindEnum) && err == nil {
			return protoreflect.ValueOfFloat64(f), true
		}
	}
	return protoreflect.Value{}, false
}

// uninterpretedOptions converts an option into uninterpreted form. A list
// value yields one uninterpreted option per element.
func uninterpretedOptions(opt ast.Option) []*descriptorpb.UninterpretedOption {
	if opt.Value.Kind == ast.KindList {
		opts := make([]*descriptorpb.UninterpretedOption, len(opt.Value.List))
		for i, item := range opt.Value.List {
			opts[i] = uninterpretedOption(opt.Name, item)
		}
		return opts
	}
	return []*descriptorpb.UninterpretedOption{uninterpretedOption(opt.Name, opt.Value)}
}

func uninterpretedOption(name ast.OptionName, v ast.OptionValue) *descriptorpb.UninterpretedOption {
	u := new(descriptorpb.UninterpretedOption)
	for _, part := range name {
		u.Name = append(u.Name, &descriptorpb.UninterpretedOption_NamePart{
			NamePart:    addr(part.Name),
			IsExtension: addr(part.Extension),
		})
	}
	switch v.Kind {
	case ast.KindString:
		u.StringValue = []byte(v.Scalar)
	case ast.KindBool, ast.KindEnum:
		u.IdentifierValue = addr(v.Scalar)
	case ast.KindNumber:
		if p, err := strconv.ParseUint(v.Scalar, 0, 64); err == nil {
			u.PositiveIntValue = addr(p)
		} else if n, err := strconv.ParseInt(v.Scalar, 0, 64); err == nil && n < 0 {
			u.NegativeIntValue = addr(n)
		} else if f, err := strconv.ParseFloat(v.Scalar, 64); err == nil {
			u.DoubleValue = addr(f)
		} else {
			u.IdentifierValue = addr(v.Scalar)
		}
	case ast.KindMap:
		u.AggregateValue = addr(aggregateText(v.Fields))
	case ast.KindList:
		u.AggregateValue = addr(textValue(v))
	}
	return u
}

// aggregateText renders the fields of a message literal in the text
// format, without the enclosing braces.
func aggregateText(fields []ast.OptionField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		key := f.Name
		if f.Extension {
			key = "[" + key + "]"
		}
		parts[i] = key + ": " + textValue(f.Value)
	}
	return strings.Join(parts, " ")
}

func textValue(v ast.OptionValue) string {
	switch v.Kind {
	case ast.KindString:
		return schematext.Quote(v.Scalar)
	case ast.KindMap:
		if len(v.Fields) == 0 {
			return "{}"
		}
		return "{ " + aggregateText(v.Fields) + " }"
	case ast.KindList:
		items := make([]string, len(v.List))
		for i, item := range v.List {
			items[i] = textValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	default:
		return v.Scalar
	}
}
