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

// Package wellknownimports provides the well-known import files that ship
// with protoc, such as "google/protobuf/descriptor.proto", as schema
// files. Loaders use them when a file imports one of these paths and the
// source tree does not contain it.
//
// The files are built from the descriptors embedded in the Protobuf Go
// runtime rather than from source, so they carry no comments and no
// source positions.
package wellknownimports

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	_ "google.golang.org/protobuf/types/descriptorpb" // registers descriptor.proto
	_ "google.golang.org/protobuf/types/known/anypb"
	_ "google.golang.org/protobuf/types/known/apipb"
	_ "google.golang.org/protobuf/types/known/durationpb"
	_ "google.golang.org/protobuf/types/known/emptypb"
	_ "google.golang.org/protobuf/types/known/fieldmaskpb"
	_ "google.golang.org/protobuf/types/known/sourcecontextpb"
	_ "google.golang.org/protobuf/types/known/structpb"
	_ "google.golang.org/protobuf/types/known/timestamppb"
	_ "google.golang.org/protobuf/types/known/typepb"
	_ "google.golang.org/protobuf/types/known/wrapperspb"
	_ "google.golang.org/protobuf/types/pluginpb"

	"github.com/bufbuild/protoschema/ast"
)

var standardFilenames = []string{
	"google/protobuf/any.proto",
	"google/protobuf/api.proto",
	"google/protobuf/compiler/plugin.proto",
	"google/protobuf/descriptor.proto",
	"google/protobuf/duration.proto",
	"google/protobuf/empty.proto",
	"google/protobuf/field_mask.proto",
	"google/protobuf/source_context.proto",
	"google/protobuf/struct.proto",
	"google/protobuf/timestamp.proto",
	"google/protobuf/type.proto",
	"google/protobuf/wrappers.proto",
}

var (
	standardImportsOnce sync.Once
	standardImports     map[string]ast.ProtoFile
)

func loadStandardImports() {
	standardImports = make(map[string]ast.ProtoFile, len(standardFilenames))
	for _, fn := range standardFilenames {
		fd, err := protoregistry.GlobalFiles.FindFileByPath(fn)
		if err != nil {
			panic(err.Error())
		}
		standardImports[fn] = FromDescriptor(fd)
	}
}

// Paths returns the paths of all well-known files, sorted.
func Paths() []string {
	paths := make([]string, len(standardFilenames))
	copy(paths, standardFilenames)
	sort.Strings(paths)
	return paths
}

// Lookup returns the well-known file with the given path.
func Lookup(path string) (ast.ProtoFile, bool) {
	standardImportsOnce.Do(loadStandardImports)
	file, ok := standardImports[path]
	return file, ok
}

// IsWellKnown reports whether path names a well-known file.
func IsWellKnown(path string) bool {
	for _, fn := range standardFilenames {
		if fn == path {
			return true
		}
	}
	return false
}

// FromDescriptor converts a file descriptor into a schema file. Type
// references are written fully-qualified with a leading dot. Options
// that are set on the descriptors become options of the elements, in
// field number order.
func FromDescriptor(fd protoreflect.FileDescriptor) ast.ProtoFile {
	c := converter{pos: ast.UnknownPos(fd.Path())}
	file := ast.ProtoFile{
		Path:     fd.Path(),
		Syntax:   fd.Syntax().String(),
		Package:  string(fd.Package()),
		Options:  c.convertOptions(fd.Options()),
		Location: c.pos,
	}
	for i := 0; i < fd.Imports().Len(); i++ {
		imp := fd.Imports().Get(i)
		switch {
		case imp.IsPublic:
			file.PublicImports = append(file.PublicImports, imp.Path())
		case imp.IsWeak:
			file.WeakImports = append(file.WeakImports, imp.Path())
		default:
			file.Imports = append(file.Imports, imp.Path())
		}
	}
	for i := 0; i < fd.Messages().Len(); i++ {
		file.Types = append(file.Types, c.convertMessage(fd.Messages().Get(i)))
	}
	for i := 0; i < fd.Enums().Len(); i++ {
		file.Types = append(file.Types, c.convertEnum(fd.Enums().Get(i)))
	}
	file.Extends = c.convertExtensions(fd.Extensions())
	for i := 0; i < fd.Services().Len(); i++ {
		file.Services = append(file.Services, c.convertService(fd.Services().Get(i)))
	}
	return file
}

// converter converts descriptors of one file. Every element it creates
// is positioned at the file, since descriptors carry no source info.
type converter struct {
	pos ast.SourcePos
}

func (c converter) convertMessage(md protoreflect.MessageDescriptor) ast.Message {
	msg := ast.Message{
		Name:     string(md.Name()),
		Options:  c.convertOptions(md.Options()),
		Location: c.pos,
	}

	var names []string
	for i := 0; i < md.ReservedNames().Len(); i++ {
		names = append(names, string(md.ReservedNames().Get(i)))
	}
	if len(names) > 0 {
		msg.Reserved = append(msg.Reserved, ast.Reserved{Names: names, Location: c.pos})
	}
	if ranges := fieldRanges(md.ReservedRanges()); len(ranges) > 0 {
		msg.Reserved = append(msg.Reserved, ast.Reserved{Ranges: ranges, Location: c.pos})
	}
	for i := 0; i < md.ExtensionRanges().Len(); i++ {
		r := md.ExtensionRanges().Get(i)
		msg.Extensions = append(msg.Extensions, ast.Extensions{
			Ranges:   []ast.TagRange{fieldRange(r)},
			Options:  c.convertOptions(md.ExtensionRangeOptions(i)),
			Location: c.pos,
		})
	}

	oneOfs := map[protoreflect.Name]int{}
	for i := 0; i < md.Oneofs().Len(); i++ {
		od := md.Oneofs().Get(i)
		if od.IsSynthetic() {
			continue
		}
		oneOfs[od.Name()] = len(msg.OneOfs)
		msg.OneOfs = append(msg.OneOfs, ast.OneOf{
			Name:     string(od.Name()),
			Options:  c.convertOptions(od.Options()),
			Location: c.pos,
		})
	}

	groups := map[protoreflect.FullName]struct{}{}
	for i := 0; i < md.Fields().Len(); i++ {
		fld := md.Fields().Get(i)
		od := fld.ContainingOneof()
		inOneOf := od != nil && !od.IsSynthetic()
		if isGroup(fld) {
			groups[fld.Message().FullName()] = struct{}{}
			group := c.convertGroup(fld, inOneOf)
			if inOneOf {
				o := &msg.OneOfs[oneOfs[od.Name()]]
				o.Groups = append(o.Groups, group)
			} else {
				msg.Groups = append(msg.Groups, group)
			}
			continue
		}
		field := c.convertField(fld, inOneOf)
		if inOneOf {
			o := &msg.OneOfs[oneOfs[od.Name()]]
			o.Fields = append(o.Fields, field)
		} else {
			msg.Fields = append(msg.Fields, field)
		}
	}

	for i := 0; i < md.Messages().Len(); i++ {
		nested := md.Messages().Get(i)
		if _, ok := groups[nested.FullName()]; ok || nested.IsMapEntry() {
			continue
		}
		msg.Types = append(msg.Types, c.convertMessage(nested))
	}
	for i := 0; i < md.Enums().Len(); i++ {
		msg.Types = append(msg.Types, c.convertEnum(md.Enums().Get(i)))
	}
	msg.Extends = c.convertExtensions(md.Extensions())
	return msg
}

func isGroup(fld protoreflect.FieldDescriptor) bool {
	return fld.Kind() == protoreflect.GroupKind &&
		fld.Message() != nil &&
		fld.Message().Parent() == fld.Parent() &&
		strings.ToLower(string(fld.Message().Name())) == string(fld.Name())
}

func (c converter) convertField(fld protoreflect.FieldDescriptor, inOneOf bool) ast.Field {
	return ast.Field{
		Label:    label(fld, inOneOf),
		Type:     typeName(fld),
		Name:     string(fld.Name()),
		Tag:      int32(fld.Number()),
		Options:  c.fieldOptions(fld),
		Location: c.pos,
	}
}

func (c converter) convertGroup(fld protoreflect.FieldDescriptor, inOneOf bool) ast.Group {
	md := fld.Message()
	group := ast.Group{
		Label:    label(fld, inOneOf),
		Name:     string(md.Name()),
		Tag:      int32(fld.Number()),
		Options:  c.fieldOptions(fld),
		Location: c.pos,
	}
	for i := 0; i < md.Fields().Len(); i++ {
		group.Fields = append(group.Fields, c.convertField(md.Fields().Get(i), false))
	}
	return group
}

func label(fld protoreflect.FieldDescriptor, inOneOf bool) ast.Label {
	switch {
	case inOneOf, fld.IsMap():
		return ast.LabelNone
	case fld.Cardinality() == protoreflect.Repeated:
		return ast.LabelRepeated
	case fld.Cardinality() == protoreflect.Required:
		return ast.LabelRequired
	case fld.ParentFile().Syntax() == protoreflect.Proto3 && !fld.HasOptionalKeyword():
		return ast.LabelNone
	default:
		return ast.LabelOptional
	}
}

func typeName(fld protoreflect.FieldDescriptor) string {
	if fld.IsMap() {
		return ast.MapType(typeName(fld.MapKey()), typeName(fld.MapValue()))
	}
	switch fld.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return "." + string(fld.Message().FullName())
	case protoreflect.EnumKind:
		return "." + string(fld.Enum().FullName())
	default:
		return fld.Kind().String()
	}
}

// fieldOptions returns the options of fld, preceded by the default and
// json_name pseudo-options when they are set explicitly.
func (c converter) fieldOptions(fld protoreflect.FieldDescriptor) []ast.Option {
	var opts []ast.Option
	if fld.HasDefault() {
		opts = append(opts, ast.Option{
			Name:     ast.SimpleOptionName("default"),
			Value:    scalarValue(fld, fld.Default()),
			Location: c.pos,
		})
	}
	if fld.HasJSONName() && fld.JSONName() != jsonCamelCase(string(fld.Name())) {
		opts = append(opts, ast.Option{
			Name:     ast.SimpleOptionName("json_name"),
			Value:    ast.StringValue(fld.JSONName()),
			Location: c.pos,
		})
	}
	return append(opts, c.convertOptions(fld.Options())...)
}

// jsonCamelCase returns the default JSON name of a field.
func jsonCamelCase(s string) string {
	var b strings.Builder
	upper := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_':
			upper = true
		case upper && c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
			upper = false
		default:
			b.WriteByte(c)
			upper = false
		}
	}
	return b.String()
}

func (c converter) convertEnum(ed protoreflect.EnumDescriptor) ast.Enum {
	enum := ast.Enum{
		Name:     string(ed.Name()),
		Options:  c.convertOptions(ed.Options()),
		Location: c.pos,
	}
	var names []string
	for i := 0; i < ed.ReservedNames().Len(); i++ {
		names = append(names, string(ed.ReservedNames().Get(i)))
	}
	if len(names) > 0 {
		enum.Reserved = append(enum.Reserved, ast.Reserved{Names: names, Location: c.pos})
	}
	var ranges []ast.TagRange
	for i := 0; i < ed.ReservedRanges().Len(); i++ {
		r := ed.ReservedRanges().Get(i)
		ranges = append(ranges, ast.TagRange{
			Start: int32(r[0]),
			End:   int32(r[1]),
			Max:   r[1] == ast.MaxEnumValue && r[0] != r[1],
		})
	}
	if len(ranges) > 0 {
		enum.Reserved = append(enum.Reserved, ast.Reserved{Ranges: ranges, Location: c.pos})
	}
	for i := 0; i < ed.Values().Len(); i++ {
		vd := ed.Values().Get(i)
		enum.Constants = append(enum.Constants, ast.EnumConstant{
			Name:     string(vd.Name()),
			Tag:      int32(vd.Number()),
			Options:  c.convertOptions(vd.Options()),
			Location: c.pos,
		})
	}
	return enum
}

func fieldRanges(ranges protoreflect.FieldRanges) []ast.TagRange {
	var result []ast.TagRange
	for i := 0; i < ranges.Len(); i++ {
		result = append(result, fieldRange(ranges.Get(i)))
	}
	return result
}

// fieldRange converts a half-open descriptor range into an inclusive one.
func fieldRange(r [2]protoreflect.FieldNumber) ast.TagRange {
	end := int32(r[1]) - 1
	return ast.TagRange{
		Start: int32(r[0]),
		End:   end,
		Max:   end == ast.MaxTag && int32(r[0]) != end,
	}
}

// convertExtensions groups extensions into one extend block per extended
// message, in order of first appearance.
func (c converter) convertExtensions(exts protoreflect.ExtensionDescriptors) []ast.Extend {
	var extends []ast.Extend
	index := map[protoreflect.FullName]int{}
	for i := 0; i < exts.Len(); i++ {
		xd := exts.Get(i)
		extendee := xd.ContainingMessage().FullName()
		idx, ok := index[extendee]
		if !ok {
			idx = len(extends)
			index[extendee] = idx
			extends = append(extends, ast.Extend{Name: "." + string(extendee), Location: c.pos})
		}
		if isGroup(xd) {
			extends[idx].Groups = append(extends[idx].Groups, c.convertGroup(xd, false))
		} else {
			extends[idx].Fields = append(extends[idx].Fields, c.convertField(xd, false))
		}
	}
	return extends
}

func (c converter) convertService(sd protoreflect.ServiceDescriptor) ast.Service {
	svc := ast.Service{
		Name:     string(sd.Name()),
		Options:  c.convertOptions(sd.Options()),
		Location: c.pos,
	}
	for i := 0; i < sd.Methods().Len(); i++ {
		mtd := sd.Methods().Get(i)
		svc.RPCs = append(svc.RPCs, ast.RPC{
			Name:              string(mtd.Name()),
			RequestType:       "." + string(mtd.Input().FullName()),
			ResponseType:      "." + string(mtd.Output().FullName()),
			RequestStreaming:  mtd.IsStreamingClient(),
			ResponseStreaming: mtd.IsStreamingServer(),
			Options:           c.convertOptions(mtd.Options()),
			Location:          c.pos,
		})
	}
	return svc
}

// convertOptions converts the populated fields of an options message.
// Repeated fields become one option per element.
func (c converter) convertOptions(opts interface{ ProtoReflect() protoreflect.Message }) []ast.Option {
	if opts == nil {
		return nil
	}
	msg := opts.ProtoReflect()
	if !msg.IsValid() {
		return nil
	}
	var result []ast.Option
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fld := fields.Get(i)
		if !msg.Has(fld) {
			continue
		}
		name := ast.SimpleOptionName(string(fld.Name()))
		if fld.IsList() {
			list := msg.Get(fld).List()
			for j := 0; j < list.Len(); j++ {
				result = append(result, ast.Option{Name: name, Value: convertValue(fld, list.Get(j)), Location: c.pos})
			}
			continue
		}
		result = append(result, ast.Option{Name: name, Value: convertValue(fld, msg.Get(fld)), Location: c.pos})
	}
	return result
}

func convertValue(fld protoreflect.FieldDescriptor, v protoreflect.Value) ast.OptionValue {
	if fld.Kind() != protoreflect.MessageKind && fld.Kind() != protoreflect.GroupKind {
		return scalarValue(fld, v)
	}
	msg := v.Message()
	var fields []ast.OptionField
	fds := msg.Descriptor().Fields()
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		if !msg.Has(fd) {
			continue
		}
		var value ast.OptionValue
		if fd.IsList() {
			list := msg.Get(fd).List()
			values := make([]ast.OptionValue, list.Len())
			for j := range values {
				values[j] = convertValue(fd, list.Get(j))
			}
			value = ast.ListValue(values...)
		} else {
			value = convertValue(fd, msg.Get(fd))
		}
		fields = append(fields, ast.OptionField{Name: string(fd.Name()), Value: value})
	}
	return ast.MapValue(fields...)
}

func scalarValue(fld protoreflect.FieldDescriptor, v protoreflect.Value) ast.OptionValue {
	switch fld.Kind() {
	case protoreflect.BoolKind:
		return ast.BoolValue(v.Bool())
	case protoreflect.StringKind:
		return ast.StringValue(v.String())
	case protoreflect.BytesKind:
		return ast.StringValue(string(v.Bytes()))
	case protoreflect.EnumKind:
		if vd := fld.Enum().Values().ByNumber(v.Enum()); vd != nil {
			return ast.EnumValue(string(vd.Name()))
		}
		return ast.NumberValue(strconv.FormatInt(int64(v.Enum()), 10))
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return floatValue(v.Float())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return ast.NumberValue(strconv.FormatInt(v.Int(), 10))
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return ast.NumberValue(strconv.FormatUint(v.Uint(), 10))
	default:
		return ast.StringValue(fmt.Sprint(v.Interface()))
	}
}

func floatValue(f float64) ast.OptionValue {
	switch text := strconv.FormatFloat(f, 'g', -1, 64); text {
	case "+Inf":
		return ast.EnumValue("inf")
	case "-Inf":
		return ast.NumberValue("-inf")
	case "NaN":
		return ast.EnumValue("nan")
	default:
		return ast.NumberValue(text)
	}
}
