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

// Package fdp converts linked schema files into descriptor protos, the
// form protoc plugins and the protobuf runtime consume.
//
// All type names in the result are fully-qualified with a leading dot.
// Builtin options with scalar or enum values are set on the options
// messages; every other option is kept as an uninterpreted option.
package fdp

import (
	"errors"
	"fmt"
	"slices"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/internal"
	"github.com/bufbuild/protoschema/internal/toposort"
	"github.com/bufbuild/protoschema/linker"
)

// ErrNotLinked is returned when a file refers to a type that the linked
// result has no reference for, typically because the file was not part
// of the files that were linked.
var ErrNotLinked = errors.New("reference is not linked")

// DescriptorOption is an option to pass to [FileDescriptorProto] or
// [DescriptorSet].
type DescriptorOption func(*descGenerator)

// IncludeSourceInfo adds source code info to the generated descriptors:
// the position and leading comments of every declaration whose position
// is known.
func IncludeSourceInfo() DescriptorOption {
	return func(dg *descGenerator) {
		dg.sourceInfo = true
	}
}

// FileDescriptorProto generates the descriptor of file, which must have
// been linked into res.
func FileDescriptorProto(file ast.ProtoFile, res *linker.Result, options ...DescriptorOption) (*descriptorpb.FileDescriptorProto, error) {
	dg := newGenerator(res, options)
	fdp := new(descriptorpb.FileDescriptorProto)
	dg.file(file, fdp)
	if dg.err != nil {
		return nil, dg.err
	}
	return fdp, nil
}

// DescriptorSet generates a FileDescriptorSet for the given files and
// every file they import, transitively. Each file in the set comes after
// the files it imports.
func DescriptorSet(files []ast.ProtoFile, res *linker.Result, options ...DescriptorOption) (*descriptorpb.FileDescriptorSet, error) {
	sorted, err := toposort.Sort(
		files,
		func(f ast.ProtoFile) string { return f.Path },
		func(f ast.ProtoFile) []ast.ProtoFile {
			var deps []ast.ProtoFile
			for _, imp := range f.AllImports() {
				if dep, ok := res.Symbols.File(imp); ok {
					deps = append(deps, dep)
				}
			}
			return deps
		},
	)
	if err != nil {
		return nil, err
	}
	fds := new(descriptorpb.FileDescriptorSet)
	for _, file := range sorted {
		fdp, err := FileDescriptorProto(file, res, options...)
		if err != nil {
			return nil, err
		}
		fds.File = append(fds.File, fdp)
	}
	return fds, nil
}

// DescriptorSetBytes is like [DescriptorSet], but returns the encoded set.
func DescriptorSetBytes(files []ast.ProtoFile, res *linker.Result, options ...DescriptorOption) ([]byte, error) {
	fds, err := DescriptorSet(files, res, options...)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(fds)
}

type descGenerator struct {
	res        *linker.Result
	sourceInfo bool

	currentFile ast.ProtoFile
	sci         *descriptorpb.SourceCodeInfo
	err         error
}

func newGenerator(res *linker.Result, options []DescriptorOption) *descGenerator {
	dg := &descGenerator{res: res}
	for _, opt := range options {
		if opt != nil {
			opt(dg)
		}
	}
	return dg
}

// container is a file or message that declarations are added to.
type container struct {
	name string
	path []int32

	fields, extensions []*descriptorpb.FieldDescriptorProto
	types              []*descriptorpb.DescriptorProto
	enums              []*descriptorpb.EnumDescriptorProto

	fieldsTag, extensionsTag, typesTag, enumsTag int32
}

func (c *container) addField(fd *descriptorpb.FieldDescriptorProto) []int32 {
	c.fields = append(c.fields, fd)
	return c.child(c.fieldsTag, len(c.fields)-1)
}

func (c *container) addExtension(fd *descriptorpb.FieldDescriptorProto) []int32 {
	c.extensions = append(c.extensions, fd)
	return c.child(c.extensionsTag, len(c.extensions)-1)
}

func (c *container) addType(mdp *descriptorpb.DescriptorProto) []int32 {
	c.types = append(c.types, mdp)
	return c.child(c.typesTag, len(c.types)-1)
}

func (c *container) addEnum(edp *descriptorpb.EnumDescriptorProto) []int32 {
	c.enums = append(c.enums, edp)
	return c.child(c.enumsTag, len(c.enums)-1)
}

func (c *container) child(tag int32, index int) []int32 {
	return append(slices.Clip(c.path), tag, int32(index))
}

func (dg *descGenerator) file(file ast.ProtoFile, fdp *descriptorpb.FileDescriptorProto) {
	dg.currentFile = file
	if dg.sourceInfo {
		dg.sci = new(descriptorpb.SourceCodeInfo)
	}

	fdp.Name = addr(file.Path)
	if file.Package != "" {
		fdp.Package = addr(file.Package)
	}
	// Descriptors leave the syntax unset for proto2.
	if file.IsProto3() {
		fdp.Syntax = addr(ast.SyntaxProto3)
	}

	fdp.Dependency = append(fdp.Dependency, file.Imports...)
	for _, imp := range file.PublicImports {
		fdp.Dependency = append(fdp.Dependency, imp)
		fdp.PublicDependency = append(fdp.PublicDependency, int32(len(fdp.Dependency)-1))
	}
	for _, imp := range file.WeakImports {
		fdp.Dependency = append(fdp.Dependency, imp)
		fdp.WeakDependency = append(fdp.WeakDependency, int32(len(fdp.Dependency)-1))
	}

	c := &container{
		name:          file.Package,
		extensionsTag: internal.FileExtensionsTag,
		typesTag:      internal.FileMessagesTag,
		enumsTag:      internal.FileEnumsTag,
	}
	for _, t := range file.Types {
		dg.typeElement(c, t)
	}
	for _, ext := range file.Extends {
		dg.extend(c, ext)
	}
	fdp.MessageType = c.types
	fdp.EnumType = c.enums
	fdp.Extension = c.extensions

	for i, svc := range file.Services {
		sdp := new(descriptorpb.ServiceDescriptorProto)
		fdp.Service = append(fdp.Service, sdp)
		dg.service(ast.Qualify(file.Package, svc.Name), svc, sdp, []int32{internal.FileServicesTag, int32(i)})
	}

	if len(file.Options) > 0 {
		fdp.Options = new(descriptorpb.FileOptions)
		setOptions(fdp.Options, file.Options)
	}
	if dg.sci != nil {
		fdp.SourceCodeInfo = dg.sci
	}
}

func (dg *descGenerator) typeElement(c *container, t ast.TypeElement) {
	switch t := t.(type) {
	case ast.Message:
		dg.message(c, t)
	case ast.Enum:
		dg.enum(c, t)
	}
}

func (dg *descGenerator) message(parent *container, msg ast.Message) {
	mdp := &descriptorpb.DescriptorProto{Name: addr(msg.Name)}
	path := parent.addType(mdp)
	dg.location(path, msg.Location, msg.Documentation)

	c := messageContainer(ast.Qualify(parent.name, msg.Name), path)
	for _, f := range msg.Fields {
		dg.field(c, f, nil)
	}
	for i, o := range msg.OneOfs {
		odp := &descriptorpb.OneofDescriptorProto{Name: addr(o.Name)}
		if len(o.Options) > 0 {
			odp.Options = new(descriptorpb.OneofOptions)
			setOptions(odp.Options, o.Options)
		}
		mdp.OneofDecl = append(mdp.OneofDecl, odp)
		dg.location(append(slices.Clip(path), internal.MessageOneOfsTag, int32(i)), o.Location, o.Documentation)
		for _, f := range o.Fields {
			dg.field(c, f, addr(int32(i)))
		}
		for _, g := range o.Groups {
			dg.group(c, g, addr(int32(i)), false)
		}
	}
	for _, g := range msg.Groups {
		dg.group(c, g, nil, false)
	}
	for _, t := range msg.Types {
		dg.typeElement(c, t)
	}
	for _, ext := range msg.Extends {
		dg.extend(c, ext)
	}

	for _, r := range msg.Reserved {
		for _, rng := range r.Ranges {
			mdp.ReservedRange = append(mdp.ReservedRange, &descriptorpb.DescriptorProto_ReservedRange{
				Start: addr(rng.Start),
				End:   addr(exclusiveEnd(rng)),
			})
		}
		mdp.ReservedName = append(mdp.ReservedName, r.Names...)
	}
	for _, e := range msg.Extensions {
		var opts *descriptorpb.ExtensionRangeOptions
		if len(e.Options) > 0 {
			opts = new(descriptorpb.ExtensionRangeOptions)
			setOptions(opts, e.Options)
		}
		for _, rng := range e.Ranges {
			er := &descriptorpb.DescriptorProto_ExtensionRange{
				Start: addr(rng.Start),
				End:   addr(exclusiveEnd(rng)),
			}
			if opts != nil {
				er.Options = proto.Clone(opts).(*descriptorpb.ExtensionRangeOptions)
			}
			mdp.ExtensionRange = append(mdp.ExtensionRange, er)
		}
	}
	if len(msg.Options) > 0 {
		mdp.Options = new(descriptorpb.MessageOptions)
		setOptions(mdp.Options, msg.Options)
	}
	c.fill(mdp)
}

func messageContainer(name string, path []int32) *container {
	return &container{
		name:          name,
		path:          path,
		fieldsTag:     internal.MessageFieldsTag,
		extensionsTag: internal.MessageExtensionsTag,
		typesTag:      internal.MessageNestedMessagesTag,
		enumsTag:      internal.MessageEnumsTag,
	}
}

// fill moves the declarations collected in c into mdp and adds the
// synthetic oneofs of proto3 optional fields, which always come after
// the declared oneofs.
func (c *container) fill(mdp *descriptorpb.DescriptorProto) {
	mdp.Field = c.fields
	mdp.NestedType = c.types
	mdp.EnumType = c.enums
	mdp.Extension = c.extensions
	for _, fd := range mdp.Field {
		if !fd.GetProto3Optional() {
			continue
		}
		fd.OneofIndex = addr(int32(len(mdp.OneofDecl)))
		mdp.OneofDecl = append(mdp.OneofDecl, &descriptorpb.OneofDescriptorProto{
			Name: addr(syntheticOneofName(mdp, fd.GetName())),
		})
	}
}

// syntheticOneofName prefixes the field name with an underscore, and
// then with "X" until it collides with no field or oneof.
func syntheticOneofName(mdp *descriptorpb.DescriptorProto, field string) string {
	name := "_" + field
	for {
		taken := slices.ContainsFunc(mdp.Field, func(fd *descriptorpb.FieldDescriptorProto) bool {
			return fd.GetName() == name
		}) || slices.ContainsFunc(mdp.OneofDecl, func(od *descriptorpb.OneofDescriptorProto) bool {
			return od.GetName() == name
		})
		if !taken {
			return name
		}
		name = "X" + name
	}
}

// field adds a field of a message or group to c.
func (dg *descGenerator) field(c *container, f ast.Field, oneof *int32) {
	name := ast.Qualify(c.name, f.Name)
	var fd *descriptorpb.FieldDescriptorProto
	if key, value, ok := ast.ParseMapType(f.Type); ok {
		fd = dg.mapField(c, name, f, key, value)
	} else {
		fd = dg.fieldDescriptor(name, f)
		if dg.currentFile.IsProto3() && f.Label == ast.LabelOptional {
			fd.Proto3Optional = addr(true)
		}
	}
	fd.OneofIndex = oneof
	dg.location(c.addField(fd), f.Location, f.Documentation)
}

// mapField adds the synthesized entry message of a map field to c and
// returns the field's descriptor.
func (dg *descGenerator) mapField(c *container, name string, f ast.Field, key, value string) *descriptorpb.FieldDescriptorProto {
	entryName := mapEntryName(f.Name)
	keyField := &descriptorpb.FieldDescriptorProto{
		Name:   addr("key"),
		Number: addr(int32(1)),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   internal.FieldTypes[key].Enum(),
	}
	valueField := &descriptorpb.FieldDescriptorProto{
		Name:   addr("value"),
		Number: addr(int32(2)),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
	}
	if scalar, ok := internal.FieldTypes[value]; ok {
		valueField.Type = scalar.Enum()
	} else {
		dg.setType(valueField, name, linker.RefMapValue, value, f.Location)
	}
	c.addType(&descriptorpb.DescriptorProto{
		Name:    addr(entryName),
		Field:   []*descriptorpb.FieldDescriptorProto{keyField, valueField},
		Options: &descriptorpb.MessageOptions{MapEntry: addr(true)},
	})

	fd := &descriptorpb.FieldDescriptorProto{
		Name:     addr(f.Name),
		Number:   addr(f.Tag),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: addr("." + ast.Qualify(c.name, entryName)),
	}
	dg.fieldOptions(fd, f.Options)
	return fd
}

// mapEntryName returns the name of the entry message of a map field:
// the field name in camel case followed by "Entry".
func mapEntryName(field string) string {
	name := make([]byte, 0, len(field)+len("Entry"))
	upper := true
	for i := 0; i < len(field); i++ {
		ch := field[i]
		if ch == '_' {
			upper = true
			continue
		}
		if upper && ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		upper = false
		name = append(name, ch)
	}
	return string(name) + "Entry"
}

// fieldDescriptor builds the descriptor of a non-map field whose
// fully-qualified name is name.
func (dg *descGenerator) fieldDescriptor(name string, f ast.Field) *descriptorpb.FieldDescriptorProto {
	fd := &descriptorpb.FieldDescriptorProto{
		Name:   addr(f.Name),
		Number: addr(f.Tag),
		Label:  internal.FieldLabels[f.Label.String()].Enum(),
	}
	if scalar, ok := internal.FieldTypes[f.Type]; ok {
		fd.Type = scalar.Enum()
	} else {
		dg.setType(fd, name, linker.RefFieldType, f.Type, f.Location)
	}
	dg.fieldOptions(fd, f.Options)
	return fd
}

// group adds a group field (or extension) and its message type to c.
func (dg *descGenerator) group(c *container, g ast.Group, oneof *int32, extension bool) {
	msgName := ast.Qualify(c.name, g.Name)
	fd := &descriptorpb.FieldDescriptorProto{
		Name:       addr(g.FieldName()),
		Number:     addr(g.Tag),
		Label:      internal.FieldLabels[g.Label.String()].Enum(),
		Type:       descriptorpb.FieldDescriptorProto_TYPE_GROUP.Enum(),
		TypeName:   addr("." + msgName),
		OneofIndex: oneof,
	}
	if len(g.Options) > 0 {
		fd.Options = new(descriptorpb.FieldOptions)
		setOptions(fd.Options, g.Options)
	}

	mdp := &descriptorpb.DescriptorProto{Name: addr(g.Name)}
	path := c.addType(mdp)
	dg.location(path, g.Location, g.Documentation)
	inner := messageContainer(msgName, path)
	for _, f := range g.Fields {
		dg.field(inner, f, nil)
	}
	inner.fill(mdp)

	if extension {
		fieldName := ast.Qualify(c.name, g.FieldName())
		dg.setExtendee(fd, fieldName, g.Location)
		dg.location(c.addExtension(fd), g.Location, g.Documentation)
		return
	}
	dg.location(c.addField(fd), g.Location, g.Documentation)
}

func (dg *descGenerator) extend(c *container, ext ast.Extend) {
	for _, f := range ext.Fields {
		name := ast.Qualify(c.name, f.Name)
		fd := dg.fieldDescriptor(name, f)
		dg.setExtendee(fd, name, f.Location)
		dg.location(c.addExtension(fd), f.Location, f.Documentation)
	}
	for _, g := range ext.Groups {
		dg.group(c, g, nil, true)
	}
}

func (dg *descGenerator) setExtendee(fd *descriptorpb.FieldDescriptorProto, name string, pos ast.SourcePos) {
	extendee, ok := dg.res.Extendee(name)
	if !ok {
		dg.fail(fmt.Errorf("%v: extension %s: %w", pos, name, ErrNotLinked))
		return
	}
	fd.Extendee = addr("." + extendee)
}

// setType sets the type of fd from the reference of the given kind made
// by the element with the given fully-qualified name.
func (dg *descGenerator) setType(fd *descriptorpb.FieldDescriptorProto, element string, kind linker.RefKind, written string, pos ast.SourcePos) {
	ref, ok := dg.res.Reference(dg.currentFile.Path, element, kind)
	if !ok {
		dg.fail(fmt.Errorf("%v: %s: %w: %s", pos, element, ErrNotLinked, written))
		return
	}
	if ref.Target.Kind == linker.KindEnum {
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum()
	} else {
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
	}
	fd.TypeName = addr("." + ref.Target.Name)
}

func (dg *descGenerator) enum(c *container, e ast.Enum) {
	edp := &descriptorpb.EnumDescriptorProto{Name: addr(e.Name)}
	path := c.addEnum(edp)
	dg.location(path, e.Location, e.Documentation)

	for i, k := range e.Constants {
		vdp := &descriptorpb.EnumValueDescriptorProto{
			Name:   addr(k.Name),
			Number: addr(k.Tag),
		}
		if len(k.Options) > 0 {
			vdp.Options = new(descriptorpb.EnumValueOptions)
			setOptions(vdp.Options, k.Options)
		}
		edp.Value = append(edp.Value, vdp)
		dg.location(append(slices.Clip(path), internal.EnumValuesTag, int32(i)), k.Location, k.Documentation)
	}
	for _, r := range e.Reserved {
		for _, rng := range r.Ranges {
			// Enum reserved ranges are inclusive.
			edp.ReservedRange = append(edp.ReservedRange, &descriptorpb.EnumDescriptorProto_EnumReservedRange{
				Start: addr(rng.Start),
				End:   addr(rng.End),
			})
		}
		edp.ReservedName = append(edp.ReservedName, r.Names...)
	}
	if len(e.Options) > 0 {
		edp.Options = new(descriptorpb.EnumOptions)
		setOptions(edp.Options, e.Options)
	}
}

func (dg *descGenerator) service(name string, svc ast.Service, sdp *descriptorpb.ServiceDescriptorProto, path []int32) {
	sdp.Name = addr(svc.Name)
	dg.location(path, svc.Location, svc.Documentation)
	for i, rpc := range svc.RPCs {
		rpcName := ast.Qualify(name, rpc.Name)
		mdp := &descriptorpb.MethodDescriptorProto{
			Name:       addr(rpc.Name),
			InputType:  dg.rpcType(rpcName, linker.RefRequest, rpc),
			OutputType: dg.rpcType(rpcName, linker.RefResponse, rpc),
		}
		if rpc.RequestStreaming {
			mdp.ClientStreaming = addr(true)
		}
		if rpc.ResponseStreaming {
			mdp.ServerStreaming = addr(true)
		}
		if len(rpc.Options) > 0 {
			mdp.Options = new(descriptorpb.MethodOptions)
			setOptions(mdp.Options, rpc.Options)
		}
		sdp.Method = append(sdp.Method, mdp)
		dg.location(append(slices.Clip(path), internal.ServiceMethodsTag, int32(i)), rpc.Location, rpc.Documentation)
	}
	if len(svc.Options) > 0 {
		sdp.Options = new(descriptorpb.ServiceOptions)
		setOptions(sdp.Options, svc.Options)
	}
}

func (dg *descGenerator) rpcType(name string, kind linker.RefKind, rpc ast.RPC) *string {
	ref, ok := dg.res.Reference(dg.currentFile.Path, name, kind)
	if !ok {
		dg.fail(fmt.Errorf("%v: %s %s: %w", rpc.Location, name, kind, ErrNotLinked))
		return nil
	}
	return addr("." + ref.Target.Name)
}

func (dg *descGenerator) location(path []int32, pos ast.SourcePos, doc string) {
	if dg.sci == nil || pos.Line <= 0 {
		return
	}
	loc := &descriptorpb.SourceCodeInfo_Location{
		Path: slices.Clone(path),
		Span: []int32{int32(pos.Line - 1), int32(pos.Col - 1), int32(pos.Col - 1)},
	}
	if doc != "" {
		loc.LeadingComments = addr(doc)
	}
	dg.sci.Location = append(dg.sci.Location, loc)
}

func (dg *descGenerator) fail(err error) {
	if dg.err == nil {
		dg.err = err
	}
}

// exclusiveEnd converts the inclusive end of a message range to the
// exclusive end used by descriptors.
func exclusiveEnd(r ast.TagRange) int32 {
	if r.Max || r.End >= ast.MaxTag {
		return ast.MaxTag + 1
	}
	return r.End + 1
}

func addr[T any](v T) *T {
	return &v
}
