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
	"fmt"
	"sort"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/reporter"
	"github.com/bufbuild/protoschema/walk"
)

// RefKind identifies which reference of an element a Reference is.
type RefKind int

const (
	// RefFieldType is the type of a field that is not a map.
	RefFieldType RefKind = iota + 1
	// RefMapValue is the value type of a map field.
	RefMapValue
	// RefExtendee is the message an extension field extends.
	RefExtendee
	// RefRequest is the request type of an rpc.
	RefRequest
	// RefResponse is the response type of an rpc.
	RefResponse
	// RefTypeConfig is the type a profile's type configuration applies to.
	RefTypeConfig
)

func (k RefKind) String() string {
	switch k {
	case RefFieldType:
		return "field type"
	case RefMapValue:
		return "map value"
	case RefExtendee:
		return "extendee"
	case RefRequest:
		return "request type"
	case RefResponse:
		return "response type"
	case RefTypeConfig:
		return "type config"
	default:
		return "unknown"
	}
}

// Reference is a linked type reference.
type Reference struct {
	// File is the path of the file containing the reference.
	File string
	// Element is the fully-qualified name of the referencing element. For
	// type configurations it is the type as written in the profile.
	Element string
	Kind    RefKind
	// Name is the reference as written in source.
	Name   string
	Pos    ast.SourcePos
	Target Symbol
}

type refKey struct {
	file, element string
	kind          RefKind
}

// Options configures Link.
type Options struct {
	// WarnUnusedImports reports a warning for each non-public import that
	// no reference of the importing file needed.
	WarnUnusedImports bool
}

// Result is the result of linking.
type Result struct {
	// Symbols holds every element of the linked files.
	Symbols *Symbols

	refs        map[refKey]Reference
	extendees   map[string]string
	extTags     map[string]map[int32]ast.SourcePos
	typeConfigs map[string][]ast.TypeConfig
}

// Link links files and profiles. Every file that is imported by one of
// files must be included in files too. The symbols value is optional and
// may be nil; files that were already imported into it are not imported
// again. The handler value is used to report link errors and warnings.
// If any errors were reported to the handler, this function returns a
// non-nil error.
//
// Files are linked in path order. Type references, extendees and rpc
// types are linked for every file before any option is checked, so that
// options may use extensions declared in any file.
func Link(files []ast.ProtoFile, profiles []ast.ProfileFile, symbols *Symbols, handler *reporter.Handler, opts Options) (*Result, error) {
	if symbols == nil {
		symbols = &Symbols{}
	}
	files = append([]ast.ProtoFile(nil), files...)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	// First, we put all symbols into a single table, which lets us ensure
	// there are no duplicate symbols and will let us resolve references.
	for _, file := range files {
		if err := symbols.Import(file, handler); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Symbols:     symbols,
		refs:        map[refKey]Reference{},
		extendees:   map[string]string{},
		extTags:     map[string]map[int32]ast.SourcePos{},
		typeConfigs: map[string][]ast.TypeConfig{},
	}
	linkers := make([]*fileLinker, len(files))
	for i, file := range files {
		linkers[i] = &fileLinker{
			res:     res,
			file:    file,
			path:    file.Path,
			handler: handler,
			visible: res.visibleFiles(file.Path, file.AllImports()),
			used:    map[string]struct{}{},
		}
		if err := linkers[i].linkTypes(); err != nil {
			return nil, err
		}
	}
	for _, l := range linkers {
		if err := l.linkOptions(); err != nil {
			return nil, err
		}
	}

	profiles = append([]ast.ProfileFile(nil), profiles...)
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Path < profiles[j].Path
	})
	for _, profile := range profiles {
		if err := res.linkProfile(profile, handler); err != nil {
			return nil, err
		}
	}

	if opts.WarnUnusedImports {
		for _, l := range linkers {
			l.checkUnusedImports()
		}
	}
	return res, handler.Error()
}

// Reference returns the reference of the given kind made by the element
// with the given fully-qualified name in the given file.
func (r *Result) Reference(file, element string, kind RefKind) (Reference, bool) {
	ref, ok := r.refs[refKey{file: file, element: element, kind: kind}]
	return ref, ok
}

// References returns every linked reference, ordered by file, element
// and kind.
func (r *Result) References() []Reference {
	refs := make([]Reference, 0, len(r.refs))
	for _, ref := range r.refs {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Element != b.Element {
			return a.Element < b.Element
		}
		return a.Kind < b.Kind
	})
	return refs
}

// Extendee returns the fully-qualified name of the message the given
// extension extends.
func (r *Result) Extendee(extension string) (string, bool) {
	name, ok := r.extendees[extension]
	return name, ok
}

// TypeConfigs returns the profile type configurations that apply to the
// type with the given fully-qualified name, in profile path order.
func (r *Result) TypeConfigs(name string) []ast.TypeConfig {
	return r.typeConfigs[name]
}

func (r *Result) addReference(ref Reference) {
	r.refs[refKey{file: ref.File, element: ref.Element, kind: ref.Kind}] = ref
}

// visibleFiles returns the files whose elements a file with the given
// path and imports may refer to. Each is mapped to the direct import that
// makes it visible; the file itself maps to "".
func (r *Result) visibleFiles(path string, imports []string) map[string]string {
	visible := map[string]string{}
	if path != "" {
		visible[path] = ""
	}
	for _, imp := range imports {
		if imp != path {
			visible[imp] = imp
		}
	}
	for _, imp := range imports {
		queue := []string{imp}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			file, ok := r.Symbols.File(cur)
			if !ok {
				continue
			}
			for _, pub := range file.PublicImports {
				if _, ok := visible[pub]; ok {
					continue
				}
				visible[pub] = imp
				queue = append(queue, pub)
			}
		}
	}
	return visible
}

// fileLinker links the references of one file.
type fileLinker struct {
	res     *Result
	file    ast.ProtoFile
	path    string
	handler *reporter.Handler
	visible map[string]string
	used    map[string]struct{}
}

func (l *fileLinker) linkTypes() error {
	var extendee *Symbol
	var extendName string
	var inExtend bool
	// groupDepth counts the groups entered, whose fields are never
	// extensions.
	var groupDepth int
	enter := func(name string, el ast.Element) error {
		switch el := el.(type) {
		case ast.Extend:
			inExtend, extendee, extendName = true, nil, el.Name
			sym, ok, err := l.resolveMessage(el.Location, "extend "+el.Name, name, el.Name)
			if err != nil {
				return err
			}
			if ok {
				extendee = &sym
			}
			return nil
		case ast.Field:
			if inExtend && groupDepth == 0 && extendee != nil {
				if err := l.linkExtension(name, extendName, el.Tag, el.Location, *extendee); err != nil {
					return err
				}
			}
			return l.linkFieldType(name, el)
		case ast.Group:
			groupDepth++
			if inExtend && groupDepth == 1 && extendee != nil {
				return l.linkExtension(groupFieldName(name, el), extendName, el.Tag, el.Location, *extendee)
			}
			return nil
		case ast.RPC:
			scope := parentScope(name)
			if sym, ok, err := l.resolveMessage(el.Location, name, scope, el.RequestType); err != nil {
				return err
			} else if ok {
				l.res.addReference(Reference{File: l.path, Element: name, Kind: RefRequest, Name: el.RequestType, Pos: el.Location, Target: sym})
			}
			if sym, ok, err := l.resolveMessage(el.Location, name, scope, el.ResponseType); err != nil {
				return err
			} else if ok {
				l.res.addReference(Reference{File: l.path, Element: name, Kind: RefResponse, Name: el.ResponseType, Pos: el.Location, Target: sym})
			}
		}
		return nil
	}
	exit := func(_ string, el ast.Element) error {
		switch el.(type) {
		case ast.Extend:
			inExtend, extendee = false, nil
		case ast.Group:
			groupDepth--
		}
		return nil
	}
	return walk.ElementsEnterAndExit(l.file, enter, exit)
}

func (l *fileLinker) linkFieldType(name string, f ast.Field) error {
	scope := parentScope(name)
	kind, typeName := RefFieldType, f.Type
	if _, value, ok := ast.ParseMapType(f.Type); ok {
		kind, typeName = RefMapValue, value
	}
	if ast.IsScalarType(typeName) {
		return nil
	}
	sym, ok, err := l.resolve(f.Location, name, scope, typeName, true)
	if err != nil || !ok {
		return err
	}
	if !sym.Kind.IsType() {
		return l.handler.HandleError(&reporter.LinkError{
			Pos: f.Location, Element: name, Name: typeName,
			Err: fmt.Errorf("%w: %s is %s, not a message or enum", ErrInvalidReference, sym.Name, sym.Kind.withArticle()),
		})
	}
	if sym.Kind == KindEnum && l.file.IsProto3() && !l.isExtension(name) {
		if def, ok := l.res.Symbols.File(sym.File); ok && !def.IsProto3() {
			return l.handler.HandleError(&reporter.LinkError{
				Pos: f.Location, Element: name, Name: typeName,
				Err: fmt.Errorf("%w: enum %s is not a proto3 enum, but is used in a proto3 message", ErrInvalidReference, sym.Name),
			})
		}
	}
	l.res.addReference(Reference{File: l.path, Element: name, Kind: kind, Name: typeName, Pos: f.Location, Target: sym})
	return nil
}

func (l *fileLinker) isExtension(name string) bool {
	sym, ok := l.res.Symbols.Lookup(name)
	return ok && sym.Kind == KindExtension
}

func (l *fileLinker) linkExtension(name, extendName string, tag int32, pos ast.SourcePos, extendee Symbol) error {
	l.res.addReference(Reference{File: l.path, Element: name, Kind: RefExtendee, Name: extendName, Pos: pos, Target: extendee})
	l.res.extendees[name] = extendee.Name

	var ranges []ast.TagRange
	if msg, ok := extendee.Element.(ast.Message); ok {
		for _, ext := range msg.Extensions {
			ranges = append(ranges, ext.Ranges...)
		}
	}
	declared := false
	for _, r := range ranges {
		if r.Contains(tag) {
			declared = true
			break
		}
	}
	if !declared {
		return l.handler.HandleError(&reporter.LinkError{
			Pos: pos, Element: name, Name: extendName,
			Err: fmt.Errorf("%w: %s does not declare %d as an extension number", ErrInvalidExtension, extendee.Name, tag),
		})
	}

	tags := l.res.extTags[extendee.Name]
	if tags == nil {
		tags = map[int32]ast.SourcePos{}
		l.res.extTags[extendee.Name] = tags
	}
	if existing, ok := tags[tag]; ok {
		return l.handler.HandleError(&reporter.LinkError{
			Pos: pos, Element: name, Name: extendName,
			Err: fmt.Errorf("%w: extension with tag %d for message %s already defined at %v", ErrInvalidExtension, tag, extendee.Name, existing),
		})
	}
	tags[tag] = pos
	return nil
}

// resolveMessage resolves a reference that must name a message.
func (l *fileLinker) resolveMessage(pos ast.SourcePos, element, scope, name string) (Symbol, bool, error) {
	sym, ok, err := l.resolve(pos, element, scope, name, true)
	if err != nil || !ok {
		return Symbol{}, false, err
	}
	if sym.Kind != KindMessage {
		return Symbol{}, false, l.handler.HandleError(&reporter.LinkError{
			Pos: pos, Element: element, Name: name,
			Err: fmt.Errorf("%w: %s is %s, not a message", ErrInvalidReference, sym.Name, sym.Kind.withArticle()),
		})
	}
	return sym, true, nil
}

// resolve resolves name in scope and checks that the file declaring it is
// visible. Failures are reported to the handler; the returned error is
// non-nil only if the handler asked to abort.
func (l *fileLinker) resolve(pos ast.SourcePos, element, scope, name string, typesOnly bool) (Symbol, bool, error) {
	return resolveVisible(l.res.Symbols, l.visible, l.used, l.handler, pos, element, scope, name, typesOnly)
}

func resolveVisible(
	symbols *Symbols,
	visible map[string]string,
	used map[string]struct{},
	handler *reporter.Handler,
	pos ast.SourcePos,
	element, scope, name string,
	typesOnly bool,
) (Symbol, bool, error) {
	sym, resolved, ok := symbols.Resolve(scope, name, typesOnly)
	if !ok {
		err := fmt.Errorf("%w %s", ErrUnknownType, name)
		if resolved != "" {
			err = fmt.Errorf("%w %s; it resolves to %s, which is not defined; consider using a leading dot (.%s) to start from the outermost scope",
				ErrUnknownType, name, resolved, name)
		}
		return Symbol{}, false, handler.HandleError(&reporter.LinkError{Pos: pos, Element: element, Name: name, Err: err})
	}
	via, isVisible := visible[sym.File]
	if !isVisible {
		return Symbol{}, false, handler.HandleError(&reporter.LinkError{
			Pos: pos, Element: element, Name: name,
			Err: fmt.Errorf("%s is defined in %q, which %w", sym.Name, sym.File, ErrNotImported),
		})
	}
	if via != "" && used != nil {
		used[via] = struct{}{}
	}
	return sym, true, nil
}

func (l *fileLinker) checkUnusedImports() {
	for _, imp := range append(append([]string(nil), l.file.Imports...), l.file.WeakImports...) {
		if _, ok := l.used[imp]; ok {
			continue
		}
		l.handler.HandleWarning(l.file.ImportPosition(imp), fmt.Errorf("%w %q", ErrUnusedImport, imp))
	}
}

func (r *Result) linkProfile(profile ast.ProfileFile, handler *reporter.Handler) error {
	visible := r.visibleFiles("", profile.Imports)
	for _, tc := range profile.TypeConfigs {
		sym, ok, err := resolveVisible(r.Symbols, visible, nil, handler, tc.Location, tc.Type, profile.Package, tc.Type, true)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !sym.Kind.IsType() {
			if err := handler.HandleError(&reporter.LinkError{
				Pos: tc.Location, Element: tc.Type, Name: tc.Type,
				Err: fmt.Errorf("%w: %s is %s, not a message or enum", ErrInvalidReference, sym.Name, sym.Kind.withArticle()),
			}); err != nil {
				return err
			}
			continue
		}
		r.addReference(Reference{File: profile.Path, Element: tc.Type, Kind: RefTypeConfig, Name: tc.Type, Pos: tc.Location, Target: sym})
		r.typeConfigs[sym.Name] = append(r.typeConfigs[sym.Name], tc)

		ol := &optionLinker{res: r, handler: handler, visible: visible}
		optionsMessage := "google.protobuf.MessageOptions"
		if sym.Kind == KindEnum {
			optionsMessage = "google.protobuf.EnumOptions"
		}
		if err := ol.checkOptions(tc.Type, profile.Package, optionsMessage, tc.Options); err != nil {
			return err
		}
	}
	return nil
}
