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
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/btree"

	"github.com/bufbuild/protoschema/ast"
	"github.com/bufbuild/protoschema/reporter"
	"github.com/bufbuild/protoschema/walk"
)

// SymbolKind is the kind of element a symbol names.
type SymbolKind int

const (
	KindMessage SymbolKind = iota + 1
	KindEnum
	KindEnumValue
	KindField
	KindOneOf
	KindExtension
	KindService
	KindRPC
)

func (k SymbolKind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindEnum:
		return "enum"
	case KindEnumValue:
		return "enum value"
	case KindField:
		return "field"
	case KindOneOf:
		return "oneof"
	case KindExtension:
		return "extension"
	case KindService:
		return "service"
	case KindRPC:
		return "rpc"
	default:
		return "unknown"
	}
}

// IsType reports whether the kind is a message or an enum.
func (k SymbolKind) IsType() bool {
	return k == KindMessage || k == KindEnum
}

// isAggregate reports whether symbols of this kind may contain other
// symbols.
func (k SymbolKind) isAggregate() bool {
	return k == KindMessage || k == KindEnum || k == KindService
}

// withArticle returns the kind name preceded by "a" or "an".
func (k SymbolKind) withArticle() string {
	s := k.String()
	switch s[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + s
	}
	return "a " + s
}

// Symbol is one named element of a schema.
type Symbol struct {
	// Name is the fully-qualified name, without a leading dot.
	Name string
	Kind SymbolKind
	// File is the path of the file that declares the element.
	File string
	Pos  ast.SourcePos
	// Element is the declaration. For a group it is the ast.Group, both
	// for the message symbol and for the field (or extension) symbol.
	Element ast.Element
}

// Symbols is a symbol table that maps the fully-qualified names of all
// elements to their declarations, ordered by name. The zero value is an
// empty table ready to use.
//
// This type is thread-safe.
type Symbols struct {
	mu      sync.Mutex
	symbols btree.Map[string, Symbol]
	files   map[string]ast.ProtoFile
	// packages maps each package, and each package that encloses it, to
	// the first file that declared it.
	packages map[string]string
}

// Import adds every element declared in file to the symbol table. If s is
// nil or a file with the same path has already been imported, this
// returns immediately without doing anything.
//
// Every name that is already in the table is reported to the handler as
// a *reporter.DuplicateTypeError; the earlier declaration is kept. The
// returned error is non-nil only if the handler asked to abort.
func (s *Symbols) Import(file ast.ProtoFile, handler *reporter.Handler) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[file.Path]; ok {
		// already imported
		return nil
	}
	if s.files == nil {
		s.files = map[string]ast.ProtoFile{}
		s.packages = map[string]string{}
	}
	s.files[file.Path] = file

	for pkg := file.Package; pkg != ""; pkg = parentScope(pkg) {
		if _, ok := s.packages[pkg]; ok {
			continue
		}
		if existing, ok := s.symbols.Get(pkg); ok {
			err := handler.HandleError(&reporter.DuplicateTypeError{Name: pkg, Pos: file.Position(), Previous: existing.Pos})
			if err != nil {
				return err
			}
			continue
		}
		s.packages[pkg] = file.Path
	}

	// Only the direct members of an extend block are extensions; the
	// fields of a group declared there are not.
	var extendDepth, groupDepth int
	enter := func(name string, el ast.Element) error {
		switch el := el.(type) {
		case ast.Message:
			return s.addLocked(file.Path, name, KindMessage, el, handler)
		case ast.Enum:
			return s.addLocked(file.Path, name, KindEnum, el, handler)
		case ast.EnumConstant:
			return s.addLocked(file.Path, name, KindEnumValue, el, handler)
		case ast.OneOf:
			return s.addLocked(file.Path, name, KindOneOf, el, handler)
		case ast.Field:
			kind := KindField
			if extendDepth > 0 && groupDepth == 0 {
				kind = KindExtension
			}
			return s.addLocked(file.Path, name, kind, el, handler)
		case ast.Group:
			groupDepth++
			if err := s.addLocked(file.Path, name, KindMessage, el, handler); err != nil {
				return err
			}
			kind := KindField
			if extendDepth > 0 && groupDepth == 1 {
				kind = KindExtension
			}
			return s.addLocked(file.Path, groupFieldName(name, el), kind, el, handler)
		case ast.Extend:
			extendDepth++
		case ast.Service:
			return s.addLocked(file.Path, name, KindService, el, handler)
		case ast.RPC:
			return s.addLocked(file.Path, name, KindRPC, el, handler)
		}
		return nil
	}
	exit := func(_ string, el ast.Element) error {
		switch el.(type) {
		case ast.Extend:
			extendDepth--
		case ast.Group:
			groupDepth--
		}
		return nil
	}
	return walk.ElementsEnterAndExit(file, enter, exit)
}

func (s *Symbols) addLocked(path, name string, kind SymbolKind, el ast.Element, handler *reporter.Handler) error {
	pos := el.Position()
	if existing, ok := s.symbols.Get(name); ok {
		return handler.HandleError(&reporter.DuplicateTypeError{Name: name, Pos: pos, Previous: existing.Pos})
	}
	if pkgFile, ok := s.packages[name]; ok {
		return handler.HandleError(&reporter.DuplicateTypeError{Name: name, Pos: pos, Previous: ast.UnknownPos(pkgFile)})
	}
	s.symbols.Set(name, Symbol{Name: name, Kind: kind, File: path, Pos: pos, Element: el})
	return nil
}

// Lookup returns the symbol with the given fully-qualified name. A
// leading dot is ignored.
func (s *Symbols) Lookup(name string) (Symbol, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbols.Get(strings.TrimPrefix(name, "."))
}

// IsPackage reports whether name is a package of an imported file, or
// encloses one.
func (s *Symbols) IsPackage(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.packages[strings.TrimPrefix(name, ".")]
	return ok
}

// All returns every symbol, ordered by name.
func (s *Symbols) All() []Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	syms := make([]Symbol, 0, s.symbols.Len())
	s.symbols.Scan(func(_ string, sym Symbol) bool {
		syms = append(syms, sym)
		return true
	})
	return syms
}

// Types returns the message and enum symbols, ordered by name.
func (s *Symbols) Types() []Symbol {
	var types []Symbol
	for _, sym := range s.All() {
		if sym.Kind.IsType() {
			types = append(types, sym)
		}
	}
	return types
}

// Descendants returns the symbols nested within scope, which may be a
// package or the name of an element, ordered by name.
func (s *Symbols) Descendants(scope string) []Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scope == "" {
		syms := make([]Symbol, 0, s.symbols.Len())
		s.symbols.Scan(func(_ string, sym Symbol) bool {
			syms = append(syms, sym)
			return true
		})
		return syms
	}
	prefix := scope + "."
	var syms []Symbol
	iter := s.symbols.Iter()
	for ok := iter.Seek(prefix); ok && strings.HasPrefix(iter.Key(), prefix); ok = iter.Next() {
		syms = append(syms, iter.Value())
	}
	return syms
}

// File returns the imported file with the given path.
func (s *Symbols) File(path string) (ast.ProtoFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[path]
	return file, ok
}

// Files returns the paths of all imported files, sorted.
func (s *Symbols) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.files))
	for path := range s.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Resolve resolves name, as written in scope, using protobuf's scoping
// rules. A name with a leading dot is fully-qualified. Otherwise scope and
// each scope that encloses it are searched, innermost first. When
// typesOnly is set, a single-component name skips elements that are not
// messages or enums.
//
// For a compound name whose first component is found in some scope, the
// rest must be found in that same scope; if it is not, Resolve fails and
// returns the fully-qualified name the reference resolved to.
func (s *Symbols) Resolve(scope, name string, typesOnly bool) (Symbol, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.HasPrefix(name, ".") {
		sym, ok := s.symbols.Get(name[1:])
		return sym, name[1:], ok
	}
	first, rest, compound := strings.Cut(name, ".")
	for {
		candidate := ast.Qualify(scope, first)
		sym, found := s.symbols.Get(candidate)
		_, isPkg := s.packages[candidate]
		switch {
		case compound && (isPkg || found && sym.Kind.isAggregate()):
			full := candidate + "." + rest
			target, ok := s.symbols.Get(full)
			return target, full, ok
		case !compound && found && (!typesOnly || sym.Kind.IsType()):
			return sym, candidate, true
		}
		if scope == "" {
			return Symbol{}, "", false
		}
		scope = parentScope(scope)
	}
}

func parentScope(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

// groupFieldName returns the fully-qualified name of the field a group
// declares, given the fully-qualified name of the group's message.
func groupFieldName(groupName string, g ast.Group) string {
	return ast.Qualify(parentScope(groupName), g.FieldName())
}
