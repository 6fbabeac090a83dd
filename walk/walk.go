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

// Package walk provides helper functions for traversing all elements in a
// schema file, together with their fully-qualified names.
package walk

import (
	"errors"

	"github.com/bufbuild/protoschema/ast"
)

// SkipChildren may be returned by an enter function to skip the children
// of the element just entered. The element's exit function is still
// called.
var SkipChildren = errors.New("skip children") //nolint:revive,stylecheck

// Elements walks every declaration in file, calling fn with each one and
// its fully-qualified name. Messages, enums, groups, oneofs, fields, enum
// constants, extend blocks, services and rpcs are visited top-down in
// declaration category order.
//
// Enum constants are named as siblings of their enum. Oneof members are
// named as members of the enclosing message. An extend block is visited
// with the name of the scope that declares it; its fields are named in
// that scope too.
func Elements(file ast.ProtoFile, fn func(string, ast.Element) error) error {
	return ElementsEnterAndExit(file, fn, nil)
}

// ElementsEnterAndExit is like Elements but also calls exit after the
// children of each element are visited. Either function may be nil.
func ElementsEnterAndExit(file ast.ProtoFile, enter, exit func(string, ast.Element) error) error {
	w := &walker{enter: enter, exit: exit}
	for _, t := range file.Types {
		if err := w.typeElement(file.Package, t); err != nil {
			return err
		}
	}
	for _, ext := range file.Extends {
		if err := w.extend(file.Package, ext); err != nil {
			return err
		}
	}
	for _, svc := range file.Services {
		if err := w.service(file.Package, svc); err != nil {
			return err
		}
	}
	return nil
}

type walker struct {
	enter, exit func(string, ast.Element) error
}

// visit calls enter, then children (unless skipped), then exit.
func (w *walker) visit(name string, el ast.Element, children func() error) error {
	skip := false
	if w.enter != nil {
		if err := w.enter(name, el); err != nil {
			if !errors.Is(err, SkipChildren) {
				return err
			}
			skip = true
		}
	}
	if !skip && children != nil {
		if err := children(); err != nil {
			return err
		}
	}
	if w.exit != nil {
		return w.exit(name, el)
	}
	return nil
}

func (w *walker) typeElement(scope string, t ast.TypeElement) error {
	switch t := t.(type) {
	case ast.Message:
		return w.message(scope, t)
	case ast.Enum:
		return w.enum(scope, t)
	}
	return nil
}

func (w *walker) message(scope string, msg ast.Message) error {
	fqn := ast.Qualify(scope, msg.Name)
	return w.visit(fqn, msg, func() error {
		for _, f := range msg.Fields {
			if err := w.visit(ast.Qualify(fqn, f.Name), f, nil); err != nil {
				return err
			}
		}
		for _, o := range msg.OneOfs {
			if err := w.oneOf(fqn, o); err != nil {
				return err
			}
		}
		for _, g := range msg.Groups {
			if err := w.group(fqn, g); err != nil {
				return err
			}
		}
		for _, t := range msg.Types {
			if err := w.typeElement(fqn, t); err != nil {
				return err
			}
		}
		for _, ext := range msg.Extends {
			if err := w.extend(fqn, ext); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *walker) oneOf(scope string, o ast.OneOf) error {
	return w.visit(ast.Qualify(scope, o.Name), o, func() error {
		for _, f := range o.Fields {
			if err := w.visit(ast.Qualify(scope, f.Name), f, nil); err != nil {
				return err
			}
		}
		for _, g := range o.Groups {
			if err := w.group(scope, g); err != nil {
				return err
			}
		}
		return nil
	})
}

// group visits a group under the name of the message type it declares.
func (w *walker) group(scope string, g ast.Group) error {
	fqn := ast.Qualify(scope, g.Name)
	return w.visit(fqn, g, func() error {
		for _, f := range g.Fields {
			if err := w.visit(ast.Qualify(fqn, f.Name), f, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *walker) enum(scope string, enum ast.Enum) error {
	return w.visit(ast.Qualify(scope, enum.Name), enum, func() error {
		for _, c := range enum.Constants {
			if err := w.visit(ast.Qualify(scope, c.Name), c, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *walker) extend(scope string, ext ast.Extend) error {
	return w.visit(scope, ext, func() error {
		for _, f := range ext.Fields {
			if err := w.visit(ast.Qualify(scope, f.Name), f, nil); err != nil {
				return err
			}
		}
		for _, g := range ext.Groups {
			if err := w.group(scope, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *walker) service(scope string, svc ast.Service) error {
	fqn := ast.Qualify(scope, svc.Name)
	return w.visit(fqn, svc, func() error {
		for _, rpc := range svc.RPCs {
			if err := w.visit(ast.Qualify(fqn, rpc.Name), rpc, nil); err != nil {
				return err
			}
		}
		return nil
	})
}
