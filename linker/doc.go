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

// Package linker links parsed schema files: it indexes every declared
// element in a symbol table, resolves the type references of fields,
// extend blocks and rpcs, checks option names and values, and links the
// type configurations of profile files.
//
// # Symbols
//
// This package has a type named Symbols which represents a symbol table.
// Every message, enum, enum value, field, oneof, extension, service and
// rpc of every imported file is entered under its fully-qualified name.
// Importing two files that declare the same name reports a
// *reporter.DuplicateTypeError that names both declarations.
//
// # Visibility
//
// A reference in a file may only resolve to an element that is declared
// in one of the following:
//  1. The file itself.
//  2. A file that is directly imported by this file.
//  3. A file that is publicly imported, transitively, by a file in 2.
//
// A reference that resolves to any other file is reported as a link
// error even though the name exists.
package linker
