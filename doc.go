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

// Package protoschema loads protobuf schemas.
//
// Source files are registered into a [SourceTree] under logical paths:
// ".proto" files declare types, and ".wire" profile files attach code
// generation settings to types declared elsewhere. A [Loader] then parses
// every registered file, resolves imports transitively, links type
// references and returns a [Schema].
//
// # Loading
//
// Loading happens in these phases:
//  1. Parse every file of the source tree, in parallel. A file with a
//     syntax error yields no model, but the other files are still parsed
//     so that all syntax errors are reported at once.
//  2. Compute the import closure of the root files and of every profile.
//     Imports that are not in the source tree are looked up with the
//     loader's resolver and then among the well-known files that ship with
//     protoc (such as "google/protobuf/timestamp.proto").
//     Also see: [WithStandardImports]
//  3. Index every declared symbol, detecting duplicates.
//  4. Link type references, extendees, options and profile types.
//     Also see: linker.Link
//
// Errors found in phases 2 to 4 are aggregated, so that one call to
// [Loader.Load] reports every problem it can find. They are returned as
// a [*SchemaError] whose errors are sorted by position.
//
// The source tree is frozen by the first call to Load. Registering files
// afterwards fails with a [*ConflictError], and later calls to Load return
// the cached result.
//
// # Element model
//
// The model of a file is an ast.ProtoFile. Every element of the model can
// be rendered back to canonical source text with its Serialize method,
// without a loader.
package protoschema
