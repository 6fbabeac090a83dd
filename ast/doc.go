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

// Package ast defines the element model for protobuf sources: one value
// type for each syntactic construct of a .proto file (messages, fields,
// oneofs, groups, options, enums, services, rpcs, extends) plus the
// .wire profile files that decorate those types.
//
// Elements are plain values. Each parent exclusively owns its children,
// and there are no back-pointers from a child to its parent. References
// to types defined elsewhere (a field's type, an rpc's request type, an
// import) are kept as names; the linker resolves them against a symbol
// index after all files are parsed.
//
// Every element can render itself back to canonical source text with
// its Serialize method. Serialization is pure and never fails: any value
// the parser produced can be rendered, and rendering the result of
// parsing rendered text yields the same text again.
//
// Child elements are rendered in a fixed order per parent (options
// first, then members such as fields or constants, then nested
// structure such as groups and nested types). Within each category,
// insertion order is preserved.
//
// Positions are tracked with SourcePos. Elements that were synthesized
// rather than parsed have a SourcePos with no line information.
package ast
