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

// Package parser contains the logic for parsing protobuf source code, and
// the .wire profile files that decorate it, into the element model of the
// ast package.
//
// The parser is hand-written: a lexer turns the source into tokens (and
// attaches to each token the comment group directly above it) and a
// recursive-descent parser builds the elements. A syntax error stops the
// parse of a file at the first malformed construct. Once a file parses,
// it is validated: names must be unique in their scope, field numbers
// must be in range and not reserved, proto2 and proto3 rules are
// enforced, and so on. All validation errors in a file are reported, not
// just the first.
//
// Comments directly above a declaration, with no blank line in between,
// become that element's documentation. Trailing comments on the same line
// as the previous token are discarded.
package parser
