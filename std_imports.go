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

package protoschema

import (
	"github.com/bufbuild/protoschema/wellknownimports"
)

// WithStandardImports returns a resolver that finds the files included
// with protoc, like "google/protobuf/descriptor.proto", whenever r does
// not find them. A nil r finds only the standard files.
func WithStandardImports(r Resolver) Resolver {
	return ResolverFunc(func(path string) (SearchResult, error) {
		var err error
		if r != nil {
			var res SearchResult
			res, err = r.FindFileByPath(path)
			if err == nil {
				return res, nil
			}
		}
		if file, ok := wellknownimports.Lookup(path); ok {
			return SearchResult{File: &file}, nil
		}
		if err == nil {
			err = notFound(path)
		}
		return SearchResult{}, err
	})
}
