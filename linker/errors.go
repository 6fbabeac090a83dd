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

import "errors"

var (
	// ErrUnknownType is wrapped by link errors for references to types
	// that do not exist.
	ErrUnknownType = errors.New("unknown type")
	// ErrNotImported is wrapped by link errors for references to elements
	// of files that are not visible from the referencing file.
	ErrNotImported = errors.New("is not imported")
	// ErrInvalidReference is wrapped by link errors for references that
	// resolve to an element of the wrong kind.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidExtension is wrapped by link errors for extension fields
	// whose tags are not allowed by the extended message.
	ErrInvalidExtension = errors.New("invalid extension")
	// ErrUnknownOption is wrapped by link errors for option names that do
	// not name a field of the options message.
	ErrUnknownOption = errors.New("unknown option")
	// ErrInvalidOptionValue is wrapped by link errors for option values
	// that do not match the type of the option.
	ErrInvalidOptionValue = errors.New("invalid option value")
	// ErrUnusedImport is wrapped by the warnings reported for imports that
	// no reference in the file needed.
	ErrUnusedImport = errors.New("unused import")
)
