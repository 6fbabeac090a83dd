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

package internal

// Field numbers of descriptor.proto used to build source code info paths.
const (
	FileMessagesTag   = 4
	FileEnumsTag      = 5
	FileServicesTag   = 6
	FileExtensionsTag = 7

	MessageFieldsTag         = 2
	MessageNestedMessagesTag = 3
	MessageEnumsTag          = 4
	MessageExtensionsTag     = 6
	MessageOneOfsTag         = 8

	EnumValuesTag = 2

	ServiceMethodsTag = 2
)
