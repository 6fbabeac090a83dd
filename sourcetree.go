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
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

const (
	// ProtoExt is the extension of schema files.
	ProtoExt = ".proto"
	// ProfileExt is the extension of profile files.
	ProfileExt = ".wire"
)

// FileKind is the kind of a file in a source tree, which follows from
// its extension.
type FileKind int

const (
	FileKindUnknown FileKind = iota
	FileKindProto
	FileKindProfile
)

func (k FileKind) String() string {
	switch k {
	case FileKindProto:
		return "proto"
	case FileKindProfile:
		return "profile"
	default:
		return "unknown"
	}
}

func kindOf(p string) FileKind {
	switch path.Ext(p) {
	case ProtoExt:
		return FileKindProto
	case ProfileExt:
		return FileKindProfile
	default:
		return FileKindUnknown
	}
}

// SourceTree maps logical paths to the text of schema and profile files.
// Directories implied by the paths exist implicitly. A SourceTree is safe
// for concurrent use.
type SourceTree struct {
	mu     sync.RWMutex
	fs     afero.Fs
	kinds  map[string]FileKind
	frozen bool
}

var _ Resolver = (*SourceTree)(nil)

// NewSourceTree returns an empty, in-memory source tree.
func NewSourceTree() *SourceTree {
	return &SourceTree{
		fs:    afero.NewMemMapFs(),
		kinds: map[string]FileKind{},
	}
}

// CleanPath returns the canonical form of a logical path: slash-separated,
// without "." and ".." elements and without a leading slash. It returns
// an error wrapping ErrInvalidPath for empty paths and paths that escape
// the root.
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	slashed := filepath.ToSlash(p)
	clean := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if rel := path.Clean(slashed); clean == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w %q", ErrInvalidPath, p)
	}
	return clean, nil
}

// Register adds a file to the tree, replacing any file previously
// registered at the same path. The extension of the path must be ".proto"
// or ".wire". Once the tree is frozen every call fails with a
// *ConflictError.
func (t *SourceTree) Register(p, content string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	kind := kindOf(clean)
	if kind == FileKindUnknown {
		return &UnsupportedExtensionError{Path: clean, Ext: path.Ext(clean)}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return &ConflictError{Path: clean}
	}
	if dir := path.Dir(clean); dir != "." {
		if err := t.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := afero.WriteFile(t.fs, clean, []byte(content), 0o644); err != nil {
		return err
	}
	t.kinds[clean] = kind
	return nil
}

// RegisterFS registers every schema and profile file found under root in
// fsys. Paths in the tree are relative to root. Other files are skipped.
func (t *SourceTree) RegisterFS(fsys afero.Fs, root string) error {
	return afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || kindOf(p) == FileKindUnknown {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		return t.Register(filepath.ToSlash(rel), string(data))
	})
}

// Freeze makes the tree immutable.
func (t *SourceTree) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen reports whether Freeze was called.
func (t *SourceTree) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Paths returns the paths of all registered files in sorted order.
func (t *SourceTree) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	paths := make([]string, 0, len(t.kinds))
	for p := range t.kinds {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Kind returns the kind of the file registered at p, or FileKindUnknown
// when there is none.
func (t *SourceTree) Kind(p string) FileKind {
	clean, err := CleanPath(p)
	if err != nil {
		return FileKindUnknown
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.kinds[clean]
}

// Read returns the content of the file registered at p. The error wraps
// fs.ErrNotExist when there is none.
func (t *SourceTree) Read(p string) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.kinds[clean]; !ok {
		return "", &fs.PathError{Op: "read", Path: clean, Err: fs.ErrNotExist}
	}
	data, err := afero.ReadFile(t.fs, clean)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Match returns the sorted paths of the registered files that match the
// given doublestar pattern, e.g. "squareup/**/*.proto".
func (t *SourceTree) Match(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("match %q: %w", pattern, doublestar.ErrBadPattern)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var matches []string
	for p := range t.kinds {
		if ok, _ := doublestar.Match(pattern, p); ok {
			matches = append(matches, p)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// FS returns a read-only view of the tree as an io/fs file system.
// Directories implied by registered paths are listed as directories.
func (t *SourceTree) FS() fs.FS {
	return afero.NewIOFS(afero.NewReadOnlyFs(t.fs))
}

// FindFileByPath implements Resolver.
func (t *SourceTree) FindFileByPath(p string) (SearchResult, error) {
	content, err := t.Read(p)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Source: strings.NewReader(content)}, nil
}
