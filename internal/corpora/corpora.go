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

// Package corpora runs table-driven tests whose table lives in the file
// system: each test case is a file, and each of its expected outputs is
// a sibling file named after it.
package corpora

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
)

// Corpus describes a directory of test cases.
type Corpus struct {
	// Root is the test data directory, relative to the file that calls
	// Run.
	Root string
	// Refresh names an environment variable holding a doublestar
	// pattern. Outputs of the test cases matching it are rewritten
	// instead of compared.
	Refresh string
	// Extensions of the files that define a test case, without the
	// leading dot, e.g. "yaml".
	Extensions []string
	// Outputs are the expected outputs of every test case. A missing
	// output file is the same as an empty one.
	Outputs []Output
	// Test runs one test case and returns one string per output.
	Test func(t *testing.T, path, text string) []string
}

// Output is one output of a test case. For a case "a.yaml" and an
// output with extension "stderr", the expected value is in
// "a.yaml.stderr".
type Output struct {
	Extension string
	// Compare compares the outputs. If nil, they must be equal.
	Compare Compare
}

// Compare returns the empty string when got matches want, or a message
// describing the mismatch.
type Compare func(got, want string) string

func (c Corpus) Run(t *testing.T) {
	t.Helper()
	testDir := callerDir(0)
	root := filepath.Join(testDir, c.Root)

	tests, err := c.find(root)
	if err != nil {
		t.Fatalf("corpora: searching %q: %v", root, err)
	}
	if len(tests) == 0 {
		t.Fatalf("corpora: no test cases in %q", root)
	}

	var refresh string
	if c.Refresh != "" {
		refresh = os.Getenv(c.Refresh)
		if !doublestar.ValidatePattern(refresh) {
			t.Fatalf("corpora: invalid pattern in %s: %q", c.Refresh, refresh)
		}
	}
	if refresh != "" {
		t.Logf("corpora: refreshing test data because %s=%s", c.Refresh, refresh)
	}

	for _, path := range tests {
		name := filepath.ToSlash(mustRel(t, root, path))
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("corpora: reading %q: %v", path, err)
			}
			results := c.Test(t, name, string(data))
			if len(results) != len(c.Outputs) {
				t.Fatalf("corpora: test returned %d results for %d outputs", len(results), len(c.Outputs))
			}
			rewrite, _ := doublestar.Match(refresh, name)
			for i, output := range c.Outputs {
				outPath := path + "." + output.Extension
				if rewrite {
					if err := write(outPath, results[i]); err != nil {
						t.Errorf("corpora: %v", err)
					}
					continue
				}
				want, err := os.ReadFile(outPath)
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					t.Errorf("corpora: reading %q: %v", outPath, err)
					continue
				}
				compare := output.Compare
				if compare == nil {
					compare = Diff
				}
				if msg := compare(results[i], string(want)); msg != "" {
					t.Errorf("output mismatch for %q:\n%s", outPath, msg)
				}
			}
		})
	}
}

func (c Corpus) find(root string) ([]string, error) {
	var tests []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		for _, ext := range c.Extensions {
			if strings.HasSuffix(p, "."+ext) {
				tests = append(tests, p)
				break
			}
		}
		return nil
	})
	sort.Strings(tests)
	return tests, err
}

func write(path, content string) error {
	if content == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting %q: %w", path, err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

// Diff is the default Compare. It reports a unified diff.
func Diff(got, want string) string {
	if got == want {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

func mustRel(t *testing.T, base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		t.Fatal(err)
	}
	return rel
}

func callerDir(skip int) string {
	_, file, _, ok := runtime.Caller(skip + 2)
	if !ok {
		panic("corpora: could not determine test file's directory")
	}
	return filepath.Dir(file)
}
